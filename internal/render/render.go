// Package render produces small preview images for recognized formulas.
package render

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	padding   = 8
	maxRunes  = 200
	textColor = 0x20
)

// PreviewPNG renders the formula source text onto a white canvas and returns
// it as a base64-encoded PNG. It is a monospace rendering of the LaTeX
// source, not a typeset formula; callers treat the preview as optional and
// drop it when rendering fails.
func PreviewPNG(text string) (string, error) {
	if text == "" {
		return "", errors.New("nothing to render")
	}
	runes := []rune(text)
	if len(runes) > maxRunes {
		runes = runes[:maxRunes]
		text = string(runes)
	}

	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 2*padding
	height := face.Metrics().Height.Ceil() + 2*padding

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Gray{Y: textColor}),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(padding),
			Y: fixed.I(padding + face.Metrics().Ascent.Ceil()),
		},
	}
	d.DrawString(text)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
