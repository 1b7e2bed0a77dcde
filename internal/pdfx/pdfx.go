// Package pdfx turns PDF files into processable pages: embedded raster
// images via pdfcpu and vector text via dslipak/pdf.
package pdfx

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dslipak/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/victoMR/testFlow/internal/document"
)

// PageCount reports the number of pages without extracting anything, so the
// orchestrator can reject oversized documents before any work is dispatched.
func PageCount(filename string) (int, error) {
	reader, err := pdf.Open(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF %q: %w", filename, err)
	}
	return reader.NumPage(), nil
}

// LoadPages extracts every page of the PDF as processable pages: one image
// page per embedded image, plus one text page when the page carries vector
// text. Extraction artifacts live in a temp directory removed before return.
func LoadPages(filename string) ([]document.Page, error) {
	count, err := PageCount(filename)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, errors.New("PDF has no pages")
	}

	images, err := extractImages(filename)
	if err != nil {
		return nil, err
	}
	texts := extractText(filename, count)

	var pages []document.Page
	for n := 1; n <= count; n++ {
		for _, img := range images[n] {
			pages = append(pages, document.Page{Number: n, Kind: document.PageImage, Image: img})
		}
		if t := texts[n]; strings.TrimSpace(t) != "" {
			pages = append(pages, document.Page{Number: n, Kind: document.PageText, Text: t})
		}
	}
	if len(pages) == 0 {
		return nil, errors.New("PDF contains no extractable images or text")
	}
	return pages, nil
}

// extractImages pulls embedded images out of the PDF grouped by page number.
func extractImages(filename string) (map[int][]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "testflow-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	if err := api.ExtractImagesFile(filename, tempDir, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}
	return collectExtractedImages(tempDir)
}

// collectExtractedImages walks the extraction directory and groups decoded
// images by page. Filenames follow the pdfcpu format page_<num>_image_<idx>.
func collectExtractedImages(dir string) (map[int][]image.Image, error) {
	result := make(map[int][]image.Image)
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		pageNum, err := parsePageFromFilename(info.Name())
		if err != nil {
			return nil // not an extracted page image
		}
		img, err := loadImageFile(path)
		if err != nil {
			return nil // skip undecodable images
		}
		result[pageNum] = append(result[pageNum], img)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	return result, nil
}

func loadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // reading our own temp extraction dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	return img, err
}

func parsePageFromFilename(filename string) (int, error) {
	if !strings.HasPrefix(filename, "page_") {
		return 0, errors.New("not a page file")
	}
	parts := strings.Split(filename, "_")
	if len(parts) < 2 {
		return 0, errors.New("invalid filename format")
	}
	pageNum, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}

// extractText reads the vector text of each page. Failures are per-page and
// yield missing entries rather than an error; scanned PDFs simply have no
// vector text.
func extractText(filename string, count int) map[int]string {
	texts := make(map[int]string, count)
	reader, err := pdf.Open(filename)
	if err != nil {
		return texts
	}
	for n := 1; n <= count; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		texts[n] = text
	}
	return texts
}
