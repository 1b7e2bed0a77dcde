package pdfx

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePageFromFilename(t *testing.T) {
	n, err := parsePageFromFilename("page_3_image_1.png")
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = parsePageFromFilename("page_12_image_4.jpg")
	assert.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parsePageFromFilename("thumbnail.png")
	assert.Error(t, err)
	_, err = parsePageFromFilename("page_x_image_1.png")
	assert.Error(t, err)
}

func TestCollectExtractedImages_EmptyDir(t *testing.T) {
	result, err := collectExtractedImages(t.TempDir())
	assert.NoError(t, err)
	assert.Empty(t, result)
}

func TestPageCount_MissingFile(t *testing.T) {
	_, err := PageCount(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestLoadPages_MissingFile(t *testing.T) {
	_, err := LoadPages(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
