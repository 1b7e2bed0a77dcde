package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFloat32_Length(t *testing.T) {
	buf := GetFloat32(100)
	assert.Len(t, buf, 100)
	assert.GreaterOrEqual(t, cap(buf), 100)
	PutFloat32(buf)
}

func TestGetFloat32_LargeRequest(t *testing.T) {
	buf := GetFloat32(3000)
	assert.Len(t, buf, 3000)
	PutFloat32(buf)
}

func TestPutFloat32_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() { PutFloat32(nil) })
}

func TestGetInt64_Length(t *testing.T) {
	buf := GetInt64(50)
	assert.Len(t, buf, 50)
	PutInt64(buf)
}

func TestPutInt64_NilSafe(t *testing.T) {
	assert.NotPanics(t, func() { PutInt64(nil) })
}

func TestSizeClass(t *testing.T) {
	assert.Equal(t, 1024, sizeClass(1))
	assert.Equal(t, 1024, sizeClass(1024))
	assert.Equal(t, 2048, sizeClass(1025))
	assert.Equal(t, 4096, sizeClass(4096))
}

func TestRoundTrip_ReuseDoesNotShrink(t *testing.T) {
	buf := GetFloat32(10)
	PutFloat32(buf)
	again := GetFloat32(500)
	assert.Len(t, again, 500)
	PutFloat32(again)
}
