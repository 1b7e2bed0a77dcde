package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKey_DeterministicAndDistinct(t *testing.T) {
	a := Key([]byte("body-a"))
	b := Key([]byte("body-b"))
	assert.Equal(t, a, Key([]byte("body-a")))
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "testflow:result:")
}

func TestNoop(t *testing.T) {
	var c Noop
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	c.Set(context.Background(), "k", []byte("v"), time.Minute)
	_, ok = c.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.NoError(t, c.Close())
}
