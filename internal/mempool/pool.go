// Package mempool provides sized buffer pools for inference hot paths.
package mempool

import "sync"

// Tensor buffers are requested per frame and per decoding step; pooling them
// keeps the garbage collector out of the recognition loop.

var (
	float32Pools sync.Map // size class (int) -> *sync.Pool of []float32
	int64Pools   sync.Map // size class (int) -> *sync.Pool of []int64
)

// sizeClass rounds n up to a 1024-element bucket so buffers of similar sizes
// share a pool.
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	const step = 1024
	return ((n + step - 1) / step) * step
}

// GetFloat32 retrieves a []float32 buffer with length n from the pool. The
// caller must return it via PutFloat32 when done. Contents are unspecified.
func GetFloat32(n int) []float32 {
	cls := sizeClass(n)
	pAny, _ := float32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float32, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return make([]float32, n)
	}
	buf, ok := p.Get().([]float32)
	if !ok || cap(buf) < cls {
		buf = make([]float32, cls)
	}
	return buf[:n]
}

// PutFloat32 returns a buffer to the pool. Nil is a no-op.
func PutFloat32(buf []float32) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	pAny, _ := float32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float32, cls) }})
	if p, ok := pAny.(*sync.Pool); ok {
		p.Put(buf[:cap(buf)]) //nolint:staticcheck
	}
}

// GetInt64 retrieves a []int64 buffer with length n from the pool, used for
// decoder token-id inputs. The caller must return it via PutInt64.
func GetInt64(n int) []int64 {
	cls := sizeClass(n)
	pAny, _ := int64Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]int64, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return make([]int64, n)
	}
	buf, ok := p.Get().([]int64)
	if !ok || cap(buf) < cls {
		buf = make([]int64, cls)
	}
	return buf[:n]
}

// PutInt64 returns a buffer to the pool. Nil is a no-op.
func PutInt64(buf []int64) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	pAny, _ := int64Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]int64, cls) }})
	if p, ok := pAny.(*sync.Pool); ok {
		p.Put(buf[:cap(buf)]) //nolint:staticcheck
	}
}
