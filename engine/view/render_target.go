package view

import "sync/atomic"

// RenderTarget is anything a view renders into: a window surface or an off-screen image.
type RenderTarget interface {
	// Size returns the current size of the target in pixels.
	//
	// Returns:
	//   - width, height: the target size, either may be zero
	Size() (width, height uint32)
}

// ImageTarget is an off-screen render target with a size set by its owner.
type ImageTarget struct {
	size atomic.Uint64
}

var _ RenderTarget = &ImageTarget{}

// NewImageTarget creates an off-screen target of the given size.
func NewImageTarget(width, height uint32) *ImageTarget {
	t := &ImageTarget{}
	t.Resize(width, height)
	return t
}

// Size returns the target size.
func (t *ImageTarget) Size() (width, height uint32) {
	s := t.size.Load()
	return uint32(s >> 32), uint32(s)
}

// Resize changes the target size. Safe to call while other goroutines read Size.
func (t *ImageTarget) Resize(width, height uint32) {
	t.size.Store(uint64(width)<<32 | uint64(height))
}
