// package texture_cache hands out GPU textures by descriptor and recycles them across frames.
// Per-view attachments (such as prepass depth and normal textures) are requested every frame;
// the cache returns the same texture while the descriptor is unchanged and releases textures
// that have gone unused for a few frames, e.g. after a resize.
package texture_cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-prepass/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrInvalidDescriptor is returned for descriptors that cannot describe a texture.
var ErrInvalidDescriptor = errors.New("texture_cache: invalid texture descriptor")

// ErrStaleHandle is returned when a handle refers to a texture that has been released.
var ErrStaleHandle = errors.New("texture_cache: stale texture handle")

// DefaultRetentionFrames is how many frames an unused texture is kept before it is released.
const DefaultRetentionFrames = 3

// TextureDescriptor describes a texture request. Equal descriptors are interchangeable.
type TextureDescriptor struct {
	Label       string
	Size        wgpu.Extent3D
	Format      wgpu.TextureFormat
	Usage       wgpu.TextureUsage
	SampleCount uint32
}

// GPUTexture is a texture and its default view as created by an Allocator.
type GPUTexture struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
}

// Allocator creates and destroys GPU textures on behalf of the cache.
type Allocator interface {
	// CreateTexture allocates a texture and its default view.
	CreateTexture(desc TextureDescriptor) (GPUTexture, error)

	// ReleaseTexture destroys a texture previously returned by CreateTexture.
	ReleaseTexture(tex GPUTexture)
}

// TextureHandle refers to a texture owned by a TextureCache. It is a small value that may be
// copied freely; a handle whose texture has been released no longer resolves.
type TextureHandle struct {
	index      uint32
	generation uint32
}

// CachedTexture is a texture handed out for the current frame. The embedded GPU resources are
// valid until the texture is released by Update or Clear.
type CachedTexture struct {
	GPUTexture
	Handle     TextureHandle
	Descriptor TextureDescriptor
}

// slot is one texture owned by the cache.
type slot struct {
	generation uint32
	live       bool
	desc       TextureDescriptor
	gpu        GPUTexture

	// taken is set while the texture is handed out in the current frame.
	taken bool
	// framesUnused counts completed frames in which the texture was not handed out.
	framesUnused int
}

// textureCache is the implementation of the TextureCache interface.
type textureCache struct {
	mu        *sync.Mutex
	allocator Allocator

	slots []slot
	free  []uint32

	retentionFrames int
}

// TextureCache hands out textures by descriptor and recycles them across frames.
// Safe for concurrent use.
type TextureCache interface {
	// Get returns a texture matching desc that has not been handed out yet this frame,
	// allocating one if none is free.
	//
	// Parameters:
	//   - desc: the texture to request
	//
	// Returns:
	//   - CachedTexture: the texture for this frame
	//   - error: ErrInvalidDescriptor for zero-sized descriptors, or the allocator's error
	Get(desc TextureDescriptor) (CachedTexture, error)

	// Texture resolves a handle to its GPU resources.
	//
	// Parameters:
	//   - h: the handle
	//
	// Returns:
	//   - GPUTexture: the texture and its view
	//   - error: ErrStaleHandle if the texture was released
	Texture(h TextureHandle) (GPUTexture, error)

	// Update ends the frame: every texture becomes free for the next frame and textures that
	// have not been handed out for the retention period are released.
	Update()

	// Len returns the number of live textures.
	Len() int

	// Clear releases every texture. Handles obtained earlier become stale.
	Clear()
}

var _ TextureCache = &textureCache{}

// NewTextureCache creates a cache that allocates through allocator. Panics if allocator is nil.
//
// Parameters:
//   - allocator: creates and destroys GPU textures
//   - options: functional options to further configure the cache
//
// Returns:
//   - TextureCache: the new cache
func NewTextureCache(allocator Allocator, options ...TextureCacheBuilderOption) TextureCache {
	if allocator == nil {
		panic("texture_cache: NewTextureCache requires a non-nil Allocator")
	}
	c := &textureCache{
		mu:              &sync.Mutex{},
		allocator:       allocator,
		retentionFrames: DefaultRetentionFrames,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *textureCache) Get(desc TextureDescriptor) (CachedTexture, error) {
	if desc.Size.Width == 0 || desc.Size.Height == 0 || desc.Size.DepthOrArrayLayers == 0 {
		return CachedTexture{}, fmt.Errorf("%w: %q has size %dx%dx%d", ErrInvalidDescriptor,
			desc.Label, desc.Size.Width, desc.Size.Height, desc.Size.DepthOrArrayLayers)
	}
	desc.SampleCount = common.Coalesce(desc.SampleCount, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		s := &c.slots[i]
		if s.live && !s.taken && s.desc == desc {
			s.taken = true
			s.framesUnused = 0
			common.Logger().Debug("texture reused", "label", desc.Label, "index", i)
			return CachedTexture{GPUTexture: s.gpu, Handle: TextureHandle{index: uint32(i), generation: s.generation}, Descriptor: desc}, nil
		}
	}

	gpu, err := c.allocator.CreateTexture(desc)
	if err != nil {
		return CachedTexture{}, fmt.Errorf("failed to allocate texture %q: %w", desc.Label, err)
	}

	var index uint32
	if n := len(c.free); n > 0 {
		index = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		index = uint32(len(c.slots))
		c.slots = append(c.slots, slot{})
	}

	s := &c.slots[index]
	s.generation++
	s.live = true
	s.desc = desc
	s.gpu = gpu
	s.taken = true
	s.framesUnused = 0

	common.Logger().Info("texture allocated", "label", desc.Label,
		"width", desc.Size.Width, "height", desc.Size.Height, "format", desc.Format)
	return CachedTexture{GPUTexture: gpu, Handle: TextureHandle{index: index, generation: s.generation}, Descriptor: desc}, nil
}

func (c *textureCache) Texture(h TextureHandle) (GPUTexture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if int(h.index) >= len(c.slots) {
		return GPUTexture{}, ErrStaleHandle
	}
	s := &c.slots[h.index]
	if !s.live || s.generation != h.generation {
		return GPUTexture{}, ErrStaleHandle
	}
	return s.gpu, nil
}

func (c *textureCache) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.slots {
		s := &c.slots[i]
		if !s.live {
			continue
		}
		if !s.taken {
			s.framesUnused++
		}
		s.taken = false
		if s.framesUnused >= c.retentionFrames {
			c.release(uint32(i))
		}
	}
}

func (c *textureCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots) - len(c.free)
}

func (c *textureCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.slots[i].live {
			c.release(uint32(i))
		}
	}
}

// release destroys the texture in slot index and recycles the slot. Callers hold c.mu.
func (c *textureCache) release(index uint32) {
	s := &c.slots[index]
	common.Logger().Debug("texture released", "label", s.desc.Label, "index", index)
	c.allocator.ReleaseTexture(s.gpu)
	s.live = false
	s.taken = false
	s.gpu = GPUTexture{}
	s.framesUnused = 0
	c.free = append(c.free, index)
}
