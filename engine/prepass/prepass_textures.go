package prepass

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-prepass/common"
	"github.com/Carmen-Shannon/oxy-prepass/engine/texture_cache"
	"github.com/Carmen-Shannon/oxy-prepass/engine/view"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrMissingPrepassTexture is returned when a view enables a prepass but its texture cannot be
// provided. The view's frame cannot be rendered.
var ErrMissingPrepassTexture = errors.New("prepass: missing prepass texture")

const (
	depthTextureLabel  = "prepass_depth_texture"
	normalTextureLabel = "prepass_normal_texture"

	prepassTextureUsage = wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
)

// ViewPrepassTextures is the prepass texture set of one view for one frame.
// Depth is present iff the view carries DepthPrepass and Normal iff it carries NormalPrepass;
// present textures share Size. It is read-only once published.
type ViewPrepassTextures struct {
	Depth  *texture_cache.CachedTexture
	Normal *texture_cache.CachedTexture
	Size   wgpu.Extent3D
}

// DepthTexture returns the depth texture, if present.
func (t ViewPrepassTextures) DepthTexture() (texture_cache.CachedTexture, bool) {
	if t.Depth == nil {
		return texture_cache.CachedTexture{}, false
	}
	return *t.Depth, true
}

// NormalTexture returns the normal texture, if present.
func (t ViewPrepassTextures) NormalTexture() (texture_cache.CachedTexture, bool) {
	if t.Normal == nil {
		return texture_cache.CachedTexture{}, false
	}
	return *t.Normal, true
}

// DepthView returns the depth texture's view, or nil.
func (t ViewPrepassTextures) DepthView() *wgpu.TextureView {
	if t.Depth == nil {
		return nil
	}
	return t.Depth.View
}

// NormalView returns the normal texture's view, or nil.
func (t ViewPrepassTextures) NormalView() *wgpu.TextureView {
	if t.Normal == nil {
		return nil
	}
	return t.Normal.View
}

// degenerateExtent reports whether size is zero in any dimension. Such views get no prepass.
func degenerateExtent(size wgpu.Extent3D) bool {
	return size.Width == 0 || size.Height == 0 || size.DepthOrArrayLayers == 0
}

// PrepareViewTextures requests the prepass textures v needs this frame from cache. Only textures
// for enabled prepasses are requested. A view whose extent is zero in any dimension gets no
// textures and no error.
//
// Parameters:
//   - v: the view
//   - cache: the texture cache to allocate from
//
// Returns:
//   - ViewPrepassTextures: the view's texture set
//   - error: ErrMissingPrepassTexture if a required texture could not be allocated
func PrepareViewTextures(v view.View, cache texture_cache.TextureCache) (ViewPrepassTextures, error) {
	size := v.Extent()
	textures := ViewPrepassTextures{Size: size}

	if degenerateExtent(size) {
		common.Logger().Debug("prepass skipped for degenerate extent", "view", v.Entity(),
			"width", size.Width, "height", size.Height)
		return textures, nil
	}

	if view.Has[DepthPrepass](v) {
		tex, err := cache.Get(texture_cache.TextureDescriptor{
			Label:       depthTextureLabel,
			Size:        size,
			Format:      DepthPrepassFormat,
			Usage:       prepassTextureUsage,
			SampleCount: 1,
		})
		if err != nil {
			return ViewPrepassTextures{}, fmt.Errorf("%w: depth for view %d: %w", ErrMissingPrepassTexture, v.Entity(), err)
		}
		textures.Depth = &tex
	}

	if view.Has[NormalPrepass](v) {
		tex, err := cache.Get(texture_cache.TextureDescriptor{
			Label:       normalTextureLabel,
			Size:        size,
			Format:      NormalPrepassFormat,
			Usage:       prepassTextureUsage,
			SampleCount: 1,
		})
		if err != nil {
			return ViewPrepassTextures{}, fmt.Errorf("%w: normal for view %d: %w", ErrMissingPrepassTexture, v.Entity(), err)
		}
		textures.Normal = &tex
	}

	return textures, nil
}

// assertMatchesFlags panics if textures holds a texture for a prepass v does not enable, or if
// present textures disagree with Size.
func assertMatchesFlags(v view.View, textures ViewPrepassTextures) {
	if textures.Depth != nil {
		if !view.Has[DepthPrepass](v) {
			panic(fmt.Sprintf("prepass: view %d has a depth texture without DepthPrepass", v.Entity()))
		}
		if textures.Depth.Descriptor.Size != textures.Size {
			panic(fmt.Sprintf("prepass: view %d depth texture size does not match the texture set", v.Entity()))
		}
	}
	if textures.Normal != nil {
		if !view.Has[NormalPrepass](v) {
			panic(fmt.Sprintf("prepass: view %d has a normal texture without NormalPrepass", v.Entity()))
		}
		if textures.Normal.Descriptor.Size != textures.Size {
			panic(fmt.Sprintf("prepass: view %d normal texture size does not match the texture set", v.Entity()))
		}
	}
}
