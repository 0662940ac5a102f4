package prepass

import (
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/Carmen-Shannon/oxy-prepass/engine/renderer"
	"github.com/Carmen-Shannon/oxy-prepass/engine/view"
	"github.com/cogentcore/webgpu/wgpu"
)

// AlphaMode is how a material's alpha channel is applied.
type AlphaMode int

const (
	// AlphaModeOpaque ignores alpha.
	AlphaModeOpaque AlphaMode = iota
	// AlphaModeMask discards fragments below the material's alpha cutoff.
	AlphaModeMask
	// AlphaModeBlend blends with the framebuffer.
	AlphaModeBlend
	// AlphaModePremultiplied blends with premultiplied alpha.
	AlphaModePremultiplied
	// AlphaModeAdd adds to the framebuffer.
	AlphaModeAdd
	// AlphaModeMultiply multiplies the framebuffer.
	AlphaModeMultiply
)

func (m AlphaMode) String() string {
	switch m {
	case AlphaModeOpaque:
		return "opaque"
	case AlphaModeMask:
		return "mask"
	case AlphaModeBlend:
		return "blend"
	case AlphaModePremultiplied:
		return "premultiplied"
	case AlphaModeAdd:
		return "add"
	case AlphaModeMultiply:
		return "multiply"
	}
	return fmt.Sprintf("AlphaMode(%d)", int(m))
}

// PrepassMesh is a drawable entity extracted for the prepass.
type PrepassMesh struct {
	Entity render_phase.EntityId
	// Transform is the entity's column-major model matrix.
	Transform [16]float32
	AlphaMode AlphaMode
	// DepthBias is added to the view distance, e.g. to order decals after their surface.
	DepthBias float32
	// MeshKey selects the shader variant matching the mesh's vertex layout. Zero is the default
	// layout.
	MeshKey uint32
}

// PipelineKey selects a prepass pipeline variant.
type PipelineKey struct {
	AlphaMask     bool
	DepthPrepass  bool
	NormalPrepass bool
	MeshKey       uint32
}

// Descriptor builds the render pipeline descriptor for k. Depth is always written in
// DepthPrepassFormat; a normal prepass adds a NormalPrepassFormat color target.
//
// Parameters:
//   - shaderKey: the base shader key; non-zero mesh keys select "<shaderKey>/<mesh key>"
//   - depthCompare: the depth compare function matching the pass's depth clear value
//
// Returns:
//   - renderer.RenderPipelineDescriptor: the descriptor to queue
func (k PipelineKey) Descriptor(shaderKey string, depthCompare wgpu.CompareFunction) renderer.RenderPipelineDescriptor {
	label := "opaque_prepass"
	if k.AlphaMask {
		label = "alpha_mask_prepass"
	}
	if k.NormalPrepass {
		label += "_normal"
	}
	if k.MeshKey != 0 {
		shaderKey += "/" + strconv.FormatUint(uint64(k.MeshKey), 10)
		label += "_" + strconv.FormatUint(uint64(k.MeshKey), 10)
	}

	desc := renderer.RenderPipelineDescriptor{
		Label:             label,
		ShaderKey:         shaderKey,
		DepthFormat:       DepthPrepassFormat,
		ColorFormat:       wgpu.TextureFormatUndefined,
		DepthWriteEnabled: true,
		DepthCompare:      depthCompare,
		CullMode:          wgpu.CullModeBack,
		AlphaMask:         k.AlphaMask,
		SampleCount:       1,
	}
	if k.NormalPrepass {
		desc.ColorFormat = NormalPrepassFormat
	}
	return desc
}

// DepthCompareFor returns the depth compare function for a depth clear value: a clear value of 0
// is a reversed depth buffer where nearer fragments have larger depth.
func DepthCompareFor(depthClearValue float32) wgpu.CompareFunction {
	if depthClearValue == 0 {
		return wgpu.CompareFunctionGreater
	}
	return wgpu.CompareFunctionLess
}

// PrepassPipelines specializes prepass pipeline keys into cached pipeline ids.
type PrepassPipelines struct {
	cache        renderer.PipelineCache
	shaderKey    string
	depthCompare wgpu.CompareFunction
}

// NewPrepassPipelines creates a specializer queueing into cache. Panics if cache is nil.
//
// Parameters:
//   - cache: the pipeline cache
//   - shaderKey: the prepass shader's base key
//   - depthClearValue: the depth clear value of the prepass render pass
//
// Returns:
//   - *PrepassPipelines: the specializer
func NewPrepassPipelines(cache renderer.PipelineCache, shaderKey string, depthClearValue float32) *PrepassPipelines {
	if cache == nil {
		panic("prepass: NewPrepassPipelines requires a non-nil PipelineCache")
	}
	return &PrepassPipelines{
		cache:        cache,
		shaderKey:    shaderKey,
		depthCompare: DepthCompareFor(depthClearValue),
	}
}

// Specialize returns the cached pipeline id for key, queueing it on first use.
func (p *PrepassPipelines) Specialize(key PipelineKey) render_phase.CachedRenderPipelineId {
	return p.cache.QueueRenderPipeline(key.Descriptor(p.shaderKey, p.depthCompare))
}

// DrawFunctionIds are the draw functions queued items are drawn with.
type DrawFunctionIds struct {
	Opaque    render_phase.DrawFunctionId
	AlphaMask render_phase.DrawFunctionId
}

// QueueStats counts what QueueMeshes did.
type QueueStats struct {
	Opaque    int
	AlphaMask int
	// Skipped counts meshes with blended alpha modes, which the prepass does not draw.
	Skipped int
}

// QueueMeshes adds one phase item per eligible mesh to phases. Opaque meshes go to the opaque
// phase and masked meshes to the alpha-mask phase; blended meshes are skipped. Views without a
// prepass marker queue nothing.
//
// Parameters:
//   - v: the view being queued
//   - meshes: the extracted drawable meshes
//   - phases: the view's phases, owned by the caller for the duration of the call
//   - pipelines: the pipeline specializer
//   - draws: the draw functions to store on the items
//
// Returns:
//   - QueueStats: counts of queued and skipped meshes
func QueueMeshes(v view.View, meshes []PrepassMesh, phases *ViewPhases, pipelines *PrepassPipelines, draws DrawFunctionIds) QueueStats {
	var stats QueueStats

	depth := view.Has[DepthPrepass](v)
	normal := view.Has[NormalPrepass](v)
	if !depth && !normal {
		return stats
	}

	rangefinder := v.Rangefinder()
	for _, mesh := range meshes {
		key := PipelineKey{
			DepthPrepass:  depth,
			NormalPrepass: normal,
			MeshKey:       mesh.MeshKey,
		}

		switch mesh.AlphaMode {
		case AlphaModeOpaque:
			phases.Opaque.Add(Opaque3dPrepass{
				Distance:       rangefinder.Distance(mesh.Transform) + mesh.DepthBias,
				EntityId:       mesh.Entity,
				PipelineId:     pipelines.Specialize(key),
				DrawFunctionId: draws.Opaque,
			})
			stats.Opaque++
		case AlphaModeMask:
			key.AlphaMask = true
			phases.AlphaMask.Add(AlphaMask3dPrepass{
				Distance:       rangefinder.Distance(mesh.Transform) + mesh.DepthBias,
				EntityId:       mesh.Entity,
				PipelineId:     pipelines.Specialize(key),
				DrawFunctionId: draws.AlphaMask,
			})
			stats.AlphaMask++
		default:
			stats.Skipped++
		}
	}
	return stats
}
