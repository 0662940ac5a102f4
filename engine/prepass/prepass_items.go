// package prepass renders the depth and normal prepass: a thin g-buffer drawn before the main
// color pass so later passes can reuse scene depth and world-space normals.
//
// A frame runs in this order: PrepareTextures provisions each view's prepass textures, Queue
// fills each view's opaque and alpha-mask phases, SortPhases orders them front to back, Render
// encodes one prepass render pass per view and EndFrame recycles per-frame state.
package prepass

import (
	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// DepthPrepassFormat is the format of prepass depth textures.
	DepthPrepassFormat = wgpu.TextureFormatDepth32Float

	// NormalPrepassFormat is the format of prepass normal textures. World-space normals are
	// packed into its three 10-bit channels.
	NormalPrepassFormat = wgpu.TextureFormatRGB10A2Unorm
)

// DepthPrepass is a marker component: a view carrying it gets a prepass depth texture.
type DepthPrepass struct{}

// NormalPrepass is a marker component: a view carrying it gets a prepass normal texture.
type NormalPrepass struct{}

// Opaque3dPrepass is a phase item for fully opaque geometry in the prepass.
type Opaque3dPrepass struct {
	// Distance is the distance of the item in front of the view.
	Distance       float32
	EntityId       render_phase.EntityId
	PipelineId     render_phase.CachedRenderPipelineId
	DrawFunctionId render_phase.DrawFunctionId
}

var _ render_phase.SortablePhaseItem[Opaque3dPrepass] = Opaque3dPrepass{}

func (i Opaque3dPrepass) SortKey() render_phase.SortKey {
	return render_phase.NewSortKey(i.Distance)
}

func (i Opaque3dPrepass) DrawFunction() render_phase.DrawFunctionId {
	return i.DrawFunctionId
}

func (i Opaque3dPrepass) Entity() render_phase.EntityId {
	return i.EntityId
}

func (i Opaque3dPrepass) CachedPipeline() render_phase.CachedRenderPipelineId {
	return i.PipelineId
}

// SortAll sorts items front to back with a stable radix sort on Distance.
func (Opaque3dPrepass) SortAll(items []Opaque3dPrepass) {
	render_phase.RadixSortByKey(items, func(i Opaque3dPrepass) float32 { return i.Distance })
}

// AlphaMask3dPrepass is a phase item for alpha-masked geometry in the prepass. Its shape matches
// Opaque3dPrepass but it is a distinct type, so the two phases can never mix items.
type AlphaMask3dPrepass struct {
	// Distance is the distance of the item in front of the view.
	Distance       float32
	EntityId       render_phase.EntityId
	PipelineId     render_phase.CachedRenderPipelineId
	DrawFunctionId render_phase.DrawFunctionId
}

var _ render_phase.SortablePhaseItem[AlphaMask3dPrepass] = AlphaMask3dPrepass{}

func (i AlphaMask3dPrepass) SortKey() render_phase.SortKey {
	return render_phase.NewSortKey(i.Distance)
}

func (i AlphaMask3dPrepass) DrawFunction() render_phase.DrawFunctionId {
	return i.DrawFunctionId
}

func (i AlphaMask3dPrepass) Entity() render_phase.EntityId {
	return i.EntityId
}

func (i AlphaMask3dPrepass) CachedPipeline() render_phase.CachedRenderPipelineId {
	return i.PipelineId
}

// SortAll sorts items front to back with a stable radix sort on Distance.
func (AlphaMask3dPrepass) SortAll(items []AlphaMask3dPrepass) {
	render_phase.RadixSortByKey(items, func(i AlphaMask3dPrepass) float32 { return i.Distance })
}

// ViewPhases holds the prepass phases of one view.
type ViewPhases struct {
	Opaque    *render_phase.RenderPhase[Opaque3dPrepass]
	AlphaMask *render_phase.RenderPhase[AlphaMask3dPrepass]
}

// NewViewPhases creates empty phases with room for capacity items each.
func NewViewPhases(capacity int) *ViewPhases {
	return &ViewPhases{
		Opaque:    render_phase.NewRenderPhase[Opaque3dPrepass](capacity),
		AlphaMask: render_phase.NewRenderPhase[AlphaMask3dPrepass](capacity),
	}
}

// Sort sorts both phases.
func (p *ViewPhases) Sort() {
	p.Opaque.Sort()
	p.AlphaMask.Sort()
}

// Clear empties both phases, keeping their storage.
func (p *ViewPhases) Clear() {
	p.Opaque.Clear()
	p.AlphaMask.Clear()
}
