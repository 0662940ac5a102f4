package prepass

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-prepass/common"
	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/Carmen-Shannon/oxy-prepass/engine/renderer"
	"github.com/Carmen-Shannon/oxy-prepass/engine/view"
	"github.com/cogentcore/webgpu/wgpu"
)

// NodeStats summarizes one prepass render pass.
type NodeStats struct {
	Opaque           render_phase.RenderStats
	AlphaMask        render_phase.RenderStats
	PipelineSwitches int
	// Ran is false when the view had nothing to render (no prepass or a degenerate extent).
	Ran bool
}

// Node encodes the prepass render pass of a view.
type Node struct {
	opaqueDraws     *render_phase.DrawFunctions[Opaque3dPrepass]
	alphaMaskDraws  *render_phase.DrawFunctions[AlphaMask3dPrepass]
	depthClearValue float32
}

// NewNode creates a node drawing through the given registries. Panics if either is nil.
//
// Parameters:
//   - opaqueDraws: draw functions for opaque items
//   - alphaMaskDraws: draw functions for alpha-masked items
//   - depthClearValue: the value the depth attachment is cleared to
//
// Returns:
//   - *Node: the node
func NewNode(opaqueDraws *render_phase.DrawFunctions[Opaque3dPrepass], alphaMaskDraws *render_phase.DrawFunctions[AlphaMask3dPrepass], depthClearValue float32) *Node {
	if opaqueDraws == nil || alphaMaskDraws == nil {
		panic("prepass: NewNode requires non-nil draw function registries")
	}
	return &Node{
		opaqueDraws:     opaqueDraws,
		alphaMaskDraws:  alphaMaskDraws,
		depthClearValue: depthClearValue,
	}
}

// Run encodes the prepass of v: one render pass with the normal texture as color attachment (if
// enabled) and the prepass depth texture as depth attachment, drawing the opaque phase and then
// the alpha-mask phase in their sorted order.
//
// When only normals are enabled, fallbackDepth is used as the depth attachment. Views without a
// prepass marker or with a degenerate extent are a no-op. Panics if textures holds a texture for a
// disabled prepass.
//
// Parameters:
//   - beginner: begins the render pass
//   - v: the view
//   - textures: the view's published texture set
//   - phases: the view's sorted phases
//   - fallbackDepth: depth attachment for normal-only prepasses, may be nil otherwise
//
// Returns:
//   - NodeStats: what was drawn
//   - error: ErrMissingPrepassTexture if a required attachment is missing, or a draw error
func (n *Node) Run(beginner renderer.PassBeginner, v view.View, textures ViewPrepassTextures, phases *ViewPhases, fallbackDepth *wgpu.TextureView) (NodeStats, error) {
	var stats NodeStats

	depth := view.Has[DepthPrepass](v)
	normal := view.Has[NormalPrepass](v)
	if !depth && !normal {
		return stats, nil
	}
	if degenerateExtent(v.Extent()) {
		return stats, nil
	}

	assertMatchesFlags(v, textures)

	if depth && textures.Depth == nil {
		return stats, fmt.Errorf("%w: view %d has DepthPrepass but no depth texture", ErrMissingPrepassTexture, v.Entity())
	}
	if normal && textures.Normal == nil {
		return stats, fmt.Errorf("%w: view %d has NormalPrepass but no normal texture", ErrMissingPrepassTexture, v.Entity())
	}

	depthView := textures.DepthView()
	if depthView == nil {
		depthView = fallbackDepth
	}
	if depthView == nil {
		return stats, fmt.Errorf("%w: view %d has no depth attachment for its normal prepass", ErrMissingPrepassTexture, v.Entity())
	}

	desc := renderer.PassDescriptor{
		Label:           "prepass",
		DepthView:       depthView,
		DepthClearValue: n.depthClearValue,
	}
	if normal {
		desc.ColorAttachments = []renderer.ColorAttachment{{
			View:       textures.NormalView(),
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 0},
		}}
	}

	encoder, err := beginner.BeginRenderPass(desc)
	if err != nil {
		return stats, fmt.Errorf("failed to begin prepass for view %d: %w", v.Entity(), err)
	}
	stats.Ran = true
	pass := render_phase.NewTrackedRenderPass(encoder)

	stats.Opaque, err = phases.Opaque.Render(pass, v.Entity(), n.opaqueDraws)
	if err == nil {
		stats.AlphaMask, err = phases.AlphaMask.Render(pass, v.Entity(), n.alphaMaskDraws)
	}
	pass.End()
	stats.PipelineSwitches = pass.PipelineSwitches()

	if err != nil {
		common.Logger().Error("prepass failed", "view", v.Entity(), "error", err)
		return stats, fmt.Errorf("prepass for view %d: %w", v.Entity(), err)
	}
	return stats, nil
}
