package prepass

import (
	"errors"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/Carmen-Shannon/oxy-prepass/engine/renderer"
	"github.com/Carmen-Shannon/oxy-prepass/engine/texture_cache"
	"github.com/Carmen-Shannon/oxy-prepass/engine/view"
	"github.com/cogentcore/webgpu/wgpu"
)

// nodeFixture wires a node to fakes for one view.
type nodeFixture struct {
	node      *Node
	cache     texture_cache.TextureCache
	pipelines renderer.PipelineCache
	drawIds   DrawFunctionIds
	beginner  *fakeBeginner
	phases    *ViewPhases
}

func newNodeFixture(meshes MeshMap) *nodeFixture {
	pipelines := renderer.NewPipelineCache(fakeCompiler{})
	groups := viewGroupsFor(1)

	opaque := render_phase.NewDrawFunctions[Opaque3dPrepass]()
	mask := render_phase.NewDrawFunctions[AlphaMask3dPrepass]()
	ids := DrawFunctionIds{
		Opaque:    opaque.Add(drawPrepassName, NewDrawPrepass[Opaque3dPrepass](pipelines, meshes, groups)),
		AlphaMask: mask.Add(drawPrepassName, NewDrawPrepass[AlphaMask3dPrepass](pipelines, meshes, groups)),
	}
	return &nodeFixture{
		node:      NewNode(opaque, mask, DefaultDepthClearValue),
		cache:     texture_cache.NewTextureCache(&fakeAllocator{}),
		pipelines: pipelines,
		drawIds:   ids,
		beginner:  &fakeBeginner{},
		phases:    NewViewPhases(8),
	}
}

func (f *nodeFixture) queue(v view.View, meshes ...PrepassMesh) {
	QueueMeshes(v, meshes, f.phases, NewPrepassPipelines(f.pipelines, DefaultShaderKey, DefaultDepthClearValue), f.drawIds)
	f.phases.Sort()
}

func (f *nodeFixture) textures(t *testing.T, v view.View) ViewPrepassTextures {
	t.Helper()
	textures, err := PrepareViewTextures(v, f.cache)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return textures
}

func TestNodeRunDrawsOpaqueThenMaskFrontToBack(t *testing.T) {
	f := newNodeFixture(meshesFor(1, 2, 3, 4, 5))
	v := newTestView(1, 800, 600, DepthPrepass{})
	f.queue(v,
		meshAt(5, 5, AlphaModeOpaque),
		meshAt(1, 1, AlphaModeOpaque),
		meshAt(4, 0.5, AlphaModeMask),
		meshAt(3, 3, AlphaModeOpaque),
		meshAt(2, 0.2, AlphaModeMask),
	)
	f.pipelines.ProcessQueue()
	textures := f.textures(t, v)

	stats, err := f.node.Run(f.beginner, v, textures, f.phases, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stats.Ran || stats.Opaque.Drawn != 3 || stats.AlphaMask.Drawn != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.PipelineSwitches != 2 {
		t.Errorf("expected 2 pipeline switches, got %d", stats.PipelineSwitches)
	}

	if len(f.beginner.passes) != 1 {
		t.Fatalf("expected 1 render pass, got %d", len(f.beginner.passes))
	}
	pass := f.beginner.passes[0]
	if pass.DepthView != textures.DepthView() {
		t.Error("expected the prepass depth texture as depth attachment")
	}
	if pass.DepthClearValue != DefaultDepthClearValue {
		t.Errorf("expected depth clear %v, got %v", DefaultDepthClearValue, pass.DepthClearValue)
	}
	if len(pass.ColorAttachments) != 0 {
		t.Errorf("expected no color attachments, got %d", len(pass.ColorAttachments))
	}

	enc := f.beginner.encoders[0]
	if want := []uint32{1, 3, 5, 2, 4}; !slices.Equal(enc.drawn, want) {
		t.Errorf("expected draw order %v, got %v", want, enc.drawn)
	}
	if !enc.ended {
		t.Error("expected the pass to be ended")
	}
}

func TestNodeRunNormalOnlyUsesFallbackDepth(t *testing.T) {
	f := newNodeFixture(meshesFor(1))
	v := newTestView(1, 800, 600, NormalPrepass{})
	f.queue(v, meshAt(1, 1, AlphaModeOpaque))
	f.pipelines.ProcessQueue()
	textures := f.textures(t, v)

	fallback := &wgpu.TextureView{}
	if _, err := f.node.Run(f.beginner, v, textures, f.phases, fallback); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pass := f.beginner.passes[0]
	if pass.DepthView != fallback {
		t.Error("expected the fallback depth view as depth attachment")
	}
	if len(pass.ColorAttachments) != 1 || pass.ColorAttachments[0].View != textures.NormalView() {
		t.Errorf("expected the normal texture as the only color attachment, got %+v", pass.ColorAttachments)
	}
	if pass.ColorAttachments[0].ClearValue != (wgpu.Color{}) {
		t.Errorf("expected normals cleared to zero, got %+v", pass.ColorAttachments[0].ClearValue)
	}
}

func TestNodeRunNormalOnlyWithoutFallback(t *testing.T) {
	f := newNodeFixture(meshesFor())
	v := newTestView(1, 800, 600, NormalPrepass{})
	textures := f.textures(t, v)

	_, err := f.node.Run(f.beginner, v, textures, f.phases, nil)
	if !errors.Is(err, ErrMissingPrepassTexture) {
		t.Errorf("expected ErrMissingPrepassTexture, got %v", err)
	}
	if len(f.beginner.passes) != 0 {
		t.Error("expected no render pass")
	}
}

func TestNodeRunMissingRequiredTexture(t *testing.T) {
	f := newNodeFixture(meshesFor())
	v := newTestView(1, 800, 600, DepthPrepass{})

	_, err := f.node.Run(f.beginner, v, ViewPrepassTextures{}, f.phases, &wgpu.TextureView{})
	if !errors.Is(err, ErrMissingPrepassTexture) {
		t.Errorf("expected ErrMissingPrepassTexture, got %v", err)
	}
}

func TestNodeRunNoOp(t *testing.T) {
	tests := []struct {
		name string
		v    view.View
	}{
		{"no markers", newTestView(1, 800, 600)},
		{"zero width", newTestView(1, 0, 600, DepthPrepass{})},
		{"zero height", newTestView(1, 800, 0, DepthPrepass{}, NormalPrepass{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newNodeFixture(meshesFor())
			stats, err := f.node.Run(f.beginner, tt.v, ViewPrepassTextures{}, f.phases, nil)
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
			if stats.Ran || len(f.beginner.passes) != 0 {
				t.Error("expected no render pass")
			}
		})
	}
}

// zeroLayerView reports an extent with no array layers.
type zeroLayerView struct {
	view.View
}

func (zeroLayerView) Extent() wgpu.Extent3D {
	return wgpu.Extent3D{Width: 800, Height: 600}
}

func TestNodeRunZeroLayerExtent(t *testing.T) {
	f := newNodeFixture(meshesFor(1))
	v := zeroLayerView{newTestView(1, 800, 600, DepthPrepass{}, NormalPrepass{})}
	textures := f.textures(t, v)
	if textures.Depth != nil || textures.Normal != nil {
		t.Fatalf("expected no textures for a zero-layer extent, got %+v", textures)
	}

	stats, err := f.node.Run(f.beginner, v, textures, f.phases, nil)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if stats.Ran || len(f.beginner.passes) != 0 {
		t.Error("expected no render pass")
	}
}

func TestNodeRunSkipsUncompiledAndMissingMeshes(t *testing.T) {
	f := newNodeFixture(meshesFor(1))
	v := newTestView(1, 800, 600, DepthPrepass{})
	f.queue(v, meshAt(1, 1, AlphaModeOpaque), meshAt(2, 2, AlphaModeOpaque))
	textures := f.textures(t, v)

	// Pipelines are still queued: everything is skipped.
	stats, err := f.node.Run(f.beginner, v, textures, f.phases, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Opaque.Skipped != 2 || stats.Opaque.Drawn != 0 {
		t.Errorf("expected 2 skipped, got %+v", stats.Opaque)
	}

	// Entity 2 has no GPU mesh.
	f.pipelines.ProcessQueue()
	stats, err = f.node.Run(f.beginner, v, textures, f.phases, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Opaque.Drawn != 1 || stats.Opaque.Skipped != 1 {
		t.Errorf("expected 1 drawn and 1 skipped, got %+v", stats.Opaque)
	}
}

func TestNodeRunBeginFailure(t *testing.T) {
	f := newNodeFixture(meshesFor())
	f.beginner.fail = errors.New("device lost")
	v := newTestView(1, 800, 600, DepthPrepass{})

	if _, err := f.node.Run(f.beginner, v, f.textures(t, v), f.phases, nil); err == nil {
		t.Error("expected an error when the pass cannot begin")
	}
}

func TestNodeRunPanicsOnTextureForDisabledPrepass(t *testing.T) {
	f := newNodeFixture(meshesFor())
	textures := f.textures(t, newTestView(1, 800, 600, DepthPrepass{}, NormalPrepass{}))

	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	f.node.Run(f.beginner, newTestView(1, 800, 600, DepthPrepass{}), textures, f.phases, nil)
}
