package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-prepass/common"
	"github.com/Carmen-Shannon/oxy-prepass/engine/prepass"
	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/Carmen-Shannon/oxy-prepass/engine/renderer"
	"github.com/Carmen-Shannon/oxy-prepass/engine/texture_cache"
	"github.com/Carmen-Shannon/oxy-prepass/engine/view"
	"github.com/cogentcore/webgpu/wgpu"
)

type fakeAllocator struct{}

func (fakeAllocator) CreateTexture(texture_cache.TextureDescriptor) (texture_cache.GPUTexture, error) {
	return texture_cache.GPUTexture{Texture: &wgpu.Texture{}, View: &wgpu.TextureView{}}, nil
}

func (fakeAllocator) ReleaseTexture(texture_cache.GPUTexture) {}

type fakeCompiler struct{}

func (fakeCompiler) CompileRenderPipeline(renderer.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	return &wgpu.RenderPipeline{}, nil
}

type nopEncoder struct{}

func (nopEncoder) SetPipeline(*wgpu.RenderPipeline)                              {}
func (nopEncoder) SetBindGroup(uint32, *wgpu.BindGroup, []uint32)                {}
func (nopEncoder) SetVertexBuffer(uint32, *wgpu.Buffer, uint64, uint64)          {}
func (nopEncoder) SetIndexBuffer(*wgpu.Buffer, wgpu.IndexFormat, uint64, uint64) {}
func (nopEncoder) Draw(uint32, uint32, uint32, uint32)                           {}
func (nopEncoder) DrawIndexed(uint32, uint32, uint32, int32, uint32)             {}
func (nopEncoder) End()                                                          {}

// fakeBackend counts frames and passes.
type fakeBackend struct {
	begun, ended int
	passes       []renderer.PassDescriptor
}

func (b *fakeBackend) BeginFrame() error {
	b.begun++
	return nil
}

func (b *fakeBackend) EndFrame() error {
	b.ended++
	return nil
}

func (b *fakeBackend) BeginRenderPass(desc renderer.PassDescriptor) (render_phase.PassEncoder, error) {
	b.passes = append(b.passes, desc)
	return nopEncoder{}, nil
}

func newTestEngine(t *testing.T, options ...EngineBuilderOption) (Engine, *fakeBackend) {
	t.Helper()
	meshes := prepass.MeshMap{
		1: {VertexBuffer: &wgpu.Buffer{}, IndexBuffer: &wgpu.Buffer{}, IndexCount: 36},
		2: {VertexBuffer: &wgpu.Buffer{}, IndexBuffer: &wgpu.Buffer{}, IndexCount: 36},
	}
	groups := prepass.ViewBindGroupMap{10: &wgpu.BindGroup{}, 20: &wgpu.BindGroup{}}

	pipelines := renderer.NewPipelineCache(fakeCompiler{})
	p := prepass.NewPrepass(texture_cache.NewTextureCache(fakeAllocator{}), pipelines, meshes, groups, prepass.WithWorkers(2))
	t.Cleanup(p.Close)

	backend := &fakeBackend{}
	return NewEngine(backend, pipelines, p, options...), backend
}

func meshesAt(entities ...render_phase.EntityId) []prepass.PrepassMesh {
	meshes := make([]prepass.PrepassMesh, len(entities))
	for i, e := range entities {
		meshes[i] = prepass.PrepassMesh{Entity: e, AlphaMode: prepass.AlphaModeOpaque}
		common.Translation(meshes[i].Transform[:], 0, 0, -float32(i+1))
	}
	return meshes
}

func TestRenderFrame(t *testing.T) {
	eng, backend := newTestEngine(t,
		WithView(view.NewView(20, view.NewImageTarget(64, 64), view.WithComponents(prepass.NormalPrepass{}))),
		WithView(view.NewView(10, view.NewImageTarget(128, 128), view.WithComponents(prepass.DepthPrepass{}))),
		WithFallbackDepth(&wgpu.TextureView{}),
		WithExtract(func(view.View) []prepass.PrepassMesh { return meshesAt(1, 2) }),
	)

	for frame := 0; frame < 2; frame++ {
		stats, err := eng.RenderFrame(context.Background())
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", frame, err)
		}
		if stats.Views != 2 || stats.OpaqueItems != 4 || stats.Drawn != 4 || stats.Textures != 2 {
			t.Errorf("frame %d: unexpected stats %+v", frame, stats)
		}
	}
	if backend.begun != 2 || backend.ended != 2 {
		t.Errorf("expected 2 frames begun and ended, got %d and %d", backend.begun, backend.ended)
	}
	if len(backend.passes) != 4 {
		t.Fatalf("expected 4 passes, got %d", len(backend.passes))
	}
	// Views render in entity order: the depth view first, then the normal-only view.
	if len(backend.passes[0].ColorAttachments) != 0 || len(backend.passes[1].ColorAttachments) != 1 {
		t.Error("expected views rendered in ascending entity order")
	}
}

func TestRenderFrameFailingViewDoesNotStopOthers(t *testing.T) {
	eng, backend := newTestEngine(t,
		WithView(view.NewView(10, view.NewImageTarget(64, 64), view.WithComponents(prepass.DepthPrepass{}))),
		WithView(view.NewView(20, view.NewImageTarget(64, 64), view.WithComponents(prepass.NormalPrepass{}))),
		WithExtract(func(view.View) []prepass.PrepassMesh { return meshesAt(1) }),
	)

	stats, err := eng.RenderFrame(context.Background())
	if !errors.Is(err, prepass.ErrMissingPrepassTexture) {
		t.Fatalf("expected ErrMissingPrepassTexture, got %v", err)
	}
	if stats.Drawn != 1 || len(backend.passes) != 1 {
		t.Errorf("expected the depth view to render, got %+v with %d passes", stats, len(backend.passes))
	}
	if backend.ended != 1 {
		t.Error("expected the frame to be submitted")
	}
}

func TestViews(t *testing.T) {
	eng, _ := newTestEngine(t)
	for _, e := range []render_phase.EntityId{3, 1, 2} {
		eng.AddView(view.NewView(e, view.NewImageTarget(8, 8)))
	}
	eng.RemoveView(2)

	views := eng.Views()
	if len(views) != 2 || views[0].Entity() != 1 || views[1].Entity() != 3 {
		t.Errorf("expected views [1 3], got %d views", len(views))
	}
}

func TestRunWithoutWindowStopsOnQuit(t *testing.T) {
	eng, backend := newTestEngine(t)
	frames := 0
	eng.SetRenderCallback(func(float32) {
		frames++
		if frames == 3 {
			eng.Quit()
		}
	})

	eng.Run()
	if backend.begun < 3 {
		t.Errorf("expected at least 3 frames, got %d", backend.begun)
	}
	eng.Quit()
}

func TestNewEnginePanicsOnNilCollaborator(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	NewEngine(&fakeBackend{}, nil, nil)
}
