package prepass

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-prepass/common"
	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/Carmen-Shannon/oxy-prepass/engine/renderer"
	"github.com/Carmen-Shannon/oxy-prepass/engine/texture_cache"
	"github.com/Carmen-Shannon/oxy-prepass/engine/view"
	"github.com/cogentcore/webgpu/wgpu"
)

var errOutOfMemory = errors.New("out of memory")

// fakeAllocator hands out distinct placeholder views and can fail for one format.
type fakeAllocator struct {
	mu         sync.Mutex
	created    []texture_cache.TextureDescriptor
	released   int
	failFormat wgpu.TextureFormat
}

func (a *fakeAllocator) CreateTexture(desc texture_cache.TextureDescriptor) (texture_cache.GPUTexture, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failFormat != wgpu.TextureFormatUndefined && desc.Format == a.failFormat {
		return texture_cache.GPUTexture{}, errOutOfMemory
	}
	a.created = append(a.created, desc)
	return texture_cache.GPUTexture{Texture: &wgpu.Texture{}, View: &wgpu.TextureView{}}, nil
}

func (a *fakeAllocator) ReleaseTexture(texture_cache.GPUTexture) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.released++
}

func (a *fakeAllocator) createdCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.created)
}

// fakeCompiler compiles every descriptor into a placeholder pipeline.
type fakeCompiler struct{}

func (fakeCompiler) CompileRenderPipeline(renderer.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	return &wgpu.RenderPipeline{}, nil
}

// fakeEncoder records draws. DrawIndexed index counts identify the drawn entity.
type fakeEncoder struct {
	pipelines []*wgpu.RenderPipeline
	drawn     []uint32
	ended     bool
}

func (e *fakeEncoder) SetPipeline(p *wgpu.RenderPipeline)                            { e.pipelines = append(e.pipelines, p) }
func (e *fakeEncoder) SetBindGroup(uint32, *wgpu.BindGroup, []uint32)                {}
func (e *fakeEncoder) SetVertexBuffer(uint32, *wgpu.Buffer, uint64, uint64)          {}
func (e *fakeEncoder) SetIndexBuffer(*wgpu.Buffer, wgpu.IndexFormat, uint64, uint64) {}
func (e *fakeEncoder) Draw(vertexCount, _, _, _ uint32)                              { e.drawn = append(e.drawn, vertexCount) }
func (e *fakeEncoder) DrawIndexed(indexCount, _, _ uint32, _ int32, _ uint32) {
	e.drawn = append(e.drawn, indexCount)
}
func (e *fakeEncoder) End() { e.ended = true }

// fakeBeginner records pass descriptors.
type fakeBeginner struct {
	mu       sync.Mutex
	passes   []renderer.PassDescriptor
	encoders []*fakeEncoder
	fail     error
}

func (b *fakeBeginner) BeginRenderPass(desc renderer.PassDescriptor) (render_phase.PassEncoder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return nil, b.fail
	}
	enc := &fakeEncoder{}
	b.passes = append(b.passes, desc)
	b.encoders = append(b.encoders, enc)
	return enc, nil
}

// newTestView creates a view at the origin looking down -Z, so a mesh at z = -d has distance d.
func newTestView(entity render_phase.EntityId, width, height uint32, markers ...any) view.View {
	return view.NewView(entity, view.NewImageTarget(width, height), view.WithComponents(markers...))
}

// meshAt builds a mesh d units in front of a test view.
func meshAt(entity render_phase.EntityId, d float32, mode AlphaMode) PrepassMesh {
	m := PrepassMesh{Entity: entity, AlphaMode: mode}
	common.Translation(m.Transform[:], 0, 0, -d)
	return m
}

// meshesFor returns GPU meshes whose index count equals the entity id.
func meshesFor(entities ...render_phase.EntityId) MeshMap {
	meshes := make(MeshMap, len(entities))
	for _, e := range entities {
		meshes[e] = GPUMesh{
			VertexBuffer: &wgpu.Buffer{},
			IndexBuffer:  &wgpu.Buffer{},
			IndexCount:   uint32(e),
		}
	}
	return meshes
}

func viewGroupsFor(views ...render_phase.EntityId) ViewBindGroupMap {
	groups := make(ViewBindGroupMap, len(views))
	for _, v := range views {
		groups[v] = &wgpu.BindGroup{}
	}
	return groups
}

func opaqueEntities(items []Opaque3dPrepass) []render_phase.EntityId {
	out := make([]render_phase.EntityId, len(items))
	for i, item := range items {
		out[i] = item.EntityId
	}
	return out
}

func alphaMaskEntities(items []AlphaMask3dPrepass) []render_phase.EntityId {
	out := make([]render_phase.EntityId, len(items))
	for i, item := range items {
		out[i] = item.EntityId
	}
	return out
}
