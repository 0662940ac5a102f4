package render_phase

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

// testItem is a minimal SortablePhaseItem used across the package tests.
type testItem struct {
	distance float32
	entity   EntityId
	pipeline CachedRenderPipelineId
	draw     DrawFunctionId
}

func (i testItem) SortKey() SortKey                       { return NewSortKey(i.distance) }
func (i testItem) DrawFunction() DrawFunctionId           { return i.draw }
func (i testItem) Entity() EntityId                       { return i.entity }
func (i testItem) CachedPipeline() CachedRenderPipelineId { return i.pipeline }
func (testItem) SortAll(items []testItem) {
	RadixSortByKey(items, func(i testItem) float32 { return i.distance })
}

// fakeEncoder records every call that reaches the GPU pass.
type fakeEncoder struct {
	pipelines  []*wgpu.RenderPipeline
	bindGroups []uint32
	indexed    []uint32
	draws      int
	ended      bool
}

func (f *fakeEncoder) SetPipeline(p *wgpu.RenderPipeline) { f.pipelines = append(f.pipelines, p) }
func (f *fakeEncoder) SetBindGroup(index uint32, _ *wgpu.BindGroup, _ []uint32) {
	f.bindGroups = append(f.bindGroups, index)
}
func (f *fakeEncoder) SetVertexBuffer(uint32, *wgpu.Buffer, uint64, uint64)          {}
func (f *fakeEncoder) SetIndexBuffer(*wgpu.Buffer, wgpu.IndexFormat, uint64, uint64) {}
func (f *fakeEncoder) Draw(uint32, uint32, uint32, uint32)                           { f.draws++ }
func (f *fakeEncoder) DrawIndexed(indexCount, _, _ uint32, _ int32, _ uint32) {
	f.indexed = append(f.indexed, indexCount)
}
func (f *fakeEncoder) End() { f.ended = true }

// fakePipelines resolves every id in ready to its own pipeline object.
type fakePipelines map[CachedRenderPipelineId]*wgpu.RenderPipeline

func (f fakePipelines) RenderPipeline(id CachedRenderPipelineId) (*wgpu.RenderPipeline, bool) {
	p, ok := f[id]
	return p, ok
}

func entities(items []testItem) []EntityId {
	out := make([]EntityId, len(items))
	for i, item := range items {
		out[i] = item.entity
	}
	return out
}

func TestRenderPhaseSortFrontToBack(t *testing.T) {
	phase := NewRenderPhase[testItem](4)
	phase.Add(testItem{distance: 5, entity: 5})
	phase.Add(testItem{distance: 1, entity: 1})
	phase.Add(testItem{distance: 3, entity: 3})
	phase.Sort()

	got := entities(phase.Items())
	want := []EntityId{1, 3, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRenderPhaseClearKeepsCapacity(t *testing.T) {
	phase := NewRenderPhase[testItem](0)
	for i := range 10 {
		phase.Add(testItem{distance: float32(i)})
	}
	capBefore := cap(phase.Items())
	phase.Clear()
	if phase.Len() != 0 {
		t.Errorf("expected empty phase, got %d items", phase.Len())
	}
	if cap(phase.Items()) != capBefore {
		t.Errorf("expected capacity %d to be kept, got %d", capBefore, cap(phase.Items()))
	}
}

func TestRenderPhaseRenderInSortedOrder(t *testing.T) {
	draws := NewDrawFunctions[testItem]()
	pipelineA, pipelineB := &wgpu.RenderPipeline{}, &wgpu.RenderPipeline{}
	pipelines := fakePipelines{1: pipelineA, 2: pipelineB}

	var order []EntityId
	id := draws.Add("test", DrawFunc[testItem](func(pass *TrackedRenderPass, _ EntityId, item testItem) error {
		if err := SetItemPipeline(pass, pipelines, item); err != nil {
			return err
		}
		order = append(order, item.entity)
		pass.DrawIndexed(uint32(item.entity), 1, 0, 0, 0)
		return nil
	}))

	phase := NewRenderPhase[testItem](4)
	phase.Add(testItem{distance: 9, entity: 30, pipeline: 2, draw: id})
	phase.Add(testItem{distance: 2, entity: 10, pipeline: 1, draw: id})
	phase.Add(testItem{distance: 4, entity: 20, pipeline: 1, draw: id})
	phase.Add(testItem{distance: 1, entity: 40, pipeline: 7, draw: id}) // not compiled
	phase.Sort()

	enc := &fakeEncoder{}
	pass := NewTrackedRenderPass(enc)
	stats, err := phase.Render(pass, 99, draws)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Drawn != 3 || stats.Skipped != 1 {
		t.Errorf("expected 3 drawn and 1 skipped, got %+v", stats)
	}

	want := []EntityId{10, 20, 30}
	if len(order) != len(want) {
		t.Fatalf("expected draw order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected draw order %v, got %v", want, order)
		}
	}

	// Items 10 and 20 share a pipeline, so only two binds reach the encoder.
	if len(enc.pipelines) != 2 || pass.PipelineSwitches() != 2 {
		t.Errorf("expected 2 pipeline binds, got %d", len(enc.pipelines))
	}
	if pass.Draws() != 3 {
		t.Errorf("expected 3 draws, got %d", pass.Draws())
	}
}

func TestRenderPhaseUnknownDrawFunction(t *testing.T) {
	phase := NewRenderPhase[testItem](1)
	phase.Add(testItem{entity: 1, draw: 3})

	_, err := phase.Render(NewTrackedRenderPass(&fakeEncoder{}), 0, NewDrawFunctions[testItem]())
	if !errors.Is(err, ErrDrawFunctionNotFound) {
		t.Errorf("expected ErrDrawFunctionNotFound, got %v", err)
	}
}

func TestRenderPhaseDrawErrorStops(t *testing.T) {
	boom := errors.New("boom")
	draws := NewDrawFunctions[testItem]()
	calls := 0
	id := draws.Add("fail", DrawFunc[testItem](func(*TrackedRenderPass, EntityId, testItem) error {
		calls++
		return boom
	}))

	phase := NewRenderPhase[testItem](2)
	phase.Add(testItem{entity: 1, draw: id})
	phase.Add(testItem{entity: 2, draw: id})

	_, err := phase.Render(NewTrackedRenderPass(&fakeEncoder{}), 0, draws)
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped draw error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected the phase to stop after the first error, got %d calls", calls)
	}
}

func TestDrawFunctionsRegistry(t *testing.T) {
	draws := NewDrawFunctions[testItem]()
	noop := DrawFunc[testItem](func(*TrackedRenderPass, EntityId, testItem) error { return nil })

	a := draws.Add("a", noop)
	b := draws.Add("b", noop)
	if a == b {
		t.Fatal("expected distinct handles for distinct names")
	}
	if again := draws.Add("a", noop); again != a {
		t.Errorf("expected re-registering to return %d, got %d", a, again)
	}
	if id, ok := draws.Id("b"); !ok || id != b {
		t.Errorf("expected Id(b) = %d, got %d (%v)", b, id, ok)
	}
	if _, ok := draws.Id("missing"); ok {
		t.Error("expected missing name to be absent")
	}
	if draws.Len() != 2 {
		t.Errorf("expected 2 draw functions, got %d", draws.Len())
	}
	if _, err := draws.Get(b); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTrackedRenderPassDedupesBindGroups(t *testing.T) {
	enc := &fakeEncoder{}
	pass := NewTrackedRenderPass(enc)
	group := &wgpu.BindGroup{}

	pass.SetBindGroup(0, group, nil)
	pass.SetBindGroup(0, group, nil)
	pass.SetBindGroup(0, group, []uint32{256})
	pass.SetBindGroup(1, group, nil)

	if len(enc.bindGroups) != 3 {
		t.Errorf("expected 3 bind group calls, got %d", len(enc.bindGroups))
	}

	pass.End()
	if !enc.ended {
		t.Error("expected End to reach the encoder")
	}
}
