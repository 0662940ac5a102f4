package render_phase

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrSkipItem is returned by a draw function when an item cannot be drawn this frame but the
// phase should continue, e.g. because its pipeline has not finished compiling.
var ErrSkipItem = errors.New("render_phase: item skipped")

// PassEncoder is the subset of a GPU render pass that draw functions encode into.
// The WebGPU backend adapts *wgpu.RenderPassEncoder to it.
type PassEncoder interface {
	SetPipeline(p *wgpu.RenderPipeline)
	SetBindGroup(index uint32, group *wgpu.BindGroup, dynamicOffsets []uint32)
	SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset, size uint64)
	SetIndexBuffer(buffer *wgpu.Buffer, format wgpu.IndexFormat, offset, size uint64)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	End()
}

// PipelineLookup resolves cached pipeline handles to compiled pipelines.
type PipelineLookup interface {
	// RenderPipeline returns the compiled pipeline for id, or false if it is not ready.
	RenderPipeline(id CachedRenderPipelineId) (*wgpu.RenderPipeline, bool)
}

// boundGroup is the state last set on a bind group slot.
type boundGroup struct {
	group   *wgpu.BindGroup
	offsets []uint32
}

// TrackedRenderPass wraps a PassEncoder and drops state changes that would not change the
// bound state. Consecutive items sharing a pipeline therefore cost one pipeline bind, which is
// what makes the front-to-back sort of a phase cheap to draw.
type TrackedRenderPass struct {
	encoder PassEncoder

	pipeline   *wgpu.RenderPipeline
	bindGroups map[uint32]boundGroup

	pipelineSwitches int
	draws            int
}

// NewTrackedRenderPass wraps the given encoder.
//
// Parameters:
//   - encoder: the pass being encoded
//
// Returns:
//   - *TrackedRenderPass: the tracked pass
func NewTrackedRenderPass(encoder PassEncoder) *TrackedRenderPass {
	return &TrackedRenderPass{
		encoder:    encoder,
		bindGroups: make(map[uint32]boundGroup),
	}
}

// SetRenderPipeline binds p unless it is already bound.
func (t *TrackedRenderPass) SetRenderPipeline(p *wgpu.RenderPipeline) {
	if t.pipeline == p {
		return
	}
	t.encoder.SetPipeline(p)
	t.pipeline = p
	t.pipelineSwitches++
}

// SetBindGroup binds group at index unless the same group with the same dynamic offsets is
// already bound there.
func (t *TrackedRenderPass) SetBindGroup(index uint32, group *wgpu.BindGroup, dynamicOffsets []uint32) {
	if bound, ok := t.bindGroups[index]; ok && bound.group == group && equalOffsets(bound.offsets, dynamicOffsets) {
		return
	}
	t.encoder.SetBindGroup(index, group, dynamicOffsets)
	t.bindGroups[index] = boundGroup{group: group, offsets: append([]uint32(nil), dynamicOffsets...)}
}

// SetVertexBuffer binds a vertex buffer slot.
func (t *TrackedRenderPass) SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset, size uint64) {
	t.encoder.SetVertexBuffer(slot, buffer, offset, size)
}

// SetIndexBuffer binds the index buffer.
func (t *TrackedRenderPass) SetIndexBuffer(buffer *wgpu.Buffer, format wgpu.IndexFormat, offset, size uint64) {
	t.encoder.SetIndexBuffer(buffer, format, offset, size)
}

// Draw encodes a non-indexed draw.
func (t *TrackedRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	t.encoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
	t.draws++
}

// DrawIndexed encodes an indexed draw.
func (t *TrackedRenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	t.encoder.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
	t.draws++
}

// End ends the underlying pass. The tracked pass must not be used afterwards.
func (t *TrackedRenderPass) End() {
	t.encoder.End()
	t.pipeline = nil
	clear(t.bindGroups)
}

// PipelineSwitches returns how many pipeline binds reached the encoder.
func (t *TrackedRenderPass) PipelineSwitches() int {
	return t.pipelineSwitches
}

// Draws returns how many draws were encoded.
func (t *TrackedRenderPass) Draws() int {
	return t.draws
}

// SetItemPipeline binds the compiled pipeline of item on pass.
// Returns ErrSkipItem when the pipeline is not compiled yet so the phase moves on.
//
// Parameters:
//   - pass: the tracked pass
//   - pipelines: resolves the item's cached pipeline handle
//   - item: the item being drawn
//
// Returns:
//   - error: ErrSkipItem if the pipeline is not available, nil otherwise
func SetItemPipeline[I CachedRenderPipelinePhaseItem](pass *TrackedRenderPass, pipelines PipelineLookup, item I) error {
	p, ok := pipelines.RenderPipeline(item.CachedPipeline())
	if !ok {
		return ErrSkipItem
	}
	pass.SetRenderPipeline(p)
	return nil
}

func equalOffsets(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
