package renderer

import (
	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/Carmen-Shannon/oxy-prepass/engine/texture_cache"
	"github.com/cogentcore/webgpu/wgpu"
)

// ColorAttachment is a color target of a render pass. The attachment is cleared to ClearValue
// and stored at the end of the pass.
type ColorAttachment struct {
	View       *wgpu.TextureView
	ClearValue wgpu.Color
}

// PassDescriptor describes a render pass to begin.
type PassDescriptor struct {
	Label            string
	ColorAttachments []ColorAttachment

	// DepthView is the depth attachment, cleared to DepthClearValue and stored. Nil for none.
	DepthView       *wgpu.TextureView
	DepthClearValue float32
}

// PassBeginner begins render passes within the current frame.
type PassBeginner interface {
	// BeginRenderPass begins a pass on the current frame's command encoder.
	//
	// Parameters:
	//   - desc: the attachments of the pass
	//
	// Returns:
	//   - render_phase.PassEncoder: the pass to encode draws into; End must be called on it
	//   - error: error if no frame is being recorded
	BeginRenderPass(desc PassDescriptor) (render_phase.PassEncoder, error)
}

// BufferAllocator creates the buffers and bind groups meshes and views are drawn with.
type BufferAllocator interface {
	// CreateBuffer creates a buffer initialized with data. CopyDst is always added to usage so
	// the buffer can be rewritten with WriteBuffer.
	//
	// Parameters:
	//   - label: debug label
	//   - usage: buffer usage flags
	//   - data: initial contents, its length is the buffer size
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer
	//   - error: error if the buffer cannot be created
	CreateBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error)

	// WriteBuffer writes data into buf at offset on the queue.
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte)

	// CreateBufferBindGroup creates a bind group binding each buffer whole at the binding
	// matching its index.
	//
	// Parameters:
	//   - label: debug label
	//   - layout: the bind group layout
	//   - buffers: the buffers for bindings 0..n-1
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group
	//   - error: error if the bind group cannot be created
	CreateBufferBindGroup(label string, layout *wgpu.BindGroupLayout, buffers ...*wgpu.Buffer) (*wgpu.BindGroup, error)
}

// RendererBackend is the GPU backend render phases are recorded with.
type RendererBackend interface {
	texture_cache.Allocator
	BufferAllocator
	PassBeginner

	// CreatePipelineLayout creates one bind group layout per descriptor, in group order, and a
	// pipeline layout over them.
	//
	// Parameters:
	//   - label: debug label
	//   - groups: bind group layout descriptors for groups 0..n-1
	//
	// Returns:
	//   - *wgpu.PipelineLayout: the pipeline layout
	//   - []*wgpu.BindGroupLayout: the bind group layouts
	//   - error: error if a layout cannot be created
	CreatePipelineLayout(label string, groups ...wgpu.BindGroupLayoutDescriptor) (*wgpu.PipelineLayout, []*wgpu.BindGroupLayout, error)

	// BeginFrame starts recording a frame's command buffer.
	//
	// Returns:
	//   - error: error if a frame is already being recorded or the encoder cannot be created
	BeginFrame() error

	// EndFrame finishes the frame's command buffer and submits it to the queue.
	//
	// Returns:
	//   - error: error if no frame is being recorded or encoding failed
	EndFrame() error

	// Device returns the underlying device.
	Device() *wgpu.Device

	// Queue returns the queue frames are submitted to.
	Queue() *wgpu.Queue

	// Release releases the instance, adapter and device if the backend created them.
	Release()
}
