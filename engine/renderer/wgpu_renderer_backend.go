package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-prepass/common"
	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/Carmen-Shannon/oxy-prepass/engine/texture_cache"
	"github.com/cogentcore/webgpu/wgpu"
)

// errNoFrame is returned when a pass is begun or a frame ended outside BeginFrame/EndFrame.
var errNoFrame = errors.New("renderer: no frame is being recorded")

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	// instance and adapter are set only when the backend requested the device itself.
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	// Frame state. Passes begun within a frame are encoded into frameEncoder and submitted
	// together by EndFrame.
	frameEncoder *wgpu.CommandEncoder
	openPasses   int
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// NewWGPUBackend wraps an existing device and queue. Panics if either is nil.
//
// Parameters:
//   - device: the device textures and passes are created on
//   - queue: the queue frames are submitted to
//
// Returns:
//   - RendererBackend: the backend
func NewWGPUBackend(device *wgpu.Device, queue *wgpu.Queue) RendererBackend {
	if device == nil || queue == nil {
		panic("renderer: NewWGPUBackend requires a non-nil device and queue")
	}
	return &wgpuRendererBackendImpl{
		mu:     &sync.Mutex{},
		device: device,
		queue:  queue,
	}
}

// RequestBackend creates a WebGPU instance, requests an adapter and device and wraps them in a
// backend. The calling goroutine is locked to its OS thread.
//
// Parameters:
//   - options: functional options to configure the adapter and device request
//
// Returns:
//   - RendererBackend: the backend, owning the instance, adapter and device
//   - error: error if no adapter or device is available
func RequestBackend(options ...RendererBuilderOption) (RendererBackend, error) {
	req := &deviceRequest{label: "Prepass Device"}
	for _, opt := range options {
		opt(req)
	}

	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
	}
	if req.surfaceDescriptor != nil {
		b.surface = b.instance.CreateSurface(req.surfaceDescriptor)
	}

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: req.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	b.adapter = a

	limits := wgpu.DefaultLimits()
	if req.maxBindGroups > limits.MaxBindGroups {
		limits.MaxBindGroups = req.maxBindGroups
	}

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: req.label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	common.Logger().Info("webgpu device ready", "label", req.label, "fallback", req.forceFallbackAdapter)
	return b, nil
}

func (b *wgpuRendererBackendImpl) CreateTexture(desc texture_cache.TextureDescriptor) (texture_cache.GPUTexture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          desc.Size,
		MipLevelCount: 1,
		SampleCount:   max(desc.SampleCount, 1),
		Dimension:     wgpu.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return texture_cache.GPUTexture{}, fmt.Errorf("failed to create texture %q: %w", desc.Label, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return texture_cache.GPUTexture{}, fmt.Errorf("failed to create texture view %q: %w", desc.Label, err)
	}

	return texture_cache.GPUTexture{Texture: tex, View: view}, nil
}

func (b *wgpuRendererBackendImpl) ReleaseTexture(tex texture_cache.GPUTexture) {
	if tex.View != nil {
		tex.View.Release()
	}
	if tex.Texture != nil {
		tex.Texture.Release()
	}
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, usage wgpu.BufferUsage, data []byte) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(buf, offset, data)
}

func (b *wgpuRendererBackendImpl) CreateBufferBindGroup(label string, layout *wgpu.BindGroupLayout, buffers ...*wgpu.Buffer) (*wgpu.BindGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]wgpu.BindGroupEntry, len(buffers))
	for i, buf := range buffers {
		entries[i] = wgpu.BindGroupEntry{
			Binding: uint32(i),
			Buffer:  buf,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}
	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group %q: %w", label, err)
	}
	return group, nil
}

func (b *wgpuRendererBackendImpl) CreatePipelineLayout(label string, groups ...wgpu.BindGroupLayoutDescriptor) (*wgpu.PipelineLayout, []*wgpu.BindGroupLayout, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layouts := make([]*wgpu.BindGroupLayout, len(groups))
	for g := range groups {
		layout, err := b.device.CreateBindGroupLayout(&groups[g])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		layouts[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pipeline layout %q: %w", label, err)
	}
	return pipelineLayout, layouts, nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder != nil {
		return fmt.Errorf("previous frame not yet submitted")
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	b.frameEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) BeginRenderPass(desc PassDescriptor) (render_phase.PassEncoder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return nil, errNoFrame
	}

	colors := make([]wgpu.RenderPassColorAttachment, len(desc.ColorAttachments))
	for i, c := range desc.ColorAttachments {
		colors[i] = wgpu.RenderPassColorAttachment{
			View:       c.View,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: c.ClearValue,
		}
	}

	var depth *wgpu.RenderPassDepthStencilAttachment
	if desc.DepthView != nil {
		// Prepass depth is read by later passes, so it must be stored.
		depth = &wgpu.RenderPassDepthStencilAttachment{
			View:            desc.DepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: desc.DepthClearValue,
		}
	}

	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:                  desc.Label,
		ColorAttachments:       colors,
		DepthStencilAttachment: depth,
	})
	b.openPasses++
	return &wgpuPassEncoder{backend: b, pass: pass}, nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return errNoFrame
	}
	encoder := b.frameEncoder
	b.frameEncoder = nil
	defer encoder.Release()

	if b.openPasses != 0 {
		open := b.openPasses
		b.openPasses = 0
		return fmt.Errorf("frame ended with %d render passes still open", open)
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Release() {
	if b.instance == nil {
		return
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	b.instance.Release()
	b.instance = nil
}

// wgpuPassEncoder adapts *wgpu.RenderPassEncoder to render_phase.PassEncoder.
type wgpuPassEncoder struct {
	backend *wgpuRendererBackendImpl
	pass    *wgpu.RenderPassEncoder
	ended   bool
}

var _ render_phase.PassEncoder = &wgpuPassEncoder{}

func (e *wgpuPassEncoder) SetPipeline(p *wgpu.RenderPipeline) {
	e.pass.SetPipeline(p)
}

func (e *wgpuPassEncoder) SetBindGroup(index uint32, group *wgpu.BindGroup, dynamicOffsets []uint32) {
	e.pass.SetBindGroup(index, group, dynamicOffsets)
}

func (e *wgpuPassEncoder) SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset, size uint64) {
	e.pass.SetVertexBuffer(slot, buffer, offset, size)
}

func (e *wgpuPassEncoder) SetIndexBuffer(buffer *wgpu.Buffer, format wgpu.IndexFormat, offset, size uint64) {
	e.pass.SetIndexBuffer(buffer, format, offset, size)
}

func (e *wgpuPassEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	e.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (e *wgpuPassEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	e.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (e *wgpuPassEncoder) End() {
	if e.ended {
		return
	}
	e.ended = true
	e.pass.End()

	e.backend.mu.Lock()
	e.backend.openPasses--
	e.backend.mu.Unlock()
}
