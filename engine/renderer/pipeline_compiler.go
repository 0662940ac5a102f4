package renderer

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderSource is the WGSL source and vertex input layout a pipeline is built from.
type ShaderSource struct {
	Code               string
	VertexEntryPoint   string
	FragmentEntryPoint string
	VertexBuffers      []wgpu.VertexBufferLayout

	// Layout is shared by every pipeline built from this source, so bind groups created
	// against its layouts can be bound with any variant. Nil derives a layout per pipeline.
	Layout *wgpu.PipelineLayout
}

// wgpuPipelineCompiler is the WebGPU implementation of PipelineCompiler.
type wgpuPipelineCompiler struct {
	mu      *sync.Mutex
	device  *wgpu.Device
	sources map[string]ShaderSource
	modules map[string]*wgpu.ShaderModule
}

var _ PipelineCompiler = &wgpuPipelineCompiler{}

// NewWGPUPipelineCompiler creates a compiler that builds pipelines on device from the given
// shader sources, keyed by RenderPipelineDescriptor.ShaderKey. Shader modules are created once
// per key.
//
// Parameters:
//   - device: the device pipelines are created on
//   - sources: shader sources by key
//
// Returns:
//   - PipelineCompiler: the compiler
func NewWGPUPipelineCompiler(device *wgpu.Device, sources map[string]ShaderSource) PipelineCompiler {
	return &wgpuPipelineCompiler{
		mu:      &sync.Mutex{},
		device:  device,
		sources: sources,
		modules: make(map[string]*wgpu.ShaderModule),
	}
}

func (c *wgpuPipelineCompiler) CompileRenderPipeline(desc RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, ok := c.sources[desc.ShaderKey]
	if !ok {
		return nil, fmt.Errorf("no shader source registered for key %q", desc.ShaderKey)
	}
	if desc.HasFragment() && src.FragmentEntryPoint == "" {
		return nil, fmt.Errorf("shader %q has no fragment entry point", desc.ShaderKey)
	}

	module, ok := c.modules[desc.ShaderKey]
	if !ok {
		var err error
		module, err = c.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label: desc.ShaderKey,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: src.Code,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create shader module %q: %w", desc.ShaderKey, err)
		}
		c.modules[desc.ShaderKey] = module
	}

	// Depth-only pipelines without alpha masking run no fragment stage at all.
	var fragment *wgpu.FragmentState
	if desc.HasFragment() {
		fragment = &wgpu.FragmentState{
			Module:     module,
			EntryPoint: src.FragmentEntryPoint,
		}
		if desc.ColorFormat != wgpu.TextureFormatUndefined {
			fragment.Targets = []wgpu.ColorTargetState{{
				Format:    desc.ColorFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}}
		}
	}

	created, err := c.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: src.Layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: src.VertexEntryPoint,
			Buffers:    src.VertexBuffers,
		},
		Fragment: fragment,
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  desc.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: max(desc.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            desc.DepthFormat,
			DepthWriteEnabled: desc.DepthWriteEnabled,
			DepthCompare:      desc.DepthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
