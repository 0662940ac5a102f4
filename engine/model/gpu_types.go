package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-prepass/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// PrepassShaderSource is the WGSL prepass shader for static meshes. Its vertex input matches
// GPUVertex, group 0 holds GPUViewData and group 1 holds GPUMeshData.
//
//go:embed assets/prepass.wgsl
var PrepassShaderSource string

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Size: 32 bytes, no padding required.
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal (12 bytes)
	TexCoord [2]float32 // offset 24: UV texture coordinate (8 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 32)
	putFloats(buf[0:], g.Position[:])
	putFloats(buf[12:], g.Normal[:])
	putFloats(buf[24:], g.TexCoord[:])
	return buf
}

// GPUVertexLayout returns the vertex buffer layout matching GPUVertex.
//
// Returns:
//   - wgpu.VertexBufferLayout: the layout for shader locations 0 (position), 1 (normal) and 2 (uv)
func GPUVertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: 32,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
		},
	}
}

// ComputeBoundingRadius returns the maximum distance from the origin across all vertex positions.
//
// Parameters:
//   - vertices: the vertex data to compute the bounding radius from
//
// Returns:
//   - float32: the maximum distance from the origin
func ComputeBoundingRadius(vertices []GPUVertex) float32 {
	var maxDistSq float32
	for _, v := range vertices {
		p := v.Position
		distSq := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
		if distSq > maxDistSq {
			maxDistSq = distSq
		}
	}
	return float32(math.Sqrt(float64(maxDistSq)))
}

// GPUViewData is the per-view uniform bound at group 0.
// Size: 64 bytes (mat4x4<f32>).
type GPUViewData struct {
	ViewProjection [16]float32 // offset 0: world-to-clip transform (64 bytes)
}

// Marshal serializes the GPUViewData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUViewData) Marshal() []byte {
	buf := make([]byte, 64)
	putFloats(buf, g.ViewProjection[:])
	return buf
}

// GPUMeshData is the per-entity uniform bound at group 1.
// Size: 96 bytes (uniform struct size rounds up to its 16-byte alignment).
type GPUMeshData struct {
	Model       [16]float32 // offset  0: model-to-world transform (64 bytes)
	BaseColor   [4]float32  // offset 64: base color, alpha is tested against AlphaCutoff (16 bytes)
	AlphaCutoff float32     // offset 80: fragments with alpha below are discarded (4 bytes)
	_           [3]float32  // offset 84: padding (12 bytes)
}

// Marshal serializes the GPUMeshData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 96-byte buffer ready for GPU upload.
func (g *GPUMeshData) Marshal() []byte {
	buf := make([]byte, 96)
	putFloats(buf, g.Model[:])
	putFloats(buf[64:], g.BaseColor[:])
	binary.LittleEndian.PutUint32(buf[80:84], math.Float32bits(g.AlphaCutoff))
	return buf
}

// ViewBindGroupLayout describes group 0 of the prepass shader.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: one uniform buffer holding GPUViewData
func ViewBindGroupLayout() wgpu.BindGroupLayoutDescriptor {
	return uniformLayout("Prepass View Layout", wgpu.ShaderStageVertex, 64)
}

// MeshBindGroupLayout describes group 1 of the prepass shader.
//
// Returns:
//   - wgpu.BindGroupLayoutDescriptor: one uniform buffer holding GPUMeshData
func MeshBindGroupLayout() wgpu.BindGroupLayoutDescriptor {
	return uniformLayout("Prepass Mesh Layout", wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, 96)
}

// PrepassShader returns the prepass shader source for the pipeline compiler.
//
// Parameters:
//   - layout: the pipeline layout over ViewBindGroupLayout and MeshBindGroupLayout
//
// Returns:
//   - renderer.ShaderSource: the shader source
func PrepassShader(layout *wgpu.PipelineLayout) renderer.ShaderSource {
	return renderer.ShaderSource{
		Code:               PrepassShaderSource,
		VertexEntryPoint:   "vs_main",
		FragmentEntryPoint: "fs_main",
		VertexBuffers:      []wgpu.VertexBufferLayout{GPUVertexLayout()},
		Layout:             layout,
	}
}

func uniformLayout(label string, visibility wgpu.ShaderStage, size uint64) wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: label,
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: visibility,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: size,
			},
		}},
	}
}

func putFloats(buf []byte, values []float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}
