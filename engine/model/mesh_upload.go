package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-prepass/engine/prepass"
	"github.com/Carmen-Shannon/oxy-prepass/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// MeshBuffers are the vertex and index buffers of an uploaded model, shared by its instances.
type MeshBuffers struct {
	VertexBuffer *wgpu.Buffer
	IndexBuffer  *wgpu.Buffer
	IndexCount   uint32
}

// MeshInstance is one drawable entity: shared mesh buffers plus its own mesh uniform.
type MeshInstance struct {
	Mesh    prepass.GPUMesh
	Uniform *wgpu.Buffer
}

// UploadModel creates the vertex and index buffers of m.
//
// Parameters:
//   - alloc: creates the buffers
//   - m: the model to upload
//
// Returns:
//   - MeshBuffers: the uploaded buffers
//   - error: error if the model is empty or a buffer cannot be created
func UploadModel(alloc renderer.BufferAllocator, m Model) (MeshBuffers, error) {
	if len(m.Vertices()) == 0 || m.IndexCount() == 0 {
		return MeshBuffers{}, fmt.Errorf("model %q has no geometry", m.Name())
	}

	vertexBuffer, err := alloc.CreateBuffer(m.Name()+" Vertex Buffer", wgpu.BufferUsageVertex, m.VertexData())
	if err != nil {
		return MeshBuffers{}, err
	}
	indexBuffer, err := alloc.CreateBuffer(m.Name()+" Index Buffer", wgpu.BufferUsageIndex, m.IndexData())
	if err != nil {
		vertexBuffer.Release()
		return MeshBuffers{}, err
	}

	return MeshBuffers{
		VertexBuffer: vertexBuffer,
		IndexBuffer:  indexBuffer,
		IndexCount:   uint32(m.IndexCount()),
	}, nil
}

// NewMeshInstance creates the mesh uniform of one entity and its group 1 bind group.
//
// Parameters:
//   - alloc: creates the uniform buffer and bind group
//   - label: debug label
//   - buffers: the shared mesh buffers
//   - layout: the bind group layout created from MeshBindGroupLayout
//   - data: the initial uniform contents
//
// Returns:
//   - MeshInstance: the instance
//   - error: error if the uniform or bind group cannot be created
func NewMeshInstance(alloc renderer.BufferAllocator, label string, buffers MeshBuffers, layout *wgpu.BindGroupLayout, data GPUMeshData) (MeshInstance, error) {
	uniform, err := alloc.CreateBuffer(label+" Mesh Uniform", wgpu.BufferUsageUniform, data.Marshal())
	if err != nil {
		return MeshInstance{}, err
	}
	group, err := alloc.CreateBufferBindGroup(label+" Mesh Bind Group", layout, uniform)
	if err != nil {
		uniform.Release()
		return MeshInstance{}, err
	}

	return MeshInstance{
		Mesh: prepass.GPUMesh{
			VertexBuffer: buffers.VertexBuffer,
			IndexBuffer:  buffers.IndexBuffer,
			IndexCount:   buffers.IndexCount,
			BindGroup:    group,
		},
		Uniform: uniform,
	}, nil
}

// Update rewrites the instance's mesh uniform.
//
// Parameters:
//   - alloc: writes the buffer
//   - data: the new uniform contents
func (i MeshInstance) Update(alloc renderer.BufferAllocator, data GPUMeshData) {
	alloc.WriteBuffer(i.Uniform, 0, data.Marshal())
}
