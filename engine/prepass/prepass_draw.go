package prepass

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/cogentcore/webgpu/wgpu"
)

// GPUMesh is the GPU data needed to draw one entity.
type GPUMesh struct {
	VertexBuffer *wgpu.Buffer
	// IndexBuffer holds uint32 indices. Nil draws VertexCount non-indexed vertices.
	IndexBuffer *wgpu.Buffer
	IndexCount  uint32
	VertexCount uint32
	// BindGroup holds per-entity data such as the model matrix and, for masked materials, the
	// base color texture. Bound at group 1.
	BindGroup *wgpu.BindGroup
}

// MeshLookup resolves entities to their GPU mesh data.
type MeshLookup interface {
	Mesh(entity render_phase.EntityId) (GPUMesh, bool)
}

// ViewBindGroups resolves view entities to their view uniform bind group.
type ViewBindGroups interface {
	ViewBindGroup(view render_phase.EntityId) (*wgpu.BindGroup, bool)
}

// MeshMap is a MeshLookup backed by a map.
type MeshMap map[render_phase.EntityId]GPUMesh

func (m MeshMap) Mesh(entity render_phase.EntityId) (GPUMesh, bool) {
	mesh, ok := m[entity]
	return mesh, ok
}

// ViewBindGroupMap is a ViewBindGroups backed by a map.
type ViewBindGroupMap map[render_phase.EntityId]*wgpu.BindGroup

func (m ViewBindGroupMap) ViewBindGroup(view render_phase.EntityId) (*wgpu.BindGroup, bool) {
	group, ok := m[view]
	return group, ok
}

// NewDrawPrepass returns the draw function for prepass items: it binds the item's pipeline, the
// view bind group at group 0 and the mesh bind group at group 1, then draws the mesh.
// Items whose pipeline is not compiled or whose entity has no GPU mesh are skipped.
//
// Parameters:
//   - pipelines: resolves cached pipeline ids
//   - meshes: resolves entities to GPU meshes
//   - views: resolves view entities to view bind groups
//
// Returns:
//   - render_phase.Draw[I]: the draw function
func NewDrawPrepass[I render_phase.CachedRenderPipelinePhaseItem](pipelines render_phase.PipelineLookup, meshes MeshLookup, views ViewBindGroups) render_phase.Draw[I] {
	return render_phase.DrawFunc[I](func(pass *render_phase.TrackedRenderPass, viewEntity render_phase.EntityId, item I) error {
		if err := render_phase.SetItemPipeline(pass, pipelines, item); err != nil {
			return err
		}

		viewGroup, ok := views.ViewBindGroup(viewEntity)
		if !ok {
			return fmt.Errorf("no view bind group for view %d", viewEntity)
		}

		mesh, ok := meshes.Mesh(item.Entity())
		if !ok {
			return fmt.Errorf("%w: entity %d has no GPU mesh", render_phase.ErrSkipItem, item.Entity())
		}

		pass.SetBindGroup(0, viewGroup, nil)
		if mesh.BindGroup != nil {
			pass.SetBindGroup(1, mesh.BindGroup, nil)
		}
		pass.SetVertexBuffer(0, mesh.VertexBuffer, 0, wgpu.WholeSize)
		if mesh.IndexBuffer == nil {
			pass.Draw(mesh.VertexCount, 1, 0, 0)
			return nil
		}
		pass.SetIndexBuffer(mesh.IndexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(mesh.IndexCount, 1, 0, 0, 0)
		return nil
	})
}
