package render_phase

// PhaseItem is a single queued draw command within a render phase.
// Items are immutable snapshots for the frame they were queued in: a phase may reorder
// them but never mutates them.
type PhaseItem interface {
	// SortKey returns the key the phase is sorted by. It must be pure and return the
	// same value on every call within a frame.
	//
	// Returns:
	//   - SortKey: the item's ordering key
	SortKey() SortKey

	// DrawFunction returns the handle of the procedure that encodes this item's draw.
	//
	// Returns:
	//   - DrawFunctionId: the draw-function handle resolved through a DrawFunctions registry
	DrawFunction() DrawFunctionId

	// Entity returns the entity this draw command represents, used to look up
	// per-entity GPU resources.
	//
	// Returns:
	//   - EntityId: the owning entity
	Entity() EntityId
}

// CachedRenderPipelinePhaseItem is a PhaseItem that carries the handle of the compiled
// pipeline it must be drawn with.
type CachedRenderPipelinePhaseItem interface {
	PhaseItem

	// CachedPipeline returns the handle of the item's pipeline in the pipeline cache.
	//
	// Returns:
	//   - CachedRenderPipelineId: the cached pipeline handle
	CachedPipeline() CachedRenderPipelineId
}

// SortablePhaseItem is the full capability set a RenderPhase requires of its items.
// SortAll is called on the zero value of I and must not read the receiver.
type SortablePhaseItem[I any] interface {
	CachedRenderPipelinePhaseItem

	// SortAll reorders items in place, ascending by SortKey (front to back).
	// Items with equal keys keep their relative input order.
	//
	// Parameters:
	//   - items: the phase's items for this frame
	SortAll(items []I)
}
