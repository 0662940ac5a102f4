package render_phase

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-prepass/common"
)

// RenderStats summarizes one Render call.
type RenderStats struct {
	// Drawn is the number of items whose draw function succeeded.
	Drawn int
	// Skipped is the number of items whose draw function returned ErrSkipItem.
	Skipped int
}

// RenderPhase collects the items of one phase for one view during a frame.
//
// A phase has a single owner while it is built and sorted; it is not safe for concurrent
// mutation. Different phases share nothing and may be sorted in parallel.
type RenderPhase[I SortablePhaseItem[I]] struct {
	items []I
}

// NewRenderPhase creates an empty phase with room for capacity items.
func NewRenderPhase[I SortablePhaseItem[I]](capacity int) *RenderPhase[I] {
	return &RenderPhase[I]{items: make([]I, 0, capacity)}
}

// Add appends an item to the phase.
func (p *RenderPhase[I]) Add(item I) {
	p.items = append(p.items, item)
}

// Items returns the phase's items in their current order. The slice is owned by the phase and
// is only valid until the next Add, Sort or Clear.
func (p *RenderPhase[I]) Items() []I {
	return p.items
}

// Len returns the number of queued items.
func (p *RenderPhase[I]) Len() int {
	return len(p.items)
}

// Sort orders the phase with the item type's SortAll.
func (p *RenderPhase[I]) Sort() {
	var zero I
	zero.SortAll(p.items)
}

// Clear drops every item and keeps the backing storage for the next frame.
func (p *RenderPhase[I]) Clear() {
	clear(p.items)
	p.items = p.items[:0]
}

// Render draws every item in the phase's current order. Each item's draw function is resolved
// through drawFunctions and called with pass. Items whose draw returns ErrSkipItem are counted
// and skipped; any other error stops the phase.
//
// Parameters:
//   - pass: the tracked pass to encode into
//   - view: the view entity the phase belongs to
//   - drawFunctions: the registry the items' draw-function handles index into
//
// Returns:
//   - RenderStats: drawn and skipped counts
//   - error: the first non-skip draw error, wrapped with the failing entity
func (p *RenderPhase[I]) Render(pass *TrackedRenderPass, view EntityId, drawFunctions *DrawFunctions[I]) (RenderStats, error) {
	var stats RenderStats
	for _, item := range p.items {
		draw, err := drawFunctions.Get(item.DrawFunction())
		if err != nil {
			return stats, fmt.Errorf("entity %d: %w", item.Entity(), err)
		}
		if err := draw.Draw(pass, view, item); err != nil {
			if errors.Is(err, ErrSkipItem) {
				stats.Skipped++
				continue
			}
			return stats, fmt.Errorf("draw entity %d: %w", item.Entity(), err)
		}
		stats.Drawn++
	}

	if stats.Skipped > 0 {
		common.Logger().Warn("phase items skipped", "view", view, "skipped", stats.Skipped, "drawn", stats.Drawn)
	}
	return stats, nil
}
