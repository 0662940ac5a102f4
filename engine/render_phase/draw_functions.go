package render_phase

import (
	"errors"
	"fmt"
	"sync"
)

// ErrDrawFunctionNotFound is returned when a phase item references an unregistered draw function.
var ErrDrawFunctionNotFound = errors.New("render_phase: draw function not found")

// Draw encodes the draw command of a single phase item.
type Draw[I any] interface {
	// Draw encodes item into pass for the given view.
	//
	// Parameters:
	//   - pass: the tracked pass to encode into
	//   - view: the view entity the phase belongs to
	//   - item: the item to draw
	//
	// Returns:
	//   - error: ErrSkipItem to skip the item, any other error aborts the phase
	Draw(pass *TrackedRenderPass, view EntityId, item I) error
}

// DrawFunc adapts a plain function to the Draw interface.
type DrawFunc[I any] func(pass *TrackedRenderPass, view EntityId, item I) error

// Draw calls f.
func (f DrawFunc[I]) Draw(pass *TrackedRenderPass, view EntityId, item I) error {
	return f(pass, view, item)
}

// DrawFunctions is a registry of draw functions for one phase-item type. Handles are indices
// into the registry and stay valid for its lifetime. Safe for concurrent use.
type DrawFunctions[I any] struct {
	mu      sync.RWMutex
	draws   []Draw[I]
	indices map[string]DrawFunctionId
}

// NewDrawFunctions creates an empty registry.
func NewDrawFunctions[I any]() *DrawFunctions[I] {
	return &DrawFunctions[I]{
		indices: make(map[string]DrawFunctionId),
	}
}

// Add registers draw under name and returns its handle. Registering a name twice returns the
// existing handle and keeps the first draw function.
//
// Parameters:
//   - name: a unique name for the draw function
//   - draw: the draw function
//
// Returns:
//   - DrawFunctionId: the handle to store on phase items
func (d *DrawFunctions[I]) Add(name string, draw Draw[I]) DrawFunctionId {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.indices[name]; ok {
		return id
	}
	id := DrawFunctionId(len(d.draws))
	d.draws = append(d.draws, draw)
	d.indices[name] = id
	return id
}

// Id returns the handle registered under name.
func (d *DrawFunctions[I]) Id(name string) (DrawFunctionId, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.indices[name]
	return id, ok
}

// Get resolves a handle to its draw function.
//
// Parameters:
//   - id: the handle
//
// Returns:
//   - Draw[I]: the registered draw function
//   - error: ErrDrawFunctionNotFound if id was never registered
func (d *DrawFunctions[I]) Get(id DrawFunctionId) (Draw[I], error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if int(id) >= len(d.draws) {
		return nil, fmt.Errorf("%w: id %d", ErrDrawFunctionNotFound, id)
	}
	return d.draws[id], nil
}

// Len returns the number of registered draw functions.
func (d *DrawFunctions[I]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.draws)
}
