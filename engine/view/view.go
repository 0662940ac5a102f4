// package view describes the cameras a frame is rendered from: which entity a view is, what it
// renders into, where it looks from, and which marker components (such as prepass flags) are
// attached to it.
package view

import (
	"reflect"
	"sync"

	"github.com/Carmen-Shannon/oxy-prepass/common"
	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/cogentcore/webgpu/wgpu"
)

// viewImpl is the implementation of the View interface.
type viewImpl struct {
	mu *sync.RWMutex

	entity     render_phase.EntityId
	target     RenderTarget
	viewMatrix [16]float32

	// components holds the marker components attached to the view, keyed by their type.
	components map[reflect.Type]any
}

// View is a camera a frame is rendered from.
// Marker components are attached by value and their presence, not their payload, is what
// downstream systems read. Safe for concurrent access.
type View interface {
	// Entity returns the entity this view belongs to.
	//
	// Returns:
	//   - render_phase.EntityId: the view entity
	Entity() render_phase.EntityId

	// Target returns the render target of this view.
	//
	// Returns:
	//   - RenderTarget: the target, never nil
	Target() RenderTarget

	// Extent returns the current size of the render target as a single-layer texture extent.
	// A minimized window yields a zero width or height.
	//
	// Returns:
	//   - wgpu.Extent3D: the target extent with DepthOrArrayLayers set to 1
	Extent() wgpu.Extent3D

	// ViewMatrix returns the world-to-view matrix (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// SetViewMatrix replaces the world-to-view matrix.
	//
	// Parameters:
	//   - m: the new view matrix (column-major)
	SetViewMatrix(m [16]float32)

	// Rangefinder returns a Rangefinder for the current view matrix.
	//
	// Returns:
	//   - Rangefinder: computes distances in front of this view
	Rangefinder() Rangefinder

	// Insert attaches components to the view, replacing any component of the same type.
	//
	// Parameters:
	//   - components: the components to attach
	Insert(components ...any)

	// Remove detaches the component with the same type as component, if present.
	//
	// Parameters:
	//   - component: a value of the component type to remove
	Remove(component any)

	// HasComponent reports whether a component of type t is attached.
	//
	// Parameters:
	//   - t: the component type
	//
	// Returns:
	//   - bool: true if attached
	HasComponent(t reflect.Type) bool
}

var _ View = &viewImpl{}

// NewView creates a view for entity that renders into target.
// Panics if target is nil.
//
// Parameters:
//   - entity: the view entity
//   - target: the render target
//   - options: functional options to further configure the view
//
// Returns:
//   - View: the new view
func NewView(entity render_phase.EntityId, target RenderTarget, options ...ViewBuilderOption) View {
	if target == nil {
		panic("view: NewView requires a non-nil RenderTarget")
	}

	v := &viewImpl{
		mu:         &sync.RWMutex{},
		entity:     entity,
		target:     target,
		components: make(map[reflect.Type]any),
	}
	common.Identity(v.viewMatrix[:])

	for _, option := range options {
		option(v)
	}
	return v
}

// Has reports whether a component of type T is attached to v.
//
// Returns:
//   - bool: true if v carries a T
func Has[T any](v View) bool {
	return v.HasComponent(reflect.TypeFor[T]())
}

func (v *viewImpl) Entity() render_phase.EntityId {
	return v.entity
}

func (v *viewImpl) Target() RenderTarget {
	return v.target
}

func (v *viewImpl) Extent() wgpu.Extent3D {
	w, h := v.target.Size()
	return wgpu.Extent3D{
		Width:              w,
		Height:             h,
		DepthOrArrayLayers: 1,
	}
}

func (v *viewImpl) ViewMatrix() [16]float32 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.viewMatrix
}

func (v *viewImpl) SetViewMatrix(m [16]float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.viewMatrix = m
}

func (v *viewImpl) Rangefinder() Rangefinder {
	return NewRangefinder(v.ViewMatrix())
}

func (v *viewImpl) Insert(components ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range components {
		if c == nil {
			continue
		}
		v.components[reflect.TypeOf(c)] = c
	}
}

func (v *viewImpl) Remove(component any) {
	if component == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.components, reflect.TypeOf(component))
}

func (v *viewImpl) HasComponent(t reflect.Type) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.components[t]
	return ok
}
