package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-prepass/engine/view"
	"github.com/Carmen-Shannon/oxy-prepass/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets the window the engine runs the message loop of. Without a window the engine
// renders offscreen until Quit is called.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithView registers a view during engine construction.
//
// Parameters:
//   - v: the view
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithView(v view.View) EngineBuilderOption {
	return func(e *engine) {
		e.views[v.Entity()] = v
	}
}

// WithExtract sets the function returning each view's meshes for the frame.
//
// Parameters:
//   - extract: the extract function
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithExtract(extract ExtractFunc) EngineBuilderOption {
	return func(e *engine) {
		e.extract = extract
	}
}

// WithFallbackDepth sets the depth attachment used by views with a normal prepass but no
// depth prepass.
//
// Parameters:
//   - depth: the depth texture view
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFallbackDepth(depth *wgpu.TextureView) EngineBuilderOption {
	return func(e *engine) {
		e.fallbackDepth = depth
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
