package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-prepass/common"
	"github.com/Carmen-Shannon/oxy-prepass/engine/prepass"
	"github.com/Carmen-Shannon/oxy-prepass/engine/profiler"
	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/Carmen-Shannon/oxy-prepass/engine/renderer"
	"github.com/Carmen-Shannon/oxy-prepass/engine/view"
	"github.com/Carmen-Shannon/oxy-prepass/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// FrameBackend records one command buffer per frame that render passes are begun on.
// renderer.RendererBackend satisfies it.
type FrameBackend interface {
	renderer.PassBeginner
	BeginFrame() error
	EndFrame() error
}

// ExtractFunc returns the meshes visible to a view this frame.
type ExtractFunc func(v view.View) []prepass.PrepassMesh

// engine implements the Engine interface.
// Coordinates the tick, render, and quit goroutines.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	backend   FrameBackend
	pipelines renderer.PipelineCache
	prepass   prepass.Prepass

	views         map[render_phase.EntityId]view.View
	extract       ExtractFunc
	fallbackDepth *wgpu.TextureView

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine drives the prepass of every registered view, one frame per render loop iteration.
type Engine interface {
	// Window returns the underlying window, or nil when rendering offscreen.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called before each render frame.
	// Use this for GPU buffer updates such as view and mesh uniforms.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// SetExtractCallback registers the function returning each view's meshes for the frame.
	//
	// Parameters:
	//   - extract: the extract function
	SetExtractCallback(extract ExtractFunc)

	// AddView registers a view, replacing any view with the same entity.
	//
	// Parameters:
	//   - v: the view
	AddView(v view.View)

	// RemoveView unregisters the view of the given entity.
	//
	// Parameters:
	//   - entity: the view entity
	RemoveView(entity render_phase.EntityId)

	// Views returns the registered views in ascending entity order.
	//
	// Returns:
	//   - []view.View: the views
	Views() []view.View

	// RenderFrame runs one prepass frame over every registered view: provision textures, queue
	// and sort phase items, encode each view's prepass and submit.
	//
	// Parameters:
	//   - ctx: cancels texture provisioning
	//
	// Returns:
	//   - profiler.FrameStats: the statistics of the frame
	//   - error: the joined errors of the frame; a failing view does not stop the others
	RenderFrame(ctx context.Context) (profiler.FrameStats, error)

	// Run starts the engine loops and blocks until the window closes or Quit is called.
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options. Panics if any collaborator
// is nil.
//
// Parameters:
//   - backend: records and submits frames
//   - pipelines: the pipeline cache the prepass queues into, processed once per frame
//   - p: the prepass system
//   - options: functional options for engine configuration (tick rate, window, views, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(backend FrameBackend, pipelines renderer.PipelineCache, p prepass.Prepass, options ...EngineBuilderOption) Engine {
	if backend == nil || pipelines == nil || p == nil {
		panic("engine: NewEngine requires a backend, pipeline cache and prepass")
	}

	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		backend:         backend,
		pipelines:       pipelines,
		prepass:         p,
		views:           make(map[render_phase.EntityId]view.View),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		// Views targeting the window read its size each frame; the texture cache reallocates
		// on the next PrepareTextures.
		e.window.SetResizeCallback(func(width, height uint32) {
			common.Logger().Debug("window resized", "width", width, "height", height)
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if _, err := e.RenderFrame(context.Background()); err != nil {
				common.Logger().Error("frame failed", "error", err)
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) RenderFrame(ctx context.Context) (profiler.FrameStats, error) {
	views := e.Views()

	if err := e.backend.BeginFrame(); err != nil {
		return profiler.FrameStats{}, fmt.Errorf("failed to begin frame: %w", err)
	}

	if err := e.prepass.PrepareTextures(ctx, views); err != nil {
		// Nothing was published, so no view can render this frame.
		return e.prepass.EndFrame(), errors.Join(err, e.backend.EndFrame())
	}

	e.mu.Lock()
	extract := e.extract
	e.mu.Unlock()
	if extract != nil {
		var wg sync.WaitGroup
		for _, v := range views {
			wg.Add(1)
			go func() {
				defer wg.Done()
				e.prepass.Queue(v, extract(v))
			}()
		}
		wg.Wait()
	}

	e.pipelines.ProcessQueue()
	e.prepass.SortPhases()

	var errs []error
	for _, v := range views {
		if _, err := e.prepass.Render(e.backend, v, e.fallbackDepth); err != nil {
			errs = append(errs, err)
		}
	}

	errs = append(errs, e.backend.EndFrame())
	return e.prepass.EndFrame(), errors.Join(errs...)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) SetExtractCallback(extract ExtractFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.extract = extract
}

func (e *engine) AddView(v view.View) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.views[v.Entity()] = v
}

func (e *engine) RemoveView(entity render_phase.EntityId) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.views, entity)
}

func (e *engine) Views() []view.View {
	e.mu.Lock()
	defer e.mu.Unlock()
	views := make([]view.View, 0, len(e.views))
	for _, v := range e.views {
		views = append(views, v)
	}
	slices.SortFunc(views, func(a, b view.View) int {
		return cmp.Compare(a.Entity(), b.Entity())
	})
	return views
}
