// package window provides the on-screen render target views draw into. The window reports its
// framebuffer size, which is what prepass textures are sized to, and notifies listeners when that
// size changes so per-view textures can be reallocated.
package window

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-prepass/engine/view"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window is a platform window usable as a view.RenderTarget.
type Window interface {
	view.RenderTarget

	// SetResizeCallback sets the function called when the framebuffer is resized.
	// Minimizing the window reports a zero size.
	//
	// Parameters:
	//   - callback: function receiving the new framebuffer width and height in pixels
	SetResizeCallback(callback func(width, height uint32))

	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if the window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// ProcessMessages runs the window message loop until the window is closed,
	// calling the update callback each iteration.
	ProcessMessages()

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	mu *sync.Mutex

	title string

	// size packs the framebuffer width (high 32 bits) and height (low 32 bits) so the render
	// thread can read it while the window thread updates it.
	size atomic.Uint64

	internalWindow *glfwWindow

	onUpdate func()
	onResize func(width, height uint32)
}

var _ Window = &engineWindow{}

// NewWindow creates and spawns a window. Panics if the platform window cannot be created.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		mu:    &sync.Mutex{},
		title: "oxy-prepass",
	}
	w.setSize(1280, 720)
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) Size() (width, height uint32) {
	s := w.size.Load()
	return uint32(s >> 32), uint32(s)
}

func (w *engineWindow) setSize(width, height int) {
	w.size.Store(uint64(uint32(max(width, 0)))<<32 | uint64(uint32(max(height, 0))))
}

func (w *engineWindow) SetResizeCallback(callback func(width, height uint32)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onResize = callback
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onUpdate = callback
}

// resized records a framebuffer size change and notifies the resize callback.
func (w *engineWindow) resized(width, height int) {
	w.setSize(width, height)
	w.mu.Lock()
	cb := w.onResize
	w.mu.Unlock()
	if cb != nil {
		cb(w.Size())
	}
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if !platformProcessMessages(w) {
			break
		}

		w.mu.Lock()
		update := w.onUpdate
		w.mu.Unlock()
		if update != nil {
			update()
		}

		runtime.Gosched()
	}
}
