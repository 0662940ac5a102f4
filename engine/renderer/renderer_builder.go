package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBuilderOption is a functional option applied to the backend created by RequestBackend.
type RendererBuilderOption func(*deviceRequest)

// deviceRequest collects the adapter and device settings RequestBackend uses.
type deviceRequest struct {
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
	label                string
	maxBindGroups        uint32
}

// WithSurface requests an adapter compatible with the surface described by desc.
// Without it the adapter is requested headless.
//
// Parameters:
//   - desc: the surface descriptor, e.g. from window.Window.SurfaceDescriptor
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithSurface(desc *wgpu.SurfaceDescriptor) RendererBuilderOption {
	return func(r *deviceRequest) {
		r.surfaceDescriptor = desc
	}
}

// WithForceSoftwareRenderer forces the use of a fallback (software) adapter.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *deviceRequest) {
		r.forceFallbackAdapter = force
	}
}

// WithDeviceLabel sets the debug label of the requested device.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithDeviceLabel(label string) RendererBuilderOption {
	return func(r *deviceRequest) {
		r.label = label
	}
}

// WithMaxBindGroups raises the device's bind group limit above the WebGPU default of 4.
//
// Parameters:
//   - n: the required number of bind groups
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithMaxBindGroups(n uint32) RendererBuilderOption {
	return func(r *deviceRequest) {
		r.maxBindGroups = n
	}
}
