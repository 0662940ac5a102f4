package prepass

import "github.com/Carmen-Shannon/oxy-prepass/engine/profiler"

// PrepassBuilderOption is a functional option applied to a prepass during construction via NewPrepass.
type PrepassBuilderOption func(*prepass)

// WithWorkers sets how many goroutines provision textures and sort phases in parallel.
// Defaults to runtime.NumCPU(). Values below 1 are ignored.
//
// Parameters:
//   - n: the number of workers
//
// Returns:
//   - PrepassBuilderOption: option function to apply
func WithWorkers(n int) PrepassBuilderOption {
	return func(p *prepass) {
		if n >= 1 {
			p.workers = n
		}
	}
}

// WithShaderKey sets the base shader key prepass pipelines are built from.
//
// Parameters:
//   - key: the shader key registered with the pipeline compiler
//
// Returns:
//   - PrepassBuilderOption: option function to apply
func WithShaderKey(key string) PrepassBuilderOption {
	return func(p *prepass) {
		if key != "" {
			p.shaderKey = key
		}
	}
}

// WithDepthClearValue sets the value the prepass depth attachment is cleared to. A value of 0
// selects a reversed depth buffer and a greater depth compare in the prepass pipelines.
//
// Parameters:
//   - value: the depth clear value, 0 or 1
//
// Returns:
//   - PrepassBuilderOption: option function to apply
func WithDepthClearValue(value float32) PrepassBuilderOption {
	return func(p *prepass) {
		p.depthClearValue = value
	}
}

// WithProfiler ticks prof with every frame's statistics from EndFrame.
//
// Parameters:
//   - prof: the profiler
//
// Returns:
//   - PrepassBuilderOption: option function to apply
func WithProfiler(prof *profiler.Profiler) PrepassBuilderOption {
	return func(p *prepass) {
		p.profiler = prof
	}
}
