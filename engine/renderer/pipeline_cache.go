// package renderer owns the GPU side of the render phases: the cache that turns pipeline
// descriptors into compiled render pipelines, and the WebGPU backend that allocates attachment
// textures and encodes render passes.
package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-prepass/common"
	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrPipelineNotReady is returned when a cached pipeline has not been compiled yet.
var ErrPipelineNotReady = errors.New("renderer: pipeline not ready")

// PipelineState is the compile state of a cached pipeline.
type PipelineState int

const (
	// PipelineStateQueued means the pipeline waits for the next ProcessQueue call.
	PipelineStateQueued PipelineState = iota

	// PipelineStateReady means the pipeline compiled and can be bound.
	PipelineStateReady

	// PipelineStateFailed means compilation failed. The pipeline is never retried.
	PipelineStateFailed
)

func (s PipelineState) String() string {
	switch s {
	case PipelineStateQueued:
		return "queued"
	case PipelineStateReady:
		return "ready"
	case PipelineStateFailed:
		return "failed"
	}
	return fmt.Sprintf("PipelineState(%d)", int(s))
}

// RenderPipelineDescriptor describes a render pipeline. Equal descriptors share one cached pipeline.
type RenderPipelineDescriptor struct {
	Label string

	// ShaderKey selects the shader source the compiler builds the pipeline from.
	ShaderKey string

	// DepthFormat is the depth attachment format.
	DepthFormat wgpu.TextureFormat
	// ColorFormat is the single color target format, or wgpu.TextureFormatUndefined for none.
	ColorFormat wgpu.TextureFormat

	DepthWriteEnabled bool
	DepthCompare      wgpu.CompareFunction
	CullMode          wgpu.CullMode

	// AlphaMask requires a fragment stage that discards texels below the alpha cutoff.
	AlphaMask bool

	SampleCount uint32
}

// HasFragment reports whether the pipeline needs a fragment stage.
func (d RenderPipelineDescriptor) HasFragment() bool {
	return d.AlphaMask || d.ColorFormat != wgpu.TextureFormatUndefined
}

// PipelineCompiler compiles render pipeline descriptors on behalf of a PipelineCache.
type PipelineCompiler interface {
	// CompileRenderPipeline builds the pipeline described by desc.
	CompileRenderPipeline(desc RenderPipelineDescriptor) (*wgpu.RenderPipeline, error)
}

// cachedPipeline is one entry of the pipeline arena.
type cachedPipeline struct {
	desc     RenderPipelineDescriptor
	state    PipelineState
	pipeline *wgpu.RenderPipeline
	err      error
}

// pipelineCache is the implementation of the PipelineCache interface.
type pipelineCache struct {
	mu       *sync.RWMutex
	compiler PipelineCompiler

	pipelines []cachedPipeline
	ids       map[RenderPipelineDescriptor]render_phase.CachedRenderPipelineId
	pending   []render_phase.CachedRenderPipelineId
}

// PipelineCache hands out stable ids for render pipeline descriptors and compiles them in batches.
// Safe for concurrent use.
type PipelineCache interface {
	render_phase.PipelineLookup

	// QueueRenderPipeline returns the id for desc, queueing it for compilation the first time
	// it is seen.
	//
	// Parameters:
	//   - desc: the pipeline to queue
	//
	// Returns:
	//   - render_phase.CachedRenderPipelineId: the id shared by every equal descriptor
	QueueRenderPipeline(desc RenderPipelineDescriptor) render_phase.CachedRenderPipelineId

	// ProcessQueue compiles every queued pipeline. Failures are logged and the pipeline is
	// marked failed.
	//
	// Returns:
	//   - int: the number of pipelines that compiled successfully
	ProcessQueue() int

	// Get returns the compiled pipeline for id.
	//
	// Parameters:
	//   - id: the cached pipeline id
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the pipeline
	//   - error: ErrPipelineNotReady while queued, or the compile error if compilation failed
	Get(id render_phase.CachedRenderPipelineId) (*wgpu.RenderPipeline, error)

	// State returns the compile state of id. Unknown ids report PipelineStateFailed.
	State(id render_phase.CachedRenderPipelineId) PipelineState

	// Descriptor returns the descriptor id was queued with.
	Descriptor(id render_phase.CachedRenderPipelineId) (RenderPipelineDescriptor, bool)

	// Len returns the number of cached pipelines in any state.
	Len() int
}

var _ PipelineCache = &pipelineCache{}

// NewPipelineCache creates a cache compiling through compiler. Panics if compiler is nil.
//
// Parameters:
//   - compiler: builds pipelines from descriptors
//
// Returns:
//   - PipelineCache: the new cache
func NewPipelineCache(compiler PipelineCompiler) PipelineCache {
	if compiler == nil {
		panic("renderer: NewPipelineCache requires a non-nil PipelineCompiler")
	}
	return &pipelineCache{
		mu:       &sync.RWMutex{},
		compiler: compiler,
		ids:      make(map[RenderPipelineDescriptor]render_phase.CachedRenderPipelineId),
	}
}

func (c *pipelineCache) QueueRenderPipeline(desc RenderPipelineDescriptor) render_phase.CachedRenderPipelineId {
	c.mu.RLock()
	id, ok := c.ids[desc]
	c.mu.RUnlock()
	if ok {
		return id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.ids[desc]; ok {
		return id
	}
	id = render_phase.CachedRenderPipelineId(len(c.pipelines))
	c.pipelines = append(c.pipelines, cachedPipeline{desc: desc, state: PipelineStateQueued})
	c.ids[desc] = id
	c.pending = append(c.pending, id)
	common.Logger().Debug("pipeline queued", "label", desc.Label, "id", id)
	return id
}

func (c *pipelineCache) ProcessQueue() int {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	descs := make([]RenderPipelineDescriptor, len(pending))
	for i, id := range pending {
		descs[i] = c.pipelines[id].desc
	}
	c.mu.Unlock()

	compiled := 0
	for i, id := range pending {
		p, err := c.compiler.CompileRenderPipeline(descs[i])

		c.mu.Lock()
		entry := &c.pipelines[id]
		if err != nil {
			entry.state = PipelineStateFailed
			entry.err = fmt.Errorf("failed to compile pipeline %q: %w", descs[i].Label, err)
			common.Logger().Error("pipeline compile failed", "label", descs[i].Label, "id", id, "error", err)
		} else {
			entry.state = PipelineStateReady
			entry.pipeline = p
			compiled++
			common.Logger().Info("pipeline compiled", "label", descs[i].Label, "id", id)
		}
		c.mu.Unlock()
	}
	return compiled
}

func (c *pipelineCache) RenderPipeline(id render_phase.CachedRenderPipelineId) (*wgpu.RenderPipeline, bool) {
	p, err := c.Get(id)
	return p, err == nil
}

func (c *pipelineCache) Get(id render_phase.CachedRenderPipelineId) (*wgpu.RenderPipeline, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if int(id) >= len(c.pipelines) {
		return nil, fmt.Errorf("%w: unknown pipeline %d", ErrPipelineNotReady, id)
	}
	entry := c.pipelines[id]
	switch entry.state {
	case PipelineStateReady:
		return entry.pipeline, nil
	case PipelineStateFailed:
		return nil, entry.err
	default:
		return nil, fmt.Errorf("%w: %q is queued", ErrPipelineNotReady, entry.desc.Label)
	}
}

func (c *pipelineCache) State(id render_phase.CachedRenderPipelineId) PipelineState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.pipelines) {
		return PipelineStateFailed
	}
	return c.pipelines[id].state
}

func (c *pipelineCache) Descriptor(id render_phase.CachedRenderPipelineId) (RenderPipelineDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.pipelines) {
		return RenderPipelineDescriptor{}, false
	}
	return c.pipelines[id].desc, true
}

func (c *pipelineCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}
