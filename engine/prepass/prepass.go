package prepass

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-prepass/common"
	"github.com/Carmen-Shannon/oxy-prepass/engine/profiler"
	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/Carmen-Shannon/oxy-prepass/engine/renderer"
	"github.com/Carmen-Shannon/oxy-prepass/engine/texture_cache"
	"github.com/Carmen-Shannon/oxy-prepass/engine/view"
	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultShaderKey is the shader key prepass pipelines are built from.
	DefaultShaderKey = "prepass"

	// DefaultDepthClearValue is the depth the prepass depth attachment is cleared to.
	DefaultDepthClearValue float32 = 1.0

	// drawPrepassName is the name the prepass draw function is registered under.
	drawPrepassName = "draw_prepass"

	defaultPhaseCapacity = 256
)

// prepass is the implementation of the Prepass interface.
type prepass struct {
	mu *sync.RWMutex

	textureCache texture_cache.TextureCache
	pipelines    *PrepassPipelines
	node         *Node

	opaqueDraws    *render_phase.DrawFunctions[Opaque3dPrepass]
	alphaMaskDraws *render_phase.DrawFunctions[AlphaMask3dPrepass]
	drawIds        DrawFunctionIds

	// textures is replaced wholesale by PrepareTextures and never mutated after publication.
	textures map[render_phase.EntityId]ViewPrepassTextures
	// phases persist across frames so their storage is reused.
	phases map[render_phase.EntityId]*ViewPhases

	sortPool worker.DynamicWorkerPool
	workers  int

	shaderKey       string
	depthClearValue float32
	profiler        *profiler.Profiler

	frame profiler.FrameStats
}

// Prepass drives the depth and normal prepass of every view each frame.
//
// PrepareTextures, SortPhases and EndFrame are frame-wide steps and must not overlap each other.
// Queue and Render may be called concurrently for different views.
type Prepass interface {
	// PrepareTextures provisions the prepass textures of every view in parallel and publishes
	// them for the rest of the frame.
	//
	// Parameters:
	//   - ctx: cancels provisioning
	//   - views: the views rendered this frame
	//
	// Returns:
	//   - error: the first ErrMissingPrepassTexture; no textures are published for the frame
	PrepareTextures(ctx context.Context, views []view.View) error

	// Textures returns the published texture set of a view.
	//
	// Parameters:
	//   - entity: the view entity
	//
	// Returns:
	//   - ViewPrepassTextures: the texture set
	//   - bool: false if the view was not prepared this frame
	Textures(entity render_phase.EntityId) (ViewPrepassTextures, bool)

	// Phases returns the phases of a view, creating them on first use.
	//
	// Parameters:
	//   - entity: the view entity
	//
	// Returns:
	//   - *ViewPhases: the view's phases
	Phases(entity render_phase.EntityId) *ViewPhases

	// Queue adds the view's eligible meshes to its phases.
	//
	// Parameters:
	//   - v: the view
	//   - meshes: the extracted meshes
	//
	// Returns:
	//   - QueueStats: counts of queued and skipped meshes
	Queue(v view.View, meshes []PrepassMesh) QueueStats

	// SortPhases sorts every non-empty phase of every view front to back. Phases are sorted as
	// independent tasks on the worker pool; the call returns once all are sorted.
	SortPhases()

	// Render encodes the prepass of v with its published textures and sorted phases.
	//
	// Parameters:
	//   - beginner: begins the render pass
	//   - v: the view
	//   - fallbackDepth: depth attachment for normal-only prepasses
	//
	// Returns:
	//   - NodeStats: what was drawn
	//   - error: ErrMissingPrepassTexture or a draw error; fatal for this view's frame
	Render(beginner renderer.PassBeginner, v view.View, fallbackDepth *wgpu.TextureView) (NodeStats, error)

	// EndFrame clears the phases, drops the published textures, advances the texture cache and
	// ticks the profiler if one is configured.
	//
	// Returns:
	//   - profiler.FrameStats: the statistics of the frame that ended
	EndFrame() profiler.FrameStats

	// Close stops the worker pool and releases every cached texture.
	Close()
}

var _ Prepass = &prepass{}

// NewPrepass creates the prepass system. Panics if any collaborator is nil.
//
// Parameters:
//   - textureCache: allocates prepass textures
//   - pipelineCache: compiles prepass pipelines
//   - meshes: resolves entities to GPU meshes
//   - viewBindGroups: resolves view entities to view bind groups
//   - options: functional options to further configure the prepass
//
// Returns:
//   - Prepass: the prepass system
func NewPrepass(textureCache texture_cache.TextureCache, pipelineCache renderer.PipelineCache, meshes MeshLookup, viewBindGroups ViewBindGroups, options ...PrepassBuilderOption) Prepass {
	if textureCache == nil || pipelineCache == nil || meshes == nil || viewBindGroups == nil {
		panic("prepass: NewPrepass requires non-nil collaborators")
	}

	p := &prepass{
		mu:              &sync.RWMutex{},
		textureCache:    textureCache,
		textures:        make(map[render_phase.EntityId]ViewPrepassTextures),
		phases:          make(map[render_phase.EntityId]*ViewPhases),
		workers:         runtime.NumCPU(),
		shaderKey:       DefaultShaderKey,
		depthClearValue: DefaultDepthClearValue,
	}
	for _, option := range options {
		option(p)
	}

	p.pipelines = NewPrepassPipelines(pipelineCache, p.shaderKey, p.depthClearValue)

	p.opaqueDraws = render_phase.NewDrawFunctions[Opaque3dPrepass]()
	p.alphaMaskDraws = render_phase.NewDrawFunctions[AlphaMask3dPrepass]()
	p.drawIds = DrawFunctionIds{
		Opaque:    p.opaqueDraws.Add(drawPrepassName, NewDrawPrepass[Opaque3dPrepass](pipelineCache, meshes, viewBindGroups)),
		AlphaMask: p.alphaMaskDraws.Add(drawPrepassName, NewDrawPrepass[AlphaMask3dPrepass](pipelineCache, meshes, viewBindGroups)),
	}
	p.node = NewNode(p.opaqueDraws, p.alphaMaskDraws, p.depthClearValue)

	// Initialize the sort pool after options so WithWorkers can override the default.
	p.sortPool = worker.NewDynamicWorkerPool(p.workers, 256, 1*time.Second)

	return p
}

func (p *prepass) PrepareTextures(ctx context.Context, views []view.View) error {
	results := make([]ViewPrepassTextures, len(views))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, v := range views {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			textures, err := PrepareViewTextures(v, p.textureCache)
			if err != nil {
				return err
			}
			results[i] = textures
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		common.Logger().Error("prepass texture provisioning failed", "error", err)
		return fmt.Errorf("failed to prepare prepass textures: %w", err)
	}

	published := make(map[render_phase.EntityId]ViewPrepassTextures, len(views))
	for i, v := range views {
		published[v.Entity()] = results[i]
	}

	p.mu.Lock()
	p.textures = published
	p.frame.Views = len(views)
	p.mu.Unlock()
	return nil
}

func (p *prepass) Textures(entity render_phase.EntityId) (ViewPrepassTextures, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.textures[entity]
	return t, ok
}

func (p *prepass) Phases(entity render_phase.EntityId) *ViewPhases {
	p.mu.RLock()
	phases, ok := p.phases[entity]
	p.mu.RUnlock()
	if ok {
		return phases
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if phases, ok := p.phases[entity]; ok {
		return phases
	}
	phases = NewViewPhases(defaultPhaseCapacity)
	p.phases[entity] = phases
	return phases
}

func (p *prepass) Queue(v view.View, meshes []PrepassMesh) QueueStats {
	stats := QueueMeshes(v, meshes, p.Phases(v.Entity()), p.pipelines, p.drawIds)

	p.mu.Lock()
	p.frame.OpaqueItems += stats.Opaque
	p.frame.AlphaMaskItems += stats.AlphaMask
	p.mu.Unlock()

	common.Logger().Debug("prepass queued", "view", v.Entity(),
		"opaque", stats.Opaque, "alpha_mask", stats.AlphaMask, "skipped", stats.Skipped)
	return stats
}

func (p *prepass) SortPhases() {
	p.mu.RLock()
	all := make([]*ViewPhases, 0, len(p.phases))
	for _, phases := range p.phases {
		all = append(all, phases)
	}
	p.mu.RUnlock()

	// Opaque and alpha-mask phases share nothing, so each is its own task.
	var wg sync.WaitGroup
	taskID := 0
	submit := func(sort func()) {
		wg.Add(1)
		id := taskID
		taskID++
		p.sortPool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				sort()
				return nil, nil
			},
		})
	}
	for _, phases := range all {
		if phases.Opaque.Len() > 0 {
			submit(phases.Opaque.Sort)
		}
		if phases.AlphaMask.Len() > 0 {
			submit(phases.AlphaMask.Sort)
		}
	}
	wg.Wait()
}

func (p *prepass) Render(beginner renderer.PassBeginner, v view.View, fallbackDepth *wgpu.TextureView) (NodeStats, error) {
	textures, _ := p.Textures(v.Entity())
	stats, err := p.node.Run(beginner, v, textures, p.Phases(v.Entity()), fallbackDepth)

	p.mu.Lock()
	p.frame.Drawn += stats.Opaque.Drawn + stats.AlphaMask.Drawn
	p.frame.Skipped += stats.Opaque.Skipped + stats.AlphaMask.Skipped
	p.frame.PipelineSwitches += stats.PipelineSwitches
	p.mu.Unlock()

	return stats, err
}

func (p *prepass) EndFrame() profiler.FrameStats {
	p.mu.Lock()
	for _, phases := range p.phases {
		phases.Clear()
	}
	p.textures = make(map[render_phase.EntityId]ViewPrepassTextures)
	frame := p.frame
	p.frame = profiler.FrameStats{}
	p.mu.Unlock()

	p.textureCache.Update()
	frame.Textures = p.textureCache.Len()

	if p.profiler != nil {
		p.profiler.Tick(frame)
	}
	return frame
}

func (p *prepass) Close() {
	p.sortPool.Stop()
	p.textureCache.Clear()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.textures = make(map[render_phase.EntityId]ViewPrepassTextures)
	clear(p.phases)
}
