// package profiler reports frame rate, prepass workload and memory statistics at a fixed interval.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-prepass/common"
)

// FrameStats is the prepass workload of a single frame.
type FrameStats struct {
	// Views is the number of views rendered.
	Views int
	// OpaqueItems and AlphaMaskItems count the items queued into each phase.
	OpaqueItems    int
	AlphaMaskItems int
	// Drawn and Skipped count draw function outcomes across all phases.
	Drawn   int
	Skipped int
	// PipelineSwitches counts pipeline binds across all prepass render passes.
	PipelineSwitches int
	// Textures is the number of live cached textures at the end of the frame.
	Textures int
}

// Add accumulates other into s.
func (s *FrameStats) Add(other FrameStats) {
	s.Views += other.Views
	s.OpaqueItems += other.OpaqueItems
	s.AlphaMaskItems += other.AlphaMaskItems
	s.Drawn += other.Drawn
	s.Skipped += other.Skipped
	s.PipelineSwitches += other.PipelineSwitches
	s.Textures = other.Textures
}

// Profiler tracks frame rate, prepass and memory statistics for performance monitoring.
// Outputs stats to the shared logger at a configurable interval. Not safe for concurrent use;
// tick it from the frame loop.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time

	totals FrameStats

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler. Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to further configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, option := range options {
		option(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame with that frame's stats.
// Logs averaged statistics when the update interval has elapsed: FPS, per-frame phase sizes,
// draws, skips and pipeline switches, live textures, heap usage, allocation rate and GC pauses.
//
// Parameters:
//   - stats: the frame's prepass statistics
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats FrameStats) bool {
	p.frameCount++
	p.totals.Add(stats)

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	frames := float64(p.frameCount)
	fps := frames / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	common.Logger().Info("frame stats",
		"fps", fps,
		"views", float64(p.totals.Views)/frames,
		"opaque_items", float64(p.totals.OpaqueItems)/frames,
		"alpha_mask_items", float64(p.totals.AlphaMaskItems)/frames,
		"drawn", float64(p.totals.Drawn)/frames,
		"skipped", float64(p.totals.Skipped)/frames,
		"pipeline_switches", float64(p.totals.PipelineSwitches)/frames,
		"textures", p.totals.Textures,
		"heap_mb", allocMB,
		"alloc_rate_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_last_pause_us", lastPauseUs,
		"gc_max_pause_us", maxPauseUs,
		"sys_mb", sysMB,
	)

	p.frameCount = 0
	p.totals = FrameStats{}
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
