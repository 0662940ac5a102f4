// package render_phase implements the generic machinery every render phase uses: phase items
// and their ordering contract, the per-frame radix sort, phase collections, draw-function
// registries and the tracked render pass that draw functions encode into.
package render_phase

import "math"

// EntityId identifies the entity a phase item was queued for. It indexes externally owned
// per-entity resources (mesh buffers, bind groups) and is never dereferenced by this package.
type EntityId uint32

// DrawFunctionId is an index into a DrawFunctions registry.
type DrawFunctionId uint32

// CachedRenderPipelineId is an index into an external pipeline cache.
type CachedRenderPipelineId uint32

// InvalidCachedRenderPipelineId marks a phase item or descriptor with no pipeline.
const InvalidCachedRenderPipelineId CachedRenderPipelineId = math.MaxUint32
