package prepass

import (
	"slices"
	"testing"

	"github.com/Carmen-Shannon/oxy-prepass/common"
	"github.com/Carmen-Shannon/oxy-prepass/engine/render_phase"
	"github.com/Carmen-Shannon/oxy-prepass/engine/renderer"
	"github.com/Carmen-Shannon/oxy-prepass/engine/view"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestQueueMeshesRoutesByAlphaMode(t *testing.T) {
	cache := renderer.NewPipelineCache(fakeCompiler{})
	pipelines := NewPrepassPipelines(cache, DefaultShaderKey, DefaultDepthClearValue)
	draws := DrawFunctionIds{Opaque: 4, AlphaMask: 7}
	v := newTestView(1, 800, 600, DepthPrepass{})

	meshes := []PrepassMesh{
		meshAt(10, 5, AlphaModeOpaque),
		meshAt(11, 2, AlphaModeMask),
		meshAt(12, 3, AlphaModeBlend),
		meshAt(13, 1, AlphaModeOpaque),
		meshAt(14, 4, AlphaModePremultiplied),
		meshAt(15, 6, AlphaModeAdd),
		meshAt(16, 7, AlphaModeMultiply),
	}
	phases := NewViewPhases(8)
	stats := QueueMeshes(v, meshes, phases, pipelines, draws)

	if stats != (QueueStats{Opaque: 2, AlphaMask: 1, Skipped: 4}) {
		t.Errorf("unexpected stats %+v", stats)
	}
	if got, want := opaqueEntities(phases.Opaque.Items()), []render_phase.EntityId{10, 13}; !slices.Equal(got, want) {
		t.Errorf("expected opaque %v, got %v", want, got)
	}
	if got, want := alphaMaskEntities(phases.AlphaMask.Items()), []render_phase.EntityId{11}; !slices.Equal(got, want) {
		t.Errorf("expected alpha mask %v, got %v", want, got)
	}

	for _, item := range phases.Opaque.Items() {
		if item.DrawFunctionId != draws.Opaque {
			t.Errorf("expected opaque draw function %d, got %d", draws.Opaque, item.DrawFunctionId)
		}
	}
	mask := phases.AlphaMask.Items()[0]
	if mask.DrawFunctionId != draws.AlphaMask {
		t.Errorf("expected alpha-mask draw function %d, got %d", draws.AlphaMask, mask.DrawFunctionId)
	}
	desc, ok := cache.Descriptor(mask.PipelineId)
	if !ok || !desc.AlphaMask {
		t.Errorf("expected an alpha-mask pipeline, got %+v", desc)
	}
	if phases.Opaque.Items()[0].PipelineId != phases.Opaque.Items()[1].PipelineId {
		t.Error("expected opaque meshes with the same key to share a pipeline")
	}
	if cache.Len() != 2 {
		t.Errorf("expected 2 pipeline variants, got %d", cache.Len())
	}
}

func TestQueueMeshesDistance(t *testing.T) {
	cache := renderer.NewPipelineCache(fakeCompiler{})
	pipelines := NewPrepassPipelines(cache, DefaultShaderKey, DefaultDepthClearValue)

	var m [16]float32
	common.LookAt(m[:], 0, 0, 10, 0, 0, 0, 0, 1, 0)
	v := view.NewView(1, view.NewImageTarget(64, 64),
		view.WithViewMatrix(m), view.WithComponents(DepthPrepass{}))

	biased := meshAt(2, 0, AlphaModeOpaque)
	biased.DepthBias = 0.5
	meshes := []PrepassMesh{meshAt(1, 0, AlphaModeOpaque), biased}

	phases := NewViewPhases(2)
	QueueMeshes(v, meshes, phases, pipelines, DrawFunctionIds{})

	items := phases.Opaque.Items()
	if d := items[0].Distance; d < 9.999 || d > 10.001 {
		t.Errorf("expected distance 10, got %v", d)
	}
	if d := items[1].Distance; d < 10.499 || d > 10.501 {
		t.Errorf("expected biased distance 10.5, got %v", d)
	}
}

func TestQueueMeshesWithoutMarkers(t *testing.T) {
	cache := renderer.NewPipelineCache(fakeCompiler{})
	pipelines := NewPrepassPipelines(cache, DefaultShaderKey, DefaultDepthClearValue)
	v := newTestView(1, 800, 600)

	phases := NewViewPhases(2)
	stats := QueueMeshes(v, []PrepassMesh{meshAt(1, 1, AlphaModeOpaque)}, phases, pipelines, DrawFunctionIds{})

	if stats != (QueueStats{}) || phases.Opaque.Len() != 0 {
		t.Errorf("expected nothing queued, got %+v", stats)
	}
	if cache.Len() != 0 {
		t.Errorf("expected no pipelines, got %d", cache.Len())
	}
}

func TestPipelineKeyDescriptor(t *testing.T) {
	tests := []struct {
		name      string
		key       PipelineKey
		label     string
		shaderKey string
		color     wgpu.TextureFormat
	}{
		{"opaque depth", PipelineKey{DepthPrepass: true}, "opaque_prepass", "prepass", wgpu.TextureFormatUndefined},
		{"opaque normal", PipelineKey{DepthPrepass: true, NormalPrepass: true}, "opaque_prepass_normal", "prepass", NormalPrepassFormat},
		{"mask", PipelineKey{AlphaMask: true, DepthPrepass: true}, "alpha_mask_prepass", "prepass", wgpu.TextureFormatUndefined},
		{"mesh variant", PipelineKey{DepthPrepass: true, MeshKey: 3}, "opaque_prepass_3", "prepass/3", wgpu.TextureFormatUndefined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := tt.key.Descriptor("prepass", wgpu.CompareFunctionLess)
			if desc.Label != tt.label {
				t.Errorf("expected label %q, got %q", tt.label, desc.Label)
			}
			if desc.ShaderKey != tt.shaderKey {
				t.Errorf("expected shader key %q, got %q", tt.shaderKey, desc.ShaderKey)
			}
			if desc.ColorFormat != tt.color {
				t.Errorf("expected color format %v, got %v", tt.color, desc.ColorFormat)
			}
			if desc.DepthFormat != DepthPrepassFormat || !desc.DepthWriteEnabled {
				t.Errorf("expected depth writes in %v, got %+v", DepthPrepassFormat, desc)
			}
			if desc.AlphaMask != tt.key.AlphaMask {
				t.Errorf("expected alpha mask %v, got %v", tt.key.AlphaMask, desc.AlphaMask)
			}
		})
	}
}

func TestDepthCompareFor(t *testing.T) {
	if DepthCompareFor(1) != wgpu.CompareFunctionLess {
		t.Error("expected less compare for a depth clear value of 1")
	}
	if DepthCompareFor(0) != wgpu.CompareFunctionGreater {
		t.Error("expected greater compare for a reversed depth buffer")
	}
}

func TestAlphaModeString(t *testing.T) {
	if AlphaModeMask.String() != "mask" || AlphaMode(42).String() != "AlphaMode(42)" {
		t.Errorf("unexpected strings %q %q", AlphaModeMask.String(), AlphaMode(42).String())
	}
}
