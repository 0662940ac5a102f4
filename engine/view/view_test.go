package view

import (
	"math"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-prepass/common"
)

type markerA struct{}
type markerB struct{}

func TestViewMarkers(t *testing.T) {
	v := NewView(7, NewImageTarget(800, 600), WithComponents(markerA{}))

	if v.Entity() != 7 {
		t.Errorf("expected entity 7, got %d", v.Entity())
	}
	if !Has[markerA](v) {
		t.Error("expected markerA to be attached")
	}
	if Has[markerB](v) {
		t.Error("expected markerB to be absent")
	}

	v.Insert(markerB{}, nil)
	if !Has[markerB](v) {
		t.Error("expected markerB after Insert")
	}

	v.Remove(markerA{})
	if Has[markerA](v) {
		t.Error("expected markerA to be removed")
	}
	v.Remove(nil)
}

func TestViewExtentFollowsTarget(t *testing.T) {
	target := NewImageTarget(800, 600)
	v := NewView(1, target)

	e := v.Extent()
	if e.Width != 800 || e.Height != 600 || e.DepthOrArrayLayers != 1 {
		t.Errorf("expected 800x600x1, got %+v", e)
	}

	target.Resize(0, 600)
	if e := v.Extent(); e.Width != 0 || e.Height != 600 {
		t.Errorf("expected 0x600 after resize, got %+v", e)
	}
}

func TestNewViewPanicsWithoutTarget(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected NewView to panic with a nil target")
		}
	}()
	NewView(1, nil)
}

func TestRangefinderDistance(t *testing.T) {
	var viewMatrix [16]float32
	common.LookAt(viewMatrix[:], 0, 0, 10, 0, 0, 0, 0, 1, 0)
	v := NewView(1, NewImageTarget(1, 1), WithViewMatrix(viewMatrix))
	rf := v.Rangefinder()

	tests := []struct {
		name    string
		x, y, z float32
		want    float32
	}{
		{"origin", 0, 0, 0, 10},
		{"near", 0, 0, 9, 1},
		{"off axis", 5, -3, 0, 10},
		{"behind", 0, 0, 12, -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m [16]float32
			common.Translation(m[:], tt.x, tt.y, tt.z)
			got := rf.Distance(m)
			if math.Abs(float64(got-tt.want)) > 1e-4 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestViewConcurrentAccess(t *testing.T) {
	v := NewView(1, NewImageTarget(4, 4))
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				v.Insert(markerA{})
				v.SetViewMatrix([16]float32{15: float32(i)})
			} else {
				_ = Has[markerA](v)
				_ = v.ViewMatrix()
			}
		}(i)
	}
	wg.Wait()
	if !Has[markerA](v) {
		t.Error("expected markerA after concurrent inserts")
	}
}
