package view

import "github.com/Carmen-Shannon/oxy-prepass/common"

// Rangefinder computes how far in front of a view a world-space transform sits, measured along
// the view axis. Phase items are ordered by this distance.
type Rangefinder struct {
	// depthRow is row 2 of the world-to-view matrix; its dot product with a world-space
	// point is that point's view-space z.
	depthRow [4]float32
}

// NewRangefinder builds a Rangefinder from a world-to-view matrix.
//
// Parameters:
//   - viewMatrix: the view's world-to-view matrix (column-major)
//
// Returns:
//   - Rangefinder: the rangefinder
func NewRangefinder(viewMatrix [16]float32) Rangefinder {
	return Rangefinder{depthRow: common.Row(viewMatrix[:], 2)}
}

// Distance returns the distance of the transform's origin in front of the view. Views look
// down -Z, so points in front of the camera have positive distances and points behind it
// negative ones.
//
// Parameters:
//   - transform: a column-major model matrix; only its translation column is used
//
// Returns:
//   - float32: the distance along the view axis
func (r Rangefinder) Distance(transform [16]float32) float32 {
	origin := [4]float32{transform[12], transform[13], transform[14], transform[15]}
	return -common.Dot4(r.depthRow, origin)
}
