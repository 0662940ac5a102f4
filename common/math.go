package common

import (
	"math"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Translation writes a column-major 4x4 translation matrix into out.
// Mesh transforms queued into a prepass only need their translation column,
// so this is the common way tests and callers build a mesh transform.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - x, y, z: translation in world space
func Translation(out []float32, x, y, z float32) {
	Identity(out)
	out[12], out[13], out[14] = x, y, z
}

// Row returns row r of a column-major 4x4 matrix.
//
// Parameters:
//   - m: the matrix (16 elements)
//   - r: row index in [0, 3]
//
// Returns:
//   - [4]float32: the row components
func Row(m []float32, r int) [4]float32 {
	return [4]float32{m[r], m[4+r], m[8+r], m[12+r]}
}

// Dot4 returns the dot product of two 4-component vectors.
func Dot4(a, b [4]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

// LookAt builds a right-handed view matrix looking from eye towards center.
// The resulting matrix transforms world coordinates to view space, where the camera
// looks down the negative Z axis.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - eyeX, eyeY, eyeZ: camera position in world space
//   - centerX, centerY, centerZ: target point the camera looks at
//   - upX, upY, upZ: up vector defining camera orientation (typically 0,1,0)
func LookAt(out []float32, eyeX, eyeY, eyeZ, centerX, centerY, centerZ, upX, upY, upZ float32) {
	fz := normalize3([3]float32{eyeX - centerX, eyeY - centerY, eyeZ - centerZ})
	fx := normalize3([3]float32{
		upY*fz[2] - upZ*fz[1],
		upZ*fz[0] - upX*fz[2],
		upX*fz[1] - upY*fz[0],
	})
	fy := [3]float32{
		fz[1]*fx[2] - fz[2]*fx[1],
		fz[2]*fx[0] - fz[0]*fx[2],
		fz[0]*fx[1] - fz[1]*fx[0],
	}

	eye := [3]float32{eyeX, eyeY, eyeZ}
	for r, axis := range [3][3]float32{fx, fy, fz} {
		out[r] = axis[0]
		out[4+r] = axis[1]
		out[8+r] = axis[2]
		out[12+r] = -(axis[0]*eye[0] + axis[1]*eye[1] + axis[2]*eye[2])
	}
	out[3], out[7], out[11], out[15] = 0, 0, 0, 1
}

// normalize3 scales v to unit length. A zero vector is returned unchanged.
func normalize3(v [3]float32) [3]float32 {
	l := float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}

// Mul4 multiplies two column-major 4x4 matrices, out = a * b. out may alias a or b.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			buf[col*4+row] = sum
		}
	}
	copy(out, buf[:])
}

// Perspective builds a right-handed perspective projection for WebGPU clip space, where depth
// maps near to 0 and far to 1.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1 / float32(math.Tan(float64(fovY)/2))
	Identity(out)
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1
	out[14] = near * far / (near - far)
	out[15] = 0
}
