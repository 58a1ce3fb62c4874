// Package warp implements a spatial transformer for object-centric scenes: a
// 3-parameter similarity transform (uniform scale plus 2D translation) that
// moves pixel content between an object-local frame and a scene canvas via
// bilinear resampling.
package warp

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Pose is the placement of an object on a canvas: a uniform scale S and
// translations X, Y in the normalized [-1, 1] canvas frame. The object center
// lands at (X/S, Y/S), so a larger scale shrinks the object and dampens the
// translation, consistent with the affine matrix [[S,0,X],[0,S,Y]].
type Pose struct {
	S float64
	X float64
	Y float64
}

// Matrix expands the pose into its 2x3 affine matrix [[S,0,X],[0,S,Y]].
// The matrix is recomputed on every call, never cached.
func (p Pose) Matrix() *mat.Dense {
	return mat.NewDense(2, 3, []float64{
		p.S, 0, p.X,
		0, p.S, p.Y,
	})
}

// Invert returns the pose of the inverse transform, (1/S, -X/S, -Y/S).
// A zero scale has no inverse and is rejected.
func (p Pose) Invert() (Pose, error) {
	if p.S == 0 {
		return Pose{}, errors.New("cannot invert pose with zero scale")
	}
	return Pose{
		S: 1 / p.S,
		X: -p.X / p.S,
		Y: -p.Y / p.S,
	}, nil
}

// Apply maps a point through the affine transform: (S*x + X, S*y + Y).
func (p Pose) Apply(pt r2.Point) r2.Point {
	return r2.Point{
		X: p.S*pt.X + p.X,
		Y: p.S*pt.Y + p.Y,
	}
}
