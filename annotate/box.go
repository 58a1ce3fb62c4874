// Package annotate draws the pixel bounding boxes implied by object poses
// onto copies of images, for visual inspection of where a pose places an
// object on the canvas.
package annotate

import (
	"math"

	"github.com/pkg/errors"

	"github.com/wildphoton/attend-infer-repeat/tensorimage"
	"github.com/wildphoton/attend-infer-repeat/warp"
)

// Color is an RGB triple, typically in [0, 1] to match image content.
type Color struct {
	R float64
	G float64
	B float64
}

// DefaultRed is the box color used when a caller passes none.
var DefaultRed = Color{R: 1, G: 0, B: 0}

// Box is an axis-aligned pixel rectangle. X2 and Y2 are exclusive on the
// drawing side: the right and bottom edges are drawn at X2-1 and Y2-1.
type Box struct {
	X1 int
	X2 int
	Y1 int
	Y2 int
}

// PoseBox computes the pixel rectangle a pose implies on a square canvas of
// the given edge length. The object spans edge/S pixels, its center is offset
// from the canvas center by -(X|Y)/S * edge/2, and the rectangle grows by
// margin pixels on every side. Coordinates are rounded to the nearest integer
// and each pair is sorted, so a negative scale cannot flip the rectangle.
func PoseBox(pose warp.Pose, canvasEdge, margin int) (Box, error) {
	if pose.S == 0 {
		return Box{}, errors.New("cannot compute box for pose with zero scale")
	}
	if canvasEdge <= 0 {
		return Box{}, errors.Errorf("canvas edge must be positive, got %d", canvasEdge)
	}
	edge := float64(canvasEdge)
	w := edge / pose.S
	h := edge / pose.S
	xtrans := -pose.X / pose.S * edge / 2
	ytrans := -pose.Y / pose.S * edge / 2
	m := float64(margin)
	x1 := (edge-w)/2 + xtrans - m
	y1 := (edge-h)/2 + ytrans - m
	x2 := x1 + w + 2*m
	y2 := y1 + h + 2*m
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{
		X1: int(math.Round(x1)),
		X2: int(math.Round(x2)),
		Y1: int(math.Round(y1)),
		Y2: int(math.Round(y2)),
	}, nil
}

// AddBox returns a copy of the single-image frame with the pose's bounding
// box outlined in the given color. The output always has 3 channels; a
// 1-channel input is tiled to RGB before drawing. Each of the four edges is
// clipped to the canvas independently, so a box partially or fully off-canvas
// draws only what is visible. The input is never modified and the result is
// always host-resident.
func AddBox(frame tensorimage.Frame, pose warp.Pose, color Color) (*tensorimage.Batch, error) {
	return AddBoxes(frame, []warp.Pose{pose}, color, 1)
}

// AddBoxes draws the first nObj poses onto one shared copy of the frame, in
// index order, so later boxes draw over earlier ones where they overlap. The
// frame must hold exactly one image. nObj may be less than the number of
// poses supplied but not greater; with nObj == 0 the result is just the
// channel-widened copy.
func AddBoxes(frame tensorimage.Frame, poses []warp.Pose, color Color, nObj int) (*tensorimage.Batch, error) {
	if nObj < 0 {
		return nil, errors.Errorf("object count must be non-negative, got %d", nObj)
	}
	if nObj > len(poses) {
		return nil, errors.Errorf("object count %d exceeds the %d poses supplied", nObj, len(poses))
	}
	b, err := frame.Host()
	if err != nil {
		return nil, err
	}
	if b.N() != 1 {
		return nil, errors.Errorf("expected a single image, got batch size %d", b.N())
	}
	if err := tensorimage.CheckChannels(b); err != nil {
		return nil, err
	}
	if b.H() != b.W() {
		return nil, errors.Errorf("box drawing requires a square canvas, got %dx%d", b.H(), b.W())
	}
	out, err := tensorimage.WidenToRGB(b.Clone())
	if err != nil {
		return nil, err
	}
	for i := 0; i < nObj; i++ {
		box, err := PoseBox(poses[i], out.H(), 1)
		if err != nil {
			return nil, errors.Wrapf(err, "pose %d", i)
		}
		drawOutline(out, box, color)
	}
	return out, nil
}

// AddBoxesBatched applies AddBoxes to every image of a batch. posesBatch[i]
// and counts[i] describe image i; counts are scalar-like and get rounded to
// integers. A nil color means DefaultRed. The result always has 3 channels.
func AddBoxesBatched(batch *tensorimage.Batch, posesBatch [][]warp.Pose, counts []float64, color *Color) (*tensorimage.Batch, error) {
	if err := tensorimage.CheckChannels(batch); err != nil {
		return nil, err
	}
	if len(posesBatch) != batch.N() {
		return nil, errors.Errorf("pose batch size %d does not match image batch size %d", len(posesBatch), batch.N())
	}
	if len(counts) != batch.N() {
		return nil, errors.Errorf("got %d object counts for %d images", len(counts), batch.N())
	}
	c := DefaultRed
	if color != nil {
		c = *color
	}
	out, err := tensorimage.New(batch.N(), 3, batch.H(), batch.W())
	if err != nil {
		return nil, err
	}
	per := 3 * batch.H() * batch.W()
	for n := 0; n < batch.N(); n++ {
		img, err := batch.Slice(n)
		if err != nil {
			return nil, err
		}
		nObj, err := tensorimage.RoundedCount(counts[n])
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", n)
		}
		annotated, err := AddBoxes(img, posesBatch[n], c, nObj)
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", n)
		}
		copy(out.Data()[n*per:(n+1)*per], annotated.Data())
	}
	return out, nil
}

// drawOutline writes the four 1-pixel edges of box into a 3-channel image,
// clipping each edge to the canvas independently.
func drawOutline(b *tensorimage.Batch, box Box, color Color) {
	xMax := b.W() - 1
	yMax := b.H() - 1
	rgb := [3]float64{color.R, color.G, color.B}

	setPx := func(y, x int) {
		for c := 0; c < 3; c++ {
			b.Set(0, c, y, x, rgb[c])
		}
	}

	x1, x2 := max(box.X1, 0), min(box.X2, xMax)
	y1, y2 := max(box.Y1, 0), min(box.Y2, yMax)

	if box.Y1 >= 0 && box.Y1 <= yMax {
		for x := x1; x < x2; x++ {
			setPx(box.Y1, x)
		}
	}
	if box.Y2-1 >= 0 && box.Y2-1 <= yMax {
		for x := x1; x < x2; x++ {
			setPx(box.Y2-1, x)
		}
	}
	if box.X1 >= 0 && box.X1 <= xMax {
		for y := y1; y < y2; y++ {
			setPx(y, box.X1)
		}
	}
	if box.X2-1 >= 0 && box.X2-1 <= xMax {
		for y := y1; y < y2; y++ {
			setPx(y, box.X2-1)
		}
	}
}
