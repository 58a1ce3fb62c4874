package annotate

import (
	"testing"

	"go.viam.com/test"

	"github.com/wildphoton/attend-infer-repeat/tensorimage"
	"github.com/wildphoton/attend-infer-repeat/warp"
)

func grayCanvas(t *testing.T, c, edge int, fill float64) *tensorimage.Batch {
	t.Helper()
	b, err := tensorimage.New(1, c, edge, edge)
	test.That(t, err, test.ShouldBeNil)
	data := b.Data()
	for i := range data {
		data[i] = fill
	}
	return b
}

func TestPoseBoxGeometry(t *testing.T) {
	pose := warp.Pose{S: 6, X: 2, Y: 4}

	// Unmargined: an 8-pixel box centered at (16, 4) offsets on a 48-canvas.
	box, err := PoseBox(pose, 48, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, box, test.ShouldResemble, Box{X1: 12, X2: 20, Y1: 4, Y2: 12})

	// Margin 1 grows every side by exactly one pixel.
	box, err = PoseBox(pose, 48, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, box, test.ShouldResemble, Box{X1: 11, X2: 21, Y1: 3, Y2: 13})

	// Negative scale must not flip the rectangle.
	box, err = PoseBox(warp.Pose{S: -6, X: 2, Y: 4}, 48, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, box.X1, test.ShouldBeLessThanOrEqualTo, box.X2)
	test.That(t, box.Y1, test.ShouldBeLessThanOrEqualTo, box.Y2)

	_, err = PoseBox(warp.Pose{S: 0}, 48, 1)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = PoseBox(pose, 0, 1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAddBoxOutline(t *testing.T) {
	canvas := grayCanvas(t, 1, 48, 0.5)
	out, err := AddBox(canvas, warp.Pose{S: 6, X: 2, Y: 4}, DefaultRed)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.C(), test.ShouldEqual, 3)
	test.That(t, out.H(), test.ShouldEqual, 48)

	// Input untouched.
	test.That(t, canvas.C(), test.ShouldEqual, 1)
	test.That(t, canvas.At(0, 0, 3, 11), test.ShouldEqual, 0.5)

	onOutline := func(y, x int) bool {
		inX := x >= 11 && x <= 20
		inY := y >= 3 && y <= 12
		return (inX && (y == 3 || y == 12)) || (inY && (x == 11 || x == 20))
	}
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			if onOutline(y, x) {
				test.That(t, out.At(0, 0, y, x), test.ShouldEqual, 1.0)
				test.That(t, out.At(0, 1, y, x), test.ShouldEqual, 0.0)
				test.That(t, out.At(0, 2, y, x), test.ShouldEqual, 0.0)
			} else {
				for c := 0; c < 3; c++ {
					test.That(t, out.At(0, c, y, x), test.ShouldEqual, 0.5)
				}
			}
		}
	}
}

// A box entirely off-canvas on one axis draws nothing and must not error.
func TestAddBoxFullyClipped(t *testing.T) {
	canvas := grayCanvas(t, 1, 48, 0.5)
	out, err := AddBox(canvas, warp.Pose{S: 6, X: 20, Y: 4}, DefaultRed)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.C(), test.ShouldEqual, 3)
	for _, v := range out.Data() {
		test.That(t, v, test.ShouldEqual, 0.5)
	}
}

// Edges that cross the canvas boundary draw only their in-bounds spans.
func TestAddBoxPartiallyClipped(t *testing.T) {
	canvas := grayCanvas(t, 1, 16, 0.0)
	// s=2 on a 16-canvas gives an 8-wide box; x=2 pushes it left so the
	// left column falls off-canvas.
	pose := warp.Pose{S: 2, X: 2, Y: 0}
	box, err := PoseBox(pose, 16, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, box.X1, test.ShouldBeLessThan, 0)
	test.That(t, box.X2, test.ShouldBeGreaterThan, 0)

	out, err := AddBox(canvas, pose, DefaultRed)
	test.That(t, err, test.ShouldBeNil)
	// The clipped left column wrote nothing at x=0 beyond the horizontal
	// edges' own spans, and no pixel left of the canvas ever wrapped around.
	for y := box.Y1 + 1; y < box.Y2-1; y++ {
		if y < 0 || y > 15 {
			continue
		}
		test.That(t, out.At(0, 0, y, 0), test.ShouldEqual, 0.0)
	}
	// The right column is in bounds and fully drawn.
	for y := max(box.Y1, 0); y < min(box.Y2, 15); y++ {
		test.That(t, out.At(0, 0, y, box.X2-1), test.ShouldEqual, 1.0)
	}
}

func TestAddBoxesSubsetAndZero(t *testing.T) {
	poses := []warp.Pose{
		{S: 6, X: 2, Y: 4},
		{S: 6, X: -2, Y: -4},
	}
	canvas := grayCanvas(t, 1, 48, 0.5)

	// nObj=1 draws only the first pose; the second pose's box stays gray.
	out, err := AddBoxes(canvas, poses, DefaultRed, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.At(0, 0, 3, 11), test.ShouldEqual, 1.0)
	second, err := PoseBox(poses[1], 48, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.At(0, 0, second.Y1, second.X1), test.ShouldEqual, 0.5)

	// nObj=0 still forces 3 channels and leaves content untouched.
	out, err = AddBoxes(canvas, poses, DefaultRed, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.C(), test.ShouldEqual, 3)
	for _, v := range out.Data() {
		test.That(t, v, test.ShouldEqual, 0.5)
	}

	// More objects than poses is a programmer error.
	_, err = AddBoxes(canvas, poses, DefaultRed, 3)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "exceeds")
	_, err = AddBoxes(canvas, poses, DefaultRed, -1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAddBoxChannelIdempotence(t *testing.T) {
	canvas := grayCanvas(t, 3, 48, 0.5)
	pose := warp.Pose{S: 6, X: 2, Y: 4}
	out, err := AddBox(canvas, pose, DefaultRed)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.C(), test.ShouldEqual, 3)

	// Annotating an already-annotated image keeps 3 channels.
	again, err := AddBox(out, pose, DefaultRed)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again.C(), test.ShouldEqual, 3)
}

func TestAddBoxPreconditions(t *testing.T) {
	nonSquare, err := tensorimage.New(1, 1, 8, 16)
	test.That(t, err, test.ShouldBeNil)
	_, err = AddBox(nonSquare, warp.Pose{S: 1}, DefaultRed)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "square")

	multi, err := tensorimage.New(2, 1, 8, 8)
	test.That(t, err, test.ShouldBeNil)
	_, err = AddBox(multi, warp.Pose{S: 1}, DefaultRed)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "single image")

	badChannels, err := tensorimage.New(1, 2, 8, 8)
	test.That(t, err, test.ShouldBeNil)
	_, err = AddBox(badChannels, warp.Pose{S: 1}, DefaultRed)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestAddBoxesBatched(t *testing.T) {
	batch, err := tensorimage.New(2, 1, 48, 48)
	test.That(t, err, test.ShouldBeNil)
	poses := [][]warp.Pose{
		{{S: 6, X: 2, Y: 4}},
		{{S: 6, X: 2, Y: 4}},
	}

	// counts round to integers per image; nil color means red.
	out, err := AddBoxesBatched(batch, poses, []float64{1.2, 0.0}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.N(), test.ShouldEqual, 2)
	test.That(t, out.C(), test.ShouldEqual, 3)
	test.That(t, out.At(0, 0, 3, 11), test.ShouldEqual, 1.0)
	test.That(t, out.At(1, 0, 3, 11), test.ShouldEqual, 0.0)

	_, err = AddBoxesBatched(batch, poses[:1], []float64{1, 0}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "pose batch size")

	_, err = AddBoxesBatched(batch, poses, []float64{1}, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = AddBoxesBatched(batch, poses, []float64{1, -2}, nil)
	test.That(t, err, test.ShouldNotBeNil)
}
