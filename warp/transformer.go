package warp

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/wildphoton/attend-infer-repeat/tensorimage"
)

// Transformer resamples image batches between an object-local frame and a
// canvas frame. Both shapes are fixed at construction; Forward produces
// canvas-shaped output and Inverse produces object-shaped output.
type Transformer struct {
	inputShape  image.Point // object frame, (W, H)
	outputShape image.Point // canvas frame, (W, H)
}

// NewTransformer creates a Transformer with the given object and canvas
// shapes, each given as (W, H).
func NewTransformer(inputShape, outputShape image.Point) (*Transformer, error) {
	for _, shp := range []image.Point{inputShape, outputShape} {
		if shp.X <= 0 || shp.Y <= 0 {
			return nil, errors.Errorf("transformer shapes must be positive, got %v", shp)
		}
	}
	return &Transformer{inputShape: inputShape, outputShape: outputShape}, nil
}

// Forward warps a batch of object images onto the canvas frame. poses[i]
// places image i; the batch sizes must agree and every scale must be nonzero.
func (t *Transformer) Forward(frame tensorimage.Frame, poses []Pose) (*tensorimage.Batch, error) {
	b, err := t.check(frame, poses)
	if err != nil {
		return nil, err
	}
	return Resample(b, poses, t.outputShape)
}

// Inverse extracts the object-frame content from a batch of canvas images by
// inverting each pose and resampling through the same primitive as Forward.
func (t *Transformer) Inverse(frame tensorimage.Frame, poses []Pose) (*tensorimage.Batch, error) {
	b, err := t.check(frame, poses)
	if err != nil {
		return nil, err
	}
	inverted := make([]Pose, len(poses))
	for i, p := range poses {
		inv, err := p.Invert()
		if err != nil {
			return nil, errors.Wrapf(err, "pose %d", i)
		}
		inverted[i] = inv
	}
	return Resample(b, inverted, t.inputShape)
}

func (t *Transformer) check(frame tensorimage.Frame, poses []Pose) (*tensorimage.Batch, error) {
	b, err := frame.Host()
	if err != nil {
		return nil, err
	}
	if err := tensorimage.CheckChannels(b); err != nil {
		return nil, err
	}
	if b.N() != len(poses) {
		return nil, errors.Errorf("image batch size %d does not match pose count %d", b.N(), len(poses))
	}
	for i, p := range poses {
		if p.S == 0 {
			return nil, errors.Errorf("pose %d has zero scale", i)
		}
	}
	return b, nil
}

// samplingGrid builds the normalized source coordinate for every output pixel
// of an out.Y x out.X image, in row-major order. Output pixel centers follow
// the align-corners-false convention: index p of an axis of size n maps to
// (2p+1)/n - 1.
func samplingGrid(pose Pose, out image.Point) []r2.Point {
	grid := make([]r2.Point, out.Y*out.X)
	for i := 0; i < out.Y; i++ {
		cy := float64(2*i+1)/float64(out.Y) - 1
		for j := 0; j < out.X; j++ {
			cx := float64(2*j+1)/float64(out.X) - 1
			grid[i*out.X+j] = pose.Apply(r2.Point{X: cx, Y: cy})
		}
	}
	return grid
}

// Resample pulls, for every output pixel of an out-shaped image, a bilinear
// sample from the source batch at the location the pose maps it to. Source
// taps that fall outside the image contribute zero, so content that a pose
// pushes off the source simply fades to black at the boundary. The result is
// a fresh (N, C, out.Y, out.X) batch; the input is untouched.
func Resample(b *tensorimage.Batch, poses []Pose, out image.Point) (*tensorimage.Batch, error) {
	if b.N() != len(poses) {
		return nil, errors.Errorf("image batch size %d does not match pose count %d", b.N(), len(poses))
	}
	dst, err := tensorimage.New(b.N(), b.C(), out.Y, out.X)
	if err != nil {
		return nil, err
	}
	srcH, srcW := b.H(), b.W()
	src := b.Data()
	data := dst.Data()
	chanStride := srcH * srcW
	outChanStride := out.Y * out.X
	for n := 0; n < b.N(); n++ {
		grid := samplingGrid(poses[n], out)
		for idx, g := range grid {
			// Map the normalized source coordinate back to continuous pixel
			// coordinates, inverting the align-corners-false convention.
			px := (g.X+1)*float64(srcW)/2 - 0.5
			py := (g.Y+1)*float64(srcH)/2 - 0.5
			for c := 0; c < b.C(); c++ {
				base := (n*b.C() + c) * chanStride
				v := bilinear(src[base:base+chanStride], srcW, srcH, px, py)
				data[(n*b.C()+c)*outChanStride+idx] = v
			}
		}
	}
	return dst, nil
}

// bilinear blends the four pixels enclosing the continuous coordinate
// (px, py). Taps outside [0, size-1] contribute zero.
func bilinear(plane []float64, w, h int, px, py float64) float64 {
	x0 := floorInt(px)
	y0 := floorInt(py)
	fx := px - float64(x0)
	fy := py - float64(y0)

	total := 0.0
	total += tap(plane, w, h, x0, y0) * (1 - fx) * (1 - fy)
	total += tap(plane, w, h, x0+1, y0) * fx * (1 - fy)
	total += tap(plane, w, h, x0, y0+1) * (1 - fx) * fy
	total += tap(plane, w, h, x0+1, y0+1) * fx * fy
	return total
}

func tap(plane []float64, w, h, x, y int) float64 {
	if x < 0 || x >= w || y < 0 || y >= h {
		return 0
	}
	return plane[y*w+x]
}

func floorInt(v float64) int {
	i := int(v)
	if v < 0 && float64(i) != v {
		i--
	}
	return i
}
