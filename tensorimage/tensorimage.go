// Package tensorimage provides the image-batch representation shared by the
// warp and annotate packages: batches of images stored as float64 dense
// tensors in NCHW layout.
package tensorimage

import (
	"math"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Batch is a batch of images in NCHW layout backed by a float64 dense tensor.
// The backing tensor always has rank 4.
type Batch struct {
	dense *tensor.Dense
}

// Frame is anything that can materialize itself as a host-resident Batch.
// Implementations backed by device memory must copy their contents into
// addressable host memory; *Batch implements Frame trivially.
type Frame interface {
	Host() (*Batch, error)
}

// New returns a zero-filled batch of the given dimensions.
func New(n, c, h, w int) (*Batch, error) {
	if n <= 0 || c <= 0 || h <= 0 || w <= 0 {
		return nil, errors.Errorf("batch dimensions must be positive, got (%d, %d, %d, %d)", n, c, h, w)
	}
	d := tensor.New(tensor.Of(tensor.Float64), tensor.WithShape(n, c, h, w))
	return &Batch{dense: d}, nil
}

// FromDense wraps an existing rank-4 float64 tensor without copying it.
func FromDense(d *tensor.Dense) (*Batch, error) {
	if d == nil {
		return nil, errors.New("nil tensor")
	}
	if d.Dtype() != tensor.Float64 {
		return nil, errors.Errorf("batch tensor must be float64, got %v", d.Dtype())
	}
	if d.Dims() != 4 {
		return nil, errors.Errorf("batch tensor must have rank 4 (NCHW), got shape %v", d.Shape())
	}
	return &Batch{dense: d}, nil
}

// Normalize accepts a CHW image (rank 3) or an NCHW batch and returns a rank-4
// batch plus whether a leading batch axis was inserted, so callers that want
// to can collapse the result back to the input rank. The input tensor is not
// modified.
func Normalize(d *tensor.Dense) (*Batch, bool, error) {
	if d == nil {
		return nil, false, errors.New("nil tensor")
	}
	switch d.Dims() {
	case 3:
		shp := d.Shape()
		clone := d.Clone().(*tensor.Dense)
		if err := clone.Reshape(1, shp[0], shp[1], shp[2]); err != nil {
			return nil, false, err
		}
		b, err := FromDense(clone)
		return b, true, err
	case 4:
		b, err := FromDense(d)
		return b, false, err
	default:
		return nil, false, errors.Errorf("image tensor must have rank 3 or 4, got shape %v", d.Shape())
	}
}

// Dense returns the backing tensor.
func (b *Batch) Dense() *tensor.Dense { return b.dense }

// N returns the batch size.
func (b *Batch) N() int { return b.dense.Shape()[0] }

// C returns the channel count.
func (b *Batch) C() int { return b.dense.Shape()[1] }

// H returns the image height.
func (b *Batch) H() int { return b.dense.Shape()[2] }

// W returns the image width.
func (b *Batch) W() int { return b.dense.Shape()[3] }

// Data returns the flat backing slice in NCHW order.
func (b *Batch) Data() []float64 {
	return b.dense.Data().([]float64)
}

func (b *Batch) index(n, c, y, x int) int {
	return ((n*b.C()+c)*b.H()+y)*b.W() + x
}

// At returns the value at batch n, channel c, row y, column x.
func (b *Batch) At(n, c, y, x int) float64 {
	return b.Data()[b.index(n, c, y, x)]
}

// Set writes the value at batch n, channel c, row y, column x.
func (b *Batch) Set(n, c, y, x int, v float64) {
	b.Data()[b.index(n, c, y, x)] = v
}

// Clone returns a deep copy that shares no memory with b.
func (b *Batch) Clone() *Batch {
	return &Batch{dense: b.dense.Clone().(*tensor.Dense)}
}

// Host implements Frame. A Batch already lives in host memory.
func (b *Batch) Host() (*Batch, error) { return b, nil }

// Slice returns a copy of the single image at batch index n as a 1-batch.
func (b *Batch) Slice(n int) (*Batch, error) {
	if n < 0 || n >= b.N() {
		return nil, errors.Errorf("batch index %d out of range [0, %d)", n, b.N())
	}
	out, err := New(1, b.C(), b.H(), b.W())
	if err != nil {
		return nil, err
	}
	per := b.C() * b.H() * b.W()
	copy(out.Data(), b.Data()[n*per:(n+1)*per])
	return out, nil
}

// CheckChannels errors unless the batch has 1 or 3 channels.
func CheckChannels(b *Batch) error {
	if c := b.C(); c != 1 && c != 3 {
		return errors.Errorf("channel count must be 1 or 3, got %d", c)
	}
	return nil
}

// WidenToRGB tiles a 1-channel batch to 3 channels. A batch that already has
// 3 channels is returned unchanged, so the operation is idempotent.
func WidenToRGB(b *Batch) (*Batch, error) {
	switch b.C() {
	case 3:
		return b, nil
	case 1:
		rep, err := b.dense.Repeat(1, 3)
		if err != nil {
			return nil, errors.Wrap(err, "cannot widen batch to 3 channels")
		}
		return FromDense(rep.(*tensor.Dense))
	default:
		return nil, errors.Errorf("channel count must be 1 or 3, got %d", b.C())
	}
}

// RoundedCount converts a scalar-like object count to an integer, rounding
// half away from zero. The conversion is lossy and rejects negative or
// non-finite values.
func RoundedCount(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.Errorf("object count must be finite, got %v", v)
	}
	n := int(math.Round(v))
	if n < 0 {
		return 0, errors.Errorf("object count must be non-negative, got %v", v)
	}
	return n, nil
}
