package annotate

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"github.com/wildphoton/attend-infer-repeat/tensorimage"
	"github.com/wildphoton/attend-infer-repeat/warp"
)

// ToImage converts batch element n into a standard RGBA image, clamping
// values to [0, 1]. A 1-channel image renders as grayscale.
func ToImage(b *tensorimage.Batch, n int) (image.Image, error) {
	if n < 0 || n >= b.N() {
		return nil, errors.Errorf("batch index %d out of range [0, %d)", n, b.N())
	}
	if err := tensorimage.CheckChannels(b); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, b.W(), b.H()))
	for y := 0; y < b.H(); y++ {
		for x := 0; x < b.W(); x++ {
			var r, g, bl float64
			if b.C() == 1 {
				r = b.At(n, 0, y, x)
				g, bl = r, r
			} else {
				r = b.At(n, 0, y, x)
				g = b.At(n, 1, y, x)
				bl = b.At(n, 2, y, x)
			}
			img.SetRGBA(x, y, color.RGBA{
				R: clampByte(r),
				G: clampByte(g),
				B: clampByte(bl),
				A: 255,
			})
		}
	}
	return img, nil
}

// Overlay renders the first image of a batch and strokes each pose's box on
// top of it, returning a displayable image. Unlike AddBoxes this draws with
// an antialiased rasterizer rather than writing raw pixels, so it is the
// right choice for human-facing output but not for pixel-exact fixtures.
func Overlay(b *tensorimage.Batch, poses []warp.Pose, c Color) (image.Image, error) {
	base, err := ToImage(b, 0)
	if err != nil {
		return nil, err
	}
	dc := gg.NewContextForImage(base)
	dc.SetRGB(c.R, c.G, c.B)
	dc.SetLineWidth(1)
	for i, pose := range poses {
		box, err := PoseBox(pose, b.H(), 1)
		if err != nil {
			return nil, errors.Wrapf(err, "pose %d", i)
		}
		dc.DrawLine(float64(box.X1), float64(box.Y1), float64(box.X2-1), float64(box.Y1))
		dc.Stroke()
		dc.DrawLine(float64(box.X1), float64(box.Y2-1), float64(box.X2-1), float64(box.Y2-1))
		dc.Stroke()
		dc.DrawLine(float64(box.X1), float64(box.Y1), float64(box.X1), float64(box.Y2-1))
		dc.Stroke()
		dc.DrawLine(float64(box.X2-1), float64(box.Y1), float64(box.X2-1), float64(box.Y2-1))
		dc.Stroke()
	}
	return dc.Image(), nil
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
