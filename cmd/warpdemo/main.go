// Command warpdemo exercises the warp and annotate packages end to end: it
// places a random binary object on a canvas with a similarity pose, recovers
// the object back from the canvas, overlays the pose's bounding box, and
// writes every stage out as a PNG.
package main

import (
	"flag"
	"image"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"

	"github.com/wildphoton/attend-infer-repeat/annotate"
	"github.com/wildphoton/attend-infer-repeat/tensorimage"
	"github.com/wildphoton/attend-infer-repeat/warp"
)

func main() {
	objPtr := flag.Int("obj", 8, "object edge length in pixels")
	canvasPtr := flag.Int("canvas", 48, "canvas edge length in pixels")
	sPtr := flag.Float64("s", 6, "pose scale")
	xPtr := flag.Float64("x", 2, "pose x translation")
	yPtr := flag.Float64("y", 4, "pose y translation")
	outPtr := flag.String("out", ".", "directory for output images")
	seedPtr := flag.Int64("seed", 0, "random seed for the object pattern")
	flag.Parse()
	logger := golog.NewLogger("warpdemo")
	if err := run(*objPtr, *canvasPtr, warp.Pose{S: *sPtr, X: *xPtr, Y: *yPtr}, *outPtr, *seedPtr, logger); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}

func run(objEdge, canvasEdge int, pose warp.Pose, outDir string, seed int64, logger golog.Logger) error {
	obj, err := randomObject(objEdge, seed)
	if err != nil {
		return err
	}

	st, err := warp.NewTransformer(
		image.Point{X: objEdge, Y: objEdge},
		image.Point{X: canvasEdge, Y: canvasEdge},
	)
	if err != nil {
		return err
	}

	poses := []warp.Pose{pose}
	canvas, err := st.Forward(obj, poses)
	if err != nil {
		return err
	}
	logger.Infof("forward: object %dx%d -> canvas %dx%d with pose (s=%v, x=%v, y=%v)",
		objEdge, objEdge, canvas.H(), canvas.W(), pose.S, pose.X, pose.Y)

	recovered, err := st.Inverse(canvas, poses)
	if err != nil {
		return err
	}

	box, err := annotate.PoseBox(pose, canvasEdge, 1)
	if err != nil {
		return err
	}
	logger.Infof("pose box on canvas: x=[%d,%d) y=[%d,%d)", box.X1, box.X2, box.Y1, box.Y2)

	annotated, err := annotate.AddBox(canvas, pose, annotate.DefaultRed)
	if err != nil {
		return err
	}
	overlay, err := annotate.Overlay(canvas, poses, annotate.DefaultRed)
	if err != nil {
		return err
	}

	for name, b := range map[string]*tensorimage.Batch{
		"object.png":    obj,
		"canvas.png":    canvas,
		"recovered.png": recovered,
		"annotated.png": annotated,
	} {
		img, err := annotate.ToImage(b, 0)
		if err != nil {
			return err
		}
		if err := writePNG(filepath.Join(outDir, name), img); err != nil {
			return err
		}
	}
	return writePNG(filepath.Join(outDir, "overlay.png"), overlay)
}

// randomObject builds a 1x1xNxN batch of thresholded uniform noise, mostly
// on pixels.
func randomObject(edge int, seed int64) (*tensorimage.Batch, error) {
	b, err := tensorimage.New(1, 1, edge, edge)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	data := b.Data()
	for i := range data {
		if rng.Float64() < 0.8 {
			data[i] = 1
		}
	}
	return b, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
