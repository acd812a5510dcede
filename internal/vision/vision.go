// Package vision provides the pure-Go raster operations the verification
// pipeline is built on: image decoding, grayscale kernels, binarization,
// contrast enhancement, the upload quality gate, and the fixed-order feature
// extractor consumed by the permit classifier.
//
// Decoding and high-level transforms (resize, sharpen, contrast) go through
// disintegration/imaging; the pixel-level kernels OpenCV would normally supply
// (Laplacian, Sobel, Otsu, CLAHE, morphology) are implemented here directly so
// the pipeline stays free of native dependencies.
package vision

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"permitgate/internal/platform/sentinel"
)

// Load decodes the image at path. It returns sentinel.ErrUnreadable when the
// bytes do not decode to a raster.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnreadable, err)
	}
	return img, nil
}

// ToGray converts to 8-bit grayscale using the BT.601 luma weights
// (0.299 R + 0.587 G + 0.114 B), matching the conversion the classifier
// features were trained against.
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, gr, bl, _ := img.At(x, y).RGBA()
			v := 0.299*float64(r>>8) + 0.587*float64(gr>>8) + 0.114*float64(bl>>8)
			g.SetGray(x-b.Min.X, y-b.Min.Y, colorGray(v))
		}
	}
	return g
}

// GrayStats returns the mean and population standard deviation of pixel values.
func GrayStats(g *image.Gray) (mean, std float64) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	n := float64(w * h)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, p := range row {
			sum += float64(p)
		}
	}
	mean = sum / n
	var sq float64
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, p := range row {
			d := float64(p) - mean
			sq += d * d
		}
	}
	return mean, math.Sqrt(sq / n)
}

// grayAt reads with replicated borders so kernels stay defined at the edges.
func grayAt(g *image.Gray, x, y int) float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if x < 0 {
		x = 0
	} else if x >= w {
		x = w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= h {
		y = h - 1
	}
	return float64(g.Pix[y*g.Stride+x])
}

func colorGray(v float64) color.Gray {
	if v < 0 {
		v = 0
	} else if v > 255 {
		v = 255
	}
	return color.Gray{Y: uint8(v + 0.5)}
}
