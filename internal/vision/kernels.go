package vision

import (
	"image"
	"math"
)

// LaplacianVariance is the blur metric: variance of the 4-neighbor Laplacian
// response. Sharp images have high-variance edge responses; a flat response
// means the image is blurred.
func LaplacianVariance(g *image.Gray) float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	n := float64(w * h)
	if n == 0 {
		return 0
	}
	resp := make([]float64, w*h)
	var sum float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := grayAt(g, x-1, y) + grayAt(g, x+1, y) + grayAt(g, x, y-1) + grayAt(g, x, y+1) - 4*grayAt(g, x, y)
			resp[y*w+x] = v
			sum += v
		}
	}
	mean := sum / n
	var sq float64
	for _, v := range resp {
		d := v - mean
		sq += d * d
	}
	return sq / n
}

// LaplacianAbs returns the absolute Laplacian response clamped to 8 bits. Used
// as a QR preprocessing variant to exaggerate module boundaries.
func LaplacianAbs(g *image.Gray) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := grayAt(g, x-1, y) + grayAt(g, x+1, y) + grayAt(g, x, y-1) + grayAt(g, x, y+1) - 4*grayAt(g, x, y)
			out.SetGray(x, y, colorGray(math.Abs(v)))
		}
	}
	return out
}

// SobelMagnitude computes the 3x3 Sobel gradient magnitude per pixel.
func SobelMagnitude(g *image.Gray) []float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	mag := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -grayAt(g, x-1, y-1) + grayAt(g, x+1, y-1) +
				-2*grayAt(g, x-1, y) + 2*grayAt(g, x+1, y) +
				-grayAt(g, x-1, y+1) + grayAt(g, x+1, y+1)
			gy := -grayAt(g, x-1, y-1) - 2*grayAt(g, x, y-1) - grayAt(g, x+1, y-1) +
				grayAt(g, x-1, y+1) + 2*grayAt(g, x, y+1) + grayAt(g, x+1, y+1)
			mag[y*w+x] = math.Hypot(gx, gy)
		}
	}
	return mag
}

// HarrisCornerCount counts pixels whose Harris corner response exceeds 1% of
// the maximum response (k = 0.04, 2x2 window).
func HarrisCornerCount(g *image.Gray) int {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w < 3 || h < 3 {
		return 0
	}
	ix := make([]float64, w*h)
	iy := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ix[y*w+x] = (grayAt(g, x+1, y) - grayAt(g, x-1, y)) / 2
			iy[y*w+x] = (grayAt(g, x, y+1) - grayAt(g, x, y-1)) / 2
		}
	}
	resp := make([]float64, w*h)
	var maxR float64
	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			var sxx, syy, sxy float64
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					i := (y+dy)*w + (x + dx)
					sxx += ix[i] * ix[i]
					syy += iy[i] * iy[i]
					sxy += ix[i] * iy[i]
				}
			}
			r := sxx*syy - sxy*sxy - 0.04*(sxx+syy)*(sxx+syy)
			resp[y*w+x] = r
			if r > maxR {
				maxR = r
			}
		}
	}
	if maxR <= 0 {
		return 0
	}
	count := 0
	for _, r := range resp {
		if r > 0.01*maxR {
			count++
		}
	}
	return count
}

// CannyEdges produces a binary edge map: Sobel gradient, non-maximum
// suppression along the gradient direction, then double-threshold hysteresis.
func CannyEdges(g *image.Gray, low, high float64) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	mag := make([]float64, w*h)
	dir := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -grayAt(g, x-1, y-1) + grayAt(g, x+1, y-1) +
				-2*grayAt(g, x-1, y) + 2*grayAt(g, x+1, y) +
				-grayAt(g, x-1, y+1) + grayAt(g, x+1, y+1)
			gy := -grayAt(g, x-1, y-1) - 2*grayAt(g, x, y-1) - grayAt(g, x+1, y-1) +
				grayAt(g, x-1, y+1) + 2*grayAt(g, x, y+1) + grayAt(g, x+1, y+1)
			i := y*w + x
			mag[i] = math.Hypot(gx, gy)
			dir[i] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression: keep a pixel only if it is the local max along
	// its quantized gradient direction.
	thin := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			angle := math.Mod(dir[i]+math.Pi, math.Pi)
			var a, b float64
			switch {
			case angle < math.Pi/8 || angle >= 7*math.Pi/8:
				a, b = mag[i-1], mag[i+1]
			case angle < 3*math.Pi/8:
				a, b = mag[i-w+1], mag[i+w-1]
			case angle < 5*math.Pi/8:
				a, b = mag[i-w], mag[i+w]
			default:
				a, b = mag[i-w-1], mag[i+w+1]
			}
			if mag[i] >= a && mag[i] >= b {
				thin[i] = mag[i]
			}
		}
	}

	const (
		weak   = 1
		strong = 2
	)
	state := make([]uint8, w*h)
	var stack []int
	for i, v := range thin {
		if v >= high {
			state[i] = strong
			stack = append(stack, i)
		} else if v >= low {
			state[i] = weak
		}
	}
	// Promote weak edges connected to strong ones.
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for i, s := range state {
		if s == strong {
			out.Pix[i/w*out.Stride+i%w] = 255
		}
	}
	return out
}
