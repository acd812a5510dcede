package vision

import "image"

// OtsuLevel computes the Otsu threshold from the grayscale histogram.
func OtsuLevel(g *image.Gray) uint8 {
	var hist [256]int
	w, h := g.Rect.Dx(), g.Rect.Dy()
	total := w * h
	if total == 0 {
		return 0
	}
	for y := 0; y < h; y++ {
		for _, p := range g.Pix[y*g.Stride : y*g.Stride+w] {
			hist[p]++
		}
	}
	var sum float64
	for i, c := range hist {
		sum += float64(i) * float64(c)
	}
	var sumB, wB float64
	var best float64
	var level uint8
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			level = uint8(t)
		}
	}
	return level
}

// Threshold binarizes to 0/255 at the given level. With inverted set, pixels
// at or below the level become foreground instead.
func Threshold(g *image.Gray, level uint8, inverted bool) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, p := range src {
			fg := p > level
			if inverted {
				fg = !fg
			}
			if fg {
				dst[x] = 255
			}
		}
	}
	return out
}

// OtsuBinarize is Threshold at the Otsu level.
func OtsuBinarize(g *image.Gray, inverted bool) *image.Gray {
	return Threshold(g, OtsuLevel(g), inverted)
}

// AdaptiveThreshold binarizes against the local window mean minus c. Window is
// the side length of the averaging neighborhood (odd, e.g. 11).
func AdaptiveThreshold(g *image.Gray, window int, c float64) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	r := window / 2

	// Summed-area table for O(1) window means.
	sat := make([]float64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum float64
		for x := 0; x < w; x++ {
			rowSum += float64(g.Pix[y*g.Stride+x])
			sat[(y+1)*(w+1)+x+1] = sat[y*(w+1)+x+1] + rowSum
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := max(0, x-r), max(0, y-r)
			x1, y1 := min(w-1, x+r), min(h-1, y+r)
			area := float64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := sat[(y1+1)*(w+1)+x1+1] - sat[y0*(w+1)+x1+1] - sat[(y1+1)*(w+1)+x0] + sat[y0*(w+1)+x0]
			if float64(g.Pix[y*g.Stride+x]) > sum/area-c {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// InvertGray flips pixel values, for white-on-black QR codes.
func InvertGray(g *image.Gray) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, p := range src {
			dst[x] = 255 - p
		}
	}
	return out
}
