package vision

import "image"

// EqualizeHist applies global histogram equalization.
func EqualizeHist(g *image.Gray) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	total := w * h
	out := image.NewGray(image.Rect(0, 0, w, h))
	if total == 0 {
		return out
	}
	var hist [256]int
	for y := 0; y < h; y++ {
		for _, p := range g.Pix[y*g.Stride : y*g.Stride+w] {
			hist[p]++
		}
	}
	var lut [256]uint8
	cum := 0
	for i := 0; i < 256; i++ {
		cum += hist[i]
		lut[i] = uint8(float64(cum) * 255 / float64(total))
	}
	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, p := range src {
			dst[x] = lut[p]
		}
	}
	return out
}

// CLAHE is contrast-limited adaptive histogram equalization over a tiles x
// tiles grid, with histogram clipping at clipLimit times the uniform bin count
// and bilinear interpolation between tile mappings.
func CLAHE(g *image.Gray, clipLimit float64, tiles int) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 || tiles < 1 {
		return out
	}
	tw := (w + tiles - 1) / tiles
	th := (h + tiles - 1) / tiles

	luts := make([][256]uint8, tiles*tiles)
	for ty := 0; ty < tiles; ty++ {
		for tx := 0; tx < tiles; tx++ {
			x0, y0 := tx*tw, ty*th
			x1, y1 := min(w, x0+tw), min(h, y0+th)
			var hist [256]float64
			count := 0
			for y := y0; y < y1; y++ {
				for _, p := range g.Pix[y*g.Stride+x0 : y*g.Stride+x1] {
					hist[p]++
					count++
				}
			}
			if count == 0 {
				continue
			}
			clip := clipLimit * float64(count) / 256
			var excess float64
			for i := range hist {
				if hist[i] > clip {
					excess += hist[i] - clip
					hist[i] = clip
				}
			}
			redist := excess / 256
			var cum float64
			var lut [256]uint8
			for i := 0; i < 256; i++ {
				cum += hist[i] + redist
				v := cum * 255 / float64(count)
				if v > 255 {
					v = 255
				}
				lut[i] = uint8(v)
			}
			luts[ty*tiles+tx] = lut
		}
	}

	// Bilinear interpolation between the four surrounding tile mappings.
	for y := 0; y < h; y++ {
		fy := (float64(y) - float64(th)/2) / float64(th)
		ty0 := int(fy)
		if fy < 0 {
			ty0 = 0
			fy = 0
		}
		ty1 := min(tiles-1, ty0+1)
		if ty0 > tiles-1 {
			ty0, ty1 = tiles-1, tiles-1
		}
		wy := fy - float64(ty0)
		if wy < 0 {
			wy = 0
		} else if wy > 1 {
			wy = 1
		}
		for x := 0; x < w; x++ {
			fx := (float64(x) - float64(tw)/2) / float64(tw)
			tx0 := int(fx)
			if fx < 0 {
				tx0 = 0
				fx = 0
			}
			tx1 := min(tiles-1, tx0+1)
			if tx0 > tiles-1 {
				tx0, tx1 = tiles-1, tiles-1
			}
			wx := fx - float64(tx0)
			if wx < 0 {
				wx = 0
			} else if wx > 1 {
				wx = 1
			}
			p := g.Pix[y*g.Stride+x]
			v := (1-wy)*((1-wx)*float64(luts[ty0*tiles+tx0][p])+wx*float64(luts[ty0*tiles+tx1][p])) +
				wy*((1-wx)*float64(luts[ty1*tiles+tx0][p])+wx*float64(luts[ty1*tiles+tx1][p]))
			out.Pix[y*out.Stride+x] = uint8(v + 0.5)
		}
	}
	return out
}

// MorphClose applies grayscale closing (dilation then erosion) with a k x k
// square structuring element. On binary images this fills small gaps between
// QR modules.
func MorphClose(g *image.Gray, k int) *image.Gray {
	return erode(dilate(g, k, k), k, k)
}

// MorphOpenHorizontal applies opening (erosion then dilation) with a 1 x width
// horizontal element, isolating horizontal runs such as text lines.
func MorphOpenHorizontal(g *image.Gray, width int) *image.Gray {
	return dilate(erode(g, width, 1), width, 1)
}

func dilate(g *image.Gray, kw, kh int) *image.Gray {
	return morph(g, kw, kh, func(best, v uint8) bool { return v > best })
}

func erode(g *image.Gray, kw, kh int) *image.Gray {
	return morph(g, kw, kh, func(best, v uint8) bool { return v < best })
}

func morph(g *image.Gray, kw, kh int, better func(best, v uint8) bool) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	rx, ry := kw/2, kh/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			best := g.Pix[y*g.Stride+x]
			for dy := -ry; dy <= ry; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -rx; dx <= rx; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					if v := g.Pix[ny*g.Stride+nx]; better(best, v) {
						best = v
					}
				}
			}
			out.Pix[y*out.Stride+x] = best
		}
	}
	return out
}
