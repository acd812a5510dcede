package vision

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// FeatureNames fixes the order and length of the classifier input vector. The
// model artifact was trained against exactly this ordering; any change here
// requires retraining.
var FeatureNames = []string{
	// Quality (7)
	"blur_score", "brightness", "contrast", "image_area",
	"width", "height", "aspect_ratio",
	// Document structure (4)
	"num_contours", "max_contour_area", "avg_contour_area", "edge_density",
	// Text-like layout (3)
	"text_pixel_ratio", "horizontal_line_ratio", "text_region_count",
	// Color (4)
	"color_variance", "hue_entropy", "saturation_entropy", "value_entropy",
	// Edge (3)
	"edge_density_sobel", "corner_count", "edge_magnitude_mean",
	// QR code presence (2)
	"has_qr_code", "qr_area_ratio",
	// Texture (4)
	"lbp_mean", "lbp_std", "glcm_contrast", "glcm_homogeneity",
}

// FeatureCount is the fixed vector length.
const FeatureCount = 27

// FeatureSet holds named feature values for one image.
type FeatureSet map[string]float64

// Vector flattens the set into the fixed FeatureNames order. Missing keys
// become 0.0 so partial extraction failures never shift the vector shape.
func (f FeatureSet) Vector() []float64 {
	vec := make([]float64, len(FeatureNames))
	for i, name := range FeatureNames {
		if v, ok := f[name]; ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			vec[i] = v
		}
	}
	return vec
}

// ExtractFeatures computes every feature group on the image at path. All
// groups are pure functions of the decoded pixels, so repeated extraction on
// identical bytes yields identical vectors.
func ExtractFeatures(path string) (FeatureSet, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	gray := ToGray(img)

	features := make(FeatureSet, FeatureCount)
	qualityFeatures(gray, features)
	documentFeatures(gray, features)
	textLayoutFeatures(gray, features)
	colorFeatures(img, features)
	edgeFeatures(gray, features)
	qrFeatures(img, features)
	textureFeatures(gray, features)
	return features, nil
}

func qualityFeatures(gray *image.Gray, out FeatureSet) {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	mean, std := GrayStats(gray)
	out["blur_score"] = LaplacianVariance(gray)
	out["brightness"] = mean
	out["contrast"] = std
	out["image_area"] = float64(w * h)
	out["width"] = float64(w)
	out["height"] = float64(h)
	if h > 0 {
		out["aspect_ratio"] = float64(w) / float64(h)
	}
}

func documentFeatures(gray *image.Gray, out FeatureSet) {
	edges := CannyEdges(gray, 50, 150)
	w, h := edges.Rect.Dx(), edges.Rect.Dy()
	size := float64(w * h)

	comps := connectedComponents(edges)
	out["num_contours"] = float64(len(comps))

	var maxArea, sumArea float64
	significant := 0
	for _, area := range comps {
		if area > 100 {
			significant++
			sumArea += area
			if area > maxArea {
				maxArea = area
			}
		}
	}
	out["max_contour_area"] = maxArea
	if significant > 0 {
		out["avg_contour_area"] = sumArea / float64(significant)
	}

	edgePixels := 0
	for y := 0; y < h; y++ {
		for _, p := range edges.Pix[y*edges.Stride : y*edges.Stride+w] {
			if p > 0 {
				edgePixels++
			}
		}
	}
	if size > 0 {
		out["edge_density"] = float64(edgePixels) / size
	}
}

// textLayoutFeatures are vision-only text metrics: no OCR engine involved, so
// the classifier stays usable on machines without tesseract.
func textLayoutFeatures(gray *image.Gray, out FeatureSet) {
	binary := OtsuBinarize(gray, true)
	w, h := binary.Rect.Dx(), binary.Rect.Dy()
	size := float64(w * h)
	if size == 0 {
		return
	}

	ink := 0
	rowSums := make([]float64, h)
	for y := 0; y < h; y++ {
		for _, p := range binary.Pix[y*binary.Stride : y*binary.Stride+w] {
			if p > 0 {
				ink++
			}
			rowSums[y] += float64(p)
		}
	}
	out["text_pixel_ratio"] = float64(ink) / size

	// Horizontal projection peaks approximate the number of text lines.
	var maxRow float64
	for _, s := range rowSums {
		if s > maxRow {
			maxRow = s
		}
	}
	threshold := 1.0
	if maxRow > 0 {
		threshold = 0.1 * maxRow
	}
	peaks := 0
	prevAbove := false
	for _, s := range rowSums {
		above := s > threshold
		if above && !prevAbove {
			peaks++
		}
		prevAbove = above
	}
	out["text_region_count"] = float64(peaks)

	hLines := MorphOpenHorizontal(binary, 40)
	linePixels := 0
	for y := 0; y < h; y++ {
		for _, p := range hLines.Pix[y*hLines.Stride : y*hLines.Stride+w] {
			if p > 0 {
				linePixels++
			}
		}
	}
	out["horizontal_line_ratio"] = float64(linePixels) / size
}

func colorFeatures(img image.Image, out FeatureSet) {
	b := img.Bounds()
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return
	}

	var histH [180]float64
	var histS, histV [256]float64
	var sumR, sumG, sumB, sqR, sqG, sqB float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r16, g16, b16, _ := img.At(x, y).RGBA()
			r, g, bl := float64(r16>>8), float64(g16>>8), float64(b16>>8)
			sumR += r
			sumG += g
			sumB += bl
			sqR += r * r
			sqG += g * g
			sqB += bl * bl

			hue, sat, val := rgbToHSV(r, g, bl)
			histH[min(179, int(hue))]++
			histS[min(255, int(sat))]++
			histV[min(255, int(val))]++
		}
	}
	out["color_variance"] = (sqR/n - (sumR/n)*(sumR/n)) + (sqG/n - (sumG/n)*(sumG/n)) + (sqB/n - (sumB/n)*(sumB/n))
	out["hue_entropy"] = histEntropy(histH[:])
	out["saturation_entropy"] = histEntropy(histS[:])
	out["value_entropy"] = histEntropy(histV[:])
}

// histEntropy is the raw-count entropy measure the model was trained with:
// sum(hist * log(hist + 1)), not normalized Shannon entropy.
func histEntropy(hist []float64) float64 {
	var sum float64
	for _, c := range hist {
		sum += c * math.Log(c+1)
	}
	return sum
}

// rgbToHSV converts to OpenCV-style HSV: H in [0,180), S and V in [0,255].
func rgbToHSV(r, g, b float64) (h, s, v float64) {
	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	v = maxC
	delta := maxC - minC
	if maxC > 0 {
		s = delta / maxC * 255
	}
	if delta > 0 {
		switch maxC {
		case r:
			h = 60 * (g - b) / delta
		case g:
			h = 120 + 60*(b-r)/delta
		default:
			h = 240 + 60*(r-g)/delta
		}
		if h < 0 {
			h += 360
		}
		h /= 2
	}
	return h, s, v
}

func edgeFeatures(gray *image.Gray, out FeatureSet) {
	mag := SobelMagnitude(gray)
	if len(mag) == 0 {
		return
	}
	strong := 0
	var sum float64
	for _, m := range mag {
		if m > 100 {
			strong++
		}
		sum += m
	}
	out["edge_density_sobel"] = float64(strong) / float64(len(mag))
	out["edge_magnitude_mean"] = sum / float64(len(mag))
	out["corner_count"] = float64(HarrisCornerCount(gray))
}

// qrFeatures is a single fast QR geometry probe used only as a classifier
// signal. The full multi-strategy decode lives in the qrscan package.
func qrFeatures(img image.Image, out FeatureSet) {
	out["has_qr_code"] = 0
	out["qr_area_ratio"] = 0

	src := gozxing.NewLuminanceSourceFromImage(img)
	bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(src))
	if err != nil {
		return
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return
	}
	points := result.GetResultPoints()
	if len(points) < 3 {
		out["has_qr_code"] = 1
		return
	}
	qrW := math.Hypot(points[0].GetX()-points[1].GetX(), points[0].GetY()-points[1].GetY())
	qrH := math.Hypot(points[1].GetX()-points[2].GetX(), points[1].GetY()-points[2].GetY())
	imgArea := float64(img.Bounds().Dx() * img.Bounds().Dy())
	out["has_qr_code"] = 1
	if imgArea > 0 {
		out["qr_area_ratio"] = qrW * qrH / imgArea
	}
}

const textureSize = 256

func textureFeatures(gray *image.Gray, out FeatureSet) {
	small := ToGray(imaging.Resize(gray, textureSize, textureSize, imaging.Linear))
	w, h := small.Rect.Dx(), small.Rect.Dy()
	if w == 0 || h == 0 {
		return
	}

	// 8-neighbor local binary pattern with wraparound shifts.
	offsets := [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}}
	lbp := make([]float64, w*h)
	for _, off := range offsets {
		dy, dx := off[0], off[1]
		for y := 0; y < h; y++ {
			sy := ((y-dy)%h + h) % h
			for x := 0; x < w; x++ {
				sx := ((x-dx)%w + w) % w
				bit := 0.0
				if small.Pix[sy*small.Stride+sx] >= small.Pix[y*small.Stride+x] {
					bit = 1.0
				}
				lbp[y*w+x] = lbp[y*w+x]*2 + bit
			}
		}
	}
	var sum float64
	for _, v := range lbp {
		sum += v
	}
	mean := sum / float64(len(lbp))
	var sq float64
	for _, v := range lbp {
		d := v - mean
		sq += d * d
	}
	out["lbp_mean"] = mean
	out["lbp_std"] = math.Sqrt(sq / float64(len(lbp)))

	// Co-occurrence contrast and homogeneity at a 1-pixel horizontal offset.
	var contrast, homogeneity float64
	pairs := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w-1; x++ {
			d := math.Abs(float64(small.Pix[y*small.Stride+x]) - float64(small.Pix[y*small.Stride+x+1]))
			contrast += d * d
			homogeneity += 1 / (1 + d)
			pairs++
		}
	}
	if pairs > 0 {
		out["glcm_contrast"] = contrast / float64(pairs)
		out["glcm_homogeneity"] = homogeneity / float64(pairs)
	}
}

// connectedComponents labels 8-connected edge pixels and returns the bounding
// box area of each component, the contour-area proxy used by the document
// structure features.
func connectedComponents(edges *image.Gray) []float64 {
	w, h := edges.Rect.Dx(), edges.Rect.Dy()
	visited := make([]bool, w*h)
	var areas []float64
	var stack []int
	for start := 0; start < w*h; start++ {
		if visited[start] || edges.Pix[start/w*edges.Stride+start%w] == 0 {
			continue
		}
		minX, minY, maxX, maxY := start%w, start/w, start%w, start/w
		visited[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					j := ny*w + nx
					if !visited[j] && edges.Pix[ny*edges.Stride+nx] > 0 {
						visited[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
		areas = append(areas, float64((maxX-minX+1)*(maxY-minY+1)))
	}
	return areas
}
