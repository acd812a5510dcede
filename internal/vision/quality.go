package vision

import "fmt"

// Quality gate thresholds. Blur was lowered from 50 to 30 and the brightness
// band widened from [40,220] after field testing with phone camera uploads.
const (
	minDimension  = 200
	minBlurScore  = 30.0
	minBrightness = 30.0
	maxBrightness = 230.0
)

// CheckQuality gates an upload before any expensive verification work. Rules
// run in order and the first failure wins; the message is user-actionable.
func CheckQuality(path string) (bool, string) {
	img, err := Load(path)
	if err != nil {
		return false, "Invalid image file"
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if h < minDimension || w < minDimension {
		return false, fmt.Sprintf("Image too small (%dx%d). Please upload at least 400x300.", w, h)
	}

	gray := ToGray(img)
	blur := LaplacianVariance(gray)
	if blur < minBlurScore {
		return false, fmt.Sprintf(
			"Image is too blurry (clarity %.0f/%.0f+). Please take a clearer photo of the QR code on your permit.",
			blur, minBlurScore)
	}

	brightness, _ := GrayStats(gray)
	if brightness < minBrightness || brightness > maxBrightness {
		return false, fmt.Sprintf(
			"Image brightness is poor (%.0f). Ensure good lighting when photographing the permit.",
			brightness)
	}

	return true, "Image quality OK"
}
