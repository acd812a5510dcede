// Package qrscan finds and decodes the QR code on a permit image. Phone
// photos of laminated permits defeat a single decode pass often enough that
// the scanner runs a fixed, ordered sequence of preprocessing variants and
// takes the first successful decode; the ordering is part of the contract so
// a given image always decodes the same way.
package qrscan

import (
	"image"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	"permitgate/internal/vision"
)

// MethodOCRFallback tags payloads recovered by OCR after every image variant
// failed to decode.
const MethodOCRFallback = "ocr-fallback"

// FailureMessage is the user-facing text for a permit with no recoverable QR.
const FailureMessage = "No QR code detected. Please ensure the QR code on your " +
	"DTI Business Permit is clearly visible and not obstructed."

// Result is the outcome of one scan.
type Result struct {
	Success bool   `json:"success"`
	Payload string `json:"payload,omitempty"`
	// Method identifies the preprocessing variant that produced the payload,
	// or MethodOCRFallback.
	Method string `json:"method,omitempty"`
	Err    string `json:"error,omitempty"`
}

// TextExtractor is the OCR fallback dependency. It may be nil or unavailable.
type TextExtractor interface {
	Available() bool
	Extract(path string) (string, error)
}

// Scanner decodes QR payloads from permit images.
type Scanner struct {
	ocr    TextExtractor
	logger *slog.Logger
}

func NewScanner(ocr TextExtractor, logger *slog.Logger) *Scanner {
	return &Scanner{ocr: ocr, logger: logger}
}

// Scan tries every preprocessing variant in order, then falls back to OCR.
func (s *Scanner) Scan(path string) Result {
	img, err := vision.Load(path)
	if err != nil {
		return Result{Err: "Invalid image file"}
	}

	for _, v := range variants(img) {
		payload, ok := decode(v.image)
		if !ok {
			continue
		}
		s.logger.Info("qr decoded", "method", v.name, "payload_length", len(payload))
		return Result{Success: true, Payload: payload, Method: v.name}
	}

	if s.ocr != nil && s.ocr.Available() {
		if text, err := s.ocr.Extract(path); err == nil && strings.TrimSpace(text) != "" {
			s.logger.Info("qr not found, using ocr fallback", "text_length", len(text))
			return Result{Success: true, Payload: text, Method: MethodOCRFallback}
		}
	}

	return Result{Err: FailureMessage}
}

type variant struct {
	name  string
	image image.Image
}

// variants yields the deterministic preprocessing sequence. Order matters:
// cheap variants first, aggressive ones later, and the upscale step only for
// small images where QR modules may sit below the sampling resolution.
func variants(img image.Image) []variant {
	gray := vision.ToGray(img)
	otsu := vision.OtsuBinarize(gray, false)

	vs := []variant{
		{"original", img},
		{"grayscale", gray},
		{"high-contrast", imaging.AdjustContrast(gray, 60)},
		{"sharpened", imaging.Sharpen(img, 1.0)},
		{"adaptive-threshold", vision.AdaptiveThreshold(gray, 11, 2)},
		{"otsu", otsu},
		{"inverted-otsu", vision.InvertGray(otsu)},
	}
	if gray.Rect.Dy() < 1000 {
		upscaled := vision.ToGray(imaging.Resize(gray, gray.Rect.Dx()*2, gray.Rect.Dy()*2, imaging.CatmullRom))
		vs = append(vs, variant{"upscaled-otsu", vision.OtsuBinarize(upscaled, false)})
	}
	vs = append(vs,
		variant{"laplacian-enhanced", vision.LaplacianAbs(gray)},
		variant{"histogram-equalized", vision.EqualizeHist(gray)},
		variant{"morphology-closed", vision.MorphClose(otsu, 3)},
		variant{"clahe", vision.CLAHE(gray, 2.0, 8)},
	)
	return vs
}

// decode runs a QR-only pass first for speed, then an any-symbology pass so
// permits carrying 1D registration barcodes still resolve.
func decode(img image.Image) (string, bool) {
	src := gozxing.NewLuminanceSourceFromImage(img)
	bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(src))
	if err != nil {
		return "", false
	}

	if result, err := qrcode.NewQRCodeReader().Decode(bmp, nil); err == nil {
		if text := strings.TrimSpace(result.GetText()); text != "" {
			return text, true
		}
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	if result, err := oned.NewMultiFormatUPCEANReader(hints).Decode(bmp, hints); err == nil {
		if text := strings.TrimSpace(result.GetText()); text != "" {
			return text, true
		}
	}
	return "", false
}
