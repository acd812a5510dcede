// Package ocr extracts text from permit images with an external tesseract
// binary. OCR is an optional capability: when the binary is absent the engine
// reports unavailable and the pipeline continues on the remaining evidence.
// Shelling out keeps the build pure-Go; a cgo libtesseract binding would make
// the degraded mode impossible to ship.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"permitgate/internal/platform/sentinel"
	"permitgate/internal/vision"
)

const runTimeout = 30 * time.Second

// Engine runs tesseract against preprocessed permit images.
type Engine struct {
	binary    string
	available bool
}

// New probes for the tesseract binary. Absence is logged once as a warning,
// not treated as an error.
func New(binary string, logger *slog.Logger) *Engine {
	if binary == "" {
		binary = "tesseract"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		logger.Warn("tesseract not found, OCR fallback unavailable", "binary", binary)
		return &Engine{binary: binary}
	}
	return &Engine{binary: path, available: true}
}

// Available reports whether the OCR binary was found.
func (e *Engine) Available() bool {
	return e != nil && e.available
}

// Extract OCRs the image at path after grayscale, CLAHE contrast enhancement,
// and Otsu binarization. An unavailable engine or empty output returns
// sentinel.ErrUnavailable; callers treat both as "no comparison data".
func (e *Engine) Extract(path string) (string, error) {
	if !e.Available() {
		return "", fmt.Errorf("ocr engine: %w", sentinel.ErrUnavailable)
	}

	img, err := vision.Load(path)
	if err != nil {
		return "", err
	}
	prepared := vision.OtsuBinarize(vision.CLAHE(vision.ToGray(img), 2.0, 8), false)

	tmp, err := os.CreateTemp("", "permitgate-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("ocr temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := png.Encode(tmp, prepared); err != nil {
		tmp.Close()
		return "", fmt.Errorf("ocr temp encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("ocr temp close: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	// "stdout" makes tesseract print recognized text instead of writing files.
	cmd := exec.CommandContext(ctx, e.binary, filepath.Clean(tmp.Name()), "stdout")
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %v (%s)", err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("ocr produced no text: %w", sentinel.ErrUnavailable)
	}
	return out.String(), nil
}
