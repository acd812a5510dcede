package verify

import (
	"context"

	"golang.org/x/sync/errgroup"

	"permitgate/internal/classifier"
	"permitgate/internal/qrscan"
)

// Classifier is the ML evidence dependency.
type Classifier interface {
	Available() bool
	Predict(path string) classifier.Result
}

// QRScanner is the QR evidence dependency.
type QRScanner interface {
	Scan(path string) qrscan.Result
}

// TextExtractor is the OCR dependency used for QR-vs-permit comparison.
type TextExtractor interface {
	Available() bool
	Extract(path string) (string, error)
}

type evidence struct {
	ml classifier.Result
	qr qrscan.Result
}

// gatherEvidence runs the classifier and the QR scan concurrently. Both are
// CPU-bound on the same image and neither depends on the other's output.
func (s *Service) gatherEvidence(ctx context.Context, path string) evidence {
	var ev evidence
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		ev.ml = s.classifier.Predict(path)
		return nil
	})
	g.Go(func() error {
		ev.qr = s.scanner.Scan(path)
		return nil
	})
	_ = g.Wait()
	return ev
}
