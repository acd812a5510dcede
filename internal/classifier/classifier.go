// Package classifier wraps the pre-trained permit classifier artifact. The
// model is a gradient-boosting ensemble (XGBoost binary:logistic dump) loaded
// once at startup; the handle is read-only afterwards and safe for concurrent
// prediction. A missing or unloadable artifact degrades the classifier to
// unavailable instead of failing the process.
package classifier

import (
	"log/slog"

	"github.com/dmitryikh/leaves"

	"permitgate/internal/vision"
)

// Labels reported on predictions.
const (
	LabelAuthentic = "authentic"
	LabelNonPermit = "non_permit"
	LabelUnknown   = "unknown"
)

// Result is one classifier verdict. Available is false whenever the model is
// not loaded or feature extraction failed; callers treat that as "no ML
// evidence", never as a rejection.
type Result struct {
	Available  bool    `json:"available"`
	IsPermit   bool    `json:"is_permit"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label"`
}

// Classifier is the shared read-only model handle.
type Classifier struct {
	model *leaves.Ensemble
	// probability is true when the artifact loaded with its logistic
	// transformation, so predictions are class probabilities. Otherwise raw
	// margins are used with fixed confidences.
	probability bool
	logger      *slog.Logger
}

// New loads the model artifact at path. Load failure is logged once and
// returns a handle that reports Available() == false.
func New(path string, logger *slog.Logger) *Classifier {
	c := &Classifier{logger: logger}

	model, err := leaves.XGEnsembleFromFile(path, true)
	if err == nil {
		c.model = model
		c.probability = true
		logger.Info("permit classifier loaded", "path", path, "trees", model.NEstimators())
		return c
	}

	// Some artifacts dump without the objective transformation; retry raw and
	// fall back to hard predictions with fixed confidences.
	model, rawErr := leaves.XGEnsembleFromFile(path, false)
	if rawErr == nil {
		c.model = model
		logger.Info("permit classifier loaded without probability output", "path", path)
		return c
	}

	logger.Warn("permit classifier unavailable, continuing without ML evidence",
		"path", path, "error", err)
	return c
}

// Available reports whether the model loaded.
func (c *Classifier) Available() bool {
	return c != nil && c.model != nil
}

func unavailable() Result {
	return Result{Label: LabelUnknown}
}

// Predict runs the classifier on the image at path. It never panics past this
// boundary: any internal failure yields an unavailable result.
func (c *Classifier) Predict(path string) (result Result) {
	if !c.Available() {
		return unavailable()
	}

	features, err := vision.ExtractFeatures(path)
	if err != nil {
		return unavailable()
	}
	vec := features.Vector()

	defer func() {
		// leaves can panic on a vector/model shape mismatch; degrade instead.
		if r := recover(); r != nil {
			c.logger.Warn("classifier prediction panic", "recovered", r)
			result = unavailable()
		}
	}()

	pred := c.model.PredictSingle(vec, 0)

	var isPermit bool
	var confidence float64
	if c.probability {
		isPermit = pred >= 0.5
		confidence = pred
		if !isPermit {
			confidence = 1 - pred
		}
	} else {
		isPermit = pred > 0
		if isPermit {
			confidence = 0.85
		} else {
			confidence = 0.15
		}
	}

	label := LabelNonPermit
	if isPermit {
		label = LabelAuthentic
	}
	return Result{
		Available:  true,
		IsPermit:   isPermit,
		Confidence: confidence,
		Label:      label,
	}
}
