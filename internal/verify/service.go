package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"permitgate/internal/classifier"
	"permitgate/internal/names"
	"permitgate/internal/permitfields"
	"permitgate/internal/qrscan"
	"permitgate/internal/registry"
	"permitgate/internal/verify/metrics"
	"permitgate/internal/vision"
)

// Decision-tree constants. These weights were tuned against a labeled corpus
// of accepted and rejected permits; change them together or not at all.
const (
	// registryBaseConfidence applies once the BNRS page confirms the permit.
	registryBaseConfidence = 0.90
	// nameMatchBoost / nameMismatchPenalty adjust the registry confidence by
	// the outcome of the name cross-check.
	nameMatchBoost      = 0.05
	nameMismatchPenalty = 0.20
	// nameMismatchFloor is the cross-check score below which clearly
	// mismatched names reject the permit outright.
	nameMismatchFloor = 0.4
	// mlAgreementWeight scales the ML confidence added on top of a confirmed
	// registry result, capped at maxConfidence.
	mlAgreementWeight = 0.04
	maxConfidence     = 0.99

	// unreachableMLThreshold gates the ML tiebreak when BNRS is down.
	unreachableMLThreshold = 0.7
	unreachableConfidence  = 0.75
	pendingConfidence      = 0.5
	inconclusiveConfidence = 0.4

	// Text-based QR composite weights: text match, name match, ML.
	textWeight = 0.4
	nameWeight = 0.4
	mlWeight   = 0.2

	textQRAcceptThreshold = 0.65
	textQRAcceptCap       = 0.95
	textOnlyThreshold     = 0.7
	textOnlyCap           = 0.85

	// ML-only fallback when no QR was found anywhere on the image.
	mlOnlyThreshold    = 0.8
	mlOnlyScale        = 0.7
	mlRejectConfidence = 0.1
)

// RegistryClient validates a QR URL against the BNRS.
type RegistryClient interface {
	Validate(ctx context.Context, url string) registry.Record
}

// Recorder persists finished verifications for the audit trail.
type Recorder interface {
	Record(ctx context.Context, req Request, result *Result)
}

// Service orchestrates the verification pipeline.
type Service struct {
	classifier Classifier
	scanner    QRScanner
	ocr        TextExtractor
	registry   RegistryClient
	recorder   Recorder
	metrics    *metrics.Metrics
	logger     *slog.Logger
	sem        *semaphore.Weighted

	// checkQuality is swappable for tests; production wiring uses the image
	// quality gate.
	checkQuality func(path string) (bool, string)
}

// NewService wires the pipeline. maxConcurrent bounds simultaneous
// verifications; the image stages hold whole decoded frames in memory.
func NewService(
	cls Classifier,
	scanner QRScanner,
	ocr TextExtractor,
	reg RegistryClient,
	recorder Recorder,
	m *metrics.Metrics,
	logger *slog.Logger,
	maxConcurrent int64,
) *Service {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Service{
		classifier:   cls,
		scanner:      scanner,
		ocr:          ocr,
		registry:     reg,
		recorder:     recorder,
		metrics:      m,
		logger:       logger,
		sem:          semaphore.NewWeighted(maxConcurrent),
		checkQuality: vision.CheckQuality,
	}
}

// Capabilities reports which optional stages are live.
func (s *Service) Capabilities() Capabilities {
	return Capabilities{
		Classifier: s.classifier != nil && s.classifier.Available(),
		QRDecode:   s.scanner != nil,
		OCR:        s.ocr != nil && s.ocr.Available(),
	}
}

// Verify runs the full pipeline for one uploaded permit image and records the
// outcome. The returned Result is always non-nil.
func (s *Service) Verify(ctx context.Context, req Request) (*Result, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire verification slot: %w", err)
	}
	defer s.sem.Release(1)

	start := time.Now()
	result := s.run(ctx, req)
	s.metrics.ObserveVerify(time.Since(start))
	s.metrics.IncrementOutcome(decisionLabel(result))

	s.logger.Info("verification finished",
		"user_id", req.UserID,
		"valid", result.Valid,
		"confidence", result.Confidence,
		"duration", time.Since(start),
	)

	if s.recorder != nil {
		s.recorder.Record(ctx, req, result)
	}
	return result, nil
}

func (s *Service) run(ctx context.Context, req Request) *Result {
	result := newResult(req)

	qualityStart := time.Now()
	qualityOK, qualityMsg := s.checkQuality(req.FilePath)
	s.metrics.ObserveStage("quality", time.Since(qualityStart))
	result.QualityCheck = &StageCheck{Passed: qualityOK, Message: qualityMsg}
	if !qualityOK {
		result.Validation.Message = qualityMsg
		return result
	}

	evidenceStart := time.Now()
	ev := s.gatherEvidence(ctx, req.FilePath)
	s.metrics.ObserveStage("evidence", time.Since(evidenceStart))

	ml := ev.ml
	result.MLPrediction = &ml

	qr := ev.qr
	if qr.Success {
		s.metrics.IncrementQRDecode(qr.Method)
		result.QRScan = &StageCheck{
			Passed:  true,
			Message: fmt.Sprintf("QR decoded (%s)", qr.Method),
			Method:  qr.Method,
		}
		result.QRData = qr.Payload
		result.ExtractedText = qr.Payload
		return s.decideWithQR(ctx, req, result, ml, qr)
	}

	result.QRScan = &StageCheck{Passed: false, Message: qr.Err}
	return s.decideWithoutQR(result, ml, qr)
}

// decideWithQR handles every branch where a QR payload was recovered.
func (s *Service) decideWithQR(ctx context.Context, req Request, result *Result, ml classifier.Result, qr qrscan.Result) *Result {
	qrFields := permitfields.ParseQR(qr.Payload)

	// The QR payload is compared against what OCR reads off the permit face,
	// regardless of which branch decides below.
	ocrText, ocrOK := s.extractText(req.FilePath)
	if ocrOK {
		comparison := permitfields.Compare(qrFields, permitfields.ParseOCR(ocrText))
		result.TextVerification = &comparison
	} else {
		result.TextVerification = &permitfields.Comparison{
			Details:    "Could not extract text from permit image for verification",
			Mismatches: []string{},
		}
	}

	if registry.IsRegistryURL(qr.Payload) {
		result.RegistryURLValid = true
		return s.decideWithRegistry(ctx, req, result, ml, qr.Payload)
	}
	return s.decideWithTextQR(req, result, ml, qrFields, ocrOK)
}

// decideWithRegistry handles QR payloads that point at a BNRS page.
func (s *Service) decideWithRegistry(ctx context.Context, req Request, result *Result, ml classifier.Result, qrURL string) *Result {
	info := registry.ExtractBusinessInfo(qrURL)
	result.BusinessInfo = &info

	registryStart := time.Now()
	rec := s.registry.Validate(ctx, qrURL)
	s.metrics.ObserveStage("registry", time.Since(registryStart))
	s.metrics.IncrementRegistryLookup(string(rec.Outcome))
	result.Registry = &rec

	check := names.Check(req.BusinessName, req.OwnerName, rec.BusinessName, rec.OwnerName)
	result.NameVerification = &check

	if rec.Confirmed {
		confidence := registryBaseConfidence
		switch {
		case check.OverallMatch:
			confidence += nameMatchBoost
		case check.Score < nameMismatchFloor && (rec.BusinessName != "" || rec.OwnerName != ""):
			result.Confidence = confidence - nameMismatchPenalty
			result.Validation = PermitValidation{
				Message: "DTI QR code is valid, but the names you provided do not match DTI records. " +
					check.Details +
					"Please ensure you entered the exact names from your permit.",
				NameMismatch: true,
			}
			return result
		}

		if ml.Available && ml.IsPermit {
			confidence = min(maxConfidence, confidence+ml.Confidence*mlAgreementWeight)
		}

		result.Valid = true
		result.Confidence = confidence
		result.Validation = PermitValidation{
			Passed: true,
			Message: fmt.Sprintf("QR code verified against DTI BNRS. Business: %s. Owner: %s. Reg #: %s.",
				orNA(rec.BusinessName), orNA(rec.OwnerName), orNA(rec.RegistrationNumber)),
			NameCheckDetails: check.Details,
		}
		if rec.BusinessName != "" {
			result.BusinessInfo.BusinessName = rec.BusinessName
		}
		if rec.OwnerName != "" {
			result.BusinessInfo.OwnerName = rec.OwnerName
		}
		if rec.RegistrationNumber != "" {
			result.BusinessInfo.RegistrationNumber = rec.RegistrationNumber
		}
		return result
	}

	if !rec.Reachable {
		// BNRS down. ML breaks the tie when it is confident; otherwise the
		// application parks for manual review.
		if ml.Available && ml.IsPermit && ml.Confidence > unreachableMLThreshold {
			result.Valid = true
			result.Confidence = unreachableConfidence
			result.Validation = PermitValidation{
				Passed: true,
				Message: fmt.Sprintf("DTI server unreachable, but QR URL is valid and "+
					"ML classifier confirms permit (confidence: %.0f%%).", ml.Confidence*100),
			}
			return result
		}
		result.Confidence = pendingConfidence
		result.Validation = PermitValidation{
			Message:             rec.Message,
			PendingManualReview: true,
		}
		return result
	}

	// Reachable but not confirmed: bad HTTP status or a page without BNRS
	// markers.
	result.Confidence = inconclusiveConfidence
	result.Validation = PermitValidation{Message: rec.Message}
	return result
}

// decideWithTextQR handles QR payloads carrying the permit fields as plain
// text rather than a registry URL.
func (s *Service) decideWithTextQR(req Request, result *Result, ml classifier.Result, qrFields permitfields.Fields, ocrOK bool) *Result {
	if !ocrOK {
		result.Confidence = inconclusiveConfidence
		result.Validation = PermitValidation{
			Message: "Cannot extract text from permit image for QR comparison. " +
				"Please ensure the permit image is clear and readable.",
		}
		return result
	}

	// Applicant names fall back to the QR's own fields so a blank form does
	// not count against the permit.
	providedBusiness := firstNonEmpty(req.BusinessName, qrFields.BusinessName)
	providedOwner := firstNonEmpty(req.OwnerName, qrFields.BusinessOwner)
	check := names.Check(providedBusiness, providedOwner, qrFields.BusinessName, qrFields.BusinessOwner)
	result.NameVerification = &check

	textConf := result.TextVerification.Confidence
	mlConf := 0.5
	if ml.Available {
		mlConf = ml.Confidence
	}
	composite := textConf*textWeight + check.Score*nameWeight + mlConf*mlWeight

	if ml.Available && ml.IsPermit {
		if composite > textQRAcceptThreshold {
			result.Valid = true
			result.Confidence = min(textQRAcceptCap, composite)
			result.Validation = PermitValidation{
				Passed: true,
				Message: fmt.Sprintf("QR code verified. Business information matches permit. "+
					"QR Text: %s. Owner: %s. Confidence: %.0f%%",
					orNA(qrFields.BusinessName), orNA(qrFields.BusinessOwner), composite*100),
				NameCheckDetails: check.Details,
			}
			return result
		}
		result.Confidence = composite
		result.Validation = PermitValidation{
			Message: fmt.Sprintf("QR code business information does not sufficiently match "+
				"the permit and your provided information. "+
				"Please verify the accuracy of the permit. Confidence: %.0f%%", composite*100),
			Mismatches: result.TextVerification.Mismatches,
		}
		return result
	}

	// No ML evidence: text matching alone decides.
	if textConf > textOnlyThreshold {
		result.Valid = true
		result.Confidence = min(textOnlyCap, textConf)
		result.Validation = PermitValidation{
			Passed: true,
			Message: fmt.Sprintf("QR code verified. Business information matches permit. "+
				"Confidence: %.0f%%", textConf*100),
		}
		return result
	}
	result.Confidence = textConf
	result.Validation = PermitValidation{
		Message: fmt.Sprintf("QR code business information does not match the permit. "+
			"Please verify the QR code is from a valid permit. Confidence: %.0f%%", textConf*100),
		Mismatches: result.TextVerification.Mismatches,
	}
	return result
}

// decideWithoutQR handles images with no recoverable QR: the classifier is
// the only evidence left.
func (s *Service) decideWithoutQR(result *Result, ml classifier.Result, qr qrscan.Result) *Result {
	switch {
	case ml.Available && ml.IsPermit && ml.Confidence > mlOnlyThreshold:
		result.Confidence = ml.Confidence * mlOnlyScale
		result.Validation = PermitValidation{
			Message: fmt.Sprintf("No QR code detected, but ML classifier identifies this as a "+
				"business permit (confidence: %.0f%%). "+
				"Submitted for manual review - please ensure the QR code is visible.", ml.Confidence*100),
			PendingManualReview: true,
		}
	case ml.Available && !ml.IsPermit:
		result.Confidence = mlRejectConfidence
		result.Validation = PermitValidation{
			Message: "No QR code detected and the image does not appear to be a " +
				"business permit. Please upload a clear photo of your DTI " +
				"Business Permit with the QR code visible.",
		}
	default:
		result.Validation = PermitValidation{Message: qr.Err}
	}
	return result
}

func (s *Service) extractText(path string) (string, bool) {
	if s.ocr == nil || !s.ocr.Available() {
		return "", false
	}
	text, err := s.ocr.Extract(path)
	if err != nil || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

func decisionLabel(r *Result) string {
	switch {
	case r.Valid:
		return "accepted"
	case r.Validation.PendingManualReview:
		return "pending"
	default:
		return "rejected"
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
