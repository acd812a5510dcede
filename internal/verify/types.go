// Package verify runs the full permit verification pipeline: quality gate,
// ML classification, QR decode, BNRS registry validation, name cross-check,
// and the final decision that combines them.
package verify

import (
	"time"

	"permitgate/internal/classifier"
	"permitgate/internal/names"
	"permitgate/internal/permitfields"
	"permitgate/internal/registry"
)

// Request is one verification job. UserID and the names come from the
// application form; the remaining fields are denormalized context carried
// into the audit record.
type Request struct {
	UserID       string
	FilePath     string
	ImageName    string
	BusinessName string
	OwnerName    string
	UserEmail    string
	UserName     string
	FarmName     string
}

// StageCheck is the pass/fail outcome of one pipeline stage.
type StageCheck struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
	Method  string `json:"method,omitempty"`
}

// PermitValidation is the final decision surfaced to the applicant.
type PermitValidation struct {
	Passed              bool     `json:"passed"`
	Message             string   `json:"message"`
	NameMismatch        bool     `json:"name_mismatch,omitempty"`
	PendingManualReview bool     `json:"pending_manual_review,omitempty"`
	Mismatches          []string `json:"mismatches,omitempty"`
	NameCheckDetails    string   `json:"name_check_details,omitempty"`
}

// Result is the complete verification outcome. Every stage that ran leaves
// its evidence here; stages that never ran stay nil so the audit record
// distinguishes "failed" from "skipped".
type Result struct {
	Valid            bool                     `json:"valid"`
	Confidence       float64                  `json:"confidence"`
	QualityCheck     *StageCheck              `json:"quality_check"`
	MLPrediction     *classifier.Result       `json:"ml_prediction"`
	QRScan           *StageCheck              `json:"qr_scan"`
	QRData           string                   `json:"qr_data,omitempty"`
	RegistryURLValid bool                     `json:"dti_url_valid"`
	Registry         *registry.Record         `json:"dti_validation"`
	BusinessInfo     *registry.BusinessInfo   `json:"business_info"`
	NameVerification *names.CrossCheck        `json:"name_verification"`
	TextVerification *permitfields.Comparison `json:"text_verification"`
	ExtractedText    string                   `json:"extracted_text"`
	Timestamp        time.Time                `json:"timestamp"`
	FilePath         string                   `json:"file_path"`
	Validation       PermitValidation         `json:"permit_validation"`
}

// Capabilities reports which optional pipeline stages are live, for the
// health endpoint and startup log.
type Capabilities struct {
	Classifier bool `json:"classifier"`
	QRDecode   bool `json:"qr_decode"`
	OCR        bool `json:"ocr"`
}

func newResult(req Request) *Result {
	return &Result{
		Timestamp: time.Now().UTC(),
		FilePath:  req.FilePath,
	}
}
