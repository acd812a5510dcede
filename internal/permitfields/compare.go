package permitfields

import (
	"fmt"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Per-field match thresholds. Dates are held to a tighter bar because fuzzy
// token matching is too forgiving on short numeric strings, and business
// numbers must match exactly after trimming surrounding whitespace.
const (
	generalThreshold = 0.70
	dateThreshold    = 0.80
)

// Comparison is the result of matching QR-embedded fields against the fields
// OCR'd off the permit face.
type Comparison struct {
	BusinessNameMatch   bool     `json:"business_name_match"`
	BusinessOwnerMatch  bool     `json:"business_owner_match"`
	ValidityDateMatch   bool     `json:"validity_date_match"`
	BusinessNumberMatch bool     `json:"business_number_match"`
	Confidence          float64  `json:"confidence"`
	Details             string   `json:"details"`
	Mismatches          []string `json:"mismatches"`
}

// Compare fuzzily matches the QR payload fields against the permit-face
// fields. Only fields present on BOTH sides count toward the confidence;
// confidence is matched/checked, or 0 when nothing was comparable.
func Compare(qr, permit Fields) Comparison {
	cmp := Comparison{Mismatches: []string{}}
	checked, matched := 0, 0

	if qr.BusinessName != "" && permit.BusinessName != "" {
		checked++
		score := tokenScore(qr.BusinessName, permit.BusinessName)
		if score >= generalThreshold {
			cmp.BusinessNameMatch = true
			matched++
		} else {
			cmp.Mismatches = append(cmp.Mismatches, fmt.Sprintf(
				"Business name mismatch (%.0f%%): QR='%s' vs Permit='%s'",
				score*100, qr.BusinessName, permit.BusinessName))
		}
	}

	if qr.BusinessOwner != "" && permit.BusinessOwner != "" {
		checked++
		score := tokenScore(qr.BusinessOwner, permit.BusinessOwner)
		if score >= generalThreshold {
			cmp.BusinessOwnerMatch = true
			matched++
		} else {
			cmp.Mismatches = append(cmp.Mismatches, fmt.Sprintf(
				"Business owner mismatch (%.0f%%): QR='%s' vs Permit='%s'",
				score*100, qr.BusinessOwner, permit.BusinessOwner))
		}
	}

	if qr.ValidityDate != "" && permit.ValidityDate != "" {
		checked++
		score := tokenScore(qr.ValidityDate, permit.ValidityDate)
		if score >= dateThreshold {
			cmp.ValidityDateMatch = true
			matched++
		} else {
			cmp.Mismatches = append(cmp.Mismatches, fmt.Sprintf(
				"Validity date mismatch (%.0f%%): QR='%s' vs Permit='%s'",
				score*100, qr.ValidityDate, permit.ValidityDate))
		}
	}

	if qr.BusinessNumber != "" && permit.BusinessNumber != "" {
		checked++
		qrNum := strings.TrimSpace(qr.BusinessNumber)
		permitNum := strings.TrimSpace(permit.BusinessNumber)
		if qrNum == permitNum {
			cmp.BusinessNumberMatch = true
			matched++
		} else {
			cmp.Mismatches = append(cmp.Mismatches, fmt.Sprintf(
				"Business number mismatch: QR='%s' vs Permit='%s'",
				qrNum, permitNum))
		}
	}

	if checked > 0 {
		cmp.Confidence = float64(matched) / float64(checked)
	}
	cmp.Details = fmt.Sprintf("%d of %d comparable fields matched", matched, checked)
	return cmp
}

// tokenScore is token-set similarity in [0, 1], case-insensitive and
// word-order tolerant.
func tokenScore(a, b string) float64 {
	return float64(fuzzy.TokenSetRatio(strings.ToLower(a), strings.ToLower(b))) / 100.0
}
