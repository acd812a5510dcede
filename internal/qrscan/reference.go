package qrscan

import (
	"regexp"
	"strings"
)

// Registration and reference identifier shapes seen on DTI permits. Tried in
// order; the first capture wins.
var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:REGISTRATION|REFERENCE|REF|ID|NO)\b\.?\s*[:\-]?\s*([A-Z0-9\-]{5,})`),
	regexp.MustCompile(`([0-9]{4}[\-/]?[0-9]{4}[\-/]?[0-9]{4})`),
	regexp.MustCompile(`DTI[\s\-]?([A-Z0-9]{3,})`),
	regexp.MustCompile(`BNRS[\s\-]?([A-Z0-9]{3,})`),
}

// ExtractReferenceID pulls a registration/reference identifier out of OCR
// text. Returns the empty string when no pattern matches.
func ExtractReferenceID(text string) string {
	if text == "" {
		return ""
	}
	upper := strings.ToUpper(text)
	for _, pattern := range referencePatterns {
		if m := pattern.FindStringSubmatch(upper); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
