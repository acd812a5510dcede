// Package permitfields extracts the structured fields printed on a DTI
// business name certificate from either a decoded QR payload or raw OCR text,
// and fuzzily compares two extractions against each other.
package permitfields

import "strings"

// Fields holds the values extracted from one text source. Empty string means
// the field was not found; two Fields values are compared, never merged.
type Fields struct {
	BusinessName   string `json:"business_name,omitempty"`
	BusinessOwner  string `json:"business_owner,omitempty"`
	ValidityDate   string `json:"validity_date,omitempty"`
	BusinessNumber string `json:"business_number,omitempty"`
	Scope          string `json:"scope,omitempty"`
	RawText        string `json:"-"`
}

// ParseQR parses the structured text block embedded in a permit QR code.
// Expected format, one field per line:
//
//	BUSINESS NAME: CHRISTIAN WATER REFILLING STATION
//	SCOPE: CITY/MUNICIPALITY
//	BUSINESS OWNER: JEFFREY VILLAR BERNABE
//	VALIDITY DATE: 12 January 2022 to 12 January 2027
//	BUSINESS NAME NO.: 3434737
func ParseQR(text string) Fields {
	fields := Fields{RawText: text}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		// "BUSINESS NAME NO.:" also starts with "BUSINESS NAME:", so the
		// number line must be excluded from the name field.
		case strings.HasPrefix(upper, "BUSINESS NAME:") && !strings.Contains(upper, "NO."):
			fields.BusinessName = valueAfterColon(line)
		case strings.HasPrefix(upper, "BUSINESS OWNER:"):
			fields.BusinessOwner = valueAfterColon(line)
		case strings.HasPrefix(upper, "VALIDITY DATE:"):
			fields.ValidityDate = valueAfterColon(line)
		case strings.HasPrefix(upper, "BUSINESS NAME NO.:"), strings.HasPrefix(upper, "BUSINESS NO.:"):
			fields.BusinessNumber = valueAfterColon(line)
		case strings.HasPrefix(upper, "SCOPE:"):
			fields.Scope = valueAfterColon(line)
		}
	}
	return fields
}

// ParseOCR extracts the same fields from raw OCR output. OCR text is noisier
// than a QR payload, so labels match on containment rather than prefixes and
// short captures are discarded.
func ParseOCR(text string) Fields {
	var fields Fields
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}
		upper := strings.ToUpper(line)
		value := valueAfterColon(line)
		switch {
		case strings.Contains(upper, "BUSINESS NAME") && !strings.Contains(upper, "NO."):
			if len(value) > 2 {
				fields.BusinessName = value
			}
		case strings.Contains(upper, "OWNER") || strings.Contains(upper, "PROPRIETOR"):
			if len(value) > 2 {
				fields.BusinessOwner = value
			}
		case strings.Contains(upper, "VALIDITY") || strings.Contains(upper, "VALID") || strings.Contains(upper, "EXPIRES"):
			if len(value) > 4 {
				fields.ValidityDate = value
			}
		case strings.Contains(upper, "BUSINESS") &&
			(strings.Contains(upper, "NO") || strings.Contains(upper, "NUMBER") || strings.Contains(upper, "REGISTRATION")):
			if len(value) > 2 {
				fields.BusinessNumber = value
			}
		case strings.Contains(upper, "SCOPE"):
			if len(value) > 2 {
				fields.Scope = value
			}
		}
	}
	return fields
}

func valueAfterColon(line string) string {
	_, after, found := strings.Cut(line, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(after)
}
