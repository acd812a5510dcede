// Package registry validates permit QR URLs against the DTI Business Name
// Registration System (BNRS) and scrapes the registration details off the
// confirmation page.
package registry

import (
	"net/url"
	"regexp"
	"strings"
)

// Hostnames the BNRS serves certificate pages from.
var dtiDomains = map[string]struct{}{
	"bnrs.dti.gov.ph":     {},
	"www.bnrs.dti.gov.ph": {},
	"dti.gov.ph":          {},
	"www.dti.gov.ph":      {},
}

var dtiURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^https?://bnrs\.dti\.gov\.ph`),
	regexp.MustCompile(`(?i)^https?://www\.bnrs\.dti\.gov\.ph`),
	regexp.MustCompile(`(?i)^https?://dti\.gov\.ph`),
	regexp.MustCompile(`(?i)^https?://www\.dti\.gov\.ph`),
}

// IsRegistryURL reports whether a decoded QR payload points at a DTI/BNRS
// certificate page.
func IsRegistryURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err == nil {
		domain := strings.TrimSuffix(strings.ToLower(parsed.Host), ".")
		if _, ok := dtiDomains[domain]; ok {
			return true
		}
	}
	for _, pattern := range dtiURLPatterns {
		if pattern.MatchString(raw) {
			return true
		}
	}
	return false
}

// BusinessInfo carries registration details pulled from the QR URL itself and
// later enriched with whatever the certificate page scrape yields.
type BusinessInfo struct {
	URL                string   `json:"url"`
	RegistrationID     string   `json:"registration_id,omitempty"`
	BusinessName       string   `json:"business_name,omitempty"`
	OwnerName          string   `json:"owner_name,omitempty"`
	RegistrationNumber string   `json:"registration_number,omitempty"`
	PathSegments       []string `json:"path_segments,omitempty"`
}

// ExtractBusinessInfo parses a BNRS QR URL for embedded registration details.
// BNRS encodes the registration id either as query parameters or as path
// segments depending on certificate vintage.
func ExtractBusinessInfo(raw string) BusinessInfo {
	info := BusinessInfo{URL: raw}
	parsed, err := url.Parse(raw)
	if err != nil {
		return info
	}
	query := parsed.Query()
	info.RegistrationID = query.Get("id")
	info.BusinessName = query.Get("bn")
	info.RegistrationNumber = query.Get("reg")

	for _, part := range strings.Split(strings.Trim(parsed.Path, "/"), "/") {
		if part != "" {
			info.PathSegments = append(info.PathSegments, part)
		}
	}
	return info
}
