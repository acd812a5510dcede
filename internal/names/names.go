// Package names normalizes Filipino business and owner names and cross-checks
// applicant-provided names against what the DTI registry page shows.
package names

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// MatchThreshold is the similarity above which two names count as the same.
const MatchThreshold = 0.65

// Trade-name suffixes that carry no identity signal. "JUAN DELA CRUZ TRADING"
// and "JUAN DELA CRUZ ENTERPRISES" are the same registrant.
var suffixPattern = regexp.MustCompile(
	`\b(trading|enterprises|enterprise|farm|farms|agri|agricultural|products|store|shop)\b`)

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)
var multiSpace = regexp.MustCompile(`\s+`)

// Normalize lowercases a name, strips trade suffixes and punctuation, and
// collapses whitespace. Normalize is idempotent.
func Normalize(name string) string {
	s := strings.ToLower(name)
	s = suffixPattern.ReplaceAllString(s, "")
	s = nonAlnum.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Similarity scores two names in [0, 1] on their normalized forms: exact
// match scores 1.0, containment 0.9, anything else falls through to fuzzy
// ratio. Either side empty after normalization scores 0.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.9
	}
	return float64(fuzzy.Ratio(na, nb)) / 100.0
}

// CrossCheck compares the applicant-provided business and owner names against
// the names scraped off the DTI registry page. The match flags are nil when a
// pair was not comparable, so consumers can tell "mismatched" from "never
// checked".
type CrossCheck struct {
	BusinessNameMatch      *bool   `json:"business_name_match"`
	OwnerNameMatch         *bool   `json:"owner_name_match"`
	BusinessNameSimilarity float64 `json:"business_name_similarity"`
	OwnerNameSimilarity    float64 `json:"owner_name_similarity"`
	OverallMatch           bool    `json:"overall_match"`
	Score                  float64 `json:"score"`
	Details                string  `json:"details"`
}

// Check scores provided names against registry names. Pairs where the
// registry side is missing are skipped rather than failed; if the registry
// yielded no names at all the check passes with a neutral 0.5 score, since
// absence of scrape data is not evidence of mismatch.
func Check(providedBusiness, providedOwner, registryBusiness, registryOwner string) CrossCheck {
	var check CrossCheck
	var details strings.Builder
	var scores []float64

	if registryBusiness != "" && providedBusiness != "" {
		score := Similarity(providedBusiness, registryBusiness)
		match := score >= MatchThreshold
		check.BusinessNameSimilarity = round3(score)
		check.BusinessNameMatch = &match
		scores = append(scores, score)
		if match {
			fmt.Fprintf(&details, "Business name matches (%.0f%%): '%s' ~ '%s'. ",
				score*100, providedBusiness, registryBusiness)
		} else {
			fmt.Fprintf(&details, "Business name MISMATCH (%.0f%%): you entered '%s' but DTI shows '%s'. ",
				score*100, providedBusiness, registryBusiness)
		}
	} else if providedBusiness != "" {
		details.WriteString("Could not extract business name from DTI for comparison. ")
	}

	if registryOwner != "" && providedOwner != "" {
		score := Similarity(providedOwner, registryOwner)
		match := score >= MatchThreshold
		check.OwnerNameSimilarity = round3(score)
		check.OwnerNameMatch = &match
		scores = append(scores, score)
		if match {
			fmt.Fprintf(&details, "Owner name matches (%.0f%%): '%s' ~ '%s'. ",
				score*100, providedOwner, registryOwner)
		} else {
			fmt.Fprintf(&details, "Owner name MISMATCH (%.0f%%): you entered '%s' but DTI shows '%s'. ",
				score*100, providedOwner, registryOwner)
		}
	} else if providedOwner != "" {
		details.WriteString("Could not extract owner name from DTI for comparison. ")
	}

	if len(scores) == 0 {
		details.WriteString("No DTI name data available for cross-check. ")
		check.OverallMatch = true
		check.Score = 0.5
		check.Details = details.String()
		return check
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	check.Score = round3(sum / float64(len(scores)))
	check.OverallMatch = check.Score >= MatchThreshold
	check.Details = details.String()
	return check
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
