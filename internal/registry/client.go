package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Status classifies the outcome of one BNRS lookup.
type Status string

const (
	// StatusConfirmed means the page loaded and carried BNRS markers.
	StatusConfirmed Status = "confirmed"
	// StatusNotConfirmed means the page loaded but did not look like a
	// certificate page.
	StatusNotConfirmed Status = "not_confirmed"
	// StatusBadStatus means the server answered with a non-200 status.
	StatusBadStatus Status = "bad_status"
	// StatusUnreachable means the connection failed outright.
	StatusUnreachable Status = "unreachable"
	// StatusTimeout means the server accepted the connection but did not
	// answer in time.
	StatusTimeout Status = "timeout"
)

// Record is the full result of one BNRS validation attempt. Field names
// mirror the JSON stored with each verification.
type Record struct {
	URLChecked         string `json:"url_checked"`
	Reachable          bool   `json:"reachable"`
	Confirmed          bool   `json:"dti_confirmed"`
	HTTPStatus         int    `json:"http_status,omitempty"`
	BusinessName       string `json:"business_name,omitempty"`
	OwnerName          string `json:"owner_name,omitempty"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	RegistrationStatus string `json:"status,omitempty"`
	Message            string `json:"message"`
	Outcome            Status `json:"-"`
}

// Page-content markers that distinguish a BNRS certificate page from an
// arbitrary page on the same host. Two or more hits counts as confirmation.
var pageMarkers = []string{
	"department of trade and industry",
	"dti", "bnrs", "business name",
	"certificate", "registration",
	"registered", "business name registration",
}

const markerQuorum = 2

// maxPageBytes caps the certificate page read. BNRS pages are small; anything
// larger is not a certificate.
const maxPageBytes = 4 << 20

var (
	businessNamePattern = regexp.MustCompile(
		`(?i)(?:business\s*name|bn)\s*[:\-]?\s*([A-Z][A-Za-z0-9\s',.\-&]+)`)
	ownerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:owner|proprietor|registrant|applicant)\s*(?:name)?\s*[:\-]?\s*([A-Z][A-Za-z\s',.\-]{3,60})`),
		regexp.MustCompile(`(?i)(?:name\s*of\s*(?:owner|proprietor))\s*[:\-]?\s*([A-Z][A-Za-z\s',.\-]{3,60})`),
	}
	regNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:registration|reg(?:istration)?\s*(?:no|number|#))\s*[:\-]?\s*(\d[\d\-]+\d)`),
		regexp.MustCompile(`(\d{4,}-\d+)`),
	}
	regStatusPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:status)\s*[:\-]?\s*(active|registered|approved|valid)`),
		regexp.MustCompile(`(?i)(registered|active|approved|valid)\s+(?:business|name)`),
	}
	capitalLeadPattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9\s',.\-&]{4,59}$`)
)

// Client fetches and scrapes BNRS certificate pages.
type Client struct {
	http *http.Client
}

// NewClient builds a BNRS client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Validate fetches the certificate page behind a BNRS QR URL and scrapes the
// registration details. It never returns an error: every failure mode maps to
// a Record with the matching Outcome and user-facing message.
func (c *Client) Validate(ctx context.Context, qrURL string) Record {
	rec := Record{URLChecked: qrURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, qrURL, nil)
	if err != nil {
		rec.Outcome = StatusUnreachable
		rec.Message = fmt.Sprintf("DTI validation error: %v", err)
		return rec
	}
	// BNRS rejects requests without a browser user agent.
	req.Header.Set("User-Agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			rec.Outcome = StatusTimeout
			rec.Message = "DTI website timed out. The QR URL looks valid but the DTI " +
				"server is slow. Your application is saved for manual review."
			return rec
		}
		rec.Outcome = StatusUnreachable
		rec.Message = "Could not connect to DTI website. Please check your internet " +
			"connection or try again later."
		return rec
	}
	defer resp.Body.Close()

	rec.Reachable = true
	rec.HTTPStatus = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		rec.Outcome = StatusBadStatus
		rec.Message = fmt.Sprintf("DTI website returned status %d. "+
			"The registration may have expired or the URL is invalid.", resp.StatusCode)
		return rec
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		rec.Outcome = StatusUnreachable
		rec.Message = fmt.Sprintf("DTI validation error: %v", err)
		return rec
	}
	page := string(body)

	pageLower := strings.ToLower(page)
	hits := 0
	for _, marker := range pageMarkers {
		if strings.Contains(pageLower, marker) {
			hits++
		}
	}
	if hits < markerQuorum {
		rec.Outcome = StatusNotConfirmed
		rec.Message = "Page did not contain expected DTI registration markers. " +
			"It may not be a valid DTI certificate page."
		return rec
	}
	rec.Confirmed = true
	rec.Outcome = StatusConfirmed

	c.scrape(page, &rec)
	rec.Message = "DTI registration confirmed via BNRS."
	return rec
}

// scrape pulls business name, owner, registration number and status out of a
// confirmed certificate page. Labeled-text regexes run first; the business
// name additionally falls back to the first capitalized cell/heading text.
func (c *Client) scrape(page string, rec *Record) {
	if m := businessNamePattern.FindStringSubmatch(page); m != nil {
		rec.BusinessName = strings.TrimSpace(m[1])
	}
	if rec.BusinessName == "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(page)); err == nil {
			doc.Find("td, span, div, h1, h2, h3, h4, h5, h6").EachWithBreak(
				func(_ int, sel *goquery.Selection) bool {
					text := strings.TrimSpace(sel.Text())
					if capitalLeadPattern.MatchString(text) {
						rec.BusinessName = text
						return false
					}
					return true
				})
		}
	}

	for _, pattern := range ownerPatterns {
		if m := pattern.FindStringSubmatch(page); m != nil {
			rec.OwnerName = strings.TrimSpace(m[1])
			break
		}
	}
	for _, pattern := range regNumberPatterns {
		if m := pattern.FindStringSubmatch(page); m != nil {
			rec.RegistrationNumber = strings.TrimSpace(m[1])
			break
		}
	}
	for _, pattern := range regStatusPatterns {
		if m := pattern.FindStringSubmatch(page); m != nil {
			rec.RegistrationStatus = titleWord(strings.TrimSpace(m[1]))
			break
		}
	}
}

// titleWord uppercases the first letter of a single status word.
func titleWord(s string) string {
	lower := strings.ToLower(s)
	if lower == "" {
		return ""
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded)
}
