// Package store persists finished verifications for the audit trail. Records
// are append-only: a re-verification creates a new record, never rewrites an
// old one.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Statuses a record can carry.
const (
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

// Record is one persisted verification outcome plus the denormalized user
// context needed to review it without joining other systems.
type Record struct {
	ID            uuid.UUID `json:"id"`
	UserID        string    `json:"user_id"`
	UserEmail     string    `json:"user_email,omitempty"`
	UserName      string    `json:"user_name,omitempty"`
	UserFarmName  string    `json:"user_farm_name,omitempty"`
	Status        string    `json:"status"`
	Valid         bool      `json:"valid"`
	Confidence    float64   `json:"confidence"`
	BusinessName  string    `json:"permit_business_name,omitempty"`
	OwnerName     string    `json:"permit_owner_name,omitempty"`
	QRData        string    `json:"qr_data,omitempty"`
	QRValid       bool      `json:"qr_valid"`
	MLConfidence  float64   `json:"ml_confidence"`
	MLIsPermit    bool      `json:"ml_is_permit"`
	ImageFilename string    `json:"image_filename,omitempty"`
	ImagePath     string    `json:"image_path,omitempty"`
	// ImageDigest is the BLAKE2b-256 hex digest of the uploaded image, so a
	// reviewer can prove which file a record refers to.
	ImageDigest string          `json:"image_digest,omitempty"`
	Result      json.RawMessage `json:"verification_result"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store is the persistence contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Append persists one record.
	Append(ctx context.Context, rec Record) error
	// ListByUser returns a user's records, newest first.
	ListByUser(ctx context.Context, userID string) ([]Record, error)
}
