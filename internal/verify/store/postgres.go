package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresStore persists records in the permit_verifications table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the permit_verifications table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS permit_verifications (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			user_email TEXT,
			user_name TEXT,
			user_farm_name TEXT,
			status TEXT NOT NULL,
			valid BOOLEAN NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			permit_business_name TEXT,
			permit_owner_name TEXT,
			qr_data TEXT,
			qr_valid BOOLEAN NOT NULL,
			ml_confidence DOUBLE PRECISION NOT NULL,
			ml_is_permit BOOLEAN NOT NULL,
			image_filename TEXT,
			image_path TEXT,
			image_digest TEXT,
			verification_result JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS permit_verifications_user_idx
			ON permit_verifications (user_id, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrate permit_verifications: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO permit_verifications (
			id, user_id, user_email, user_name, user_farm_name,
			status, valid, confidence,
			permit_business_name, permit_owner_name,
			qr_data, qr_valid, ml_confidence, ml_is_permit,
			image_filename, image_path, image_digest,
			verification_result, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.UserEmail,
		rec.UserName,
		rec.UserFarmName,
		rec.Status,
		rec.Valid,
		rec.Confidence,
		rec.BusinessName,
		rec.OwnerName,
		rec.QRData,
		rec.QRValid,
		rec.MLConfidence,
		rec.MLIsPermit,
		rec.ImageFilename,
		rec.ImagePath,
		rec.ImageDigest,
		[]byte(rec.Result),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert permit verification: %w", err)
	}
	return nil
}

// ListByUser returns a user's records, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	query := `
		SELECT id, user_id, user_email, user_name, user_farm_name,
			status, valid, confidence,
			permit_business_name, permit_owner_name,
			qr_data, qr_valid, ml_confidence, ml_is_permit,
			image_filename, image_path, image_digest,
			verification_result, created_at
		FROM permit_verifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query permit verifications: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			id        uuid.UUID
			result    []byte
			createdAt time.Time
		)
		err := rows.Scan(
			&id,
			&rec.UserID,
			&rec.UserEmail,
			&rec.UserName,
			&rec.UserFarmName,
			&rec.Status,
			&rec.Valid,
			&rec.Confidence,
			&rec.BusinessName,
			&rec.OwnerName,
			&rec.QRData,
			&rec.QRValid,
			&rec.MLConfidence,
			&rec.MLIsPermit,
			&rec.ImageFilename,
			&rec.ImagePath,
			&rec.ImageDigest,
			&result,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan permit verification: %w", err)
		}
		rec.ID = id
		rec.Result = result
		rec.CreatedAt = createdAt
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permit verifications: %w", err)
	}
	return out, nil
}

var _ Store = (*PostgresStore)(nil)
