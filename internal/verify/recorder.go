package verify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"permitgate/internal/verify/store"
)

// AuditRecorder fans a finished verification out to every configured store.
// Persistence failures are logged, never surfaced: losing an audit copy must
// not fail the verification the applicant is waiting on.
type AuditRecorder struct {
	stores []store.Store
	logger *slog.Logger
}

func NewAuditRecorder(logger *slog.Logger, stores ...store.Store) *AuditRecorder {
	return &AuditRecorder{stores: stores, logger: logger}
}

// Record builds the audit record and appends it to each store.
func (r *AuditRecorder) Record(ctx context.Context, req Request, result *Result) {
	rec := buildRecord(req, result)
	for _, st := range r.stores {
		if err := st.Append(ctx, rec); err != nil {
			r.logger.Error("audit record append failed",
				"store", storeName(st),
				"record_id", rec.ID,
				"user_id", req.UserID,
				"error", err,
			)
		}
	}
}

func buildRecord(req Request, result *Result) store.Record {
	status := store.StatusRejected
	if result.Valid {
		status = store.StatusVerified
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		resultJSON = []byte("{}")
	}

	rec := store.Record{
		ID:            uuid.New(),
		UserID:        req.UserID,
		UserEmail:     req.UserEmail,
		UserName:      req.UserName,
		UserFarmName:  firstNonEmpty(req.FarmName, req.BusinessName),
		Status:        status,
		Valid:         result.Valid,
		Confidence:    result.Confidence,
		BusinessName:  req.BusinessName,
		OwnerName:     req.OwnerName,
		QRData:        result.QRData,
		ImageFilename: req.ImageName,
		ImagePath:     req.FilePath,
		ImageDigest:   fileDigest(req.FilePath),
		Result:        resultJSON,
		CreatedAt:     result.Timestamp,
	}
	if result.QRScan != nil {
		rec.QRValid = result.QRScan.Passed
	}
	if result.MLPrediction != nil {
		rec.MLConfidence = result.MLPrediction.Confidence
		rec.MLIsPermit = result.MLPrediction.IsPermit
	}
	return rec
}

// fileDigest returns the BLAKE2b-256 hex digest of the uploaded image, or ""
// when the file cannot be read.
func fileDigest(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return ""
	}
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}

func storeName(st store.Store) string {
	switch st.(type) {
	case *store.PostgresStore:
		return "postgres"
	case *store.FileStore:
		return "file"
	case *store.InMemoryStore:
		return "memory"
	default:
		return "unknown"
	}
}
