package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"permitgate/internal/classifier"
	"permitgate/internal/verify/store"
)

type RecorderSuite struct {
	suite.Suite
	ctx context.Context
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *RecorderSuite) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func (s *RecorderSuite) TestRecord() {
	dir := s.T().TempDir()
	imagePath := filepath.Join(dir, "permit.png")
	s.Require().NoError(os.WriteFile(imagePath, []byte("fake image bytes"), 0o644))

	mem := store.NewInMemoryStore()
	recorder := NewAuditRecorder(s.logger(), mem)

	req := Request{
		UserID:       "farmer-1",
		FilePath:     imagePath,
		ImageName:    "permit.png",
		BusinessName: "ACME TRADING",
		OwnerName:    "JUAN DELA CRUZ",
		UserEmail:    "juan@example.com",
		UserName:     "Juan Dela Cruz",
	}
	result := newResult(req)
	result.Valid = true
	result.Confidence = 0.95
	result.QRData = "payload"
	result.QRScan = &StageCheck{Passed: true}
	result.MLPrediction = &classifier.Result{Available: true, IsPermit: true, Confidence: 0.9}

	recorder.Record(s.ctx, req, result)

	records, err := mem.ListByUser(s.ctx, "farmer-1")
	s.Require().NoError(err)
	s.Require().Len(records, 1)

	rec := records[0]
	s.Equal(store.StatusVerified, rec.Status)
	s.True(rec.Valid)
	s.InDelta(0.95, rec.Confidence, 1e-9)
	s.Equal("juan@example.com", rec.UserEmail)
	// FarmName was empty, so the farm column falls back to the business name.
	s.Equal("ACME TRADING", rec.UserFarmName)
	s.True(rec.QRValid)
	s.InDelta(0.9, rec.MLConfidence, 1e-9)
	s.True(rec.MLIsPermit)
	s.Len(rec.ImageDigest, 64)
	s.NotEqual(rec.ID.String(), "00000000-0000-0000-0000-000000000000")

	var decoded map[string]any
	s.Require().NoError(json.Unmarshal(rec.Result, &decoded))
	s.Equal(true, decoded["valid"])
}

func (s *RecorderSuite) TestRecordMissingImage() {
	mem := store.NewInMemoryStore()
	recorder := NewAuditRecorder(s.logger(), mem)

	req := Request{UserID: "farmer-2", FilePath: "/does/not/exist.png"}
	result := newResult(req)
	recorder.Record(s.ctx, req, result)

	records, err := mem.ListByUser(s.ctx, "farmer-2")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(store.StatusRejected, records[0].Status)
	s.Empty(records[0].ImageDigest)
}

type failingStore struct{}

func (failingStore) Append(context.Context, store.Record) error {
	return os.ErrPermission
}

func (failingStore) ListByUser(context.Context, string) ([]store.Record, error) {
	return nil, nil
}

func (s *RecorderSuite) TestOneStoreFailingDoesNotBlockOthers() {
	mem := store.NewInMemoryStore()
	recorder := NewAuditRecorder(s.logger(), failingStore{}, mem)

	req := Request{UserID: "farmer-3", FilePath: "/missing.png"}
	recorder.Record(s.ctx, req, newResult(req))

	records, err := mem.ListByUser(s.ctx, "farmer-3")
	s.Require().NoError(err)
	s.Len(records, 1)
}
