//go:build integration

package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"permitgate/internal/testutil/containers"
	"permitgate/internal/verify/store"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "permit_verifications"))
}

func (s *PostgresStoreSuite) newRecord(userID string, valid bool, at time.Time) store.Record {
	status := store.StatusRejected
	if valid {
		status = store.StatusVerified
	}
	return store.Record{
		ID:            uuid.New(),
		UserID:        userID,
		UserEmail:     "juan@example.com",
		UserName:      "Juan Dela Cruz",
		Status:        status,
		Valid:         valid,
		Confidence:    0.95,
		BusinessName:  "ACME TRADING",
		OwnerName:     "JUAN DELA CRUZ",
		QRData:        "https://bnrs.dti.gov.ph/verify?id=123",
		QRValid:       true,
		MLConfidence:  0.9,
		MLIsPermit:    true,
		ImageFilename: "permit.jpg",
		ImagePath:     "/uploads/permit.jpg",
		ImageDigest:   "abc123",
		Result:        json.RawMessage(`{"valid":true,"confidence":0.95}`),
		CreatedAt:     at,
	}
}

func (s *PostgresStoreSuite) TestAppendAndList() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	first := s.newRecord("farmer-1", false, base)
	second := s.newRecord("farmer-1", true, base.Add(time.Minute))
	s.Require().NoError(s.store.Append(ctx, first))
	s.Require().NoError(s.store.Append(ctx, second))
	s.Require().NoError(s.store.Append(ctx, s.newRecord("farmer-2", true, base)))

	records, err := s.store.ListByUser(ctx, "farmer-1")
	s.Require().NoError(err)
	s.Require().Len(records, 2)

	s.Equal(second.ID, records[0].ID)
	s.Equal(first.ID, records[1].ID)
	s.Equal(store.StatusVerified, records[0].Status)
	s.Equal("juan@example.com", records[0].UserEmail)
	s.JSONEq(`{"valid":true,"confidence":0.95}`, string(records[0].Result))
	s.WithinDuration(second.CreatedAt, records[0].CreatedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestListUnknownUser() {
	records, err := s.store.ListByUser(context.Background(), "nobody")
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *PostgresStoreSuite) TestDuplicateIDRejected() {
	ctx := context.Background()
	rec := s.newRecord("farmer-1", true, time.Now().UTC())
	s.Require().NoError(s.store.Append(ctx, rec))
	s.Error(s.store.Append(ctx, rec))
}
