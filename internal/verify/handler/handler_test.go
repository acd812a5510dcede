package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"permitgate/internal/verify"
	"permitgate/internal/verify/store"
)

type stubService struct {
	lastReq verify.Request
	result  *verify.Result
	err     error
}

func (s *stubService) Verify(_ context.Context, req verify.Request) (*verify.Result, error) {
	s.lastReq = req
	return s.result, s.err
}

func (s *stubService) Capabilities() verify.Capabilities {
	return verify.Capabilities{Classifier: true, QRDecode: true}
}

type stubLister struct {
	records []store.Record
	err     error
}

func (s *stubLister) ListByUser(context.Context, string) ([]store.Record, error) {
	return s.records, s.err
}

type HandlerSuite struct {
	suite.Suite
	service *stubService
	lister  *stubLister
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.service = &stubService{result: &verify.Result{Valid: true, Confidence: 0.95}}
	s.lister = &stubLister{}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	s.router = chi.NewRouter()
	New(s.service, s.lister, s.T().TempDir(), logger).Register(s.router)
}

func (s *HandlerSuite) multipartBody(fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		s.Require().NoError(w.WriteField(k, v))
	}
	if withImage {
		part, err := w.CreateFormFile("image", "permit.jpg")
		s.Require().NoError(err)
		_, err = part.Write([]byte("fake image bytes"))
		s.Require().NoError(err)
	}
	s.Require().NoError(w.Close())
	return &buf, w.FormDataContentType()
}

func (s *HandlerSuite) TestVerify() {
	s.Run("happy path returns the verification result", func() {
		body, contentType := s.multipartBody(map[string]string{
			"user_id":       "farmer-1",
			"business_name": "ACME TRADING",
			"owner_name":    "JUAN DELA CRUZ",
		}, true)

		req := httptest.NewRequest(http.MethodPost, "/verify", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		s.Equal(http.StatusOK, rr.Code)

		var result verify.Result
		s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &result))
		s.True(result.Valid)
		s.InDelta(0.95, result.Confidence, 1e-9)

		s.Equal("farmer-1", s.service.lastReq.UserID)
		s.Equal("ACME TRADING", s.service.lastReq.BusinessName)
		s.Equal("permit.jpg", s.service.lastReq.ImageName)
		s.FileExists(s.service.lastReq.FilePath)
	})

	s.Run("missing user_id is a bad request", func() {
		body, contentType := s.multipartBody(map[string]string{}, true)
		req := httptest.NewRequest(http.MethodPost, "/verify", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		s.Equal(http.StatusBadRequest, rr.Code)
		s.Contains(rr.Body.String(), "user_id is required")
	})

	s.Run("missing image is a bad request", func() {
		body, contentType := s.multipartBody(map[string]string{"user_id": "farmer-1"}, false)
		req := httptest.NewRequest(http.MethodPost, "/verify", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		s.Equal(http.StatusBadRequest, rr.Code)
		s.Contains(rr.Body.String(), "image file is required")
	})

	s.Run("non-multipart body is a bad request", func() {
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("service failure is an internal error", func() {
		s.service.err = errors.New("pipeline exploded")
		defer func() { s.service.err = nil }()

		body, contentType := s.multipartBody(map[string]string{"user_id": "farmer-1"}, true)
		req := httptest.NewRequest(http.MethodPost, "/verify", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		s.Equal(http.StatusInternalServerError, rr.Code)
	})
}

func (s *HandlerSuite) TestListVerifications() {
	s.Run("returns the user's records", func() {
		s.lister.records = []store.Record{{UserID: "farmer-1", Status: store.StatusVerified}}

		req := httptest.NewRequest(http.MethodGet, "/verifications/farmer-1", nil)
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		s.Equal(http.StatusOK, rr.Code)
		var resp struct {
			UserID  string         `json:"user_id"`
			Records []store.Record `json:"records"`
		}
		s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
		s.Equal("farmer-1", resp.UserID)
		s.Len(resp.Records, 1)
	})

	s.Run("empty trail returns an empty array", func() {
		s.lister.records = nil

		req := httptest.NewRequest(http.MethodGet, "/verifications/farmer-9", nil)
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		s.Equal(http.StatusOK, rr.Code)
		s.Contains(rr.Body.String(), `"records":[]`)
	})

	s.Run("store failure is an internal error", func() {
		s.lister.err = errors.New("db down")
		defer func() { s.lister.err = nil }()

		req := httptest.NewRequest(http.MethodGet, "/verifications/farmer-1", nil)
		rr := httptest.NewRecorder()
		s.router.ServeHTTP(rr, req)

		s.Equal(http.StatusInternalServerError, rr.Code)
	})
}

func (s *HandlerSuite) TestCapabilities() {
	req := httptest.NewRequest(http.MethodGet, "/capabilities", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	s.Equal(http.StatusOK, rr.Code)
	var caps verify.Capabilities
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &caps))
	s.True(caps.Classifier)
}
