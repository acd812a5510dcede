package classifier

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ClassifierSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierSuite))
}

func (s *ClassifierSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func (s *ClassifierSuite) TestMissingModelDegrades() {
	c := New(filepath.Join(s.T().TempDir(), "absent.model"), s.logger)
	s.False(c.Available())

	result := c.Predict("irrelevant.png")
	s.False(result.Available)
	s.False(result.IsPermit)
	s.Zero(result.Confidence)
	s.Equal(LabelUnknown, result.Label)
}

func (s *ClassifierSuite) TestCorruptModelDegrades() {
	path := filepath.Join(s.T().TempDir(), "garbage.model")
	s.Require().NoError(os.WriteFile(path, []byte("not a model dump"), 0o644))

	c := New(path, s.logger)
	s.False(c.Available())
}

func (s *ClassifierSuite) TestNilHandleIsSafe() {
	var c *Classifier
	s.False(c.Available())
	s.Equal(LabelUnknown, c.Predict("x.png").Label)
}
