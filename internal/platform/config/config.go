package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. Values come from environment
// variables so main stays lean; every field has a development-friendly default.
type Config struct {
	Addr string

	// ModelPath points at the trained permit classifier artifact. A missing or
	// unreadable artifact disables the classifier rather than failing startup.
	ModelPath string

	// RecordDir is where JSON verification records are written for durability.
	RecordDir string

	// PostgresDSN enables the postgres record store when non-empty. Records
	// always go to the file sink regardless.
	PostgresDSN string

	// TesseractBin overrides the OCR binary looked up on PATH.
	TesseractBin string

	// RegistryTimeout bounds the outbound registry page fetch.
	RegistryTimeout time.Duration

	// MaxConcurrentVerifications bounds verification fan-out at the transport.
	MaxConcurrentVerifications int

	// UploadDir holds uploaded permit images before verification.
	UploadDir string
}

// FromEnv builds a Config from PERMITGATE_* environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:                       getEnv("PERMITGATE_ADDR", ":8080"),
		ModelPath:                  getEnv("PERMITGATE_MODEL_PATH", "ml_models/permit_classifier.model"),
		RecordDir:                  getEnv("PERMITGATE_RECORD_DIR", "verification_records"),
		PostgresDSN:                os.Getenv("PERMITGATE_POSTGRES_DSN"),
		TesseractBin:               getEnv("PERMITGATE_TESSERACT_BIN", "tesseract"),
		RegistryTimeout:            15 * time.Second,
		MaxConcurrentVerifications: 8,
		UploadDir:                  getEnv("PERMITGATE_UPLOAD_DIR", "uploads"),
	}
	if v := os.Getenv("PERMITGATE_REGISTRY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RegistryTimeout = d
		}
	}
	if v := os.Getenv("PERMITGATE_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentVerifications = n
		}
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
