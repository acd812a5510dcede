package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"permitgate/internal/classifier"
	"permitgate/internal/ocr"
	"permitgate/internal/platform/config"
	"permitgate/internal/platform/httpserver"
	"permitgate/internal/platform/logger"
	"permitgate/internal/qrscan"
	"permitgate/internal/registry"
	"permitgate/internal/verify"
	"permitgate/internal/verify/handler"
	"permitgate/internal/verify/metrics"
	"permitgate/internal/verify/store"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New()

	cls := classifier.New(cfg.ModelPath, log)
	ocrEngine := ocr.New(cfg.TesseractBin, log)
	scanner := qrscan.NewScanner(ocrEngine, log)
	registryClient := registry.NewClient(cfg.RegistryTimeout)

	fileStore, err := store.NewFileStore(cfg.RecordDir)
	if err != nil {
		log.Error("file store init failed", "dir", cfg.RecordDir, "error", err)
		os.Exit(1)
	}
	stores := []store.Store{fileStore}
	var lister handler.Lister = fileStore

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		pg := store.NewPostgresStore(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pg.Migrate(ctx); err != nil {
			cancel()
			log.Error("postgres migrate failed", "error", err)
			os.Exit(1)
		}
		cancel()
		stores = append(stores, pg)
		lister = pg
	}

	m := metrics.New()
	recorder := verify.NewAuditRecorder(log, stores...)
	service := verify.NewService(cls, scanner, ocrEngine, registryClient, recorder, m, log,
		int64(cfg.MaxConcurrentVerifications))

	caps := service.Capabilities()
	log.Info("starting permitgate",
		"addr", cfg.Addr,
		"classifier", caps.Classifier,
		"ocr", caps.OCR,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	handler.New(service, lister, cfg.UploadDir, log).Register(r)

	srv := httpserver.New(cfg.Addr, r)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if db != nil {
		db.Close()
	}
}
