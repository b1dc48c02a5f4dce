package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dietprogress/internal/adapter/file"
	adapthttp "dietprogress/internal/adapter/http"
	"dietprogress/internal/adapter/memory"
	"dietprogress/internal/adapter/sqldb"
	"dietprogress/internal/app"
	"dietprogress/internal/config"
	"dietprogress/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	repo, closer, err := openRepository(cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer func() { _ = closer.Close() }()

	gate, err := app.NewPasswordGate(cfg.Password, bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("password gate: %v", err)
	}

	ids := app.NewIDGenerator(time.Now)
	progressSvc := app.NewProgressService(repo, ids)
	statsSvc := app.NewStatsService(repo, cfg.GoalWeight)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	err = progressSvc.LoadIDs(loadCtx)
	cancelLoad()
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           adapthttp.New(progressSvc, statsSvc, gate, cfg.WebDir).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (storage: %s)", cfg.Addr, cfg.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	case <-ctx.Done():
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openRepository builds the backend named by STORAGE_BACKEND. Failing to
// reach the database or provision its schema is fatal to the caller.
func openRepository(cfg config.Config) (domain.ProgressRepository, io.Closer, error) {
	opts := sqldb.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}
	switch cfg.Backend {
	case config.BackendFile:
		s, err := file.Open(cfg.DataFile)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case config.BackendPostgres:
		db, err := sqldb.Open(sqldb.Postgres, cfg.DatabaseURL, opts)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, err
		}
		db, err := sqldb.Open(sqldb.SQLite, sqldb.SQLiteDSN(cfg.SQLitePath), opts)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case config.BackendMemory:
		log.Printf("storage: memory backend, data is lost on exit")
		return memory.New(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
