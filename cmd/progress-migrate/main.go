// Command progress-migrate copies every entry from the JSON data file into
// the relational backend. It clears the destination table first and skips
// rows the database rejects.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"dietprogress/internal/adapter/file"
	"dietprogress/internal/adapter/sqldb"
	"dietprogress/internal/app"
	"dietprogress/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}

type options struct {
	source  string
	target  string
	dsn     string
	timeout time.Duration
}

func parseOptions(args []string, cfg config.Config) (options, error) {
	target := cfg.Backend
	if target != config.BackendPostgres && target != config.BackendSQLite {
		target = config.BackendPostgres
	}

	fs := flag.NewFlagSet("progress-migrate", flag.ContinueOnError)
	opts := options{}
	fs.StringVar(&opts.source, "source", cfg.DataFile, "JSON data file to read")
	fs.StringVar(&opts.target, "target", target, "destination backend: postgres or sqlite")
	fs.StringVar(&opts.dsn, "dsn", "", "destination DSN (defaults to DATABASE_URL or SQLITE_PATH)")
	fs.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall time limit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	switch opts.target {
	case config.BackendPostgres:
		if opts.dsn == "" {
			opts.dsn = cfg.DatabaseURL
		}
		if opts.dsn == "" {
			return options{}, errors.New("DATABASE_URL or -dsn is required for postgres")
		}
	case config.BackendSQLite:
		if opts.dsn == "" {
			opts.dsn = cfg.SQLitePath
		}
	default:
		return options{}, fmt.Errorf("unsupported target %q", opts.target)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts, err := parseOptions(args, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	if _, err := os.Stat(opts.source); errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintf(out, "no data file at %s, nothing to migrate\n", opts.source)
		return nil
	}
	src, err := file.Open(opts.source)
	if err != nil {
		return err
	}

	dialect := sqldb.Postgres
	dsn := opts.dsn
	if opts.target == config.BackendSQLite {
		dialect = sqldb.SQLite
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return err
		}
		dsn = sqldb.SQLiteDSN(dsn)
	}
	dst, err := sqldb.Open(dialect, dsn, sqldb.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	report, err := app.NewImporter(src, dst, app.NewIDGenerator(time.Now)).Run(ctx)
	if err != nil {
		return err
	}
	if report.Read == 0 {
		_, _ = fmt.Fprintln(out, "nothing to migrate")
		return nil
	}
	for _, f := range report.Failed {
		_, _ = fmt.Fprintf(out, "skipped %s (id %d): %v\n", f.Entry.Date, f.Entry.ID, f.Err)
	}
	_, _ = fmt.Fprintf(out, "migrated %d of %d entries into %s\n", report.Inserted, report.Read, opts.target)
	return nil
}
