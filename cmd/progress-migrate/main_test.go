package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dietprogress/internal/adapter/sqldb"
	"dietprogress/internal/config"
)

func TestParseOptions(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{"DATABASE_URL": "postgres://db/diet"})
	if err != nil {
		t.Fatal(err)
	}
	opts, err := parseOptions(nil, cfg)
	if err != nil {
		t.Fatalf("parseOptions: %v", err)
	}
	if opts.target != "postgres" || opts.dsn != "postgres://db/diet" || opts.source != "data/progress_data.json" {
		t.Fatalf("unexpected options: %+v", opts)
	}

	if _, err := parseOptions([]string{"-target", "mysql"}, cfg); err == nil {
		t.Fatal("expected error for unsupported target")
	}

	noURL, _ := config.LoadFrom(map[string]string{})
	if _, err := parseOptions(nil, noURL); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestRunIntoSQLite(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "progress_data.json")
	data := `[
  {"id": 1704067200000, "date": "2024-01-01", "weight": 90, "bodyFat": 25},
  {"id": 1704153600000, "date": "2024-01-02", "weight": 89.5, "bodyFat": 24.5},
  {"id": 1704153600001, "date": "2024-01-02", "weight": 89.4, "bodyFat": 24.4},
  {"date": "2024-01-03", "weight": "89", "bodyFat": "24"}
]`
	if err := os.WriteFile(source, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "db", "progress.db")

	var out bytes.Buffer
	err := run(context.Background(), []string{"-source", source, "-target", "sqlite", "-dsn", target}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "migrated 3 of 4 entries") {
		t.Fatalf("unexpected output: %s", out.String())
	}
	if !strings.Contains(out.String(), "skipped 2024-01-02") {
		t.Fatalf("expected skipped row in output: %s", out.String())
	}

	db, err := sqldb.Open(sqldb.SQLite, sqldb.SQLiteDSN(target), sqldb.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	all, err := db.GetAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Date != "2024-01-03" || all[0].ID == 0 {
		t.Fatalf("unexpected rows: %v", all)
	}
}

func TestRunMissingSource(t *testing.T) {
	var out bytes.Buffer
	dir := t.TempDir()
	err := run(context.Background(), []string{
		"-source", filepath.Join(dir, "missing.json"),
		"-target", "sqlite",
		"-dsn", filepath.Join(dir, "progress.db"),
	}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "nothing to migrate") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}
