package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/competency-assessment/internal/db"
	"github.com/jonathan/competency-assessment/internal/seed"
)

// loadBundle reads content from the configured directory, or the embedded
// content when none is set.
func loadBundle() (*seed.Bundle, error) {
	if cfg.ContentDir == "" {
		return seed.LoadEmbedded()
	}
	bundle, err := seed.Load(os.DirFS(cfg.ContentDir), ".")
	if err != nil {
		return nil, fmt.Errorf("failed to load content from %s: %w", cfg.ContentDir, err)
	}
	return bundle, nil
}

func connectDB(ctx context.Context) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required (set ASSESS_DATABASE_URL or database_url in the config file)")
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, nil
}

// readJSONFile decodes a graded input file, rejecting unknown fields.
func readJSONFile(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to parse input JSON %s: %w", path, err)
	}
	return nil
}
