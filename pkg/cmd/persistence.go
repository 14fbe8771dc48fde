package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zapline/zapline/pkg/fingerprint"
	"github.com/zapline/zapline/pkg/persistence"
	"github.com/zapline/zapline/pkg/persistence/postgresql"
)

// NewPersistence opens the relational store. Only PostgreSQL is supported
// in production.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	if err != nil {
		panic(fmt.Errorf("failed to create persistence: %w", err))
	}

	return store
}

// NewFingerprintStore opens the change-detection store. Redis is the
// production backend; "memory://" exists for local single-process runs.
func NewFingerprintStore(ctx context.Context, url string) fingerprint.Store {
	if strings.HasPrefix(url, "memory://") {
		return fingerprint.NewMemoryStore()
	}

	store, err := fingerprint.NewRedisStore(ctx, url)
	if err != nil {
		panic(fmt.Errorf("failed to create fingerprint store: %w", err))
	}

	return store
}
