// Package source loads raw planning records from the configured backend and
// coerces them into typed domain records.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/ddmrp-planner/internal/config"
	"github.com/andresuchdata/ddmrp-planner/internal/domain"
	"github.com/andresuchdata/ddmrp-planner/internal/repository/postgres"
	"github.com/andresuchdata/ddmrp-planner/internal/storage"
)

// Source produces a normalized dataset. Implementations must be safe to call
// repeatedly; each call reflects the current state of the backend.
type Source interface {
	Load(ctx context.Context) (*domain.Dataset, error)
}

const (
	KindPostgres = "postgres"
	KindFile     = "file"
	KindBucket   = "bucket"
)

// New builds the source selected by cfg.App.Source.
func New(cfg *config.Config) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.App.Source)) {
	case KindPostgres, "db", "":
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return NewPostgresSource(postgres.NewPlanningRepository(db), postgres.Scope{}), nil
	case KindFile:
		return NewFileSource(cfg.App.DataDir), nil
	case KindBucket:
		store, err := storage.New(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		return NewBucketSource(store, cfg.Storage.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.App.Source)
	}
}
