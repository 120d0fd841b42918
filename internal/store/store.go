package store

import (
	"context"

	"github.com/okanogan-digital/directory-cli/internal/model"
)

// RunFilter specifies criteria for listing enrichment runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Zip    string          `json:"zip,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for the directory pipeline.
//
// UpsertBusiness matches an existing row by exact name, or by the pair of
// address and phone when both are present, and replaces it; otherwise it
// inserts a new row.
type Store interface {
	// Businesses
	UpsertBusiness(ctx context.Context, b *model.Business) error
	GetBusiness(ctx context.Context, id string) (*model.Business, error)
	ListBusinesses(ctx context.Context, limit, offset int) ([]model.Business, error)

	// Runs
	CreateRun(ctx context.Context, zip string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, businesses int, diag *model.Diagnostics) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
