package repository

import (
	"context"

	"fitsearch/internal/model"
)

// Query is one catalogue request built from a compiled filter
type Query struct {
	Filter    *model.FilterSpec
	Keywords  []string
	Embedding []float32
	Limit     int
	Offset    int
}

// Catalogue is the search collaborator contract. Implementations must apply the
// filter exactly and, when Filter.Sort is set, return rows in that order.
type Catalogue interface {
	Search(ctx context.Context, q Query) ([]model.Installation, int, error)
	Aggregate(ctx context.Context, filter *model.FilterSpec) (*model.AggregateResult, error)
	GetInstallation(ctx context.Context, installationID string) (*model.Installation, error)
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
	LogSearch(ctx context.Context, entry SearchLog) error
	LogFeedback(ctx context.Context, searchID, installationID, action string) error
	Close() error
}

// SearchLog is one row of the search audit log
type SearchLog struct {
	SearchID        string
	SessionID       string
	Query           string
	Intent          model.Intent
	Filter          *model.FilterSpec
	ResultCount     int
	InstallationIDs []string
	ResponseTimeMs  int
}
