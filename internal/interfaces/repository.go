package interfaces

import (
	"context"

	"github.com/ternarybob/dno-gatherer/internal/model"
)

// OperatorRef is the minimal identity of a DNO used for cross-reference
// cache warming (by id, by name, by slug).
type OperatorRef struct {
	ID   string
	Name string
	Slug string
}

// GridChargeFilter canonicalizes a grid-charge search; Repository.search
// builds the cache fingerprint in §6 from this tuple.
type GridChargeFilter struct {
	OperatorID   string
	OperatorName string
	Year         int
	Region       string
	Limit        int
	Offset       int
}

// Repository is the typed, cache-aside facade over the persistent store.
// Reads try cache first, fall back to the store, then populate cache --
// including negative results. Writes update the store then invalidate.
type Repository interface {
	GetOperatorByID(ctx context.Context, id string) (*OperatorRef, error)
	GetOperatorBySlug(ctx context.Context, slug string) (*OperatorRef, error)
	ListOperators(ctx context.Context) ([]*OperatorRef, error)
	UpsertOperator(ctx context.Context, ref *OperatorRef) error

	SearchGridCharges(ctx context.Context, filter GridChargeFilter) ([]model.GridChargeRecord, error)
	SearchLoadWindows(ctx context.Context, filter GridChargeFilter) ([]model.LoadWindowRecord, error)

	PutGridCharges(ctx context.Context, records []model.GridChargeRecord) error
	PutLoadWindows(ctx context.Context, records []model.LoadWindowRecord) error

	PutArtifact(ctx context.Context, a *model.Artifact) error
	GetArtifact(ctx context.Context, id string) (*model.Artifact, error)

	// LatestArtifactForOperator returns the most recently fetched Artifact
	// for operatorKey, used by the Strategy Engine as a reverse-crawl seed.
	// Not cache-aside: freshness matters more than hit rate for a
	// once-per-job lookup, so it reads the store directly.
	LatestArtifactForOperator(ctx context.Context, operatorKey string) (*model.Artifact, error)
}
