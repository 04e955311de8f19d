package types

import (
	"context"
)

// UpstreamClient is the transport boundary to the museum collection API.
// Every call is rate-limited before it leaves the process.
type UpstreamClient interface {
	// SearchObjectIDs resolves the ordered object-id listing for a query.
	SearchObjectIDs(ctx context.Context, query SearchQuery) ([]int, error)
	// FetchObject retrieves and parses one object. Exactly one of the return
	// values is non-nil; failures are already classified.
	FetchObject(ctx context.Context, objectID int) (*MuseumObject, *FetchFailure)
	// FetchDepartments retrieves the department listing.
	FetchDepartments(ctx context.Context) ([]Department, error)
}

// ArtworkProvider is the consumer surface of the engine.
type ArtworkProvider interface {
	GetObject(ctx context.Context, objectID int, forceRetry bool) (*Artwork, error)
	GetObjects(ctx context.Context, page, perPage int, highlightsOnly bool, departmentID *int) (*Page, error)
	Search(ctx context.Context, query string, page, perPage int, departmentID *int, isHighlight *bool) (*Page, error)
	Departments(ctx context.Context) ([]Department, error)
	// ClearObject removes the cache entry, the failure record and any held
	// lock for one object id.
	ClearObject(ctx context.Context, objectID int) error
}
