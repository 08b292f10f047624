package credential

import (
	"context"
	"time"

	id "github.com/texlink-oficial/texlink/pkg/domain"
)

// SortField names a supported ordering column for credential listings.
type SortField string

const (
	SortByCreatedAt   SortField = "created_at"
	SortByUpdatedAt   SortField = "updated_at"
	SortByPriority    SortField = "priority"
	SortByCompanyName SortField = "company_name"
)

// ListQuery describes a brand-scoped, filtered, paginated credential listing.
type ListQuery struct {
	BrandID id.BrandID

	// Search matches tax ID, company name, trade name, contact name and email.
	Search   string
	Statuses []Status
	Category string

	CreatedFrom *time.Time
	CreatedTo   *time.Time

	Page     int // 1-based; defaults to 1
	Limit    int // defaults to 20
	SortBy   SortField
	SortDesc bool
}

// Normalize applies the listing defaults in place.
func (q *ListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.SortBy == "" {
		q.SortBy = SortByCreatedAt
		q.SortDesc = true
	}
}

// PageResult is one page of a credential listing.
type PageResult struct {
	Items []*Credential
	Total int
	Page  int
	Limit int
}

// Store is the persistence boundary for credentials and their history.
// Implementations return pkg/platform/sentinel errors; the service translates
// them into coded domain errors.
type Store interface {
	// Create persists a new credential and its creation history entry as one
	// atomic write. Returns sentinel.ErrConflict when a non-blocked credential
	// already holds the same (brand, tax ID).
	Create(ctx context.Context, cred *Credential, entry HistoryEntry) error

	FindByID(ctx context.Context, credentialID id.CredentialID) (*Credential, error)

	// FindNonBlocked returns the non-blocked credential for a (brand, tax ID)
	// pair, or sentinel.ErrNotFound.
	FindNonBlocked(ctx context.Context, brandID id.BrandID, taxID string) (*Credential, error)

	// Execute atomically loads a credential, runs validate, and only when
	// validate passes runs mutate and persists the result. A non-nil history
	// entry returned by mutate is appended inside the same critical section
	// (transaction in postgres, held lock in memory), so the entry's FromStatus
	// always reflects the true prior state.
	Execute(
		ctx context.Context,
		credentialID id.CredentialID,
		validate func(*Credential) error,
		mutate func(*Credential) *HistoryEntry,
	) (*Credential, error)

	ListHistory(ctx context.Context, credentialID id.CredentialID) ([]HistoryEntry, error)

	List(ctx context.Context, query ListQuery) (*PageResult, error)

	CountByStatus(ctx context.Context, brandID id.BrandID) (map[Status]int, error)
	CountCreatedSince(ctx context.Context, brandID id.BrandID, since time.Time) (int, error)
	CountCompletedSince(ctx context.Context, brandID id.BrandID, since time.Time) (int, error)
}
