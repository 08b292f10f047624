package compliance

import (
	"context"

	id "github.com/texlink-oficial/texlink/pkg/domain"
)

// Store persists the singleton per-credential analysis. Save overwrites any
// prior record for the credential. Implementations return sentinel.ErrNotFound
// from FindByCredential when no analysis exists.
type Store interface {
	Save(ctx context.Context, analysis *Analysis) error
	FindByCredential(ctx context.Context, credentialID id.CredentialID) (*Analysis, error)

	// ListPendingReviews returns analyses awaiting a human decision for the
	// brand, most severe risk level first, oldest first within a level.
	ListPendingReviews(ctx context.Context, brandID id.BrandID) ([]Analysis, error)
}
