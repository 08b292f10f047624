package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/texlink-oficial/texlink/pkg/domain"
	"github.com/texlink-oficial/texlink/pkg/platform/sentinel"
)

var storeNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seedCredential(t *testing.T, store *InMemoryStore, brandID id.BrandID, taxID string, status Status) *Credential {
	t.Helper()
	cred := &Credential{
		ID:          id.NewCredentialID(),
		BrandID:     brandID,
		TaxID:       taxID,
		CompanyName: "Tecelagem Aurora LTDA",
		Status:      status,
		CreatedAt:   storeNow,
		UpdatedAt:   storeNow,
	}
	entry := HistoryEntry{
		CredentialID: cred.ID,
		ToStatus:     status,
		PerformedBy:  id.SystemActor,
		Reason:       "seeded",
		CreatedAt:    storeNow,
	}
	require.NoError(t, store.Create(context.Background(), cred, entry))
	return cred
}

func TestInMemoryStore_CreateRejectsDuplicateLiveTaxID(t *testing.T) {
	store := NewInMemoryStore()
	brandID := id.NewBrandID()
	seedCredential(t, store, brandID, "11222333000181", StatusDraft)

	dup := &Credential{
		ID:      id.NewCredentialID(),
		BrandID: brandID,
		TaxID:   "11222333000181",
		Status:  StatusDraft,
	}
	err := store.Create(context.Background(), dup, HistoryEntry{CredentialID: dup.ID, ToStatus: StatusDraft})
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestInMemoryStore_CreateAllowsDuplicateWhenExistingIsBlocked(t *testing.T) {
	store := NewInMemoryStore()
	brandID := id.NewBrandID()
	seedCredential(t, store, brandID, "11222333000181", StatusBlocked)

	fresh := &Credential{
		ID:      id.NewCredentialID(),
		BrandID: brandID,
		TaxID:   "11222333000181",
		Status:  StatusDraft,
	}
	err := store.Create(context.Background(), fresh, HistoryEntry{CredentialID: fresh.ID, ToStatus: StatusDraft})
	assert.NoError(t, err)
}

func TestInMemoryStore_CreateAllowsSameTaxIDAcrossBrands(t *testing.T) {
	store := NewInMemoryStore()
	seedCredential(t, store, id.NewBrandID(), "11222333000181", StatusDraft)
	seedCredential(t, store, id.NewBrandID(), "11222333000181", StatusDraft)
}

func TestInMemoryStore_FindByIDReturnsACopy(t *testing.T) {
	store := NewInMemoryStore()
	cred := seedCredential(t, store, id.NewBrandID(), "11222333000181", StatusDraft)

	loaded, err := store.FindByID(context.Background(), cred.ID)
	require.NoError(t, err)
	loaded.CompanyName = "mutated"

	again, err := store.FindByID(context.Background(), cred.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tecelagem Aurora LTDA", again.CompanyName)
}

func TestInMemoryStore_ExecuteFailedValidationLeavesNoWrite(t *testing.T) {
	store := NewInMemoryStore()
	cred := seedCredential(t, store, id.NewBrandID(), "11222333000181", StatusDraft)

	_, err := store.Execute(context.Background(), cred.ID,
		func(c *Credential) error { return sentinel.ErrConflict },
		func(c *Credential) *HistoryEntry {
			t.Fatal("mutate must not run after a failed validation")
			return nil
		},
	)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	loaded, err := store.FindByID(context.Background(), cred.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, loaded.Status)

	history, err := store.ListHistory(context.Background(), cred.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestInMemoryStore_ExecuteAppendsHistoryAtomically(t *testing.T) {
	store := NewInMemoryStore()
	cred := seedCredential(t, store, id.NewBrandID(), "11222333000181", StatusDraft)

	updated, err := store.Execute(context.Background(), cred.ID,
		func(c *Credential) error { return nil },
		func(c *Credential) *HistoryEntry {
			from := c.Status
			c.Status = StatusPendingValidation
			return &HistoryEntry{
				CredentialID: c.ID,
				FromStatus:   &from,
				ToStatus:     StatusPendingValidation,
				PerformedBy:  id.SystemActor,
				CreatedAt:    storeNow,
			}
		},
	)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingValidation, updated.Status)

	history, err := store.ListHistory(context.Background(), cred.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[1].FromStatus)
	assert.Equal(t, StatusDraft, *history[1].FromStatus)
	assert.Equal(t, StatusPendingValidation, history[1].ToStatus)
}

func TestInMemoryStore_ExecuteUnknownIDIsNotFound(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Execute(context.Background(), id.NewCredentialID(),
		func(c *Credential) error { return nil },
		func(c *Credential) *HistoryEntry { return nil },
	)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_ListFiltersAndPaginates(t *testing.T) {
	store := NewInMemoryStore()
	brandID := id.NewBrandID()

	taxIDs := []string{"11111111000111", "22222222000122", "33333333000133"}
	for i, taxID := range taxIDs {
		cred := &Credential{
			ID:          id.NewCredentialID(),
			BrandID:     brandID,
			TaxID:       taxID,
			CompanyName: "Fornecedor " + taxID,
			Category:    "FABRIC",
			Status:      StatusDraft,
			CreatedAt:   storeNow.Add(time.Duration(i) * time.Hour),
			UpdatedAt:   storeNow.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.Create(context.Background(), cred, HistoryEntry{CredentialID: cred.ID, ToStatus: StatusDraft}))
	}
	// A different brand's credential never leaks into the listing.
	seedCredential(t, store, id.NewBrandID(), "44444444000144", StatusDraft)

	page, err := store.List(context.Background(), ListQuery{
		BrandID: brandID,
		SortBy:  SortByCreatedAt,
		Page:    1,
		Limit:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "11111111000111", page.Items[0].TaxID)
	assert.Equal(t, "22222222000122", page.Items[1].TaxID)

	page, err = store.List(context.Background(), ListQuery{
		BrandID: brandID,
		SortBy:  SortByCreatedAt,
		Page:    2,
		Limit:   2,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "33333333000133", page.Items[0].TaxID)

	page, err = store.List(context.Background(), ListQuery{
		BrandID: brandID,
		Search:  "22222222000122",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	page, err = store.List(context.Background(), ListQuery{
		BrandID:  brandID,
		Statuses: []Status{StatusActive},
	})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}

func TestInMemoryStore_CountByStatus(t *testing.T) {
	store := NewInMemoryStore()
	brandID := id.NewBrandID()
	seedCredential(t, store, brandID, "11111111000111", StatusDraft)
	seedCredential(t, store, brandID, "22222222000122", StatusDraft)
	seedCredential(t, store, brandID, "33333333000133", StatusActive)
	seedCredential(t, store, id.NewBrandID(), "44444444000144", StatusDraft)

	counts, err := store.CountByStatus(context.Background(), brandID)
	require.NoError(t, err)
	assert.Equal(t, map[Status]int{StatusDraft: 2, StatusActive: 1}, counts)
}
