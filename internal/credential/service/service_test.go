package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texlink-oficial/texlink/internal/credential"
	id "github.com/texlink-oficial/texlink/pkg/domain"
	dErrors "github.com/texlink-oficial/texlink/pkg/domain-errors"
	"github.com/texlink-oficial/texlink/pkg/requestcontext"
)

var serviceNow = time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	store   *credential.InMemoryStore
	service *Service
	brandID id.BrandID
	userID  id.UserID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := credential.NewInMemoryStore()
	return &fixture{
		store:   store,
		service: New(store),
		brandID: id.NewBrandID(),
		userID:  id.NewUserID(),
	}
}

func (f *fixture) ctx() context.Context {
	ctx := requestcontext.WithActor(context.Background(), requestcontext.CallerIdentity{
		UserID:  f.userID,
		BrandID: f.brandID,
	})
	return requestcontext.WithTime(ctx, serviceNow)
}

func (f *fixture) ctxAt(at time.Time) context.Context {
	ctx := requestcontext.WithActor(context.Background(), requestcontext.CallerIdentity{
		UserID:  f.userID,
		BrandID: f.brandID,
	})
	return requestcontext.WithTime(ctx, at)
}

func (f *fixture) systemCtx() context.Context {
	return requestcontext.WithTime(context.Background(), serviceNow)
}

func (f *fixture) create(t *testing.T, taxID string) *credential.Credential {
	t.Helper()
	cred, err := f.service.Create(f.ctx(), CreateInput{
		TaxID:       taxID,
		CompanyName: "Malharia Horizonte LTDA",
		Email:       "contato@horizonte.example",
		Category:    "KNITWEAR",
	})
	require.NoError(t, err)
	return cred
}

// walk drives a credential along legal transitions straight through the store,
// so tests can start from any lifecycle position.
func (f *fixture) walk(t *testing.T, credentialID id.CredentialID, statuses ...credential.Status) {
	t.Helper()
	for _, status := range statuses {
		_, err := f.store.Execute(context.Background(), credentialID,
			func(c *credential.Credential) error { return nil },
			func(c *credential.Credential) *credential.HistoryEntry {
				c.Status = status
				return nil
			},
		)
		require.NoError(t, err)
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	cred, err := f.service.Create(f.ctx(), CreateInput{
		TaxID:       "11.222.333/0001-81",
		CompanyName: "Malharia Horizonte LTDA",
		Priority:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, "11222333000181", cred.TaxID, "tax ID is stored normalized")
	assert.Equal(t, credential.StatusDraft, cred.Status)
	assert.Equal(t, f.brandID, cred.BrandID)
	assert.Equal(t, serviceNow, cred.CreatedAt)

	history, err := f.service.History(f.ctx(), cred.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].FromStatus)
	assert.Equal(t, credential.StatusDraft, history[0].ToStatus)
	assert.Equal(t, f.userID.String(), history[0].PerformedBy)
}

func TestCreate_InvalidTaxID(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Create(f.ctx(), CreateInput{TaxID: "123"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCreate_RequiresBrandScope(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Create(f.systemCtx(), CreateInput{TaxID: "11222333000181"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestCreate_DuplicateTaxIDConflicts(t *testing.T) {
	f := newFixture(t)
	f.create(t, "11222333000181")

	_, err := f.service.Create(f.ctx(), CreateInput{TaxID: "11222333000181"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCreate_BlockedDuplicateIsAllowed(t *testing.T) {
	f := newFixture(t)
	cred := f.create(t, "11222333000181")
	require.NoError(t, f.service.Remove(f.ctx(), cred.ID))

	again, err := f.service.Create(f.ctx(), CreateInput{TaxID: "11222333000181"})
	require.NoError(t, err)
	assert.NotEqual(t, cred.ID, again.ID)
}

func TestUpdate_PatchesFields(t *testing.T) {
	f := newFixture(t)
	cred := f.create(t, "11222333000181")

	name := "Malharia Horizonte S.A."
	priority := 5
	updated, err := f.service.Update(f.ctx(), cred.ID, UpdateInput{
		CompanyName: &name,
		Priority:    &priority,
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.CompanyName)
	assert.Equal(t, priority, updated.Priority)
	assert.Equal(t, credential.StatusDraft, updated.Status)
}

func TestUpdate_RefusedOutsideEditableStatuses(t *testing.T) {
	f := newFixture(t)
	cred := f.create(t, "11222333000181")
	f.walk(t, cred.ID, credential.StatusActive)

	name := "renamed"
	_, err := f.service.Update(f.ctx(), cred.ID, UpdateInput{CompanyName: &name})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestUpdate_TaxIDChangeForcesRevalidation(t *testing.T) {
	f := newFixture(t)
	cred := f.create(t, "11222333000181")
	f.walk(t, cred.ID, credential.StatusComplianceRejected)
	// Simulate a surviving registry snapshot from the earlier run.
	_, err := f.store.Execute(context.Background(), cred.ID,
		func(c *credential.Credential) error { return nil },
		func(c *credential.Credential) *credential.HistoryEntry {
			c.LastValidation = &credential.ValidationSnapshot{CompanyStatus: "ATIVA", ValidatedAt: serviceNow, Valid: true}
			return nil
		},
	)
	require.NoError(t, err)

	newTaxID := "99888777000166"
	updated, err := f.service.Update(f.ctx(), cred.ID, UpdateInput{TaxID: &newTaxID})
	require.NoError(t, err)

	assert.Equal(t, newTaxID, updated.TaxID)
	assert.Equal(t, credential.StatusDraft, updated.Status)
	assert.Nil(t, updated.LastValidation, "registry snapshot is discarded with the old tax ID")

	history, err := f.service.History(f.ctx(), cred.ID)
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, credential.StatusDraft, last.ToStatus)
	assert.Equal(t, id.SystemActor, last.PerformedBy)
}

func TestUpdate_SameTaxIDDoesNotRevalidate(t *testing.T) {
	f := newFixture(t)
	cred := f.create(t, "11222333000181")

	same := "11.222.333/0001-81"
	updated, err := f.service.Update(f.ctx(), cred.ID, UpdateInput{TaxID: &same})
	require.NoError(t, err)
	assert.Equal(t, "11222333000181", updated.TaxID)

	history, err := f.service.History(f.ctx(), cred.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "no revalidation entry for an unchanged tax ID")
}

func TestUpdate_TaxIDChangeConflictsWithExistingCredential(t *testing.T) {
	f := newFixture(t)
	f.create(t, "99888777000166")
	cred := f.create(t, "11222333000181")

	taken := "99888777000166"
	_, err := f.service.Update(f.ctx(), cred.ID, UpdateInput{TaxID: &taken})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestUpdate_TaxIDChangeAllowedWhenHolderIsBlocked(t *testing.T) {
	f := newFixture(t)
	holder := f.create(t, "99888777000166")
	require.NoError(t, f.service.Remove(f.ctx(), holder.ID))
	cred := f.create(t, "11222333000181")

	freed := "99888777000166"
	updated, err := f.service.Update(f.ctx(), cred.ID, UpdateInput{TaxID: &freed})
	require.NoError(t, err)
	assert.Equal(t, freed, updated.TaxID)
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	cred := f.create(t, "11222333000181")

	require.NoError(t, f.service.Remove(f.ctx(), cred.ID))

	loaded, err := f.service.Get(f.ctx(), cred.ID)
	require.NoError(t, err)
	assert.Equal(t, credential.StatusBlocked, loaded.Status)
}

func TestRemove_RefusedOutsideRemovableStatuses(t *testing.T) {
	f := newFixture(t)
	cred := f.create(t, "11222333000181")
	f.walk(t, cred.ID, credential.StatusActive)

	err := f.service.Remove(f.ctx(), cred.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
}

func TestChangeStatus_IllegalTransitionRefused(t *testing.T) {
	f := newFixture(t)
	cred := f.create(t, "11222333000181")

	_, err := f.service.ChangeStatus(f.ctx(), cred.ID, credential.OpActivate, credential.StatusActive, "skip the line")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))

	loaded, err := f.service.Get(f.ctx(), cred.ID)
	require.NoError(t, err)
	assert.Equal(t, credential.StatusDraft, loaded.Status)
}

func TestChangeStatus_UnknownTargetRefused(t *testing.T) {
	f := newFixture(t)
	cred := f.create(t, "11222333000181")

	_, err := f.service.ChangeStatus(f.ctx(), cred.ID, credential.OpActivate, credential.Status("NONSENSE"), "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestChangeStatus_ActivationStampsCompletedAt(t *testing.T) {
	f := newFixture(t)
	cred := f.create(t, "11222333000181")
	f.walk(t, cred.ID, credential.StatusContractSigned)

	activated, err := f.service.ChangeStatus(f.ctx(), cred.ID, credential.OpActivate, credential.StatusActive, "contract signed")
	require.NoError(t, err)
	require.NotNil(t, activated.CompletedAt)
	assert.Equal(t, serviceNow, *activated.CompletedAt)
}

func TestChangeStatus_IntermediateTransitionsDoNotStampCompletedAt(t *testing.T) {
	f := newFixture(t)
	cred := f.create(t, "11222333000181")

	moved, err := f.service.ChangeStatus(f.ctx(), cred.ID, credential.OpSubmitValidation, credential.StatusPendingValidation, "")
	require.NoError(t, err)
	assert.Nil(t, moved.CompletedAt)
}

func TestRecordValidation(t *testing.T) {
	f := newFixture(t)
	foundedAt := time.Date(2015, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("success moves to pending compliance", func(t *testing.T) {
		cred := f.create(t, "11222333000181")
		f.walk(t, cred.ID, credential.StatusPendingValidation)

		updated, err := f.service.RecordValidation(f.ctx(), cred.ID, credential.ValidationSnapshot{
			CompanyStatus: "ATIVA",
			CapitalStock:  250000,
			FoundedAt:     &foundedAt,
			ValidatedAt:   serviceNow,
			Valid:         true,
		})
		require.NoError(t, err)
		assert.Equal(t, credential.StatusPendingCompliance, updated.Status)
		require.NotNil(t, updated.LastValidation)
		assert.Equal(t, "ATIVA", updated.LastValidation.CompanyStatus)
	})

	t.Run("failure moves to validation failed", func(t *testing.T) {
		cred := f.create(t, "99888777000166")
		f.walk(t, cred.ID, credential.StatusPendingValidation)

		updated, err := f.service.RecordValidation(f.ctx(), cred.ID, credential.ValidationSnapshot{
			ValidatedAt: serviceNow,
			Valid:       false,
		})
		require.NoError(t, err)
		assert.Equal(t, credential.StatusValidationFailed, updated.Status)
	})

	t.Run("refused outside pending validation", func(t *testing.T) {
		cred := f.create(t, "55666777000155")

		_, err := f.service.RecordValidation(f.ctx(), cred.ID, credential.ValidationSnapshot{Valid: true})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestGet_OtherBrandIsForbidden(t *testing.T) {
	f := newFixture(t)
	cred := f.create(t, "11222333000181")

	otherCtx := requestcontext.WithActor(context.Background(), requestcontext.CallerIdentity{
		UserID:  id.NewUserID(),
		BrandID: id.NewBrandID(),
	})
	_, err := f.service.Get(otherCtx, cred.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestGet_UnknownIDIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Get(f.ctx(), id.NewCredentialID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestList_RequiresBrandScope(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.List(f.systemCtx(), credential.ListQuery{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestList_ScopedToCallerBrand(t *testing.T) {
	f := newFixture(t)
	f.create(t, "11222333000181")
	f.create(t, "99888777000166")

	other := newFixture(t)
	other.store = f.store
	other.service = f.service
	other.create(t, "55666777000155")

	page, err := f.service.List(f.ctx(), credential.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestStats(t *testing.T) {
	f := newFixture(t)

	active := f.create(t, "11111111000111")
	f.walk(t, active.ID, credential.StatusContractSigned)
	_, err := f.service.ChangeStatus(f.ctx(), active.ID, credential.OpActivate, credential.StatusActive, "")
	require.NoError(t, err)

	f.create(t, "22222222000122")
	sent := f.create(t, "33333333000133")
	f.walk(t, sent.ID, credential.StatusInvitationSent)
	failed := f.create(t, "44444444000144")
	f.walk(t, failed.ID, credential.StatusValidationFailed)

	stats, err := f.service.Stats(f.ctx())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[credential.StatusActive])
	assert.Equal(t, 1, stats.ByStatus[credential.StatusDraft])
	assert.Equal(t, 2, stats.PendingAction, "draft and validation-failed both wait on the brand")
	assert.Equal(t, 1, stats.AwaitingResponse)
	assert.Equal(t, 4, stats.CreatedThisMonth)
	assert.Equal(t, 1, stats.CompletedThisMonth)
	assert.Equal(t, 25.0, stats.ConversionRate)
}

func TestStats_CreatedLastMonthExcluded(t *testing.T) {
	f := newFixture(t)

	lastMonth := serviceNow.AddDate(0, -1, 0)
	_, err := f.service.Create(f.ctxAt(lastMonth), CreateInput{TaxID: "11111111000111"})
	require.NoError(t, err)
	f.create(t, "22222222000122")

	stats, err := f.service.Stats(f.ctx())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.CreatedThisMonth)
}

func TestStats_EmptyBrand(t *testing.T) {
	f := newFixture(t)
	stats, err := f.service.Stats(f.ctx())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.ConversionRate)
}
