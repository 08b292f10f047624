// Package service implements the credential lifecycle manager: the single
// source of truth for mutation legality and the transition audit trail.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/texlink-oficial/texlink/internal/audit"
	"github.com/texlink-oficial/texlink/internal/credential"
	credmetrics "github.com/texlink-oficial/texlink/internal/credential/metrics"
	"github.com/texlink-oficial/texlink/pkg/cnpj"
	id "github.com/texlink-oficial/texlink/pkg/domain"
	dErrors "github.com/texlink-oficial/texlink/pkg/domain-errors"
	"github.com/texlink-oficial/texlink/pkg/platform/sentinel"
	"github.com/texlink-oficial/texlink/pkg/requestcontext"
)

// revalidationReason is the system-authored history reason recorded when a tax
// ID change forces the credential back to DRAFT.
const revalidationReason = "tax ID changed, revalidation required"

// AuditPublisher receives lifecycle events. Emission is best-effort: the
// history rows in the store remain the source of truth.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates credential mutations against the store.
type Service struct {
	store   credential.Store
	logger  *slog.Logger
	metrics *credmetrics.Metrics
	audit   AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *credmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func New(store credential.Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput carries the caller-supplied fields for a new credential.
type CreateInput struct {
	TaxID       string
	CompanyName string
	TradeName   string
	Email       string
	Phone       string
	ContactName string
	Category    string
	Priority    int
}

// Create normalizes the tax ID, enforces the one-non-blocked-credential
// invariant and records the creation history entry.
func (s *Service) Create(ctx context.Context, input CreateInput) (*credential.Credential, error) {
	actor := requestcontext.Actor(ctx)
	if !actor.IsBrandScoped() {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller is not brand-scoped")
	}

	taxID := cnpj.Normalize(input.TaxID)
	if !cnpj.Valid(taxID) {
		return nil, dErrors.New(dErrors.CodeValidation, "tax ID must contain 14 digits")
	}

	now := requestcontext.Now(ctx)
	cred := &credential.Credential{
		ID:          id.NewCredentialID(),
		BrandID:     actor.BrandID,
		TaxID:       taxID,
		CompanyName: input.CompanyName,
		TradeName:   input.TradeName,
		Email:       input.Email,
		Phone:       input.Phone,
		ContactName: input.ContactName,
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      credential.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	entry := credential.HistoryEntry{
		CredentialID: cred.ID,
		FromStatus:   nil,
		ToStatus:     credential.StatusDraft,
		PerformedBy:  performerID(actor),
		Reason:       "credential created",
		CreatedAt:    now,
	}

	if err := s.store.Create(ctx, cred, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a credential for this tax ID already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create credential")
	}

	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.emitAudit(ctx, audit.Event{
		CredentialID: cred.ID.String(),
		BrandID:      cred.BrandID.String(),
		Action:       audit.ActionCredentialCreated,
		ToStatus:     string(credential.StatusDraft),
		ActorID:      performerID(actor),
	})
	return cred, nil
}

// UpdateInput is a partial patch; nil fields are left untouched.
type UpdateInput struct {
	TaxID       *string
	CompanyName *string
	TradeName   *string
	Email       *string
	Phone       *string
	ContactName *string
	Category    *string
	Priority    *int
}

// Update patches an editable credential. A tax ID change re-checks uniqueness,
// discards the registry-validation snapshot and forces the credential back to
// DRAFT for revalidation.
func (s *Service) Update(ctx context.Context, credentialID id.CredentialID, patch UpdateInput) (*credential.Credential, error) {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	var newTaxID string
	if patch.TaxID != nil {
		newTaxID = cnpj.Normalize(*patch.TaxID)
		if !cnpj.Valid(newTaxID) {
			return nil, dErrors.New(dErrors.CodeValidation, "tax ID must contain 14 digits")
		}
	}

	// The uniqueness check runs before Execute: the store callback runs under
	// the store's own lock, so it must not call back into the store. The
	// partial unique index on (brand_id, tax_id) catches a racing writer, and
	// Execute surfaces that as a conflict.
	if newTaxID != "" {
		current, err := s.store.FindByID(ctx, credentialID)
		if err != nil {
			return nil, translateStoreErr(err, "failed to update credential")
		}
		if err := requireSameBrand(actor, current); err != nil {
			return nil, err
		}
		if !credential.EditableStatuses.Contains(current.Status) {
			return nil, dErrors.Newf(dErrors.CodeInvalidState, "credential in status %s cannot be edited", current.Status)
		}
		if newTaxID != current.TaxID {
			existing, err := s.store.FindNonBlocked(ctx, current.BrandID, newTaxID)
			if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check tax ID uniqueness")
			}
			if existing != nil && existing.ID != credentialID {
				return nil, dErrors.New(dErrors.CodeConflict, "a credential for this tax ID already exists")
			}
		}
	}

	cred, err := s.store.Execute(ctx, credentialID,
		func(c *credential.Credential) error {
			if err := requireSameBrand(actor, c); err != nil {
				return err
			}
			if !credential.EditableStatuses.Contains(c.Status) {
				return dErrors.Newf(dErrors.CodeInvalidState, "credential in status %s cannot be edited", c.Status)
			}
			return nil
		},
		func(c *credential.Credential) *credential.HistoryEntry {
			applyPatch(c, patch)
			c.UpdatedAt = now

			if newTaxID == "" || newTaxID == c.TaxID {
				return nil
			}

			// Tax ID changed: prior registry facts no longer apply.
			c.TaxID = newTaxID
			c.LastValidation = nil

			if c.Status == credential.StatusDraft {
				return nil
			}
			from := c.Status
			c.Status = credential.StatusDraft
			return &credential.HistoryEntry{
				CredentialID: c.ID,
				FromStatus:   &from,
				ToStatus:     credential.StatusDraft,
				PerformedBy:  id.SystemActor,
				Reason:       revalidationReason,
				CreatedAt:    now,
			}
		},
	)
	if err != nil {
		return nil, translateStoreErr(err, "failed to update credential")
	}
	return cred, nil
}

// Remove soft-deletes a credential by transitioning it to BLOCKED. The row and
// its history survive for audit and referential integrity.
func (s *Service) Remove(ctx context.Context, credentialID id.CredentialID) error {
	actor := requestcontext.Actor(ctx)

	_, err := s.transition(ctx, credentialID, transitionRequest{
		op:     credential.OpRemove,
		target: credential.StatusBlocked,
		reason: "credential removed",
		gate: func(c *credential.Credential) error {
			if err := requireSameBrand(actor, c); err != nil {
				return err
			}
			if !credential.RemovableStatuses.Contains(c.Status) {
				return dErrors.Newf(dErrors.CodeInvalidState, "credential in status %s cannot be removed", c.Status)
			}
			return nil
		},
	})
	return err
}

// ChangeStatus is the generic transition primitive. The transition table is
// consulted centrally here: a (current status, operation) pair that does not
// permit the target is refused before any write.
func (s *Service) ChangeStatus(
	ctx context.Context,
	credentialID id.CredentialID,
	op credential.OperationKind,
	target credential.Status,
	reason string,
) (*credential.Credential, error) {
	if !target.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown status %q", target)
	}
	return s.transition(ctx, credentialID, transitionRequest{op: op, target: target, reason: reason})
}

type transitionRequest struct {
	op     credential.OperationKind
	target credential.Status
	reason string
	// gate runs before the table check, holding operation-specific
	// preconditions (brand scope, allow-lists).
	gate func(*credential.Credential) error
}

func (s *Service) transition(ctx context.Context, credentialID id.CredentialID, req transitionRequest) (*credential.Credential, error) {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)

	var fromStatus credential.Status
	cred, err := s.store.Execute(ctx, credentialID,
		func(c *credential.Credential) error {
			if req.gate != nil {
				if err := req.gate(c); err != nil {
					return err
				}
			}
			if !credential.TransitionAllowed(c.Status, req.op, req.target) {
				if s.metrics != nil {
					s.metrics.IncrementDenied()
				}
				return dErrors.Newf(dErrors.CodeInvalidState,
					"transition %s -> %s is not permitted for operation %s", c.Status, req.target, req.op)
			}
			return nil
		},
		func(c *credential.Credential) *credential.HistoryEntry {
			fromStatus = c.Status
			c.Status = req.target
			c.UpdatedAt = now
			if req.target == credential.StatusActive && c.CompletedAt == nil {
				completed := now
				c.CompletedAt = &completed
			}
			from := fromStatus
			return &credential.HistoryEntry{
				CredentialID: c.ID,
				FromStatus:   &from,
				ToStatus:     req.target,
				PerformedBy:  performerID(actor),
				Reason:       req.reason,
				CreatedAt:    now,
			}
		},
	)
	if err != nil {
		return nil, translateStoreErr(err, "failed to change credential status")
	}

	if s.metrics != nil {
		s.metrics.ObserveTransition(string(req.target))
	}
	s.emitAudit(ctx, audit.Event{
		CredentialID: cred.ID.String(),
		BrandID:      cred.BrandID.String(),
		Action:       audit.ActionStatusChanged,
		FromStatus:   string(fromStatus),
		ToStatus:     string(req.target),
		Reason:       req.reason,
		ActorID:      performerID(actor),
	})
	return cred, nil
}

// RecordValidation stores a registry-validation snapshot and moves the
// credential out of PENDING_VALIDATION based on the outcome.
func (s *Service) RecordValidation(ctx context.Context, credentialID id.CredentialID, snapshot credential.ValidationSnapshot) (*credential.Credential, error) {
	target := credential.StatusPendingCompliance
	reason := "registry validation succeeded"
	if !snapshot.Valid {
		target = credential.StatusValidationFailed
		reason = "registry validation failed"
	}

	now := requestcontext.Now(ctx)
	cred, err := s.store.Execute(ctx, credentialID,
		func(c *credential.Credential) error {
			if !credential.TransitionAllowed(c.Status, credential.OpRecordValidation, target) {
				return dErrors.Newf(dErrors.CodeInvalidState,
					"transition %s -> %s is not permitted for operation %s", c.Status, target, credential.OpRecordValidation)
			}
			return nil
		},
		func(c *credential.Credential) *credential.HistoryEntry {
			from := c.Status
			c.Status = target
			c.UpdatedAt = now
			snap := snapshot
			c.LastValidation = &snap
			return &credential.HistoryEntry{
				CredentialID: c.ID,
				FromStatus:   &from,
				ToStatus:     target,
				PerformedBy:  id.SystemActor,
				Reason:       reason,
				CreatedAt:    now,
			}
		},
	)
	if err != nil {
		return nil, translateStoreErr(err, "failed to record validation")
	}
	return cred, nil
}

// Get loads one credential, enforcing brand scoping.
func (s *Service) Get(ctx context.Context, credentialID id.CredentialID) (*credential.Credential, error) {
	cred, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		return nil, translateStoreErr(err, "failed to load credential")
	}
	if err := requireSameBrand(requestcontext.Actor(ctx), cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// List returns a filtered page of the caller's brand's credentials.
func (s *Service) List(ctx context.Context, query credential.ListQuery) (*credential.PageResult, error) {
	actor := requestcontext.Actor(ctx)
	if !actor.IsBrandScoped() {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller is not brand-scoped")
	}
	query.BrandID = actor.BrandID
	result, err := s.store.List(ctx, query)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list credentials")
	}
	return result, nil
}

// History returns the transition log for one credential, oldest first.
func (s *Service) History(ctx context.Context, credentialID id.CredentialID) ([]credential.HistoryEntry, error) {
	if _, err := s.Get(ctx, credentialID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListHistory(ctx, credentialID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}
	return entries, nil
}

// Stats aggregates the caller's brand funnel counters.
type Stats struct {
	Total              int
	ByStatus           map[credential.Status]int
	CreatedThisMonth   int
	CompletedThisMonth int
	PendingAction      int
	AwaitingResponse   int
	ConversionRate     float64 // active / total * 100, 2 decimals
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	actor := requestcontext.Actor(ctx)
	if !actor.IsBrandScoped() {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller is not brand-scoped")
	}

	counts, err := s.store.CountByStatus(ctx, actor.BrandID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate stats")
	}

	now := requestcontext.Now(ctx)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	created, err := s.store.CountCreatedSince(ctx, actor.BrandID, monthStart)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate stats")
	}
	completed, err := s.store.CountCompletedSince(ctx, actor.BrandID, monthStart)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate stats")
	}

	stats := &Stats{
		ByStatus:           counts,
		CreatedThisMonth:   created,
		CompletedThisMonth: completed,
	}
	for status, count := range counts {
		stats.Total += count
		if credential.PendingActionStatuses.Contains(status) {
			stats.PendingAction += count
		}
		if credential.AwaitingSupplierStatuses.Contains(status) {
			stats.AwaitingResponse += count
		}
	}
	if stats.Total > 0 {
		rate := float64(counts[credential.StatusActive]) / float64(stats.Total) * 100
		stats.ConversionRate = math.Round(rate*100) / 100
	}
	return stats, nil
}

func applyPatch(c *credential.Credential, patch UpdateInput) {
	if patch.CompanyName != nil {
		c.CompanyName = *patch.CompanyName
	}
	if patch.TradeName != nil {
		c.TradeName = *patch.TradeName
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	if patch.Phone != nil {
		c.Phone = *patch.Phone
	}
	if patch.ContactName != nil {
		c.ContactName = *patch.ContactName
	}
	if patch.Category != nil {
		c.Category = *patch.Category
	}
	if patch.Priority != nil {
		c.Priority = *patch.Priority
	}
}

func requireSameBrand(actor requestcontext.CallerIdentity, c *credential.Credential) error {
	// System actors bypass brand scoping; they act on behalf of the platform.
	if !actor.IsBrandScoped() {
		return nil
	}
	if actor.BrandID != c.BrandID {
		return dErrors.New(dErrors.CodeForbidden, "credential belongs to another brand")
	}
	return nil
}

func performerID(actor requestcontext.CallerIdentity) string {
	if actor.UserID.IsNil() {
		return id.SystemActor
	}
	return actor.UserID.String()
}

func translateStoreErr(err error, internalMessage string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "credential not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "a credential for this tax ID already exists")
	}
	// Coded errors from validate callbacks pass through untouched.
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internalMessage)
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}
