// Package service orchestrates compliance analysis runs and manual review
// decisions, requesting credential transitions for every automated or human
// outcome.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/texlink-oficial/texlink/internal/audit"
	"github.com/texlink-oficial/texlink/internal/compliance"
	compmetrics "github.com/texlink-oficial/texlink/internal/compliance/metrics"
	"github.com/texlink-oficial/texlink/internal/credential"
	"github.com/texlink-oficial/texlink/internal/verification/providers"
	id "github.com/texlink-oficial/texlink/pkg/domain"
	dErrors "github.com/texlink-oficial/texlink/pkg/domain-errors"
	"github.com/texlink-oficial/texlink/pkg/platform/sentinel"
	"github.com/texlink-oficial/texlink/pkg/requestcontext"
)

// CredentialDirectory is the slice of the credential service the compliance
// engine needs: brand-scoped reads and table-validated transitions.
type CredentialDirectory interface {
	Get(ctx context.Context, credentialID id.CredentialID) (*credential.Credential, error)
	ChangeStatus(ctx context.Context, credentialID id.CredentialID, op credential.OperationKind, target credential.Status, reason string) (*credential.Credential, error)
}

// CreditAnalyzer resolves counterparty credit risk; it degrades rather than
// fails, so any error it does return is terminal for the analysis.
type CreditAnalyzer interface {
	AnalyzeCredit(ctx context.Context, taxID string, forceRefresh bool) (*providers.CreditResult, error)
}

// AuditPublisher records compliance events on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the compliance risk engine.
type Service struct {
	store       compliance.Store
	credentials CredentialDirectory
	credit      CreditAnalyzer
	logger      *slog.Logger
	metrics     *compmetrics.Metrics
	audit       AuditPublisher
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *compmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func New(store compliance.Store, credentials CredentialDirectory, credit CreditAnalyzer, opts ...Option) *Service {
	s := &Service{
		store:       store,
		credentials: credentials,
		credit:      credit,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Analyze runs the risk engine for a credential: scores the registry snapshot
// against a fresh (or cached) credit result, overwrites the stored analysis
// with the manual review reset, and moves the credential when the outcome was
// decided automatically. Outcomes that require a human leave the credential
// where it is.
func (s *Service) Analyze(ctx context.Context, credentialID id.CredentialID, forceRefresh bool) (*compliance.Analysis, error) {
	cred, err := s.credentials.Get(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if !credential.AnalyzableStatuses.Contains(cred.Status) {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"compliance analysis is not permitted in status %s", cred.Status)
	}
	if cred.LastValidation == nil {
		return nil, dErrors.New(dErrors.CodeInvalidState,
			"credential has no registry validation on record")
	}

	creditResult, err := s.credit.AnalyzeCredit(ctx, cred.TaxID, forceRefresh)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "credit analysis failed")
	}

	now := requestcontext.Now(ctx)
	card := compliance.ComputeScorecard(*cred.LastValidation, creditResult, now)

	factors := card.RiskFactors
	if creditResult.Source == providers.SimulatedFallbackSource {
		factors = append(factors,
			"credit result is simulated: all credit bureaus were unavailable")
	}

	analysis := &compliance.Analysis{
		ID:             id.NewAnalysisID(),
		CredentialID:   cred.ID,
		BrandID:        cred.BrandID,
		CreditScore:    card.CreditScore,
		TaxScore:       card.TaxScore,
		LegalScore:     card.LegalScore,
		OverallScore:   card.OverallScore,
		RiskLevel:      card.RiskLevel,
		Flags:          card.Flags,
		RiskFactors:    factors,
		Recommendation: card.Recommendation,
		ManualReview:   compliance.ManualReview{Status: compliance.ReviewPending},
		CreditSource:   creditResult.Source,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Save(ctx, analysis); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist analysis")
	}

	if !card.Recommendation.RequiresManualReview {
		target := credential.StatusComplianceRejected
		if card.Recommendation.Action == compliance.ActionApprove {
			target = credential.StatusComplianceApproved
		}
		if _, err := s.credentials.ChangeStatus(ctx, cred.ID, credential.OpRecordCompliance, target, card.Recommendation.Reason); err != nil {
			return nil, err
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveAnalysis(string(card.RiskLevel), string(card.Recommendation.Action), card.OverallScore)
	}
	s.emitAudit(ctx, audit.Event{
		CredentialID: cred.ID.String(),
		BrandID:      cred.BrandID.String(),
		Action:       audit.ActionComplianceAnalyzed,
		Reason:       card.Recommendation.Reason,
		ActorID:      performerID(requestcontext.Actor(ctx)),
	})
	return analysis, nil
}

// Approve records a human approval on an analysis awaiting review and moves
// the credential to COMPLIANCE_APPROVED. Reconsidering a rejected credential
// is allowed; the transition table scopes what the move may start from.
func (s *Service) Approve(ctx context.Context, credentialID id.CredentialID, notes string) (*compliance.Analysis, error) {
	reason := "manual review approved"
	if notes != "" {
		reason = fmt.Sprintf("manual review approved: %s", notes)
	}
	return s.review(ctx, credentialID, compliance.ReviewApproved, notes, credential.StatusComplianceApproved, reason)
}

// Reject records a human rejection and moves the credential to
// COMPLIANCE_REJECTED. An already-approved credential may be reconsidered.
func (s *Service) Reject(ctx context.Context, credentialID id.CredentialID, rejectReason, notes string) (*compliance.Analysis, error) {
	if rejectReason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	reason := fmt.Sprintf("manual review rejected: %s", rejectReason)
	return s.review(ctx, credentialID, compliance.ReviewRejected, notes, credential.StatusComplianceRejected, reason)
}

func (s *Service) review(ctx context.Context, credentialID id.CredentialID, decision compliance.ReviewStatus, notes string, target credential.Status, reason string) (*compliance.Analysis, error) {
	// Get enforces brand scoping before any review state is touched.
	cred, err := s.credentials.Get(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	// Refuse a transition the table would deny before the decision is saved,
	// so a rejected move never leaves an analysis marked decided with the
	// credential unmoved.
	if !credential.TransitionAllowed(cred.Status, credential.OpRecordCompliance, target) {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"credential in status %s cannot be moved to %s by a review decision", cred.Status, target)
	}

	analysis, err := s.store.FindByCredential(ctx, credentialID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no compliance analysis exists for this credential")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load analysis")
	}

	if !analysis.Recommendation.RequiresManualReview {
		return nil, dErrors.New(dErrors.CodeInvalidState, "analysis was decided automatically and is not reviewable")
	}
	if analysis.ManualReview.Status != compliance.ReviewPending {
		return nil, dErrors.Newf(dErrors.CodeInvalidState,
			"manual review was already decided (%s)", analysis.ManualReview.Status)
	}

	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx)
	analysis.ManualReview = compliance.ManualReview{
		Status:     decision,
		ReviewerID: performerID(actor),
		Notes:      notes,
		ReviewedAt: &now,
	}
	analysis.UpdatedAt = now
	if err := s.store.Save(ctx, analysis); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist review decision")
	}

	if _, err := s.credentials.ChangeStatus(ctx, credentialID, credential.OpRecordCompliance, target, reason); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveReview(string(decision))
	}
	s.emitAudit(ctx, audit.Event{
		CredentialID: credentialID.String(),
		BrandID:      analysis.BrandID.String(),
		Action:       audit.ActionManualReviewRecorded,
		ToStatus:     string(target),
		Reason:       reason,
		ActorID:      performerID(actor),
	})
	return analysis, nil
}

// GetByCredential returns the current analysis for a credential the caller
// may see.
func (s *Service) GetByCredential(ctx context.Context, credentialID id.CredentialID) (*compliance.Analysis, error) {
	if _, err := s.credentials.Get(ctx, credentialID); err != nil {
		return nil, err
	}
	analysis, err := s.store.FindByCredential(ctx, credentialID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no compliance analysis exists for this credential")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load analysis")
	}
	return analysis, nil
}

// PendingReviews is the triage queue for the caller's brand: analyses that
// require a human, most severe first, oldest first within a level.
func (s *Service) PendingReviews(ctx context.Context) ([]compliance.Analysis, error) {
	actor := requestcontext.Actor(ctx)
	if !actor.IsBrandScoped() {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller is not brand-scoped")
	}
	analyses, err := s.store.ListPendingReviews(ctx, actor.BrandID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending reviews")
	}
	return analyses, nil
}

func performerID(actor requestcontext.CallerIdentity) string {
	if actor.UserID.IsNil() {
		return id.SystemActor
	}
	return actor.UserID.String()
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
