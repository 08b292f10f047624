// Package handler wires compliance endpoints to the compliance service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/texlink-oficial/texlink/internal/compliance"
	id "github.com/texlink-oficial/texlink/pkg/domain"
	dErrors "github.com/texlink-oficial/texlink/pkg/domain-errors"
	"github.com/texlink-oficial/texlink/pkg/platform/httputil"
	"github.com/texlink-oficial/texlink/pkg/requestcontext"
)

// Service defines the compliance operations the handler exposes.
type Service interface {
	Analyze(ctx context.Context, credentialID id.CredentialID, forceRefresh bool) (*compliance.Analysis, error)
	Approve(ctx context.Context, credentialID id.CredentialID, notes string) (*compliance.Analysis, error)
	Reject(ctx context.Context, credentialID id.CredentialID, reason, notes string) (*compliance.Analysis, error)
	GetByCredential(ctx context.Context, credentialID id.CredentialID) (*compliance.Analysis, error)
	PendingReviews(ctx context.Context) ([]compliance.Analysis, error)
}

// Handler wires compliance endpoints to the compliance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a compliance handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts compliance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/credentials/{credentialID}/compliance", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Post("/analyze", h.HandleAnalyze)
		r.Post("/approve", h.HandleApprove)
		r.Post("/reject", h.HandleReject)
	})
	r.Get("/compliance/pending-reviews", h.HandlePendingReviews)
}

type analyzeRequest struct {
	ForceRefresh bool `json:"force_refresh,omitempty"`
}

// HandleAnalyze handles POST /credentials/{credentialID}/compliance/analyze.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, err := pathCredentialID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req analyzeRequest
	if r.ContentLength > 0 {
		var ok bool
		if req, ok = httputil.Decode[analyzeRequest](w, r, h.logger); !ok {
			return
		}
	}

	analysis, err := h.service.Analyze(ctx, credentialID, req.ForceRefresh)
	if err != nil {
		h.logger.WarnContext(ctx, "compliance analysis failed",
			"request_id", requestcontext.RequestID(ctx),
			"credential_id", credentialID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "compliance analyzed",
		"request_id", requestcontext.RequestID(ctx),
		"credential_id", credentialID,
		"risk_level", analysis.RiskLevel,
		"action", analysis.Recommendation.Action,
		"overall_score", analysis.OverallScore,
	)
	httputil.WriteJSON(w, http.StatusOK, fromAnalysis(analysis))
}

// HandleGet handles GET /credentials/{credentialID}/compliance.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	credentialID, err := pathCredentialID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	analysis, err := h.service.GetByCredential(r.Context(), credentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromAnalysis(analysis))
}

type approveRequest struct {
	Notes string `json:"notes,omitempty"`
}

// HandleApprove handles POST /credentials/{credentialID}/compliance/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, err := pathCredentialID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[approveRequest](w, r, h.logger)
	if !ok {
		return
	}

	analysis, err := h.service.Approve(ctx, credentialID, req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromAnalysis(analysis))
}

type rejectRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
}

// HandleReject handles POST /credentials/{credentialID}/compliance/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, err := pathCredentialID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[rejectRequest](w, r, h.logger)
	if !ok {
		return
	}

	analysis, err := h.service.Reject(ctx, credentialID, req.Reason, req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromAnalysis(analysis))
}

// HandlePendingReviews handles GET /compliance/pending-reviews.
func (h *Handler) HandlePendingReviews(w http.ResponseWriter, r *http.Request) {
	analyses, err := h.service.PendingReviews(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]analysisResponse, 0, len(analyses))
	for i := range analyses {
		out = append(out, fromAnalysis(&analyses[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func pathCredentialID(r *http.Request) (id.CredentialID, error) {
	raw := chi.URLParam(r, "credentialID")
	credentialID, err := id.ParseCredentialID(raw)
	if err != nil {
		return id.CredentialID{}, dErrors.Newf(dErrors.CodeBadRequest, "invalid credential id %q", raw)
	}
	return credentialID, nil
}

type manualReviewResponse struct {
	Status     string     `json:"status"`
	ReviewerID string     `json:"reviewer_id,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

type analysisResponse struct {
	ID           string `json:"id"`
	CredentialID string `json:"credential_id"`
	BrandID      string `json:"brand_id"`

	CreditScore  int    `json:"credit_score"`
	TaxScore     int    `json:"tax_score"`
	LegalScore   int    `json:"legal_score"`
	OverallScore int    `json:"overall_score"`
	RiskLevel    string `json:"risk_level"`

	HasActiveRegistry      bool `json:"has_active_registry"`
	HasRegularTaxStatus    bool `json:"has_regular_tax_status"`
	HasNegativeCredit      bool `json:"has_negative_credit"`
	HasLegalIssues         bool `json:"has_legal_issues"`
	HasRelatedRestrictions bool `json:"has_related_restrictions"`

	RiskFactors []string `json:"risk_factors"`

	RecommendationAction string `json:"recommendation_action"`
	RecommendationReason string `json:"recommendation_reason"`
	RequiresManualReview bool   `json:"requires_manual_review"`

	ManualReview manualReviewResponse `json:"manual_review"`
	CreditSource string               `json:"credit_source"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func fromAnalysis(a *compliance.Analysis) analysisResponse {
	return analysisResponse{
		ID:                     a.ID.String(),
		CredentialID:           a.CredentialID.String(),
		BrandID:                a.BrandID.String(),
		CreditScore:            a.CreditScore,
		TaxScore:               a.TaxScore,
		LegalScore:             a.LegalScore,
		OverallScore:           a.OverallScore,
		RiskLevel:              string(a.RiskLevel),
		HasActiveRegistry:      a.Flags.HasActiveRegistry,
		HasRegularTaxStatus:    a.Flags.HasRegularTaxStatus,
		HasNegativeCredit:      a.Flags.HasNegativeCredit,
		HasLegalIssues:         a.Flags.HasLegalIssues,
		HasRelatedRestrictions: a.Flags.HasRelatedRestrictions,
		RiskFactors:            a.RiskFactors,
		RecommendationAction:   string(a.Recommendation.Action),
		RecommendationReason:   a.Recommendation.Reason,
		RequiresManualReview:   a.Recommendation.RequiresManualReview,
		ManualReview: manualReviewResponse{
			Status:     string(a.ManualReview.Status),
			ReviewerID: a.ManualReview.ReviewerID,
			Notes:      a.ManualReview.Notes,
			ReviewedAt: a.ManualReview.ReviewedAt,
		},
		CreditSource: a.CreditSource,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
