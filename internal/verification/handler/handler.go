// Package handler exposes standalone verification and notification endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/texlink-oficial/texlink/internal/verification/providers"
	"github.com/texlink-oficial/texlink/pkg/cnpj"
	"github.com/texlink-oficial/texlink/pkg/platform/httputil"
	"github.com/texlink-oficial/texlink/pkg/requestcontext"
)

// Service defines the verification operations the handler exposes.
type Service interface {
	ValidateRegistry(ctx context.Context, taxID string) (*providers.RegistryResult, error)
	AnalyzeCredit(ctx context.Context, taxID string, forceRefresh bool) (*providers.CreditResult, error)
	SendEmail(ctx context.Context, msg providers.EmailMessage) (*providers.SendResult, error)
	SendWhatsApp(ctx context.Context, msg providers.WhatsAppMessage) (*providers.SendResult, error)
}

// Handler wires verification endpoints to the aggregator service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a verification handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts verification and notification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/verification", func(r chi.Router) {
		r.Post("/registry", h.HandleValidateRegistry)
		r.Post("/credit", h.HandleAnalyzeCredit)
	})
	r.Route("/notifications", func(r chi.Router) {
		r.Post("/email", h.HandleSendEmail)
		r.Post("/whatsapp", h.HandleSendWhatsApp)
	})
}

type registryRequest struct {
	TaxID string `json:"tax_id"`
}

// HandleValidateRegistry handles POST /verification/registry.
func (h *Handler) HandleValidateRegistry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[registryRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.ValidateRegistry(ctx, req.TaxID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registry validated",
		"request_id", requestcontext.RequestID(ctx),
		"tax_id", cnpj.Format(cnpj.Normalize(req.TaxID)),
		"found", result.Found,
		"source", result.Source,
	)
	httputil.WriteJSON(w, http.StatusOK, fromRegistryResult(result))
}

type creditRequest struct {
	TaxID        string `json:"tax_id"`
	ForceRefresh bool   `json:"force_refresh,omitempty"`
}

// HandleAnalyzeCredit handles POST /verification/credit.
func (h *Handler) HandleAnalyzeCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[creditRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.AnalyzeCredit(ctx, req.TaxID, req.ForceRefresh)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credit analyzed",
		"request_id", requestcontext.RequestID(ctx),
		"tax_id", cnpj.Format(cnpj.Normalize(req.TaxID)),
		"source", result.Source,
		"risk_tier", result.RiskTier,
	)
	httputil.WriteJSON(w, http.StatusOK, fromCreditResult(result))
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// HandleSendEmail handles POST /notifications/email.
func (h *Handler) HandleSendEmail(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[emailRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.SendEmail(r.Context(), providers.EmailMessage{
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSendResult(result))
}

type whatsAppRequest struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Params   map[string]string `json:"params,omitempty"`
}

// HandleSendWhatsApp handles POST /notifications/whatsapp.
func (h *Handler) HandleSendWhatsApp(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[whatsAppRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.SendWhatsApp(r.Context(), providers.WhatsAppMessage{
		To:       req.To,
		Template: req.Template,
		Params:   req.Params,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromSendResult(result))
}

type registryResultResponse struct {
	TaxID         string     `json:"tax_id"`
	Found         bool       `json:"found"`
	CompanyName   string     `json:"company_name,omitempty"`
	TradeName     string     `json:"trade_name,omitempty"`
	CompanyStatus string     `json:"company_status,omitempty"`
	CapitalStock  float64    `json:"capital_stock,omitempty"`
	FoundedAt     *time.Time `json:"founded_at,omitempty"`
	Source        string     `json:"source"`
	CheckedAt     time.Time  `json:"checked_at"`
	Error         string     `json:"error,omitempty"`
}

func fromRegistryResult(r *providers.RegistryResult) registryResultResponse {
	return registryResultResponse{
		TaxID:         r.TaxID,
		Found:         r.Found,
		CompanyName:   r.CompanyName,
		TradeName:     r.TradeName,
		CompanyStatus: r.CompanyStatus,
		CapitalStock:  r.CapitalStock,
		FoundedAt:     r.FoundedAt,
		Source:        r.Source,
		CheckedAt:     r.CheckedAt,
		Error:         r.Error,
	}
}

type creditResultResponse struct {
	TaxID           string    `json:"tax_id"`
	Score           int       `json:"score"`
	RiskTier        string    `json:"risk_tier"`
	HasNegatives    bool      `json:"has_negatives"`
	DebtAmount      *float64  `json:"debt_amount,omitempty"`
	Recommendations []string  `json:"recommendations,omitempty"`
	Source          string    `json:"source"`
	CheckedAt       time.Time `json:"checked_at"`
	Error           string    `json:"error,omitempty"`
}

func fromCreditResult(r *providers.CreditResult) creditResultResponse {
	return creditResultResponse{
		TaxID:           r.TaxID,
		Score:           r.Score,
		RiskTier:        string(r.RiskTier),
		HasNegatives:    r.HasNegatives,
		DebtAmount:      r.DebtAmount,
		Recommendations: r.Recommendations,
		Source:          r.Source,
		CheckedAt:       r.CheckedAt,
		Error:           r.Error,
	}
}

type sendResultResponse struct {
	Provider      string `json:"provider,omitempty"`
	MessageID     string `json:"message_id,omitempty"`
	Accepted      bool   `json:"accepted"`
	NotConfigured bool   `json:"not_configured,omitempty"`
	Error         string `json:"error,omitempty"`
}

func fromSendResult(r *providers.SendResult) sendResultResponse {
	return sendResultResponse{
		Provider:      r.Provider,
		MessageID:     r.MessageID,
		Accepted:      r.Accepted,
		NotConfigured: r.NotConfigured,
		Error:         r.Error,
	}
}
