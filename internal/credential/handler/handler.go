// Package handler wires credential lifecycle endpoints to the credential
// service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/texlink-oficial/texlink/internal/credential"
	"github.com/texlink-oficial/texlink/internal/credential/service"
	"github.com/texlink-oficial/texlink/internal/verification/providers"
	id "github.com/texlink-oficial/texlink/pkg/domain"
	dErrors "github.com/texlink-oficial/texlink/pkg/domain-errors"
	"github.com/texlink-oficial/texlink/pkg/platform/httputil"
	"github.com/texlink-oficial/texlink/pkg/requestcontext"
)

// Service defines the credential operations the handler exposes.
type Service interface {
	Create(ctx context.Context, input service.CreateInput) (*credential.Credential, error)
	Update(ctx context.Context, credentialID id.CredentialID, patch service.UpdateInput) (*credential.Credential, error)
	Remove(ctx context.Context, credentialID id.CredentialID) error
	ChangeStatus(ctx context.Context, credentialID id.CredentialID, op credential.OperationKind, target credential.Status, reason string) (*credential.Credential, error)
	RecordValidation(ctx context.Context, credentialID id.CredentialID, snapshot credential.ValidationSnapshot) (*credential.Credential, error)
	Get(ctx context.Context, credentialID id.CredentialID) (*credential.Credential, error)
	List(ctx context.Context, query credential.ListQuery) (*credential.PageResult, error)
	History(ctx context.Context, credentialID id.CredentialID) ([]credential.HistoryEntry, error)
	Stats(ctx context.Context) (*service.Stats, error)
}

// RegistryValidator resolves the company-registry record for a tax ID.
type RegistryValidator interface {
	ValidateRegistry(ctx context.Context, taxID string) (*providers.RegistryResult, error)
}

// Handler wires credential endpoints to the credential service.
type Handler struct {
	service  Service
	registry RegistryValidator
	logger   *slog.Logger
}

// New constructs a credential handler with its dependencies.
func New(service Service, registry RegistryValidator, logger *slog.Logger) *Handler {
	return &Handler{service: service, registry: registry, logger: logger}
}

// Register mounts credential endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/credentials", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/stats", h.HandleStats)
		r.Route("/{credentialID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Patch("/", h.HandleUpdate)
			r.Delete("/", h.HandleRemove)
			r.Get("/history", h.HandleHistory)
			r.Post("/status", h.HandleChangeStatus)
			r.Post("/validate", h.HandleValidate)
		})
	})
}

// HandleCreate handles POST /credentials requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[createRequest](w, r, h.logger)
	if !ok {
		return
	}

	cred, err := h.service.Create(ctx, service.CreateInput{
		TaxID:       req.TaxID,
		CompanyName: req.CompanyName,
		TradeName:   req.TradeName,
		Email:       req.Email,
		Phone:       req.Phone,
		ContactName: req.ContactName,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "credential creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, fromCredential(cred))
}

// HandleGet handles GET /credentials/{credentialID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	credentialID, err := pathCredentialID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cred, err := h.service.Get(r.Context(), credentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromCredential(cred))
}

// HandleUpdate handles PATCH /credentials/{credentialID} requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, err := pathCredentialID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[updateRequest](w, r, h.logger)
	if !ok {
		return
	}

	cred, err := h.service.Update(ctx, credentialID, service.UpdateInput{
		TaxID:       req.TaxID,
		CompanyName: req.CompanyName,
		TradeName:   req.TradeName,
		Email:       req.Email,
		Phone:       req.Phone,
		ContactName: req.ContactName,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromCredential(cred))
}

// HandleRemove handles DELETE /credentials/{credentialID} requests.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	credentialID, err := pathCredentialID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Remove(r.Context(), credentialID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleChangeStatus handles POST /credentials/{credentialID}/status requests.
func (h *Handler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, err := pathCredentialID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[changeStatusRequest](w, r, h.logger)
	if !ok {
		return
	}

	cred, err := h.service.ChangeStatus(ctx, credentialID,
		credential.OperationKind(req.Operation), credential.Status(req.Status), req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "status change refused",
			"request_id", requestcontext.RequestID(ctx),
			"credential_id", credentialID,
			"target", req.Status,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromCredential(cred))
}

// HandleValidate handles POST /credentials/{credentialID}/validate requests.
// It submits the credential for validation, resolves the registry record and
// records the outcome, moving the credential forward or into failure.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credentialID, err := pathCredentialID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cred, err := h.service.ChangeStatus(ctx, credentialID,
		credential.OpSubmitValidation, credential.StatusPendingValidation, "registry validation requested")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.registry.ValidateRegistry(ctx, cred.TaxID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	snapshot := credential.ValidationSnapshot{
		CompanyStatus: result.CompanyStatus,
		CapitalStock:  result.CapitalStock,
		FoundedAt:     result.FoundedAt,
		ValidatedAt:   requestcontext.Now(ctx),
		Valid:         result.Found && result.Error == "",
	}
	cred, err = h.service.RecordValidation(ctx, credentialID, snapshot)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registry validation recorded",
		"request_id", requestcontext.RequestID(ctx),
		"credential_id", credentialID,
		"source", result.Source,
		"valid", snapshot.Valid,
	)
	httputil.WriteJSON(w, http.StatusOK, validateResponse{
		Credential: fromCredential(cred),
		Registry:   fromRegistryResult(result),
	})
}

// HandleHistory handles GET /credentials/{credentialID}/history requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	credentialID, err := pathCredentialID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.History(r.Context(), credentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]historyEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, fromHistoryEntry(entry))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleList handles GET /credentials requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	query, err := listQueryFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.List(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]credentialResponse, 0, len(page.Items))
	for _, cred := range page.Items {
		items = append(items, fromCredential(cred))
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{
		Items: items,
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
	})
}

// HandleStats handles GET /credentials/stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromStats(stats))
}

func pathCredentialID(r *http.Request) (id.CredentialID, error) {
	raw := chi.URLParam(r, "credentialID")
	credentialID, err := id.ParseCredentialID(raw)
	if err != nil {
		return id.CredentialID{}, dErrors.Newf(dErrors.CodeBadRequest, "invalid credential id %q", raw)
	}
	return credentialID, nil
}

func listQueryFromRequest(r *http.Request) (credential.ListQuery, error) {
	q := r.URL.Query()
	query := credential.ListQuery{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		SortBy:   credential.SortField(q.Get("sort_by")),
		SortDesc: q.Get("sort_desc") == "true",
	}

	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := credential.Status(strings.TrimSpace(s))
			if !status.Valid() {
				return credential.ListQuery{}, dErrors.Newf(dErrors.CodeBadRequest, "unknown status %q", s)
			}
			query.Statuses = append(query.Statuses, status)
		}
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return credential.ListQuery{}, dErrors.New(dErrors.CodeBadRequest, "page must be an integer")
		}
		query.Page = page
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return credential.ListQuery{}, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer")
		}
		query.Limit = limit
	}
	for param, dest := range map[string]**time.Time{
		"created_from": &query.CreatedFrom,
		"created_to":   &query.CreatedTo,
	} {
		if raw := q.Get(param); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return credential.ListQuery{}, dErrors.Newf(dErrors.CodeBadRequest, "%s must be RFC 3339", param)
			}
			*dest = &t
		}
	}
	return query, nil
}
