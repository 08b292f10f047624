package handler

import (
	"time"

	"github.com/texlink-oficial/texlink/internal/credential"
	"github.com/texlink-oficial/texlink/internal/credential/service"
	"github.com/texlink-oficial/texlink/internal/verification/providers"
	"github.com/texlink-oficial/texlink/pkg/cnpj"
)

type createRequest struct {
	TaxID       string `json:"tax_id"`
	CompanyName string `json:"company_name"`
	TradeName   string `json:"trade_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	ContactName string `json:"contact_name,omitempty"`
	Category    string `json:"category,omitempty"`
	Priority    int    `json:"priority,omitempty"`
}

type updateRequest struct {
	TaxID       *string `json:"tax_id,omitempty"`
	CompanyName *string `json:"company_name,omitempty"`
	TradeName   *string `json:"trade_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	ContactName *string `json:"contact_name,omitempty"`
	Category    *string `json:"category,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
}

type changeStatusRequest struct {
	Operation string `json:"operation"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

type validationSnapshotResponse struct {
	CompanyStatus string     `json:"company_status"`
	CapitalStock  float64    `json:"capital_stock"`
	FoundedAt     *time.Time `json:"founded_at,omitempty"`
	ValidatedAt   time.Time  `json:"validated_at"`
	Valid         bool       `json:"valid"`
}

type credentialResponse struct {
	ID             string                      `json:"id"`
	BrandID        string                      `json:"brand_id"`
	SupplierID     string                      `json:"supplier_id,omitempty"`
	TaxID          string                      `json:"tax_id"`
	TaxIDDisplay   string                      `json:"tax_id_display"`
	CompanyName    string                      `json:"company_name"`
	TradeName      string                      `json:"trade_name,omitempty"`
	Email          string                      `json:"email,omitempty"`
	Phone          string                      `json:"phone,omitempty"`
	ContactName    string                      `json:"contact_name,omitempty"`
	Category       string                      `json:"category,omitempty"`
	Priority       int                         `json:"priority"`
	Status         string                      `json:"status"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	CompletedAt    *time.Time                  `json:"completed_at,omitempty"`
	LastValidation *validationSnapshotResponse `json:"last_validation,omitempty"`
}

func fromCredential(c *credential.Credential) credentialResponse {
	resp := credentialResponse{
		ID:           c.ID.String(),
		BrandID:      c.BrandID.String(),
		TaxID:        c.TaxID,
		TaxIDDisplay: cnpj.Format(c.TaxID),
		CompanyName:  c.CompanyName,
		TradeName:    c.TradeName,
		Email:        c.Email,
		Phone:        c.Phone,
		ContactName:  c.ContactName,
		Category:     c.Category,
		Priority:     c.Priority,
		Status:       string(c.Status),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		CompletedAt:  c.CompletedAt,
	}
	if c.SupplierID != nil {
		resp.SupplierID = c.SupplierID.String()
	}
	if c.LastValidation != nil {
		resp.LastValidation = &validationSnapshotResponse{
			CompanyStatus: c.LastValidation.CompanyStatus,
			CapitalStock:  c.LastValidation.CapitalStock,
			FoundedAt:     c.LastValidation.FoundedAt,
			ValidatedAt:   c.LastValidation.ValidatedAt,
			Valid:         c.LastValidation.Valid,
		}
	}
	return resp
}

type historyEntryResponse struct {
	CredentialID string    `json:"credential_id"`
	FromStatus   string    `json:"from_status,omitempty"`
	ToStatus     string    `json:"to_status"`
	PerformedBy  string    `json:"performed_by"`
	Reason       string    `json:"reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func fromHistoryEntry(entry credential.HistoryEntry) historyEntryResponse {
	resp := historyEntryResponse{
		CredentialID: entry.CredentialID.String(),
		ToStatus:     string(entry.ToStatus),
		PerformedBy:  entry.PerformedBy,
		Reason:       entry.Reason,
		CreatedAt:    entry.CreatedAt,
	}
	if entry.FromStatus != nil {
		resp.FromStatus = string(*entry.FromStatus)
	}
	return resp
}

type listResponse struct {
	Items []credentialResponse `json:"items"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

type statsResponse struct {
	Total              int            `json:"total"`
	ByStatus           map[string]int `json:"by_status"`
	CreatedThisMonth   int            `json:"created_this_month"`
	CompletedThisMonth int            `json:"completed_this_month"`
	PendingAction      int            `json:"pending_action"`
	AwaitingResponse   int            `json:"awaiting_response"`
	ConversionRate     float64        `json:"conversion_rate"`
}

func fromStats(stats *service.Stats) statsResponse {
	byStatus := make(map[string]int, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	return statsResponse{
		Total:              stats.Total,
		ByStatus:           byStatus,
		CreatedThisMonth:   stats.CreatedThisMonth,
		CompletedThisMonth: stats.CompletedThisMonth,
		PendingAction:      stats.PendingAction,
		AwaitingResponse:   stats.AwaitingResponse,
		ConversionRate:     stats.ConversionRate,
	}
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

func fromRegistryResult(result *providers.RegistryResult) registryResultResponse {
	return registryResultResponse{
		TaxID:         result.TaxID,
		Found:         result.Found,
		CompanyName:   result.CompanyName,
		TradeName:     result.TradeName,
		CompanyStatus: result.CompanyStatus,
		CapitalStock:  result.CapitalStock,
		FoundedAt:     result.FoundedAt,
		Source:        result.Source,
		CheckedAt:     result.CheckedAt,
		Error:         result.Error,
	}
}

type validateResponse struct {
	Credential credentialResponse     `json:"credential"`
	Registry   registryResultResponse `json:"registry"`
}
