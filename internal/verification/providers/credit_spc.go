package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SPCProvider queries the SPC Brasil analysis API.
type SPCProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewSPCProvider(baseURL, apiKey string, client *http.Client) *SPCProvider {
	return &SPCProvider{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (p *SPCProvider) Name() string { return "SPC" }

func (p *SPCProvider) Available(_ context.Context) bool {
	return p.baseURL != "" && p.apiKey != ""
}

type spcResponse struct {
	CreditScore     int      `json:"credit_score"`
	Risk            string   `json:"risk"`
	HasRestrictions bool     `json:"has_restrictions"`
	DebtTotal       *float64 `json:"debt_total"`
	Advice          []string `json:"advice"`
}

func (p *SPCProvider) Analyze(ctx context.Context, taxID string) (*CreditResult, error) {
	url := fmt.Sprintf("%s/api/v2/analysis?document=%s", p.baseURL, taxID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p.Name(), "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, NewProviderError(ErrorProviderOutage, p.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, NewProviderError(ErrorAuthentication, p.Name(), "authentication rejected", nil)
	case http.StatusTooManyRequests:
		return nil, NewProviderError(ErrorRateLimited, p.Name(), "rate limited", nil)
	default:
		return nil, NewProviderError(ErrorProviderOutage, p.Name(),
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var body spcResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, NewProviderError(ErrorBadData, p.Name(), "decode response", err)
	}

	return &CreditResult{
		TaxID:           taxID,
		Score:           body.CreditScore,
		RiskTier:        RiskTier(body.Risk),
		HasNegatives:    body.HasRestrictions,
		DebtAmount:      body.DebtTotal,
		Recommendations: body.Advice,
		Source:          p.Name(),
		CheckedAt:       time.Now(),
	}, nil
}
