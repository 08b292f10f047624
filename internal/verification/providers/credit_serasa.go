package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SerasaProvider queries the Serasa Experian business report API, the default
// preferred credit source.
type SerasaProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewSerasaProvider(baseURL, apiKey string, client *http.Client) *SerasaProvider {
	return &SerasaProvider{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (p *SerasaProvider) Name() string { return "SERASA" }

func (p *SerasaProvider) Available(_ context.Context) bool {
	return p.baseURL != "" && p.apiKey != ""
}

type serasaRequest struct {
	Document string `json:"document"`
}

type serasaResponse struct {
	Score           int      `json:"score"`
	RiskLevel       string   `json:"riskLevel"`
	NegativeRecords bool     `json:"negativeRecords"`
	TotalDebt       *float64 `json:"totalDebt"`
	Recommendations []string `json:"recommendations"`
}

func (p *SerasaProvider) Analyze(ctx context.Context, taxID string) (*CreditResult, error) {
	payload, err := json.Marshal(serasaRequest{Document: taxID})
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p.Name(), "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/reports", bytes.NewReader(payload))
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p.Name(), "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

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

	var body serasaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, NewProviderError(ErrorBadData, p.Name(), "decode response", err)
	}

	return &CreditResult{
		TaxID:           taxID,
		Score:           body.Score,
		RiskTier:        RiskTier(body.RiskLevel),
		HasNegatives:    body.NegativeRecords,
		DebtAmount:      body.TotalDebt,
		Recommendations: body.Recommendations,
		Source:          p.Name(),
		CheckedAt:       time.Now(),
	}, nil
}
