package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BoaVistaProvider queries the Boa Vista SCPC consultation API.
type BoaVistaProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewBoaVistaProvider(baseURL, apiKey string, client *http.Client) *BoaVistaProvider {
	return &BoaVistaProvider{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (p *BoaVistaProvider) Name() string { return "BOA_VISTA" }

func (p *BoaVistaProvider) Available(_ context.Context) bool {
	return p.baseURL != "" && p.apiKey != ""
}

type boaVistaResponse struct {
	Pontuacao         int      `json:"pontuacao"`
	ClasseRisco       string   `json:"classe_risco"`
	PossuiNegativacao bool     `json:"possui_negativacao"`
	ValorDividas      *float64 `json:"valor_dividas"`
	Orientacoes       []string `json:"orientacoes"`
}

func (p *BoaVistaProvider) Analyze(ctx context.Context, taxID string) (*CreditResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/consulta/"+taxID, nil)
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p.Name(), "build request", err)
	}
	req.Header.Set("X-Api-Key", p.apiKey)

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

	var body boaVistaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, NewProviderError(ErrorBadData, p.Name(), "decode response", err)
	}

	return &CreditResult{
		TaxID:           taxID,
		Score:           body.Pontuacao,
		RiskTier:        riskTierFromPortuguese(body.ClasseRisco),
		HasNegatives:    body.PossuiNegativacao,
		DebtAmount:      body.ValorDividas,
		Recommendations: body.Orientacoes,
		Source:          p.Name(),
		CheckedAt:       time.Now(),
	}, nil
}

func riskTierFromPortuguese(class string) RiskTier {
	switch class {
	case "BAIXO":
		return RiskTierLow
	case "MEDIO", "MÉDIO":
		return RiskTierMedium
	case "ALTO":
		return RiskTierHigh
	case "CRITICO", "CRÍTICO":
		return RiskTierCritical
	default:
		return RiskTierMedium
	}
}
