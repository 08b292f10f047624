package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BrasilAPIProvider validates a tax ID against the public BrasilAPI CNPJ
// endpoint.
type BrasilAPIProvider struct {
	baseURL  string
	priority int
	client   *http.Client
}

func NewBrasilAPIProvider(baseURL string, priority int, client *http.Client) *BrasilAPIProvider {
	return &BrasilAPIProvider{baseURL: baseURL, priority: priority, client: client}
}

func (p *BrasilAPIProvider) Name() string  { return "BRASILAPI" }
func (p *BrasilAPIProvider) Priority() int { return p.priority }

func (p *BrasilAPIProvider) Available(_ context.Context) bool {
	return p.baseURL != ""
}

type brasilAPIResponse struct {
	RazaoSocial                string  `json:"razao_social"`
	NomeFantasia               string  `json:"nome_fantasia"`
	DescricaoSituacaoCadastral string  `json:"descricao_situacao_cadastral"`
	CapitalSocial              float64 `json:"capital_social"`
	DataInicioAtividade        string  `json:"data_inicio_atividade"`
}

func (p *BrasilAPIProvider) Validate(ctx context.Context, taxID string) (*RegistryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+taxID, nil)
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p.Name(), "build request", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, NewProviderError(ErrorProviderOutage, p.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, NewProviderError(ErrorNotFound, p.Name(), "company not found", nil)
	case http.StatusTooManyRequests:
		return nil, NewProviderError(ErrorRateLimited, p.Name(), "rate limited", nil)
	default:
		return nil, NewProviderError(ErrorProviderOutage, p.Name(),
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var body brasilAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, NewProviderError(ErrorBadData, p.Name(), "decode response", err)
	}

	result := &RegistryResult{
		TaxID:         taxID,
		Found:         true,
		CompanyName:   body.RazaoSocial,
		TradeName:     body.NomeFantasia,
		CompanyStatus: body.DescricaoSituacaoCadastral,
		CapitalStock:  body.CapitalSocial,
		Source:        p.Name(),
		CheckedAt:     time.Now(),
	}
	if founded, err := time.Parse("2006-01-02", body.DataInicioAtividade); err == nil {
		result.FoundedAt = &founded
	}
	return result, nil
}
