package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ReceitaWSProvider validates a tax ID against the ReceitaWS CNPJ API, the
// secondary registry source.
type ReceitaWSProvider struct {
	baseURL  string
	priority int
	client   *http.Client
}

func NewReceitaWSProvider(baseURL string, priority int, client *http.Client) *ReceitaWSProvider {
	return &ReceitaWSProvider{baseURL: baseURL, priority: priority, client: client}
}

func (p *ReceitaWSProvider) Name() string  { return "RECEITAWS" }
func (p *ReceitaWSProvider) Priority() int { return p.priority }

func (p *ReceitaWSProvider) Available(_ context.Context) bool {
	return p.baseURL != ""
}

type receitaWSResponse struct {
	Status        string `json:"status"` // OK or ERROR
	Message       string `json:"message"`
	Nome          string `json:"nome"`
	Fantasia      string `json:"fantasia"`
	Situacao      string `json:"situacao"`
	Abertura      string `json:"abertura"`       // dd/mm/yyyy
	CapitalSocial string `json:"capital_social"` // decimal string
}

func (p *ReceitaWSProvider) Validate(ctx context.Context, taxID string) (*RegistryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+taxID, nil)
	if err != nil {
		return nil, NewProviderError(ErrorInternal, p.Name(), "build request", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, NewProviderError(ErrorProviderOutage, p.Name(), "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, NewProviderError(ErrorRateLimited, p.Name(), "rate limited", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewProviderError(ErrorProviderOutage, p.Name(),
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	var body receitaWSResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, NewProviderError(ErrorBadData, p.Name(), "decode response", err)
	}

	// ReceitaWS reports lookup failures as status ERROR with HTTP 200.
	if body.Status != "OK" {
		if strings.Contains(strings.ToLower(body.Message), "não existe") ||
			strings.Contains(strings.ToLower(body.Message), "nao existe") {
			return nil, NewProviderError(ErrorNotFound, p.Name(), body.Message, nil)
		}
		return nil, NewProviderError(ErrorBadData, p.Name(), body.Message, nil)
	}

	capital, _ := strconv.ParseFloat(strings.ReplaceAll(body.CapitalSocial, ",", "."), 64)
	result := &RegistryResult{
		TaxID:         taxID,
		Found:         true,
		CompanyName:   body.Nome,
		TradeName:     body.Fantasia,
		CompanyStatus: body.Situacao,
		CapitalStock:  capital,
		Source:        p.Name(),
		CheckedAt:     time.Now(),
	}
	if founded, err := time.Parse("02/01/2006", body.Abertura); err == nil {
		result.FoundedAt = &founded
	}
	return result, nil
}
