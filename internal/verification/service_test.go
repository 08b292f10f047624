package verification

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/texlink-oficial/texlink/internal/verification/cache"
	"github.com/texlink-oficial/texlink/internal/verification/providers"
	dErrors "github.com/texlink-oficial/texlink/pkg/domain-errors"
)

const testTaxID = "12345678000190"

type stubRegistry struct {
	name      string
	priority  int
	available bool
	result    *providers.RegistryResult
	err       error
	calls     atomic.Int32
}

func (s *stubRegistry) Name() string                    { return s.name }
func (s *stubRegistry) Priority() int                   { return s.priority }
func (s *stubRegistry) Available(context.Context) bool  { return s.available }
func (s *stubRegistry) Validate(_ context.Context, taxID string) (*providers.RegistryResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := *s.result
	out.TaxID = taxID
	return &out, nil
}

type stubCredit struct {
	name      string
	available bool
	result    *providers.CreditResult
	err       error
	delay     time.Duration
	calls     atomic.Int32
}

func (s *stubCredit) Name() string                   { return s.name }
func (s *stubCredit) Available(context.Context) bool { return s.available }
func (s *stubCredit) Analyze(_ context.Context, taxID string) (*providers.CreditResult, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	out := *s.result
	out.TaxID = taxID
	return &out, nil
}

func foundResult(source string) *providers.RegistryResult {
	founded := time.Date(2015, 3, 10, 0, 0, 0, 0, time.UTC)
	return &providers.RegistryResult{
		Found:         true,
		CompanyName:   "Tecelagem Aurora LTDA",
		CompanyStatus: "ATIVA",
		CapitalStock:  250000,
		FoundedAt:     &founded,
		Source:        source,
		CheckedAt:     time.Now(),
	}
}

func TestValidateRegistry_RejectsInvalidTaxID(t *testing.T) {
	svc := NewService(nil, nil, cache.NewInMemoryCache())

	_, err := svc.ValidateRegistry(context.Background(), "123")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestValidateRegistry_PriorityOrder(t *testing.T) {
	primary := &stubRegistry{name: "BRASIL_API", priority: 1, available: true, result: foundResult("BRASIL_API")}
	secondary := &stubRegistry{name: "RECEITA_WS", priority: 2, available: true, result: foundResult("RECEITA_WS")}

	// Registered out of order on purpose.
	svc := NewService([]providers.RegistryProvider{secondary, primary}, nil, cache.NewInMemoryCache())

	result, err := svc.ValidateRegistry(context.Background(), testTaxID)
	require.NoError(t, err)
	assert.Equal(t, "BRASIL_API", result.Source)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(0), secondary.calls.Load())
}

func TestValidateRegistry_FallsBackWhenPrimaryFails(t *testing.T) {
	primary := &stubRegistry{
		name: "BRASIL_API", priority: 1, available: true,
		err: providers.NewProviderError(providers.ErrorTimeout, "BRASIL_API", "deadline exceeded", nil),
	}
	secondary := &stubRegistry{name: "RECEITA_WS", priority: 2, available: true, result: foundResult("RECEITA_WS")}

	svc := NewService([]providers.RegistryProvider{primary, secondary}, nil, cache.NewInMemoryCache())

	result, err := svc.ValidateRegistry(context.Background(), testTaxID)
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "RECEITA_WS", result.Source)
}

func TestValidateRegistry_SkipsUnavailableProviders(t *testing.T) {
	down := &stubRegistry{name: "BRASIL_API", priority: 1, available: false, result: foundResult("BRASIL_API")}
	up := &stubRegistry{name: "RECEITA_WS", priority: 2, available: true, result: foundResult("RECEITA_WS")}

	svc := NewService([]providers.RegistryProvider{down, up}, nil, cache.NewInMemoryCache())

	result, err := svc.ValidateRegistry(context.Background(), testTaxID)
	require.NoError(t, err)
	assert.Equal(t, "RECEITA_WS", result.Source)
	assert.Equal(t, int32(0), down.calls.Load())
}

func TestValidateRegistry_NotFoundStopsFallbackChain(t *testing.T) {
	primary := &stubRegistry{
		name: "BRASIL_API", priority: 1, available: true,
		err: providers.NewProviderError(providers.ErrorNotFound, "BRASIL_API", "company not found", nil),
	}
	secondary := &stubRegistry{name: "RECEITA_WS", priority: 2, available: true, result: foundResult("RECEITA_WS")}

	svc := NewService([]providers.RegistryProvider{primary, secondary}, nil, cache.NewInMemoryCache())

	result, err := svc.ValidateRegistry(context.Background(), testTaxID)
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Equal(t, providers.ResultErrorNotFound, result.Error)
	assert.Equal(t, int32(0), secondary.calls.Load(), "definitive negative must not trigger fallback")
}

func TestValidateRegistry_AllProvidersDownDegrades(t *testing.T) {
	primary := &stubRegistry{name: "BRASIL_API", priority: 1, available: false}
	secondary := &stubRegistry{name: "RECEITA_WS", priority: 2, available: false}

	svc := NewService([]providers.RegistryProvider{primary, secondary}, nil, cache.NewInMemoryCache())

	result, err := svc.ValidateRegistry(context.Background(), testTaxID)
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Equal(t, providers.ResultErrorUnavailable, result.Error)
}

func TestAnalyzeCredit_CachesFreshResultAndMarksHits(t *testing.T) {
	provider := &stubCredit{
		name: "SERASA", available: true,
		result: &providers.CreditResult{Score: 810, RiskTier: providers.RiskTierLow, Source: "SERASA"},
	}
	svc := NewService(nil, []providers.CreditProvider{provider}, cache.NewInMemoryCache())

	first, err := svc.AnalyzeCredit(context.Background(), testTaxID, false)
	require.NoError(t, err)
	assert.Equal(t, "SERASA", first.Source)

	second, err := svc.AnalyzeCredit(context.Background(), testTaxID, false)
	require.NoError(t, err)
	assert.Equal(t, "SERASA_CACHED", second.Source)
	assert.Equal(t, 810, second.Score)
	assert.Equal(t, int32(1), provider.calls.Load(), "cache hit must not call upstream")
}

func TestAnalyzeCredit_ForceRefreshBypassesCache(t *testing.T) {
	provider := &stubCredit{
		name: "SERASA", available: true,
		result: &providers.CreditResult{Score: 810, Source: "SERASA"},
	}
	svc := NewService(nil, []providers.CreditProvider{provider}, cache.NewInMemoryCache())
	ctx := context.Background()

	_, err := svc.AnalyzeCredit(ctx, testTaxID, false)
	require.NoError(t, err)

	refreshed, err := svc.AnalyzeCredit(ctx, testTaxID, true)
	require.NoError(t, err)
	assert.Equal(t, "SERASA", refreshed.Source)
	assert.Equal(t, int32(2), provider.calls.Load())
}

func TestAnalyzeCredit_PreferredProviderTriedFirst(t *testing.T) {
	serasa := &stubCredit{name: "SERASA", available: true, result: &providers.CreditResult{Score: 700, Source: "SERASA"}}
	spc := &stubCredit{name: "SPC", available: true, result: &providers.CreditResult{Score: 650, Source: "SPC"}}

	svc := NewService(nil, []providers.CreditProvider{serasa, spc}, cache.NewInMemoryCache(),
		WithPreferredCredit("SPC"))

	result, err := svc.AnalyzeCredit(context.Background(), testTaxID, false)
	require.NoError(t, err)
	assert.Equal(t, "SPC", result.Source)
	assert.Equal(t, int32(0), serasa.calls.Load())
}

func TestAnalyzeCredit_ConcurrentMissesCollapseToOneCall(t *testing.T) {
	provider := &stubCredit{
		name: "SERASA", available: true, delay: 50 * time.Millisecond,
		result: &providers.CreditResult{Score: 600, Source: "SERASA"},
	}
	svc := NewService(nil, []providers.CreditProvider{provider}, cache.NewInMemoryCache())

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*providers.CreditResult, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.AnalyzeCredit(context.Background(), testTaxID, false)
		}()
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 600, results[i].Score)
	}
	assert.Equal(t, int32(1), provider.calls.Load(), "concurrent misses must share one upstream call")
}

func TestAnalyzeCredit_ExhaustionYieldsSimulatedFallback(t *testing.T) {
	failing := &stubCredit{
		name: "SERASA", available: true,
		err: providers.NewProviderError(providers.ErrorProviderOutage, "SERASA", "down", nil),
	}
	store := cache.NewInMemoryCache()
	svc := NewService(nil, []providers.CreditProvider{failing}, store)

	result, err := svc.AnalyzeCredit(context.Background(), testTaxID, false)
	require.NoError(t, err)
	assert.Equal(t, providers.SimulatedFallbackSource, result.Source)
	assert.GreaterOrEqual(t, result.Score, 300)
	assert.LessOrEqual(t, result.Score, 900)
	assert.Equal(t, 0, store.Len(), "simulated results must not be cached")
}

func TestAnalyzeCredit_FallbackScoreBoundsAndTier(t *testing.T) {
	failing := &stubCredit{
		name: "SERASA", available: true,
		err: providers.NewProviderError(providers.ErrorProviderOutage, "SERASA", "down", nil),
	}

	cases := []struct {
		draw  int
		score int
		tier  providers.RiskTier
	}{
		{draw: 0, score: 300, tier: providers.RiskTierHigh},
		{draw: 200, score: 500, tier: providers.RiskTierMedium},
		{draw: 400, score: 700, tier: providers.RiskTierLow},
		{draw: 600, score: 900, tier: providers.RiskTierLow},
	}
	for _, tc := range cases {
		svc := NewService(nil, []providers.CreditProvider{failing}, cache.NewInMemoryCache(),
			WithRandInt(func(int) int { return tc.draw }))

		result, err := svc.AnalyzeCredit(context.Background(), testTaxID, true)
		require.NoError(t, err)
		assert.Equal(t, tc.score, result.Score)
		assert.Equal(t, tc.tier, result.RiskTier)
	}
}

func TestRiskTierForScore(t *testing.T) {
	assert.Equal(t, providers.RiskTierLow, RiskTierForScore(700))
	assert.Equal(t, providers.RiskTierMedium, RiskTierForScore(699))
	assert.Equal(t, providers.RiskTierMedium, RiskTierForScore(500))
	assert.Equal(t, providers.RiskTierHigh, RiskTierForScore(499))
	assert.Equal(t, providers.RiskTierHigh, RiskTierForScore(300))
	assert.Equal(t, providers.RiskTierCritical, RiskTierForScore(299))
}

func TestSendEmail_NotConfigured(t *testing.T) {
	svc := NewService(nil, nil, cache.NewInMemoryCache())

	result, err := svc.SendEmail(context.Background(), providers.EmailMessage{To: "a@b.com"})
	require.NoError(t, err)
	assert.True(t, result.NotConfigured)
	assert.False(t, result.Accepted)
}

func TestSendWhatsApp_NotConfigured(t *testing.T) {
	svc := NewService(nil, nil, cache.NewInMemoryCache())

	result, err := svc.SendWhatsApp(context.Background(), providers.WhatsAppMessage{To: "+5511999999999"})
	require.NoError(t, err)
	assert.True(t, result.NotConfigured)
}
