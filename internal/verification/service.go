// Package verification aggregates external company-registry and credit
// providers behind a single service. Registry lookups walk an ordered
// fallback chain; credit analyses sit behind a long-lived cache with
// request collapsing and a synthetic last-resort result.
package verification

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/texlink-oficial/texlink/internal/platform/config"
	"github.com/texlink-oficial/texlink/internal/verification/cache"
	"github.com/texlink-oficial/texlink/internal/verification/metrics"
	"github.com/texlink-oficial/texlink/internal/verification/providers"
	"github.com/texlink-oficial/texlink/pkg/cnpj"
	dErrors "github.com/texlink-oficial/texlink/pkg/domain-errors"
)

const (
	fallbackScoreFloor   = 300
	fallbackScoreCeiling = 900
)

// Service aggregates verification providers. It is safe for concurrent use.
type Service struct {
	registry []providers.RegistryProvider
	credit   []providers.CreditProvider
	notifier providers.NotificationProvider

	cache    cache.Cache
	cacheTTL time.Duration

	preferredCredit string

	group   singleflight.Group
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics *metrics.Metrics
	randInt func(n int) int
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n providers.NotificationProvider) Option {
	return func(s *Service) { s.notifier = n }
}

// WithPreferredCredit moves the named credit provider to the front of the
// attempt order. An unknown name leaves the order unchanged.
func WithPreferredCredit(name string) Option {
	return func(s *Service) { s.preferredCredit = name }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

// WithRandInt overrides the fallback score source, used by tests.
func WithRandInt(fn func(n int) int) Option {
	return func(s *Service) { s.randInt = fn }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs the aggregator. Registry providers are sorted by
// ascending priority once at construction.
func NewService(registry []providers.RegistryProvider, credit []providers.CreditProvider, c cache.Cache, opts ...Option) *Service {
	s := &Service{
		registry: append([]providers.RegistryProvider(nil), registry...),
		credit:   append([]providers.CreditProvider(nil), credit...),
		cache:    c,
		cacheTTL: config.CreditCacheTTL,
		tracer:   otel.Tracer("texlink/verification"),
		logger:   slog.Default(),
		randInt:  rand.IntN,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	sort.SliceStable(s.registry, func(i, j int) bool {
		return s.registry[i].Priority() < s.registry[j].Priority()
	})
	return s
}

// ValidateRegistry resolves the company registry record for a tax ID. It
// walks the provider chain in priority order; a definitive not-found answer
// stops the chain, any other failure moves on to the next provider. Exhaustion
// degrades into a result tagged SERVICE_UNAVAILABLE rather than an error.
func (s *Service) ValidateRegistry(ctx context.Context, taxID string) (*providers.RegistryResult, error) {
	normalized := cnpj.Normalize(taxID)
	if !cnpj.Valid(normalized) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid tax ID %q", taxID)
	}

	ctx, span := s.tracer.Start(ctx, "verification.ValidateRegistry",
		trace.WithAttributes(attribute.String("tax_id", cnpj.Format(normalized))))
	defer span.End()

	available := s.availableRegistry(ctx)
	if len(available) == 0 {
		span.SetAttributes(attribute.String("outcome", "unavailable"))
		return s.unavailableRegistryResult(normalized), nil
	}

	for _, provider := range available {
		start := s.now()
		result, err := provider.Validate(ctx, normalized)
		if err == nil {
			s.observeCall(provider.Name(), start, "")
			span.SetAttributes(attribute.String("provider", provider.Name()))
			return result, nil
		}
		category := providers.GetCategory(err)
		s.observeCall(provider.Name(), start, string(category))

		if providers.IsNotFound(err) {
			span.SetAttributes(attribute.String("outcome", "not_found"))
			return &providers.RegistryResult{
				TaxID:     normalized,
				Found:     false,
				Source:    provider.Name(),
				CheckedAt: s.now(),
				Error:     providers.ResultErrorNotFound,
			}, nil
		}

		s.logger.WarnContext(ctx, "registry provider failed, trying next",
			slog.String("provider", provider.Name()),
			slog.String("category", string(category)),
			slog.String("error", err.Error()))
	}

	span.SetAttributes(attribute.String("outcome", "unavailable"))
	return s.unavailableRegistryResult(normalized), nil
}

func (s *Service) unavailableRegistryResult(taxID string) *providers.RegistryResult {
	return &providers.RegistryResult{
		TaxID:     taxID,
		Found:     false,
		Source:    "NONE",
		CheckedAt: s.now(),
		Error:     providers.ResultErrorUnavailable,
	}
}

// availableRegistry probes every registry provider concurrently and returns
// the available ones in their original priority order.
func (s *Service) availableRegistry(ctx context.Context) []providers.RegistryProvider {
	up := make([]bool, len(s.registry))
	g, gctx := errgroup.WithContext(ctx)
	for i, provider := range s.registry {
		g.Go(func() error {
			up[i] = provider.Available(gctx)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]providers.RegistryProvider, 0, len(s.registry))
	for i, provider := range s.registry {
		if up[i] {
			out = append(out, provider)
		}
	}
	return out
}

// AnalyzeCredit resolves counterparty credit risk for a tax ID. Fresh
// analyses are cached; cached answers come back with the source suffixed
// _CACHED. Concurrent misses for the same tax ID collapse into a single
// upstream call. When every provider is exhausted the caller still gets an
// answer: a synthesized score tagged SIMULATED_FALLBACK, which is never
// cached.
func (s *Service) AnalyzeCredit(ctx context.Context, taxID string, forceRefresh bool) (*providers.CreditResult, error) {
	normalized := cnpj.Normalize(taxID)
	if !cnpj.Valid(normalized) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid tax ID %q", taxID)
	}

	ctx, span := s.tracer.Start(ctx, "verification.AnalyzeCredit",
		trace.WithAttributes(
			attribute.String("tax_id", cnpj.Format(normalized)),
			attribute.Bool("force_refresh", forceRefresh)))
	defer span.End()

	if !forceRefresh {
		if cached := s.cachedCredit(ctx, normalized); cached != nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return cached, nil
		}
	}
	if s.metrics != nil {
		s.metrics.CreditCacheMisses.Inc()
	}

	v, err, _ := s.group.Do(normalized, func() (any, error) {
		// A caller that queued behind the winning flight may find the
		// result already cached.
		if !forceRefresh {
			if cached := s.cachedCredit(ctx, normalized); cached != nil {
				return cached, nil
			}
		}
		return s.fetchCredit(ctx, normalized)
	})
	if err != nil {
		return nil, err
	}

	result := v.(*providers.CreditResult)
	span.SetAttributes(attribute.String("source", result.Source))
	return result, nil
}

// cachedCredit returns a copy of the cached result with the source marked,
// or nil on a miss. Cache infrastructure failures are treated as misses.
func (s *Service) cachedCredit(ctx context.Context, taxID string) *providers.CreditResult {
	if s.cache == nil {
		return nil
	}
	cached, ok, err := s.cache.Get(ctx, taxID)
	if err != nil {
		s.logger.WarnContext(ctx, "credit cache read failed",
			slog.String("error", err.Error()))
		return nil
	}
	if !ok {
		return nil
	}
	if s.metrics != nil {
		s.metrics.CreditCacheHits.Inc()
	}
	out := *cached
	if !strings.HasSuffix(out.Source, providers.CachedSourceSuffix) {
		out.Source += providers.CachedSourceSuffix
	}
	return &out
}

func (s *Service) fetchCredit(ctx context.Context, taxID string) (*providers.CreditResult, error) {
	for _, provider := range s.orderedCredit(ctx) {
		start := s.now()
		result, err := provider.Analyze(ctx, taxID)
		if err == nil {
			s.observeCall(provider.Name(), start, "")
			if s.cache != nil {
				if cacheErr := s.cache.Set(ctx, taxID, result, s.cacheTTL); cacheErr != nil {
					s.logger.WarnContext(ctx, "credit cache write failed",
						slog.String("error", cacheErr.Error()))
				}
			}
			return result, nil
		}
		category := providers.GetCategory(err)
		s.observeCall(provider.Name(), start, string(category))
		s.logger.WarnContext(ctx, "credit provider failed, trying next",
			slog.String("provider", provider.Name()),
			slog.String("category", string(category)),
			slog.String("error", err.Error()))
	}

	s.logger.WarnContext(ctx, "all credit providers exhausted, serving simulated result",
		slog.String("tax_id", cnpj.Format(taxID)))
	if s.metrics != nil {
		s.metrics.FallbacksServed.Inc()
	}
	return s.simulatedCredit(taxID), nil
}

// orderedCredit probes every credit provider concurrently and returns the
// available ones, with the preferred provider moved to the front.
func (s *Service) orderedCredit(ctx context.Context) []providers.CreditProvider {
	up := make([]bool, len(s.credit))
	g, gctx := errgroup.WithContext(ctx)
	for i, provider := range s.credit {
		g.Go(func() error {
			up[i] = provider.Available(gctx)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]providers.CreditProvider, 0, len(s.credit))
	for i, provider := range s.credit {
		if !up[i] {
			continue
		}
		if provider.Name() == s.preferredCredit {
			out = append([]providers.CreditProvider{provider}, out...)
			continue
		}
		out = append(out, provider)
	}
	return out
}

// simulatedCredit synthesizes a mid-range result so downstream risk scoring
// keeps working through a full bureau outage. The provenance tag lets
// compliance treat it as weaker evidence.
func (s *Service) simulatedCredit(taxID string) *providers.CreditResult {
	score := fallbackScoreFloor + s.randInt(fallbackScoreCeiling-fallbackScoreFloor+1)
	// Low scores are more likely to carry negatives, with a random component
	// so the synthetic data is not fully determined by the score.
	hasNegatives := score < 500 && s.randInt(100) < 60
	return &providers.CreditResult{
		TaxID:        taxID,
		Score:        score,
		RiskTier:     RiskTierForScore(score),
		HasNegatives: hasNegatives,
		Recommendations: []string{
			"simulated result: credit bureaus were unavailable",
			"repeat the analysis once providers recover",
		},
		Source:    providers.SimulatedFallbackSource,
		CheckedAt: s.now(),
	}
}

// RiskTierForScore buckets a 0-1000 credit score into a risk tier.
func RiskTierForScore(score int) providers.RiskTier {
	switch {
	case score >= 700:
		return providers.RiskTierLow
	case score >= 500:
		return providers.RiskTierMedium
	case score >= 300:
		return providers.RiskTierHigh
	default:
		return providers.RiskTierCritical
	}
}

// SendEmail dispatches an email through the messaging gateway. A missing or
// unavailable gateway yields a structured not-configured result instead of an
// error so invitation flows degrade gracefully.
func (s *Service) SendEmail(ctx context.Context, msg providers.EmailMessage) (*providers.SendResult, error) {
	if s.notifier == nil || !s.notifier.Available(ctx) {
		return notConfiguredResult("email"), nil
	}
	start := s.now()
	result, err := s.notifier.SendEmail(ctx, msg)
	if err != nil {
		s.observeCall(s.notifier.Name(), start, string(providers.GetCategory(err)))
		return nil, err
	}
	s.observeCall(s.notifier.Name(), start, "")
	return result, nil
}

// SendWhatsApp dispatches a WhatsApp message through the messaging gateway.
func (s *Service) SendWhatsApp(ctx context.Context, msg providers.WhatsAppMessage) (*providers.SendResult, error) {
	if s.notifier == nil || !s.notifier.Available(ctx) {
		return notConfiguredResult("whatsapp"), nil
	}
	start := s.now()
	result, err := s.notifier.SendWhatsApp(ctx, msg)
	if err != nil {
		s.observeCall(s.notifier.Name(), start, string(providers.GetCategory(err)))
		return nil, err
	}
	s.observeCall(s.notifier.Name(), start, "")
	return result, nil
}

func notConfiguredResult(channel string) *providers.SendResult {
	return &providers.SendResult{
		Provider:      "NONE",
		Accepted:      false,
		NotConfigured: true,
		Error:         "no " + channel + " provider configured",
	}
}

func (s *Service) observeCall(provider string, start time.Time, category string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveCall(provider, start, category)
}
