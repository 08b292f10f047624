// Package providers defines the external verification provider families and
// their concrete variants. Each family is an interface selected through an
// ordered list plus a runtime availability probe; no provider inherits from
// another.
package providers

import (
	"context"
	"time"
)

// RiskTier buckets a 0-1000 credit score.
type RiskTier string

const (
	RiskTierLow      RiskTier = "LOW"
	RiskTierMedium   RiskTier = "MEDIUM"
	RiskTierHigh     RiskTier = "HIGH"
	RiskTierCritical RiskTier = "CRITICAL"
)

// RegistryResult is the outcome of a company-registry lookup. Provider-level
// failures are carried in Error rather than returned as Go errors so the
// caller's fallback chain can keep going.
type RegistryResult struct {
	TaxID         string
	Found         bool
	CompanyName   string
	TradeName     string
	CompanyStatus string // registry status string: ATIVA, SUSPENSA, INAPTA, BAIXADA, NULA
	CapitalStock  float64
	FoundedAt     *time.Time
	Source        string
	CheckedAt     time.Time

	// Error distinguishes degraded outcomes: COMPANY_NOT_FOUND for a
	// definitive negative, SERVICE_UNAVAILABLE when every provider failed.
	Error string
}

const (
	ResultErrorNotFound    = "COMPANY_NOT_FOUND"
	ResultErrorUnavailable = "SERVICE_UNAVAILABLE"
)

// CreditResult is the outcome of a credit-bureau analysis. Score ranges
// 0-1000. A result served from cache keeps its provider source with a _CACHED
// suffix; a synthesized result carries the SimulatedFallbackSource tag.
type CreditResult struct {
	TaxID           string
	Score           int
	RiskTier        RiskTier
	HasNegatives    bool
	DebtAmount      *float64
	Recommendations []string
	Source          string
	CheckedAt       time.Time
	Error           string
}

// SimulatedFallbackSource marks a synthesized credit result produced when
// every credit provider was exhausted.
const SimulatedFallbackSource = "SIMULATED_FALLBACK"

// CachedSourceSuffix is appended to the source of cache-served results.
const CachedSourceSuffix = "_CACHED"

// RegistryProvider resolves whether a tax ID is a real, registered company.
type RegistryProvider interface {
	Name() string
	// Priority orders fallback attempts; lower tries first.
	Priority() int
	Available(ctx context.Context) bool
	Validate(ctx context.Context, taxID string) (*RegistryResult, error)
}

// CreditProvider resolves counterparty credit risk for a tax ID.
type CreditProvider interface {
	Name() string
	Available(ctx context.Context) bool
	Analyze(ctx context.Context, taxID string) (*CreditResult, error)
}

// EmailMessage is the minimal outbound email shape used by invitation flows.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// WhatsAppMessage is the minimal outbound WhatsApp shape.
type WhatsAppMessage struct {
	To       string
	Template string
	Params   map[string]string
}

// SendResult reports a notification dispatch attempt. NotConfigured marks the
// structured failure returned when no provider serves the channel.
type SendResult struct {
	Provider      string
	MessageID     string
	Accepted      bool
	NotConfigured bool
	Error         string
}

// NotificationProvider dispatches messages for one channel.
type NotificationProvider interface {
	Name() string
	Available(ctx context.Context) bool
	SendEmail(ctx context.Context, msg EmailMessage) (*SendResult, error)
	SendWhatsApp(ctx context.Context, msg WhatsAppMessage) (*SendResult, error)
}
