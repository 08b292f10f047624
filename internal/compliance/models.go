// Package compliance turns registry and credit signals into a bounded,
// explainable risk decision for a credential.
package compliance

import (
	"time"

	id "github.com/texlink-oficial/texlink/pkg/domain"
)

// RiskLevel buckets the 0-100 overall score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Severity orders risk levels for triage, most severe highest.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskCritical:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

// Action is the automated recommendation outcome.
type Action string

const (
	ActionApprove      Action = "APPROVE"
	ActionReject       Action = "REJECT"
	ActionManualReview Action = "MANUAL_REVIEW"
)

// Recommendation is the engine's decision for one analysis run. When
// RequiresManualReview is set the credential stays put until a human decides.
type Recommendation struct {
	Action               Action
	Reason               string
	RequiresManualReview bool
}

// ReviewStatus is the state of the human override step.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewRejected ReviewStatus = "REJECTED"
)

// ManualReview records the human decision on an analysis. It is reset to
// pending-with-no-decision every time the analysis is recomputed.
type ManualReview struct {
	Status     ReviewStatus
	ReviewerID string
	Notes      string
	ReviewedAt *time.Time
}

// Flags are the boolean signals extracted during scoring. The legal-issue and
// related-restriction flags are provider-sourced and default to false until
// those integrations land.
type Flags struct {
	HasActiveRegistry      bool
	HasRegularTaxStatus    bool
	HasNegativeCredit      bool
	HasLegalIssues         bool
	HasRelatedRestrictions bool
}

// Analysis is the singleton per-credential compliance record, overwritten
// wholesale on each run.
type Analysis struct {
	ID           id.AnalysisID
	CredentialID id.CredentialID
	BrandID      id.BrandID

	CreditScore  int
	TaxScore     int
	LegalScore   int
	OverallScore int
	RiskLevel    RiskLevel

	Flags       Flags
	RiskFactors []string

	Recommendation Recommendation
	ManualReview   ManualReview

	// CreditSource is the provider tag of the credit result scored against,
	// including cache and simulated-fallback provenance suffixes.
	CreditSource string

	CreatedAt time.Time
	UpdatedAt time.Time
}
