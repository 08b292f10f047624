package compliance

import (
	"fmt"
	"math"
	"time"

	"github.com/texlink-oficial/texlink/internal/credential"
	"github.com/texlink-oficial/texlink/internal/verification/providers"
)

// Registry status strings as reported by the company-registry providers.
// Both the Portuguese originals and the normalized English forms are accepted.
func registryActive(status string) bool {
	switch status {
	case "ATIVA", "ACTIVE", "REGULAR":
		return true
	}
	return false
}

func registrySuspended(status string) bool {
	return status == "SUSPENSA" || status == "SUSPENDED"
}

func registryInapt(status string) bool {
	return status == "INAPTA" || status == "INAPT"
}

func registryWrittenOff(status string) bool {
	switch status {
	case "BAIXADA", "CANCELADA", "CANCELLED", "WRITTEN_OFF":
		return true
	}
	return false
}

// Scorecard is the pure output of one scoring pass: every score bounded to
// [0,100], the derived risk level, flags, the ordered risk-factor list and
// the recommendation.
type Scorecard struct {
	CreditScore    int
	TaxScore       int
	LegalScore     int
	OverallScore   int
	RiskLevel      RiskLevel
	Flags          Flags
	RiskFactors    []string
	Recommendation Recommendation
}

// ComputeScorecard derives the full risk decision from the registry snapshot
// and the credit result. It is deterministic: same inputs, same output. now
// anchors the company-age calculation.
func ComputeScorecard(snapshot credential.ValidationSnapshot, credit *providers.CreditResult, now time.Time) Scorecard {
	hasScore := credit != nil && credit.Score > 0
	hasNegatives := credit != nil && credit.HasNegatives
	var debt *float64
	if credit != nil {
		debt = credit.DebtAmount
	}
	ageYears := companyAgeYears(snapshot.FoundedAt, now)

	creditScore := computeCreditScore(hasScore, scoreOf(credit), hasNegatives, debt)
	taxScore := computeTaxScore(snapshot.CompanyStatus, snapshot.CapitalStock)
	legalScore := computeLegalScore(hasNegatives, false, ageYears)

	overall := int(math.Round(0.40*float64(creditScore) + 0.35*float64(taxScore) + 0.25*float64(legalScore)))
	switch {
	case registryWrittenOff(snapshot.CompanyStatus):
		overall = min(overall, 20)
	case registryInapt(snapshot.CompanyStatus):
		overall = min(overall, 40)
	}
	if hasNegatives && debt != nil && *debt > 100000 {
		overall = min(overall, 45)
	}

	level := riskLevelForOverall(overall)
	active := registryActive(snapshot.CompanyStatus)
	flags := Flags{
		HasActiveRegistry:   active,
		HasRegularTaxStatus: active,
		HasNegativeCredit:   hasNegatives,
	}

	return Scorecard{
		CreditScore:    creditScore,
		TaxScore:       taxScore,
		LegalScore:     legalScore,
		OverallScore:   overall,
		RiskLevel:      level,
		Flags:          flags,
		RiskFactors:    assembleRiskFactors(snapshot, credit, hasScore, hasNegatives, debt, ageYears),
		Recommendation: recommend(active, snapshot.CompanyStatus, level),
	}
}

func scoreOf(credit *providers.CreditResult) int {
	if credit == nil {
		return 0
	}
	return credit.Score
}

// computeCreditScore maps the 0-1000 bureau score into [0,100] and penalizes
// negatives and outstanding debt.
func computeCreditScore(hasScore bool, score int, hasNegatives bool, debt *float64) int {
	if !hasScore {
		if hasNegatives {
			return 30
		}
		return 50
	}
	s := int(math.Round(float64(score) / 10))
	if hasNegatives {
		s -= 20
	}
	if debt != nil && *debt > 50000 {
		s -= min(15, int(*debt/10000))
	}
	return clampScore(s)
}

// computeTaxScore maps the registry status into [0,100], with a small bonus
// for substantial paid-in capital.
func computeTaxScore(companyStatus string, capitalStock float64) int {
	s := 50
	switch {
	case registryActive(companyStatus):
		s = 100
	case registrySuspended(companyStatus):
		s = 30
	case registryInapt(companyStatus):
		s = 10
	case registryWrittenOff(companyStatus):
		s = 0
	}
	if capitalStock > 100000 {
		s += 5
	}
	return clampScore(s)
}

// computeLegalScore starts from a clean 100 and subtracts for negatives and
// reported legal issues, adjusted by company age.
func computeLegalScore(hasNegatives, hasLegalIssues bool, ageYears float64) int {
	s := 100
	if hasNegatives {
		s -= 30
	}
	if hasLegalIssues {
		s -= 25
	}
	switch {
	case ageYears >= 0 && ageYears < 1:
		s -= 20
	case ageYears >= 1 && ageYears < 2:
		s -= 10
	case ageYears >= 5:
		s += 10
	}
	return clampScore(s)
}

func riskLevelForOverall(overall int) RiskLevel {
	switch {
	case overall >= 70:
		return RiskLow
	case overall >= 50:
		return RiskMedium
	case overall >= 30:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// companyAgeYears returns the age in fractional years, or -1 when the
// founding date is unknown.
func companyAgeYears(foundedAt *time.Time, now time.Time) float64 {
	if foundedAt == nil || foundedAt.After(now) {
		return -1
	}
	return now.Sub(*foundedAt).Hours() / (24 * 365.25)
}

func assembleRiskFactors(snapshot credential.ValidationSnapshot, credit *providers.CreditResult, hasScore, hasNegatives bool, debt *float64, ageYears float64) []string {
	var factors []string

	if !registryActive(snapshot.CompanyStatus) {
		factors = append(factors, fmt.Sprintf("company registry is not active (status %s)", snapshot.CompanyStatus))
		switch {
		case registrySuspended(snapshot.CompanyStatus):
			factors = append(factors, "registration suspended with the tax authority")
		case registryInapt(snapshot.CompanyStatus):
			factors = append(factors, "registration declared inapt")
		case registryWrittenOff(snapshot.CompanyStatus):
			factors = append(factors, "registration written off or cancelled")
		}
	}

	if hasNegatives {
		if debt != nil {
			factors = append(factors, fmt.Sprintf("negative credit records with outstanding debt of R$ %.2f", *debt))
		} else {
			factors = append(factors, "negative credit records reported")
		}
	}

	if hasScore {
		switch {
		case credit.Score < 300:
			factors = append(factors, fmt.Sprintf("critical credit score (%d)", credit.Score))
		case credit.Score < 500:
			factors = append(factors, fmt.Sprintf("low credit score (%d)", credit.Score))
		}
	}

	switch {
	case ageYears >= 0 && ageYears < 1:
		factors = append(factors, "company founded less than one year ago")
	case ageYears >= 1 && ageYears < 2:
		factors = append(factors, "company founded less than two years ago")
	case ageYears >= 5:
		factors = append(factors, "company established for more than five years")
	}

	switch {
	case snapshot.CapitalStock > 100000:
		factors = append(factors, fmt.Sprintf("capital stock above R$ 100,000 (R$ %.2f)", snapshot.CapitalStock))
	case snapshot.CapitalStock > 0 && snapshot.CapitalStock < 10000:
		factors = append(factors, fmt.Sprintf("low capital stock (R$ %.2f)", snapshot.CapitalStock))
	}

	if credit != nil {
		factors = append(factors, credit.Recommendations...)
	}

	if len(factors) == 0 {
		factors = []string{"no risk factors identified"}
	}
	return factors
}

// recommend maps the registry state and risk level to the automated outcome.
// An inactive registry is an immediate rejection regardless of scores; a
// CRITICAL level also rejects but stays eligible for manual override.
func recommend(active bool, companyStatus string, level RiskLevel) Recommendation {
	if !active {
		return Recommendation{
			Action: ActionReject,
			Reason: fmt.Sprintf("company registry is not active (status %s)", companyStatus),
		}
	}
	switch level {
	case RiskLow, RiskMedium:
		return Recommendation{
			Action: ActionApprove,
			Reason: fmt.Sprintf("automated approval, risk level %s", level),
		}
	case RiskHigh:
		return Recommendation{
			Action:               ActionManualReview,
			Reason:               "high risk, routed to manual review",
			RequiresManualReview: true,
		}
	default:
		return Recommendation{
			Action:               ActionReject,
			Reason:               "critical risk, rejected pending manual override",
			RequiresManualReview: true,
		}
	}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
