package compliance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "github.com/texlink-oficial/texlink/pkg/domain"
	"github.com/texlink-oficial/texlink/pkg/platform/sentinel"
)

// PostgresStore implements Store on database/sql. The unique index on
// credential_id makes Save an upsert, matching the overwrite-wholesale
// semantics of re-analysis.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const analysisColumns = `
	id, credential_id, brand_id,
	credit_score, tax_score, legal_score, overall_score, risk_level,
	has_active_registry, has_regular_tax_status, has_negative_credit,
	has_legal_issues, has_related_restrictions, risk_factors,
	recommendation_action, recommendation_reason, requires_manual_review,
	review_status, reviewer_id, review_notes, reviewed_at,
	credit_source, created_at, updated_at
`

func (s *PostgresStore) Save(ctx context.Context, a *Analysis) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compliance_analyses (`+analysisColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
		ON CONFLICT (credential_id) DO UPDATE SET
			id = EXCLUDED.id,
			brand_id = EXCLUDED.brand_id,
			credit_score = EXCLUDED.credit_score,
			tax_score = EXCLUDED.tax_score,
			legal_score = EXCLUDED.legal_score,
			overall_score = EXCLUDED.overall_score,
			risk_level = EXCLUDED.risk_level,
			has_active_registry = EXCLUDED.has_active_registry,
			has_regular_tax_status = EXCLUDED.has_regular_tax_status,
			has_negative_credit = EXCLUDED.has_negative_credit,
			has_legal_issues = EXCLUDED.has_legal_issues,
			has_related_restrictions = EXCLUDED.has_related_restrictions,
			risk_factors = EXCLUDED.risk_factors,
			recommendation_action = EXCLUDED.recommendation_action,
			recommendation_reason = EXCLUDED.recommendation_reason,
			requires_manual_review = EXCLUDED.requires_manual_review,
			review_status = EXCLUDED.review_status,
			reviewer_id = EXCLUDED.reviewer_id,
			review_notes = EXCLUDED.review_notes,
			reviewed_at = EXCLUDED.reviewed_at,
			credit_source = EXCLUDED.credit_source,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`,
		uuid.UUID(a.ID), uuid.UUID(a.CredentialID), uuid.UUID(a.BrandID),
		a.CreditScore, a.TaxScore, a.LegalScore, a.OverallScore, string(a.RiskLevel),
		a.Flags.HasActiveRegistry, a.Flags.HasRegularTaxStatus, a.Flags.HasNegativeCredit,
		a.Flags.HasLegalIssues, a.Flags.HasRelatedRestrictions, pq.Array(a.RiskFactors),
		string(a.Recommendation.Action), a.Recommendation.Reason, a.Recommendation.RequiresManualReview,
		string(a.ManualReview.Status), a.ManualReview.ReviewerID, a.ManualReview.Notes, a.ManualReview.ReviewedAt,
		a.CreditSource, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByCredential(ctx context.Context, credentialID id.CredentialID) (*Analysis, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+analysisColumns+`
		FROM compliance_analyses
		WHERE credential_id = $1
	`, uuid.UUID(credentialID))

	analysis, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find analysis: %w", err)
	}
	return analysis, nil
}

func (s *PostgresStore) ListPendingReviews(ctx context.Context, brandID id.BrandID) ([]Analysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+analysisColumns+`
		FROM compliance_analyses
		WHERE brand_id = $1
		  AND requires_manual_review
		  AND review_status = $2
		ORDER BY
			CASE risk_level
				WHEN 'CRITICAL' THEN 4
				WHEN 'HIGH' THEN 3
				WHEN 'MEDIUM' THEN 2
				ELSE 1
			END DESC,
			created_at ASC
	`, uuid.UUID(brandID), string(ReviewPending))
	if err != nil {
		return nil, fmt.Errorf("list pending reviews: %w", err)
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, *analysis)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*Analysis, error) {
	var (
		a          Analysis
		analysisID uuid.UUID
		credID     uuid.UUID
		brandID    uuid.UUID
		level      string
		action     string
		review     string
		reviewerID sql.NullString
		reviewedAt sql.NullTime
	)
	err := row.Scan(
		&analysisID, &credID, &brandID,
		&a.CreditScore, &a.TaxScore, &a.LegalScore, &a.OverallScore, &level,
		&a.Flags.HasActiveRegistry, &a.Flags.HasRegularTaxStatus, &a.Flags.HasNegativeCredit,
		&a.Flags.HasLegalIssues, &a.Flags.HasRelatedRestrictions, pq.Array(&a.RiskFactors),
		&action, &a.Recommendation.Reason, &a.Recommendation.RequiresManualReview,
		&review, &reviewerID, &a.ManualReview.Notes, &reviewedAt,
		&a.CreditSource, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.ID = id.AnalysisID(analysisID)
	a.CredentialID = id.CredentialID(credID)
	a.BrandID = id.BrandID(brandID)
	a.RiskLevel = RiskLevel(level)
	a.Recommendation.Action = Action(action)
	a.ManualReview.Status = ReviewStatus(review)
	if reviewerID.Valid {
		a.ManualReview.ReviewerID = reviewerID.String
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		a.ManualReview.ReviewedAt = &t
	}
	return &a, nil
}
