package compliance

import (
	"context"
	"sort"
	"sync"

	"github.com/texlink-oficial/texlink/pkg/platform/sentinel"

	id "github.com/texlink-oficial/texlink/pkg/domain"
)

// InMemoryStore is a map-backed Store for tests and local development.
type InMemoryStore struct {
	mu       sync.RWMutex
	analyses map[id.CredentialID]Analysis
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{analyses: make(map[id.CredentialID]Analysis)}
}

func (s *InMemoryStore) Save(_ context.Context, analysis *Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[analysis.CredentialID] = cloneAnalysis(*analysis)
	return nil
}

func (s *InMemoryStore) FindByCredential(_ context.Context, credentialID id.CredentialID) (*Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	analysis, ok := s.analyses[credentialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := cloneAnalysis(analysis)
	return &out, nil
}

func (s *InMemoryStore) ListPendingReviews(_ context.Context, brandID id.BrandID) ([]Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Analysis
	for _, analysis := range s.analyses {
		if analysis.BrandID != brandID {
			continue
		}
		if analysis.Recommendation.RequiresManualReview && analysis.ManualReview.Status == ReviewPending {
			out = append(out, cloneAnalysis(analysis))
		}
	}
	sortPendingReviews(out)
	return out, nil
}

// sortPendingReviews orders the triage queue: most severe first, then oldest.
func sortPendingReviews(analyses []Analysis) {
	sort.SliceStable(analyses, func(i, j int) bool {
		si, sj := analyses[i].RiskLevel.Severity(), analyses[j].RiskLevel.Severity()
		if si != sj {
			return si > sj
		}
		return analyses[i].CreatedAt.Before(analyses[j].CreatedAt)
	})
}

func cloneAnalysis(a Analysis) Analysis {
	a.RiskFactors = append([]string(nil), a.RiskFactors...)
	if a.ManualReview.ReviewedAt != nil {
		t := *a.ManualReview.ReviewedAt
		a.ManualReview.ReviewedAt = &t
	}
	return a
}
