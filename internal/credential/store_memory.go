package credential

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	id "github.com/texlink-oficial/texlink/pkg/domain"
	"github.com/texlink-oficial/texlink/pkg/platform/sentinel"
)

// InMemoryStore is the development and test implementation of Store. The mutex
// is held across the whole Execute callback so validate-then-mutate is atomic.
type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[id.CredentialID]*Credential
	history     map[id.CredentialID][]HistoryEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		credentials: make(map[id.CredentialID]*Credential),
		history:     make(map[id.CredentialID][]HistoryEntry),
	}
}

func (s *InMemoryStore) Create(_ context.Context, cred *Credential, entry HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.credentials {
		if existing.BrandID == cred.BrandID && existing.TaxID == cred.TaxID && existing.Status != StatusBlocked {
			return sentinel.ErrConflict
		}
	}

	clone := *cred
	s.credentials[cred.ID] = &clone
	s.history[cred.ID] = append(s.history[cred.ID], entry)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, credentialID id.CredentialID) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.credentials[credentialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *cred
	return &clone, nil
}

func (s *InMemoryStore) FindNonBlocked(_ context.Context, brandID id.BrandID, taxID string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cred := range s.credentials {
		if cred.BrandID == brandID && cred.TaxID == taxID && cred.Status != StatusBlocked {
			clone := *cred
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Execute(
	_ context.Context,
	credentialID id.CredentialID,
	validate func(*Credential) error,
	mutate func(*Credential) *HistoryEntry,
) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.credentials[credentialID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	// Validate against a copy so a failed validation leaves no partial write.
	working := *cred
	if err := validate(&working); err != nil {
		return nil, err
	}

	if entry := mutate(&working); entry != nil {
		s.history[credentialID] = append(s.history[credentialID], *entry)
	}
	s.credentials[credentialID] = &working

	clone := working
	return &clone, nil
}

func (s *InMemoryStore) ListHistory(_ context.Context, credentialID id.CredentialID) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]HistoryEntry{}, s.history[credentialID]...), nil
}

func (s *InMemoryStore) List(_ context.Context, query ListQuery) (*PageResult, error) {
	query.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Credential
	for _, cred := range s.credentials {
		if !matches(cred, query) {
			continue
		}
		clone := *cred
		matched = append(matched, &clone)
	}

	sortCredentials(matched, query.SortBy, query.SortDesc)

	total := len(matched)
	start := (query.Page - 1) * query.Limit
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}

	return &PageResult{
		Items: matched[start:end],
		Total: total,
		Page:  query.Page,
		Limit: query.Limit,
	}, nil
}

func matches(cred *Credential, query ListQuery) bool {
	if cred.BrandID != query.BrandID {
		return false
	}
	if len(query.Statuses) > 0 {
		found := false
		for _, status := range query.Statuses {
			if cred.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if query.Category != "" && cred.Category != query.Category {
		return false
	}
	if query.CreatedFrom != nil && cred.CreatedAt.Before(*query.CreatedFrom) {
		return false
	}
	if query.CreatedTo != nil && cred.CreatedAt.After(*query.CreatedTo) {
		return false
	}
	if query.Search != "" {
		needle := strings.ToLower(query.Search)
		haystacks := []string{cred.TaxID, cred.CompanyName, cred.TradeName, cred.ContactName, cred.Email}
		found := false
		for _, h := range haystacks {
			if strings.Contains(strings.ToLower(h), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortCredentials(items []*Credential, by SortField, desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		var less bool
		switch by {
		case SortByPriority:
			less = items[i].Priority < items[j].Priority
		case SortByCompanyName:
			less = items[i].CompanyName < items[j].CompanyName
		case SortByUpdatedAt:
			less = items[i].UpdatedAt.Before(items[j].UpdatedAt)
		default:
			less = items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		if desc {
			return !less
		}
		return less
	})
}

func (s *InMemoryStore) CountByStatus(_ context.Context, brandID id.BrandID) (map[Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[Status]int)
	for _, cred := range s.credentials {
		if cred.BrandID == brandID {
			counts[cred.Status]++
		}
	}
	return counts, nil
}

func (s *InMemoryStore) CountCreatedSince(_ context.Context, brandID id.BrandID, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, cred := range s.credentials {
		if cred.BrandID == brandID && !cred.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) CountCompletedSince(_ context.Context, brandID id.BrandID, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, cred := range s.credentials {
		if cred.BrandID == brandID && cred.CompletedAt != nil && !cred.CompletedAt.Before(since) {
			count++
		}
	}
	return count, nil
}
