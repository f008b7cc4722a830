package store

import (
	"context"
	"sync"
	"time"

	"mandate/internal/policy/models"
	id "mandate/pkg/domain"
	"mandate/pkg/platform/sentinel"
)

// InMemory keeps policies in process. Policies are stored as values so callers
// can never mutate a stored record through a returned pointer.
type InMemory struct {
	mu          sync.RWMutex
	byID        map[id.PolicyID]models.Policy
	byAuthority map[id.AuthorityID][]id.PolicyID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:        make(map[id.PolicyID]models.Policy),
		byAuthority: make(map[id.AuthorityID][]id.PolicyID),
	}
}

// CreateIfNoActive inserts p unless its authority already owns a policy that
// is still active at now. The check and insert happen under one lock.
func (s *InMemory) CreateIfNoActive(_ context.Context, p *models.Policy, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[p.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	for _, existingID := range s.byAuthority[p.Authority] {
		existing := s.byID[existingID]
		if existing.IsActive(now) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.byID[p.ID] = *p
	s.byAuthority[p.Authority] = append(s.byAuthority[p.Authority], p.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, policyID id.PolicyID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[policyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

// FindLatestByAuthority returns the authority's most recently created policy,
// active or not.
func (s *InMemory) FindLatestByAuthority(_ context.Context, authority id.AuthorityID) (*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byAuthority[authority]
	if len(ids) == 0 {
		return nil, sentinel.ErrNotFound
	}
	p := s.byID[ids[len(ids)-1]]
	return &p, nil
}
