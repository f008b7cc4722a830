package store

import (
	"context"
	"slices"
	"sync"

	"mandate/internal/ledger/models"
	"mandate/pkg/digest"
	id "mandate/pkg/domain"
	"mandate/pkg/platform/sentinel"
)

// recordKey is RecordKey with the timestamp flattened to nanoseconds, so two
// time.Time values for the same instant always collide.
type recordKey struct {
	policyID id.PolicyID
	agent    id.AgentID
	nanos    int64
}

func keyOf(k models.RecordKey) recordKey {
	return recordKey{policyID: k.PolicyID, agent: k.Agent, nanos: k.Timestamp.UnixNano()}
}

// InMemory is a ledger store for development and tests. The mutex guards the
// maps only; appends never wait on anything but the map write.
type InMemory struct {
	mu         sync.RWMutex
	refusals   map[recordKey]models.RefusalLog
	executions map[recordKey]models.ExecutionLog
	byDecision map[digest.Digest][]recordKey
}

func NewInMemory() *InMemory {
	return &InMemory{
		refusals:   make(map[recordKey]models.RefusalLog),
		executions: make(map[recordKey]models.ExecutionLog),
		byDecision: make(map[digest.Digest][]recordKey),
	}
}

func (s *InMemory) AppendRefusal(_ context.Context, r *models.RefusalLog) error {
	key := keyOf(r.Key())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.refusals[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.refusals[key] = *r
	s.byDecision[r.DecisionHash] = append(s.byDecision[r.DecisionHash], key)
	return nil
}

func (s *InMemory) AppendExecution(_ context.Context, e *models.ExecutionLog) error {
	key := keyOf(e.Key())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.executions[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	stored := *e
	stored.RulesPassed = slices.Clone(e.RulesPassed)
	s.executions[key] = stored
	s.byDecision[e.DecisionHash] = append(s.byDecision[e.DecisionHash], key)
	return nil
}

func (s *InMemory) GetRefusal(_ context.Context, key models.RecordKey) (*models.RefusalLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.refusals[keyOf(key)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

func (s *InMemory) GetExecution(_ context.Context, key models.RecordKey) (*models.ExecutionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.executions[keyOf(key)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneExecution(e), nil
}

func (s *InMemory) FindByDecisionHash(_ context.Context, hash digest.Digest) (*models.DecisionRecords, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := &models.DecisionRecords{
		Refusals:   []*models.RefusalLog{},
		Executions: []*models.ExecutionLog{},
	}
	for _, key := range s.byDecision[hash] {
		if r, ok := s.refusals[key]; ok && r.DecisionHash == hash {
			out.Refusals = append(out.Refusals, &r)
		}
		if e, ok := s.executions[key]; ok && e.DecisionHash == hash {
			out.Executions = append(out.Executions, cloneExecution(e))
		}
	}
	return out, nil
}

// ListRefusals returns up to limit refusals under policyID, newest first.
func (s *InMemory) ListRefusals(_ context.Context, policyID id.PolicyID, limit int) ([]*models.RefusalLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.RefusalLog{}
	for key, r := range s.refusals {
		if key.policyID == policyID {
			out = append(out, &r)
		}
	}
	slices.SortFunc(out, func(a, b *models.RefusalLog) int { return b.Timestamp.Compare(a.Timestamp) })
	return truncate(out, limit), nil
}

// ListExecutions returns up to limit executions under policyID, newest first.
func (s *InMemory) ListExecutions(_ context.Context, policyID id.PolicyID, limit int) ([]*models.ExecutionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.ExecutionLog{}
	for key, e := range s.executions {
		if key.policyID == policyID {
			out = append(out, cloneExecution(e))
		}
	}
	slices.SortFunc(out, func(a, b *models.ExecutionLog) int { return b.Timestamp.Compare(a.Timestamp) })
	return truncate(out, limit), nil
}

func cloneExecution(e models.ExecutionLog) *models.ExecutionLog {
	e.RulesPassed = slices.Clone(e.RulesPassed)
	return &e
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
