package agent

import (
	"context"
	"errors"
	"fmt"

	"mandate/internal/binding"
	"mandate/internal/policy/models"
	"mandate/pkg/client"
	id "mandate/pkg/domain"
)

// ErrPolicyHashMismatch means the server's policy hash does not match the
// terms it returned.
var ErrPolicyHashMismatch = errors.New("policy hash mismatch")

// PolicyClient is the part of *client.Client the source needs.
type PolicyClient interface {
	CurrentPolicy(ctx context.Context, authority id.AuthorityID) (*client.Policy, error)
}

// ClientSource reads policies over the API and checks each one against its
// advertised hash before the agent acts on it.
type ClientSource struct {
	client PolicyClient
}

func NewClientSource(c PolicyClient) *ClientSource {
	return &ClientSource{client: c}
}

func (s *ClientSource) CurrentPolicy(ctx context.Context, authority id.AuthorityID) (*models.Policy, error) {
	cp, err := s.client.CurrentPolicy(ctx, authority)
	if err != nil {
		return nil, err
	}
	if cp.MinConfidence > 100 {
		return nil, fmt.Errorf("policy %s: %w", cp.ID, models.ErrInvalidConfidence)
	}
	chains, err := models.NewChainSet(cp.AllowedChains)
	if err != nil {
		return nil, fmt.Errorf("policy %s: %w", cp.ID, err)
	}
	p := &models.Policy{
		ID:            cp.ID,
		Authority:     cp.Authority,
		MaxSpendUSDC:  cp.MaxSpendUSDC,
		MinConfidence: cp.MinConfidence,
		AllowedChains: chains,
		ExpiresAt:     cp.ExpiresAt,
		CreatedAt:     cp.CreatedAt,
	}
	if got := binding.BindPolicy(p); got != cp.PolicyHash {
		return nil, fmt.Errorf("%w: server sent %s, terms hash to %s", ErrPolicyHashMismatch, cp.PolicyHash, got)
	}
	return p, nil
}
