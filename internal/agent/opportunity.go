package agent

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"mandate/internal/evaluator"
	"mandate/internal/policy/models"
)

var ErrInvalidOpportunity = errors.New("invalid opportunity")

// Opportunity is a market the agent is considering.
type Opportunity struct {
	MarketID      string `yaml:"market_id"`
	RequestedUSDC uint64 `yaml:"requested_usdc"`
	Confidence    uint8  `yaml:"confidence"`
	ChainID       uint32 `yaml:"chain_id"`
}

// Action is the evaluator input for this opportunity at now.
func (o Opportunity) Action(now time.Time) evaluator.Action {
	return evaluator.Action{
		MarketID:      o.MarketID,
		RequestedUSDC: o.RequestedUSDC,
		Confidence:    o.Confidence,
		ChainID:       models.ChainID(o.ChainID),
		Now:           now,
	}
}

type opportunityFile struct {
	Opportunities []Opportunity `yaml:"opportunities"`
}

// LoadOpportunities reads a YAML document of the form
//
//	opportunities:
//	  - market_id: btc-100k-2026
//	    requested_usdc: 250
//	    confidence: 82
//	    chain_id: 8453
func LoadOpportunities(r io.Reader) ([]Opportunity, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f opportunityFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode opportunities: %w", err)
	}
	for i, o := range f.Opportunities {
		if o.MarketID == "" {
			return nil, fmt.Errorf("%w: entry %d has no market_id", ErrInvalidOpportunity, i)
		}
		if o.Confidence > 100 {
			return nil, fmt.Errorf("%w: entry %d confidence %d above 100", ErrInvalidOpportunity, i, o.Confidence)
		}
	}
	return f.Opportunities, nil
}
