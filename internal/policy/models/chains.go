package models

import (
	"fmt"

	dErrors "mandate/pkg/domain-errors"
)

// MaxChains is the number of allowlist slots a policy carries.
const MaxChains = 4

// ChainID identifies a destination chain. Zero marks an unused slot and is
// never an allowed chain.
type ChainID uint32

const UnusedSlot ChainID = 0

// ChainSet is a fixed-capacity ordered allowlist. Used slots are contiguous
// from the start; every slot after the first UnusedSlot is also unused.
type ChainSet [MaxChains]ChainID

// NewChainSet validates and packs chain identifiers into slots. Zero values
// are accepted only as trailing padding, e.g. [1, 2, 0, 0].
func NewChainSet(ids []uint32) (ChainSet, error) {
	var set ChainSet
	if len(ids) > MaxChains {
		return set, dErrors.Wrap(ErrInvalidChainSet, dErrors.CodeInvariantViolation,
			fmt.Sprintf("allowed_chains holds at most %d entries", MaxChains))
	}
	seen := make(map[uint32]struct{}, len(ids))
	padding := false
	for i, raw := range ids {
		if raw == uint32(UnusedSlot) {
			padding = true
			continue
		}
		if padding {
			return ChainSet{}, dErrors.Wrap(ErrInvalidChainSet, dErrors.CodeInvariantViolation,
				"allowed_chains must not contain a used slot after an unused one")
		}
		if _, dup := seen[raw]; dup {
			return ChainSet{}, dErrors.Wrap(ErrInvalidChainSet, dErrors.CodeInvariantViolation,
				fmt.Sprintf("allowed_chains contains chain %d twice", raw))
		}
		seen[raw] = struct{}{}
		set[i] = ChainID(raw)
	}
	return set, nil
}

// Contains reports whether id is allowed. The unused sentinel never matches,
// regardless of slot order.
func (c ChainSet) Contains(id ChainID) bool {
	if id == UnusedSlot {
		return false
	}
	for _, slot := range c {
		if slot == id {
			return true
		}
	}
	return false
}

// Used returns the allowed chains without padding.
func (c ChainSet) Used() []ChainID {
	out := make([]ChainID, 0, MaxChains)
	for _, slot := range c {
		if slot != UnusedSlot {
			out = append(out, slot)
		}
	}
	return out
}

// Uint32s returns all four slots, padding included, in slot order.
func (c ChainSet) Uint32s() []uint32 {
	out := make([]uint32, MaxChains)
	for i, slot := range c {
		out[i] = uint32(slot)
	}
	return out
}
