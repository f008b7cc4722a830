package ledger

import (
	"fmt"

	"mandate/internal/binding"
	"mandate/internal/ledger/models"
	policymodels "mandate/internal/policy/models"
	dErrors "mandate/pkg/domain-errors"
)

// VerifyRefusal recomputes the refusal's binding from p and the record's
// public fields. Any difference fails with ErrBindingMismatch.
func VerifyRefusal(p *policymodels.Policy, r *models.RefusalLog) error {
	if p.ID != r.PolicyID {
		return mismatch(fmt.Errorf("record references policy %s, verified against %s", r.PolicyID, p.ID))
	}
	if r.AllowedUSDC != p.MaxSpendUSDC {
		return mismatch(fmt.Errorf("allowed_usdc %d differs from policy cap %d", r.AllowedUSDC, p.MaxSpendUSDC))
	}
	if err := binding.Verify(binding.KindRefusal, p, r.MarketID, r.Timestamp, r.Binding); err != nil {
		return mismatch(err)
	}
	return nil
}

// VerifyExecution recomputes the execution's binding from p and the record's
// public fields.
func VerifyExecution(p *policymodels.Policy, e *models.ExecutionLog) error {
	if p.ID != e.PolicyID {
		return mismatch(fmt.Errorf("record references policy %s, verified against %s", e.PolicyID, p.ID))
	}
	if err := binding.Verify(binding.KindExecution, p, e.MarketID, e.Timestamp, e.Binding); err != nil {
		return mismatch(err)
	}
	return nil
}

func mismatch(cause error) error {
	return dErrors.Wrap(fmt.Errorf("%w: %w", models.ErrBindingMismatch, cause),
		dErrors.CodeInvariantViolation, cause.Error())
}
