package ledger

import (
	"mandate/internal/ledger/models"
	"mandate/internal/outbox"
)

// Aggregate types on the ledger stream.
const (
	AggregateRefusal   = "refusal"
	AggregateExecution = "execution"
)

// RefusalEvent is the stream event for an appended refusal, keyed by policy.
func RefusalEvent(r *models.RefusalLog) (outbox.Event, error) {
	return outbox.NewEvent(AggregateRefusal, r.PolicyID.String(), outbox.EventRefusalAppended, r, r.Timestamp)
}

// ExecutionEvent is the stream event for an appended execution, keyed by policy.
func ExecutionEvent(e *models.ExecutionLog) (outbox.Event, error) {
	return outbox.NewEvent(AggregateExecution, e.PolicyID.String(), outbox.EventExecutionAppended, e, e.Timestamp)
}
