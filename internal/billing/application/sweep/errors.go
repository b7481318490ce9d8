package sweep

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/billcycle/internal/billing/domain"
	"github.com/google/uuid"
)

// ErrSweepInProgress is returned when another sweep holds the single-flight
// guard or the distributed lock.
var ErrSweepInProgress = errors.New("billing sweep already in progress")

// RowFailure records why one subscription could not be processed.
type RowFailure struct {
	SubscriptionID uuid.UUID
	Err            error
}

// PartialSweepError reports the subscriptions a sweep could not process.
// Those rows were left active and are retried on the next run.
type PartialSweepError struct {
	Failures []RowFailure
}

func (e *PartialSweepError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.SubscriptionID.String())
	}
	return fmt.Sprintf("%s: %d subscription(s) failed: %s",
		domain.ErrPartialSweepFailure, len(e.Failures), strings.Join(ids, ", "))
}

func (e *PartialSweepError) Unwrap() error { return domain.ErrPartialSweepFailure }

// SubscriptionIDs lists the failed subscriptions.
func (e *PartialSweepError) SubscriptionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.SubscriptionID)
	}
	return ids
}
