package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/billcycle/internal/shared/domain"
	"github.com/google/uuid"
)

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) String() string { return string(s) }

// IsValid reports whether s is a known status.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionActive, SubscriptionCancelled, SubscriptionExpired:
		return true
	}
	return false
}

// DefaultCycleDays is the length of a billing cycle.
const DefaultCycleDays = 30

// Subscription ties a user to a plan for one billing cycle at a time.
// Status changes go through Lifecycle.Transition.
type Subscription struct {
	sharedDomain.BaseAggregateRoot
	userID  uuid.UUID
	planID  uuid.UUID
	startAt time.Time
	endAt   time.Time
	endDate Date
	status  SubscriptionStatus
}

// NewSubscription starts an active subscription at start. The end date is
// the calendar day of start+cycleDays in loc.
func NewSubscription(userID uuid.UUID, plan *Plan, start time.Time, cycleDays int, loc *time.Location) (*Subscription, error) {
	if plan == nil {
		return nil, ErrPlanMissing
	}
	if cycleDays < 1 {
		return nil, ErrInvalidCycle
	}
	s := &Subscription{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(start),
		userID:            userID,
		planID:            plan.ID(),
		status:            SubscriptionActive,
	}
	s.openCycle(start, cycleDays, loc)
	s.AddDomainEvent(NewSubscriptionCreatedEvent(s, plan.Name()))
	return s, nil
}

// RehydrateSubscription recreates a subscription from persisted state.
func RehydrateSubscription(
	id, userID, planID uuid.UUID,
	startAt, endAt time.Time,
	endDate Date,
	status SubscriptionStatus,
	createdAt, updatedAt time.Time,
) *Subscription {
	return &Subscription{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		userID:  userID,
		planID:  planID,
		startAt: startAt,
		endAt:   endAt,
		endDate: endDate,
		status:  status,
	}
}

func (s *Subscription) UserID() uuid.UUID          { return s.userID }
func (s *Subscription) PlanID() uuid.UUID          { return s.planID }
func (s *Subscription) StartAt() time.Time         { return s.startAt }
func (s *Subscription) EndAt() time.Time           { return s.endAt }
func (s *Subscription) EndDate() Date              { return s.endDate }
func (s *Subscription) Status() SubscriptionStatus { return s.status }
func (s *Subscription) IsActive() bool             { return s.status == SubscriptionActive }

// IsDue reports whether the subscription is active and its end date is on
// or before today.
func (s *Subscription) IsDue(today Date) bool {
	return s.status == SubscriptionActive && !s.endDate.After(today)
}

func (s *Subscription) openCycle(start time.Time, cycleDays int, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	start = start.In(loc)
	end := start.AddDate(0, 0, cycleDays)
	s.startAt = start
	s.endAt = end
	s.endDate = DateOf(end, loc)
}

func (s *Subscription) setStatus(status SubscriptionStatus, now time.Time) {
	s.status = status
	s.Touch(now)
}
