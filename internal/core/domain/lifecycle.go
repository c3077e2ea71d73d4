package domain

import "time"

// Lifecycle is either Resolved(status) or AwaitingPayment{deadline}.
// The zero value is not valid; use Resolved or AwaitingPayment.
type Lifecycle struct {
	status   BookingStatus
	deadline *time.Time
}

// Resolved builds a durable lifecycle. Void is rejected since a void
// booking always carries a deadline.
func Resolved(status BookingStatus) (Lifecycle, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return Lifecycle{}, err
	}
	if status == StatusVoid {
		return Lifecycle{}, NewInvalidStatusError(string(status))
	}
	return Lifecycle{status: status}, nil
}

// MustResolved is Resolved for statuses known at compile time.
func MustResolved(status BookingStatus) Lifecycle {
	l, err := Resolved(status)
	if err != nil {
		panic(err)
	}
	return l
}

// AwaitingPayment builds a temporary void lifecycle that expires at deadline.
func AwaitingPayment(deadline time.Time) Lifecycle {
	d := deadline.UTC()
	return Lifecycle{status: StatusVoid, deadline: &d}
}

// LifecycleFromStorage rebuilds a lifecycle from persisted columns and
// rejects rows that break the expireAt/void pairing.
func LifecycleFromStorage(status string, expireAt *time.Time) (Lifecycle, error) {
	s, err := ParseStatus(status)
	if err != nil {
		return Lifecycle{}, err
	}
	if s == StatusVoid {
		if expireAt == nil {
			return Lifecycle{}, NewValidationError("void booking without expiry")
		}
		return AwaitingPayment(*expireAt), nil
	}
	if expireAt != nil {
		return Lifecycle{}, NewValidationError("resolved booking with expiry")
	}
	return Lifecycle{status: s}, nil
}

func (l Lifecycle) Status() BookingStatus {
	return l.status
}

func (l Lifecycle) IsAwaitingPayment() bool {
	return l.deadline != nil
}

// ExpireAt returns a copy of the deadline, or nil once resolved.
func (l Lifecycle) ExpireAt() *time.Time {
	if l.deadline == nil {
		return nil
	}
	d := *l.deadline
	return &d
}

// Expired reports whether an awaiting lifecycle has passed its deadline.
func (l Lifecycle) Expired(now time.Time) bool {
	return l.deadline != nil && !now.Before(*l.deadline)
}
