package referral

import (
	"context"
)

// API defines the referral operations, for callers that want to substitute
// a fake in tests.
type API interface {
	// Enroll enrolls a member identified by id in a promotion
	Enroll(ctx context.Context, promotionCode string, id Identity, opts ...EnrollOption) (*EnrollmentResult, error)

	// SubmitEvent records a single referral event
	SubmitEvent(ctx context.Context, e Event) (*EventResult, error)

	// Refer records a Refer event for one or more emails
	Refer(ctx context.Context, referralCode string, emails ...string) (*EventResult, error)

	// SubmitEvents records many events with bounded concurrency
	SubmitEvents(ctx context.Context, events []Event, concurrency int) BatchResult
}

var _ API = (*Manager)(nil)
