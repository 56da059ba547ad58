package referral

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency is the number of events submitted in parallel when
	// the caller does not choose.
	DefaultConcurrency = 5
	MaxConcurrency     = 20
)

// BatchResult collects the outcome of SubmitEvents. Succeeded and Failed
// are ordered by event index.
type BatchResult struct {
	Requested int
	Succeeded []BatchItem
	Failed    []EventError
}

// BatchItem is one successfully submitted event.
type BatchItem struct {
	Index  int
	Event  Event
	Result *EventResult
}

// Err returns nil when every event succeeded, otherwise the first failure.
func (r BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return r.Failed[0]
}

// SubmitEvents submits events concurrently. A failing event does not stop
// the others; cancelling ctx does.
func (m *Manager) SubmitEvents(ctx context.Context, events []Event, concurrency int) BatchResult {
	result := BatchResult{Requested: len(events)}
	if len(events) == 0 {
		return result
	}

	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	concurrency = min(concurrency, MaxConcurrency)

	var g errgroup.Group
	g.SetLimit(concurrency)

	results := make([]*EventResult, len(events))
	errs := make([]error, len(events))

	for i, event := range events {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			res, err := m.SubmitEvent(ctx, event)
			if err != nil {
				m.logger.Warn().
					Err(err).
					Int("index", i).
					Str("referral_code", event.ReferralCode).
					Msg("Failed to submit referral event")
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	for i, event := range events {
		if errs[i] != nil {
			result.Failed = append(result.Failed, EventError{Index: i, ReferralCode: event.ReferralCode, Err: errs[i]})
			continue
		}
		result.Succeeded = append(result.Succeeded, BatchItem{Index: i, Event: event, Result: results[i]})
	}

	m.logger.Info().
		Int("requested", result.Requested).
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Msg("Batch submission finished")

	return result
}
