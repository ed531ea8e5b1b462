package postgres

import (
	"context"
	"time"

	"swapguard/internal/model"
)

// LoadAllWithRetry retries the startup load with exponential backoff; a
// cold database behind a restarting engine is the common transient case.
func (s *Store) LoadAllWithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration) ([]model.PolicyRecord, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		records, err := s.LoadAll(ctx)
		if err == nil {
			return records, nil
		}
		if attempt >= maxRetries {
			return nil, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
