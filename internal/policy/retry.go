package policy

import "time"

// retrySchedule is the fixed escalation table for failed events. Attempts
// beyond the table reuse the last entry; maxRetries can exceed the table
// length for banking events.
var retrySchedule = []time.Duration{
	1 * time.Second,
	5 * time.Second,
	15 * time.Second,
	1 * time.Minute,
	5 * time.Minute,
}

// RetryDelay maps a 1-based attempt number to the wait before the next
// attempt. Pure function, no side effects.
func RetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(retrySchedule) {
		attempt = len(retrySchedule)
	}
	return retrySchedule[attempt-1]
}

// NextRetryAt computes when a failed event becomes eligible again.
func NextRetryAt(now time.Time, attempt int) time.Time {
	return now.Add(RetryDelay(attempt))
}
