package infra

import (
	"time"
)

const (
	backoffBase = 30 * time.Second
	backoffMax  = 5 * time.Minute
)

// CalculateBackoff returns the exponential delay before retrying a failed
// operation: backoffBase * 2^failures, capped at backoffMax. Negative counts
// return the base delay.
func CalculateBackoff(failures int) time.Duration {
	if failures < 0 {
		return backoffBase
	}
	// 2^20 seconds already exceeds the cap.
	if failures > 20 {
		return backoffMax
	}

	delay := backoffBase * time.Duration(1<<failures)
	if delay > backoffMax {
		return backoffMax
	}
	return delay
}
