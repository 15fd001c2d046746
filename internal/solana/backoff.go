package solana

import "time"

// Backoff returns the reconnect delay for the given attempt:
// min(base * 2^attempt, limit). The sequence is non-decreasing and
// saturates at limit, including for attempts large enough to overflow
// a naive shift.
func Backoff(base, limit time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if attempt < 0 {
		attempt = 0
	}

	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if limit > 0 && d >= limit {
			return limit
		}
		if d <= 0 { // overflow
			if limit > 0 {
				return limit
			}
			return base
		}
	}
	if limit > 0 && d > limit {
		return limit
	}
	return d
}
