package bridge

import "time"

// backoffCeiling is the longest wait between startup poll attempts. The
// stick powers down overnight, so retries continue at the ceiling
// indefinitely rather than giving up.
const backoffCeiling = 600 * time.Second

// backoffDelay returns the wait before retrying attempt number attempt,
// growing as 2^attempt seconds until it reaches the ceiling.
func backoffDelay(attempt int) time.Duration {
	if attempt >= 10 {
		// 2^10 already exceeds the ceiling; also guards shift overflow
		return backoffCeiling
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > backoffCeiling {
		return backoffCeiling
	}
	return d
}
