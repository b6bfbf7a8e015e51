// Package backoff computes the pause between retry attempts.
package backoff

import "time"

// maxExponent bounds factor^attempt so the float math cannot overflow into
// a negative duration.
const maxExponent = 30

// Delay returns the pause before retrying after attempt n, with n starting
// at 0 for the delay preceding the second attempt. There is no pause before
// the first attempt, and no jitter: delay(n) = base * factor^n.
func Delay(attempt int, base time.Duration, factor float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxExponent {
		attempt = maxExponent
	}
	if factor <= 0 {
		factor = 1
	}
	d := time.Duration(float64(base) * Pow(factor, attempt))
	if d < 0 {
		return 0
	}
	return d
}

// Pow calculates base^exponent using integer exponentiation.
func Pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
