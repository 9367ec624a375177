package features

import "time"

// MaxInWindow returns the largest number of timestamps that fall inside
// any window of the given width. Timestamps must be sorted ascending.
func MaxInWindow(timestamps []time.Time, window time.Duration) int {
	best, lo := 0, 0
	for hi := range timestamps {
		for timestamps[hi].Sub(timestamps[lo]) > window {
			lo++
		}
		if n := hi - lo + 1; n > best {
			best = n
		}
	}
	return best
}
