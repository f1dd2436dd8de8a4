package main

import "time"

// scaled divides d by factor so simulated seconds pass faster than real ones
func scaled(d time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return d
	}
	out := time.Duration(float64(d) / factor)
	if out <= 0 {
		return time.Millisecond
	}
	return out
}
