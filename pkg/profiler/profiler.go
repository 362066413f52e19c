package profiler

import "time"

// Timer is a lightweight timing helper for instrumentation.
type Timer struct {
	start time.Time
}

// Start returns a timer started now.
func Start() Timer {
	return Timer{start: time.Now()}
}

// Elapsed returns the time since the timer started.
func (t Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Rate returns the number of items processed per second since the timer started.
func (t Timer) Rate(items int) float64 {
	elapsed := t.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(items) / elapsed
}
