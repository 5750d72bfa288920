// Package telemetry holds the run diagnostics shared by the orchestrator and
// the solver instances: named interval timers with cross-rank summaries, the
// rank-gated console/file printer, and the memory-usage log.
package telemetry

import "time"

// Timer measures one named interval. An incremental tick after the interval
// has been closed resumes it, so the reported duration is the running total
// over every tick/tock pair since the last non-incremental tick.
type Timer struct {
	start   time.Time
	acc     time.Duration
	running bool
	closed  bool
}

// Tick starts the interval at now. When incremental is false, or the timer
// has never been closed, any previous accumulation is discarded.
func (t *Timer) Tick(now time.Time, incremental bool) {
	if !incremental || !t.closed {
		t.acc = 0
	}
	t.start = now
	t.running = true
}

// Tock closes the interval at now. Tock without a matching Tick is a no-op.
func (t *Timer) Tock(now time.Time) {
	if !t.running {
		return
	}
	t.acc += now.Sub(t.start)
	t.running = false
	t.closed = true
}

// Duration returns the accumulated duration of closed intervals.
func (t *Timer) Duration() time.Duration {
	return t.acc
}
