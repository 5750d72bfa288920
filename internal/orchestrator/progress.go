package orchestrator

import "fmt"

// ProgressReporter emits phase events through a buffered channel.
type ProgressReporter struct {
	ch chan PhaseEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan PhaseEvent, 64),
	}
}

// Emit sends a phase event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event PhaseEvent) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming phase events.
func (pr *ProgressReporter) Subscribe() <-chan PhaseEvent {
	return pr.ch
}

// Close closes the event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a PhaseEvent as a human-readable status line.
func FormatProgress(event PhaseEvent) string {
	label := fmt.Sprintf("step %d %s", event.Step, event.Phase)
	if event.Iteration > 0 {
		label = fmt.Sprintf("%s (iteration %d)", label, event.Iteration)
	}
	switch event.Status {
	case PhaseWorking:
		return fmt.Sprintf("  ● %s...", label)
	case PhaseComplete:
		return fmt.Sprintf("  ✓ %s complete", label)
	case PhaseFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", label, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", label)
	}
}
