// Package orchestrator drives a roster of coupled solvers through the overset
// lifecycle: one-time initialization, the per-step protocol of connectivity,
// solution exchange and advance, step telemetry, and teardown.
//
// Every rank of the full pool runs the same sequence of calls. Collectives on
// the pool are executed unconditionally; only the solver hooks themselves are
// skipped on ranks that own no part of a solver.
package orchestrator

// State is the lifecycle state of a Simulation.
type State int

const (
	StateConstructed State = iota
	StateInitialized
	StateStepping
	StateFinalized
)

func (s State) String() string {
	names := [...]string{
		"constructed",
		"initialized",
		"stepping",
		"finalized",
	}
	if s >= 0 && int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Phase identifies a collective phase of the coupling protocol.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseConnectivity
	PhaseExchange
	PhaseAdvance
	PhasePicard
	PhasePostAdvance
	PhaseTelemetry
	PhaseFinalize
)

func (p Phase) String() string {
	names := [...]string{
		"init",
		"connectivity",
		"exchange",
		"advance",
		"picard",
		"post-advance",
		"telemetry",
		"finalize",
	}
	if p >= 0 && int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// PhaseEvent is emitted when a phase starts, completes or fails. Step is 0
// for the rounds run during initialization.
type PhaseEvent struct {
	Step      int
	Iteration int
	Phase     Phase
	Status    PhaseStatus
	Message   string
}

// PhaseStatus is the state of a phase within a step.
type PhaseStatus string

const (
	PhaseWorking  PhaseStatus = "working"
	PhaseComplete PhaseStatus = "complete"
	PhaseFailed   PhaseStatus = "failed"
)
