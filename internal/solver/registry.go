package solver

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/dusk-indust/oversetsim/internal/comm"
	"github.com/dusk-indust/oversetsim/internal/connectivity"
)

// Kind identifies a solver engine type.
type Kind string

const (
	KindAMR          Kind = "amr"
	KindUnstructured Kind = "unstructured"
)

// Params carries what an engine needs to construct itself.
type Params struct {
	// Index distinguishes instances of the same kind.
	Index int

	// Comm is the solver's process group. Never nil.
	Comm comm.Comm

	// InputFile is the engine's own input document.
	InputFile string

	// Overrides is merged into the input document before use. May be nil.
	Overrides map[string]any

	// Fields names the coupled fields of an unstructured solver.
	Fields []string

	// CellVars and NodeVars name the coupled fields of an AMR solver.
	CellVars []string
	NodeVars []string

	// Backend is the shared connectivity backend.
	Backend connectivity.Backend

	// Logger is the rank's logger. May be nil.
	Logger *slog.Logger
}

// Factory constructs a Solver.
type Factory func(p Params) (Solver, error)

// Registry maps solver kinds to their factories.
type Registry struct {
	mu        sync.Mutex
	factories map[Kind]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Kind]Factory),
	}
}

// Register associates a factory with a kind, replacing any previous one.
func (r *Registry) Register(kind Kind, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Spawn constructs a solver of the given kind.
func (r *Registry) Spawn(kind Kind, p Params) (Solver, error) {
	r.mu.Lock()
	factory, ok := r.factories[kind]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no factory registered for solver kind %q", kind)
	}
	if p.Comm == nil {
		return nil, fmt.Errorf("spawn %s solver %d: process group is nil on this rank", kind, p.Index)
	}
	s, err := factory(p)
	if err != nil {
		return nil, fmt.Errorf("spawn %s solver %d: %w", kind, p.Index, err)
	}
	return s, nil
}
