package telemetry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dusk-indust/oversetsim/internal/comm"
)

// ErrUnknownTimer is reported when a timer name outside the declared set was
// ticked or tocked.
var ErrUnknownTimer = errors.New("unknown timer")

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Timers is an ordered set of named interval timers.
type Timers struct {
	names   []string
	timers  []Timer
	index   map[string]int
	unknown map[string]bool
	now     Clock
}

// NewTimers creates a timer set with the given names, in reporting order.
// A nil clock uses time.Now.
func NewTimers(clock Clock, names ...string) *Timers {
	if clock == nil {
		clock = time.Now
	}
	ts := &Timers{
		names:  append([]string(nil), names...),
		timers: make([]Timer, len(names)),
		index:  make(map[string]int, len(names)),
		now:    clock,
	}
	for i, n := range names {
		ts.index[n] = i
	}
	return ts
}

// Names returns the timer names in reporting order.
func (ts *Timers) Names() []string {
	return slices.Clone(ts.names)
}

// Tick starts or resumes the named interval.
func (ts *Timers) Tick(name string, incremental bool) {
	if t := ts.lookup(name); t != nil {
		t.Tick(ts.now(), incremental)
	}
}

// Tock closes the named interval.
func (ts *Timers) Tock(name string) {
	if t := ts.lookup(name); t != nil {
		t.Tock(ts.now())
	}
}

// Time runs fn between Tick and Tock of the named interval.
func (ts *Timers) Time(name string, incremental bool, fn func() error) error {
	ts.Tick(name, incremental)
	defer ts.Tock(name)
	return fn()
}

// Duration returns the accumulated duration of the named interval.
func (ts *Timers) Duration(name string) time.Duration {
	if i, ok := ts.index[name]; ok {
		return ts.timers[i].Duration()
	}
	return 0
}

// Seconds returns every accumulated duration in seconds, in reporting order.
func (ts *Timers) Seconds() []float64 {
	out := make([]float64, len(ts.timers))
	for i := range ts.timers {
		out[i] = ts.timers[i].Duration().Seconds()
	}
	return out
}

func (ts *Timers) lookup(name string) *Timer {
	i, ok := ts.index[name]
	if !ok {
		if ts.unknown == nil {
			ts.unknown = make(map[string]bool)
		}
		ts.unknown[name] = true
		return nil
	}
	return &ts.timers[i]
}

// Summary holds timer durations reduced across a communicator, in seconds.
type Summary struct {
	Names []string
	Min   []float64
	Avg   []float64
	Max   []float64
}

// Summarize reduces every timer across c onto root. Root receives the
// summary, every other rank receives nil. All members of c must call it.
// Unknown timer names used on this rank are reported after the reduction has
// completed, so a misuse never leaves peers waiting.
func (ts *Timers) Summarize(ctx context.Context, c comm.Comm, root int) (*Summary, error) {
	local := ts.Seconds()
	mins, err := c.ReduceFloat64s(ctx, local, comm.OpMin, root)
	if err != nil {
		return nil, fmt.Errorf("telemetry: reduce min: %w", err)
	}
	maxs, err := c.ReduceFloat64s(ctx, local, comm.OpMax, root)
	if err != nil {
		return nil, fmt.Errorf("telemetry: reduce max: %w", err)
	}
	sums, err := c.ReduceFloat64s(ctx, local, comm.OpSum, root)
	if err != nil {
		return nil, fmt.Errorf("telemetry: reduce sum: %w", err)
	}

	if len(ts.unknown) > 0 {
		names := make([]string, 0, len(ts.unknown))
		for n := range ts.unknown {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("telemetry: %s: %w", strings.Join(names, ", "), ErrUnknownTimer)
	}

	if c.Rank() != root {
		return nil, nil
	}
	avgs := make([]float64, len(sums))
	for i, s := range sums {
		avgs[i] = s / float64(c.Size())
	}
	return &Summary{
		Names: ts.Names(),
		Min:   mins,
		Avg:   avgs,
		Max:   maxs,
	}, nil
}

// Line formats the summary as one console line.
// Returns: "<label> step <N> -- <name>: <avg> (min: <min>, max: <max>) ..."
func (s *Summary) Line(label string, step int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s step %d --", label, step)
	for i, n := range s.Names {
		fmt.Fprintf(&b, " %s: %.6f (min: %.6f, max: %.6f)", n, s.Avg[i], s.Min[i], s.Max[i])
	}
	return b.String()
}

// Detail formats one timing-log line per timer:
// "<label>::<name> <step> <min> <avg> <max>".
func (s *Summary) Detail(label string, step int) []string {
	lines := make([]string, len(s.Names))
	for i, n := range s.Names {
		lines[i] = fmt.Sprintf("%s::%s %d %.6f %.6f %.6f", label, n, step, s.Min[i], s.Avg[i], s.Max[i])
	}
	return lines
}
