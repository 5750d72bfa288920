// Package comm provides the collective messaging substrate that the coupled
// solvers run on: communicators over a pool of ranks, blocking collective
// reductions, and creation of sub-communicators for process groups.
//
// A nil Comm is the null communicator. Ranks outside a process group hold a
// nil handle for it and must not call collectives on it, but they still take
// part in every collective on the parent communicator.
package comm

import (
	"context"
	"errors"
	"fmt"
)

// Op is a reduction operator.
type Op int

const (
	OpMin Op = iota
	OpMax
	OpSum
)

func (o Op) String() string {
	switch o {
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	case OpSum:
		return "sum"
	default:
		return "unknown"
	}
}

var (
	// ErrGroupTooLarge is returned when a group does not fit in its parent.
	ErrGroupTooLarge = errors.New("requested ranks exceed available ranks")

	// ErrInvalidGroup is returned for non-positive sizes or negative offsets.
	ErrInvalidGroup = errors.New("invalid process group")

	// ErrGroupOverlap is returned when exclusive groups share ranks.
	ErrGroupOverlap = errors.New("process groups overlap")

	// ErrCollectiveMismatch is returned to every participant of a collective
	// round in which ranks disagreed on the operation.
	ErrCollectiveMismatch = errors.New("collective mismatch")

	// ErrInvalidRoot is returned when a reduction root is not a member rank.
	ErrInvalidRoot = errors.New("invalid root rank")
)

// Comm is a communicator: an ordered set of ranks that perform collective
// operations together. Every method blocks until all members have reached
// the same call, or until ctx is done.
type Comm interface {
	// Rank is the calling rank's index within the communicator.
	Rank() int

	// Size is the number of member ranks.
	Size() int

	// Name identifies the communicator in errors and logs.
	Name() string

	// Barrier returns once every member has entered it.
	Barrier(ctx context.Context) error

	// AllreduceInts reduces vals element-wise across members; every member
	// receives the result.
	AllreduceInts(ctx context.Context, vals []int, op Op) ([]int, error)

	// ReduceInt64s reduces vals element-wise onto root. Non-root members
	// receive nil.
	ReduceInt64s(ctx context.Context, vals []int64, op Op, root int) ([]int64, error)

	// ReduceFloat64s reduces vals element-wise onto root. Non-root members
	// receive nil.
	ReduceFloat64s(ctx context.Context, vals []float64, op Op, root int) ([]float64, error)

	// GatherInt64 collects one value per member, ordered by rank, on root.
	// Non-root members receive nil.
	GatherInt64(ctx context.Context, v int64, root int) ([]int64, error)

	// Sub creates a communicator over the contiguous ranks [start, start+n).
	// Every member must call it; ranks outside the range receive nil.
	Sub(ctx context.Context, name string, start, n int) (Comm, error)
}

// checkRange validates a contiguous group against a pool of the given size.
func checkRange(name string, poolSize, start, n int) error {
	if n <= 0 || start < 0 {
		return fmt.Errorf("comm: group %q (start %d, size %d): %w", name, start, n, ErrInvalidGroup)
	}
	if start+n > poolSize {
		return fmt.Errorf("comm: group %q requests ranks [%d, %d) but pool size is %d: %w",
			name, start, start+n, poolSize, ErrGroupTooLarge)
	}
	return nil
}

type number interface {
	~int | ~int64 | ~float64
}

// reduce combines per-rank vectors element-wise. All vectors must have the
// same length.
func reduce[T number](inputs [][]T, op Op) ([]T, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	n := len(inputs[0])
	out := make([]T, n)
	copy(out, inputs[0])
	for r, in := range inputs[1:] {
		if len(in) != n {
			return nil, fmt.Errorf("rank %d contributed %d values, rank 0 contributed %d: %w",
				r+1, len(in), n, ErrCollectiveMismatch)
		}
		for i, v := range in {
			switch op {
			case OpMin:
				out[i] = min(out[i], v)
			case OpMax:
				out[i] = max(out[i], v)
			case OpSum:
				out[i] += v
			default:
				return nil, fmt.Errorf("unsupported reduction %s: %w", op, ErrCollectiveMismatch)
			}
		}
	}
	return out, nil
}
