package comm

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Compile-time interface check.
var _ Comm = (*localComm)(nil)

// World is an in-process rank pool. Each rank is driven by its own goroutine
// and collectives rendezvous through shared group state, so a single process
// can host an entire coupled run.
type World struct {
	root *group
}

// NewWorld creates a pool of size ranks.
func NewWorld(size int) (*World, error) {
	if size <= 0 {
		return nil, fmt.Errorf("comm: world size %d: %w", size, ErrInvalidGroup)
	}
	return &World{root: newGroup("world", size)}, nil
}

// Size returns the number of ranks in the pool.
func (w *World) Size() int { return w.root.size }

// Comm returns the world communicator as seen by rank.
func (w *World) Comm(rank int) Comm {
	if rank < 0 || rank >= w.root.size {
		return nil
	}
	return &localComm{g: w.root, rank: rank}
}

// Run executes fn once per rank of a fresh World of the given size, each on
// its own goroutine. The first rank to return an error cancels the context
// shared by all ranks, which releases peers blocked in a collective; Run then
// returns that first error.
func Run(ctx context.Context, size int, fn func(ctx context.Context, c Comm) error) error {
	w, err := NewWorld(size)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for rank := 0; rank < size; rank++ {
		rank := rank
		c := w.Comm(rank)
		g.Go(func() error {
			if err := fn(gctx, c); err != nil {
				return fmt.Errorf("rank %d: %w", rank, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// round is one in-flight collective on a group.
type round struct {
	kind    string
	root    int
	inputs  []any
	arrived int
	out     any
	err     error
	done    chan struct{}
}

// group is the shared state behind a communicator.
type group struct {
	name string
	size int

	mu      sync.Mutex
	pending *round
}

func newGroup(name string, size int) *group {
	return &group{name: name, size: size}
}

// collect deposits in for rank and waits for the other members. The last
// rank to arrive runs combine over all inputs; every member receives the
// same result.
func (g *group) collect(ctx context.Context, rank int, kind string, root int, in any, combine func([]any) (any, error)) (any, error) {
	g.mu.Lock()
	r := g.pending
	if r == nil {
		r = &round{
			kind:   kind,
			root:   root,
			inputs: make([]any, g.size),
			done:   make(chan struct{}),
		}
		g.pending = r
	}
	if (r.kind != kind || r.root != root) && r.err == nil {
		r.err = fmt.Errorf("comm %s: rank %d entered %s(root %d) while peers are in %s(root %d): %w",
			g.name, rank, kind, root, r.kind, r.root, ErrCollectiveMismatch)
	}
	r.inputs[rank] = in
	r.arrived++
	if r.arrived == g.size {
		if r.err == nil {
			r.out, r.err = combine(r.inputs)
		}
		g.pending = nil
		close(r.done)
	}
	g.mu.Unlock()

	// A completed round wins over cancellation.
	select {
	case <-r.done:
		return r.out, r.err
	default:
	}
	select {
	case <-r.done:
		return r.out, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// localComm is one rank's view of a group.
type localComm struct {
	g    *group
	rank int
}

func (c *localComm) Rank() int    { return c.rank }
func (c *localComm) Size() int    { return c.g.size }
func (c *localComm) Name() string { return c.g.name }

func (c *localComm) Barrier(ctx context.Context) error {
	_, err := c.g.collect(ctx, c.rank, "barrier", 0, nil, func([]any) (any, error) { return nil, nil })
	return err
}

func (c *localComm) AllreduceInts(ctx context.Context, vals []int, op Op) ([]int, error) {
	out, err := c.g.collect(ctx, c.rank, "allreduce-int-"+op.String(), 0, vals, combineVectors[int](op))
	if err != nil {
		return nil, err
	}
	return append([]int(nil), out.([]int)...), nil
}

func (c *localComm) ReduceInt64s(ctx context.Context, vals []int64, op Op, root int) ([]int64, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	out, err := c.g.collect(ctx, c.rank, "reduce-int64-"+op.String(), root, vals, combineVectors[int64](op))
	if err != nil || c.rank != root {
		return nil, err
	}
	return append([]int64(nil), out.([]int64)...), nil
}

func (c *localComm) ReduceFloat64s(ctx context.Context, vals []float64, op Op, root int) ([]float64, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	out, err := c.g.collect(ctx, c.rank, "reduce-float64-"+op.String(), root, vals, combineVectors[float64](op))
	if err != nil || c.rank != root {
		return nil, err
	}
	return append([]float64(nil), out.([]float64)...), nil
}

func (c *localComm) GatherInt64(ctx context.Context, v int64, root int) ([]int64, error) {
	if err := c.checkRoot(root); err != nil {
		return nil, err
	}
	out, err := c.g.collect(ctx, c.rank, "gather-int64", root, v, func(inputs []any) (any, error) {
		all := make([]int64, len(inputs))
		for i, in := range inputs {
			all[i] = in.(int64)
		}
		return all, nil
	})
	if err != nil || c.rank != root {
		return nil, err
	}
	return append([]int64(nil), out.([]int64)...), nil
}

func (c *localComm) Sub(ctx context.Context, name string, start, n int) (Comm, error) {
	if err := checkRange(name, c.g.size, start, n); err != nil {
		return nil, err
	}
	kind := fmt.Sprintf("sub-%s-%d-%d", name, start, n)
	out, err := c.g.collect(ctx, c.rank, kind, 0, nil, func([]any) (any, error) {
		return newGroup(name, n), nil
	})
	if err != nil {
		return nil, err
	}
	if c.rank < start || c.rank >= start+n {
		return nil, nil
	}
	return &localComm{g: out.(*group), rank: c.rank - start}, nil
}

func (c *localComm) checkRoot(root int) error {
	if root < 0 || root >= c.g.size {
		return fmt.Errorf("comm %s: root %d of %d ranks: %w", c.g.name, root, c.g.size, ErrInvalidRoot)
	}
	return nil
}

func combineVectors[T number](op Op) func([]any) (any, error) {
	return func(inputs []any) (any, error) {
		vecs := make([][]T, len(inputs))
		for i, in := range inputs {
			vecs[i] = in.([]T)
		}
		return reduce(vecs, op)
	}
}
