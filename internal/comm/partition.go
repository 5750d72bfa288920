package comm

import (
	"context"
	"fmt"
)

// GroupSpec describes one contiguous process group inside a parent pool.
type GroupSpec struct {
	Name  string
	Start int
	Size  int
}

// End is one past the last rank of the group.
func (s GroupSpec) End() int { return s.Start + s.Size }

// Partition creates one sub-communicator per spec. All specs are validated
// against the parent before any communicator is created, so a bad request
// fails identically on every rank without entering a collective. Groups may
// overlap unless exclusive is set.
//
// The returned slice has one entry per spec: the group's communicator on
// member ranks and nil elsewhere. Partition is collective over parent.
func Partition(ctx context.Context, parent Comm, specs []GroupSpec, exclusive bool) ([]Comm, error) {
	if err := ValidateSpecs(parent.Size(), specs, exclusive); err != nil {
		return nil, err
	}
	groups := make([]Comm, len(specs))
	for i, s := range specs {
		c, err := parent.Sub(ctx, s.Name, s.Start, s.Size)
		if err != nil {
			return nil, fmt.Errorf("comm: create group %q: %w", s.Name, err)
		}
		groups[i] = c
	}
	return groups, nil
}

// ValidateSpecs checks every spec against a pool of poolSize ranks.
func ValidateSpecs(poolSize int, specs []GroupSpec, exclusive bool) error {
	for _, s := range specs {
		if err := checkRange(s.Name, poolSize, s.Start, s.Size); err != nil {
			return err
		}
	}
	if !exclusive {
		return nil
	}
	for i := range specs {
		for j := i + 1; j < len(specs); j++ {
			a, b := specs[i], specs[j]
			if a.Start < b.End() && b.Start < a.End() {
				return fmt.Errorf("comm: groups %q [%d, %d) and %q [%d, %d): %w",
					a.Name, a.Start, a.End(), b.Name, b.Start, b.End(), ErrGroupOverlap)
			}
		}
	}
	return nil
}

// Contiguous lays groups of the given sizes back to back from start. Group
// names are prefix-0, prefix-1, ...
func Contiguous(prefix string, start int, sizes []int) []GroupSpec {
	specs := make([]GroupSpec, len(sizes))
	for i, n := range sizes {
		specs[i] = GroupSpec{Name: fmt.Sprintf("%s-%d", prefix, i), Start: start, Size: n}
		start += n
	}
	return specs
}

// EvenSizes splits total ranks over n groups. When total is not divisible by
// n the last total%n groups receive one extra rank.
func EvenSizes(total, n int) []int {
	if n <= 0 {
		return nil
	}
	sizes := make([]int, n)
	per, rem := total/n, total%n
	for i := range sizes {
		sizes[i] = per
		if i >= n-rem {
			sizes[i]++
		}
	}
	return sizes
}
