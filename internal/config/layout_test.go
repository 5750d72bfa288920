package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/oversetsim/internal/comm"
)

func TestPlanLayout_SharedPool(t *testing.T) {
	l, err := PlanLayout(4, 0, 0, 2, true, false)
	require.NoError(t, err)

	require.NotNil(t, l.AMR)
	assert.Equal(t, comm.GroupSpec{Name: "amr-wind", Start: 0, Size: 4}, *l.AMR)
	assert.Equal(t, []comm.GroupSpec{
		{Name: "nalu-wind-0", Start: 0, Size: 2},
		{Name: "nalu-wind-1", Start: 2, Size: 2},
	}, l.Unstructured)
	assert.Len(t, l.Specs(), 3)
}

func TestPlanLayout_ExclusiveSplitWithRemainder(t *testing.T) {
	l, err := PlanLayout(8, 3, 5, 2, true, true)
	require.NoError(t, err)

	assert.Equal(t, comm.GroupSpec{Name: "amr-wind", Start: 0, Size: 3}, *l.AMR)
	assert.Equal(t, []comm.GroupSpec{
		{Name: "nalu-wind-0", Start: 3, Size: 2},
		{Name: "nalu-wind-1", Start: 5, Size: 3},
	}, l.Unstructured)
}

func TestPlanLayout_WithoutAMR(t *testing.T) {
	l, err := PlanLayout(3, 0, 3, 3, false, true)
	require.NoError(t, err)
	assert.Nil(t, l.AMR)
	assert.Len(t, l.Specs(), 3)
}

func TestPlanLayout_Errors(t *testing.T) {
	tests := []struct {
		name                          string
		pool, amr, unstructured, nsol int
		useAMR, exclusive             bool
		want                          error
	}{
		{"amr too large", 4, 5, 4, 1, true, false, ErrTooManyRanks},
		{"unstructured too large", 4, 4, 6, 1, true, false, ErrTooManyRanks},
		{"fewer ranks than solvers", 4, 4, 2, 3, true, false, ErrTooFewRanks},
		{"unused ranks", 6, 2, 2, 1, true, false, ErrUnusedRanks},
		{"unused ranks without amr", 4, 0, 2, 1, false, false, ErrUnusedRanks},
		{"exclusive overlap", 4, 3, 2, 1, true, true, comm.ErrGroupOverlap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PlanLayout(tt.pool, tt.amr, tt.unstructured, tt.nsol, tt.useAMR, tt.exclusive)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
