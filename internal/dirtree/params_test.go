package dirtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/perf-analysis/pkg/errors"
)

func TestNewParams_Validation(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		min     int
		max     int
		a0      float64
		wantErr bool
	}{
		{"valid", 3, 0, 3, 1.0, false},
		{"n too small", 1, 0, 1, 1.0, true},
		{"min > max", 3, 2, 1, 1.0, true},
		{"max > n", 3, 0, 4, 1.0, true},
		{"a0 not positive", 3, 0, 3, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParams(tt.n, tt.min, tt.max, tt.a0, false)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.GetErrorCode(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParams_HasHalt(t *testing.T) {
	p, err := NewParams(4, 1, 3, 1.0, false)
	require.NoError(t, err)

	assert.False(t, p.HasHalt(0))
	assert.True(t, p.HasHalt(1))
	assert.True(t, p.HasHalt(2))
	assert.False(t, p.HasHalt(3))
}

func TestParams_EffectiveA0_NonReducible(t *testing.T) {
	p, err := NewParams(4, 0, 4, 2.5, false)
	require.NoError(t, err)

	for d := 0; d <= 4; d++ {
		assert.Equal(t, 2.5, p.EffectiveA0(d))
	}
}

func TestParams_EffectiveA0_Reducible_ScalesWithLeafCount(t *testing.T) {
	p, err := NewParams(3, 3, 3, 1.0, true)
	require.NoError(t, err)

	// At min_depth == max_depth == n, every leaf is a full permutation
	// (n! = 6 leaves total); each branch's concentration is scaled by the
	// leaf count of the subtree it leads into, so the leaf marginal
	// matches a flat Dirichlet(a0) over all 6 permutations.
	assert.Equal(t, 2.0, p.EffectiveA0(0))
	assert.Equal(t, 1.0, p.EffectiveA0(1))
	assert.Equal(t, 1.0, p.EffectiveA0(2))
}

func TestParams_SetMinDepth_WarnsOnInconsistency(t *testing.T) {
	p, err := NewParams(4, 0, 4, 1.0, false)
	require.NoError(t, err)

	observed := map[int]struct{}{2: {}}
	err = p.SetMinDepth(3, observed)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInconsistentState, apperrors.GetErrorCode(err))
	assert.Equal(t, 3, p.MinDepth) // the operation still proceeds
}

func TestParams_SetMinDepth_RejectsBadRange(t *testing.T) {
	p, err := NewParams(4, 0, 2, 1.0, false)
	require.NoError(t, err)

	err = p.SetMinDepth(3, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.GetErrorCode(err))
}

func TestParams_SetMaxDepth(t *testing.T) {
	p, err := NewParams(4, 1, 2, 1.0, false)
	require.NoError(t, err)

	require.NoError(t, p.SetMaxDepth(4))
	assert.Equal(t, 4, p.MaxDepth)

	err = p.SetMaxDepth(0)
	require.Error(t, err)
}

func TestParams_SetA0(t *testing.T) {
	p, err := NewParams(4, 0, 4, 1.0, false)
	require.NoError(t, err)

	require.NoError(t, p.SetA0(5))
	assert.Equal(t, 5.0, p.A0)

	require.Error(t, p.SetA0(-1))
}
