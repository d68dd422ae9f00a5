package hostadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perf-analysis/internal/dirtree"
	apperrors "github.com/perf-analysis/pkg/errors"
)

func TestNewCandidateSet_RejectsTooFewNames(t *testing.T) {
	_, err := NewCandidateSet([]string{"alice"})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.GetErrorCode(err))
}

func TestNewCandidateSet_RejectsDuplicateNames(t *testing.T) {
	_, err := NewCandidateSet([]string{"alice", "bob", "alice"})
	require.Error(t, err)
}

func TestNewCandidateSet_RejectsEmptyName(t *testing.T) {
	_, err := NewCandidateSet([]string{"alice", ""})
	require.Error(t, err)
}

func TestCandidateSet_IndexAndName_RoundTrip(t *testing.T) {
	cs, err := NewCandidateSet([]string{"alice", "bob", "carol"})
	require.NoError(t, err)

	idx, err := cs.Index("bob")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "bob", cs.Name(1))
	assert.Equal(t, []string{"alice", "bob", "carol"}, cs.Names())
}

func TestCandidateSet_Index_UnknownName(t *testing.T) {
	cs, err := NewCandidateSet([]string{"alice", "bob"})
	require.NoError(t, err)

	_, err = cs.Index("dave")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.GetErrorCode(err))
}

func TestCandidateSet_ToIndexBallot_ValidRanking(t *testing.T) {
	cs, err := NewCandidateSet([]string{"alice", "bob", "carol"})
	require.NoError(t, err)

	b, err := cs.ToIndexBallot([]string{"carol", "alice"})
	require.NoError(t, err)
	assert.Equal(t, dirtree.Ballot{2, 0}, b)
}

func TestCandidateSet_ToIndexBallot_UnknownName(t *testing.T) {
	cs, err := NewCandidateSet([]string{"alice", "bob"})
	require.NoError(t, err)

	_, err = cs.ToIndexBallot([]string{"alice", "zeke"})
	require.Error(t, err)
}

func TestCandidateSet_ToIndexBallot_DuplicateName(t *testing.T) {
	cs, err := NewCandidateSet([]string{"alice", "bob", "carol"})
	require.NoError(t, err)

	_, err = cs.ToIndexBallot([]string{"alice", "alice"})
	require.Error(t, err)
}

func TestCandidateSet_ToNameBallot_RoundTrip(t *testing.T) {
	cs, err := NewCandidateSet([]string{"alice", "bob", "carol"})
	require.NoError(t, err)

	names, err := cs.ToNameBallot(dirtree.Ballot{1, 2, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol", "alice"}, names)
}

func TestCandidateSet_ToNameBallot_IndexOutOfRange(t *testing.T) {
	cs, err := NewCandidateSet([]string{"alice", "bob"})
	require.NoError(t, err)

	_, err = cs.ToNameBallot(dirtree.Ballot{0, 5})
	require.Error(t, err)
}

func TestCandidateSet_ToIndexBallots_StopsAtFirstError(t *testing.T) {
	cs, err := NewCandidateSet([]string{"alice", "bob"})
	require.NoError(t, err)

	_, err = cs.ToIndexBallots([][]string{
		{"alice", "bob"},
		{"nobody"},
	})
	require.Error(t, err)
}

func TestCandidateSet_SortedNames(t *testing.T) {
	cs, err := NewCandidateSet([]string{"carol", "alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, cs.SortedNames())
}
