package dirtree

import (
	"fmt"

	apperrors "github.com/perf-analysis/pkg/errors"
)

// Ballot is an ordered, duplicate-free sequence of candidate indices,
// 0 <= len(Ballot) <= n. Indices are in [0, n).
type Ballot []int

// Clone returns an independent copy of the ballot.
func (b Ballot) Clone() Ballot {
	out := make(Ballot, len(b))
	copy(out, b)
	return out
}

// Equal reports whether two ballots have identical rankings.
func (b Ballot) Equal(other Ballot) bool {
	if len(b) != len(other) {
		return false
	}
	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}
	return true
}

// Key returns a comparable string key usable as a map key for aggregation.
func (b Ballot) Key() string {
	buf := make([]byte, 0, len(b)*4)
	for i, c := range b {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, []byte(fmt.Sprintf("%d", c))...)
	}
	return string(buf)
}

// Validate checks the ballot's data-model invariants: every index in
// [0, n), no repeats, length in [0, n].
func (b Ballot) Validate(nCandidates int) error {
	if len(b) > nCandidates {
		return apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("ballot length %d exceeds n_candidates %d", len(b), nCandidates))
	}
	seen := make(map[int]struct{}, len(b))
	for _, c := range b {
		if c < 0 || c >= nCandidates {
			return apperrors.New(apperrors.CodeInvalidArgument,
				fmt.Sprintf("candidate index %d out of range [0, %d)", c, nCandidates))
		}
		if _, dup := seen[c]; dup {
			return apperrors.New(apperrors.CodeInvalidArgument,
				fmt.Sprintf("ballot contains duplicate candidate %d", c))
		}
		seen[c] = struct{}{}
	}
	return nil
}

// AggregatedBallot pairs a ranking with a positive multiplicity.
type AggregatedBallot struct {
	Ballot Ballot
	Count  int
}

// AggregateBallots groups identical rankings, summing their counts. The
// result order is the order in which each distinct ranking was first seen.
func AggregateBallots(ballots []Ballot) []AggregatedBallot {
	index := make(map[string]int, len(ballots))
	var out []AggregatedBallot
	for _, b := range ballots {
		key := b.Key()
		if i, ok := index[key]; ok {
			out[i].Count++
			continue
		}
		index[key] = len(out)
		out = append(out, AggregatedBallot{Ballot: b.Clone(), Count: 1})
	}
	return out
}
