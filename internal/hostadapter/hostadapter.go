// Package hostadapter translates between the name-based ballots a calling
// host presents (candidate names as strings) and the index-based ballots
// the dirtree/irv/posterior packages operate on internally. It owns only
// that translation and the argument validation at the boundary; ingesting
// a raw ballot corpus or chaining host commands is out of scope.
package hostadapter

import (
	"fmt"
	"sort"

	"github.com/perf-analysis/internal/dirtree"
	apperrors "github.com/perf-analysis/pkg/errors"
)

// CandidateSet is an ordered, fixed assignment of candidate names to
// indices 0..n-1. The order is the canonical index order used for every
// translation through this adapter.
type CandidateSet struct {
	names   []string
	indexOf map[string]int
}

// NewCandidateSet builds a CandidateSet from a list of distinct candidate
// names, assigning indices in the given order.
func NewCandidateSet(names []string) (*CandidateSet, error) {
	if len(names) < 2 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("candidate set must have >= 2 names, got %d", len(names)))
	}
	indexOf := make(map[string]int, len(names))
	for i, n := range names {
		if n == "" {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, "candidate name must not be empty")
		}
		if _, dup := indexOf[n]; dup {
			return nil, apperrors.New(apperrors.CodeInvalidArgument,
				fmt.Sprintf("duplicate candidate name %q", n))
		}
		indexOf[n] = i
	}
	out := make([]string, len(names))
	copy(out, names)
	return &CandidateSet{names: out, indexOf: indexOf}, nil
}

// N returns the number of candidates.
func (c *CandidateSet) N() int {
	return len(c.names)
}

// Name returns the candidate name for index i, or "" if i is out of range.
func (c *CandidateSet) Name(i int) string {
	if i < 0 || i >= len(c.names) {
		return ""
	}
	return c.names[i]
}

// Names returns every candidate name, in canonical index order.
func (c *CandidateSet) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Index returns the canonical index for a candidate name.
func (c *CandidateSet) Index(name string) (int, error) {
	i, ok := c.indexOf[name]
	if !ok {
		return 0, apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("unknown candidate name %q", name))
	}
	return i, nil
}

// ToIndexBallot translates a named ranking into an index-based Ballot,
// validating every name and rejecting duplicates and unknown names.
func (c *CandidateSet) ToIndexBallot(ranking []string) (dirtree.Ballot, error) {
	out := make(dirtree.Ballot, 0, len(ranking))
	seen := make(map[int]struct{}, len(ranking))
	for _, name := range ranking {
		idx, err := c.Index(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[idx]; dup {
			return nil, apperrors.New(apperrors.CodeInvalidArgument,
				fmt.Sprintf("duplicate candidate %q in ranking", name))
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	if err := out.Validate(c.N()); err != nil {
		return nil, err
	}
	return out, nil
}

// ToNameBallot translates an index-based Ballot back into candidate
// names, in ranking order.
func (c *CandidateSet) ToNameBallot(ballot dirtree.Ballot) ([]string, error) {
	out := make([]string, 0, len(ballot))
	for _, idx := range ballot {
		name := c.Name(idx)
		if name == "" {
			return nil, apperrors.New(apperrors.CodeInvalidArgument,
				fmt.Sprintf("index %d has no corresponding candidate name", idx))
		}
		out = append(out, name)
	}
	return out, nil
}

// ToIndexBallots translates a slice of named rankings in one call,
// stopping at the first invalid entry.
func (c *CandidateSet) ToIndexBallots(rankings [][]string) ([]dirtree.Ballot, error) {
	out := make([]dirtree.Ballot, len(rankings))
	for i, r := range rankings {
		b, err := c.ToIndexBallot(r)
		if err != nil {
			return nil, fmt.Errorf("ranking %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

// SortedNames returns the candidate names in lexical order, independent of
// canonical index order; useful for presenting stable, human-friendly
// output regardless of how the candidate set was constructed.
func (c *CandidateSet) SortedNames() []string {
	out := c.Names()
	sort.Strings(out)
	return out
}
