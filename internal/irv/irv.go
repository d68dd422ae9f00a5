// Package irv implements the instant-runoff social-choice function used to
// score a posterior-sampled multiset of ballots.
package irv

import (
	"math/rand"

	"github.com/perf-analysis/internal/dirtree"
	"github.com/perf-analysis/pkg/collections"
	apperrors "github.com/perf-analysis/pkg/errors"
)

// Result is the outcome of one IRV run: a full elimination order, the
// winner(s) broken out for multi-winner reporting.
type Result struct {
	// EliminationOrder lists every candidate in the order they were
	// eliminated, with the winner last.
	EliminationOrder []int

	// Winners is the last NWinners entries of EliminationOrder.
	Winners []int
}

// Run computes the full elimination order of ballots over nCandidates
// candidates using the provided PRNG for tie-breaking. nWinners must be
// in [1, nCandidates); ballots must be non-empty.
func Run(ballots []dirtree.AggregatedBallot, nCandidates, nWinners int, r *rand.Rand) (*Result, error) {
	if nWinners < 1 || nWinners >= nCandidates {
		return nil, apperrors.New(apperrors.CodeInvalidArgument,
			"n_winners must be in [1, n_candidates)")
	}
	if len(ballots) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument,
			"IRV requires a non-empty ballot set")
	}

	// Set each candidate individually: Bitset.SetAll fills whole 64-bit
	// words, which would mark indices >= nCandidates as standing too.
	standing := collections.NewBitset(nCandidates)
	for c := 0; c < nCandidates; c++ {
		standing.Set(c)
	}

	// pointer[i] is the index into ballots[i].Ballot of that ballot's
	// next not-yet-eliminated preference.
	pointer := make([]int, len(ballots))

	order := make([]int, 0, nCandidates)

	for standing.Count() > 1 {
		tally := make(map[int]int, nCandidates)
		standing.Iterate(func(c int) bool {
			tally[c] = 0
			return true
		})

		for i, ab := range ballots {
			c, ok := firstStanding(ab.Ballot, &pointer[i], standing)
			if ok {
				tally[c] += ab.Count
			}
		}

		eliminated := pickMinimum(tally, standing, r)
		order = append(order, eliminated)
		standing.Clear(eliminated)
	}

	winner := -1
	standing.Iterate(func(c int) bool {
		winner = c
		return false
	})
	order = append(order, winner)

	return &Result{
		EliminationOrder: order,
		Winners:          append([]int{}, order[len(order)-nWinners:]...),
	}, nil
}

// firstStanding advances ptr past any eliminated candidates and returns the
// ballot's current first standing preference, or (0, false) once the
// ballot's preferences are exhausted: a ballot with no remaining standing
// preference is exhausted and contributes no tally.
func firstStanding(ballot dirtree.Ballot, ptr *int, standing *collections.Bitset) (int, bool) {
	for *ptr < len(ballot) {
		c := ballot[*ptr]
		if standing.Test(c) {
			return c, true
		}
		*ptr++
	}
	return 0, false
}

// pickMinimum finds the standing candidate(s) with the lowest tally,
// breaking ties uniformly at random with the provided PRNG.
func pickMinimum(tally map[int]int, standing *collections.Bitset, r *rand.Rand) int {
	min := -1
	var tied []int
	standing.Iterate(func(c int) bool {
		v := tally[c]
		switch {
		case min == -1 || v < min:
			min = v
			tied = tied[:0]
			tied = append(tied, c)
		case v == min:
			tied = append(tied, c)
		}
		return true
	})
	if len(tied) == 1 {
		return tied[0]
	}
	return tied[r.Intn(len(tied))]
}
