package dirtree

import (
	"fmt"
	"math/rand"

	apperrors "github.com/perf-analysis/pkg/errors"
)

// Tree is the Dirichlet-tree facade: it owns the root node, the
// parameters, the observed-ballot list and a default PRNG, and exposes
// the update/sample/marginal/posterior-set entry points.
type Tree struct {
	params    *Params
	root      *node
	observed  []AggregatedBallot
	depths    map[int]struct{}
	rng       *rand.Rand
	seed      string
	warmLoops int
}

// New constructs a Tree from validated Params, seeded from seed.
func New(params *Params, seed string) *Tree {
	return &Tree{
		params:   params,
		root:     newNode(),
		depths:   make(map[int]struct{}),
		rng:      NewRNG(seed),
		seed:     seed,
		observed: nil,
	}
}

// Params returns the tree's parameters. Parameters are owned by the tree;
// their mutable fields may be altered in place between operations by
// callers that hold the returned pointer.
func (t *Tree) Params() *Params {
	return t.params
}

// Reset destroys the current root and all its descendants, clears the
// observed-ballot list and observed-depth set. Parameters persist.
func (t *Tree) Reset() {
	t.root.reset()
	t.observed = nil
	t.depths = make(map[int]struct{})
}

// SetSeed re-seeds the tree's internal PRNG from a string and warms it up
// by discarding a fixed number of draws.
func (t *Tree) SetSeed(seed string) {
	t.seed = seed
	t.rng = NewRNG(seed)
}

// Update validates and applies one observation of ballot with the given
// count. Empty ballots leave the tree unchanged and are not appended to
// the observed list either.
func (t *Tree) Update(ballot Ballot, count int) error {
	if count <= 0 {
		return apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("count must be positive, got %d", count))
	}
	if err := ballot.Validate(t.params.NCandidates); err != nil {
		return err
	}

	var warn error
	if t.params.Reducible && len(ballot) != 0 && len(ballot) < t.params.MinDepth {
		warn = apperrors.New(apperrors.CodeInconsistentState,
			fmt.Sprintf("reducible mode requires ballot depth >= min_depth (%d), observed depth %d",
				t.params.MinDepth, len(ballot)))
	}

	if len(ballot) == 0 {
		return warn
	}

	t.observed = append(t.observed, AggregatedBallot{Ballot: ballot.Clone(), Count: count})
	t.depths[len(ballot)] = struct{}{}
	t.root.update(ballot, 0, float64(count))
	return warn
}

// NObserved returns the total ballot count observed so far (sum of
// aggregated multiplicities), used by PosteriorSets' N >= n_observed
// precondition.
func (t *Tree) NObserved() int {
	n := 0
	for _, ab := range t.observed {
		n += ab.Count
	}
	return n
}

// Observed returns a copy of the observed aggregated ballots.
func (t *Tree) Observed() []AggregatedBallot {
	out := make([]AggregatedBallot, len(t.observed))
	copy(out, t.observed)
	return out
}

// ObservedDepths returns the set of distinct observed ballot lengths.
func (t *Tree) ObservedDepths() map[int]struct{} {
	out := make(map[int]struct{}, len(t.depths))
	for d := range t.depths {
		out[d] = struct{}{}
	}
	return out
}

// Sample draws n ballots from one realization of the posterior predictive.
// Sample(0) returns an empty, non-nil slice.
func (t *Tree) Sample(n int) []Ballot {
	return t.sampleWith(t.rng, n)
}

func (t *Tree) sampleWith(r *rand.Rand, n int) []Ballot {
	out := make([]Ballot, 0, n)
	t.root.sample(t.params, r, t.params.DefaultPath(), n, func(b Ballot, copies int) {
		for i := 0; i < copies; i++ {
			out = append(out, b.Clone())
		}
	})
	return out
}

// MarginalProbability returns one Monte Carlo draw of P(observe ballot |
// posterior). Repeated calls give independent draws; callers average
// n_samples draws to estimate the analytic posterior marginal.
func (t *Tree) MarginalProbability(ballot Ballot) (float64, error) {
	if err := ballot.Validate(t.params.NCandidates); err != nil {
		return 0, err
	}
	return t.root.marginalProbability(t.params, t.rng, ballot, 0), nil
}

// PosteriorSets draws nSets independent posterior sets, each of size N,
// consisting of the observed ballots plus N - n_observed further draws. If
// replace is false, each sampled ballot is treated as an additional
// observation against a temporarily-updated tree for the remainder of
// that set; sets are independent of one another.
func (t *Tree) PosteriorSets(r *rand.Rand, nSets, N int, replace bool) ([][]Ballot, error) {
	nObserved := t.NObserved()
	if N < nObserved {
		return nil, apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("N (%d) must be >= n_observed (%d)", N, nObserved))
	}

	sets := make([][]Ballot, nSets)
	for s := 0; s < nSets; s++ {
		set := make([]Ballot, 0, N)
		for _, ab := range t.observed {
			for i := 0; i < ab.Count; i++ {
				set = append(set, ab.Ballot.Clone())
			}
		}

		need := N - nObserved
		if !replace {
			set = append(set, t.posteriorSetWithoutReplacement(r, need)...)
		} else {
			drawn := t.sampleWith(r, need)
			set = append(set, drawn...)
		}
		sets[s] = set
	}
	return sets, nil
}

// posteriorSetWithoutReplacement draws `need` further ballots one at a
// time against a scratch copy of the tree, folding each draw back in as an
// additional observation before drawing the next, scoped to a single set.
func (t *Tree) posteriorSetWithoutReplacement(r *rand.Rand, need int) []Ballot {
	scratch := &Tree{
		params:   t.params,
		root:     t.cloneRoot(),
		observed: nil,
		depths:   t.ObservedDepths(),
	}

	out := make([]Ballot, 0, need)
	for len(out) < need {
		drawn := scratch.sampleWith(r, 1)
		if len(drawn) == 0 {
			continue
		}
		b := drawn[0]
		out = append(out, b)
		// An empty-ballot draw stays in the set but is not folded back
		// in: Update skips empty ballots.
		_ = scratch.Update(b, 1)
	}
	return out
}

// cloneRoot deep-copies the materialized subtree so that
// posteriorSetWithoutReplacement's scratch updates never mutate the
// tree's real posterior.
func (t *Tree) cloneRoot() *node {
	return cloneNode(t.root)
}

func cloneNode(n *node) *node {
	out := newNode()
	for k, v := range n.counts {
		out.counts[k] = v
	}
	for k, child := range n.children {
		out.children[k] = cloneNode(child)
	}
	return out
}

// RNG returns the tree's internal PRNG, used only on the calling
// goroutine to seed per-batch child streams - never touched concurrently
// by workers.
func (t *Tree) RNG() *rand.Rand {
	return t.rng
}
