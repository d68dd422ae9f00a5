// Package dirtree implements a lazily-materialized Dirichlet-tree
// posterior over ranked (instant-runoff) ballots.
package dirtree

import (
	"fmt"

	apperrors "github.com/perf-analysis/pkg/errors"
)

// Params holds the static and mutable configuration of a Dirichlet tree.
//
// NCandidates is immutable once the tree is constructed; MinDepth, MaxDepth,
// A0 and Reducible may be changed between operations, subject to the
// ordering and consistency constraints enforced by the setters below.
type Params struct {
	// NCandidates is the number of distinct candidates, n >= 2.
	NCandidates int

	// MinDepth is the shallowest depth at which a ballot may halt, 0 <= MinDepth <= MaxDepth.
	MinDepth int

	// MaxDepth is the deepest depth a ballot may reach, MinDepth <= MaxDepth <= NCandidates.
	MaxDepth int

	// A0 is the base Dirichlet concentration, A0 > 0.
	A0 float64

	// Reducible selects the "reducible to a flat Dirichlet" parameterization.
	Reducible bool
}

// NewParams validates and constructs a Params.
func NewParams(nCandidates, minDepth, maxDepth int, a0 float64, reducible bool) (*Params, error) {
	p := &Params{
		NCandidates: nCandidates,
		MinDepth:    minDepth,
		MaxDepth:    maxDepth,
		A0:          a0,
		Reducible:   reducible,
	}
	if err := p.validateStatic(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Params) validateStatic() error {
	if p.NCandidates < 2 {
		return apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("n_candidates must be >= 2, got %d", p.NCandidates))
	}
	if p.A0 <= 0 {
		return apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("a0 must be > 0, got %g", p.A0))
	}
	if p.MinDepth < 0 || p.MinDepth > p.MaxDepth {
		return apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("min_depth (%d) must be in [0, max_depth (%d)]", p.MinDepth, p.MaxDepth))
	}
	if p.MaxDepth > p.NCandidates {
		return apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("max_depth (%d) must be <= n_candidates (%d)", p.MaxDepth, p.NCandidates))
	}
	return nil
}

// DefaultPath returns the empty prefix: the root's path, no preferences chosen.
func (p *Params) DefaultPath() []int {
	return []int{}
}

// HasHalt reports whether a node at the given depth carries a halt branch.
func (p *Params) HasHalt(depth int) bool {
	return depth >= p.MinDepth && depth < p.MaxDepth
}

// EffectiveA0 returns the concentration to apply to each continue-branch
// at a node of the given depth. In non-reducible mode this is always A0. In
// reducible mode it is scaled so that the induced leaf marginal equals a
// flat Dirichlet(A0) over terminal ballot categories: each of the
// `remaining` continue-branches beneath this node fans out into a
// subtree whose leaf count is accounted for by scaling A0 by the number of
// leaf categories reachable through that branch relative to a single leaf.
// The halt branch, itself a single leaf, keeps A0 (see node.branchAlphas).
func (p *Params) EffectiveA0(depth int) float64 {
	if !p.Reducible {
		return p.A0
	}
	return p.A0 * float64(p.leavesBelow(depth))
}

// leavesBelow returns the number of terminal ballot categories reachable
// from ANY single branch taken at a node of the given depth, used to scale
// A0 in reducible mode so that continue-branches (which fan out into many
// leaf categories) and the halt branch (which is itself exactly one leaf
// category) carry prior mass proportional to their leaf count.
//
// A node at depth d has (n - d) remaining candidates. Taking one
// continue-branch reaches a subtree rooted at depth d+1 whose own leaf
// count is leavesAt(d+1); the halt branch at depth d is itself one leaf.
// Every continue-branch at a node has the same leaf count, so one scalar,
// leavesAt(d+1), serves all of them; the halt branch uses A0 unscaled.
// When d+1 == MaxDepth there is exactly one leaf below each
// continue-branch, and leavesAt returns 1.
func (p *Params) leavesBelow(depth int) int {
	return p.leavesAt(depth + 1)
}

// leavesAt returns the number of distinct complete-ballot categories
// reachable from a node at the given depth, under this Params' MinDepth/
// MaxDepth halting rule.
func (p *Params) leavesAt(depth int) int {
	if depth >= p.MaxDepth || depth >= p.NCandidates {
		return 1
	}
	remaining := p.NCandidates - depth
	total := 0
	if p.HasHalt(depth) {
		total++ // halting here is itself one leaf category
	}
	total += remaining * p.leavesAt(depth+1)
	return total
}

// SetMinDepth validates and applies a new MinDepth. observedDepths are the
// lengths of ballots already observed by the owning tree; if lowering would
// be fine but raising MinDepth above an already-observed ballot's depth
// contradicts that observation, this returns an InconsistentState warning
// error without blocking the assignment - callers decide whether to
// proceed.
func (p *Params) SetMinDepth(minDepth int, observedDepths map[int]struct{}) error {
	if minDepth < 0 || minDepth > p.MaxDepth {
		return apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("min_depth (%d) must be in [0, max_depth (%d)]", minDepth, p.MaxDepth))
	}
	var warn error
	for d := range observedDepths {
		if d < minDepth && d != 0 {
			warn = apperrors.New(apperrors.CodeInconsistentState,
				fmt.Sprintf("raising min_depth to %d contradicts an observed ballot of depth %d", minDepth, d))
			break
		}
	}
	p.MinDepth = minDepth
	return warn
}

// SetMaxDepth validates and applies a new MaxDepth.
func (p *Params) SetMaxDepth(maxDepth int) error {
	if maxDepth < p.MinDepth || maxDepth > p.NCandidates {
		return apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("max_depth (%d) must be in [min_depth (%d), n_candidates (%d)]",
				maxDepth, p.MinDepth, p.NCandidates))
	}
	p.MaxDepth = maxDepth
	return nil
}

// SetA0 validates and applies a new concentration.
func (p *Params) SetA0(a0 float64) error {
	if a0 <= 0 {
		return apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("a0 must be > 0, got %g", a0))
	}
	p.A0 = a0
	return nil
}
