// Package posterior runs the parallel Monte Carlo batch driver that
// repeatedly draws a posterior ballot set (observed ballots plus
// posterior-predictive draws), scores it with the instant-runoff
// social-choice function, and aggregates the results into a per-candidate
// win-probability estimate.
package posterior

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/perf-analysis/internal/dirtree"
	"github.com/perf-analysis/internal/irv"
	apperrors "github.com/perf-analysis/pkg/errors"
	"github.com/perf-analysis/pkg/parallel"
)

// BatchConfig controls one driver run.
type BatchConfig struct {
	// NElections is the total number of independent elections to simulate.
	NElections int

	// NBallots is the size of each election's scored ballot set: the N
	// argument to Tree.PosteriorSets, consisting of the observed ballots
	// plus NBallots - n_observed further posterior-predictive draws. Must
	// be >= the tree's observed ballot count.
	NBallots int

	// NBatches is the number of parallel worker jobs NElections is split
	// across. Each job gets its own pinned PRNG stream; any remainder
	// elections (NElections % NBatches) run sequentially on the calling
	// goroutine.
	NBatches int

	// NWinners is forwarded to irv.Run.
	NWinners int

	// Replace selects Tree.PosteriorSets' with/without-replacement mode.
	Replace bool

	// Pool overrides the worker pool configuration; the zero value uses
	// parallel.DefaultPoolConfig().
	Pool parallel.PoolConfig
}

// WinCounts tallies, across all elections, how many times each candidate
// appeared in the winner set.
type WinCounts struct {
	// NElections is the number of elections actually completed (may be
	// less than requested if the context was canceled mid-run).
	NElections int
	Counts     map[int]int
}

// WinProbability returns the candidate's empirical share of won elections.
func (w WinCounts) WinProbability(candidate int) float64 {
	if w.NElections == 0 {
		return 0
	}
	return float64(w.Counts[candidate]) / float64(w.NElections)
}

// batchResult is one job's (or the remainder's) contribution: the win
// counts accumulated over its share of elections, and how many of them
// completed before cancellation.
type batchResult struct {
	Counts    map[int]int
	Completed int
}

// job is one parallel batch's share of the work: how many elections it
// must run and the single pinned seed its PRNG stream is derived from.
type job struct {
	size int
	seed int64
}

// Run simulates cfg.NElections independent posterior elections, split into
// cfg.NBatches parallel batches of batch_size = NElections/NBatches
// elections each, plus a remainder of NElections%NBatches elections run
// sequentially on the calling goroutine (NElections <= 1 puts everything on
// the remainder). Each batch's PRNG seed is drawn from tree.RNG() on the
// calling goroutine before any worker starts, so the result is
// reproducible regardless of how the worker pool schedules goroutines
// across batches - only the assignment of seed to batch index matters, not
// execution order. Run returns early, with a partial WinCounts and the
// context's error, if ctx is canceled.
func Run(ctx context.Context, tree *dirtree.Tree, cfg BatchConfig) (WinCounts, error) {
	if cfg.NElections <= 0 {
		return WinCounts{}, apperrors.New(apperrors.CodeInvalidArgument,
			"n_elections must be > 0")
	}
	if cfg.NBallots < tree.NObserved() {
		return WinCounts{}, apperrors.New(apperrors.CodeInvalidArgument,
			fmt.Sprintf("n_ballots (%d) must be >= n_observed (%d)", cfg.NBallots, tree.NObserved()))
	}
	if cfg.NBatches <= 0 {
		return WinCounts{}, apperrors.New(apperrors.CodeInvalidArgument,
			"n_batches must be > 0")
	}

	batchSize, remainder := cfg.NElections/cfg.NBatches, cfg.NElections%cfg.NBatches
	if cfg.NElections <= 1 {
		batchSize, remainder = 0, cfg.NElections
	}

	// Draw n_batches+1 seeds (one per parallel batch, one for the
	// remainder) on the calling goroutine before any worker starts.
	seeds := make([]int64, cfg.NBatches+1)
	for i := range seeds {
		seeds[i] = childSeed(tree.RNG())
	}

	jobs := make([]job, cfg.NBatches)
	for i := range jobs {
		jobs[i] = job{size: batchSize, seed: seeds[i]}
	}

	pool := parallel.NewWorkerPool[job, batchResult](cfg.Pool)
	results := pool.ExecuteFunc(ctx, jobs, func(ctx context.Context, j job) (batchResult, error) {
		r := rand.New(rand.NewSource(j.seed))
		return runElections(ctx, tree, cfg, r, j.size)
	})

	counts := make(map[int]int)
	completed := 0
	var firstErr error
	for _, res := range results {
		if res.Error != nil && firstErr == nil {
			firstErr = res.Error
		}
		completed += res.Result.Completed
		for c, n := range res.Result.Counts {
			counts[c] += n
		}
	}

	if remainder > 0 && firstErr == nil {
		r := rand.New(rand.NewSource(seeds[cfg.NBatches]))
		rem, err := runElections(ctx, tree, cfg, r, remainder)
		completed += rem.Completed
		for c, n := range rem.Counts {
			counts[c] += n
		}
		if err != nil {
			firstErr = err
		}
	}

	wc := WinCounts{NElections: completed, Counts: counts}
	if completed < cfg.NElections {
		if firstErr == nil {
			firstErr = apperrors.New(apperrors.CodeInterrupted,
				"posterior batch driver stopped before completing all elections")
		}
		return wc, firstErr
	}
	return wc, nil
}

// runElections scores n independent posterior elections against the
// batch's own PRNG r, checking for cancellation between elections so a
// batch can be abandoned cooperatively mid-run rather than only at its
// first election.
func runElections(ctx context.Context, tree *dirtree.Tree, cfg BatchConfig, r *rand.Rand, n int) (batchResult, error) {
	counts := make(map[int]int)
	completed := 0
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return batchResult{Counts: counts, Completed: completed}, ctx.Err()
		default:
		}

		sets, err := tree.PosteriorSets(r, 1, cfg.NBallots, cfg.Replace)
		if err != nil {
			return batchResult{Counts: counts, Completed: completed}, err
		}
		agg := dirtree.AggregateBallots(sets[0])

		outcome, err := irv.Run(agg, tree.Params().NCandidates, cfg.NWinners, r)
		if err != nil {
			return batchResult{Counts: counts, Completed: completed}, err
		}
		for _, w := range outcome.Winners {
			counts[w]++
		}
		completed++
	}
	return batchResult{Counts: counts, Completed: completed}, nil
}

// childSeed derives one batch's PRNG seed from the tree's internal
// generator, combining two 32-bit draws into one 64-bit seed. Kept here
// (rather than in dirtree) so the driver's seeding strategy can be swapped
// without touching dirtree's public surface.
func childSeed(parent *rand.Rand) int64 {
	return int64(parent.Uint32())<<32 | int64(parent.Uint32())
}
