package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perf-analysis/internal/dirtree"
	"github.com/perf-analysis/internal/posterior"
	"github.com/perf-analysis/pkg/electionfile"
	"github.com/perf-analysis/pkg/parallel"
)

var (
	runInputFile  string
	runA0         float64
	runMinDepth   int
	runMaxDepth   int
	runReducible  bool
	runNElections int
	runNBallots   int
	runNBatches   int
	runReplace    bool
	runNWinners   int
	runSeed       string
)

// runCmd loads an ElectionConfig plus observed ballots and runs the
// posterior batch driver, printing the per-candidate win-probability
// report.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full posterior win-probability audit",
	Long: `Load candidate names and observed ballots from an election file,
build a Dirichlet-tree posterior, and run the parallel Monte Carlo batch
driver, printing each candidate's win probability.`,
	RunE: runRunCmd,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runInputFile, "input", "i", "", "Election file with candidate names and observed ballots (required)")
	runCmd.MarkFlagRequired("input")

	runCmd.Flags().Float64Var(&runA0, "a0", 1.0, "Dirichlet base concentration")
	runCmd.Flags().IntVar(&runMinDepth, "min-depth", 0, "Minimum ballot halt depth")
	runCmd.Flags().IntVar(&runMaxDepth, "max-depth", 0, "Maximum ballot depth (0 = number of candidates)")
	runCmd.Flags().BoolVar(&runReducible, "reducible", false, "Use the reducible-to-flat-Dirichlet parameterization")
	runCmd.Flags().IntVar(&runNElections, "n-elections", 1000, "Number of independent elections to simulate")
	runCmd.Flags().IntVar(&runNBallots, "n-ballots", 1000, "Size of each election's scored ballot set (observed plus predictive draws)")
	runCmd.Flags().IntVar(&runNBatches, "n-batches", 100, "Number of parallel batches the elections are split across")
	runCmd.Flags().BoolVar(&runReplace, "replace", false, "Draw posterior-predictive ballots with replacement")
	runCmd.Flags().IntVar(&runNWinners, "n-winners", 1, "Number of winners to report")
	runCmd.Flags().StringVar(&runSeed, "seed", "", "PRNG seed (defaults to the input file path if empty)")
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	ef, err := electionfile.Load(runInputFile)
	if err != nil {
		return err
	}

	candidates, err := ef.CandidateSet()
	if err != nil {
		return err
	}

	maxDepth := runMaxDepth
	if maxDepth == 0 {
		maxDepth = candidates.N()
	}

	treeParams, err := dirtree.NewParams(candidates.N(), runMinDepth, maxDepth, runA0, runReducible)
	if err != nil {
		return err
	}

	seed := runSeed
	if seed == "" {
		seed = runInputFile
	}
	tree := dirtree.New(treeParams, seed)

	if err := ef.Apply(tree, candidates); err != nil {
		return err
	}

	log.Info("Observed %d ballots across %d candidates", tree.NObserved(), candidates.N())

	cfg := posterior.BatchConfig{
		NElections: runNElections,
		NBallots:   runNBallots,
		NBatches:   runNBatches,
		Replace:    runReplace,
		NWinners:   runNWinners,
		Pool:       parallel.DefaultPoolConfig(),
	}

	counts, err := posterior.Run(context.Background(), tree, cfg)
	if err != nil {
		return fmt.Errorf("posterior batch driver failed: %w", err)
	}

	fmt.Printf("Completed %d/%d elections\n", counts.NElections, runNElections)
	for i, name := range candidates.Names() {
		fmt.Printf("  %-20s win_probability=%.4f\n", name, counts.WinProbability(i))
	}

	return nil
}
