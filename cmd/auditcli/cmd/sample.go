package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perf-analysis/internal/dirtree"
	"github.com/perf-analysis/pkg/electionfile"
)

var (
	sampleInputFile string
	sampleA0        float64
	sampleMinDepth  int
	sampleMaxDepth  int
	sampleReducible bool
	sampleNBallots  int
	sampleSeed      string
)

// sampleCmd draws from the posterior predictive built over one observed
// ballot file, without running the full batch driver.
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Draw ballots from the posterior predictive",
	Long: `Load candidate names and observed ballots from an election file,
build a Dirichlet-tree posterior, and print n ballots drawn from its
posterior predictive distribution.`,
	RunE: runSampleCmd,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringVarP(&sampleInputFile, "input", "i", "", "Election file with candidate names and observed ballots (required)")
	sampleCmd.MarkFlagRequired("input")

	sampleCmd.Flags().Float64Var(&sampleA0, "a0", 1.0, "Dirichlet base concentration")
	sampleCmd.Flags().IntVar(&sampleMinDepth, "min-depth", 0, "Minimum ballot halt depth")
	sampleCmd.Flags().IntVar(&sampleMaxDepth, "max-depth", 0, "Maximum ballot depth (0 = number of candidates)")
	sampleCmd.Flags().BoolVar(&sampleReducible, "reducible", false, "Use the reducible-to-flat-Dirichlet parameterization")
	sampleCmd.Flags().IntVarP(&sampleNBallots, "n", "n", 10, "Number of ballots to draw")
	sampleCmd.Flags().StringVar(&sampleSeed, "seed", "", "PRNG seed (defaults to the input file path if empty)")
}

func runSampleCmd(cmd *cobra.Command, args []string) error {
	ef, err := electionfile.Load(sampleInputFile)
	if err != nil {
		return err
	}

	candidates, err := ef.CandidateSet()
	if err != nil {
		return err
	}

	maxDepth := sampleMaxDepth
	if maxDepth == 0 {
		maxDepth = candidates.N()
	}

	treeParams, err := dirtree.NewParams(candidates.N(), sampleMinDepth, maxDepth, sampleA0, sampleReducible)
	if err != nil {
		return err
	}

	seed := sampleSeed
	if seed == "" {
		seed = sampleInputFile
	}
	tree := dirtree.New(treeParams, seed)

	if err := ef.Apply(tree, candidates); err != nil {
		return err
	}

	drawn := tree.Sample(sampleNBallots)
	for i, ballot := range drawn {
		names, err := candidates.ToNameBallot(ballot)
		if err != nil {
			return err
		}
		fmt.Printf("%3d: %v\n", i+1, names)
	}

	return nil
}
