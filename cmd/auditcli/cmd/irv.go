package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perf-analysis/internal/dirtree"
	"github.com/perf-analysis/internal/irv"
	"github.com/perf-analysis/pkg/electionfile"
)

var (
	irvInputFile string
	irvNWinners  int
	irvSeed      string
)

// irvCmd scores one observed ballot set with instant-runoff, without
// touching the posterior at all.
var irvCmd = &cobra.Command{
	Use:   "irv",
	Short: "Score one ballot set with instant-runoff voting",
	Long: `Load candidate names and observed ballots from an election file,
aggregate identical rankings, and run instant-runoff voting directly over
the observed counts, printing the elimination order and winner(s).`,
	RunE: runIrvCmd,
}

func init() {
	rootCmd.AddCommand(irvCmd)

	irvCmd.Flags().StringVarP(&irvInputFile, "input", "i", "", "Election file with candidate names and observed ballots (required)")
	irvCmd.MarkFlagRequired("input")

	irvCmd.Flags().IntVar(&irvNWinners, "n-winners", 1, "Number of winners to report")
	irvCmd.Flags().StringVar(&irvSeed, "seed", "", "PRNG seed used to break elimination ties (defaults to the input file path if empty)")
}

func runIrvCmd(cmd *cobra.Command, args []string) error {
	ef, err := electionfile.Load(irvInputFile)
	if err != nil {
		return err
	}

	candidates, err := ef.CandidateSet()
	if err != nil {
		return err
	}

	ballots := make([]dirtree.Ballot, 0, len(ef.Observed))
	for _, entry := range ef.Observed {
		for i := 0; i < entry.Count; i++ {
			ballot, err := candidates.ToIndexBallot(entry.Ranking)
			if err != nil {
				return err
			}
			ballots = append(ballots, ballot)
		}
	}

	aggregated := dirtree.AggregateBallots(ballots)

	seed := irvSeed
	if seed == "" {
		seed = irvInputFile
	}
	r := dirtree.NewRNG(seed)

	result, err := irv.Run(aggregated, candidates.N(), irvNWinners, r)
	if err != nil {
		return fmt.Errorf("IRV scoring failed: %w", err)
	}

	orderNames, err := candidates.ToNameBallot(result.EliminationOrder)
	if err != nil {
		return err
	}
	winnerNames, err := candidates.ToNameBallot(result.Winners)
	if err != nil {
		return err
	}

	fmt.Println("Elimination order (last eliminated is the overall winner):")
	for i, name := range orderNames {
		fmt.Printf("  %2d. %s\n", i+1, name)
	}
	fmt.Printf("Winners: %v\n", winnerNames)

	return nil
}
