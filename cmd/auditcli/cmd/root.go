package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/perf-analysis/pkg/utils"
)

var (
	// Global flags
	verbose bool
	logger  utils.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "auditcli",
	Short: "A Bayesian ballot-polling audit tool for ranked-choice elections",
	Long: `auditcli drives the Dirichlet-tree posterior, instant-runoff social-choice
function, and parallel Monte Carlo batch driver that back a ballot-polling
audit: sample from the posterior predictive, score a ballot set with IRV,
run a full win-probability audit, or start the long-running audit worker.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	binName := BinName()
	rootCmd.Example = `  # Run a full posterior audit over an observed ballot file
  ` + binName + ` run -i ./ballots.json --a0 1.0 --n-elections 1000 --n-ballots 1000

  # Draw a posterior-predictive ballot sample
  ` + binName + ` sample -i ./ballots.json -n 20

  # Score one ballot set with IRV
  ` + binName + ` irv -i ./ballots.json --n-winners 1

  # Start the long-running audit worker
  ` + binName + ` serve -c ./config.yaml`
}

// GetLogger returns the configured logger.
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}
