// Command triage groups grader failure logs by fingerprint and drives the
// resumable LLM explanation runner over the resulting groups.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagVerbose  bool
	flagStateDir string
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Fingerprint grader failures and explain them with an LLM",
	Long: `triage ingests raw autograder/build logs, reduces each record to a
stable fingerprint identifying the underlying problem, and runs each
fingerprint through one or more (model, prompt strategy) combinations
with durable, exactly-once result tracking.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagStateDir, "state-dir", ".triage/state", "directory for per-combination state documents")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
