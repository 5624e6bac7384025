package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pawtograder/triage/internal/cost"
	"github.com/pawtograder/triage/internal/fingerprint"
	"github.com/pawtograder/triage/internal/ingest"
	"github.com/pawtograder/triage/internal/processor"
	"github.com/pawtograder/triage/internal/prompt"
	"github.com/pawtograder/triage/internal/provider"
	"github.com/pawtograder/triage/internal/storage"
	"github.com/pawtograder/triage/internal/types"
)

var (
	runManifest    string
	runModel       string
	runStrategy    string
	runConcurrency int
	runLimit       int
	runTrackCosts  bool
	runLedgerPath  string
	runArchive     string
	runDry         bool
)

var runCmd = &cobra.Command{
	Use:   "run <dataset.csv>",
	Short: "Group a dataset and process every group through the LLM runner",
	Long: `Run the full pipeline: ingest, fingerprint, then send one prompt per
(fingerprint, model, strategy) combination to the provider. Results are
persisted per combination and already-processed fingerprints are skipped,
so an interrupted run resumes where it left off.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := ingest.ReadRecordsFile(args[0])
		if err != nil {
			return err
		}
		groups := fingerprint.Group(records)

		combos, manifest, err := resolveCombinations()
		if err != nil {
			return err
		}

		cfg := processor.LoadFromEnv()
		cfg.StateDir = flagStateDir
		if runConcurrency > 0 {
			cfg.Concurrency = runConcurrency
		}
		if runLimit > 0 {
			cfg.Limit = runLimit
		}

		var client provider.Client
		if runDry {
			client = &provider.MockClient{Content: "dry run"}
		} else {
			client, err = provider.NewAnthropicClient(provider.AnthropicConfig{
				MaxConcurrentCalls: cfg.Concurrency,
			})
			if err != nil {
				return err
			}
		}

		opts := processor.Options{
			Config:   cfg,
			Client:   client,
			Prompts:  &prompt.TemplateGenerator{},
			Manifest: manifest,
		}
		if runTrackCosts {
			ledger, err := cost.Open(runLedgerPath, cost.DefaultPricing())
			if err != nil {
				return err
			}
			opts.Ledger = ledger
		}
		if runArchive != "" {
			archive, err := storage.Open(runArchive)
			if err != nil {
				return err
			}
			defer archive.Close()
			if err := archive.UpsertGroups(context.Background(), groups); err != nil {
				return err
			}
			opts.Archive = archive
		}

		proc, err := processor.New(opts)
		if err != nil {
			return err
		}

		summaries, err := proc.Run(context.Background(), groups, combos)
		printSummaries(summaries)
		if err != nil {
			return err
		}
		if opts.Ledger != nil {
			fmt.Printf("Total spend this ledger: $%.4f\n", opts.Ledger.TotalCost())
		}
		return nil
	},
}

// resolveCombinations builds the combination list from --manifest or the
// --model/--strategy pair.
func resolveCombinations() ([]types.Combination, *processor.Manifest, error) {
	if runManifest != "" {
		m, err := processor.LoadManifest(runManifest)
		if err != nil {
			return nil, nil, err
		}
		return m.Combinations, m, nil
	}
	combo := types.Combination{Model: runModel, Strategy: runStrategy}
	if err := combo.Validate(); err != nil {
		return nil, nil, fmt.Errorf("without --manifest, --model and --strategy are required: %w", err)
	}
	return []types.Combination{combo}, nil, nil
}

func printSummaries(summaries []processor.Summary) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, s := range summaries {
		fmt.Printf("\n%s: %s processed, %s skipped, %s failed (of %d)\n",
			s.Combination,
			green(s.Processed), yellow(s.Skipped), red(s.Failed), s.Offered)

		reasons := make([]string, 0, len(s.SkipReasons))
		for r := range s.SkipReasons {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Printf("    skip: %-24s %d\n", r, s.SkipReasons[r])
		}
	}
}

func init() {
	runCmd.Flags().StringVar(&runManifest, "manifest", "", "YAML manifest of combinations and skip rules")
	runCmd.Flags().StringVar(&runModel, "model", "", "model to run (when no manifest)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", prompt.StrategyExplain, "prompt strategy to run (when no manifest)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "worker pool size (default from TRIAGE_CONCURRENCY or 1)")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "cap on groups per combination (0 = all)")
	runCmd.Flags().BoolVar(&runTrackCosts, "track-costs", false, "append usage to the cost ledger")
	runCmd.Flags().StringVar(&runLedgerPath, "ledger", ".triage/cost_ledger.json", "cost ledger document path")
	runCmd.Flags().StringVar(&runArchive, "archive", "", "SQLite archive for groups and outcomes")
	runCmd.Flags().BoolVar(&runDry, "dry-run", false, "use a mock provider instead of calling the API")
	rootCmd.AddCommand(runCmd)
}
