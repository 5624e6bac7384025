package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pawtograder/triage/internal/fingerprint"
	"github.com/pawtograder/triage/internal/ingest"
	"github.com/pawtograder/triage/internal/storage"
)

var (
	groupsTop     int
	groupsArchive string
)

var groupsCmd = &cobra.Command{
	Use:   "groups <dataset.csv>",
	Short: "Group raw grader logs by error fingerprint",
	Long: `Ingest a CSV dataset of raw grader log rows, run the extraction,
normalization, and fingerprinting pipeline, and print the resulting
error groups ranked by occurrence count.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := ingest.ReadRecordsFile(args[0])
		if err != nil {
			return err
		}

		groups := fingerprint.Group(records)

		if groupsArchive != "" {
			archive, err := storage.Open(groupsArchive)
			if err != nil {
				return err
			}
			defer archive.Close()
			if err := archive.UpsertGroups(context.Background(), groups); err != nil {
				return err
			}
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== Error Groups ==="))
		fmt.Printf("Records ingested: %d   Groups: %d\n\n", len(records), len(groups))

		shown := groups
		if groupsTop > 0 && groupsTop < len(shown) {
			shown = shown[:groupsTop]
		}
		for i, g := range shown {
			fmt.Printf("%2d. %s  %s  ×%d\n", i+1, yellow(g.Fingerprint), g.CategoryName, g.Count)
			fmt.Printf("    test: %s\n", g.RepresentativeTest())
			fmt.Printf("    %s\n", truncateLine(g.CleanText, 110))
		}
		if len(shown) < len(groups) {
			fmt.Printf("\n... and %d more groups\n", len(groups)-len(shown))
		}
		return nil
	},
}

func truncateLine(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func init() {
	groupsCmd.Flags().IntVar(&groupsTop, "top", 20, "show only the top N groups (0 = all)")
	groupsCmd.Flags().StringVar(&groupsArchive, "archive", "", "also record groups into this SQLite archive")
	rootCmd.AddCommand(groupsCmd)
}
