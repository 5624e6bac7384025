package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pawtograder/triage/internal/cost"
)

var costLedgerPath string

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Cost ledger operations",
}

var costReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show per-model usage and spend from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := cost.Open(costLedgerPath, cost.DefaultPricing())
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== Cost Ledger ==="))

		summaries := ledger.Summaries()
		if len(summaries) == 0 {
			fmt.Println("Ledger is empty")
			return nil
		}

		for _, s := range summaries {
			fmt.Printf("%-32s %6d req  %10d in  %10d out  $%.4f\n",
				s.Model, s.Requests, s.PromptTokens, s.CompletionTokens, s.CostUSD)
		}
		fmt.Printf("\nTotal: $%.4f across %d entries\n", ledger.TotalCost(), len(ledger.Entries()))
		return nil
	},
}

var costExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ledger entries as CSV to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := cost.Open(costLedgerPath, cost.DefaultPricing())
		if err != nil {
			return err
		}
		return ledger.ExportCSV(os.Stdout)
	},
}

var costResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard all ledger entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := cost.Open(costLedgerPath, cost.DefaultPricing())
		if err != nil {
			return err
		}
		if err := ledger.Reset(); err != nil {
			return err
		}
		fmt.Println("Ledger reset")
		return nil
	},
}

func init() {
	costCmd.PersistentFlags().StringVar(&costLedgerPath, "ledger", ".triage/cost_ledger.json", "cost ledger document path")
	costCmd.AddCommand(costReportCmd, costExportCmd, costResetCmd)
	rootCmd.AddCommand(costCmd)
}
