package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igfollowers/pkg/checkpoint"
	"igfollowers/pkg/models"
	"igfollowers/pkg/report"
	"igfollowers/pkg/ui"
)

var (
	outputPath     string
	includePending bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export results to an Excel spreadsheet",
	Long: `Export resolved followers to an Excel workbook, sorted by follower
count. By default only completed lookups are included; --include-pending
adds every follower regardless of lookup state.`,
	Example: `  igfollowers export --output followers.xlsx
  igfollowers export --output everyone.xlsx --include-pending`,
	Run: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "followers.xlsx", "output Excel file path")
	exportCmd.Flags().BoolVar(&includePending, "include-pending", false, "include followers whose lookup hasn't completed yet")
}

func runExport(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		ui.PrintError("Failed to resolve database path", err.Error())
		os.Exit(1)
	}

	if _, err := os.Stat(dbPath); err != nil {
		ui.PrintWarning("No checkpoint database found. Run 'parse' first.")
		return
	}

	db, err := checkpoint.Open(dbPath)
	if err != nil {
		ui.PrintError("Failed to open checkpoint database", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	summary, err := db.Summary()
	if err != nil {
		ui.PrintError("Failed to read database stats", err.Error())
		os.Exit(1)
	}
	fmt.Printf("Exporting: %d completed lookups out of %d total\n", summary.Success, summary.Total)

	var records []models.Follower
	if includePending {
		records, err = db.All()
	} else {
		records, err = db.AllResolved()
	}
	if err != nil {
		ui.PrintError("Failed to read followers", err.Error())
		os.Exit(1)
	}

	if len(records) == 0 {
		ui.PrintWarning("Nothing to export yet. Run 'lookup' first.")
		return
	}

	if err := report.WriteWorkbook(records, outputPath); err != nil {
		ui.PrintError("Failed to write workbook", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Wrote %d followers to %s", len(records), outputPath))
}
