package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igfollowers/pkg/checkpoint"
	"igfollowers/pkg/report"
	"igfollowers/pkg/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show lookup progress",
	Long:  `Show how many followers have been resolved, what remains, and a rough time estimate.`,
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	fmt.Print(report.FormatSummary(summary))
}
