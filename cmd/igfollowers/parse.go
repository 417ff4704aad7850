package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igfollowers/pkg/checkpoint"
	"igfollowers/pkg/dataexport"
	"igfollowers/pkg/ui"
)

var exportDir string

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Import your follower list from an Instagram data export",
	Long: `Parse an extracted Instagram data export and import the follower
usernames into the checkpoint database.

Request your data from Instagram (Settings > Your activity > Download
your information) in JSON format, extract the archive, and point
--export-dir at the extracted directory. Re-running parse is safe:
followers already in the database keep their lookup state.`,
	Example: `  igfollowers parse --export-dir ./instagram-export`,
	Run:     runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&exportDir, "export-dir", "", "path to extracted Instagram data export directory")
	_ = parseCmd.MarkFlagRequired("export-dir")
}

func runParse(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintInfo("Export directory", exportDir)

	followers, err := dataexport.ParseExport(exportDir)
	if err != nil {
		ui.PrintError("Failed to parse export", err.Error())
		os.Exit(1)
	}
	fmt.Printf("  Found %d unique followers in export\n", len(followers))

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		ui.PrintError("Failed to resolve database path", err.Error())
		os.Exit(1)
	}

	db, err := checkpoint.Open(dbPath)
	if err != nil {
		ui.PrintError("Failed to open checkpoint database", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	imported, err := db.Seed(followers)
	if err != nil {
		ui.PrintError("Failed to import followers", err.Error())
		os.Exit(1)
	}
	fmt.Printf("  Imported %d new followers, %d already in database\n", imported, len(followers)-imported)

	summary, err := db.Summary()
	if err != nil {
		ui.PrintError("Failed to read database stats", err.Error())
		os.Exit(1)
	}
	fmt.Printf("  Total in database: %d\n", summary.Total)

	ui.PrintSuccess("Import complete. Run 'igfollowers lookup' to start resolving.")
}
