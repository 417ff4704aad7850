package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igfollowers/pkg/auth"
	"igfollowers/pkg/checkpoint"
	"igfollowers/pkg/config"
	errs "igfollowers/pkg/errors"
	"igfollowers/pkg/graphapi"
	"igfollowers/pkg/instagram"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/lookup"
	"igfollowers/pkg/ratelimit"
	"igfollowers/pkg/report"
	"igfollowers/pkg/ui"
)

var (
	lookupMode  string
	accountName string
	maxDuration time.Duration
)

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve follower counts for imported followers",
	Long: `Resolve pending followers to their follower counts and profile
metadata.

Two sources are available:
  graph-api  Official Instagram Graph API business discovery. Fast and
             safe, but only resolves business/creator accounts. Requires
             GRAPH_API_TOKEN and GRAPH_API_USER_ID.
  scraper    Web session lookups. Resolves personal accounts too, but is
             deliberately slow; safety rate limits keep traffic far below
             automation thresholds. Requires a stored session
             ('igfollowers auth login').
  auto       Both in sequence: graph-api first, then the scraper for
             whatever is left.

Every result is committed before the next lookup starts. Press Ctrl+C
at any time; the run stops cleanly and resumes where it left off.`,
	Example: `  # Both sources in sequence
  igfollowers lookup

  # Official API only
  igfollowers lookup --mode graph-api

  # Stop after two hours, resume tomorrow
  igfollowers lookup --mode scraper --max-duration 2h`,
	Run: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVar(&lookupMode, "mode", "auto", "lookup mode: graph-api, scraper, or auto")
	lookupCmd.Flags().StringVarP(&accountName, "account", "a", "", "use specific stored account for the scraper")
	lookupCmd.Flags().DurationVar(&maxDuration, "max-duration", 0, "stop the run after this long (0 = no limit)")
}

func runLookup(cmd *cobra.Command, args []string) {
	if lookupMode != "graph-api" && lookupMode != "scraper" && lookupMode != "auto" {
		ui.PrintError("Invalid mode", lookupMode)
		os.Exit(1)
	}

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
	if summary.Total == 0 {
		ui.PrintWarning("No followers in database. Run 'parse' first.")
		return
	}
	if summary.Remaining() == 0 {
		ui.PrintSuccess("All followers already looked up!")
		return
	}

	fmt.Printf("Starting lookup: %d followers pending out of %d total\n",
		summary.Remaining(), summary.Total)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := lookup.RunOptions{
		BatchSize:      cfg.Lookup.BatchSize,
		MaxRetries:     cfg.Lookup.MaxRetries,
		ResolveTimeout: cfg.Lookup.ResolveTimeout,
		MaxDuration:    cfg.Lookup.MaxDuration,
	}
	if maxDuration > 0 {
		opts.MaxDuration = maxDuration
	}

	if lookupMode == "graph-api" || lookupMode == "auto" {
		switch {
		case cfg.GraphAPI.AccessToken != "" && cfg.GraphAPI.UserID != "":
			fmt.Println("\n--- Phase 1: Graph API lookups ---")
			if !runGraphPhase(ctx, cfg, db, opts) {
				printFinalSummary(db)
				os.Exit(1)
			}
		case lookupMode == "graph-api":
			ui.PrintError("Graph API credentials missing", "set GRAPH_API_TOKEN and GRAPH_API_USER_ID")
			os.Exit(1)
		default:
			fmt.Println("  Skipping Graph API (no credentials configured)")
		}
	}

	if (lookupMode == "scraper" || lookupMode == "auto") && ctx.Err() == nil {
		summary, err = db.Summary()
		if err != nil {
			ui.PrintError("Failed to read database stats", err.Error())
			os.Exit(1)
		}
		if summary.Remaining() == 0 {
			ui.PrintSuccess("\nAll followers already looked up!")
			return
		}

		fmt.Printf("\n--- Phase 2: Scraper lookups (%d remaining) ---\n", summary.Remaining())
		fmt.Println("  This will be slow by design (safety rate limits).")
		fmt.Println("  Press Ctrl+C to stop; progress is saved automatically.")

		if !runScraperPhase(ctx, cfg, db, opts) {
			printFinalSummary(db)
			os.Exit(1)
		}
	}

	printFinalSummary(db)
}

// runGraphPhase runs the official source. Returns false when the run ended
// on an error that should fail the command.
func runGraphPhase(ctx context.Context, cfg *config.Config, db *checkpoint.DB, opts lookup.RunOptions) bool {
	limiter, err := ratelimit.NewWithStore(graphapi.SourceName, ratelimit.Config{
		MinDelay:  cfg.GraphAPI.MinDelay,
		MaxDelay:  cfg.GraphAPI.MaxDelay,
		HourlyCap: cfg.GraphAPI.HourlyCap,
		Cooldown:  cfg.RateLimit.RateLimitCooldown,
	}, db)
	if err != nil {
		ui.PrintError("Failed to restore rate windows", err.Error())
		return false
	}

	src := graphapi.NewSource(cfg.GraphAPI.AccessToken, cfg.GraphAPI.UserID, opts.ResolveTimeout, logger.GetLogger())
	return runPhase(ctx, db, limiter, src, opts)
}

// runScraperPhase runs the web-session source. Returns false when the run
// ended on an error that should fail the command.
func runScraperPhase(ctx context.Context, cfg *config.Config, db *checkpoint.DB, opts lookup.RunOptions) bool {
	session, err := resolveSession(cfg)
	if err != nil {
		ui.PrintError("No scraping session available", err.Error())
		fmt.Println("  Run 'igfollowers auth login' to store one.")
		return false
	}

	limiter, err := ratelimit.NewWithStore(instagram.SourceName, ratelimit.Config{
		MinDelay:          cfg.RateLimit.MinDelay,
		MaxDelay:          cfg.RateLimit.MaxDelay,
		HourlyCap:         cfg.RateLimit.HourlyCap,
		DailyCap:          cfg.RateLimit.DailyCap,
		SessionCap:        cfg.RateLimit.SessionCap,
		SessionRest:       cfg.RateLimit.SessionRest,
		Cooldown:          cfg.RateLimit.RateLimitCooldown,
		CooldownCeiling:   cfg.RateLimit.CooldownCeiling,
		LongPauseMin:      cfg.RateLimit.LongPauseMin,
		LongPauseMax:      cfg.RateLimit.LongPauseMax,
		LongPauseEveryMin: cfg.RateLimit.LongPauseEveryMin,
		LongPauseEveryMax: cfg.RateLimit.LongPauseEveryMax,
	}, db)
	if err != nil {
		ui.PrintError("Failed to restore rate windows", err.Error())
		return false
	}

	src := instagram.NewSource(session, opts.ResolveTimeout, logger.GetLogger())
	return runPhase(ctx, db, limiter, src, opts)
}

func runPhase(ctx context.Context, db *checkpoint.DB, limiter *ratelimit.Limiter, src lookup.Source, opts lookup.RunOptions) bool {
	summary, err := db.Summary()
	if err != nil {
		ui.PrintError("Failed to read database stats", err.Error())
		return false
	}

	printer := ui.NewProgressPrinter(summary.Total, summary.Total-summary.Remaining())

	coord := lookup.NewCoordinator(db, limiter)
	coord.SetReporter(printer.Report)

	runSummary, err := coord.Run(ctx, src, opts)
	if runSummary != nil {
		ui.PrintRunSummary(runSummary)
	}
	if err != nil {
		var abort *errs.AbortError
		if errors.As(err, &abort) {
			ui.PrintError("Run aborted", abort.Error())
		} else {
			ui.PrintError("Run failed", err.Error())
		}
		return false
	}

	return true
}

// resolveSession picks the scraping session: explicit config first, then
// the stored credential chain.
func resolveSession(cfg *config.Config) (instagram.Session, error) {
	if cfg.Instagram.SessionID != "" && cfg.Instagram.CSRFToken != "" {
		return instagram.Session{
			SessionID: cfg.Instagram.SessionID,
			CSRFToken: cfg.Instagram.CSRFToken,
			UserAgent: cfg.Instagram.UserAgent,
		}, nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return instagram.Session{}, err
	}

	var account *auth.Account
	if accountName != "" {
		account, err = manager.Retrieve(accountName)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		return instagram.Session{}, err
	}

	session := instagram.Session{
		SessionID: account.SessionID,
		CSRFToken: account.CSRFToken,
		UserAgent: account.UserAgent,
	}
	if session.UserAgent == "" {
		session.UserAgent = cfg.Instagram.UserAgent
	}
	return session, nil
}

func printFinalSummary(db *checkpoint.DB) {
	summary, err := db.Summary()
	if err != nil {
		return
	}
	fmt.Println()
	fmt.Print(report.FormatSummary(summary))
}
