package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "spooky"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Football team strength scoring and odds engine",
		Version: version,
		Long: `Spooky scores football teams across ten weighted parameters, keeps the
scores fresh from the fixture provider, and prices matchups into betting
odds. Run 'spooky serve' for the API, or use the subcommands directly
against the configured database.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			parsed, err := zerolog.ParseLevel(level)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", level, err)
			}
			zerolog.SetGlobalLevel(parsed)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "config", "Directory holding the YAML configuration files")
	rootCmd.PersistentFlags().String("artifacts", "artifacts", "Directory for run archives and other outputs")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace|debug|info|warn|error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server with the refresh scheduler",
		Long: `Starts the JSON API, the websocket refresh feed, the Prometheus metrics
endpoint and the cron refresh scheduler in one process. Shuts down
cleanly on SIGINT or SIGTERM.`,
		RunE: runServe,
	}
	serveCmd.Flags().String("addr", "", "Listen address override (host:port)")
	serveCmd.Flags().Bool("migrate", true, "Apply the schema and seed competitions at startup")
	serveCmd.Flags().Bool("scheduler", true, "Run the cron refresh scheduler")

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle and print the report",
		Long: `Syncs teams and fixtures from the provider, collects parameter values
and recomputes strength scores for the configured competition set, then
prints the run report as JSON.`,
		RunE: runRefresh,
	}
	refreshCmd.Flags().Int64Slice("competitions", nil, "Competition ids to refresh (default: configured set)")
	refreshCmd.Flags().StringSlice("parameters", nil, "Parameters to collect (default: all)")
	refreshCmd.Flags().String("season", "", "Season override, e.g. 2024")

	oddsCmd := &cobra.Command{
		Use:   "odds HOME AWAY",
		Short: "Price a matchup from stored strengths",
		Args:  cobra.ExactArgs(2),
		RunE:  runOdds,
	}
	oddsCmd.Flags().Bool("neutral", false, "Price for a neutral venue (no home boost)")

	rankCmd := &cobra.Command{
		Use:   "rank",
		Short: "Print the strength ranking",
		RunE:  runRank,
	}
	rankCmd.Flags().String("scope", "overall", "Ranking scope (overall|local_league|european)")
	rankCmd.Flags().Int64("competition", 0, "Restrict to one competition id")
	rankCmd.Flags().Int("top", 0, "Show only the first N rows")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Apply the database schema and seed the competition set",
		RunE:  runSeed,
	}

	coverageCmd := &cobra.Command{
		Use:   "coverage",
		Short: "Show parameter coverage per competition",
		RunE:  runCoverage,
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(oddsCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(coverageCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
