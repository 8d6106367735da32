package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runSeed(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := a.integration.Migrate(ctx); err != nil {
		return err
	}
	log.Info().Msg("Schema applied and competitions seeded")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(a.integration.Statistics(ctx))
}
