package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gregleo12/spooky-football-engine/internal/domain"
	"github.com/gregleo12/spooky-football-engine/internal/orchestrator"
)

func runRefresh(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.orch == nil {
		return fmt.Errorf("refresh requires the %s provider enabled in providers.yaml", providerName)
	}

	scope := orchestrator.Scope{Trigger: orchestrator.TriggerManual}
	scope.Competitions, _ = cmd.Flags().GetInt64Slice("competitions")
	scope.Season, _ = cmd.Flags().GetString("season")

	names, _ := cmd.Flags().GetStringSlice("parameters")
	for _, name := range names {
		p, err := domain.ParseParameter(name)
		if err != nil {
			return err
		}
		scope.Parameters = append(scope.Parameters, p)
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Schedule.GetRunTimeout())
	defer cancel()

	report, err := a.orch.Refresh(ctx, scope)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
