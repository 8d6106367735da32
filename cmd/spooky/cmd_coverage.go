package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	ihttp "github.com/gregleo12/spooky-football-engine/internal/interfaces/http"
)

func runCoverage(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := a.service.Coverage(ctx)
	if err != nil {
		return err
	}

	var resp ihttp.CoverageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}

	fmt.Printf("Season %s, %d competitions\n", resp.Season, len(resp.Competitions))
	if resp.LastRun != nil {
		fmt.Printf("Last run %s (%s) finished %s\n", resp.LastRun.ID, resp.LastRun.Trigger,
			resp.LastRun.FinishedAt.Format(time.RFC3339))
	}

	for _, comp := range resp.Competitions {
		fmt.Printf("\nCompetition %d: %.1f%% overall", comp.CompetitionID, comp.OverallPct)
		if comp.Oldest != nil && comp.Newest != nil {
			fmt.Printf(", collected %s to %s",
				comp.Oldest.Format(time.RFC3339), comp.Newest.Format(time.RFC3339))
		}
		fmt.Println()

		params := make([]string, 0, len(comp.Parameters))
		for name := range comp.Parameters {
			params = append(params, name)
		}
		sort.Strings(params)

		for _, name := range params {
			pc := comp.Parameters[name]
			fmt.Printf("  %-28s %3d/%-3d %6.1f%%\n", name, pc.Present, pc.Total, pc.Pct)
		}
	}
	return nil
}
