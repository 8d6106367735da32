package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	ihttp "github.com/gregleo12/spooky-football-engine/internal/interfaces/http"
)

func runRank(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	scope, _ := cmd.Flags().GetString("scope")
	top, _ := cmd.Flags().GetInt("top")

	var competitionID *int64
	if id, _ := cmd.Flags().GetInt64("competition"); id > 0 {
		competitionID = &id
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := a.service.Ranking(ctx, scope, competitionID)
	if err != nil {
		return err
	}

	var resp ihttp.RankingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return err
	}

	entries := resp.Entries
	if top > 0 && len(entries) > top {
		entries = entries[:top]
	}

	fmt.Printf("Scope %s, season %s, %d teams\n\n", resp.Scope, resp.Season, len(resp.Entries))
	fmt.Printf("%5s  %-28s %9s %7s %6s\n", "RANK", "TEAM", "STRENGTH", "PCT", "CONF")
	for _, e := range entries {
		strength, pct := "-", "-"
		if e.Strength != nil {
			strength = fmt.Sprintf("%.3f", *e.Strength)
		}
		if e.Percent != nil {
			pct = fmt.Sprintf("%.1f", *e.Percent)
		}
		fmt.Printf("%5d  %-28s %9s %7s %6.2f\n", e.Rank, e.Team, strength, pct, e.Confidence)
	}
	return nil
}
