package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func runOdds(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	neutral, _ := cmd.Flags().GetBool("neutral")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	body, err := a.service.Odds(ctx, args[0], args[1], neutral)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(os.Stdout)
	return err
}
