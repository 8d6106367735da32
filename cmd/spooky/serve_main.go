package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	ihttp "github.com/gregleo12/spooky-football-engine/internal/interfaces/http"
	"github.com/gregleo12/spooky-football-engine/internal/orchestrator"
)

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := a.integration.Migrate(ctx)
		cancel()
		if err != nil {
			return err
		}
	}

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.cfg.Server.Addr = addr
	}

	var scheduler *orchestrator.Scheduler
	if withScheduler, _ := cmd.Flags().GetBool("scheduler"); withScheduler && a.orch != nil {
		scheduler, err = orchestrator.NewScheduler(a.orch, a.cfg.Schedule)
		if err != nil {
			return err
		}
	}

	var runner ihttp.RunnerState
	if a.orch != nil {
		runner = a.orch
	}
	health := ihttp.NewHealthChecker(ihttp.HealthDeps{
		DB:           a.integration.Manager().Health(),
		Cache:        a.cache,
		CacheBackend: a.cfg.Storage.Cache.Backend,
		Guards:       a.guards,
		Runner:       runner,
		Scheduler:    scheduler,
		Runs:         a.repos.Runs,
		Metrics:      a.metrics,
	})

	server, err := ihttp.NewServer(a.cfg.Server, ihttp.Deps{
		Service: a.service,
		Health:  health,
		Hub:     a.hub,
		Metrics: a.metrics,
	})
	if err != nil {
		return err
	}

	go a.hub.Run()
	if scheduler != nil {
		scheduler.Start()
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-serveErr:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.GetShutdownGrace())
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	if scheduler != nil {
		if err := scheduler.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("Scheduler stop incomplete")
		}
	}
	a.hub.Stop()
	return nil
}
