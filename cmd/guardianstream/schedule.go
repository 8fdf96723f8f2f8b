package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/schedule"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the configured schedules until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Schedules) == 0 {
			return errors.New("no schedules configured")
		}
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		s := schedule.New(a.orchestrator)
		for _, sc := range cfg.Schedules {
			if err := s.Add(sc); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return s.Run(ctx) })
		if cfg.Metrics.Enabled {
			g.Go(func() error {
				shutdown := metrics.StartServer(cfg.Metrics.Port, a.registry)
				<-ctx.Done()
				return shutdown(context.Background())
			})
		}
		return g.Wait()
	},
}
