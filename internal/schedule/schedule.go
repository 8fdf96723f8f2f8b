// Package schedule runs configured invocation events on cron specs.
package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Invoker runs one invocation.
type Invoker interface {
	Invoke(ctx context.Context, event map[string]any) stream.Envelope
}

// Scheduler owns a cron runner. A schedule whose previous run has not
// finished skips its next tick.
type Scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	invoker Invoker
	logger  *slog.Logger
	ctx     context.Context
}

func New(invoker Invoker) *Scheduler {
	l := logger.WithComponent("scheduler")
	adapter := cronLogger{l}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		invoker: invoker,
		logger:  l,
		ctx:     context.Background(),
	}
}

// Add registers sc. The event map is rebuilt for every run.
func (s *Scheduler) Add(sc config.ScheduleConfig) error {
	sched, err := s.parser.Parse(sc.Spec)
	if err != nil {
		return fmt.Errorf("parse cron for schedule %q: %w", sc.Name, err)
	}
	s.cron.Schedule(sched, cron.FuncJob(func() { s.fire(sc) }))
	s.logger.Info("schedule registered", "schedule", sc.Name, "spec", sc.Spec)
	return nil
}

// Len reports the number of registered schedules.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Run starts the runner and blocks until ctx is cancelled, then waits for
// in-flight invocations to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("scheduler started", "schedules", s.Len())
	<-ctx.Done()
	s.logger.Info("scheduler stopping")
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) fire(sc config.ScheduleConfig) {
	env := s.invoker.Invoke(s.ctx, sc.EventMap())
	s.logger.Info("scheduled invocation finished",
		"schedule", sc.Name,
		"status_code", env.StatusCode,
		"body", env.Body,
	)
}

type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
