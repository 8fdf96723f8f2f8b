package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/credentials"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream/fetcher"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream/orchestrator"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream/publisher"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/httpclient"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const maxRedirects = 10

// app is the wiring shared by every trigger.
type app struct {
	orchestrator *orchestrator.Orchestrator
	registry     *prometheus.Registry
	metrics      *metrics.Metrics
	checker      *health.Checker
	closers      []func() error
}

func buildApp(cfg *config.Config) (*app, error) {
	a := &app{
		registry: prometheus.NewRegistry(),
		checker:  health.NewChecker(5 * time.Second),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)

	var (
		rdb *pkgredis.Client
		db  *postgres.Client
	)
	switch cfg.Credentials.Source {
	case config.SourceRedis:
		c, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		rdb = c
		a.closers = append(a.closers, c.Close)
		a.checker.Register("redis", health.PingCheck(c.Ping))
		slog.Info("connected to redis", "addr", cfg.Redis.Addr)
	case config.SourcePostgres:
		c, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		db = c
		a.closers = append(a.closers, c.Close)
		a.checker.Register("postgres", health.PingCheck(c.Ping))
		slog.Info("connected to postgres", "host", cfg.Postgres.Host)
	}

	creds, err := credentials.New(cfg.Credentials, rdb, db)
	if err != nil {
		a.Close()
		return nil, err
	}

	client := httpclient.New(httpclient.Config{
		Timeout:      cfg.Guardian.Timeout,
		MaxRedirects: maxRedirects,
	})

	producer := kafka.NewProducer(cfg.Kafka)
	a.closers = append(a.closers, producer.Close)
	brokers := cfg.Kafka.Brokers
	a.checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
		return kafka.Ping(ctx, brokers)
	}))
	slog.Info("kafka producer initialized", "brokers", brokers)

	a.orchestrator = orchestrator.New(
		creds,
		fetcher.New(cfg.Guardian.BaseURL, client),
		publisher.New(producer),
		orchestrator.WithMetrics(a.metrics),
		orchestrator.WithLogger(slog.Default()),
		orchestrator.WithSpanLogging(cfg.Tracing.Enabled),
	)
	return a, nil
}

// Close releases clients in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
