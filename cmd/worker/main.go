package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"propcheck/internal/deficiency/derive"
	"propcheck/internal/deficiency/lifecycle"
	deficiencyMetrics "propcheck/internal/deficiency/metrics"
	"propcheck/internal/deficiency/proxy"
	"propcheck/internal/deficiency/repository"
	"propcheck/internal/deficiency/store/analytic"
	"propcheck/internal/deficiency/store/operational"
	"propcheck/internal/deficiency/sweep"
	inspectionStore "propcheck/internal/inspection/store"
	"propcheck/internal/integrations/ticketboard"
	"propcheck/internal/platform/config"
	"propcheck/internal/platform/httpserver"
	"propcheck/internal/platform/kafka"
	"propcheck/internal/platform/logger"
	"propcheck/internal/platform/metrics"
	"propcheck/internal/platform/postgres"
	"propcheck/internal/platform/redis"
	"propcheck/internal/property/metadata"
	propertyStore "propcheck/internal/property/store"
	"propcheck/internal/status"
	"propcheck/internal/trigger"
)

// main wires the stores, the engine and the background loops. Business logic
// lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	rules := config.DefaultRules()
	if cfg.RulesPath != "" {
		loaded, err := config.LoadRules(cfg.RulesPath)
		if err != nil {
			return err
		}
		rules = loaded
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	defer producer.Close()
	if err := kafka.EnsureTopics(ctx, producer, cfg.Kafka); err != nil {
		return err
	}
	consumerClient, err := kafka.NewConsumer(ctx, cfg.Kafka)
	if err != nil {
		return err
	}
	defer consumerClient.Close()

	platformMetrics := metrics.New()
	diMetrics := deficiencyMetrics.New()

	repoOpts := []repository.Option{repository.WithLogger(log)}
	if cfg.TicketBoard.BaseURL != "" {
		client, err := ticketboard.NewClient(cfg.TicketBoard)
		if err != nil {
			return err
		}
		board, err := ticketboard.New(client, ticketboard.NewRedisCardStore(redisClient.Client),
			ticketboard.WithLogger(log),
		)
		if err != nil {
			return err
		}
		repoOpts = append(repoOpts, repository.WithTicketBoard(board))
	} else {
		log.Info("ticket board integration disabled")
	}
	repo, err := repository.New(
		operational.NewRedis(redisClient.Client),
		analytic.NewPostgres(db),
		repoOpts...,
	)
	if err != nil {
		return err
	}

	engine, err := derive.New(rules)
	if err != nil {
		return err
	}
	syncer, err := proxy.New(rules)
	if err != nil {
		return err
	}
	aggregator, err := metadata.New(
		inspectionStore.NewPostgres(db),
		repo,
		propertyStore.NewRedis(redisClient.Client),
		engine,
		rules,
		metadata.WithLogger(log),
		metadata.WithMetrics(platformMetrics),
	)
	if err != nil {
		return err
	}
	publisher, err := status.NewPublisher(producer, cfg.Kafka.StatusTopic, status.WithMetrics(platformMetrics))
	if err != nil {
		return err
	}

	controller, err := lifecycle.New(repo, engine, syncer,
		lifecycle.WithLogger(log),
		lifecycle.WithMetrics(diMetrics),
		lifecycle.WithPublisher(publisher),
		lifecycle.WithAggregator(aggregator),
	)
	if err != nil {
		return err
	}
	sweeper, err := sweep.New(repo, rules,
		sweep.WithLogger(log),
		sweep.WithMetrics(diMetrics),
		sweep.WithPublisher(publisher),
		sweep.WithAggregator(aggregator),
		sweep.WithConcurrency(cfg.Sweep.Concurrency),
	)
	if err != nil {
		return err
	}
	triggerOpts := []trigger.Option{
		trigger.WithLogger(log),
		trigger.WithMetrics(platformMetrics),
	}
	if cfg.Kafka.DeadLetterTopic != "" {
		triggerOpts = append(triggerOpts, trigger.WithDeadLetter(producer))
	}
	consumer, err := trigger.New(consumerClient, controller, cfg.Kafka, triggerOpts...)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.HTTP.Addr, httpserver.NewOpsRouter(map[string]httpserver.HealthCheck{
		"redis":    redisClient.Health,
		"postgres": db.PingContext,
	}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("ops server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		err := consumer.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		runSweeps(gctx, sweeper, cfg.Sweep.Interval, log)
		return nil
	})
	return g.Wait()
}

// runSweeps sweeps once at startup and then on every tick until ctx ends.
func runSweeps(ctx context.Context, sweeper *sweep.Sweeper, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		log.Info("overdue sweep disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			log.ErrorContext(ctx, "overdue sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
