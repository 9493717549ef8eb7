package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Guizzs26/attendance_poll_bot/internal/bot"
	"github.com/Guizzs26/attendance_poll_bot/internal/config"
	"github.com/Guizzs26/attendance_poll_bot/internal/cycle"
	"github.com/Guizzs26/attendance_poll_bot/internal/event"
	"github.com/Guizzs26/attendance_poll_bot/internal/gateway"
	"github.com/Guizzs26/attendance_poll_bot/internal/logging"
	"github.com/Guizzs26/attendance_poll_bot/internal/metrics"
	"github.com/Guizzs26/attendance_poll_bot/internal/pubsub"
	"github.com/Guizzs26/attendance_poll_bot/internal/render"
	"github.com/Guizzs26/attendance_poll_bot/internal/server"
	"github.com/Guizzs26/attendance_poll_bot/internal/store"
	"github.com/Guizzs26/attendance_poll_bot/internal/tally"
)

const flushTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("poll bot stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	mainCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	categories := cfg.PollCategories()
	votes := tally.NewStore(categories)
	m := metrics.NewBotMetrics(prometheus.DefaultRegisterer, "pollbot", "")

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	archive, err := newArchive(mainCtx, cfg)
	if err != nil {
		return err
	}
	defer archive.Close()

	slack := gateway.NewSlack(cfg.SlackBotToken, cfg.SlackAppToken, logger.Named("slack"))
	botUserID, err := slack.BotUserID(mainCtx)
	if err != nil {
		return err
	}

	hub := pubsub.NewHub(votes, m, logger.Named("hub"))
	go hub.Run(mainCtx)

	handler := bot.NewHandler(bot.Deps{
		Store:       votes,
		Gateway:     slack,
		Publisher:   publisher,
		Broadcaster: hub,
		Metrics:     m,
		Logger:      logger.Named("handler"),
		BotUserID:   botUserID,
		Echo:        cfg.EchoMessages,
	})

	controller := cycle.NewController(cycle.Deps{
		Gateway:     slack,
		Store:       votes,
		Renderer:    render.NewChartRenderer(cfg.ChartPath, categories),
		Archive:     archive,
		Publisher:   publisher,
		Broadcaster: hub,
		Metrics:     m,
		Logger:      logger.Named("cycle"),
		Channel:     cfg.ChannelID,
	})

	admin := server.New(server.Deps{
		Cycle:    controller,
		Tally:    votes,
		Gateway:  slack,
		Archive:  archive,
		Live:     hub,
		Metrics:  promhttp.Handler(),
		Counters: m,
		Logger:   logger.Named("http"),
		Channel:  cfg.ChannelID,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           admin.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 2)

	go func() {
		logger.Info("admin server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("admin server: %w", err)
		}
	}()

	go func() {
		if err := slack.Run(mainCtx, handler); err != nil {
			errc <- err
		}
	}()

	cycleDone := make(chan struct{})
	if cfg.PollInterval > 0 {
		interval := time.Duration(cfg.PollInterval) * time.Second
		logger.Info("recurring poll enabled", zap.Duration("interval", interval))
		go func() {
			defer close(cycleDone)
			if err := controller.Run(mainCtx, interval); err != nil {
				logger.Error("poll cycle stopped", zap.Error(err))
			}
		}()
	} else {
		close(cycleDone)
		logger.Info("recurring poll disabled, waiting for admin triggers")
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-signalChan:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case runErr = <-errc:
	}

	cancel()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), flushTimeout)
	defer flushCancel()
	// An EndCycle in flight writes the same chart file, so let it finish first.
	select {
	case <-cycleDone:
		controller.Flush(flushCtx)
	case <-flushCtx.Done():
		logger.Warn("poll cycle did not stop in time, skipping flush")
	}

	if err := httpServer.Shutdown(flushCtx); err != nil {
		logger.Warn("admin server shutdown", zap.Error(err))
	}

	logger.Info("poll bot terminated")
	return runErr
}

func newPublisher(cfg config.Config, logger *zap.Logger) (event.VotePublisher, error) {
	switch cfg.EventBackend {
	case "kafka":
		onError := func(err error) {
			logger.Warn("vote event delivery failed", zap.Error(err))
		}
		return event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, onError)
	case "amqp":
		return event.NewAmqpPublisher(cfg.AmqpURL, cfg.AmqpQueue)
	default:
		return event.NopPublisher{}, nil
	}
}

func newArchive(ctx context.Context, cfg config.Config) (store.ReportArchive, error) {
	switch cfg.ArchiveBackend {
	case "redis":
		return store.NewRedisArchive(ctx, cfg.RedisURL)
	case "sqlite":
		return store.NewSQLiteArchive(ctx, cfg.SQLitePath)
	default:
		return store.NopArchive{}, nil
	}
}
