package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Guizzs26/attendance_poll_bot/internal/event"
	"github.com/Guizzs26/attendance_poll_bot/internal/logging"
	"github.com/Guizzs26/attendance_poll_bot/internal/metrics"
	"github.com/Guizzs26/attendance_poll_bot/internal/model"
	"github.com/Guizzs26/attendance_poll_bot/internal/processing"
	"github.com/Guizzs26/attendance_poll_bot/internal/tally"
)

type replayConfig struct {
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"poll-votes"`
	GroupID      string   `env:"KAFKA_GROUP_ID" envDefault:"poll-replay-group"`
	Categories   []string `env:"POLL_CATEGORIES" envSeparator:"," envDefault:"Monday,Tuesday,Wednesday,Thursday,Friday"`
	LogLevel     string   `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg replayConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting replay",
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.GroupID),
	)

	consumer, err := event.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.GroupID)
	if err != nil {
		logger.Fatal("error creating kafka consumer", zap.Error(err))
	}
	defer consumer.Close()

	m := metrics.NewBotMetrics(prometheus.NewRegistry(), "pollbot", "replay")
	votes := tally.NewStore(model.ParseCategories(cfg.Categories))
	processor := processing.NewVoteProcessor(consumer, votes, m, logger.Named("processor"))

	mainCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := processor.Run(mainCtx); err != nil {
			logger.Error("error during processor execution", zap.Error(err))
		}
	}()

	select {
	case <-signalChan:
		logger.Info("shutdown signal received, stopping the replay")
		cancel()
		<-done
	case <-done:
	}

	logger.Info("replay terminated")
}
