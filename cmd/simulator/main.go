package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/Guizzs26/attendance_poll_bot/internal/event"
	"github.com/Guizzs26/attendance_poll_bot/internal/logging"
	"github.com/Guizzs26/attendance_poll_bot/internal/model"
	"github.com/Guizzs26/attendance_poll_bot/internal/simulation"
)

type simulatorConfig struct {
	KafkaBrokers []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	KafkaTopic   string        `env:"KAFKA_TOPIC" envDefault:"poll-votes"`
	Categories   []string      `env:"POLL_CATEGORIES" envSeparator:"," envDefault:"Monday,Tuesday,Wednesday,Thursday,Friday"`
	Every        time.Duration `env:"SIMULATOR_EVERY" envDefault:"500ms"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg simulatorConfig
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

	onError := func(err error) {
		logger.Warn("vote event delivery failed", zap.Error(err))
	}
	kp, err := event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, onError)
	if err != nil {
		logger.Fatal("failed to create kafka publisher", zap.Error(err))
	}
	defer kp.Close()

	sim := simulation.New(kp, model.ParseCategories(cfg.Categories), cfg.Every, logger.Named("simulator"))

	mainCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := sim.Run(mainCtx); err != nil {
			logger.Error("error while running simulator", zap.Error(err))
		}
	}()

	logger.Info("simulator is running, press Ctrl+C to exit", zap.String("topic", cfg.KafkaTopic))
	<-signalChan

	logger.Info("shutdown signal received, stopping the simulator")
	cancel()

	logger.Info("simulator terminated")
}
