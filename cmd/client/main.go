package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/Guizzs26/attendance_poll_bot/internal/logging"
	"github.com/Guizzs26/attendance_poll_bot/internal/tally"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws/tally", "Live tally websocket URL")
	flag.Parse()

	logger, err := logging.New("info")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalChan
		logger.Info("shutting client down")
		cancel()
	}()

	conn, _, err := websocket.Dial(ctx, *url, nil)
	if err != nil {
		logger.Fatal("failed to connect", zap.String("url", *url), zap.Error(err))
	}
	defer conn.Close(websocket.StatusNormalClosure, "client exit")

	logger.Info("listening for tally updates", zap.String("url", *url))
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("connection closed")
				return
			}
			logger.Error("read error", zap.Error(err))
			return
		}

		var snap tally.Snapshot
		if err := json.Unmarshal(msg, &snap); err != nil {
			logger.Warn("unexpected message", zap.ByteString("payload", msg), zap.Error(err))
			continue
		}
		logger.Info("updated tally", zap.Any("counts", snap), zap.Int("total", snap.Total()))
	}
}
