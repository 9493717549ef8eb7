package pubsub

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Guizzs26/attendance_poll_bot/internal/metrics"
	"github.com/Guizzs26/attendance_poll_bot/internal/model"
	"github.com/Guizzs26/attendance_poll_bot/internal/tally"
)

func readSnapshot(t *testing.T, ctx context.Context, conn *websocket.Conn) tally.Snapshot {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var snap tally.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap
}

func TestHubStreamsSnapshots(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := tally.NewStore(model.DefaultCategories)
	_, err := store.Select("U1", "Monday")
	require.NoError(t, err)

	m := metrics.NewBotMetrics(prometheus.NewRegistry(), "test", "hub")
	hub := NewHub(store, m, zap.NewNop())
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	assert.Equal(t, tally.Snapshot{"Monday": 1}, readSnapshot(t, ctx, conn))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.LiveSubscribers) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = store.Select("U2", "Friday")
	require.NoError(t, err)
	hub.Publish(store.Snapshot())

	assert.Equal(t, tally.Snapshot{"Monday": 1, "Friday": 1}, readSnapshot(t, ctx, conn))
}

func TestHubUnregistersClosedClients(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m := metrics.NewBotMetrics(prometheus.NewRegistry(), "test", "hub")
	hub := NewHub(tally.NewStore(model.DefaultCategories), m, zap.NewNop())
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	_ = readSnapshot(t, ctx, conn)

	conn.Close(websocket.StatusNormalClosure, "bye")

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.LiveSubscribers) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPublishWithoutClientsDoesNotBlock(t *testing.T) {
	hub := NewHub(tally.NewStore(nil), metrics.NewBotMetrics(prometheus.NewRegistry(), "test", "hub"), zap.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBuffer*4; i++ {
			hub.Publish(tally.Snapshot{"Monday": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without a running hub")
	}
}
