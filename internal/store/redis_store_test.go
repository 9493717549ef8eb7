package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guizzs26/attendance_poll_bot/internal/model"
)

// unreachableArchive points at a port nothing listens on.
func unreachableArchive(t *testing.T) *RedisArchive {
	t.Helper()
	c := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { c.Close() })
	return &RedisArchive{client: c}
}

func TestParseCounts(t *testing.T) {
	counts, err := parseCounts(map[string]string{"Monday": "3", "Friday": "0"})
	require.NoError(t, err)
	assert.Equal(t, map[model.Category]int{"Monday": 3, "Friday": 0}, counts)

	counts, err = parseCounts(map[string]string{})
	require.NoError(t, err)
	assert.Empty(t, counts)

	_, err = parseCounts(map[string]string{"Monday": "three"})
	assert.ErrorContains(t, err, "Monday")
}

func TestRedisRecentReportsNonPositiveLimit(t *testing.T) {
	a := unreachableArchive(t)

	for _, limit := range []int{0, -1} {
		reports, err := a.RecentReports(context.Background(), limit)
		assert.NoError(t, err)
		assert.Nil(t, reports)
	}
}

func TestRedisErrorsAreWrapped(t *testing.T) {
	a := unreachableArchive(t)
	ctx := context.Background()

	_, err := a.RecentReports(ctx, 5)
	assert.ErrorContains(t, err, "error listing reports from redis")

	err = a.SaveReport(ctx, model.Report{ID: "r1", ClosedAt: time.Now(), Counts: map[model.Category]int{"Monday": 1}})
	assert.ErrorContains(t, err, "error executing redis pipeline")
}

func TestNewRedisArchiveErrors(t *testing.T) {
	_, err := NewRedisArchive(context.Background(), "not a url")
	assert.ErrorContains(t, err, "error parsing redis URL")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = NewRedisArchive(ctx, "redis://127.0.0.1:1/0")
	assert.ErrorContains(t, err, "error connecting to redis")
}

func TestReportKey(t *testing.T) {
	assert.Equal(t, "poll:report:abc:counts", reportKey("abc"))
}
