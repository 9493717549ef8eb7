package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Guizzs26/attendance_poll_bot/internal/model"
	"github.com/redis/go-redis/v9"
)

const reportIndexKey = "poll:reports"

type RedisArchive struct {
	client *redis.Client
}

func NewRedisArchive(ctx context.Context, addr string) (*RedisArchive, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %w", err)
	}

	c := redis.NewClient(opts)

	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	return &RedisArchive{client: c}, nil
}

func reportKey(id string) string {
	return fmt.Sprintf("poll:report:%s:counts", id)
}

// SaveReport stores the counts as a hash and indexes the report by close time.
func (ra *RedisArchive) SaveReport(ctx context.Context, report model.Report) error {
	counts := make(map[string]interface{}, len(report.Counts))
	for c, n := range report.Counts {
		counts[string(c)] = n
	}

	pipe := ra.client.TxPipeline()
	if len(counts) > 0 {
		pipe.HSet(ctx, reportKey(report.ID), counts)
	}
	pipe.ZAdd(ctx, reportIndexKey, redis.Z{
		Score:  float64(report.ClosedAt.UnixMilli()),
		Member: report.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("error executing redis pipeline: %w", err)
	}
	return nil
}

func (ra *RedisArchive) RecentReports(ctx context.Context, limit int) ([]model.Report, error) {
	if limit <= 0 {
		return nil, nil
	}

	entries, err := ra.client.ZRevRangeWithScores(ctx, reportIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("error listing reports from redis: %w", err)
	}

	reports := make([]model.Report, 0, len(entries))
	for _, e := range entries {
		id, ok := e.Member.(string)
		if !ok {
			continue
		}

		raw, err := ra.client.HGetAll(ctx, reportKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("error getting report %s from redis: %w", id, err)
		}

		counts, err := parseCounts(raw)
		if err != nil {
			return nil, fmt.Errorf("error reading report %s: %w", id, err)
		}

		reports = append(reports, model.Report{
			ID:       id,
			ClosedAt: time.UnixMilli(int64(e.Score)).UTC(),
			Counts:   counts,
		})
	}

	return reports, nil
}

func parseCounts(raw map[string]string) (map[model.Category]int, error) {
	counts := make(map[model.Category]int, len(raw))
	for c, s := range raw {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("error converting count for %s to int: %w", c, err)
		}
		counts[model.Category(c)] = n
	}
	return counts, nil
}

func (ra *RedisArchive) Close() error {
	if err := ra.client.Close(); err != nil {
		return fmt.Errorf("error closing redis client: %w", err)
	}
	return nil
}
