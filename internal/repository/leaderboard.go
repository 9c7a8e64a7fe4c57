package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"chillcoin/internal/model"
)

// LeaderboardCache keeps the rendered top-N in Redis for a short TTL so a
// busy /leaderboard command doesn't hammer the sort query. Postgres stays
// authoritative; any Redis trouble degrades to a cache miss.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *LeaderboardCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardCache{client: client, ttl: ttl, logger: logger}
}

func leaderboardKey(n int) string {
	return fmt.Sprintf("leaderboard:top:%d", n)
}

func (c *LeaderboardCache) Get(ctx context.Context, n int) ([]model.LeaderboardEntry, bool) {
	data, err := c.client.Get(ctx, leaderboardKey(n)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("leaderboard cache read failed", "error", err)
		return nil, false
	}
	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("leaderboard cache entry corrupt, ignoring", "error", err)
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) Set(ctx context.Context, n int, entries []model.LeaderboardEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		c.logger.Warn("leaderboard cache marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, leaderboardKey(n), data, c.ttl).Err(); err != nil {
		c.logger.Warn("leaderboard cache write failed", "error", err)
	}
}
