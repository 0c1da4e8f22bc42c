package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"tamv/internal/gamification"

	redis "github.com/redis/go-redis/v9"
)

const leaderboardPrefix = "leaderboard:v1:"

// Leaderboard caches ranked leaderboard pages in Redis. A nil *Leaderboard
// or a nil client is a cache that always misses.
type Leaderboard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLeaderboard(rdb *redis.Client, ttl time.Duration) *Leaderboard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Leaderboard{rdb: rdb, ttl: ttl}
}

func leaderboardKey(limit int) string {
	return leaderboardPrefix + strconv.Itoa(limit)
}

// Get returns the cached page for limit. Redis errors count as a miss.
func (l *Leaderboard) Get(ctx context.Context, limit int) ([]gamification.Entry, bool) {
	if l == nil || l.rdb == nil {
		return nil, false
	}
	raw, err := l.rdb.Get(ctx, leaderboardKey(limit)).Bytes()
	if err != nil {
		return nil, false
	}
	var entries []gamification.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

// Set stores a page until the ttl runs out or Invalidate is called.
func (l *Leaderboard) Set(ctx context.Context, limit int, entries []gamification.Entry) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return l.rdb.Set(ctx, leaderboardKey(limit), raw, l.ttl).Err()
}

// Invalidate drops every cached page. Called after reputation changes.
func (l *Leaderboard) Invalidate(ctx context.Context) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	iter := l.rdb.Scan(ctx, 0, leaderboardPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return l.rdb.Del(ctx, keys...).Err()
}
