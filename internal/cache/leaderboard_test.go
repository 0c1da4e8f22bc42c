package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"tamv/internal/gamification"

	redis "github.com/redis/go-redis/v9"
)

func TestNilLeaderboardAlwaysMisses(t *testing.T) {
	var l *Leaderboard
	if _, ok := l.Get(context.Background(), 10); ok {
		t.Fatalf("nil cache should miss")
	}
	if err := l.Set(context.Background(), 10, nil); err != nil {
		t.Fatalf("set on nil cache: %v", err)
	}
	if err := NewLeaderboard(nil, 0).Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate without client: %v", err)
	}
}

// Runs only if REDIS_ADDR env is set.
func TestLeaderboardRoundTripIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
	defer rdb.Close()

	ctx := context.Background()
	l := NewLeaderboard(rdb, time.Minute)
	entries := gamification.Rank([]gamification.Entry{
		{UserID: "a", Score: 10},
		{UserID: "b", Score: 30},
	})
	if err := l.Set(ctx, 2, entries); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok := l.Get(ctx, 2)
	if !ok || len(got) != 2 || got[0].UserID != "b" || got[0].Rank != 1 {
		t.Fatalf("unexpected cached page: %+v (hit=%v)", got, ok)
	}
	if err := l.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok := l.Get(ctx, 2); ok {
		t.Fatalf("expected miss after invalidate")
	}
}
