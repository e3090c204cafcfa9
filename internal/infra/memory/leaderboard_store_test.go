package memory

import (
	"context"
	"sync"
	"testing"

	"movie-trivia/internal/app"
	"movie-trivia/internal/domain"
)

func TestLeaderboardRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewLeaderboardStore(app.PolicyLatest)

	in := domain.Scores{"Ann": 5, "Bob": 9}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 || out["Ann"] != 5 || out["Bob"] != 9 {
		t.Fatalf("expected round trip, got %v", out)
	}

	out["Ann"] = 0
	again, _ := store.Load(ctx)
	if again["Ann"] != 5 {
		t.Fatalf("loaded map must be a copy")
	}
}

func TestLeaderboardPolicies(t *testing.T) {
	ctx := context.Background()

	latest := NewLeaderboardStore(app.PolicyLatest)
	_ = latest.Commit(ctx, "Ann", 7)
	_ = latest.Commit(ctx, "Ann", 3)
	if got, _ := latest.Load(ctx); got["Ann"] != 3 {
		t.Fatalf("latest policy: expected 3, got %d", got["Ann"])
	}

	best := NewLeaderboardStore(app.PolicyBest)
	_ = best.Commit(ctx, "Ann", 7)
	_ = best.Commit(ctx, "Ann", 3)
	if got, _ := best.Load(ctx); got["Ann"] != 7 {
		t.Fatalf("best policy: expected 7, got %d", got["Ann"])
	}
}

func TestLeaderboardConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	store := NewLeaderboardStore(app.PolicyLatest)

	var wg sync.WaitGroup
	for name, score := range map[string]int{"A": 4, "B": 9} {
		wg.Add(1)
		go func(name string, score int) {
			defer wg.Done()
			if err := store.Commit(ctx, name, score); err != nil {
				t.Errorf("commit: %v", err)
			}
		}(name, score)
	}
	wg.Wait()

	got, _ := store.Load(ctx)
	if got["A"] != 4 || got["B"] != 9 {
		t.Fatalf("expected both commits, got %v", got)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got, _ := store.Load(ctx); len(got) != 0 {
		t.Fatalf("expected empty board after reset, got %v", got)
	}
}
