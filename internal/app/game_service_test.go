package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"movie-trivia/internal/app"
	"movie-trivia/internal/domain"
	"movie-trivia/internal/infra/memory"
)

func TestConcurrentSessionsKeepBothScores(t *testing.T) {
	ctx := context.Background()
	board := memory.NewLeaderboardStore(app.PolicyLatest)
	service := newTestService(board)

	var wg sync.WaitGroup
	for name, correct := range map[string]int{"A": 4, "B": 9} {
		wg.Add(1)
		go func(name string, correct int) {
			defer wg.Done()
			snap, err := service.Start(ctx, "")
			if err != nil {
				t.Errorf("start: %v", err)
				return
			}
			if _, err := service.SetName(ctx, snap.SessionID, name); err != nil {
				t.Errorf("set name: %v", err)
				return
			}
			for i := 0; i < domain.DefaultRoundSize; i++ {
				// option 1 is always the correct one in fixedRounds
				option := 0
				if i < correct {
					option = 1
				}
				if _, _, err := service.Submit(ctx, snap.SessionID, option); err != nil {
					t.Errorf("submit: %v", err)
					return
				}
			}
		}(name, correct)
	}
	wg.Wait()

	lb := service.Leaderboard(ctx, 10)
	if len(lb.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", lb.Entries)
	}
	if lb.Entries[0].PlayerName != "B" || lb.Entries[0].Score != 9 || lb.Entries[1].Score != 4 {
		t.Fatalf("expected B:9 then A:4, got %+v", lb.Entries)
	}
}

func TestServiceRequiresSession(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewLeaderboardStore(app.PolicyLatest))

	if _, err := service.SetName(ctx, "missing", "Ann"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, _, err := service.Submit(ctx, "missing", 0); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, err := service.SubmitValue(ctx, "missing", domain.Text("x")); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session error, got %v", err)
	}

	snap, err := service.Start(ctx, "fixed-id")
	if err != nil || snap.SessionID != "fixed-id" || snap.State != domain.StateAwaitingName {
		t.Fatalf("expected new session, got %+v %v", snap, err)
	}
	service.End(ctx, "fixed-id")
	if _, err := service.Snapshot(ctx, "fixed-id"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ended session to be gone, got %v", err)
	}
}

func TestLeaderboardReadFailureIsEmpty(t *testing.T) {
	service := newTestService(brokenBoard{})
	lb := service.Leaderboard(context.Background(), 0)
	if lb.Entries == nil || len(lb.Entries) != 0 {
		t.Fatalf("expected empty board, got %+v", lb)
	}
}

func TestRankOrdersByScoreThenName(t *testing.T) {
	lb := app.Rank(domain.Scores{"Cid": 5, "Ann": 5, "Bob": 9, "Dee": 1}, 3)
	want := []domain.LeaderboardEntry{
		{Rank: 1, PlayerName: "Bob", Score: 9},
		{Rank: 2, PlayerName: "Ann", Score: 5},
		{Rank: 2, PlayerName: "Cid", Score: 5},
	}
	if len(lb.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), lb.Entries)
	}
	for i := range want {
		if lb.Entries[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], lb.Entries[i])
		}
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := app.ParsePolicy(""); err != nil || p != app.PolicyLatest {
		t.Fatalf("expected default latest, got %q %v", p, err)
	}
	if p, err := app.ParsePolicy("best"); err != nil || p != app.PolicyBest {
		t.Fatalf("expected best, got %q %v", p, err)
	}
	if _, err := app.ParsePolicy("max"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

type fixedSource struct{}

func (fixedSource) Generator(context.Context) (app.RoundBuilder, error) {
	return fixedRounds{}, nil
}

func newTestService(board app.LeaderboardStore) *app.GameService {
	return app.NewGameService(memory.NewSessionStore(), fixedSource{}, board)
}

type brokenBoard struct{ app.LeaderboardStore }

func (brokenBoard) Load(context.Context) (domain.Scores, error) {
	return nil, errors.New("connection refused")
}
