package app

import (
	"context"
	"fmt"
	"sort"

	"movie-trivia/internal/domain"
)

// DefaultTopK is the number of leaderboard rows shown by default.
const DefaultTopK = 10

// LeaderboardStore persists player scores. It is shared by every session, so
// Commit must update a single key atomically against the persisted state
// rather than writing back a cached copy.
type LeaderboardStore interface {
	Load(ctx context.Context) (domain.Scores, error)
	Save(ctx context.Context, scores domain.Scores) error
	Commit(ctx context.Context, playerName string, score int) error
	Reset(ctx context.Context) error
}

// Policy decides how a committed score combines with an existing entry.
type Policy string

const (
	// PolicyLatest overwrites the entry with the last completed round.
	PolicyLatest Policy = "latest"
	// PolicyBest keeps the highest score seen for a player.
	PolicyBest Policy = "best"
)

// ParsePolicy maps a config value to a Policy; empty means PolicyLatest.
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(raw) {
	case "", PolicyLatest:
		return PolicyLatest, nil
	case PolicyBest:
		return PolicyBest, nil
	}
	return "", fmt.Errorf("unknown leaderboard policy %q", raw)
}

// Merge returns the value to store given the existing entry (if any).
func (p Policy) Merge(existing int, found bool, score int) int {
	if p == PolicyBest && found && existing > score {
		return existing
	}
	return score
}

// Rank orders scores descending, breaking ties by player name, and returns at
// most k entries. Equal scores share a rank.
func Rank(scores domain.Scores, k int) domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(scores))
	for name, score := range scores {
		entries = append(entries, domain.LeaderboardEntry{PlayerName: name, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].PlayerName < entries[j].PlayerName
	})
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
	if k > 0 && len(entries) > k {
		entries = entries[:k]
	}
	return domain.Leaderboard{Entries: entries}
}
