package memory

import (
	"context"
	"sync"

	"movie-trivia/internal/app"
	"movie-trivia/internal/domain"
)

// LeaderboardStore keeps scores in process memory. It is the single writer
// for its map, so commits from concurrent sessions never overwrite each other.
type LeaderboardStore struct {
	policy app.Policy

	mu     sync.Mutex
	scores domain.Scores
}

func NewLeaderboardStore(policy app.Policy) *LeaderboardStore {
	return &LeaderboardStore{policy: policy, scores: make(domain.Scores)}
}

func (s *LeaderboardStore) Load(_ context.Context) (domain.Scores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyScores(s.scores), nil
}

func (s *LeaderboardStore) Save(_ context.Context, scores domain.Scores) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = copyScores(scores)
	return nil
}

func (s *LeaderboardStore) Commit(_ context.Context, playerName string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, found := s.scores[playerName]
	s.scores[playerName] = s.policy.Merge(existing, found, score)
	return nil
}

func (s *LeaderboardStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = make(domain.Scores)
	return nil
}

func copyScores(in domain.Scores) domain.Scores {
	out := make(domain.Scores, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
