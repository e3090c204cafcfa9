package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"movie-trivia/internal/app"
	"movie-trivia/internal/domain"
)

// LeaderboardStore persists scores as a flat JSON object {"name": score}.
//
// Every Commit re-reads the file, updates one key and atomically replaces
// the file while holding both a process mutex and an advisory lock on
// <path>.lock, so concurrent sessions and other processes sharing the file
// never drop each other's updates.
type LeaderboardStore struct {
	path   string
	policy app.Policy
	mu     sync.Mutex
}

func NewLeaderboardStore(path string, policy app.Policy) *LeaderboardStore {
	return &LeaderboardStore{path: path, policy: policy}
}

// Load returns the persisted scores. A missing or corrupt file is an empty board.
func (s *LeaderboardStore) Load(_ context.Context) (domain.Scores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.read()
}

func (s *LeaderboardStore) Save(_ context.Context, scores domain.Scores) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()
	return s.write(scores)
}

func (s *LeaderboardStore) Commit(_ context.Context, playerName string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	scores, err := s.read()
	if err != nil {
		return err
	}
	existing, found := scores[playerName]
	scores[playerName] = s.policy.Merge(existing, found, score)
	return s.write(scores)
}

func (s *LeaderboardStore) Reset(ctx context.Context) error {
	return s.Save(ctx, domain.Scores{})
}

func (s *LeaderboardStore) read() (domain.Scores, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Scores{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	scores := domain.Scores{}
	if err := json.Unmarshal(data, &scores); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("corrupt leaderboard file, starting empty")
		return domain.Scores{}, nil
	}
	if scores == nil {
		// a literal null decodes to a nil map
		log.Warn().Str("path", s.path).Msg("empty leaderboard document, starting empty")
		return domain.Scores{}, nil
	}
	return scores, nil
}

func (s *LeaderboardStore) write(scores domain.Scores) error {
	if scores == nil {
		scores = domain.Scores{}
	}
	data, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create leaderboard dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp leaderboard: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write leaderboard: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync leaderboard: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close leaderboard: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace leaderboard: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create leaderboard dir: %w", err)
	}
	f, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open leaderboard lock: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock leaderboard: %w", err)
	}
	return func() {
		_ = unlockFile(f)
		f.Close()
	}, nil
}
