package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"movie-trivia/internal/app"
	"movie-trivia/internal/domain"
)

// LeaderboardStore keeps one row per player in the leaderboard table.
// Commits are single-row upserts, so concurrent sessions never clobber
// each other.
type LeaderboardStore struct {
	pool   *pgxpool.Pool
	policy app.Policy
}

func NewLeaderboardStore(pool *pgxpool.Pool, policy app.Policy) *LeaderboardStore {
	return &LeaderboardStore{pool: pool, policy: policy}
}

const upsertLatest = `
	INSERT INTO leaderboard (player_name, score, updated_at) VALUES ($1, $2, now())
	ON CONFLICT (player_name) DO UPDATE SET score = EXCLUDED.score, updated_at = now()`

const upsertBest = `
	INSERT INTO leaderboard (player_name, score, updated_at) VALUES ($1, $2, now())
	ON CONFLICT (player_name) DO UPDATE SET score = GREATEST(leaderboard.score, EXCLUDED.score), updated_at = now()`

func (s *LeaderboardStore) Load(ctx context.Context) (domain.Scores, error) {
	rows, err := s.pool.Query(ctx, `SELECT player_name, score FROM leaderboard`)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	defer rows.Close()

	scores := domain.Scores{}
	for rows.Next() {
		var name string
		var score int
		if err := rows.Scan(&name, &score); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		scores[name] = score
	}
	return scores, rows.Err()
}

func (s *LeaderboardStore) Save(ctx context.Context, scores domain.Scores) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM leaderboard`); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}
	batch := &pgx.Batch{}
	for name, score := range scores {
		batch.Queue(upsertLatest, name, score)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("save leaderboard: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *LeaderboardStore) Commit(ctx context.Context, playerName string, score int) error {
	query := upsertLatest
	if s.policy == app.PolicyBest {
		query = upsertBest
	}
	if _, err := s.pool.Exec(ctx, query, playerName, score); err != nil {
		return fmt.Errorf("commit score: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM leaderboard`); err != nil {
		return fmt.Errorf("reset leaderboard: %w", err)
	}
	return nil
}
