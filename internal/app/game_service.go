package app

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"movie-trivia/internal/domain"
)

// SessionRepository abstracts how game sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(sessionID string, create func(sessionID string) *Game) *Game
	Get(sessionID string) (*Game, bool)
	Delete(sessionID string)
}

// RoundSource yields the round builder for the current dataset.
type RoundSource interface {
	Generator(ctx context.Context) (RoundBuilder, error)
}

// GameService contains the trivia use cases invoked by the presentation layer.
type GameService struct {
	sessions  SessionRepository
	rounds    RoundSource
	board     LeaderboardStore
	roundSize int
	retry     func() backoff.BackOff
}

// ServiceOption customizes a GameService.
type ServiceOption func(*GameService)

// WithServiceRoundSize sets the round size of every new game.
func WithServiceRoundSize(n int) ServiceOption {
	return func(s *GameService) { s.roundSize = n }
}

// WithCommitRetry sets the backoff policy used by every new game.
func WithCommitRetry(policy func() backoff.BackOff) ServiceOption {
	return func(s *GameService) { s.retry = policy }
}

func NewGameService(sessions SessionRepository, rounds RoundSource, board LeaderboardStore, opts ...ServiceOption) *GameService {
	s := &GameService{
		sessions:  sessions,
		rounds:    rounds,
		board:     board,
		roundSize: domain.DefaultRoundSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start returns the session for sessionID, creating it when unknown. An empty
// sessionID allocates a new one.
func (s *GameService) Start(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	builder, err := s.rounds.Generator(ctx)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("load dataset: %w", err)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	game := s.sessions.GetOrCreate(sessionID, func(id string) *Game {
		opts := []GameOption{WithRoundSize(s.roundSize)}
		if s.retry != nil {
			opts = append(opts, WithRetry(s.retry))
		}
		log.Info().Str("session", id).Msg("session started")
		return NewGame(id, builder, s.board, opts...)
	})
	return game.Snapshot(), nil
}

// SetName moves the session out of awaitingName.
func (s *GameService) SetName(_ context.Context, sessionID, name string) (domain.SessionSnapshot, error) {
	game, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return game.SetName(name)
}

// Submit answers the current question with the option at index option.
func (s *GameService) Submit(ctx context.Context, sessionID string, option int) (domain.AnswerResult, domain.SessionSnapshot, error) {
	game, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.AnswerResult{}, domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	result, err := game.SubmitOption(ctx, option)
	return result, game.Snapshot(), err
}

// SubmitValue answers the current question with a raw value rather than an
// option index.
func (s *GameService) SubmitValue(ctx context.Context, sessionID string, selected domain.Value) (domain.AnswerResult, error) {
	game, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.AnswerResult{}, domain.ErrSessionNotFound
	}
	return game.Submit(ctx, selected)
}

// PlayAgain restarts a completed round for the same player.
func (s *GameService) PlayAgain(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	game, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return game.PlayAgain(ctx)
}

// NewPlayer resets the session to wait for another player.
func (s *GameService) NewPlayer(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	game, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return game.NewPlayer(ctx)
}

// Snapshot returns the session progress.
func (s *GameService) Snapshot(_ context.Context, sessionID string) (domain.SessionSnapshot, error) {
	game, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return game.Snapshot(), nil
}

// End drops the session without committing anything.
func (s *GameService) End(_ context.Context, sessionID string) {
	s.sessions.Delete(sessionID)
}

// Leaderboard returns the top k entries. Storage failures yield an empty board.
func (s *GameService) Leaderboard(ctx context.Context, k int) domain.Leaderboard {
	if k <= 0 {
		k = DefaultTopK
	}
	scores, err := s.board.Load(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load leaderboard")
		return domain.Leaderboard{Entries: []domain.LeaderboardEntry{}}
	}
	return Rank(scores, k)
}

// ResetLeaderboard clears every stored score.
func (s *GameService) ResetLeaderboard(ctx context.Context) error {
	if err := s.board.Reset(ctx); err != nil {
		return fmt.Errorf("reset leaderboard: %w", err)
	}
	log.Info().Msg("leaderboard reset")
	return nil
}
