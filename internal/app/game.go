package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"movie-trivia/internal/domain"
)

// RoundBuilder produces a fresh round of n questions.
type RoundBuilder interface {
	Round(n int) (domain.Round, error)
}

// Game is one player's session state machine:
//
//	awaitingName -> inRound -> roundComplete
//
// A finished round is committed to the leaderboard as soon as the last
// answer is submitted. If that commit fails the error is returned and the
// commit is retried by PlayAgain or NewPlayer.
type Game struct {
	id     string
	rounds RoundBuilder
	board  LeaderboardStore
	size   int
	retry  func() backoff.BackOff
	now    func() time.Time

	mu        sync.Mutex
	state     domain.State
	player    string
	round     domain.Round
	index     int
	score     int
	last      domain.Value
	committed bool
	updatedAt time.Time
}

// GameOption customizes a Game.
type GameOption func(*Game)

// WithRoundSize sets the number of questions per round.
func WithRoundSize(n int) GameOption {
	return func(g *Game) {
		if n > 0 {
			g.size = n
		}
	}
}

// WithRetry sets the backoff policy used for leaderboard commits.
func WithRetry(policy func() backoff.BackOff) GameOption {
	return func(g *Game) { g.retry = policy }
}

// WithClock allows deterministic timestamps in tests.
func WithClock(now func() time.Time) GameOption {
	return func(g *Game) { g.now = now }
}

// NewGame creates a session waiting for a player name.
func NewGame(id string, rounds RoundBuilder, board LeaderboardStore, opts ...GameOption) *Game {
	g := &Game{
		id:     id,
		rounds: rounds,
		board:  board,
		size:   domain.DefaultRoundSize,
		retry:  defaultRetry,
		now:    time.Now,
		state:  domain.StateAwaitingName,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.updatedAt = g.now()
	return g
}

func defaultRetry() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return backoff.WithMaxRetries(b, 3)
}

// ID returns the session identifier.
func (g *Game) ID() string { return g.id }

// UpdatedAt returns the time of the last state change.
func (g *Game) UpdatedAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.updatedAt
}

// SetName starts a round for the player. An empty name keeps the game waiting.
func (g *Game) SetName(name string) (domain.SessionSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return g.snapshotLocked(), domain.ErrEmptyName
	}
	if !utf8.ValidString(name) {
		return g.snapshotLocked(), domain.ErrInvalidName
	}
	if g.state != domain.StateAwaitingName {
		return g.snapshotLocked(), domain.ErrPlayerActive
	}
	if err := g.startRoundLocked(); err != nil {
		return g.snapshotLocked(), err
	}
	g.player = name
	return g.snapshotLocked(), nil
}

// Submit answers the current question. An empty value is a no-op, as is any
// submission once the round is over.
func (g *Game) Submit(ctx context.Context, selected domain.Value) (domain.AnswerResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitLocked(ctx, selected)
}

// SubmitOption answers the current question with the option at index i.
// A negative index is the empty selection.
func (g *Game) SubmitOption(ctx context.Context, i int) (domain.AnswerResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if i < 0 {
		return g.submitLocked(ctx, domain.Value{})
	}
	if g.state != domain.StateInRound {
		return g.submitLocked(ctx, domain.Value{})
	}
	options := g.round[g.index].Options
	if i >= len(options) {
		return domain.AnswerResult{Score: g.score}, domain.ErrInvalidOption
	}
	return g.submitLocked(ctx, options[i])
}

func (g *Game) submitLocked(ctx context.Context, selected domain.Value) (domain.AnswerResult, error) {
	switch g.state {
	case domain.StateAwaitingName:
		return domain.AnswerResult{}, domain.ErrNotInRound
	case domain.StateRoundComplete:
		return domain.AnswerResult{Score: g.score, RoundComplete: true}, domain.ErrRoundOver
	}
	if selected.IsZero() {
		return domain.AnswerResult{Score: g.score}, domain.ErrNoSelection
	}

	q := g.round[g.index]
	correct := selected == q.Answer
	if correct {
		g.score++
	}
	g.index++
	g.last = selected
	g.updatedAt = g.now()

	result := domain.AnswerResult{
		Correct:       correct,
		CorrectAnswer: q.Answer.Label(q.Kind),
		Score:         g.score,
	}
	if g.index < len(g.round) {
		return result, nil
	}

	g.state = domain.StateRoundComplete
	result.RoundComplete = true
	if err := g.commitLocked(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// PlayAgain starts a new round for the same player once the current one is
// complete. A pending commit is flushed first; if it still fails the round
// is kept so the score is not lost.
func (g *Game) PlayAgain(ctx context.Context) (domain.SessionSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != domain.StateRoundComplete {
		return g.snapshotLocked(), domain.ErrNotInRound
	}
	if err := g.commitLocked(ctx); err != nil {
		return g.snapshotLocked(), err
	}
	if err := g.startRoundLocked(); err != nil {
		return g.snapshotLocked(), err
	}
	return g.snapshotLocked(), nil
}

// NewPlayer discards the player and round and always returns to
// awaitingName. A completed round whose commit is still pending gets one
// more attempt; if that fails the score is dropped and the error returned
// with the reset snapshot. An unfinished round is never written.
func (g *Game) NewPlayer(ctx context.Context) (domain.SessionSnapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var commitErr error
	if g.state == domain.StateRoundComplete {
		if err := g.commitLocked(ctx); err != nil {
			log.Error().Err(err).Str("session", g.id).Str("player", g.player).Int("score", g.score).Msg("dropping uncommitted score")
			commitErr = err
		}
	}
	g.state = domain.StateAwaitingName
	g.player = ""
	g.round = nil
	g.index = 0
	g.score = 0
	g.last = domain.Value{}
	g.committed = false
	g.updatedAt = g.now()
	return g.snapshotLocked(), commitErr
}

// Snapshot returns a copy of the session progress.
func (g *Game) Snapshot() domain.SessionSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) startRoundLocked() error {
	round, err := g.rounds.Round(g.size)
	if err != nil {
		return fmt.Errorf("build round: %w", err)
	}
	g.round = round
	g.state = domain.StateInRound
	g.index = 0
	g.score = 0
	g.last = domain.Value{}
	g.committed = false
	g.updatedAt = g.now()
	return nil
}

func (g *Game) commitLocked(ctx context.Context) error {
	if g.committed {
		return nil
	}
	attempt := 0
	op := func() error {
		attempt++
		err := g.board.Commit(ctx, g.player, g.score)
		if err != nil {
			log.Warn().Err(err).Str("session", g.id).Str("player", g.player).Int("attempt", attempt).Msg("leaderboard commit failed")
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(g.retry(), ctx)); err != nil {
		return fmt.Errorf("commit score for %q: %w", g.player, err)
	}
	g.committed = true
	log.Info().Str("session", g.id).Str("player", g.player).Int("score", g.score).Msg("score committed")
	return nil
}

func (g *Game) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SessionID:  g.id,
		PlayerName: g.player,
		State:      g.state,
		Index:      g.index,
		RoundSize:  len(g.round),
		Score:      g.score,
		Committed:  g.committed,
	}
	if !g.last.IsZero() && g.index > 0 {
		snap.LastSelected = g.last.Label(g.round[g.index-1].Kind)
	}
	if g.state == domain.StateInRound && g.index < len(g.round) {
		view := domain.NewQuestionView(g.index, g.round[g.index])
		snap.Question = &view
	}
	return snap
}
