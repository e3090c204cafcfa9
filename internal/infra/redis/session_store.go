package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"movie-trivia/internal/app"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - Game state stays in a local map; a session belongs to the instance
//     holding the player's websocket.
//   - Each live session also holds a trivia:session:{id} key in Redis,
//     refreshed on access and removed on delete or sweep. The service
//     itself never reads these keys.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Game
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Game),
	}
}

func (s *SessionStore) GetOrCreate(sessionID string, create func(string) *app.Game) *app.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	if game, ok := s.sessions[sessionID]; ok {
		return game
	}
	game := create(sessionID)
	s.sessions[sessionID] = game
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(sessionID), "1", s.ttl).Err()
	return game
}

func (s *SessionStore) Get(sessionID string) (*app.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.sessions[sessionID]
	if ok && s.ttl > 0 {
		_ = s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err()
	}
	return game, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return
	}
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "trivia:session:" + sessionID
}

// Sweep drops sessions idle for longer than maxIdle along with their
// liveness markers.
func (s *SessionStore) Sweep(now time.Time, maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []string
	for id, game := range s.sessions {
		if now.Sub(game.UpdatedAt()) > maxIdle {
			delete(s.sessions, id)
			expired = append(expired, s.key(id))
		}
	}
	if len(expired) > 0 {
		_ = s.client.Del(context.Background(), expired...).Err()
	}
	return len(expired)
}
