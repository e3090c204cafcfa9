package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"movie-trivia/internal/domain"
)

// DefaultMovieKey holds the JSON-encoded dataset rows.
const DefaultMovieKey = "trivia:movies"

// MovieLoader fetches the dataset from its source of truth.
type MovieLoader interface {
	LoadMovies(ctx context.Context) ([]domain.MovieRecord, error)
}

// MovieCache shares one copy of the dataset rows between instances and
// falls back to the loader on a miss:
//
//	SET trivia:movies {json rows} EX ttl
//
// A broken cache entry is treated as a miss.
type MovieCache struct {
	client *redis.Client
	loader MovieLoader
	key    string
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMovieCache(client *redis.Client, loader MovieLoader, ttl time.Duration) *MovieCache {
	return &MovieCache{
		client: client,
		loader: loader,
		key:    DefaultMovieKey,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *MovieCache) LoadMovies(ctx context.Context) ([]domain.MovieRecord, error) {
	if movies, ok := c.cached(ctx); ok {
		return movies, nil
	}

	result, err, _ := c.sf.Do(c.key, func() (interface{}, error) {
		// Re-check in case another instance filled it.
		if movies, ok := c.cached(ctx); ok {
			return movies, nil
		}
		movies, err := c.loader.LoadMovies(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(movies)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, c.key, data, c.ttlWithJitter()).Err(); err != nil {
			log.Warn().Err(err).Str("key", c.key).Msg("cache dataset")
		}
		return movies, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.MovieRecord), nil
}

// Invalidate drops the cached rows so the next load hits the loader.
func (c *MovieCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

func (c *MovieCache) cached(ctx context.Context) ([]domain.MovieRecord, bool) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", c.key).Msg("read dataset cache")
		}
		return nil, false
	}
	var movies []domain.MovieRecord
	if err := json.Unmarshal(data, &movies); err != nil || len(movies) == 0 {
		log.Warn().Str("key", c.key).Msg("ignoring corrupt dataset cache")
		return nil, false
	}
	return movies, true
}

func (c *MovieCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
