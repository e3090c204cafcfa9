package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"movie-trivia/internal/app"
	"movie-trivia/internal/domain"
	"movie-trivia/internal/trivia"
)

// MovieLoader fetches the validated movie rows from a backing store (CSV, Postgres).
type MovieLoader interface {
	LoadMovies(ctx context.Context) ([]domain.MovieRecord, error)
}

// DatasetRepository caches the dataset index and its question generator with
// a TTL so a Postgres-backed dataset is not reloaded for every new session.
// A zero TTL caches forever.
type DatasetRepository struct {
	loader MovieLoader
	ttl    time.Duration
	clock  func() time.Time
	seed   func() int64
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache *cachedDataset
}

type cachedDataset struct {
	gen       *trivia.Generator
	expiresAt time.Time
}

// DatasetOption customizes a DatasetRepository.
type DatasetOption func(*DatasetRepository)

// WithSeed fixes the random source of generated rounds.
func WithSeed(seed int64) DatasetOption {
	return func(r *DatasetRepository) { r.seed = func() int64 { return seed } }
}

// WithDatasetClock allows deterministic expiry in tests.
func WithDatasetClock(now func() time.Time) DatasetOption {
	return func(r *DatasetRepository) { r.clock = now }
}

func NewDatasetRepository(loader MovieLoader, ttl time.Duration, opts ...DatasetOption) *DatasetRepository {
	r := &DatasetRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		seed:   func() int64 { return time.Now().UnixNano() },
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generator returns the cached generator, loading and validating the dataset
// on a miss. Concurrent misses share one load.
func (r *DatasetRepository) Generator(ctx context.Context) (app.RoundBuilder, error) {
	gen, err := r.generator(ctx)
	if err != nil {
		return nil, err
	}
	return gen, nil
}

// Index returns the cached dataset index.
func (r *DatasetRepository) Index(ctx context.Context) (*trivia.Index, error) {
	gen, err := r.generator(ctx)
	if err != nil {
		return nil, err
	}
	return gen.Index(), nil
}

func (r *DatasetRepository) generator(ctx context.Context) (*trivia.Generator, error) {
	if gen, ok := r.cached(r.clock()); ok {
		return gen, nil
	}

	result, err, _ := r.sf.Do("dataset", func() (interface{}, error) {
		now := r.clock()
		if gen, ok := r.cached(now); ok {
			return gen, nil
		}

		movies, err := r.loader.LoadMovies(ctx)
		if err != nil {
			return nil, err
		}
		ix, err := trivia.NewIndex(movies)
		if err != nil {
			return nil, err
		}
		gen := trivia.NewGenerator(ix, rand.New(rand.NewSource(r.seed())))

		entry := &cachedDataset{gen: gen}
		if r.ttl > 0 {
			entry.expiresAt = now.Add(r.ttlWithJitter())
		}
		r.mu.Lock()
		r.cache = entry
		r.mu.Unlock()
		return gen, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*trivia.Generator), nil
}

func (r *DatasetRepository) cached(now time.Time) (*trivia.Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cache == nil {
		return nil, false
	}
	if r.ttl > 0 && !r.cache.expiresAt.After(now) {
		return nil, false
	}
	return r.cache.gen, true
}

func (r *DatasetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticMovieLoader is a simple loader backed by an in-memory slice (useful for tests/demos).
type StaticMovieLoader struct {
	movies []domain.MovieRecord
}

func NewStaticMovieLoader(movies []domain.MovieRecord) *StaticMovieLoader {
	return &StaticMovieLoader{movies: movies}
}

func (l *StaticMovieLoader) LoadMovies(_ context.Context) ([]domain.MovieRecord, error) {
	if len(l.movies) == 0 {
		return nil, domain.ErrEmptyDataset
	}
	return l.movies, nil
}
