package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"movie-trivia/internal/domain"
)

func TestDatasetRepositoryCaches(t *testing.T) {
	loader := &countingLoader{MovieLoader: NewStaticMovieLoader(sampleMovies())}
	repo := NewDatasetRepository(loader, time.Minute)

	if _, err := repo.Generator(context.Background()); err != nil {
		t.Fatalf("generator: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	if _, err := repo.Generator(context.Background()); err != nil {
		t.Fatalf("generator 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}
}

func TestDatasetRepositoryReloadsAfterTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	loader := &countingLoader{MovieLoader: NewStaticMovieLoader(sampleMovies())}
	repo := NewDatasetRepository(loader, time.Minute, WithDatasetClock(func() time.Time { return now }))

	if _, err := repo.Index(context.Background()); err != nil {
		t.Fatalf("index: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.Index(context.Background()); err != nil {
		t.Fatalf("index after ttl: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls.Load())
	}
}

func TestDatasetRepositorySharesConcurrentLoads(t *testing.T) {
	loader := &countingLoader{MovieLoader: NewStaticMovieLoader(sampleMovies()), delay: 20 * time.Millisecond}
	repo := NewDatasetRepository(loader, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Generator(context.Background()); err != nil {
				t.Errorf("generator: %v", err)
			}
		}()
	}
	wg.Wait()
	if loader.calls.Load() != 1 {
		t.Fatalf("expected a single shared load, got %d", loader.calls.Load())
	}
}

func TestDatasetRepositoryRejectsEmptyDataset(t *testing.T) {
	repo := NewDatasetRepository(NewStaticMovieLoader(nil), time.Minute)
	if _, err := repo.Generator(context.Background()); !errors.Is(err, domain.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestDatasetRepositorySeedIsReproducible(t *testing.T) {
	a := NewDatasetRepository(NewStaticMovieLoader(sampleMovies()), 0, WithSeed(11))
	b := NewDatasetRepository(NewStaticMovieLoader(sampleMovies()), 0, WithSeed(11))

	genA, _ := a.Generator(context.Background())
	genB, _ := b.Generator(context.Background())
	ra, err := genA.Round(5)
	if err != nil {
		t.Fatalf("round: %v", err)
	}
	rb, _ := genB.Round(5)
	for i := range ra {
		if ra[i].Prompt != rb[i].Prompt {
			t.Fatalf("question %d differs: %q vs %q", i, ra[i].Prompt, rb[i].Prompt)
		}
	}
}

type countingLoader struct {
	MovieLoader
	delay time.Duration
	calls atomic.Int32
}

func (l *countingLoader) LoadMovies(ctx context.Context) ([]domain.MovieRecord, error) {
	l.calls.Add(1)
	time.Sleep(l.delay)
	return l.MovieLoader.LoadMovies(ctx)
}

func sampleMovies() []domain.MovieRecord {
	return []domain.MovieRecord{
		{Title: "The Shawshank Redemption", Director: "Frank Darabont", LeadActor: "Tim Robbins", Rating: 9.3, ReleaseYear: 1994, Gross: 28341469},
		{Title: "The Godfather", Director: "Francis Ford Coppola", LeadActor: "Marlon Brando", Rating: 9.2, ReleaseYear: 1972, Gross: 134966411},
		{Title: "The Dark Knight", Director: "Christopher Nolan", LeadActor: "Christian Bale", Rating: 9.0, ReleaseYear: 2008, Gross: 534858444},
		{Title: "Pulp Fiction", Director: "Quentin Tarantino", LeadActor: "John Travolta", Rating: 8.9, ReleaseYear: 1994, Gross: 107928762},
		{Title: "Fight Club", Director: "David Fincher", LeadActor: "Brad Pitt", Rating: 8.8, ReleaseYear: 1999, Gross: 37030102},
	}
}
