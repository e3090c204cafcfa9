package trivia

import (
	"fmt"
	"math/rand"

	"movie-trivia/internal/domain"
)

// Index is a validated, immutable view over the dataset with the distinct
// values of every question field precomputed.
type Index struct {
	movies []domain.MovieRecord
	values map[domain.Kind][]domain.Value
}

// NewIndex validates movies and collects distinct values per kind in
// first-seen order so sampling is reproducible for a given seed.
func NewIndex(movies []domain.MovieRecord) (*Index, error) {
	if len(movies) == 0 {
		return nil, domain.ErrEmptyDataset
	}
	ix := &Index{
		movies: append([]domain.MovieRecord(nil), movies...),
		values: make(map[domain.Kind][]domain.Value, len(domain.Kinds)),
	}
	for _, kind := range domain.Kinds {
		seen := make(map[domain.Value]struct{}, len(movies))
		for _, m := range ix.movies {
			v := kind.ValueOf(m)
			if v.IsZero() {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			ix.values[kind] = append(ix.values[kind], v)
		}
		if len(ix.values[kind]) == 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrNoValues, kind)
		}
	}
	return ix, nil
}

// Len returns the number of movies.
func (ix *Index) Len() int { return len(ix.movies) }

// Movie returns the i-th movie record.
func (ix *Index) Movie(i int) domain.MovieRecord { return ix.movies[i] }

// Values returns the distinct values for kind. Callers must not modify the slice.
func (ix *Index) Values(kind domain.Kind) []domain.Value { return ix.values[kind] }

// Distractors picks up to k distinct wrong answers for kind, uniformly at
// random without replacement. When fewer than k candidates exist all of them
// are returned.
func (ix *Index) Distractors(rng *rand.Rand, kind domain.Kind, correct domain.Value, k int) []domain.Value {
	all := ix.values[kind]
	candidates := make([]domain.Value, 0, len(all))
	for _, v := range all {
		if v != correct {
			candidates = append(candidates, v)
		}
	}
	if k <= 0 {
		return nil
	}
	if len(candidates) <= k {
		return candidates
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:k]
}
