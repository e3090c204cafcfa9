package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"movie-trivia/internal/domain"
)

// MovieLoader loads the movie dataset from the movies table.
type MovieLoader struct {
	pool *pgxpool.Pool
}

func NewMovieLoader(pool *pgxpool.Pool) *MovieLoader {
	return &MovieLoader{pool: pool}
}

func (l *MovieLoader) LoadMovies(ctx context.Context) ([]domain.MovieRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT title, director, lead_actor, rating, release_year, gross, poster_url
		FROM movies
		WHERE title <> '' AND director <> '' AND lead_actor <> ''
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load movies: %w", err)
	}
	defer rows.Close()

	var movies []domain.MovieRecord
	for rows.Next() {
		var m domain.MovieRecord
		if err := rows.Scan(&m.Title, &m.Director, &m.LeadActor, &m.Rating, &m.ReleaseYear, &m.Gross, &m.PosterURL); err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load movies: %w", err)
	}
	if len(movies) == 0 {
		return nil, domain.ErrEmptyDataset
	}
	return movies, nil
}

// ImportMovies replaces the movies table with the given records in one transaction.
func ImportMovies(ctx context.Context, pool *pgxpool.Pool, movies []domain.MovieRecord) (int64, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE movies`); err != nil {
		return 0, fmt.Errorf("truncate movies: %w", err)
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"movies"},
		[]string{"title", "director", "lead_actor", "rating", "release_year", "gross", "poster_url"},
		pgx.CopyFromSlice(len(movies), func(i int) ([]interface{}, error) {
			m := movies[i]
			return []interface{}{m.Title, m.Director, m.LeadActor, m.Rating, m.ReleaseYear, m.Gross, m.PosterURL}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy movies: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return n, nil
}
