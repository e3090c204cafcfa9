package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"movie-trivia/internal/domain"
)

// Column names of the IMDB top-1000 export the dataset ships as.
const (
	colTitle    = "Series_Title"
	colDirector = "Director"
	colActor    = "Star1"
	colRating   = "IMDB_Rating"
	colYear     = "Released_Year"
	colGross    = "Gross"
	colPoster   = "Poster_Link"
)

var requiredColumns = []string{colTitle, colDirector, colActor, colRating, colYear, colGross}

// MovieLoader reads the movie dataset from a CSV file.
type MovieLoader struct {
	path string
}

func NewMovieLoader(path string) *MovieLoader {
	return &MovieLoader{path: path}
}

func (l *MovieLoader) LoadMovies(_ context.Context) ([]domain.MovieRecord, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	movies, skipped, err := ReadMovies(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", l.path, err)
	}
	log.Info().Str("path", l.path).Int("movies", len(movies)).Int("skipped", skipped).Msg("dataset loaded")
	return movies, nil
}

// ReadMovies parses CSV rows into movie records. Rows missing a question
// field or holding an unparsable number are dropped and counted in skipped.
func ReadMovies(r io.Reader) (movies []domain.MovieRecord, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, domain.ErrEmptyDataset
		}
		return nil, 0, err
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, 0, fmt.Errorf("missing column %q", name)
		}
	}

	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}
		m, err := parseMovie(row, cols)
		if err != nil {
			log.Debug().Err(err).Int("line", line).Msg("skipping dataset row")
			skipped++
			continue
		}
		movies = append(movies, m)
	}
	if len(movies) == 0 {
		return nil, skipped, domain.ErrEmptyDataset
	}
	return movies, skipped, nil
}

func parseMovie(row []string, cols map[string]int) (domain.MovieRecord, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	m := domain.MovieRecord{
		Title:     field(colTitle),
		Director:  field(colDirector),
		LeadActor: field(colActor),
		PosterURL: field(colPoster),
	}
	if m.Title == "" || m.Director == "" || m.LeadActor == "" {
		return m, fmt.Errorf("missing text field")
	}

	var err error
	if m.Rating, err = strconv.ParseFloat(field(colRating), 64); err != nil {
		return m, fmt.Errorf("rating: %w", err)
	}
	if m.ReleaseYear, err = strconv.Atoi(field(colYear)); err != nil {
		return m, fmt.Errorf("year: %w", err)
	}
	if m.Gross, err = domain.ParseGross(field(colGross)); err != nil {
		return m, fmt.Errorf("gross: %w", err)
	}
	return m, nil
}
