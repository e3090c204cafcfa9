package cli

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"movie-trivia/internal/config"
	"movie-trivia/internal/infra/file"
	"movie-trivia/internal/infra/postgres"
	redisstore "movie-trivia/internal/infra/redis"
)

// NewImportCmd loads a CSV export into the movies table.
func NewImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <csv>",
		Short: "Import a movie CSV into Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return errors.New("postgres url not configured")
			}
			if err := runMigrationsWithConfig(ctx, cfg); err != nil {
				return err
			}

			movies, err := file.NewMovieLoader(args[0]).LoadMovies(ctx)
			if err != nil {
				return err
			}

			b, err := openBackends(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			n, err := postgres.ImportMovies(ctx, b.pool, movies)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			log.Info().Int64("rows", n).Str("path", args[0]).Msg("movies imported")
			if b.redis != nil {
				if err := redisstore.NewMovieCache(b.redis, nil, 0).Invalidate(ctx); err != nil {
					log.Warn().Err(err).Msg("invalidate dataset cache")
				}
			}
			return nil
		},
	}
}
