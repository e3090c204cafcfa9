package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"movie-trivia/internal/app"
	"movie-trivia/internal/config"
	"movie-trivia/internal/infra/file"
	"movie-trivia/internal/infra/memory"
	"movie-trivia/internal/infra/postgres"
	redisstore "movie-trivia/internal/infra/redis"
	transport "movie-trivia/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// sweeper is implemented by session stores that can drop idle games.
type sweeper interface {
	Sweep(now time.Time, maxIdle time.Duration) int
}

type sessionStore interface {
	app.SessionRepository
	sweeper
}

// backends holds the optional external clients a config asks for.
type backends struct {
	redis *redis.Client
	pool  *pgxpool.Pool
}

func openBackends(ctx context.Context, cfg config.Config) (*backends, error) {
	b := &backends{}
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.pool = pool
	}
	return b, nil
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

func newLeaderboardStore(cfg config.Config, b *backends) (app.LeaderboardStore, error) {
	policy, err := app.ParsePolicy(cfg.Leaderboard.Policy)
	if err != nil {
		return nil, err
	}
	switch cfg.Leaderboard.Backend {
	case config.BackendMemory:
		return memory.NewLeaderboardStore(policy), nil
	case config.BackendFile:
		return file.NewLeaderboardStore(cfg.Leaderboard.Path, policy), nil
	case config.BackendRedis:
		if b.redis == nil {
			return nil, errors.New("leaderboard backend redis needs redis.addr")
		}
		return redisstore.NewLeaderboardStore(b.redis, cfg.Leaderboard.Key, policy), nil
	case config.BackendPostgres:
		if b.pool == nil {
			return nil, errors.New("leaderboard backend postgres needs postgres.url")
		}
		return postgres.NewLeaderboardStore(b.pool, policy), nil
	default:
		return nil, fmt.Errorf("unknown leaderboard backend %q", cfg.Leaderboard.Backend)
	}
}

// newMovieLoader reads from Postgres or the CSV file. Postgres rows are
// shared through Redis when both are configured.
func newMovieLoader(cfg config.Config, b *backends) memory.MovieLoader {
	if cfg.Dataset.Source != "postgres" || b.pool == nil {
		return file.NewMovieLoader(cfg.Dataset.Path)
	}
	loader := postgres.NewMovieLoader(b.pool)
	if b.redis != nil {
		return redisstore.NewMovieCache(b.redis, loader, config.TTLDuration(cfg.Dataset.TTL, 10*time.Minute))
	}
	return loader
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	var opts []memory.DatasetOption
	if cfg.Dataset.Seed != 0 {
		opts = append(opts, memory.WithSeed(cfg.Dataset.Seed))
	}
	dataset := memory.NewDatasetRepository(newMovieLoader(cfg, b), config.TTLDuration(cfg.Dataset.TTL, 0), opts...)
	index, err := dataset.Index(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	log.Info().Int("movies", index.Len()).Str("source", cfg.Dataset.Source).Msg("dataset ready")

	board, err := newLeaderboardStore(cfg, b)
	if err != nil {
		return err
	}

	var sessions sessionStore
	if b.redis != nil {
		sessions = redisstore.NewSessionStore(b.redis, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	} else {
		sessions = memory.NewSessionStore()
	}

	service := app.NewGameService(sessions, dataset, board, app.WithServiceRoundSize(cfg.Game.RoundSize))

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepIdle(sweepCtx, sessions, config.TTLDuration(cfg.Game.IdleTimeout, 30*time.Minute))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, cfg.Leaderboard.TopK, cfg.Server.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Str("leaderboard", cfg.Leaderboard.Backend).Msg("starting trivia server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func sweepIdle(ctx context.Context, sessions sweeper, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := sessions.Sweep(now, maxIdle); removed > 0 {
				log.Debug().Int("removed", removed).Msg("swept idle sessions")
			}
		}
	}
}
