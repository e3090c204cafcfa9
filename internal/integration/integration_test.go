package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"movie-trivia/internal/app"
	"movie-trivia/internal/domain"
	"movie-trivia/internal/infra/memory"
	"movie-trivia/internal/infra/postgres"
	pgmigrations "movie-trivia/internal/infra/postgres/migrations"
	infraredis "movie-trivia/internal/infra/redis"
)

func TestRoundCommitsToPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	n, err := postgres.ImportMovies(ctx, pool, sampleMovies())
	if err != nil {
		t.Fatalf("import movies: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 imported row, got %d", n)
	}

	dataset := memory.NewDatasetRepository(postgres.NewMovieLoader(pool), 5*time.Minute)
	board := postgres.NewLeaderboardStore(pool, app.PolicyLatest)
	service := app.NewGameService(memory.NewSessionStore(), dataset, board)

	playRound(t, ctx, service, "Ann", 3)

	lb := service.Leaderboard(ctx, 10)
	if len(lb.Entries) != 1 || lb.Entries[0].PlayerName != "Ann" || lb.Entries[0].Score != 3 {
		t.Fatalf("expected Ann with 3, got %+v", lb.Entries)
	}

	// A later, lower score overwrites under the latest policy.
	playRound(t, ctx, service, "Ann", 1)
	scores, err := board.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if scores["Ann"] != 1 {
		t.Fatalf("expected overwrite to 1, got %v", scores)
	}

	if err := service.ResetLeaderboard(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if lb := service.Leaderboard(ctx, 10); len(lb.Entries) != 0 {
		t.Fatalf("expected empty board, got %+v", lb.Entries)
	}
}

func TestConcurrentCommitsToRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := goredis.NewClient(opts)
	defer client.Close()

	board := infraredis.NewLeaderboardStore(client, "", app.PolicyBest)
	dataset := memory.NewDatasetRepository(memory.NewStaticMovieLoader(sampleMovies()), 0)
	service := app.NewGameService(infraredis.NewSessionStore(client, time.Minute), dataset, board,
		app.WithServiceRoundSize(4))

	var wg sync.WaitGroup
	for i, name := range []string{"Ann", "Bob", "Cid", "Dee"} {
		wg.Add(1)
		go func(name string, correct int) {
			defer wg.Done()
			playRound(t, ctx, service, name, correct)
		}(name, i+1)
	}
	wg.Wait()

	lb := service.Leaderboard(ctx, 10)
	if len(lb.Entries) != 4 || lb.Entries[0].PlayerName != "Dee" || lb.Entries[3].PlayerName != "Ann" {
		t.Fatalf("expected all four players ranked, got %+v", lb.Entries)
	}
}

// playRound answers the first correct questions right and leaves the rest
// wrong. With a single-movie dataset only option 0 exists, so a wrong answer
// is submitted as a value that never matches.
func playRound(t *testing.T, ctx context.Context, service *app.GameService, name string, correct int) {
	t.Helper()
	snap, err := service.Start(ctx, "")
	if err != nil {
		t.Errorf("start: %v", err)
		return
	}
	id := snap.SessionID
	defer service.End(ctx, id)

	snap, err = service.SetName(ctx, id, name)
	if err != nil {
		t.Errorf("set name: %v", err)
		return
	}
	for i := 0; i < snap.RoundSize; i++ {
		var result domain.AnswerResult
		if i < correct {
			result, _, err = service.Submit(ctx, id, 0)
		} else {
			result, err = submitWrong(ctx, service, id)
		}
		if err != nil {
			t.Errorf("submit %d: %v", i, err)
			return
		}
		if result.RoundComplete && i != snap.RoundSize-1 {
			t.Errorf("round completed early at %d", i)
			return
		}
	}
}

func submitWrong(ctx context.Context, service *app.GameService, id string) (domain.AnswerResult, error) {
	return service.SubmitValue(ctx, id, domain.Text("not an option"))
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleMovies() []domain.MovieRecord {
	return []domain.MovieRecord{{
		Title:       "The Godfather",
		Director:    "Francis Ford Coppola",
		LeadActor:   "Marlon Brando",
		Rating:      9.2,
		ReleaseYear: 1972,
		Gross:       134966411,
		PosterURL:   "https://example.com/godfather.jpg",
	}}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "trivia"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/trivia?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
