package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
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

	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/app"
	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/auth"
	"github.com/YuvrajSatwan/QuizVerse-sub000/internal/domain"
	pgloader "github.com/YuvrajSatwan/QuizVerse-sub000/internal/infra/postgres"
	pgmigrations "github.com/YuvrajSatwan/QuizVerse-sub000/internal/infra/postgres/migrations"
	infraredis "github.com/YuvrajSatwan/QuizVerse-sub000/internal/infra/redis"
)

func TestSessionLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuizDefinition(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgloader.NewQuizLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizRepo := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	issuer := auth.NewTokenIssuer("integration-secret")
	service := app.NewSessionService(sessionStore, quizRepo, issuer, app.SessionConfig{})

	created, err := service.CreateSessionFromStore(ctx, "quiz-1", "host-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// Joining through the Redis-backed code directory.
	alice, _, err := service.Join(ctx, created.JoinCode, "Alice")
	if err != nil {
		t.Fatalf("join alice: %v", err)
	}
	bob, _, err := service.Join(ctx, created.JoinCode, "Bob")
	if err != nil {
		t.Fatalf("join bob: %v", err)
	}

	if err := service.Start(ctx, created.SessionID, created.HostToken); err != nil {
		t.Fatalf("start: %v", err)
	}

	recA, err := service.SubmitAnswer(ctx, created.SessionID, 0, alice.ID, domain.AnswerValue{Kind: domain.AnswerOption, OptionIndex: 1})
	if err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	if !recA.IsCorrect || recA.Score < 100 {
		t.Fatalf("unexpected record %+v", recA)
	}
	if _, err := service.SubmitAnswer(ctx, created.SessionID, 0, bob.ID, domain.AnswerValue{Kind: domain.AnswerOption, OptionIndex: 0}); err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	if err := service.RevealResults(ctx, created.SessionID, created.HostToken); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	dist, err := service.Aggregates(ctx, created.SessionID, 0, "")
	if err != nil {
		t.Fatalf("aggregates: %v", err)
	}
	if dist.Total != 2 || dist.Counts["1"] != 1 || dist.Counts["0"] != 1 {
		t.Fatalf("unexpected distribution %+v", dist)
	}

	if err := service.Advance(ctx, created.SessionID, created.HostToken); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := service.RevealLeaderboard(ctx, created.SessionID, created.HostToken); err != nil {
		t.Fatalf("reveal leaderboard: %v", err)
	}

	lb, err := service.Leaderboard(ctx, created.SessionID, "")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].DisplayName != "Alice" || lb.Entries[1].TotalScore != 0 {
		t.Fatalf("unexpected leaderboard %+v", lb.Entries)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
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
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
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

func seedQuizDefinition(t *testing.T, ctx context.Context, dsn string, quiz domain.QuizDefinition) {
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

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quiz_definitions (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz definition: %v", err)
	}
}

func sampleQuiz() domain.QuizDefinition {
	return domain.QuizDefinition{
		ID:    "quiz-1",
		Title: "Integration",
		Questions: []domain.Question{
			{
				Text:         "What is 2 + 2?",
				Type:         domain.QuestionMultipleChoice,
				Options:      []string{"3", "4", "5"},
				CorrectIndex: 1,
				TimeLimitSec: 30,
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
