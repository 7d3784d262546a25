package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
	pgstore "quiz-engine/internal/infra/postgres"
	pgmigrations "quiz-engine/internal/infra/postgres/migrations"
	infraredis "quiz-engine/internal/infra/redis"
)

func TestQuizCompletionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewQuizLoader(pool)
	ids, err := loader.QuizIDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "quiz-1" {
		t.Fatalf("expected seeded quiz, got %v (%v)", ids, err)
	}
	if _, err := loader.LoadQuiz(ctx, "missing"); err == nil || !strings.Contains(err.Error(), domain.ErrQuizNotFound.Error()) {
		t.Fatalf("expected quiz not found, got %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	docs := infraredis.NewDocumentStore(redisClient)
	service := app.NewQuizService(
		infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute),
		app.NewProgressStore(ctx, docs),
		app.NewLeaderboardStore(ctx, docs),
		app.NewAchievementStore(ctx, docs),
		app.Settings{TimePerQuestion: time.Minute, Difficulty: domain.Hard, Topics: []string{domain.MixedTopic}},
	)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)

	session, err := service.StartSession(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	sessions.Put(session)
	defer sessions.Delete(session.ID())
	defer session.Close()

	for i := 0; i < session.TotalQuestions(); i++ {
		q, _ := session.CurrentQuestion()
		if _, err := session.SubmitAnswer(q.CorrectIndex); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if err := session.Advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if session.State() != app.StateCompleted || session.Score() != 100 {
		t.Fatalf("expected completed with 100, got %s %d", session.State(), session.Score())
	}

	// A fresh set of stores must see what the session persisted.
	progress := app.NewProgressStore(ctx, docs)
	if res, ok := progress.QuizResult("quiz-1"); !ok || res.Score != 100 || res.MaxScore != 100 {
		t.Fatalf("progress not persisted: %+v", progress.Progress())
	}
	if entries := app.NewLeaderboardStore(ctx, docs).Entries(); len(entries) != 1 || entries[0].Score != 100 {
		t.Fatalf("leaderboard not persisted: %+v", entries)
	}
	if !app.NewAchievementStore(ctx, docs).IsUnlocked("score_100") {
		t.Fatalf("score_100 not persisted")
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	endpoint, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432/tcp")
	return fmt.Sprintf("postgres://quiz:quizpass@%s/quizdb?sslmode=disable", endpoint), cleanup
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	endpoint, cleanup := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}, "6379/tcp")
	return "redis://" + endpoint, cleanup
}

// startContainer runs req and returns host:port of the mapped port.
func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest, port nat.Port) (string, func()) {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	cleanup := func() { _ = container.Terminate(ctx) }

	host, err := container.Host(ctx)
	if err != nil {
		cleanup()
		t.Fatalf("%s host: %v", req.Image, err)
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		cleanup()
		t.Fatalf("%s port: %v", req.Image, err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port()), cleanup
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
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
	if err := pgstore.NewQuizWriter(db).SaveQuiz(ctx, quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	// Upserting twice must not fail.
	if err := pgstore.NewQuizWriter(db).SaveQuiz(ctx, quiz); err != nil {
		t.Fatalf("reseed quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	questions := make([]domain.Question, 0, 6)
	for i := 0; i < 5; i++ {
		questions = append(questions, domain.Question{
			Text:         fmt.Sprintf("Hard question %d", i+1),
			Topic:        "Biology",
			Options:      []string{"a", "b", "c"},
			CorrectIndex: i % 3,
			Difficulty:   domain.Hard,
		})
	}
	questions = append(questions, domain.Question{
		Text:         "Easy question",
		Topic:        "Planets",
		Options:      []string{"x", "y"},
		CorrectIndex: 0,
		Difficulty:   domain.Easy,
	})
	return domain.Quiz{ID: "quiz-1", Questions: questions}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
