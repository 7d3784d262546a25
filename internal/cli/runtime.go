package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"quiz-engine/internal/app"
	"quiz-engine/internal/config"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/infra/file"
	"quiz-engine/internal/infra/memory"
	pgloader "quiz-engine/internal/infra/postgres"
	redisstore "quiz-engine/internal/infra/redis"
)

// runtime is the wired object graph shared by every subcommand.
type runtime struct {
	cfg      config.Config
	service  *app.QuizService
	sessions app.SessionRepository
	closers  []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { redisClient.Close() })
	}

	var docs app.DocumentStore
	switch cfg.Storage.Backend {
	case config.StorageRedis:
		docs = redisstore.NewDocumentStore(redisClient)
	case config.StorageMemory:
		docs = memory.NewDocumentStore()
	default:
		store := file.NewOSDocumentStore(cfg.Storage.DataDir)
		log.Printf("storing documents in %s", store.Dir())
		docs = store
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(builtinQuizzes())
	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, pool.Close)
		loader = pgloader.NewQuizLoader(pool)
	case cfg.Quiz.CatalogDir != "":
		loader = file.NewCatalogLoader(afero.NewOsFs(), cfg.Quiz.CatalogDir)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	if redisClient != nil {
		rt.sessions = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		rt.sessions = memory.NewSessionStore()
	}

	difficulty, err := domain.ParseDifficulty(cfg.Quiz.Difficulty)
	if err != nil {
		rt.Close()
		return nil, err
	}

	progress := app.NewProgressStore(ctx, docs)
	if cfg.Player.Name != "" && progress.PlayerName() != cfg.Player.Name {
		if err := progress.SetPlayerName(cfg.Player.Name); err != nil {
			log.Printf("failed to save player name: %v", err)
		}
	}

	rt.service = app.NewQuizService(
		quizRepo,
		progress,
		app.NewLeaderboardStore(ctx, docs),
		app.NewAchievementStore(ctx, docs),
		app.Settings{
			TimePerQuestion:  config.TTLDuration(cfg.Quiz.TimePerQuestion, app.DefaultTimePerQuestion),
			RandomizeOptions: cfg.Quiz.RandomizeOptions,
			Topics:           cfg.Quiz.Topics,
			Difficulty:       difficulty,
		},
	)
	return rt, nil
}
