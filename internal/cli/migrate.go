package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"quiz-engine/internal/config"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/infra/file"
	pgstore "quiz-engine/internal/infra/postgres"
	pgmigrations "quiz-engine/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies database migrations and optionally seeds the quiz catalog.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seedDir string
	var seedBuiltin bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			if seedDir == "" && !seedBuiltin {
				return nil
			}
			return seedCatalog(cmd.Context(), cfg, seedDir, seedBuiltin)
		},
	}
	cmd.Flags().StringVar(&seedDir, "seed", "", "directory of quiz files to upsert after migrating")
	cmd.Flags().BoolVar(&seedBuiltin, "seed-builtin", false, "upsert the built-in sample quizzes")
	return cmd
}

func openDB(cfg config.Config) (*bun.DB, error) {
	if cfg.Postgres.URL == "" {
		return nil, fmt.Errorf("postgres url not configured")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Printf("no new migrations")
		return nil
	}
	log.Printf("migrations applied: %s", group)
	return nil
}

func seedCatalog(ctx context.Context, cfg config.Config, dir string, builtin bool) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	writer := pgstore.NewQuizWriter(db)

	var quizzes []domain.Quiz
	if builtin {
		for _, q := range builtinQuizzes() {
			quizzes = append(quizzes, q)
		}
	}
	if dir != "" {
		loader := file.NewCatalogLoader(afero.NewOsFs(), dir)
		ids, err := loader.QuizIDs()
		if err != nil {
			return err
		}
		for _, id := range ids {
			quiz, err := loader.LoadQuiz(ctx, id)
			if err != nil {
				return err
			}
			quizzes = append(quizzes, quiz)
		}
	}

	for _, quiz := range quizzes {
		if err := writer.SaveQuiz(ctx, quiz); err != nil {
			return err
		}
	}
	log.Printf("seeded %d quizzes", len(quizzes))
	return nil
}
