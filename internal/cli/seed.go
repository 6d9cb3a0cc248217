package cli

import (
	"context"
	"log"

	"course-assessment-service/internal/catalog"
	"course-assessment-service/internal/config"
	"course-assessment-service/internal/domain"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

type quizDefinitionRow struct {
	bun.BaseModel `bun:"table:quiz_definitions"`

	ID   string                `bun:"id,pk"`
	Data domain.QuizDefinition `bun:"data,type:jsonb"`
}

// NewSeedCmd upserts the quiz catalog into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the quiz catalog into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return seedCatalog(cmd.Context(), cfg)
		},
	}
}

func seedCatalog(ctx context.Context, cfg config.Config) error {
	quizzes, err := catalog.Load(cfg.Quiz.Catalog)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}
	db, err := openBun(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	rows := make([]quizDefinitionRow, 0, len(quizzes))
	for id, quiz := range quizzes {
		rows = append(rows, quizDefinitionRow{ID: id, Data: quiz})
	}
	_, err = db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = now()").
		Exec(ctx)
	if err != nil {
		return err
	}
	log.Printf("seeded %d quizzes", len(rows))
	return nil
}
