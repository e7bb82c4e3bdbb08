package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/neo/wordextremist_backend/internal/database"
	"github.com/neo/wordextremist_backend/internal/logging"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the starter sentence prompts",
	Long: `Load a small set of starter sentence prompts so a fresh install has
content to serve. Existing prompts are left alone; seeding is additive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			logging.Warn("Error loading .env file", map[string]interface{}{"error": err.Error()})
		}

		db, err := database.New(seedDataDir)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %v", err)
		}
		defer db.Close()

		if err := db.RunMigrations("migrations"); err != nil {
			return fmt.Errorf("failed to run migrations: %v", err)
		}

		created := 0
		for _, p := range starterPrompts() {
			p := p
			if _, err := db.CreatePrompt(&p); err != nil {
				logging.Warn("Skipping prompt", map[string]interface{}{
					"sentence": p.Sentence,
					"error":    err.Error(),
				})
				continue
			}
			created++
		}

		fmt.Printf("Seeded %d prompts\n", created)
		return nil
	},
}

var seedDataDir string

func starterPrompts() []database.SentencePrompt {
	return []database.SentencePrompt{
		{Sentence: "The party was fun", TargetWord: "fun", PromptText: "Make it sound more extreme", Language: "en", Difficulty: 1},
		{Sentence: "The soup tasted bad", TargetWord: "bad", PromptText: "Make it sound dramatically worse", Language: "en", Difficulty: 1},
		{Sentence: "The mountain was big", TargetWord: "big", PromptText: "Make it sound enormous", Language: "en", Difficulty: 1},
		{Sentence: "Her idea was good", TargetWord: "good", PromptText: "Make it sound brilliant", Language: "en", Difficulty: 2},
		{Sentence: "The movie was scary", TargetWord: "scary", PromptText: "Make it sound terrifying", Language: "en", Difficulty: 2},
		{Sentence: "He ran fast", TargetWord: "fast", PromptText: "Make it sound impossibly quick", Language: "en", Difficulty: 2},
		{Sentence: "La fiesta fue divertida", TargetWord: "divertida", PromptText: "Hazla sonar mas extrema", Language: "es", Difficulty: 1},
		{Sentence: "Das Essen war gut", TargetWord: "gut", PromptText: "Lass es extremer klingen", Language: "de", Difficulty: 1},
	}
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedDataDir, "data-dir", "data", "directory holding the sqlite database")
}
