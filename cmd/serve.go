package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/neo/wordextremist_backend/internal/auth"
	"github.com/neo/wordextremist_backend/internal/bot"
	"github.com/neo/wordextremist_backend/internal/config"
	"github.com/neo/wordextremist_backend/internal/database"
	"github.com/neo/wordextremist_backend/internal/game"
	"github.com/neo/wordextremist_backend/internal/logging"
	"github.com/neo/wordextremist_backend/internal/matchmaking"
	"github.com/neo/wordextremist_backend/internal/server"
	"github.com/neo/wordextremist_backend/internal/validator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Word Extremist server",
	Long: `Start the Word Extremist server with the configured environment.
This initializes the database, the matchmaking pool, the game engine, and the
websocket transport, then begins accepting connections.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		// Ensure data directory exists
		if err := os.MkdirAll("data", 0755); err != nil {
			fmt.Printf("Error creating data directory: %v\n", err)
			os.Exit(1)
		}

		// Check for .env file
		if _, err := os.Stat(".env"); os.IsNotExist(err) {
			fmt.Println("Warning: .env file not found. Make sure to create it with your OPENAI_API_KEY and JWT_SECRET")
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			logging.Warn("Error loading .env file", map[string]interface{}{"error": err.Error()})
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := database.New(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %v", err)
		}
		defer db.Close()

		if err := db.RunMigrations("migrations"); err != nil {
			return fmt.Errorf("failed to run migrations: %v", err)
		}

		a := auth.New(auth.Config{
			JWTSecret:     cfg.JWTSecret,
			TokenDuration: cfg.TokenDuration,
		})

		v := validator.New(cfg.OpenAIKey, cfg.ValidatorModels, db)

		botPolicy, err := bot.New(cfg.OpenAIKey, cfg.BotModel, bot.Config{
			MaxMistakeProbability: cfg.MaxMistakeProbability,
			MinMistakeProbability: cfg.MinMistakeProbability,
			MaxTimeoutProbability: cfg.MaxTimeoutProbability,
			MinTimeoutProbability: cfg.MinTimeoutProbability,
			LevelCapForScaling:    cfg.LevelCapForScaling,
		}, db)
		if err != nil {
			return fmt.Errorf("failed to create bot policy: %v", err)
		}

		registry := game.NewRegistry()
		scheduler := game.NewScheduler()
		engine := game.NewEngine(game.Config{
			TurnDuration: cfg.TurnDuration,
			MaxMistakes:  cfg.MaxMistakes,
			XP: game.XPConfig{
				RoundWin:    cfg.XPRoundWin,
				RoundLoss:   cfg.XPRoundLoss,
				RoundDraw:   cfg.XPRoundDraw,
				GameWin:     cfg.XPGameWin,
				GameLoss:    cfg.XPGameLoss,
				GameDraw:    cfg.XPGameDraw,
				GameForfeit: cfg.XPGameForfeit,
			},
		}, db, v)

		pool := matchmaking.NewPool(matchmaking.Config{
			BotThreshold: cfg.MatchmakingBotThreshold,
			MaxRounds:    cfg.MaxRounds,
			BotNamesFor:  cfg.BotNamesFor,
		}, db, registry)

		srv := server.NewServer(cfg, db, a, registry, scheduler, engine, pool, v, botPolicy)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go pool.Run(ctx, cfg.MatchmakingSweep)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		errChan := make(chan error, 1)
		go func() {
			logging.Info("Starting HTTP server", map[string]interface{}{"port": cfg.Port})
			if err := srv.Run(); err != nil {
				errChan <- fmt.Errorf("server error: %v", err)
			}
		}()

		select {
		case err := <-errChan:
			return err
		case sig := <-sigChan:
			logging.Info("Shutting down", map[string]interface{}{"signal": sig.String()})
			cancel()
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
