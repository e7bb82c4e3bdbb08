package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/neo/wordextremist_backend/internal/database"
	"github.com/neo/wordextremist_backend/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			logging.Warn("Error loading .env file", map[string]interface{}{"error": err.Error()})
		}

		db, err := database.New(dataDir)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %v", err)
		}
		defer db.Close()

		if err := db.RunMigrations("migrations"); err != nil {
			return fmt.Errorf("failed to run migrations: %v", err)
		}

		fmt.Println("Database migrations completed successfully")
		return nil
	},
}

var dataDir string

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&dataDir, "data-dir", "data", "directory holding the sqlite database")
}
