package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neo/wordextremist_backend/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "wordextremist",
	Short: "Word Extremist - authoritative game server",
	Long: `Word Extremist is the authoritative backend for a turn-based two-player
word game. It runs matchmaking, the per-game state machine, the websocket
transport, and the LLM validation oracle.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.INFO
		if os.Getenv("DEBUG") != "" {
			level = logging.DEBUG
		}
		if err := logging.InitDefaultLogger(logging.Config{
			Level:   level,
			Colored: true,
		}); err != nil {
			fmt.Printf("Warning: failed to initialize logger: %v\n", err)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Global flags can be added here
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is .env)")
}
