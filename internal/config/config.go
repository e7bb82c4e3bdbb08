package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all startup configuration for the game server.
// Values are read once from the environment (populated by godotenv in cmd/serve).
type Config struct {
	Port    string
	DataDir string

	JWTSecret     string
	TokenDuration time.Duration

	OpenAIKey       string
	ValidatorModels []string // ordered fallback chain for the validation oracle
	BotModel        string

	TurnDuration time.Duration
	MaxRounds    int
	MaxMistakes  int

	MatchmakingBotThreshold time.Duration
	MatchmakingSweep        time.Duration

	MaxMistakeProbability float64
	MinMistakeProbability float64
	MaxTimeoutProbability float64
	MinTimeoutProbability float64
	LevelCapForScaling    int

	XPRoundWin    int
	XPRoundLoss   int
	XPRoundDraw   int
	XPGameWin     int
	XPGameLoss    int
	XPGameDraw    int
	XPGameForfeit int

	// BotNames maps a language code to the display names a bot may use.
	BotNames map[string][]string
}

// Load reads configuration from the environment, applying defaults for
// anything unset. JWT_SECRET and OPENAI_API_KEY are required.
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		DataDir: getEnv("DATA_DIR", "data"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenDuration: time.Duration(getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,

		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		ValidatorModels: getEnvList("VALIDATOR_MODELS", []string{"gpt-4o-mini", "gpt-3.5-turbo"}),
		BotModel:        getEnv("BOT_MODEL", "gpt-4o-mini"),

		TurnDuration: time.Duration(getEnvInt("TURN_DURATION_SECONDS", 30)) * time.Second,
		MaxRounds:    getEnvInt("GAME_MAX_ROUNDS", 3),
		MaxMistakes:  getEnvInt("MAX_MISTAKES", 3),

		MatchmakingBotThreshold: time.Duration(getEnvInt("MATCHMAKING_BOT_THRESHOLD_SECONDS", 15)) * time.Second,
		MatchmakingSweep:        time.Duration(getEnvInt("MATCHMAKING_SWEEP_SECONDS", 15)) * time.Second,

		MaxMistakeProbability: getEnvFloat("MAX_MISTAKE_PROBABILITY", 0.40),
		MinMistakeProbability: getEnvFloat("MIN_MISTAKE_PROBABILITY", 0.05),
		MaxTimeoutProbability: getEnvFloat("MAX_TIMEOUT_PROBABILITY", 0.25),
		MinTimeoutProbability: getEnvFloat("MIN_TIMEOUT_PROBABILITY", 0.02),
		LevelCapForScaling:    getEnvInt("LEVEL_CAP_FOR_SCALING", 20),

		XPRoundWin:    getEnvInt("XP_ROUND_WIN", 50),
		XPRoundLoss:   getEnvInt("XP_ROUND_LOSS", 10),
		XPRoundDraw:   getEnvInt("XP_ROUND_DRAW", 25),
		XPGameWin:     getEnvInt("XP_GAME_WIN", 150),
		XPGameLoss:    getEnvInt("XP_GAME_LOSS", 30),
		XPGameDraw:    getEnvInt("XP_GAME_DRAW", 75),
		XPGameForfeit: getEnvInt("XP_GAME_FORFEIT", 100),

		BotNames: defaultBotNames(),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set in the environment variables")
	}
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set in the environment variables")
	}
	if len(cfg.ValidatorModels) == 0 {
		return nil, fmt.Errorf("VALIDATOR_MODELS must name at least one model")
	}

	return cfg, nil
}

// BotNamesFor returns the display name pool for a language, falling back to
// the English list for languages without their own pool.
func (c *Config) BotNamesFor(language string) []string {
	if names, ok := c.BotNames[strings.ToLower(language)]; ok && len(names) > 0 {
		return names
	}
	return c.BotNames["en"]
}

func defaultBotNames() map[string][]string {
	return map[string][]string{
		"en": {"WordWizard", "LexiconLarry", "VerboseVera", "SyllableSam", "PhrasePhoebe"},
		"es": {"PalabraPablo", "LexicoLucia", "VerboVicente", "FraseFernanda", "SilabaSofia"},
		"de": {"WortWilhelm", "SilbenSabine", "PhrasenPaul", "LexikonLena", "VokabelVera"},
		"fr": {"MotMarcel", "LexiqueLea", "VerbeVictor", "PhrasePauline", "SyllabeSylvie"},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
