package database

import "time"

// User represents a player account. The singleton bot user has IsBot set.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	XP           int        `json:"xp"`
	Level        int        `json:"level"`
	IsBot        bool       `json:"is_bot"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// SentencePrompt is one round's immutable puzzle: a sentence, the word in it
// to replace, and the instruction for how to replace it.
type SentencePrompt struct {
	ID         int64  `json:"id"`
	Sentence   string `json:"sentence_text"`
	TargetWord string `json:"target_word"`
	PromptText string `json:"prompt_text"`
	Language   string `json:"language"`
	Difficulty int    `json:"difficulty"`
}

// Game is the persisted record of a session.
type Game struct {
	ID            int64      `json:"id"`
	MatchmakingID string     `json:"matchmaking_id"`
	Player1ID     int64      `json:"player1_id"`
	Player2ID     int64      `json:"player2_id"`
	Language      string     `json:"language"`
	Player1Score  int        `json:"player1_score"`
	Player2Score  int        `json:"player2_score"`
	Player1Emojis int        `json:"player1_emojis"`
	Player2Emojis int        `json:"player2_emojis"`
	WinnerID      *int64     `json:"winner_id,omitempty"`
	Status        string     `json:"status"`
	EndReason     string     `json:"end_reason,omitempty"`
	IsBotGame     bool       `json:"is_bot_game"`
	CreatedAt     time.Time  `json:"created_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

// WordSubmission is an append-only record of one judged word. The table
// doubles as the validation cache: the latest row for a (prompt, word) pair
// holds the authoritative verdict.
type WordSubmission struct {
	ID                  int64     `json:"id"`
	GameID              int64     `json:"game_id"`
	Round               int       `json:"round"`
	PlayerID            int64     `json:"player_id"`
	SentencePromptID    int64     `json:"sentence_prompt_id"`
	SubmittedWord       string    `json:"submitted_word"`
	TimeTakenMs         int64     `json:"time_taken_ms"`
	IsValid             bool      `json:"is_valid"`
	CreativityScore     int       `json:"creativity_score"`
	ValidationLatencyMs int64     `json:"validation_latency_ms"`
	SubmittedAt         time.Time `json:"submitted_at"`
}
