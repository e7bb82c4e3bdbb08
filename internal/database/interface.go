package database

// DatabaseInterface defines the persistence operations the game server needs.
// Game-flow callers treat failures as best-effort: a write error is logged
// and play continues in memory.
type DatabaseInterface interface {
	Close() error

	// Identity
	CreateUser(username, password string) (*User, error)
	GetUserByID(id int64) (*User, error)
	GetUserByUsername(username string) (*User, error)
	VerifyPassword(username, password string) (*User, error)
	GetSingletonBotUser() (*User, error)
	GrantXP(userID int64, amount int) error

	// Content
	RandomPrompt(language string) (*SentencePrompt, error)
	CreatePrompt(prompt *SentencePrompt) (int64, error)

	// Games
	CreateGame(matchmakingID string, player1ID, player2ID int64, language string, isBotGame bool) (int64, error)
	UpdateScore(gameID, playerID int64, score int) error
	FinalizeGame(gameID int64, winnerID *int64, status, endReason string) error
	IncrementEmojis(gameID, playerID int64) error

	// Submissions (validation cache)
	LogSubmission(sub *WordSubmission) (int64, error)
	LookupSubmission(promptID int64, word string) (*WordSubmission, error)
	RandomValidSubmission(promptID int64, exclude []string) (*WordSubmission, error)

	// Migration runner
	RunMigrations(migrationsDir string) error
}

// Ensure Database implements DatabaseInterface
var _ DatabaseInterface = (*Database)(nil)
