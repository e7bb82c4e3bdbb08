package game

import (
	"github.com/stretchr/testify/mock"

	"github.com/neo/wordextremist_backend/internal/database"
)

// MockDatabase is a testify mock of database.DatabaseInterface
type MockDatabase struct {
	mock.Mock
}

func (m *MockDatabase) Close() error {
	return m.Called().Error(0)
}

func (m *MockDatabase) CreateUser(username, password string) (*database.User, error) {
	args := m.Called(username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.User), args.Error(1)
}

func (m *MockDatabase) GetUserByID(id int64) (*database.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.User), args.Error(1)
}

func (m *MockDatabase) GetUserByUsername(username string) (*database.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.User), args.Error(1)
}

func (m *MockDatabase) VerifyPassword(username, password string) (*database.User, error) {
	args := m.Called(username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.User), args.Error(1)
}

func (m *MockDatabase) GetSingletonBotUser() (*database.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.User), args.Error(1)
}

func (m *MockDatabase) GrantXP(userID int64, amount int) error {
	return m.Called(userID, amount).Error(0)
}

func (m *MockDatabase) RandomPrompt(language string) (*database.SentencePrompt, error) {
	args := m.Called(language)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.SentencePrompt), args.Error(1)
}

func (m *MockDatabase) CreatePrompt(prompt *database.SentencePrompt) (int64, error) {
	args := m.Called(prompt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDatabase) CreateGame(matchmakingID string, player1ID, player2ID int64, language string, isBotGame bool) (int64, error) {
	args := m.Called(matchmakingID, player1ID, player2ID, language, isBotGame)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDatabase) UpdateScore(gameID, playerID int64, score int) error {
	return m.Called(gameID, playerID, score).Error(0)
}

func (m *MockDatabase) FinalizeGame(gameID int64, winnerID *int64, status, endReason string) error {
	return m.Called(gameID, winnerID, status, endReason).Error(0)
}

func (m *MockDatabase) IncrementEmojis(gameID, playerID int64) error {
	return m.Called(gameID, playerID).Error(0)
}

func (m *MockDatabase) LogSubmission(sub *database.WordSubmission) (int64, error) {
	args := m.Called(sub)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDatabase) LookupSubmission(promptID int64, word string) (*database.WordSubmission, error) {
	args := m.Called(promptID, word)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.WordSubmission), args.Error(1)
}

func (m *MockDatabase) RandomValidSubmission(promptID int64, exclude []string) (*database.WordSubmission, error) {
	args := m.Called(promptID, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*database.WordSubmission), args.Error(1)
}

func (m *MockDatabase) RunMigrations(migrationsDir string) error {
	return m.Called(migrationsDir).Error(0)
}
