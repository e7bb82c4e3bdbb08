package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewInMemory()
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations("../../migrations"))
	t.Cleanup(func() { db.Close() })
	return db
}

func seedPrompt(t *testing.T, db *Database) int64 {
	t.Helper()
	id, err := db.CreatePrompt(&SentencePrompt{
		Sentence:   "The party was fun",
		TargetWord: "fun",
		PromptText: "Make it sound more extreme",
		Language:   "en",
		Difficulty: 1,
	})
	require.NoError(t, err)
	return id
}

func TestCreateAndVerifyUser(t *testing.T) {
	db := newTestDB(t)

	user, err := db.CreateUser("alice", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 0, user.XP)
	assert.Equal(t, 1, user.Level)
	assert.False(t, user.IsBot)
	assert.Nil(t, user.LastLogin)

	verified, err := db.VerifyPassword("alice", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.ID)
	assert.NotNil(t, verified.LastLogin)

	_, err = db.VerifyPassword("alice", "wrong")
	assert.Error(t, err)

	_, err = db.VerifyPassword("nobody", "whatever")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	db := newTestDB(t)

	_, err := db.CreateUser("alice", "hunter2hunter2")
	require.NoError(t, err)
	_, err = db.CreateUser("alice", "otherpassword")
	assert.Error(t, err)
}

func TestGrantXPRecomputesLevel(t *testing.T) {
	db := newTestDB(t)
	user, err := db.CreateUser("alice", "hunter2hunter2")
	require.NoError(t, err)

	require.NoError(t, db.GrantXP(user.ID, 950))
	got, err := db.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 950, got.XP)
	assert.Equal(t, 1, got.Level)

	require.NoError(t, db.GrantXP(user.ID, 100))
	got, err = db.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1050, got.XP)
	assert.Equal(t, 2, got.Level)
}

func TestSingletonBotUser(t *testing.T) {
	db := newTestDB(t)

	bot, err := db.GetSingletonBotUser()
	require.NoError(t, err)
	assert.True(t, bot.IsBot)
	assert.Equal(t, BotUsername, bot.Username)

	again, err := db.GetSingletonBotUser()
	require.NoError(t, err)
	assert.Equal(t, bot.ID, again.ID)
}

func TestRandomPromptByLanguage(t *testing.T) {
	db := newTestDB(t)
	seedPrompt(t, db)

	p, err := db.RandomPrompt("en")
	require.NoError(t, err)
	assert.Equal(t, "fun", p.TargetWord)

	// Language lookup is case-insensitive.
	_, err = db.RandomPrompt("EN")
	assert.NoError(t, err)

	_, err = db.RandomPrompt("fr")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePromptRejectsMissingTargetWord(t *testing.T) {
	db := newTestDB(t)

	_, err := db.CreatePrompt(&SentencePrompt{
		Sentence:   "The party was fun",
		TargetWord: "boring",
		PromptText: "x",
		Language:   "en",
	})
	assert.Error(t, err)
}

func TestGameLifecycle(t *testing.T) {
	db := newTestDB(t)
	alice, _ := db.CreateUser("alice", "hunter2hunter2")
	bob, _ := db.CreateUser("bob", "hunter2hunter2")

	gameID, err := db.CreateGame("mm-123", alice.ID, bob.ID, "en", false)
	require.NoError(t, err)
	assert.NotZero(t, gameID)

	require.NoError(t, db.UpdateScore(gameID, alice.ID, 1))
	require.NoError(t, db.UpdateScore(gameID, bob.ID, 2))
	require.NoError(t, db.IncrementEmojis(gameID, alice.ID))
	require.NoError(t, db.FinalizeGame(gameID, &bob.ID, "finished", "max_rounds_reached_or_score_limit"))
}

func TestSubmissionCacheRoundTrip(t *testing.T) {
	db := newTestDB(t)
	alice, _ := db.CreateUser("alice", "hunter2hunter2")
	bob, _ := db.CreateUser("bob", "hunter2hunter2")
	promptID := seedPrompt(t, db)
	gameID, err := db.CreateGame("mm-123", alice.ID, bob.ID, "en", false)
	require.NoError(t, err)

	_, err = db.LogSubmission(&WordSubmission{
		GameID:           gameID,
		Round:            1,
		PlayerID:         alice.ID,
		SentencePromptID: promptID,
		SubmittedWord:    "Colossal",
		TimeTakenMs:      4200,
		IsValid:          true,
		CreativityScore:  4,
	})
	require.NoError(t, err)

	// Words are stored and looked up lowercased.
	sub, err := db.LookupSubmission(promptID, "  COLOSSAL ")
	require.NoError(t, err)
	assert.Equal(t, "colossal", sub.SubmittedWord)
	assert.True(t, sub.IsValid)
	assert.Equal(t, 4, sub.CreativityScore)

	_, err = db.LookupSubmission(promptID, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupSubmissionReturnsLatestVerdict(t *testing.T) {
	db := newTestDB(t)
	alice, _ := db.CreateUser("alice", "hunter2hunter2")
	bob, _ := db.CreateUser("bob", "hunter2hunter2")
	promptID := seedPrompt(t, db)
	gameID, _ := db.CreateGame("mm-123", alice.ID, bob.ID, "en", false)

	_, err := db.LogSubmission(&WordSubmission{
		GameID: gameID, Round: 1, PlayerID: alice.ID, SentencePromptID: promptID,
		SubmittedWord: "wild", IsValid: false, CreativityScore: 0,
	})
	require.NoError(t, err)
	_, err = db.LogSubmission(&WordSubmission{
		GameID: gameID, Round: 2, PlayerID: bob.ID, SentencePromptID: promptID,
		SubmittedWord: "wild", IsValid: true, CreativityScore: 3,
	})
	require.NoError(t, err)

	sub, err := db.LookupSubmission(promptID, "wild")
	require.NoError(t, err)
	assert.True(t, sub.IsValid)
}

func TestRandomValidSubmissionFiltersAndExcludes(t *testing.T) {
	db := newTestDB(t)
	alice, _ := db.CreateUser("alice", "hunter2hunter2")
	bob, _ := db.CreateUser("bob", "hunter2hunter2")
	promptID := seedPrompt(t, db)
	gameID, _ := db.CreateGame("mm-123", alice.ID, bob.ID, "en", false)

	log := func(word string, valid bool, creativity int) {
		_, err := db.LogSubmission(&WordSubmission{
			GameID: gameID, Round: 1, PlayerID: alice.ID, SentencePromptID: promptID,
			SubmittedWord: word, IsValid: valid, CreativityScore: creativity,
		})
		require.NoError(t, err)
	}
	log("rejected", false, 0)
	log("obvious", true, 1) // creativity too low to recycle
	log("seismic", true, 4)

	sub, err := db.RandomValidSubmission(promptID, nil)
	require.NoError(t, err)
	assert.Equal(t, "seismic", sub.SubmittedWord)

	_, err = db.RandomValidSubmission(promptID, []string{"Seismic"})
	assert.ErrorIs(t, err, ErrNotFound)
}
