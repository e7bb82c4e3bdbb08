package matchmaking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neo/wordextremist_backend/internal/database"
	"github.com/neo/wordextremist_backend/internal/game"
)

// fakeDB serves only the singleton bot lookup; the embedded interface keeps
// the type satisfied for methods the pool never calls.
type fakeDB struct {
	database.DatabaseInterface
	botErr error
}

func (f *fakeDB) GetSingletonBotUser() (*database.User, error) {
	if f.botErr != nil {
		return nil, f.botErr
	}
	return &database.User{ID: 99, Username: "__word_extremist_bot__", IsBot: true, Level: 1}, nil
}

func newTestPool(threshold time.Duration) (*Pool, *game.Registry) {
	registry := game.NewRegistry()
	pool := NewPool(Config{
		BotThreshold: threshold,
		MaxRounds:    3,
		BotNamesFor:  func(string) []string { return []string{"WordWizard"} },
	}, &fakeDB{}, registry)
	return pool, registry
}

func TestFirstPollEnqueues(t *testing.T) {
	pool, registry := newTestPool(time.Minute)

	match, matched := pool.FindMatch(Candidate{UserID: 1, Username: "alice", Level: 3}, "en")

	assert.False(t, matched)
	assert.Nil(t, match)
	assert.Equal(t, map[string]int{"en": 1}, pool.QueueDepths())
	assert.Equal(t, 0, registry.Count())
}

func TestRepollingIsIdempotent(t *testing.T) {
	pool, _ := newTestPool(time.Minute)
	c := Candidate{UserID: 1, Username: "alice", Level: 3}

	pool.FindMatch(c, "en")
	pool.FindMatch(c, "en")
	// Even naming a different language must not double-enqueue.
	pool.FindMatch(c, "de")

	assert.Equal(t, map[string]int{"en": 1}, pool.QueueDepths())
}

func TestSecondPlayerMatchesImmediately(t *testing.T) {
	pool, registry := newTestPool(time.Minute)
	alice := Candidate{UserID: 1, Username: "alice", Level: 3}
	bob := Candidate{UserID: 2, Username: "bob", Level: 5}

	_, matched := pool.FindMatch(alice, "en")
	require.False(t, matched)

	bobMatch, matched := pool.FindMatch(bob, "en")
	require.True(t, matched)
	assert.Equal(t, int64(1), bobMatch.OpponentID)
	assert.Equal(t, "alice", bobMatch.OpponentName)
	assert.False(t, bobMatch.IsBotGame)

	s, ok := registry.Get(bobMatch.GameID)
	require.True(t, ok)
	assert.True(t, s.HasPlayer(1))
	assert.True(t, s.HasPlayer(2))

	// Alice claims the same game on her next poll.
	aliceMatch, matched := pool.FindMatch(alice, "en")
	require.True(t, matched)
	assert.Equal(t, bobMatch.GameID, aliceMatch.GameID)
	assert.Equal(t, int64(2), aliceMatch.OpponentID)
	assert.Equal(t, map[string]int{}, pool.QueueDepths())
}

func TestLanguagesDoNotCrossMatch(t *testing.T) {
	pool, _ := newTestPool(time.Minute)

	pool.FindMatch(Candidate{UserID: 1, Username: "alice", Level: 3}, "en")
	_, matched := pool.FindMatch(Candidate{UserID: 2, Username: "ben", Level: 2}, "de")

	assert.False(t, matched)
	assert.Equal(t, map[string]int{"en": 1, "de": 1}, pool.QueueDepths())
}

func TestCancelRemovesFromQueue(t *testing.T) {
	pool, _ := newTestPool(time.Minute)
	pool.FindMatch(Candidate{UserID: 1, Username: "alice", Level: 3}, "en")

	pool.Cancel(1)

	assert.Equal(t, map[string]int{}, pool.QueueDepths())
	// Another player enqueues instead of matching the cancelled one.
	_, matched := pool.FindMatch(Candidate{UserID: 2, Username: "bob", Level: 5}, "en")
	assert.False(t, matched)
}

func TestSweepPairsLongWaiterWithBot(t *testing.T) {
	pool, registry := newTestPool(0)
	alice := Candidate{UserID: 1, Username: "alice", Level: 8}
	pool.FindMatch(alice, "en")

	pool.Sweep()

	match, matched := pool.FindMatch(alice, "en")
	require.True(t, matched)
	assert.True(t, match.IsBotGame)
	assert.Equal(t, int64(99), match.OpponentID)
	assert.Equal(t, "WordWizard", match.OpponentName)
	assert.GreaterOrEqual(t, match.OpponentLevel, 3)
	assert.LessOrEqual(t, match.OpponentLevel, 13)

	s, ok := registry.Get(match.GameID)
	require.True(t, ok)
	assert.True(t, s.IsBotGame)
	assert.Equal(t, map[string]int{}, pool.QueueDepths())
}

func TestSweepLeavesFreshWaitersAlone(t *testing.T) {
	pool, _ := newTestPool(time.Minute)
	pool.FindMatch(Candidate{UserID: 1, Username: "alice", Level: 3}, "en")

	pool.Sweep()

	_, matched := pool.FindMatch(Candidate{UserID: 1, Username: "alice", Level: 3}, "en")
	assert.False(t, matched)
	assert.Equal(t, map[string]int{"en": 1}, pool.QueueDepths())
}
