package game

import (
	"sync"
	"time"

	"github.com/neo/wordextremist_backend/internal/database"
	"github.com/neo/wordextremist_backend/internal/types"
)

// PlayerState is one player's standing within a session
type PlayerState struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Level           int      `json:"level"`
	IsBot           bool     `json:"is_bot"`
	Score           int      `json:"score"`
	MistakesInRound int      `json:"mistakes_in_current_round"`
	WordsPlayed     []string `json:"words_played"`
}

// Session is the authoritative in-memory state of one game. Every mutation
// happens under mu, which transitions hold across oracle and database calls
// so event ordering is total per session.
type Session struct {
	mu sync.Mutex

	GameID   string
	DBID     int64 // persisted game row id, for logging and writes
	Language string

	Players     map[int64]*PlayerState
	PlayerOrder [2]int64

	CurrentPlayerID int64
	CurrentRound    int
	MaxRounds       int

	Prompt *database.SentencePrompt

	// wordsPlayedThisRound holds every lowercased word submitted this round,
	// accepted or rejected as a duplicate; membership makes a resubmission a
	// mistake.
	wordsPlayedThisRound map[string]struct{}
	// wordsAcceptedThisRound counts accepted words per player this round,
	// for the double-timeout tiebreak.
	wordsAcceptedThisRound map[int64]int

	ConsecutiveTimeouts int
	ReadyPlayers        map[int64]struct{}

	TurnDeadline  time.Time
	turnStartedAt time.Time

	WinnerUserID *int64
	Status       types.GameStatus
	IsBotGame    bool

	CreatedAt time.Time
}

// NewSession creates a session in the matched state. The player order is the
// matchmaking order; round one starts with the first player.
func NewSession(gameID, language string, p1, p2 *PlayerState, maxRounds int, isBotGame bool) *Session {
	return &Session{
		GameID:                 gameID,
		Language:               language,
		Players:                map[int64]*PlayerState{p1.ID: p1, p2.ID: p2},
		PlayerOrder:            [2]int64{p1.ID, p2.ID},
		CurrentRound:           1,
		MaxRounds:              maxRounds,
		wordsPlayedThisRound:   make(map[string]struct{}),
		wordsAcceptedThisRound: make(map[int64]int),
		ReadyPlayers:           make(map[int64]struct{}),
		Status:                 types.StatusMatched,
		IsBotGame:              isBotGame,
		CreatedAt:              time.Now(),
	}
}

// Lock acquires the session's single-writer lock
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's single-writer lock
func (s *Session) Unlock() { s.mu.Unlock() }

// GetStatus retrieves the current status safely
func (s *Session) GetStatus() types.GameStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Status
}

// opponentOf returns the other player's id. Caller holds the lock.
func (s *Session) opponentOf(playerID int64) int64 {
	if s.PlayerOrder[0] == playerID {
		return s.PlayerOrder[1]
	}
	return s.PlayerOrder[0]
}

// HasPlayer reports whether the given id is one of the two participants
func (s *Session) HasPlayer(playerID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Players[playerID]
	return ok
}

// roundStarter returns who opens the given round: p1 for odd rounds, p2 for
// even ones. Caller holds the lock.
func (s *Session) roundStarter(round int) int64 {
	if round%2 == 1 {
		return s.PlayerOrder[0]
	}
	return s.PlayerOrder[1]
}

// resetRound clears all per-round state. Caller holds the lock.
func (s *Session) resetRound() {
	s.wordsPlayedThisRound = make(map[string]struct{})
	s.wordsAcceptedThisRound = make(map[int64]int)
	s.ConsecutiveTimeouts = 0
	s.ReadyPlayers = make(map[int64]struct{})
	for _, p := range s.Players {
		p.MistakesInRound = 0
	}
}

// requiredReadyCount is 1 for bot games (the bot never acks), 2 otherwise.
// Caller holds the lock.
func (s *Session) requiredReadyCount() int {
	if s.IsBotGame {
		return 1
	}
	return 2
}

// RecordTurnDeadline notes when the currently armed turn timer will fire.
// Every arm refreshes it, including re-arms after non-rotating actions, so
// the recorded deadline always matches the live timer.
func (s *Session) RecordTurnDeadline(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TurnDeadline = time.Now().Add(d)
}

// CurrentPlayerIsBot reports whether the turn belongs to the bot
func (s *Session) CurrentPlayerIsBot() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status != types.StatusInProgress {
		return false
	}
	p, ok := s.Players[s.CurrentPlayerID]
	return ok && p.IsBot
}

// CurrentTurn returns the session status and whose turn it is
func (s *Session) CurrentTurn() (types.GameStatus, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Status, s.CurrentPlayerID
}

// OpponentLevel returns the level of the given player's opponent
func (s *Session) OpponentLevel(playerID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.Players[s.opponentOf(playerID)]; ok {
		return p.Level
	}
	return 1
}

// RoundWords returns a copy of all words played this round
func (s *Session) RoundWords() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roundWordsLocked()
}

func (s *Session) roundWordsLocked() []string {
	words := make([]string, 0, len(s.wordsPlayedThisRound))
	for w := range s.wordsPlayedThisRound {
		words = append(words, w)
	}
	return words
}

// playerStatePayload renders one player's state for the wire. Caller holds
// the lock.
func (s *Session) playerStatePayload(playerID int64) map[string]interface{} {
	p := s.Players[playerID]
	words := make([]string, len(p.WordsPlayed))
	copy(words, p.WordsPlayed)
	return map[string]interface{}{
		"id":                        p.ID,
		"name":                      p.Name,
		"level":                     p.Level,
		"is_bot":                    p.IsBot,
		"score":                     p.Score,
		"mistakes_in_current_round": p.MistakesInRound,
		"words_played":              words,
	}
}

// snapshotPayload renders the full game state, the shape shared by
// game_setup_ready and game_state_reconnect. Caller holds the lock.
func (s *Session) snapshotPayload(turnDuration time.Duration) map[string]interface{} {
	payload := map[string]interface{}{
		"game_id":               s.GameID,
		"language":              s.Language,
		"round":                 s.CurrentRound,
		"max_rounds":            s.MaxRounds,
		"player1_server_id":     s.PlayerOrder[0],
		"player2_server_id":     s.PlayerOrder[1],
		"player1_state":         s.playerStatePayload(s.PlayerOrder[0]),
		"player2_state":         s.playerStatePayload(s.PlayerOrder[1]),
		"current_player_id":     s.CurrentPlayerID,
		"turn_duration_seconds": int(turnDuration.Seconds()),
		"game_status":           s.Status.String(),
	}
	if s.Prompt != nil {
		payload["sentence"] = s.Prompt.Sentence
		payload["prompt"] = s.Prompt.PromptText
		payload["word_to_replace"] = s.Prompt.TargetWord
	}
	return payload
}
