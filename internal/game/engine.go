package game

import (
	"context"
	"time"

	"github.com/neo/wordextremist_backend/internal/database"
	"github.com/neo/wordextremist_backend/internal/logging"
	"github.com/neo/wordextremist_backend/internal/types"
	"github.com/neo/wordextremist_backend/internal/validator"
)

// WordValidator is the oracle contract the engine judges words through
type WordValidator interface {
	Validate(ctx context.Context, req validator.Request) (*validator.Result, int64, error)
}

// XPConfig holds the experience grants for round and game outcomes
type XPConfig struct {
	RoundWin    int
	RoundLoss   int
	RoundDraw   int
	GameWin     int
	GameLoss    int
	GameDraw    int
	GameForfeit int
}

// Config holds the rules the engine enforces
type Config struct {
	TurnDuration time.Duration
	MaxMistakes  int
	XP           XPConfig
}

// Engine applies actions to sessions. Every public method takes the
// session's lock for the full transition, including oracle and database
// calls, so all events for one action are produced atomically.
type Engine struct {
	config    Config
	db        database.DatabaseInterface
	validator WordValidator
}

// NewEngine creates the state machine engine
func NewEngine(config Config, db database.DatabaseInterface, v WordValidator) *Engine {
	return &Engine{config: config, db: db, validator: v}
}

// TurnDuration exposes the configured turn length for snapshot payloads
func (e *Engine) TurnDuration() time.Duration { return e.config.TurnDuration }

// Initialize moves a matched session to waiting_for_ready: loads the round
// prompt, persists the game record, and announces the setup to both players.
// Calling it in any other status is a no-op.
func (e *Engine) Initialize(ctx context.Context, s *Session) []Event {
	s.Lock()
	defer s.Unlock()

	if s.Status != types.StatusMatched {
		return nil
	}

	prompt, err := e.db.RandomPrompt(s.Language)
	if err != nil {
		logging.Error("Failed to load prompt for new game", map[string]interface{}{
			"game_id":  s.GameID,
			"language": s.Language,
			"error":    err.Error(),
		})
		s.Status = types.StatusErrorContentLoad
		return []Event{ToAll(EventErrorBroadcast, map[string]interface{}{
			"message": "No prompts available for this language. The game cannot start.",
		})}
	}
	s.Prompt = prompt

	dbID, err := e.db.CreateGame(s.GameID, s.PlayerOrder[0], s.PlayerOrder[1], s.Language, s.IsBotGame)
	if err != nil {
		// Availability over durability: the session plays on in memory.
		logging.Error("Failed to persist game record", map[string]interface{}{
			"game_id": s.GameID,
			"error":   err.Error(),
		})
	} else {
		s.DBID = dbID
	}

	s.CurrentPlayerID = s.roundStarter(1)
	s.CurrentRound = 1
	s.resetRound()
	s.Status = types.StatusWaitingForReady

	logging.LogGameEvent("game_setup_ready", s.GameID, map[string]interface{}{
		"db_id":    s.DBID,
		"language": s.Language,
		"prompt":   s.Prompt.ID,
		"bot_game": s.IsBotGame,
	})

	return []Event{ToAll(EventGameSetupReady, s.snapshotPayload(e.config.TurnDuration))}
}

// Snapshot produces a full-state event for one player, used on reconnect and
// when joining a terminal game.
func (e *Engine) Snapshot(s *Session, playerID int64) Event {
	s.Lock()
	defer s.Unlock()

	payload := s.snapshotPayload(e.config.TurnDuration)
	payload["game_active"] = s.Status == types.StatusInProgress || s.Status == types.StatusWaitingForReady
	return ToPlayer(playerID, EventGameStateReconnect, payload)
}

// rotateTurn hands the turn to the opponent and restarts the clock. Caller
// holds the lock.
func (e *Engine) rotateTurn(s *Session) {
	s.CurrentPlayerID = s.opponentOf(s.CurrentPlayerID)
	now := time.Now()
	s.turnStartedAt = now
	s.TurnDeadline = now.Add(e.config.TurnDuration)
}

// grantXP credits a human player; bot accounts never accrue experience.
// Caller holds the lock.
func (e *Engine) grantXP(s *Session, playerID int64, amount int) {
	p, ok := s.Players[playerID]
	if !ok || p.IsBot || amount == 0 {
		return
	}
	if err := e.db.GrantXP(playerID, amount); err != nil {
		logging.Error("Failed to grant XP", map[string]interface{}{
			"game_id":   s.GameID,
			"player_id": playerID,
			"amount":    amount,
			"error":     err.Error(),
		})
	}
}

// persistScores writes both players' scores, best-effort. Caller holds the
// lock.
func (e *Engine) persistScores(s *Session) {
	if s.DBID == 0 {
		return
	}
	for id, p := range s.Players {
		if err := e.db.UpdateScore(s.DBID, id, p.Score); err != nil {
			logging.Error("Failed to persist score", map[string]interface{}{
				"game_id":   s.GameID,
				"player_id": id,
				"error":     err.Error(),
			})
		}
	}
}
