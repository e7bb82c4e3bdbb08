package game

import (
	"context"
	"strings"
	"time"

	"github.com/neo/wordextremist_backend/internal/database"
	"github.com/neo/wordextremist_backend/internal/logging"
	"github.com/neo/wordextremist_backend/internal/types"
	"github.com/neo/wordextremist_backend/internal/validator"
)

// Action is the closed set of things a player can do. The tagged union keeps
// illegal shapes unrepresentable and each transition exhaustively matched.
type Action interface {
	isAction()
}

// ClientReady acknowledges the current round's preamble
type ClientReady struct{}

// SubmitWord plays a word on the submitter's turn
type SubmitWord struct {
	Word string
}

// Timeout records that the acting player's turn clock expired
type Timeout struct{}

// SendEmoji forwards an emoji to the opponent
type SendEmoji struct {
	Emoji string
}

func (ClientReady) isAction() {}
func (SubmitWord) isAction()  {}
func (Timeout) isAction()     {}
func (SendEmoji) isAction()   {}

// HandleAction applies one inbound action to the session and returns the
// events to fan out. Illegal actions produce a targeted error event and no
// state change.
func (e *Engine) HandleAction(ctx context.Context, s *Session, playerID int64, action Action) []Event {
	s.Lock()
	defer s.Unlock()

	switch a := action.(type) {
	case ClientReady:
		return e.handleClientReady(s, playerID)
	case SubmitWord:
		return e.handleSubmitWord(ctx, s, playerID, a.Word)
	case Timeout:
		return e.handleTimeout(s, playerID, false)
	case SendEmoji:
		return e.handleSendEmoji(s, playerID, a.Emoji)
	default:
		return []Event{errorToPlayer(playerID, "Unknown action.")}
	}
}

// HandleTimerExpiry injects a timeout for the player whose clock ran out.
// Unlike a client-sent timeout it is silently dropped when stale: the
// scheduler may fire after the session moved on.
func (e *Engine) HandleTimerExpiry(s *Session, playerID int64) []Event {
	s.Lock()
	defer s.Unlock()

	if s.Status != types.StatusInProgress || s.CurrentPlayerID != playerID {
		return nil
	}
	return e.handleTimeout(s, playerID, true)
}

// HandleDisconnect forfeits the game to the remaining player. Terminal
// sessions are left untouched.
func (e *Engine) HandleDisconnect(s *Session, playerID int64) []Event {
	s.Lock()
	defer s.Unlock()

	if s.Status.IsTerminal() {
		return nil
	}

	remaining := s.opponentOf(playerID)
	s.Status = types.StatusAbandonedByPlayer
	s.WinnerUserID = &remaining

	e.grantXP(s, remaining, e.config.XP.GameForfeit)
	e.persistScores(s)
	if s.DBID != 0 {
		if err := e.db.FinalizeGame(s.DBID, &remaining, s.Status.String(), types.ReasonOpponentDisconnected.String()); err != nil {
			logging.Error("Failed to finalize abandoned game", map[string]interface{}{
				"game_id": s.GameID, "error": err.Error(),
			})
		}
	}

	logging.LogGameEvent("player_disconnected_forfeit", s.GameID, map[string]interface{}{
		"leaver_id": playerID,
		"winner_id": remaining,
	})

	return []Event{
		ToPlayer(remaining, EventPlayerDisconnectedInform, map[string]interface{}{
			"player_id":      playerID,
			"game_winner_id": remaining,
		}),
		ToAll(EventGameOver, e.gameOverPayload(s, types.ReasonOpponentDisconnected)),
	}
}

func (e *Engine) handleClientReady(s *Session, playerID int64) []Event {
	if s.Status != types.StatusWaitingForReady {
		return []Event{errorToPlayer(playerID, "Game is not waiting for ready.")}
	}

	s.ReadyPlayers[playerID] = struct{}{}
	if len(s.ReadyPlayers) < s.requiredReadyCount() {
		return nil
	}

	s.Status = types.StatusInProgress
	s.CurrentPlayerID = s.roundStarter(s.CurrentRound)
	now := time.Now()
	s.turnStartedAt = now
	s.TurnDeadline = now.Add(e.config.TurnDuration)

	logging.LogGameEvent("round_started", s.GameID, map[string]interface{}{
		"round":             s.CurrentRound,
		"current_player_id": s.CurrentPlayerID,
	})

	return []Event{ToAll(EventRoundStarted, map[string]interface{}{
		"round":                 s.CurrentRound,
		"current_player_id":     s.CurrentPlayerID,
		"last_action_timestamp": now.Unix(),
		"turn_duration_seconds": int(e.config.TurnDuration.Seconds()),
	})}
}

func (e *Engine) handleSubmitWord(ctx context.Context, s *Session, playerID int64, rawWord string) []Event {
	if s.Status != types.StatusInProgress {
		return []Event{errorToPlayer(playerID, "Game is not in progress.")}
	}
	if s.CurrentPlayerID != playerID {
		return []Event{errorToPlayer(playerID, "Not your turn.")}
	}

	word := strings.ToLower(strings.TrimSpace(rawWord))
	if word == "" {
		return []Event{errorToPlayer(playerID, "Word cannot be empty.")}
	}

	actor := s.Players[playerID]
	timeTaken := time.Since(s.turnStartedAt).Milliseconds()

	if _, played := s.wordsPlayedThisRound[word]; played {
		actor.MistakesInRound++
		s.ConsecutiveTimeouts = 0

		events := []Event{
			ToPlayer(playerID, EventValidationResult, map[string]interface{}{
				"word":     word,
				"is_valid": false,
				"message":  "Word already played this round.",
			}),
			ToPlayer(s.opponentOf(playerID), EventOpponentMistake, map[string]interface{}{
				"player_id": playerID,
				"mistakes":  actor.MistakesInRound,
			}),
		}
		if actor.MistakesInRound >= e.config.MaxMistakes {
			events = append(events, e.endRound(s, &playerID, types.ReasonRepeatedWordMaxMistakes)...)
		}
		return events
	}

	result, latency, err := e.validator.Validate(ctx, validator.Request{
		Word:       word,
		PromptID:   s.Prompt.ID,
		TargetWord: s.Prompt.TargetWord,
		PromptText: s.Prompt.PromptText,
		Sentence:   s.Prompt.Sentence,
		Language:   s.Language,
	})
	if err != nil {
		// The oracle being down must look like any other invalid word so the
		// game stays playable. No submission record: an unjudged word must
		// not poison the cache.
		actor.MistakesInRound++
		s.ConsecutiveTimeouts = 0

		events := []Event{
			ToPlayer(playerID, EventValidationResult, map[string]interface{}{
				"word":     word,
				"is_valid": false,
				"message":  "Validator unavailable",
			}),
			ToPlayer(s.opponentOf(playerID), EventOpponentMistake, map[string]interface{}{
				"player_id": playerID,
				"mistakes":  actor.MistakesInRound,
			}),
		}
		if actor.MistakesInRound >= e.config.MaxMistakes {
			events = append(events, e.endRound(s, &playerID, types.ReasonInvalidWordMaxMistakes)...)
		}
		return events
	}

	if !result.FromCache && s.DBID != 0 {
		if _, err := e.db.LogSubmission(&database.WordSubmission{
			GameID:              s.DBID,
			Round:               s.CurrentRound,
			PlayerID:            playerID,
			SentencePromptID:    s.Prompt.ID,
			SubmittedWord:       word,
			TimeTakenMs:         timeTaken,
			IsValid:             result.IsValid,
			CreativityScore:     result.CreativityScore,
			ValidationLatencyMs: latency,
		}); err != nil {
			logging.Error("Failed to log submission", map[string]interface{}{
				"game_id": s.GameID, "word": word, "error": err.Error(),
			})
		}
	}

	if result.IsValid {
		actor.WordsPlayed = append(actor.WordsPlayed, word)
		s.wordsPlayedThisRound[word] = struct{}{}
		s.wordsAcceptedThisRound[playerID]++
		s.ConsecutiveTimeouts = 0

		e.rotateTurn(s)

		return []Event{
			ToPlayer(playerID, EventValidationResult, map[string]interface{}{
				"word":             word,
				"is_valid":         true,
				"creativity_score": result.CreativityScore,
			}),
			ToPlayer(s.CurrentPlayerID, EventOpponentTurnEnded, map[string]interface{}{
				"opponent_player_id":   playerID,
				"opponent_played_word": word,
				"creativity_score":     result.CreativityScore,
				"current_player_id":    s.CurrentPlayerID,
			}),
		}
	}

	actor.MistakesInRound++
	s.ConsecutiveTimeouts = 0

	events := []Event{
		ToPlayer(playerID, EventValidationResult, map[string]interface{}{
			"word":     word,
			"is_valid": false,
			"message":  result.Reason,
		}),
		ToPlayer(s.opponentOf(playerID), EventOpponentMistake, map[string]interface{}{
			"player_id": playerID,
			"mistakes":  actor.MistakesInRound,
		}),
	}
	if actor.MistakesInRound >= e.config.MaxMistakes {
		events = append(events, e.endRound(s, &playerID, types.ReasonInvalidWordMaxMistakes)...)
	}
	return events
}

// handleTimeout processes an expired turn. Caller holds the lock; injected
// expiries have already been staleness-checked.
func (e *Engine) handleTimeout(s *Session, playerID int64, injected bool) []Event {
	if s.Status != types.StatusInProgress {
		if injected {
			return nil
		}
		return []Event{errorToPlayer(playerID, "Game is not in progress.")}
	}
	if s.CurrentPlayerID != playerID {
		if injected {
			return nil
		}
		return []Event{errorToPlayer(playerID, "Not your turn.")}
	}

	actor := s.Players[playerID]
	s.ConsecutiveTimeouts++
	actor.MistakesInRound++

	logging.LogGameEvent("turn_timeout", s.GameID, map[string]interface{}{
		"player_id":            playerID,
		"consecutive_timeouts": s.ConsecutiveTimeouts,
		"mistakes":             actor.MistakesInRound,
	})

	if s.ConsecutiveTimeouts >= 2 {
		// Both players let the clock run out: the side with fewer accepted
		// words this round loses; a tie is a draw.
		loser := e.doubleTimeoutLoser(s)
		return e.endRound(s, loser, types.ReasonDoubleTimeout)
	}

	if actor.MistakesInRound >= e.config.MaxMistakes {
		return e.endRound(s, &playerID, types.ReasonTimeoutMaxMistakes)
	}

	e.rotateTurn(s)
	return []Event{ToAll(EventTimeout, map[string]interface{}{
		"player_id":         playerID,
		"current_player_id": s.CurrentPlayerID,
	})}
}

func (e *Engine) handleSendEmoji(s *Session, playerID int64, emoji string) []Event {
	if s.Status.IsTerminal() {
		return []Event{errorToPlayer(playerID, "Game is over.")}
	}
	if emoji == "" {
		return []Event{errorToPlayer(playerID, "Emoji cannot be empty.")}
	}

	if s.DBID != 0 {
		if err := e.db.IncrementEmojis(s.DBID, playerID); err != nil {
			logging.Error("Failed to count emoji", map[string]interface{}{
				"game_id": s.GameID, "error": err.Error(),
			})
		}
	}

	return []Event{ToPlayer(s.opponentOf(playerID), EventEmojiBroadcast, map[string]interface{}{
		"sender_id": playerID,
		"emoji":     emoji,
	})}
}

// doubleTimeoutLoser picks the round loser after two consecutive timeouts:
// whoever accepted fewer words this round, nil on a tie. Caller holds the
// lock.
func (e *Engine) doubleTimeoutLoser(s *Session) *int64 {
	p1, p2 := s.PlayerOrder[0], s.PlayerOrder[1]
	c1, c2 := s.wordsAcceptedThisRound[p1], s.wordsAcceptedThisRound[p2]
	if c1 < c2 {
		return &p1
	}
	if c2 < c1 {
		return &p2
	}
	return nil
}

// endRound settles a round and either finishes the game or opens the next
// round. Caller holds the lock.
func (e *Engine) endRound(s *Session, roundLoser *int64, reason types.EndReason) []Event {
	var roundWinner *int64
	if roundLoser != nil {
		winner := s.opponentOf(*roundLoser)
		roundWinner = &winner
		s.Players[winner].Score++
		e.grantXP(s, winner, e.config.XP.RoundWin)
		e.grantXP(s, *roundLoser, e.config.XP.RoundLoss)
	} else {
		for id := range s.Players {
			e.grantXP(s, id, e.config.XP.RoundDraw)
		}
	}
	e.persistScores(s)

	logging.LogGameEvent("round_ended", s.GameID, map[string]interface{}{
		"round":  s.CurrentRound,
		"reason": reason.String(),
		"winner": roundWinner,
	})

	if e.isGameOver(s) {
		return e.finishGame(s, reason)
	}

	s.CurrentRound++
	s.resetRound()
	s.ConsecutiveTimeouts = 0

	prompt, err := e.db.RandomPrompt(s.Language)
	if err != nil {
		logging.Error("Failed to load prompt for next round", map[string]interface{}{
			"game_id": s.GameID, "round": s.CurrentRound, "error": err.Error(),
		})
		s.Status = types.StatusErrorContentLoad
		if s.DBID != 0 {
			if ferr := e.db.FinalizeGame(s.DBID, nil, s.Status.String(), types.ReasonUnknown.String()); ferr != nil {
				logging.Error("Failed to finalize errored game", map[string]interface{}{
					"game_id": s.GameID, "error": ferr.Error(),
				})
			}
		}
		return []Event{ToAll(EventErrorBroadcast, map[string]interface{}{
			"message": "No prompts available for the next round. The game cannot continue.",
		})}
	}
	s.Prompt = prompt
	s.Status = types.StatusWaitingForReady
	s.CurrentPlayerID = s.roundStarter(s.CurrentRound)

	payload := map[string]interface{}{
		"new_round_number":          s.CurrentRound,
		"previous_round_end_reason": reason.String(),
		"player1_state":             s.playerStatePayload(s.PlayerOrder[0]),
		"player2_state":             s.playerStatePayload(s.PlayerOrder[1]),
		"current_player_id":         s.CurrentPlayerID,
		"sentence":                  s.Prompt.Sentence,
		"prompt":                    s.Prompt.PromptText,
		"word_to_replace":           s.Prompt.TargetWord,
		"game_status":               s.Status.String(),
	}
	if roundWinner != nil {
		payload["round_winner_id"] = *roundWinner
	} else {
		payload["round_winner_id"] = nil
	}

	return []Event{ToAll(EventNewRoundStarted, payload)}
}

// isGameOver applies the termination rule: a majority of rounds won, or the
// final round completed. Caller holds the lock.
func (e *Engine) isGameOver(s *Session) bool {
	needed := s.MaxRounds/2 + 1
	for _, p := range s.Players {
		if p.Score >= needed {
			return true
		}
	}
	return s.CurrentRound >= s.MaxRounds
}

// finishGame settles the whole game. Caller holds the lock.
func (e *Engine) finishGame(s *Session, roundReason types.EndReason) []Event {
	p1, p2 := s.Players[s.PlayerOrder[0]], s.Players[s.PlayerOrder[1]]

	var winner *int64
	switch {
	case p1.Score > p2.Score:
		winner = &p1.ID
	case p2.Score > p1.Score:
		winner = &p2.ID
	}

	if winner != nil {
		loser := s.opponentOf(*winner)
		e.grantXP(s, *winner, e.config.XP.GameWin)
		e.grantXP(s, loser, e.config.XP.GameLoss)
	} else {
		for id := range s.Players {
			e.grantXP(s, id, e.config.XP.GameDraw)
		}
	}

	s.Status = types.StatusFinished
	s.WinnerUserID = winner

	// Ordinary conclusions all report the same reason; only double timeout
	// (and disconnect, handled elsewhere) carry their specific cause.
	reason := types.ReasonMaxRoundsOrScoreLimit
	if roundReason == types.ReasonDoubleTimeout {
		reason = types.ReasonDoubleTimeout
	}

	if s.DBID != 0 {
		if err := e.db.FinalizeGame(s.DBID, winner, s.Status.String(), reason.String()); err != nil {
			logging.Error("Failed to finalize game", map[string]interface{}{
				"game_id": s.GameID, "error": err.Error(),
			})
		}
	}

	logging.LogGameEvent("game_over", s.GameID, map[string]interface{}{
		"winner": winner,
		"scores": []int{p1.Score, p2.Score},
		"reason": reason.String(),
		"bot":    s.IsBotGame,
		"rounds": s.CurrentRound,
		"db_id":  s.DBID,
	})

	return []Event{ToAll(EventGameOver, e.gameOverPayload(s, reason))}
}

// gameOverPayload renders the terminal broadcast. Caller holds the lock.
func (e *Engine) gameOverPayload(s *Session, reason types.EndReason) map[string]interface{} {
	payload := map[string]interface{}{
		"player1_final_score": s.Players[s.PlayerOrder[0]].Score,
		"player2_final_score": s.Players[s.PlayerOrder[1]].Score,
		"reason":              reason.String(),
	}
	if s.WinnerUserID != nil {
		payload["game_winner_id"] = *s.WinnerUserID
	} else {
		payload["game_winner_id"] = nil
	}
	return payload
}

func errorToPlayer(playerID int64, message string) Event {
	return ToPlayer(playerID, EventErrorToPlayer, map[string]interface{}{
		"message": message,
	})
}
