package types

import (
	"fmt"
)

// GameStatus represents the lifecycle state of a game session
type GameStatus string

const (
	StatusMatched           GameStatus = "matched"             // Both players assigned, sockets not yet confirmed
	StatusWaitingForReady   GameStatus = "waiting_for_ready"   // Prompt loaded, waiting for client_ready acks
	StatusInProgress        GameStatus = "in_progress"         // Turns are being played
	StatusFinished          GameStatus = "finished"            // Game concluded normally
	StatusAbandonedByPlayer GameStatus = "abandoned_by_player" // A player disconnected mid-game
	StatusErrorContentLoad  GameStatus = "error_content_load"  // No prompt available for the language
)

// EndReason explains why a round or game ended
type EndReason string

const (
	ReasonRepeatedWordMaxMistakes EndReason = "repeated_word_max_mistakes"
	ReasonInvalidWordMaxMistakes  EndReason = "invalid_word_max_mistakes"
	ReasonTimeoutMaxMistakes      EndReason = "timeout_max_mistakes"
	ReasonDoubleTimeout           EndReason = "double_timeout"
	ReasonOpponentDisconnected    EndReason = "opponent_disconnected"
	ReasonMaxRoundsOrScoreLimit   EndReason = "max_rounds_reached_or_score_limit"
	ReasonUnknown                 EndReason = "unknown"
)

// ActionType is the closed set of inbound websocket actions
type ActionType string

const (
	ActionClientReady ActionType = "client_ready"
	ActionSubmitWord  ActionType = "submit_word"
	ActionTimeout     ActionType = "timeout"
	ActionSendEmoji   ActionType = "send_emoji"
)

var (
	gameStatusMap = map[string]GameStatus{
		string(StatusMatched):           StatusMatched,
		string(StatusWaitingForReady):   StatusWaitingForReady,
		string(StatusInProgress):        StatusInProgress,
		string(StatusFinished):          StatusFinished,
		string(StatusAbandonedByPlayer): StatusAbandonedByPlayer,
		string(StatusErrorContentLoad):  StatusErrorContentLoad,
	}

	actionTypeMap = map[string]ActionType{
		string(ActionClientReady): ActionClientReady,
		string(ActionSubmitWord):  ActionSubmitWord,
		string(ActionTimeout):     ActionTimeout,
		string(ActionSendEmoji):   ActionSendEmoji,
	}
)

// Error types for invalid values
var (
	ErrInvalidGameStatus = fmt.Errorf("invalid game status")
	ErrInvalidActionType = fmt.Errorf("invalid action type")
)

// IsValid checks if the GameStatus is valid
func (s GameStatus) IsValid() bool {
	_, ok := gameStatusMap[string(s)]
	return ok
}

// IsTerminal reports whether the status ends the session
func (s GameStatus) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusAbandonedByPlayer, StatusErrorContentLoad:
		return true
	default:
		return false
	}
}

// String converts the enum to string
func (s GameStatus) String() string {
	return string(s)
}

// ParseGameStatus parses a string into a GameStatus
func ParseGameStatus(s string) (GameStatus, error) {
	if status, ok := gameStatusMap[s]; ok {
		return status, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidGameStatus, s)
}

// String converts the enum to string
func (r EndReason) String() string {
	return string(r)
}

// IsValid checks if the ActionType is valid
func (a ActionType) IsValid() bool {
	_, ok := actionTypeMap[string(a)]
	return ok
}

// String converts the enum to string
func (a ActionType) String() string {
	return string(a)
}

// ParseActionType parses a string into an ActionType
func ParseActionType(s string) (ActionType, error) {
	if action, ok := actionTypeMap[s]; ok {
		return action, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidActionType, s)
}
