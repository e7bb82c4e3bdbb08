package game

// Event type names form the stable wire contract with clients.
const (
	EventGameSetupReady           = "game_setup_ready"
	EventRoundStarted             = "round_started"
	EventNewRoundStarted          = "new_round_started"
	EventGameStateReconnect       = "game_state_reconnect"
	EventValidationResult         = "validation_result"
	EventOpponentTurnEnded        = "opponent_turn_ended"
	EventOpponentMistake          = "opponent_mistake"
	EventTimeout                  = "timeout"
	EventEmojiBroadcast           = "emoji_broadcast"
	EventPlayerDisconnectedInform = "player_disconnected_inform"
	EventGameOver                 = "game_over"
	EventErrorToPlayer            = "error_message_to_player"
	EventErrorBroadcast           = "error_message_broadcast"
	EventStatus                   = "status"
)

// Event is one outbound message produced by a state transition. It targets
// either a single player or everyone in the game, optionally excluding one.
type Event struct {
	Type            string
	Payload         map[string]interface{}
	TargetPlayerID  *int64
	Broadcast       bool
	ExcludePlayerID *int64
}

// ToPlayer builds an event addressed to a single player
func ToPlayer(playerID int64, eventType string, payload map[string]interface{}) Event {
	return Event{Type: eventType, Payload: payload, TargetPlayerID: &playerID}
}

// ToAll builds a broadcast event
func ToAll(eventType string, payload map[string]interface{}) Event {
	return Event{Type: eventType, Payload: payload, Broadcast: true}
}

// ToAllExcept builds a broadcast event that skips one player
func ToAllExcept(excludeID int64, eventType string, payload map[string]interface{}) Event {
	return Event{Type: eventType, Payload: payload, Broadcast: true, ExcludePlayerID: &excludeID}
}

// ToDict renders the event in the client wire format
func (e Event) ToDict() map[string]interface{} {
	return map[string]interface{}{
		"type":    e.Type,
		"payload": e.Payload,
	}
}
