package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/neo/wordextremist_backend/internal/bot"
	"github.com/neo/wordextremist_backend/internal/game"
	"github.com/neo/wordextremist_backend/internal/logging"
	"github.com/neo/wordextremist_backend/internal/types"
)

const botMoveTimeout = 15 * time.Second

// playerConn is one player's live socket. Writes are serialized per socket:
// gorilla/websocket allows one concurrent writer.
type playerConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (pc *playerConn) writeJSON(v interface{}) error {
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	return pc.ws.WriteJSON(v)
}

// connManager tracks the live sockets per game. A player reconnecting
// replaces their old socket, which is closed.
type connManager struct {
	mu    sync.Mutex
	games map[string]map[int64]*playerConn
}

func newConnManager() *connManager {
	return &connManager{games: make(map[string]map[int64]*playerConn)}
}

// attach registers a socket, returning the one it displaced, if any
func (m *connManager) attach(gameID string, playerID int64, ws *websocket.Conn) (*playerConn, *playerConn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.games[gameID] == nil {
		m.games[gameID] = make(map[int64]*playerConn)
	}
	old := m.games[gameID][playerID]
	pc := &playerConn{ws: ws}
	m.games[gameID][playerID] = pc
	return pc, old
}

// detachIfCurrent removes the socket only if it is still the registered one,
// so a reconnect that already replaced it is not torn down. Reports whether
// this socket was current.
func (m *connManager) detachIfCurrent(gameID string, playerID int64, pc *playerConn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.games[gameID][playerID]
	if !ok || current != pc {
		return false
	}
	delete(m.games[gameID], playerID)
	if len(m.games[gameID]) == 0 {
		delete(m.games, gameID)
	}
	return true
}

func (m *connManager) get(gameID string, playerID int64) (*playerConn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pc, ok := m.games[gameID][playerID]
	return pc, ok
}

func (m *connManager) connectedCount(gameID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games[gameID])
}

func (m *connManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, conns := range m.games {
		n += len(conns)
	}
	return n
}

// inboundMessage is the wire shape of every client action
type inboundMessage struct {
	ActionType string                 `json:"action_type"`
	Payload    map[string]interface{} `json:"payload"`
}

// handleGameWebSocket runs one player's socket for the life of the
// connection: authenticate, attach, trigger setup, then pump actions.
func (s *Server) handleGameWebSocket(c *gin.Context) {
	gameID := c.Param("game_id")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error("Failed to upgrade websocket", map[string]interface{}{
			"game_id": gameID,
			"error":   err.Error(),
		})
		return
	}

	userID, _, err := s.auth.AuthenticateQueryToken(c)
	if err != nil {
		closeWithPolicyViolation(ws, "authentication failed")
		return
	}

	sess, ok := s.registry.Get(gameID)
	if !ok {
		closeWithPolicyViolation(ws, "unknown game")
		return
	}
	if !sess.HasPlayer(userID) {
		closeWithPolicyViolation(ws, "not a participant")
		return
	}

	pc, displaced := s.conns.attach(gameID, userID, ws)
	if displaced != nil {
		displaced.ws.Close()
	}

	logging.LogWebSocketEvent("connected", sess.GameID, userID, map[string]interface{}{
		"reconnect": displaced != nil,
	})

	s.onPlayerJoined(sess, userID)
	s.readLoop(sess, userID, pc)
	s.onSocketClosed(sess, userID, pc)
}

// onPlayerJoined starts the game once everyone expected is connected, or
// replays the current state to a reconnecting player.
func (s *Server) onPlayerJoined(sess *game.Session, userID int64) {
	status := sess.GetStatus()
	switch {
	case status == types.StatusMatched:
		needed := 2
		if sess.IsBotGame {
			needed = 1
		}
		if s.conns.connectedCount(sess.GameID) >= needed {
			events := s.engine.Initialize(context.Background(), sess)
			s.dispatch(sess, events)
			s.afterTransition(sess)
		} else {
			s.send(sess, game.ToPlayer(userID, game.EventStatus, map[string]interface{}{
				"message": "Waiting for opponent to connect.",
			}))
		}
	default:
		// Reconnect, or joining a game that already concluded: replay state.
		s.send(sess, s.engine.Snapshot(sess, userID))
	}
}

func (s *Server) readLoop(sess *game.Session, userID int64, pc *playerConn) {
	for {
		_, data, err := pc.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.LogWebSocketEvent("read_error", sess.GameID, userID, map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(sess, userID, "Malformed message.")
			continue
		}

		action, err := parseAction(msg)
		if err != nil {
			s.sendError(sess, userID, err.Error())
			continue
		}

		s.applyAction(context.Background(), sess, userID, action)
	}
}

func parseAction(msg inboundMessage) (game.Action, error) {
	actionType, err := types.ParseActionType(msg.ActionType)
	if err != nil {
		return nil, fmt.Errorf("unknown action type %q", msg.ActionType)
	}

	switch actionType {
	case types.ActionClientReady:
		return game.ClientReady{}, nil
	case types.ActionSubmitWord:
		word, _ := msg.Payload["word"].(string)
		return game.SubmitWord{Word: word}, nil
	case types.ActionTimeout:
		return game.Timeout{}, nil
	case types.ActionSendEmoji:
		emoji, _ := msg.Payload["emoji"].(string)
		return game.SendEmoji{Emoji: emoji}, nil
	default:
		return nil, fmt.Errorf("unhandled action type %q", msg.ActionType)
	}
}

// applyAction runs one action through the engine and follows up: fan out the
// events, then arm whatever the new state needs (turn timer or bot move). The
// pending timer is cancelled first so an acting player can never race their
// own expiry.
func (s *Server) applyAction(ctx context.Context, sess *game.Session, playerID int64, action game.Action) {
	s.scheduler.Cancel(sess.GameID)
	events := s.engine.HandleAction(ctx, sess, playerID, action)
	s.dispatch(sess, events)
	s.afterTransition(sess)
}

// afterTransition arms the follow-up for the session's new state
func (s *Server) afterTransition(sess *game.Session) {
	status, current := sess.CurrentTurn()

	if status.IsTerminal() {
		s.scheduler.Cancel(sess.GameID)
		// The session stays resolvable for terminal snapshots while any
		// socket is attached; the last detach in onSocketClosed retires it.
		if s.conns.connectedCount(sess.GameID) == 0 {
			s.registry.Remove(sess.GameID)
		}
		return
	}

	if status != types.StatusInProgress {
		return
	}

	if sess.CurrentPlayerIsBot() {
		s.scheduleBotMove(sess, current)
		return
	}

	d := s.engine.TurnDuration()
	sess.RecordTurnDeadline(d)
	s.scheduler.Arm(sess.GameID, d, func() {
		events := s.engine.HandleTimerExpiry(sess, current)
		if events == nil {
			return
		}
		s.dispatch(sess, events)
		s.afterTransition(sess)
	})
}

// scheduleBotMove picks the bot's move off the hot path, then arms it behind
// a humanizing delay. The armed callback re-checks the turn: the round may
// have moved on while the policy was thinking.
func (s *Server) scheduleBotMove(sess *game.Session, botID int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), botMoveTimeout)
		defer cancel()

		sess.Lock()
		prompt := sess.Prompt
		sess.Unlock()

		move := s.bot.ChooseMove(ctx, bot.MoveContext{
			GameID:        sess.GameID,
			Language:      sess.Language,
			OpponentLevel: sess.OpponentLevel(botID),
			Prompt:        prompt,
			WordsPlayed:   sess.RoundWords(),
		})

		s.scheduler.Arm(sess.GameID, s.bot.ThinkDelay(move), func() {
			status, current := sess.CurrentTurn()
			if status != types.StatusInProgress || current != botID {
				return
			}
			var action game.Action
			if move.IsTimeout() {
				action = game.Timeout{}
			} else {
				action = game.SubmitWord{Word: move.Word}
			}
			s.applyAction(context.Background(), sess, botID, action)
		})
	}()
}

// onSocketClosed handles the end of a socket's life. A socket displaced by a
// reconnect does nothing; a genuine disconnect forfeits the game.
func (s *Server) onSocketClosed(sess *game.Session, userID int64, pc *playerConn) {
	pc.ws.Close()
	if !s.conns.detachIfCurrent(sess.GameID, userID, pc) {
		return
	}

	logging.LogWebSocketEvent("disconnected", sess.GameID, userID, nil)

	if !sess.GetStatus().IsTerminal() {
		s.scheduler.Cancel(sess.GameID)
		events := s.engine.HandleDisconnect(sess, userID)
		s.dispatch(sess, events)
	}

	// A player who dropped at the moment the game ended can still reconnect
	// for the result; the session is retired once every socket is gone.
	if s.conns.connectedCount(sess.GameID) == 0 {
		s.registry.Remove(sess.GameID)
	}
}

// dispatch fans a transition's events out to the right sockets. Bot players
// have no socket; their events drop silently.
func (s *Server) dispatch(sess *game.Session, events []game.Event) {
	for _, ev := range events {
		s.send(sess, ev)
	}
}

func (s *Server) send(sess *game.Session, ev game.Event) {
	if ev.Broadcast {
		for _, playerID := range sess.PlayerOrder {
			if ev.ExcludePlayerID != nil && *ev.ExcludePlayerID == playerID {
				continue
			}
			s.writeTo(sess, playerID, ev)
		}
		return
	}
	if ev.TargetPlayerID != nil {
		s.writeTo(sess, *ev.TargetPlayerID, ev)
	}
}

func (s *Server) writeTo(sess *game.Session, playerID int64, ev game.Event) {
	pc, ok := s.conns.get(sess.GameID, playerID)
	if !ok {
		return
	}
	if err := pc.writeJSON(ev.ToDict()); err != nil {
		logging.LogWebSocketEvent("write_error", sess.GameID, playerID, map[string]interface{}{
			"type":  ev.Type,
			"error": err.Error(),
		})
		// A dead socket is torn down here; its read loop will surface the
		// close and run the disconnect path.
		pc.ws.Close()
	}
}

func (s *Server) sendError(sess *game.Session, playerID int64, message string) {
	s.send(sess, game.ToPlayer(playerID, game.EventErrorToPlayer, map[string]interface{}{
		"message": message,
	}))
}

func closeWithPolicyViolation(ws *websocket.Conn, reason string) {
	ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
	ws.Close()
}
