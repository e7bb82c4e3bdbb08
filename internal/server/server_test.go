package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neo/wordextremist_backend/internal/auth"
	"github.com/neo/wordextremist_backend/internal/bot"
	"github.com/neo/wordextremist_backend/internal/config"
	"github.com/neo/wordextremist_backend/internal/database"
	"github.com/neo/wordextremist_backend/internal/game"
	"github.com/neo/wordextremist_backend/internal/matchmaking"
	"github.com/neo/wordextremist_backend/internal/types"
	"github.com/neo/wordextremist_backend/internal/validator"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewInMemory()
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations("../../migrations"))
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Port:         "0",
		TurnDuration: 30 * time.Second,
		MaxRounds:    3,
		MaxMistakes:  3,
		BotNames:     map[string][]string{"en": {"WordWizard"}},
	}

	a := auth.New(auth.Config{JWTSecret: "test-secret", TokenDuration: time.Hour})
	v := validator.New("", []string{"gpt-4o-mini"}, db)
	botPolicy, err := bot.New("", "gpt-4o-mini", bot.Config{LevelCapForScaling: 20}, db)
	require.NoError(t, err)

	registry := game.NewRegistry()
	scheduler := game.NewScheduler()
	engine := game.NewEngine(game.Config{TurnDuration: cfg.TurnDuration, MaxMistakes: 3}, db, v)
	pool := matchmaking.NewPool(matchmaking.Config{
		BotThreshold: time.Minute,
		MaxRounds:    3,
		BotNamesFor:  cfg.BotNamesFor,
	}, db, registry)

	return NewServer(cfg, db, a, registry, scheduler, engine, pool, v, botPolicy)
}

func doJSON(s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, s *Server, username string) string {
	t.Helper()
	w := doJSON(s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestRegisterLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	token := registerUser(t, s, "alice")

	// Duplicate username
	w := doJSON(s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Wrong password
	w = doJSON(s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct login
	w = doJSON(s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Profile behind the middleware
	w = doJSON(s, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	w = doJSON(s, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "al", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMatchmakingFlow(t *testing.T) {
	s := newTestServer(t)
	aliceToken := registerUser(t, s, "alice")
	bobToken := registerUser(t, s, "bob")

	// Alice polls: enqueued, still waiting.
	w := doJSON(s, http.MethodGet, "/api/matchmaking/find?requested_language=en", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"waiting"`)

	// Bob polls: matched immediately.
	w = doJSON(s, http.MethodGet, "/api/matchmaking/find?requested_language=en", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bobResp struct {
		Status        string `json:"status"`
		GameID        string `json:"game_id"`
		Language      string `json:"language"`
		OpponentName  string `json:"opponent_name"`
		Player1ID     int64  `json:"player1_id"`
		Player2ID     int64  `json:"player2_id"`
		YourID        int64  `json:"your_player_id_in_game"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bobResp))
	assert.Equal(t, "matched", bobResp.Status)
	assert.NotEmpty(t, bobResp.GameID)
	assert.Equal(t, "en", bobResp.Language)
	assert.Equal(t, "alice", bobResp.OpponentName)
	assert.NotZero(t, bobResp.YourID)
	assert.Contains(t, []int64{bobResp.Player1ID, bobResp.Player2ID}, bobResp.YourID)

	// Alice claims the same game on her next poll.
	w = doJSON(s, http.MethodGet, "/api/matchmaking/find?requested_language=en", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`"game_id":%q`, bobResp.GameID))

	assert.Equal(t, 1, s.registry.Count())
}

func TestMatchmakingCancel(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "alice")

	doJSON(s, http.MethodGet, "/api/matchmaking/find", token, nil)
	w := doJSON(s, http.MethodPost, "/api/matchmaking/cancel", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]int{}, s.pool.QueueDepths())
}

func TestMatchmakingRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/api/matchmaking/find", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodGet, "/api/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active_games":0`)
	assert.Contains(t, w.Body.String(), `"total_calls":0`)
}

func TestTerminalSessionServesSnapshotUntilLastSocketCloses(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "alice")

	w := doJSON(s, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))

	p1 := &game.PlayerState{ID: me.ID, Name: "alice", Level: 1, Score: 2}
	p2 := &game.PlayerState{ID: me.ID + 1, Name: "bob", Level: 1, Score: 1}
	sess := game.NewSession("finished-game", "en", p1, p2, 3, false)
	sess.Lock()
	sess.Status = types.StatusFinished
	sess.WinnerUserID = &p1.ID
	sess.Unlock()
	s.registry.Add(sess)

	srv := httptest.NewServer(s.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/game/finished-game?token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	// A player whose socket dropped at game_over still gets the result.
	var msg struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, game.EventGameStateReconnect, msg.Type)
	assert.Equal(t, false, msg.Payload["game_active"])
	assert.Equal(t, types.StatusFinished.String(), msg.Payload["game_status"])

	// The finished session stays resolvable while a socket is attached.
	assert.Equal(t, 1, s.registry.Count())

	ws.Close()
	assert.Eventually(t, func() bool { return s.registry.Count() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestRearmRefreshesTurnDeadline(t *testing.T) {
	s := newTestServer(t)

	p1 := &game.PlayerState{ID: 10, Name: "alice", Level: 1}
	p2 := &game.PlayerState{ID: 11, Name: "bob", Level: 1}
	sess := game.NewSession("live-game", "en", p1, p2, 3, false)
	sess.Lock()
	sess.Status = types.StatusInProgress
	sess.CurrentPlayerID = 10
	sess.Unlock()

	before := time.Now()
	s.afterTransition(sess)
	defer s.scheduler.Cancel("live-game")

	assert.Equal(t, 1, s.scheduler.ArmedCount())
	sess.Lock()
	deadline := sess.TurnDeadline
	sess.Unlock()
	assert.WithinDuration(t, before.Add(30*time.Second), deadline, time.Second)
}

func TestParseActionShapes(t *testing.T) {
	action, err := parseAction(inboundMessage{ActionType: "submit_word", Payload: map[string]interface{}{"word": "huge"}})
	require.NoError(t, err)
	assert.Equal(t, game.SubmitWord{Word: "huge"}, action)

	action, err = parseAction(inboundMessage{ActionType: "client_ready"})
	require.NoError(t, err)
	assert.Equal(t, game.ClientReady{}, action)

	action, err = parseAction(inboundMessage{ActionType: "send_emoji", Payload: map[string]interface{}{"emoji": "🎉"}})
	require.NoError(t, err)
	assert.Equal(t, game.SendEmoji{Emoji: "🎉"}, action)

	_, err = parseAction(inboundMessage{ActionType: "cheat"})
	assert.Error(t, err)
}
