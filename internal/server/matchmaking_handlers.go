package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/neo/wordextremist_backend/internal/auth"
	"github.com/neo/wordextremist_backend/internal/matchmaking"
)

// findMatchHandler is the matchmaking poll. The first call for a player
// enqueues them; subsequent calls report "waiting" until a match (human or,
// past the wait threshold, bot) is ready.
func (s *Server) findMatchHandler(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	language := strings.ToLower(strings.TrimSpace(c.Query("requested_language")))
	if language == "" {
		language = "en"
	}

	user, err := s.db.GetUserByID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
		return
	}

	match, matched := s.pool.FindMatch(matchmaking.Candidate{
		UserID:   user.ID,
		Username: user.Username,
		Level:    user.Level,
	}, language)

	if !matched {
		c.JSON(http.StatusOK, gin.H{"status": "waiting"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":                 "matched",
		"game_id":                match.GameID,
		"language":               match.Language,
		"opponent_name":          match.OpponentName,
		"opponent_level":         match.OpponentLevel,
		"player1_id":             match.Player1ID,
		"player2_id":             match.Player2ID,
		"your_player_id_in_game": userID,
	})
}

// cancelMatchHandler withdraws the player from the matchmaking queue
func (s *Server) cancelMatchHandler(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	s.pool.Cancel(userID)
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}
