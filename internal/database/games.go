package database

import (
	"fmt"
	"time"
)

// CreateGame persists a new game record and returns its database id
func (d *Database) CreateGame(matchmakingID string, player1ID, player2ID int64, language string, isBotGame bool) (int64, error) {
	result, err := d.db.Exec(
		`INSERT INTO games (matchmaking_id, player1_id, player2_id, language, status, is_bot_game)
		 VALUES (?, ?, ?, ?, 'in_progress', ?)`,
		matchmakingID, player1ID, player2ID, language, isBotGame,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create game: %v", err)
	}

	return result.LastInsertId()
}

// UpdateScore stores a player's current score on the game record
func (d *Database) UpdateScore(gameID, playerID int64, score int) error {
	result, err := d.db.Exec(
		`UPDATE games SET player1_score = CASE WHEN player1_id = ? THEN ? ELSE player1_score END,
		                  player2_score = CASE WHEN player2_id = ? THEN ? ELSE player2_score END
		 WHERE id = ?`,
		playerID, score, playerID, score, gameID,
	)
	if err != nil {
		return fmt.Errorf("failed to update score: %v", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// FinalizeGame marks a game terminal with its winner and end reason
func (d *Database) FinalizeGame(gameID int64, winnerID *int64, status, endReason string) error {
	_, err := d.db.Exec(
		`UPDATE games SET winner_id = ?, status = ?, end_reason = ?, ended_at = ? WHERE id = ?`,
		winnerID, status, endReason, time.Now(), gameID,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize game: %v", err)
	}
	return nil
}

// IncrementEmojis bumps the emoji counter for one side of a game
func (d *Database) IncrementEmojis(gameID, playerID int64) error {
	_, err := d.db.Exec(
		`UPDATE games SET player1_emojis = player1_emojis + CASE WHEN player1_id = ? THEN 1 ELSE 0 END,
		                  player2_emojis = player2_emojis + CASE WHEN player2_id = ? THEN 1 ELSE 0 END
		 WHERE id = ?`,
		playerID, playerID, gameID,
	)
	if err != nil {
		return fmt.Errorf("failed to increment emojis: %v", err)
	}
	return nil
}
