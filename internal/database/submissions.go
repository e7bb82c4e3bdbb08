package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// LogSubmission appends a judged word to the submission log
func (d *Database) LogSubmission(sub *WordSubmission) (int64, error) {
	result, err := d.db.Exec(
		`INSERT INTO word_submissions
		 (game_id, round, player_id, sentence_prompt_id, submitted_word,
		  time_taken_ms, is_valid, creativity_score, validation_latency_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.GameID, sub.Round, sub.PlayerID, sub.SentencePromptID,
		strings.ToLower(sub.SubmittedWord), sub.TimeTakenMs,
		sub.IsValid, sub.CreativityScore, sub.ValidationLatencyMs,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to log submission: %v", err)
	}

	return result.LastInsertId()
}

// LookupSubmission returns the latest submission of a word for a prompt,
// matching case-insensitively. Returns ErrNotFound on a cache miss.
func (d *Database) LookupSubmission(promptID int64, word string) (*WordSubmission, error) {
	row := d.db.QueryRow(
		`SELECT id, game_id, round, player_id, sentence_prompt_id, submitted_word,
		        time_taken_ms, is_valid, creativity_score, validation_latency_ms, submitted_at
		 FROM word_submissions
		 WHERE sentence_prompt_id = ? AND submitted_word = ?
		 ORDER BY submitted_at DESC, id DESC LIMIT 1`,
		promptID, strings.ToLower(strings.TrimSpace(word)),
	)
	return scanSubmission(row)
}

// RandomValidSubmission returns a random previously-accepted word for a
// prompt with creativity above 1, skipping any word in the exclude list.
// Used by the bot to recycle proven words cheaply.
func (d *Database) RandomValidSubmission(promptID int64, exclude []string) (*WordSubmission, error) {
	query := `SELECT id, game_id, round, player_id, sentence_prompt_id, submitted_word,
	                 time_taken_ms, is_valid, creativity_score, validation_latency_ms, submitted_at
	          FROM word_submissions
	          WHERE sentence_prompt_id = ? AND is_valid = 1 AND creativity_score > 1`
	args := []interface{}{promptID}

	if len(exclude) > 0 {
		placeholders := strings.Repeat("?,", len(exclude))
		query += ` AND submitted_word NOT IN (` + placeholders[:len(placeholders)-1] + `)`
		for _, w := range exclude {
			args = append(args, strings.ToLower(w))
		}
	}

	query += ` ORDER BY RANDOM() LIMIT 1`

	return scanSubmission(d.db.QueryRow(query, args...))
}

func scanSubmission(row *sql.Row) (*WordSubmission, error) {
	var sub WordSubmission
	err := row.Scan(&sub.ID, &sub.GameID, &sub.Round, &sub.PlayerID,
		&sub.SentencePromptID, &sub.SubmittedWord, &sub.TimeTakenMs,
		&sub.IsValid, &sub.CreativityScore, &sub.ValidationLatencyMs, &sub.SubmittedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to scan submission: %v", err)
	}
	return &sub, nil
}
