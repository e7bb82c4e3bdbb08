package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// RandomPrompt returns a uniformly random sentence prompt for a language.
// Returns ErrNotFound when the language has no prompts.
func (d *Database) RandomPrompt(language string) (*SentencePrompt, error) {
	row := d.db.QueryRow(
		`SELECT id, sentence_text, target_word, prompt_text, language, difficulty
		 FROM sentence_prompts WHERE language = ? ORDER BY RANDOM() LIMIT 1`,
		strings.ToLower(language),
	)

	var p SentencePrompt
	err := row.Scan(&p.ID, &p.Sentence, &p.TargetWord, &p.PromptText, &p.Language, &p.Difficulty)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch random prompt: %v", err)
	}

	return &p, nil
}

// CreatePrompt inserts a sentence prompt, used by the seed command.
// The target word must appear in the sentence (case-insensitive).
func (d *Database) CreatePrompt(prompt *SentencePrompt) (int64, error) {
	if !strings.Contains(strings.ToLower(prompt.Sentence), strings.ToLower(prompt.TargetWord)) {
		return 0, fmt.Errorf("target word %q is not part of the sentence", prompt.TargetWord)
	}

	result, err := d.db.Exec(
		`INSERT INTO sentence_prompts (sentence_text, target_word, prompt_text, language, difficulty)
		 VALUES (?, ?, ?, ?, ?)`,
		prompt.Sentence, prompt.TargetWord, prompt.PromptText,
		strings.ToLower(prompt.Language), prompt.Difficulty,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create prompt: %v", err)
	}

	return result.LastInsertId()
}
