package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/neo/wordextremist_backend/internal/database"
	"github.com/neo/wordextremist_backend/internal/logging"
)

// Move is the bot's chosen action for one turn. An empty Word means the bot
// lets its turn time out.
type Move struct {
	Word       string
	Creativity int
}

// IsTimeout reports whether the bot decided to run out the clock
func (m Move) IsTimeout() bool { return m.Word == "" }

// MoveContext is the slice of session state the policy reads
type MoveContext struct {
	GameID        string
	Language      string
	OpponentLevel int
	Prompt        *database.SentencePrompt
	WordsPlayed   []string // all words played this round, accepted or rejected
}

// Config holds the probability scaling knobs
type Config struct {
	MaxMistakeProbability float64
	MinMistakeProbability float64
	MaxTimeoutProbability float64
	MinTimeoutProbability float64
	LevelCapForScaling    int
}

// promptCaller is the slice of the langchaingo client the policy uses, kept
// narrow so tests can substitute a fake.
type promptCaller interface {
	Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error)
}

// Policy decides bot moves: deliberate mistakes and timeouts scaled down as
// the opponent's level rises, recycled words from the submission log, novel
// words from the LLM, and the target word as a guaranteed fallback.
type Policy struct {
	config Config
	db     database.DatabaseInterface
	llm    promptCaller
	rng    *rand.Rand
}

// New creates a bot policy. The LLM is optional: without credentials the bot
// still plays using recycled and fallback words.
func New(apiKey, model string, config Config, db database.DatabaseInterface) (*Policy, error) {
	var llm promptCaller
	if apiKey != "" {
		client, err := openai.New(
			openai.WithToken(apiKey),
			openai.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create bot LLM: %v", err)
		}
		llm = client
	}

	return &Policy{
		config: config,
		db:     db,
		llm:    llm,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// newWithLLM is the test seam: inject a fake LLM and a seeded rng.
func newWithLLM(llm promptCaller, config Config, db database.DatabaseInterface, rng *rand.Rand) *Policy {
	return &Policy{config: config, db: db, llm: llm, rng: rng}
}

// ChooseMove picks the bot's move for the current turn
func (p *Policy) ChooseMove(ctx context.Context, mc MoveContext) Move {
	mistakeProb := p.scaledProbability(mc.OpponentLevel,
		p.config.MaxMistakeProbability, p.config.MinMistakeProbability)
	if p.rng.Float64() < mistakeProb {
		word := p.mistakeWord(mc)
		logging.LogBotEvent("deliberate_mistake", mc.GameID, map[string]interface{}{
			"word":           word,
			"opponent_level": mc.OpponentLevel,
		})
		return Move{Word: word, Creativity: 1}
	}

	timeoutProb := p.scaledProbability(mc.OpponentLevel,
		p.config.MaxTimeoutProbability, p.config.MinTimeoutProbability)
	if p.rng.Float64() < timeoutProb {
		logging.LogBotEvent("deliberate_timeout", mc.GameID, map[string]interface{}{
			"opponent_level": mc.OpponentLevel,
		})
		return Move{}
	}

	if sub, err := p.db.RandomValidSubmission(mc.Prompt.ID, mc.WordsPlayed); err == nil {
		creativity := sub.CreativityScore
		if creativity < 2 {
			creativity = 2
		}
		logging.LogBotEvent("recycled_word", mc.GameID, map[string]interface{}{
			"word": sub.SubmittedWord,
		})
		return Move{Word: sub.SubmittedWord, Creativity: creativity}
	}

	if word, creativity, ok := p.novelWord(ctx, mc); ok {
		return Move{Word: word, Creativity: creativity}
	}

	// The target word is always a legal, uncreative move.
	logging.LogBotEvent("fallback_target_word", mc.GameID, map[string]interface{}{
		"word": mc.Prompt.TargetWord,
	})
	return Move{Word: mc.Prompt.TargetWord, Creativity: 1}
}

// ThinkDelay returns the humanized delay before the bot's move is applied:
// slower for more creative words, 4-6s when running out the clock.
func (p *Policy) ThinkDelay(move Move) time.Duration {
	if move.IsTimeout() {
		return time.Duration(4000+p.rng.Intn(2000)) * time.Millisecond
	}

	base := 1.0 + float64(move.Creativity-1)*0.75
	jitter := p.rng.Float64() - 0.5
	seconds := base + jitter
	if seconds < 0.5 {
		seconds = 0.5
	} else if seconds > 4.0 {
		seconds = 4.0
	}
	return time.Duration(seconds * float64(time.Second))
}

// scaledProbability interpolates linearly from max at level 1 down to min at
// or above the level cap.
func (p *Policy) scaledProbability(opponentLevel int, maxProb, minProb float64) float64 {
	if opponentLevel >= p.config.LevelCapForScaling {
		return minProb
	}
	if opponentLevel <= 1 {
		return maxProb
	}
	progress := float64(opponentLevel-1) / float64(p.config.LevelCapForScaling-1)
	prob := maxProb - progress*(maxProb-minProb)
	if prob < minProb {
		return minProb
	}
	return prob
}

// mistakeWord picks a deliberately losing word: repeat one already played
// this round, or the target word when the round is fresh.
func (p *Policy) mistakeWord(mc MoveContext) string {
	if len(mc.WordsPlayed) > 0 {
		return mc.WordsPlayed[p.rng.Intn(len(mc.WordsPlayed))]
	}
	return mc.Prompt.TargetWord
}

// novelWord asks the LLM for a fresh word fitting the prompt, retrying once
// on an empty or duplicate answer.
func (p *Policy) novelWord(ctx context.Context, mc MoveContext) (string, int, bool) {
	if p.llm == nil {
		return "", 0, false
	}

	avoid := strings.Join(mc.WordsPlayed, ", ")
	prompt := fmt.Sprintf(`You are a creative player in a word game in language '%s'.
Find a single, novel word to replace the target word in the sentence, following the instruction.
Do not repeat any word already played this round.

Sentence: %q
Target Word: %q
Instruction: %q
Words Already Played (avoid these): %q

Respond ONLY with a JSON object: {"word": "<single word>", "creativity": <int 1-5>}`,
		mc.Language, mc.Prompt.Sentence, mc.Prompt.TargetWord, mc.Prompt.PromptText, avoid)

	for attempt := 0; attempt < 2; attempt++ {
		completion, err := p.llm.Call(ctx, prompt)
		if err != nil {
			logging.Error("Bot LLM call failed", map[string]interface{}{
				"game_id": mc.GameID,
				"error":   err.Error(),
			})
			return "", 0, false
		}

		word, creativity := parseNovelWord(completion)
		if word == "" || containsWord(mc.WordsPlayed, word) {
			logging.LogBotEvent("novel_word_rejected", mc.GameID, map[string]interface{}{
				"word":    word,
				"attempt": attempt + 1,
			})
			continue
		}

		logging.LogBotEvent("novel_word", mc.GameID, map[string]interface{}{
			"word":       word,
			"creativity": creativity,
		})
		return word, creativity, true
	}

	return "", 0, false
}

func parseNovelWord(completion string) (string, int) {
	completion = strings.TrimSpace(completion)
	completion = strings.Trim(completion, "`")

	var parsed struct {
		Word       string `json:"word"`
		Creativity int    `json:"creativity"`
	}
	if err := json.Unmarshal([]byte(completion), &parsed); err != nil {
		return "", 0
	}

	word := strings.ToLower(strings.TrimSpace(parsed.Word))
	creativity := parsed.Creativity
	if creativity < 1 || creativity > 5 {
		creativity = 1
	}
	return word, creativity
}

func containsWord(words []string, word string) bool {
	for _, w := range words {
		if strings.EqualFold(w, word) {
			return true
		}
	}
	return false
}
