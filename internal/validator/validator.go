package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/neo/wordextremist_backend/internal/database"
	"github.com/neo/wordextremist_backend/internal/logging"
)

// ErrOracleUnavailable is returned when every configured model is
// rate-limited or no credentials are configured. Callers must treat it as an
// ordinary invalid submission so the game stays playable.
var ErrOracleUnavailable = errors.New("validation oracle unavailable")

// Result is the oracle's verdict on one submitted word
type Result struct {
	IsValid         bool   `json:"is_valid"`
	CreativityScore int    `json:"creativity_score"`
	Reason          string `json:"reason"`
	FromCache       bool   `json:"from_cache"`
}

// Request carries everything the oracle needs to judge a word
type Request struct {
	Word       string
	PromptID   int64
	TargetWord string
	PromptText string
	Sentence   string
	Language   string
}

// chatCompleter is the slice of the OpenAI client the validator uses,
// kept narrow so tests can substitute a fake.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Validator judges submitted words against the round's prompt, consulting
// the submission log as a cache before calling the LLM.
type Validator struct {
	client chatCompleter
	models []string
	db     database.DatabaseInterface

	totalCalls atomic.Int64
	cacheHits  atomic.Int64
}

// New creates a validator with an ordered model fallback chain
func New(apiKey string, models []string, db database.DatabaseInterface) *Validator {
	var client chatCompleter
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}
	return &Validator{
		client: client,
		models: models,
		db:     db,
	}
}

// newWithClient is the test seam.
func newWithClient(client chatCompleter, models []string, db database.DatabaseInterface) *Validator {
	return &Validator{client: client, models: models, db: db}
}

// TotalCalls returns how many validations have been requested process-wide
func (v *Validator) TotalCalls() int64 { return v.totalCalls.Load() }

// CacheHits returns how many validations were answered from the cache
func (v *Validator) CacheHits() int64 { return v.cacheHits.Load() }

// Validate judges a word. Cache hits return with zero latency and no oracle
// call; otherwise the model chain is tried in order, falling through on
// rate-limit errors only. The returned latency spans the whole oracle call
// including retries.
func (v *Validator) Validate(ctx context.Context, req Request) (*Result, int64, error) {
	v.totalCalls.Add(1)

	word := strings.ToLower(strings.TrimSpace(req.Word))

	if cached, err := v.db.LookupSubmission(req.PromptID, word); err == nil {
		v.cacheHits.Add(1)
		logging.LogValidationEvent("cache_hit", req.PromptID, word, map[string]interface{}{
			"is_valid": cached.IsValid,
		})
		return &Result{
			IsValid:         cached.IsValid,
			CreativityScore: cached.CreativityScore,
			Reason:          "previously judged",
			FromCache:       true,
		}, 0, nil
	}

	if v.client == nil {
		return nil, 0, ErrOracleUnavailable
	}

	start := time.Now()
	var lastErr error
	for _, model := range v.models {
		result, err := v.callModel(ctx, model, word, req)
		if err == nil {
			latency := time.Since(start).Milliseconds()
			logging.LogValidationEvent("oracle_verdict", req.PromptID, word, map[string]interface{}{
				"model":      model,
				"is_valid":   result.IsValid,
				"creativity": result.CreativityScore,
				"latency_ms": latency,
			})
			return result, latency, nil
		}
		if !isRateLimited(err) {
			return nil, time.Since(start).Milliseconds(), fmt.Errorf("oracle call failed: %v", err)
		}
		logging.LogValidationEvent("model_rate_limited", req.PromptID, word, map[string]interface{}{
			"model": model,
		})
		lastErr = err
	}

	logging.Error("All validator models rate limited", map[string]interface{}{
		"prompt_id": req.PromptID,
		"error":     lastErr,
	})
	return nil, time.Since(start).Milliseconds(), ErrOracleUnavailable
}

func (v *Validator) callModel(ctx context.Context, model, word string, req Request) (*Result, error) {
	prompt := fmt.Sprintf(`You are the judge in a word game played in language '%s'.
The player must replace the target word in a sentence with a single word that satisfies the instruction.

Sentence: %q
Target Word: %q
Instruction: %q
Submitted Word: %q

Decide whether the submitted word is a valid replacement that satisfies the instruction,
and rate its creativity from 1 (obvious) to 5 (highly creative).

Respond ONLY with a JSON object: {"is_valid": <bool>, "creativity_score": <int>, "reason": "<short explanation>"}`,
		req.Language, req.Sentence, req.TargetWord, req.PromptText, word)

	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("oracle returned no choices")
	}

	return sanitizeVerdict(resp.Choices[0].Message.Content), nil
}

// sanitizeVerdict parses the model output defensively: wrong-typed fields
// downgrade the verdict to invalid, and creativity is clamped to [1,5] for
// valid words and forced to 0 for invalid ones.
func sanitizeVerdict(raw string) *Result {
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return &Result{IsValid: false, CreativityScore: 0,
			Reason: "Validator returned an unreadable verdict"}
	}

	result := &Result{}

	if err := json.Unmarshal(fields["is_valid"], &result.IsValid); err != nil {
		return &Result{IsValid: false, CreativityScore: 0,
			Reason: "Validator verdict had a malformed is_valid field"}
	}
	if err := json.Unmarshal(fields["creativity_score"], &result.CreativityScore); err != nil {
		return &Result{IsValid: false, CreativityScore: 0,
			Reason: "Validator verdict had a malformed creativity_score field"}
	}
	if reasonRaw, ok := fields["reason"]; ok {
		// A missing or non-string reason is tolerable.
		_ = json.Unmarshal(reasonRaw, &result.Reason)
	}

	if result.IsValid {
		if result.CreativityScore < 1 {
			result.CreativityScore = 1
		} else if result.CreativityScore > 5 {
			result.CreativityScore = 5
		}
	} else {
		result.CreativityScore = 0
	}

	return result
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	return false
}
