package matchmaking

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neo/wordextremist_backend/internal/database"
	"github.com/neo/wordextremist_backend/internal/game"
	"github.com/neo/wordextremist_backend/internal/logging"
)

// Candidate is a player asking for a game
type Candidate struct {
	UserID   int64
	Username string
	Level    int
}

// Match is the outcome of a successful pairing, handed to the player on poll
type Match struct {
	GameID        string
	Language      string
	Player1ID     int64
	Player2ID     int64
	OpponentID    int64
	OpponentName  string
	OpponentLevel int
	IsBotGame     bool
}

// Config holds the pool's pairing knobs
type Config struct {
	// BotThreshold is how long a player waits before the sweep pairs them
	// with the bot.
	BotThreshold time.Duration
	MaxRounds    int
	BotNamesFor  func(language string) []string
}

type entry struct {
	candidate  Candidate
	language   string
	enqueuedAt time.Time
}

// Pool is the matchmaking queue: per-language FIFO buckets, immediate pairing
// when two players wait on the same language, and a periodic sweep that backs
// long waiters with a bot opponent.
type Pool struct {
	mu       sync.Mutex
	config   Config
	db       database.DatabaseInterface
	registry *game.Registry
	queues   map[string][]*entry
	matches  map[int64]*Match // pending results, consumed on poll
	rng      *rand.Rand
}

// NewPool creates an empty matchmaking pool
func NewPool(config Config, db database.DatabaseInterface, registry *game.Registry) *Pool {
	return &Pool{
		config:   config,
		db:       db,
		registry: registry,
		queues:   make(map[string][]*entry),
		matches:  make(map[int64]*Match),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FindMatch is the poll entry point. The first call enqueues the candidate;
// later calls report whether a match happened. A pending match is consumed by
// the poll that returns it.
func (p *Pool) FindMatch(c Candidate, language string) (*Match, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.matches[c.UserID]; ok {
		delete(p.matches, c.UserID)
		return m, true
	}

	// Re-polling while queued is a no-op, whatever language it names.
	for _, bucket := range p.queues {
		for _, e := range bucket {
			if e.candidate.UserID == c.UserID {
				return nil, false
			}
		}
	}

	bucket := p.queues[language]
	if len(bucket) > 0 {
		opponent := bucket[0]
		p.queues[language] = bucket[1:]
		return p.pairLocked(c, opponent.candidate, language), true
	}

	p.queues[language] = append(bucket, &entry{
		candidate:  c,
		language:   language,
		enqueuedAt: time.Now(),
	})
	logging.LogMatchmakingEvent("enqueued", language, map[string]interface{}{
		"player_id": c.UserID,
		"depth":     len(p.queues[language]),
	})
	return nil, false
}

// Cancel removes the player from the queue and discards any unclaimed match
func (p *Pool) Cancel(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.matches, userID)
	for lang, bucket := range p.queues {
		for i, e := range bucket {
			if e.candidate.UserID == userID {
				p.queues[lang] = append(bucket[:i], bucket[i+1:]...)
				logging.LogMatchmakingEvent("cancelled", lang, map[string]interface{}{
					"player_id": userID,
				})
				return
			}
		}
	}
}

// Sweep pairs every candidate who has waited past the bot threshold with the
// bot. Their match is claimed on their next poll.
func (p *Pool) Sweep() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for lang, bucket := range p.queues {
		var remaining []*entry
		for _, e := range bucket {
			if now.Sub(e.enqueuedAt) >= p.config.BotThreshold {
				p.pairWithBotLocked(e.candidate, lang)
			} else {
				remaining = append(remaining, e)
			}
		}
		p.queues[lang] = remaining
	}
}

// Run sweeps on the given interval until the context is cancelled
func (p *Pool) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep()
		}
	}
}

// QueueDepths reports the number of waiting players per language
func (p *Pool) QueueDepths() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	depths := make(map[string]int, len(p.queues))
	for lang, bucket := range p.queues {
		if len(bucket) > 0 {
			depths[lang] = len(bucket)
		}
	}
	return depths
}

// pairLocked creates a human-vs-human session. The poller gets the match
// returned; the earlier waiter claims theirs on their next poll.
func (p *Pool) pairLocked(poller, waiter Candidate, language string) *Match {
	first, second := waiter, poller
	if p.rng.Intn(2) == 0 {
		first, second = poller, waiter
	}

	s := game.NewSession(uuid.New().String(), language,
		playerState(first, false), playerState(second, false),
		p.config.MaxRounds, false)
	p.registry.Add(s)

	p.matches[waiter.UserID] = &Match{
		GameID:        s.GameID,
		Language:      language,
		Player1ID:     first.UserID,
		Player2ID:     second.UserID,
		OpponentID:    poller.UserID,
		OpponentName:  poller.Username,
		OpponentLevel: poller.Level,
	}

	logging.LogMatchmakingEvent("matched", language, map[string]interface{}{
		"game_id": s.GameID,
		"players": []int64{first.UserID, second.UserID},
	})

	return &Match{
		GameID:        s.GameID,
		Language:      language,
		Player1ID:     first.UserID,
		Player2ID:     second.UserID,
		OpponentID:    waiter.UserID,
		OpponentName:  waiter.Username,
		OpponentLevel: waiter.Level,
	}
}

// pairWithBotLocked backs a long-waiting candidate with the singleton bot
// account wearing a language-appropriate name and a level near the human's.
func (p *Pool) pairWithBotLocked(c Candidate, language string) {
	botUser, err := p.db.GetSingletonBotUser()
	if err != nil {
		logging.Error("Failed to load bot user for matchmaking", map[string]interface{}{
			"player_id": c.UserID,
			"error":     err.Error(),
		})
		return
	}

	names := p.config.BotNamesFor(language)
	botName := "WordBot"
	if len(names) > 0 {
		botName = names[p.rng.Intn(len(names))]
	}
	botLevel := c.Level + p.rng.Intn(11) - 5
	if botLevel < 1 {
		botLevel = 1
	}

	human := playerState(c, false)
	bot := &game.PlayerState{
		ID:    botUser.ID,
		Name:  botName,
		Level: botLevel,
		IsBot: true,
	}

	first, second := human, bot
	if p.rng.Intn(2) == 0 {
		first, second = bot, human
	}

	s := game.NewSession(uuid.New().String(), language, first, second,
		p.config.MaxRounds, true)
	p.registry.Add(s)

	p.matches[c.UserID] = &Match{
		GameID:        s.GameID,
		Language:      language,
		Player1ID:     first.ID,
		Player2ID:     second.ID,
		OpponentID:    bot.ID,
		OpponentName:  botName,
		OpponentLevel: botLevel,
		IsBotGame:     true,
	}

	logging.LogMatchmakingEvent("bot_matched", language, map[string]interface{}{
		"game_id":   s.GameID,
		"player_id": c.UserID,
		"bot_name":  botName,
		"bot_level": botLevel,
	})
}

func playerState(c Candidate, isBot bool) *game.PlayerState {
	return &game.PlayerState{
		ID:    c.UserID,
		Name:  c.Username,
		Level: c.Level,
		IsBot: isBot,
	}
}
