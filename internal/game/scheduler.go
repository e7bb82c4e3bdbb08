package game

import (
	"sync"
	"time"
)

// armedTimer is one live arm: the timer plus the generation it was armed
// under, so an expiry from a replaced arm can be told apart from the
// current one.
type armedTimer struct {
	timer *time.Timer
	gen   uint64
}

// Scheduler owns the per-game turn timers. Arming a game replaces any timer
// it already holds, so at most one timer per game is ever live.
type Scheduler struct {
	mu     sync.Mutex
	gen    uint64
	timers map[string]*armedTimer
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[string]*armedTimer)}
}

// Arm schedules fn to run after d for the given game, cancelling any timer
// already armed for it. fn runs on the timer goroutine and must re-check
// session state itself; the scheduler does not know about turns.
func (sc *Scheduler) Arm(gameID string, d time.Duration, fn func()) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if t, ok := sc.timers[gameID]; ok {
		t.timer.Stop()
	}
	sc.gen++
	gen := sc.gen
	sc.timers[gameID] = &armedTimer{
		timer: time.AfterFunc(d, func() { sc.fire(gameID, gen, fn) }),
		gen:   gen,
	}
}

// fire runs an expired arm's callback. An expiry whose arm was cancelled or
// replaced between firing and reaching the lock must do nothing: it may not
// unregister the game's current timer, and it may not run its callback.
func (sc *Scheduler) fire(gameID string, gen uint64, fn func()) {
	sc.mu.Lock()
	current, ok := sc.timers[gameID]
	if !ok || current.gen != gen {
		sc.mu.Unlock()
		return
	}
	delete(sc.timers, gameID)
	sc.mu.Unlock()
	fn()
}

// Cancel stops and forgets the game's timer, if any
func (sc *Scheduler) Cancel(gameID string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if t, ok := sc.timers[gameID]; ok {
		t.timer.Stop()
		delete(sc.timers, gameID)
	}
}

// ArmedCount returns the number of live timers, for monitoring
func (sc *Scheduler) ArmedCount() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.timers)
}
