package usage

import (
	"sync"
	"time"
)

// Report carries per-response token counts from a provider
type Report struct {
	InputTokens       int
	OutputTokens      int
	InputAudioTokens  int
	OutputAudioTokens int
	CachedTokens      int
}

// Totals is a snapshot of accumulated usage for one session
type Totals struct {
	InputTokens       int
	OutputTokens      int
	InputAudioTokens  int
	OutputAudioTokens int
	CachedTokens      int
	Responses         int
	SessionDuration   time.Duration
}

// Accumulator sums usage reports plus wall-clock session time.
// Safe for concurrent use; the session controller feeds it from provider
// events and snapshots include in-flight session time.
type Accumulator struct {
	mu        sync.Mutex
	totals    Totals
	startedAt time.Time
	running   bool
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// StartSession marks the start of wall-clock accounting; idempotent while running
func (a *Accumulator) StartSession() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.startedAt = time.Now()
	a.running = true
}

// EndSession folds the elapsed wall-clock time into the totals
func (a *Accumulator) EndSession() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	a.totals.SessionDuration += time.Since(a.startedAt)
	a.running = false
}

// Add folds one usage report into the totals
func (a *Accumulator) Add(r Report) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totals.InputTokens += r.InputTokens
	a.totals.OutputTokens += r.OutputTokens
	a.totals.InputAudioTokens += r.InputAudioTokens
	a.totals.OutputAudioTokens += r.OutputAudioTokens
	a.totals.CachedTokens += r.CachedTokens
	a.totals.Responses++
}

// Snapshot returns the accumulated totals. While a session is running the
// duration includes the in-flight wall-clock time.
func (a *Accumulator) Snapshot() Totals {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.totals
	if a.running {
		out.SessionDuration += time.Since(a.startedAt)
	}
	return out
}

// Reset clears all accumulated usage
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totals = Totals{}
	a.running = false
}
