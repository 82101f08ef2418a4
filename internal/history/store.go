// Package history keeps the per-(image, prompt) record of analysis
// attempts. The latest entry for a pair is authoritative for display
// and for condition evaluation.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/promptlens/promptlens/internal/analysis"
)

type key struct {
	imageID  string
	promptID string
}

// Store is an append-only attempt log plus the in-flight attempt
// registry used to supersede duplicate runs. All history mutation is
// funneled through StartAttempt and the attempt's terminal methods,
// which preserves the strict per-pair ordering: append, then in-place
// mutation to a terminal state, never two interleaved attempts.
type Store struct {
	mu       sync.Mutex
	results  map[key][]*analysis.Result
	inflight map[key]*Attempt
	clock    func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		results:  make(map[key][]*analysis.Result),
		inflight: make(map[key]*Attempt),
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the timestamp source. Useful in tests.
func (s *Store) SetClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

// Attempt is one in-flight execution for a pair. Exactly one attempt
// per pair is live at a time; starting a new one cancels and
// supersedes the previous, whose terminal write then becomes a no-op.
type Attempt struct {
	store      *Store
	key        key
	entry      *analysis.Result
	cancel     context.CancelFunc
	superseded bool
}

// StartAttempt cancels any in-flight attempt for the pair, records a
// loading entry, and returns the attempt handle together with the
// context the network call must run under.
func (s *Store) StartAttempt(ctx context.Context, imageID, promptID string) (*Attempt, context.Context) {
	k := key{imageID: imageID, promptID: promptID}
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.inflight[k]; ok {
		prev.superseded = true
		prev.cancel()
	}

	entry := &analysis.Result{Status: analysis.StatusLoading, StartedAt: s.clock()}
	list := s.results[k]
	if n := len(list); n > 0 && list[n-1].Status == analysis.StatusLoading {
		// The previous attempt never reached a terminal state; its
		// placeholder is replaced rather than stacked.
		list[n-1] = entry
	} else {
		list = append(list, entry)
	}
	s.results[k] = list

	attempt := &Attempt{store: s, key: k, entry: entry, cancel: cancel}
	s.inflight[k] = attempt
	return attempt, ctx
}

// Update mutates the loading entry in place (fan-out placeholders).
// It is a no-op once the attempt has been superseded.
func (a *Attempt) Update(mutate func(*analysis.Result)) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	if a.superseded {
		return
	}
	mutate(a.entry)
}

// Finish moves the attempt's entry to its terminal state. It reports
// false when the attempt was superseded, in which case history is
// untouched.
func (a *Attempt) Finish(result analysis.Result) bool {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	if a.superseded {
		return false
	}

	result.StartedAt = a.entry.StartedAt
	result.FinishedAt = a.store.clock()
	*a.entry = result

	delete(a.store.inflight, a.key)
	a.cancel()
	return true
}

// Drop discards the attempt without a terminal entry: an aborted
// attempt is invisible to history.
func (a *Attempt) Drop() {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()

	if !a.superseded {
		delete(a.store.inflight, a.key)
		a.cancel()
		list := a.store.results[a.key]
		if n := len(list); n > 0 && list[n-1] == a.entry {
			list = list[:n-1]
		}
		if len(list) == 0 {
			delete(a.store.results, a.key)
		} else {
			a.store.results[a.key] = list
		}
	}
}

// Latest returns a copy of the authoritative (most recent) result for
// a pair.
func (s *Store) Latest(imageID, promptID string) (analysis.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.results[key{imageID: imageID, promptID: promptID}]
	if len(list) == 0 {
		return analysis.Result{}, false
	}
	return *list[len(list)-1], true
}

// History returns copies of every attempt for a pair, oldest first.
func (s *Store) History(imageID, promptID string) []analysis.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.results[key{imageID: imageID, promptID: promptID}]
	out := make([]analysis.Result, 0, len(list))
	for _, r := range list {
		out = append(out, *r)
	}
	return out
}

// HasResult reports whether the pair holds a non-empty history.
// Prompts with history are never re-run implicitly.
func (s *Store) HasResult(imageID, promptID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results[key{imageID: imageID, promptID: promptID}]) > 0
}

// ClearPromptsForImage removes the histories of the given prompts for
// one image, cancelling any in-flight attempts for them.
func (s *Store) ClearPromptsForImage(imageID string, promptIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pid := range promptIDs {
		s.clearLocked(key{imageID: imageID, promptID: pid})
	}
}

// DeletePrompts removes the given prompts' histories for every image.
// Called when prompts are deleted from the forest.
func (s *Store) DeletePrompts(promptIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member := make(map[string]bool, len(promptIDs))
	for _, pid := range promptIDs {
		member[pid] = true
	}
	for k := range s.results {
		if member[k.promptID] {
			s.clearLocked(k)
		}
	}
	for k := range s.inflight {
		if member[k.promptID] {
			s.clearLocked(k)
		}
	}
}

// DeleteImage removes every history for an image.
func (s *Store) DeleteImage(imageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.results {
		if k.imageID == imageID {
			s.clearLocked(k)
		}
	}
	for k := range s.inflight {
		if k.imageID == imageID {
			s.clearLocked(k)
		}
	}
}

func (s *Store) clearLocked(k key) {
	if attempt, ok := s.inflight[k]; ok {
		attempt.superseded = true
		attempt.cancel()
		delete(s.inflight, k)
	}
	delete(s.results, k)
}
