package chat

import (
	"sort"
	"sync"
	"time"

	"realtime-chat/internal/models"
)

// TypingTracker holds the ephemeral "currently typing" set per scope.
// Entries self-expire after a fixed window so an abrupt disconnect or a
// closed tab never leaves a username stuck in the typing line. Expiry is
// enforced twice: lazily on read, and by a background sweep that also
// fires the change callback so audiences see the entry disappear without
// any further signal from the typist.
type TypingTracker struct {
	window time.Duration

	mu      sync.Mutex
	entries map[string]map[string]time.Time // scope key -> username -> expiry
	scopes  map[string]models.Scope         // scope key -> scope, for sweep callbacks
	notify  func(models.Scope)

	stop chan struct{}
	once sync.Once
}

func NewTypingTracker(window time.Duration) *TypingTracker {
	t := &TypingTracker{
		window:  window,
		entries: make(map[string]map[string]time.Time),
		scopes:  make(map[string]models.Scope),
		stop:    make(chan struct{}),
	}
	go t.sweep()
	return t
}

// OnChange installs the callback invoked when the sweep expires entries
// in a scope.
func (t *TypingTracker) OnChange(fn func(models.Scope)) {
	t.mu.Lock()
	t.notify = fn
	t.mu.Unlock()
}

// Set records that username started (or, with typing=false, stopped)
// typing in the scope. Starting refreshes the expiry window. It reports
// whether the scope's typist set changed.
func (t *TypingTracker) Set(scope models.Scope, username string, typing bool) bool {
	key := scope.Key()

	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.entries[key]
	if typing {
		_, present := set[username]
		if set == nil {
			set = make(map[string]time.Time)
			t.entries[key] = set
			t.scopes[key] = scope
		}
		set[username] = time.Now().Add(t.window)
		return !present
	}

	if _, present := set[username]; !present {
		return false
	}
	delete(set, username)
	return true
}

// Typists returns the raw set of usernames currently typing in the scope,
// sorted. Self-exclusion is the fan-out edge's job, not the tracker's.
// Entries past their window are treated as absent.
func (t *TypingTracker) Typists(scope models.Scope) []string {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.entries[scope.Key()]
	out := make([]string, 0, len(set))
	for name, expiry := range set {
		if now.After(expiry) {
			delete(set, name)
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Remove drops username from every scope it is typing in and returns the
// affected scopes so the caller can broadcast the shrunken sets. Used on
// disconnect.
func (t *TypingTracker) Remove(username string) []models.Scope {
	t.mu.Lock()
	defer t.mu.Unlock()

	var affected []models.Scope
	for key, set := range t.entries {
		if _, ok := set[username]; ok {
			delete(set, username)
			affected = append(affected, t.scopes[key])
		}
	}
	return affected
}

// Stop terminates the background sweep. Safe to call more than once.
func (t *TypingTracker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

func (t *TypingTracker) sweep() {
	interval := t.window / 3
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case now := <-ticker.C:
			var expired []models.Scope
			t.mu.Lock()
			for key, set := range t.entries {
				removed := false
				for name, expiry := range set {
					if now.After(expiry) {
						delete(set, name)
						removed = true
					}
				}
				if removed {
					expired = append(expired, t.scopes[key])
				}
			}
			notify := t.notify
			t.mu.Unlock()

			if notify != nil {
				for _, scope := range expired {
					notify(scope)
				}
			}
		}
	}
}
