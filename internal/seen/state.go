// Package seen holds the cooldown set of token identities that already
// produced an alert. The whole set is cleared at once when the cooldown
// window measured from the last reset has elapsed.
package seen

import (
	"sync"
	"time"

	"runner-scout/internal/clock"
)

// DefaultCooldown is the bulk reset interval.
const DefaultCooldown = time.Hour

// State is the seen-identity set. It is owned by the poll loop; the mutex
// only guards reads from the status server.
type State struct {
	mu         sync.Mutex
	clock      clock.Clock
	cooldown   time.Duration
	identities map[string]time.Time // identity -> first seen
	lastReset  time.Time
	onReset    func()
}

// Options configures a State.
type Options struct {
	Cooldown time.Duration
	Clock    clock.Clock
	// OnReset is called after every bulk reset.
	OnReset func()
}

// New creates an empty State whose window starts now.
func New(opts Options) *State {
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &State{
		clock:      clk,
		cooldown:   cooldown,
		identities: make(map[string]time.Time),
		lastReset:  clk.Now(),
		onReset:    opts.OnReset,
	}
}

// IsNew reports whether identity has not been seen in the current window.
// An empty identity is never new.
func (s *State) IsNew(identity string) bool {
	if identity == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()
	_, ok := s.identities[identity]
	return !ok
}

// MarkSeen records identity. Marking an already seen identity keeps its
// first-seen time.
func (s *State) MarkSeen(identity string) {
	if identity == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()
	if _, ok := s.identities[identity]; !ok {
		s.identities[identity] = s.clock.Now()
	}
}

// FirstSeen returns when identity was first marked in the current window.
func (s *State) FirstSeen(identity string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()
	t, ok := s.identities[identity]
	return t, ok
}

// Len returns the number of identities in the current window.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.identities)
}

// LastReset returns the start of the current window.
func (s *State) LastReset() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReset
}

// Cooldown returns the window length.
func (s *State) Cooldown() time.Duration {
	return s.cooldown
}

// Reset clears all identities and starts a new window.
func (s *State) Reset() {
	s.mu.Lock()
	s.resetLocked(s.clock.Now())
	s.mu.Unlock()
}

func (s *State) expireLocked() {
	now := s.clock.Now()
	if now.Sub(s.lastReset) >= s.cooldown {
		s.resetLocked(now)
	}
}

func (s *State) resetLocked(now time.Time) {
	s.identities = make(map[string]time.Time)
	s.lastReset = now
	if s.onReset != nil {
		s.onReset()
	}
}
