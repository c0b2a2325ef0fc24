package provider

import (
	"fmt"
	"sync"
	"time"
)

// Default failure-handling parameters, matching the batch loop's cooldown.
const (
	DefaultMaxFailures = 3
	DefaultCooldown    = 60 * time.Second
)

// failureState tracks one provider's health: a consecutive-failure counter
// and the time of the last failure. A provider is in cooldown while its
// counter has reached the threshold and the cooldown window since the last
// failure has not elapsed; after the window it gets another chance.
type failureState struct {
	consecutiveFailures int
	lastFailure         time.Time
}

// Set holds the configured providers in priority order and the per-provider
// failure bookkeeping used for fallback selection. All state transitions go
// through one mutex.
type Set struct {
	mu          sync.Mutex
	clients     []Client
	state       map[string]*failureState
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// NewSet builds a provider set. Order of clients is the fallback priority.
// maxFailures <= 0 and cooldown <= 0 select the defaults.
func NewSet(clients []Client, maxFailures int, cooldown time.Duration) *Set {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	state := make(map[string]*failureState, len(clients))
	for _, c := range clients {
		state[c.ID()] = &failureState{}
	}
	return &Set{
		clients:     clients,
		state:       state,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Pick returns the first provider by priority that is not in cooldown.
func (s *Set) Pick() (Client, error) {
	return s.PickExcluding(nil)
}

// PickExcluding returns the first provider by priority that is not in
// cooldown and not in the exclude set. Callers use the exclusion to walk
// down the fallback order within one batch.
func (s *Set) PickExcluding(exclude map[string]bool) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		if exclude[c.ID()] {
			continue
		}
		if !s.inCooldown(c.ID()) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no provider available (%d configured)", len(s.clients))
}

func (s *Set) inCooldown(id string) bool {
	st := s.state[id]
	if st == nil || st.consecutiveFailures < s.maxFailures {
		return false
	}
	return s.now().Sub(st.lastFailure) < s.cooldown
}

// RecordFailure bumps the failure counter for a provider.
func (s *Set) RecordFailure(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state[id]
	if st == nil {
		st = &failureState{}
		s.state[id] = st
	}
	st.consecutiveFailures++
	st.lastFailure = s.now()
}

// RecordSuccess resets the failure counter for a provider.
func (s *Set) RecordSuccess(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.state[id]; st != nil {
		st.consecutiveFailures = 0
	}
}

// Failures returns the current consecutive-failure count for a provider.
func (s *Set) Failures(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.state[id]; st != nil {
		return st.consecutiveFailures
	}
	return 0
}

// Len returns the number of configured providers.
func (s *Set) Len() int {
	return len(s.clients)
}
