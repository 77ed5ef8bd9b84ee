// Package websearch provides the rate-limited, circuit-broken web search
// client backing the web_search read tool. Search results are fetched from
// free public sources (DuckDuckGo, Wikipedia, PubMed) and cached, so a single
// misbehaving source shouldn't stall every turn that reaches for it.
package websearch

import (
	"sync"
	"time"
)

// breakerState is one source's open/closed state. Ported directly from
// original_source/backend/tools/web_tools.py's module-level _CB_STATE dict:
// a source opens after FailThreshold consecutive failures and stays open for
// OpenDuration before the next call is allowed through again.
type breakerState struct {
	failures  int
	openUntil time.Time
}

// CircuitBreaker guards a small fixed set of named upstream sources.
type CircuitBreaker struct {
	mu            sync.Mutex
	states        map[string]*breakerState
	failThreshold int
	openDuration  time.Duration
	now           func() time.Time
}

// NewCircuitBreaker builds a breaker for the given source names.
func NewCircuitBreaker(failThreshold int, openDuration time.Duration, sources ...string) *CircuitBreaker {
	if failThreshold < 1 {
		failThreshold = 1
	}
	if openDuration < 5*time.Second {
		openDuration = 5 * time.Second
	}
	cb := &CircuitBreaker{
		states:        make(map[string]*breakerState, len(sources)),
		failThreshold: failThreshold,
		openDuration:  openDuration,
		now:           time.Now,
	}
	for _, s := range sources {
		cb.states[s] = &breakerState{}
	}
	return cb
}

// Allow reports whether a call to source may proceed.
func (cb *CircuitBreaker) Allow(source string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	st := cb.stateFor(source)
	return !cb.now().Before(st.openUntil)
}

// RecordSuccess resets the failure count for source.
func (cb *CircuitBreaker) RecordSuccess(source string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	st := cb.stateFor(source)
	st.failures = 0
	st.openUntil = time.Time{}
}

// RecordFailure increments the failure count for source, tripping the
// breaker open once FailThreshold consecutive failures accrue.
func (cb *CircuitBreaker) RecordFailure(source string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	st := cb.stateFor(source)
	st.failures++
	if st.failures >= cb.failThreshold {
		st.openUntil = cb.now().Add(cb.openDuration)
	}
}

func (cb *CircuitBreaker) stateFor(source string) *breakerState {
	st, ok := cb.states[source]
	if !ok {
		st = &breakerState{}
		cb.states[source] = st
	}
	return st
}

// Run executes fn only if source's breaker is closed, recording the
// outcome. It returns ErrCircuitOpen without calling fn when open.
func (cb *CircuitBreaker) Run(source string, fn func() error) error {
	if !cb.Allow(source) {
		return ErrCircuitOpen{Source: source}
	}
	if err := fn(); err != nil {
		cb.RecordFailure(source)
		return err
	}
	cb.RecordSuccess(source)
	return nil
}

// ErrCircuitOpen indicates a source's breaker is currently tripped.
type ErrCircuitOpen struct{ Source string }

func (e ErrCircuitOpen) Error() string { return e.Source + " circuit_open" }
