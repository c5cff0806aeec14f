package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrSessionRequired is returned when a turn arrives without a session id.
var ErrSessionRequired = errors.New("session: session id required")

// Registry hands out exclusive access to one session at a time. Turns for
// different sessions run in parallel; a second turn for the same session
// waits until the first has saved its state.
type Registry struct {
	mu        sync.Mutex
	entries   map[string]*entry
	snapshots SnapshotStore
}

type entry struct {
	lock chan struct{}
	refs int
}

// NewRegistry builds a registry over snapshots, defaulting to memory.
func NewRegistry(snapshots SnapshotStore) *Registry {
	if snapshots == nil {
		snapshots = NewMemorySnapshots()
	}
	return &Registry{
		entries:   make(map[string]*entry),
		snapshots: snapshots,
	}
}

// Do loads the session state, runs fn on it while holding the session's
// lock, and saves the result. If fn returns an error nothing is saved.
func (r *Registry) Do(ctx context.Context, sessionID string, fn func(*State) error) (State, error) {
	if sessionID == "" {
		return State{}, ErrSessionRequired
	}
	e := r.retain(sessionID)
	defer r.release(sessionID, e)

	select {
	case e.lock <- struct{}{}:
	case <-ctx.Done():
		return State{}, fmt.Errorf("session: wait for turn: %w", ctx.Err())
	}
	defer func() { <-e.lock }()

	state, found, err := r.snapshots.Load(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	if !found {
		state = New(sessionID)
	}
	if err := fn(&state); err != nil {
		return state.Clone(), err
	}
	if err := r.snapshots.Save(ctx, state); err != nil {
		return state.Clone(), err
	}
	return state.Clone(), nil
}

// Get returns the current state without taking the session lock.
func (r *Registry) Get(ctx context.Context, sessionID string) (State, error) {
	if sessionID == "" {
		return State{}, ErrSessionRequired
	}
	state, found, err := r.snapshots.Load(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	if !found {
		return New(sessionID), nil
	}
	return state, nil
}

func (r *Registry) retain(sessionID string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		e = &entry{lock: make(chan struct{}, 1)}
		r.entries[sessionID] = e
	}
	e.refs++
	return e
}

func (r *Registry) release(sessionID string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(r.entries, sessionID)
	}
}
