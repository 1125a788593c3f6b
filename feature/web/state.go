package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"guildsync/feature/battlenet"
)

// authState carries one pending authorization handshake between the start
// redirect and the callback.
type authState struct {
	RemoteSystemID int64
	RemoteUserID   int64
	Region         battlenet.Region
	createdAt      time.Time
}

// stateStore holds pending handshakes keyed by the opaque OAuth state value.
// Entries expire after the configured TTL; expired entries are pruned on
// access, there is no background sweeper.
type stateStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	states map[string]authState
	now    func() time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{
		ttl:    ttl,
		states: make(map[string]authState),
		now:    time.Now,
	}
}

// Put stores a pending handshake and returns its state value.
func (s *stateStore) Put(remoteSystemID, remoteUserID int64, region battlenet.Region) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()

	id := uuid.NewString()
	s.states[id] = authState{
		RemoteSystemID: remoteSystemID,
		RemoteUserID:   remoteUserID,
		Region:         region,
		createdAt:      s.now(),
	}
	return id
}

// Take removes and returns the handshake for the given state value. A state
// can be redeemed exactly once.
func (s *stateStore) Take(id string) (authState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()

	state, ok := s.states[id]
	if ok {
		delete(s.states, id)
	}
	return state, ok
}

func (s *stateStore) prune() {
	deadline := s.now().Add(-s.ttl)
	for id, state := range s.states {
		if state.createdAt.Before(deadline) {
			delete(s.states, id)
		}
	}
}
