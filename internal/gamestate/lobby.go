package gamestate

import (
	"encoding/json"
	"sync"

	"github.com/stockticker/game-client/internal/transport"
)

// LobbyStore tracks only the pre-game auto-start countdown. It is independent
// of the main store because the lobby view needs countdown updates before any
// snapshot exists. Created per lobby visit; Close removes its listeners so
// none leak across sessions.
type LobbyStore struct {
	mu        sync.Mutex
	countdown *int

	watch   chan struct{}
	cancels []func()
	once    sync.Once
}

// NewLobbyStore creates the store and attaches it to the session's countdown
// events.
func NewLobbyStore(bus transport.Bus) *LobbyStore {
	s := &LobbyStore{watch: make(chan struct{}, 1)}

	s.cancels = append(s.cancels, bus.Subscribe(transport.EventCountdown, func(data json.RawMessage) {
		if seconds, ok := decodeCountdown(data); ok {
			s.set(&seconds)
		}
	}))
	s.cancels = append(s.cancels, bus.Subscribe(transport.EventCountdownStop, func(json.RawMessage) {
		s.set(nil)
	}))
	return s
}

// Countdown returns the remaining seconds, or ok=false when no countdown is
// running.
func (s *LobbyStore) Countdown() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdown == nil {
		return 0, false
	}
	return *s.countdown, true
}

// Watch returns a conflated notification channel ticked on every change.
func (s *LobbyStore) Watch() <-chan struct{} {
	return s.watch
}

// Close detaches the listeners. Idempotent.
func (s *LobbyStore) Close() {
	s.once.Do(func() {
		for _, cancel := range s.cancels {
			cancel()
		}
		s.cancels = nil
	})
}

func (s *LobbyStore) set(v *int) {
	s.mu.Lock()
	s.countdown = v
	s.mu.Unlock()
	select {
	case s.watch <- struct{}{}:
	default:
	}
}
