package gamestate

import (
	"testing"
	"time"

	"github.com/stockticker/game-client/internal/transport"
)

func TestLobbyStoreCountdown(t *testing.T) {
	bus := newFakeBus()
	s := NewLobbyStore(bus)
	defer s.Close()

	if _, ok := s.Countdown(); ok {
		t.Fatal("fresh lobby store should have no countdown")
	}

	bus.inject(t, transport.EventCountdown, `10`)
	if v, ok := s.Countdown(); !ok || v != 10 {
		t.Fatalf("countdown = %d, %v; want 10", v, ok)
	}

	select {
	case <-s.Watch():
	case <-time.After(time.Second):
		t.Fatal("watch never ticked")
	}

	bus.inject(t, transport.EventCountdownStop, `null`)
	if _, ok := s.Countdown(); ok {
		t.Fatal("cancelled countdown should be cleared")
	}
}

func TestLobbyStoreSharesEventsWithGameStore(t *testing.T) {
	bus := newFakeBus()
	game := NewStore()
	game.Bind(bus)
	defer game.Close()
	lobby := NewLobbyStore(bus)
	defer lobby.Close()

	// Both stores observe the same countdown event independently.
	bus.inject(t, transport.EventCountdown, `7`)
	if v, ok := lobby.Countdown(); !ok || v != 7 {
		t.Fatalf("lobby countdown = %d, %v; want 7", v, ok)
	}
	waitState(t, game, func(st GameUiState) bool {
		return st.Countdown != nil && *st.Countdown == 7
	})
}

func TestLobbyStoreCloseDetaches(t *testing.T) {
	bus := newFakeBus()
	s := NewLobbyStore(bus)

	if got := bus.subscriberCount(transport.EventCountdown); got != 1 {
		t.Fatalf("subscribers = %d, want 1", got)
	}
	s.Close()
	s.Close()
	if got := bus.subscriberCount(transport.EventCountdown); got != 0 {
		t.Fatalf("subscribers after close = %d, want 0", got)
	}
}
