// Package gateway is the only path by which player intent reaches the server.
// Each command is emitted with an acknowledgement contract; rejections become
// one-shot toasts, and commands the local turn gates already forbid are
// refused without touching the wire. State changes only ever come back
// through the authoritative snapshot stream.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stockticker/game-client/internal/creds"
	"github.com/stockticker/game-client/internal/gamestate"
	"github.com/stockticker/game-client/internal/identity"
	"github.com/stockticker/game-client/internal/metrics"
	"github.com/stockticker/game-client/internal/model"
	"github.com/stockticker/game-client/internal/transport"
)

// Game creation bounds, enforced locally before emitting.
const (
	MinPlayers = 2
	MaxPlayers = 8
	MinRounds  = 1
	MaxRounds  = 100
)

// ErrNotEligible is returned when the local turn gates forbid the action;
// the command is never emitted.
var ErrNotEligible = errors.New("gateway: action not allowed right now")

// RejectedError is a structured server rejection: the ack arrived with
// success=false and the given reason.
type RejectedError struct {
	Event  string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Event, e.Reason)
}

// UnknownOutcome reports whether the error means the command's fate is
// unknown (timeout or connection loss), as opposed to a definite rejection.
func UnknownOutcome(err error) bool {
	return errors.Is(err, transport.ErrAckTimeout) || errors.Is(err, transport.ErrConnectionLost)
}

// Gateway emits player commands over the transport session.
type Gateway struct {
	bus   transport.Bus
	store *gamestate.Store
	creds *creds.Store
	id    identity.Identity
}

// New wires the gateway to its collaborators.
func New(bus transport.Bus, store *gamestate.Store, cs *creds.Store, id identity.Identity) *Gateway {
	return &Gateway{bus: bus, store: store, creds: cs, id: id}
}

// Identity returns the session identity the gateway signs commands with.
func (g *Gateway) Identity() identity.Identity { return g.id }

type createPayload struct {
	Rounds     int    `json:"rounds"`
	MaxPlayers int    `json:"maxPlayers"`
	AICount    int    `json:"aiCount"`
	IsPublic   bool   `json:"isPublic"`
	Username   string `json:"username,omitempty"`
	Token      string `json:"token,omitempty"`
}

type joinPayload struct {
	GameID   string `json:"gameId"`
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
}

type gamePayload struct {
	GameID string `json:"gameId"`
}

type tradePayload struct {
	GameID   string `json:"gameId"`
	Stock    string `json:"stock"`
	Quantity int64  `json:"quantity"`
}

// CreateGame asks the server for a new session and returns its id.
func (g *Gateway) CreateGame(ctx context.Context, rounds, maxPlayers, aiCount int, isPublic bool) (string, error) {
	switch {
	case rounds < MinRounds || rounds > MaxRounds:
		return "", fmt.Errorf("gateway: rounds must be between %d and %d", MinRounds, MaxRounds)
	case maxPlayers < MinPlayers || maxPlayers > MaxPlayers:
		return "", fmt.Errorf("gateway: maxPlayers must be between %d and %d", MinPlayers, MaxPlayers)
	case aiCount < 0 || aiCount > maxPlayers-1:
		return "", fmt.Errorf("gateway: aiCount must be between 0 and maxPlayers-1")
	}

	ack, err := g.command(ctx, transport.EventCreate, createPayload{
		Rounds:     rounds,
		MaxPlayers: maxPlayers,
		AICount:    aiCount,
		IsPublic:   isPublic,
		Username:   g.id.Username,
		Token:      g.id.Token,
	}, "Failed to create game")
	if err != nil {
		return "", err
	}
	if ack.GameID == "" {
		return "", fmt.Errorf("gateway: server did not return a game id")
	}
	g.rememberGame(ack.GameID)
	return ack.GameID, nil
}

// JoinGame enters an existing game as the session identity.
func (g *Gateway) JoinGame(ctx context.Context, gameID string) error {
	_, err := g.command(ctx, transport.EventJoin, joinPayload{
		GameID:   gameID,
		Username: g.id.Username,
		Token:    g.id.Token,
	}, "Join failed")
	if err == nil {
		g.rememberGame(gameID)
	}
	return err
}

// RejoinGame re-attaches to a game after a connection drop.
func (g *Gateway) RejoinGame(ctx context.Context, gameID string) error {
	_, err := g.command(ctx, transport.EventRejoin, joinPayload{
		GameID:   gameID,
		Username: g.id.Username,
		Token:    g.id.Token,
	}, "Rejoin failed")
	if err == nil {
		g.rememberGame(gameID)
	}
	return err
}

// AutoRejoin re-enters the last-known game, if any. Wire it to the
// transport's reconnect callback so drops recover without player action.
func (g *Gateway) AutoRejoin(ctx context.Context) {
	gameID := g.creds.LastGameID()
	if gameID == "" {
		return
	}
	if err := g.RejoinGame(ctx, gameID); err != nil {
		slog.Warn("auto-rejoin failed", "game_id", gameID, "err", err)
	}
}

// Roll rolls the dice. Locally refused unless the turn gates allow it; a
// roll inlined in the ack is fed into the reducer as if it had arrived via
// the dice-rolled event, saving a round trip.
func (g *Gateway) Roll(ctx context.Context, gameID string) error {
	if !g.eligibility().Roll {
		return ErrNotEligible
	}
	ack, err := g.command(ctx, transport.EventRoll, gamePayload{GameID: gameID}, "Roll failed")
	if err != nil {
		return err
	}
	g.store.MarkRolled()
	if ack.Roll != nil {
		g.store.ApplyRoll(*ack.Roll)
	}
	return nil
}

// Buy purchases qty shares of a symbol.
func (g *Gateway) Buy(ctx context.Context, gameID, stock string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("gateway: quantity must be positive")
	}
	if !g.eligibility().Buy {
		return ErrNotEligible
	}
	_, err := g.command(ctx, transport.EventBuy, tradePayload{GameID: gameID, Stock: stock, Quantity: qty}, "Buy failed")
	return err
}

// Sell sells qty shares of a symbol.
func (g *Gateway) Sell(ctx context.Context, gameID, stock string, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("gateway: quantity must be positive")
	}
	if !g.eligibility().Sell {
		return ErrNotEligible
	}
	_, err := g.command(ctx, transport.EventSell, tradePayload{GameID: gameID, Stock: stock, Quantity: qty}, "Sell failed")
	return err
}

// EndTurn passes the turn.
func (g *Gateway) EndTurn(ctx context.Context, gameID string) error {
	if !g.eligibility().EndTurn {
		return ErrNotEligible
	}
	_, err := g.command(ctx, transport.EventEndTurn, gamePayload{GameID: gameID}, "Cannot end turn")
	return err
}

// StartGame begins the game; the server enforces that only the host may.
func (g *Gateway) StartGame(ctx context.Context, gameID string) error {
	_, err := g.command(ctx, transport.EventStart, gamePayload{GameID: gameID}, "Start failed")
	return err
}

// ReturnHome notifies the server the player is leaving. Fire-and-forget: no
// ack is awaited and the caller handles local navigation.
func (g *Gateway) ReturnHome(gameID string) error {
	g.forgetGame()
	return g.bus.Emit(transport.EventReturnHome, gamePayload{GameID: gameID})
}

// ListPublic fetches the joinable public games.
func (g *Gateway) ListPublic(ctx context.Context) ([]model.PublicGame, error) {
	ack, err := g.command(ctx, transport.EventListPublic, struct{}{}, "Failed to list games")
	if err != nil {
		return nil, err
	}
	return ack.Games, nil
}

// ClearGameState resets the store to the empty no-game state and forgets the
// recorded game id. Listener teardown belongs to the store's Close — the
// session scope owns every listener and removes them together.
func (g *Gateway) ClearGameState() {
	g.store.Reset()
	g.forgetGame()
}

// LocalPlayerID resolves the session identity to a seat in the current
// snapshot, empty when not seated yet.
func (g *Gateway) LocalPlayerID() string {
	if pl, ok := g.store.State().PlayerByUsername(g.id.Username); ok {
		return pl.ID
	}
	return ""
}

func (g *Gateway) eligibility() gamestate.Eligibility {
	return g.store.State().Eligibility(g.LocalPlayerID())
}

// command emits one acknowledged event and interprets the reply. Rejections
// surface as toasts; timeouts and connection drops are "unknown outcome",
// also toasted but distinguishable via UnknownOutcome.
func (g *Gateway) command(ctx context.Context, event string, payload any, fallback string) (model.Ack, error) {
	raw, err := g.bus.EmitWithAck(ctx, event, payload)
	if err != nil {
		if UnknownOutcome(err) {
			metrics.CommandsEmitted.WithLabelValues(event, "timeout").Inc()
			g.store.PushToast("No response from server — the action may or may not have applied")
		} else {
			metrics.CommandsEmitted.WithLabelValues(event, "error").Inc()
		}
		return model.Ack{}, err
	}

	var ack model.Ack
	if err := json.Unmarshal(raw, &ack); err != nil {
		metrics.CommandsEmitted.WithLabelValues(event, "error").Inc()
		return model.Ack{}, fmt.Errorf("gateway: malformed ack for %s: %w", event, err)
	}

	if !ack.Success {
		metrics.CommandsEmitted.WithLabelValues(event, "rejected").Inc()
		reason := ack.Reason(fallback)
		g.store.PushToast(reason)
		return ack, &RejectedError{Event: event, Reason: reason}
	}

	metrics.CommandsEmitted.WithLabelValues(event, "ok").Inc()
	return ack, nil
}

func (g *Gateway) rememberGame(gameID string) {
	if err := g.creds.SetLastGameID(gameID); err != nil {
		slog.Warn("failed to record game id", "err", err)
	}
}

func (g *Gateway) forgetGame() {
	if err := g.creds.ClearLastGameID(); err != nil {
		slog.Warn("failed to clear game id", "err", err)
	}
}
