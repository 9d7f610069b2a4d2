// Package gamestate holds the client-side view of one game session: the
// latest authoritative server snapshot plus derived, presentation-only fields
// (price history, flash colors, toasts, countdowns).
//
// All mutation happens inside a single reducer goroutine fed by an inbox
// channel, so it does not matter which goroutine the transport delivers
// events on. Consumers read immutable GameUiState values.
package gamestate

import (
	"github.com/shopspring/decimal"

	"github.com/stockticker/game-client/internal/model"
)

// HistoryDepth is how many recent prices are kept per symbol for sparklines.
const HistoryDepth = 8

// GameUiState is one immutable view of the session. Game is the server's
// snapshot; everything else is derived client-side and never sent back.
type GameUiState struct {
	// Game is the latest authoritative snapshot, nil before the first
	// game:update arrives.
	Game *model.GameSnapshot

	// StockChanges maps symbol → last roll action, for row flashes.
	// Decoration only: stale after a reconnect until the next roll.
	StockChanges map[string]model.RollAction

	// PriceHistory maps symbol → last HistoryDepth observed prices, oldest
	// first. Read through Sparkline, which seeds a sentinel when empty.
	PriceHistory map[string][]decimal.Decimal

	// LastRoll is the most recent dice-roll payload, nil if none.
	LastRoll *model.Roll

	// Toast is the single pending one-shot message, empty if none.
	Toast string

	// Countdown is the remaining seconds before auto-start, nil if none.
	Countdown *int

	// localRolled is the optimistic "I already rolled this turn" hint, set
	// when a roll command succeeds and reset on turn change. The
	// server-reported per-player flag overrides it whenever present.
	localRolled bool
}

// Eligibility is the computed set of actions the local player may currently
// take. It is derived, never stored.
type Eligibility struct {
	Roll    bool
	Buy     bool
	Sell    bool
	EndTurn bool
}

// HasRolled reports whether the given player has rolled this turn. The
// server-reported flag is authoritative when present; the local optimistic
// hint only bridges the latency until the next snapshot.
func (u GameUiState) HasRolled(playerID string) bool {
	if pl, ok := u.Game.PlayerByID(playerID); ok && pl.HasRolled != nil {
		return *pl.HasRolled
	}
	return u.localRolled
}

// Eligibility computes the turn gates for the given player id:
//
//   - every action requires it to be the player's turn;
//   - Roll requires active status and no roll yet this turn;
//   - Buy/Sell/EndTurn require initial-buy, or active after rolling;
//   - Buy additionally requires affordable stock, Sell requires holdings.
func (u GameUiState) Eligibility(playerID string) Eligibility {
	g := u.Game
	if g == nil || playerID == "" || g.CurrentTurnPlayerID != playerID {
		return Eligibility{}
	}
	pl, ok := g.PlayerByID(playerID)
	if !ok {
		return Eligibility{}
	}

	active := g.Status == model.StatusActive
	initialBuy := g.Status == model.StatusInitialBuy
	rolled := u.HasRolled(playerID)

	tradePhase := initialBuy || (active && rolled)
	return Eligibility{
		Roll:    active && !rolled,
		Buy:     tradePhase && pl.CanAffordAnyShare(g.Stocks),
		Sell:    tradePhase && pl.Portfolio.HasAnyShares(),
		EndTurn: tradePhase,
	}
}

// Sparkline returns the recorded price history for a symbol. When no roll has
// touched the symbol yet it returns a two-point sentinel at the current price
// (or 1 if unquoted) so chart scaling never divides by zero. The sentinel is
// never stored.
func (u GameUiState) Sparkline(symbol string) []decimal.Decimal {
	if h := u.PriceHistory[symbol]; len(h) > 0 {
		return h
	}
	p, ok := u.Game.Price(symbol)
	if !ok || !p.IsPositive() {
		p = decimal.NewFromInt(1)
	}
	return []decimal.Decimal{p, p}
}

// PlayerByUsername finds the seat whose username matches; used to resolve the
// local session identity to a player id.
func (u GameUiState) PlayerByUsername(username string) (model.Player, bool) {
	if u.Game == nil {
		return model.Player{}, false
	}
	for _, pl := range u.Game.Players {
		if pl.Username == username {
			return pl, true
		}
	}
	return model.Player{}, false
}
