// Package model defines the wire and domain types shared across the game
// client. All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Status is the server-driven lifecycle phase of a game session. The
// progression is monotonic: waiting → initial-buy → active → complete.
// The client never assigns a status itself.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInitialBuy Status = "initial-buy"
	StatusActive     Status = "active"
	StatusComplete   Status = "complete"
)

// Rank returns the position of the status in the lifecycle, or -1 for an
// unknown value.
func (s Status) Rank() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusInitialBuy:
		return 1
	case StatusActive:
		return 2
	case StatusComplete:
		return 3
	}
	return -1
}

// RollAction is the price effect of one dice roll.
type RollAction string

const (
	RollUp       RollAction = "up"
	RollDown     RollAction = "down"
	RollDividend RollAction = "dividend"
)

// Stock is one tradable symbol's server-quoted state.
type Stock struct {
	Price decimal.Decimal `json:"price"`
}

// Lot is a discrete purchase record preserving cost basis for one buy.
type Lot struct {
	Qty   int64           `json:"qty"`
	Price decimal.Decimal `json:"price"`
}

// Portfolio maps a stock symbol to its purchase lots, oldest first.
//
// Two wire shapes exist for holdings: the lots form `[{qty,price},...]` and a
// legacy flat integer. Decoding accepts both; a flat quantity becomes a single
// lot with zero cost basis.
type Portfolio map[string][]Lot

// UnmarshalJSON accepts both the lots shape and the legacy flat-quantity shape.
func (p *Portfolio) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Portfolio, len(raw))
	for symbol, v := range raw {
		var lots []Lot
		if err := json.Unmarshal(v, &lots); err == nil {
			out[symbol] = lots
			continue
		}
		var qty int64
		if err := json.Unmarshal(v, &qty); err == nil {
			if qty > 0 {
				out[symbol] = []Lot{{Qty: qty}}
			}
			continue
		}
		// Unrecognized shape for one symbol: skip it rather than fail the
		// whole snapshot.
	}
	*p = out
	return nil
}

// Shares returns the total owned quantity of a symbol across its lots.
// A lot with qty 0 counts as absent.
func (p Portfolio) Shares(symbol string) int64 {
	var total int64
	for _, lot := range p[symbol] {
		total += lot.Qty
	}
	return total
}

// CostBasis returns the total amount paid for the currently held shares of a
// symbol (FIFO accounting — sold shares consume the oldest lots first).
func (p Portfolio) CostBasis(symbol string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range p[symbol] {
		total = total.Add(lot.Price.Mul(decimal.NewFromInt(lot.Qty)))
	}
	return total
}

// HasAnyShares reports whether any symbol has a positive owned quantity.
func (p Portfolio) HasAnyShares() bool {
	for symbol := range p {
		if p.Shares(symbol) > 0 {
			return true
		}
	}
	return false
}

// Add appends a purchase lot. Zero or negative quantities are ignored.
func (p Portfolio) Add(symbol string, qty int64, price decimal.Decimal) {
	if qty <= 0 {
		return
	}
	p[symbol] = append(p[symbol], Lot{Qty: qty, Price: price})
}

// Remove consumes qty shares of a symbol oldest-lot-first and returns the
// cost basis of the removed shares. Removing more than is owned drains the
// position and returns the basis of what was actually held. Emptied lots and
// symbols are deleted, preserving the "qty 0 means absent" invariant.
func (p Portfolio) Remove(symbol string, qty int64) decimal.Decimal {
	removed := decimal.Zero
	if qty <= 0 {
		return removed
	}
	lots := p[symbol]
	for i := 0; i < len(lots) && qty > 0; i++ {
		take := lots[i].Qty
		if take > qty {
			take = qty
		}
		removed = removed.Add(lots[i].Price.Mul(decimal.NewFromInt(take)))
		lots[i].Qty -= take
		qty -= take
	}
	kept := lots[:0]
	for _, lot := range lots {
		if lot.Qty > 0 {
			kept = append(kept, lot)
		}
	}
	if len(kept) == 0 {
		delete(p, symbol)
	} else {
		p[symbol] = kept
	}
	return removed
}

// Player is one seat in a game, as reported by the server.
//
// HasRolled is the server's per-player "rolled this turn" flag. It is a
// pointer because older server revisions omit it; when present it is the
// authoritative source for turn gating.
type Player struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Cash      decimal.Decimal `json:"cash"`
	Portfolio Portfolio       `json:"portfolio"`
	HasRolled *bool           `json:"hasRolled,omitempty"`
}

// HoldingsValue marks the player's portfolio to market against the given
// stock quotes. Symbols without a quote value at zero.
func (pl Player) HoldingsValue(stocks map[string]Stock) decimal.Decimal {
	total := decimal.Zero
	for symbol := range pl.Portfolio {
		shares := pl.Portfolio.Shares(symbol)
		if shares <= 0 {
			continue
		}
		total = total.Add(stocks[symbol].Price.Mul(decimal.NewFromInt(shares)))
	}
	return total
}

// NetWorth is cash plus mark-to-market holdings.
func (pl Player) NetWorth(stocks map[string]Stock) decimal.Decimal {
	return pl.Cash.Add(pl.HoldingsValue(stocks))
}

// CanAffordAnyShare reports whether the player's cash covers at least one
// share of some positively priced symbol.
func (pl Player) CanAffordAnyShare(stocks map[string]Stock) bool {
	for _, st := range stocks {
		if st.Price.IsPositive() && pl.Cash.GreaterThanOrEqual(st.Price) {
			return true
		}
	}
	return false
}

// HistoryEntry is one line of the server-capped action log.
type HistoryEntry struct {
	Round       int    `json:"round"`
	Player      string `json:"player"`
	Description string `json:"description"`
}

// GameSnapshot is the authoritative full game state pushed by the server on
// every `game:update`. It is replaced wholesale, never patched.
type GameSnapshot struct {
	ID                  string           `json:"id"`
	Round               int              `json:"round"`
	MaxRounds           int              `json:"maxRounds"`
	MaxPlayers          int              `json:"maxPlayers"`
	Status              Status           `json:"status"`
	CurrentTurnPlayerID string           `json:"currentTurnPlayerId"`
	Stocks              map[string]Stock `json:"stocks"`
	Players             []Player         `json:"players"`
	History             []HistoryEntry   `json:"history"`
}

// PlayerByID returns the player with the given id, if present.
func (g *GameSnapshot) PlayerByID(id string) (Player, bool) {
	if g == nil {
		return Player{}, false
	}
	for _, pl := range g.Players {
		if pl.ID == id {
			return pl, true
		}
	}
	return Player{}, false
}

// HostID is the id of the first entrant, who owns the lobby.
func (g *GameSnapshot) HostID() string {
	if g == nil || len(g.Players) == 0 {
		return ""
	}
	return g.Players[0].ID
}

// Price looks up a symbol's current quote.
func (g *GameSnapshot) Price(symbol string) (decimal.Decimal, bool) {
	if g == nil {
		return decimal.Zero, false
	}
	st, ok := g.Stocks[symbol]
	return st.Price, ok
}

// Roll is one dice-roll outcome: which symbol moved, in which direction, and
// by how much (price delta for up/down, payout per share for dividend).
type Roll struct {
	Stock  string          `json:"stock"`
	Action RollAction      `json:"action"`
	Amount decimal.Decimal `json:"amount"`
}

// PublicGame is the lobby-browser summary of a joinable game.
type PublicGame struct {
	ID         string `json:"id"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Round      int    `json:"round"`
	Status     Status `json:"status"`
}

// Ack is the single structured reply to one emitted command. Servers report
// failures in either `error` or `message` depending on the command.
type Ack struct {
	Success bool         `json:"success"`
	Error   string       `json:"error,omitempty"`
	Message string       `json:"message,omitempty"`
	GameID  string       `json:"gameId,omitempty"`
	Roll    *Roll        `json:"roll,omitempty"`
	Games   []PublicGame `json:"games,omitempty"`
}

// Reason returns the server-provided failure text, falling back to the given
// default when the ack carries neither field.
func (a Ack) Reason(fallback string) string {
	if a.Error != "" {
		return a.Error
	}
	if a.Message != "" {
		return a.Message
	}
	return fallback
}
