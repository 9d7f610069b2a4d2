package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPortfolioUnmarshalLots(t *testing.T) {
	raw := `{"gold":[{"qty":5,"price":"1.25"},{"qty":3,"price":"2.00"}]}`
	var p Portfolio
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := p.Shares("gold"); got != 8 {
		t.Fatalf("shares = %d, want 8", got)
	}
	if got := p.CostBasis("gold"); !got.Equal(dec("12.25")) {
		t.Fatalf("cost basis = %s, want 12.25", got)
	}
}

func TestPortfolioUnmarshalLegacyFlat(t *testing.T) {
	raw := `{"oil":7,"grain":0}`
	var p Portfolio
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := p.Shares("oil"); got != 7 {
		t.Fatalf("oil shares = %d, want 7", got)
	}
	// A flat quantity has no recorded purchase price.
	if got := p.CostBasis("oil"); !got.IsZero() {
		t.Fatalf("cost basis = %s, want 0", got)
	}
	// Zero quantity means absent.
	if _, ok := p["grain"]; ok {
		t.Fatal("zero-quantity symbol should not be stored")
	}
}

func TestPortfolioRoundTrip(t *testing.T) {
	p := Portfolio{}
	p.Add("gold", 5, dec("1.25"))
	p.Add("gold", 3, dec("2.00"))

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Portfolio
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := back.Shares("gold"); got != 8 {
		t.Fatalf("shares after round trip = %d, want 8", got)
	}
	if got := back.CostBasis("gold"); !got.Equal(dec("12.25")) {
		t.Fatalf("cost basis after round trip = %s, want 12.25", got)
	}
}

func TestPortfolioRemoveFIFO(t *testing.T) {
	p := Portfolio{}
	p.Add("gold", 5, dec("1.00"))
	p.Add("gold", 5, dec("3.00"))

	// 7 shares: all of the first lot plus 2 of the second.
	removed := p.Remove("gold", 7)
	if want := dec("11.00"); !removed.Equal(want) {
		t.Fatalf("removed basis = %s, want %s", removed, want)
	}
	if got := p.Shares("gold"); got != 3 {
		t.Fatalf("remaining shares = %d, want 3", got)
	}

	// Overselling drains the position and deletes the symbol.
	removed = p.Remove("gold", 100)
	if want := dec("9.00"); !removed.Equal(want) {
		t.Fatalf("drain basis = %s, want %s", removed, want)
	}
	if _, ok := p["gold"]; ok {
		t.Fatal("drained symbol should be deleted")
	}
}

func TestPortfolioHasAnyShares(t *testing.T) {
	p := Portfolio{}
	if p.HasAnyShares() {
		t.Fatal("empty portfolio reports shares")
	}
	p.Add("oil", 1, dec("2.00"))
	if !p.HasAnyShares() {
		t.Fatal("portfolio with a lot reports no shares")
	}
}

func TestPlayerValuation(t *testing.T) {
	stocks := map[string]Stock{
		"gold": {Price: dec("2.00")},
		"oil":  {Price: dec("0.50")},
	}
	pl := Player{Cash: dec("10.00"), Portfolio: Portfolio{}}
	pl.Portfolio.Add("gold", 3, dec("1.00"))
	pl.Portfolio.Add("unquoted", 2, dec("1.00"))

	if got := pl.HoldingsValue(stocks); !got.Equal(dec("6.00")) {
		t.Fatalf("holdings value = %s, want 6.00", got)
	}
	if got := pl.NetWorth(stocks); !got.Equal(dec("16.00")) {
		t.Fatalf("net worth = %s, want 16.00", got)
	}
}

func TestCanAffordAnyShare(t *testing.T) {
	stocks := map[string]Stock{
		"gold": {Price: dec("5.00")},
		"oil":  {Price: dec("2.00")},
	}
	rich := Player{Cash: dec("2.00")}
	if !rich.CanAffordAnyShare(stocks) {
		t.Fatal("player with cash equal to cheapest price should afford it")
	}
	broke := Player{Cash: dec("1.99")}
	if broke.CanAffordAnyShare(stocks) {
		t.Fatal("player below every price should not afford any share")
	}
	// Zero-priced symbols never count as affordable.
	if broke.CanAffordAnyShare(map[string]Stock{"dud": {Price: decimal.Zero}}) {
		t.Fatal("zero-priced stock should not count")
	}
}

func TestStatusRank(t *testing.T) {
	order := []Status{StatusWaiting, StatusInitialBuy, StatusActive, StatusComplete}
	for i, s := range order {
		if s.Rank() != i {
			t.Fatalf("rank(%s) = %d, want %d", s, s.Rank(), i)
		}
	}
	if Status("bogus").Rank() != -1 {
		t.Fatal("unknown status should rank -1")
	}
}

func TestSnapshotHelpers(t *testing.T) {
	var nilSnap *GameSnapshot
	if _, ok := nilSnap.PlayerByID("x"); ok {
		t.Fatal("nil snapshot should report no players")
	}
	if nilSnap.HostID() != "" {
		t.Fatal("nil snapshot should have no host")
	}
	if _, ok := nilSnap.Price("gold"); ok {
		t.Fatal("nil snapshot should have no quotes")
	}

	g := &GameSnapshot{
		Stocks:  map[string]Stock{"gold": {Price: dec("1.50")}},
		Players: []Player{{ID: "a", Username: "alice"}, {ID: "b", Username: "bob"}},
	}
	if g.HostID() != "a" {
		t.Fatalf("host = %s, want a (first entrant)", g.HostID())
	}
	if pl, ok := g.PlayerByID("b"); !ok || pl.Username != "bob" {
		t.Fatalf("PlayerByID(b) = %+v, %v", pl, ok)
	}
	if p, ok := g.Price("gold"); !ok || !p.Equal(dec("1.50")) {
		t.Fatalf("Price(gold) = %s, %v", p, ok)
	}
}

func TestAckReason(t *testing.T) {
	cases := []struct {
		name string
		ack  Ack
		want string
	}{
		{"error wins", Ack{Error: "no funds", Message: "other"}, "no funds"},
		{"message fallback", Ack{Message: "not your turn"}, "not your turn"},
		{"default fallback", Ack{}, "command failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ack.Reason("command failed"); got != tc.want {
				t.Fatalf("reason = %q, want %q", got, tc.want)
			}
		})
	}
}
