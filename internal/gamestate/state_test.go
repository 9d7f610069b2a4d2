package gamestate

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/stockticker/game-client/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func boolPtr(b bool) *bool { return &b }

// testSnapshot builds an active two-player game with alice on turn holding
// cash and shares, so every gate can open.
func testSnapshot(status model.Status) *model.GameSnapshot {
	alice := model.Player{ID: "p1", Username: "alice", Cash: dec("100"), Portfolio: model.Portfolio{}}
	alice.Portfolio.Add("gold", 2, dec("1.00"))
	bob := model.Player{ID: "p2", Username: "bob", Cash: dec("100"), Portfolio: model.Portfolio{}}
	return &model.GameSnapshot{
		ID:                  "g1",
		Status:              status,
		CurrentTurnPlayerID: "p1",
		Stocks:              map[string]model.Stock{"gold": {Price: dec("1.50")}},
		Players:             []model.Player{alice, bob},
	}
}

func TestEligibilityNotYourTurn(t *testing.T) {
	st := GameUiState{Game: testSnapshot(model.StatusActive)}
	if el := st.Eligibility("p2"); el != (Eligibility{}) {
		t.Fatalf("off-turn player got %+v, want nothing", el)
	}
	if el := st.Eligibility(""); el != (Eligibility{}) {
		t.Fatalf("unseated player got %+v, want nothing", el)
	}
	if el := (GameUiState{}).Eligibility("p1"); el != (Eligibility{}) {
		t.Fatalf("no snapshot got %+v, want nothing", el)
	}
}

func TestEligibilityActiveBeforeRoll(t *testing.T) {
	st := GameUiState{Game: testSnapshot(model.StatusActive)}
	el := st.Eligibility("p1")
	if !el.Roll {
		t.Fatal("on-turn active player should be able to roll")
	}
	if el.Buy || el.Sell || el.EndTurn {
		t.Fatalf("trading before the roll should be closed, got %+v", el)
	}
}

func TestEligibilityActiveAfterRoll(t *testing.T) {
	st := GameUiState{Game: testSnapshot(model.StatusActive), localRolled: true}
	el := st.Eligibility("p1")
	if el.Roll {
		t.Fatal("second roll in one turn should be closed")
	}
	if !el.Buy || !el.Sell || !el.EndTurn {
		t.Fatalf("post-roll trading should be open, got %+v", el)
	}
}

func TestEligibilityInitialBuy(t *testing.T) {
	st := GameUiState{Game: testSnapshot(model.StatusInitialBuy)}
	el := st.Eligibility("p1")
	if el.Roll {
		t.Fatal("rolling during initial buy should be closed")
	}
	if !el.Buy || !el.EndTurn {
		t.Fatalf("initial-buy trading should be open without a roll, got %+v", el)
	}
}

func TestEligibilityWaitingAndComplete(t *testing.T) {
	for _, status := range []model.Status{model.StatusWaiting, model.StatusComplete} {
		st := GameUiState{Game: testSnapshot(status), localRolled: true}
		if el := st.Eligibility("p1"); el != (Eligibility{}) {
			t.Fatalf("status %s got %+v, want nothing", status, el)
		}
	}
}

func TestEligibilityResourceGates(t *testing.T) {
	snap := testSnapshot(model.StatusActive)
	// Strip alice's cash and holdings.
	snap.Players[0].Cash = decimal.Zero
	snap.Players[0].Portfolio = model.Portfolio{}
	st := GameUiState{Game: snap, localRolled: true}

	el := st.Eligibility("p1")
	if el.Buy {
		t.Fatal("broke player should not be offered buy")
	}
	if el.Sell {
		t.Fatal("empty portfolio should not be offered sell")
	}
	if !el.EndTurn {
		t.Fatal("ending the turn must stay open regardless of resources")
	}
}

func TestHasRolledServerFlagWins(t *testing.T) {
	snap := testSnapshot(model.StatusActive)
	snap.Players[0].HasRolled = boolPtr(true)
	st := GameUiState{Game: snap, localRolled: false}
	if !st.HasRolled("p1") {
		t.Fatal("server-reported flag should override the local hint")
	}

	snap2 := testSnapshot(model.StatusActive)
	snap2.Players[0].HasRolled = boolPtr(false)
	st2 := GameUiState{Game: snap2, localRolled: true}
	if st2.HasRolled("p1") {
		t.Fatal("server false should override local true")
	}
}

func TestHasRolledLocalHintBridgesOmittedFlag(t *testing.T) {
	st := GameUiState{Game: testSnapshot(model.StatusActive), localRolled: true}
	if !st.HasRolled("p1") {
		t.Fatal("local hint should apply when the server omits the flag")
	}
}

func TestSparklineSentinel(t *testing.T) {
	st := GameUiState{Game: testSnapshot(model.StatusActive)}

	got := st.Sparkline("gold")
	if len(got) != 2 || !got[0].Equal(dec("1.50")) || !got[1].Equal(dec("1.50")) {
		t.Fatalf("untouched symbol sparkline = %v, want flat pair at current price", got)
	}
	// The sentinel is derived, never written back.
	if st.PriceHistory != nil {
		t.Fatal("sparkline must not store the sentinel")
	}

	// Unquoted symbols fall back to 1.
	got = st.Sparkline("mystery")
	if len(got) != 2 || !got[0].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("unquoted sparkline = %v, want flat pair at 1", got)
	}
}

func TestSparklineUsesStoredHistory(t *testing.T) {
	st := GameUiState{
		Game:         testSnapshot(model.StatusActive),
		PriceHistory: map[string][]decimal.Decimal{"gold": {dec("1.00"), dec("1.10")}},
	}
	got := st.Sparkline("gold")
	if len(got) != 2 || !got[0].Equal(dec("1.00")) || !got[1].Equal(dec("1.10")) {
		t.Fatalf("sparkline = %v, want the stored series", got)
	}
}

func TestPlayerByUsername(t *testing.T) {
	st := GameUiState{Game: testSnapshot(model.StatusActive)}
	if pl, ok := st.PlayerByUsername("bob"); !ok || pl.ID != "p2" {
		t.Fatalf("PlayerByUsername(bob) = %+v, %v", pl, ok)
	}
	if _, ok := st.PlayerByUsername("carol"); ok {
		t.Fatal("unknown username should not resolve")
	}
	if _, ok := (GameUiState{}).PlayerByUsername("alice"); ok {
		t.Fatal("no snapshot should resolve nobody")
	}
}
