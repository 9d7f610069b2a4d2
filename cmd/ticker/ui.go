package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/stockticker/game-client/internal/gamestate"
	"github.com/stockticker/game-client/internal/model"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	danger  = color.New(color.FgRed)
	neutral = color.New(color.Faint)
	prompt  = color.New(color.FgWhite, color.Bold)
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// renderState draws the whole board for the current snapshot. Nothing is
// drawn before the first snapshot arrives.
func renderState(st gamestate.GameUiState, localID string) {
	g := st.Game
	if g == nil {
		return
	}

	fmt.Println()
	accent.Printf("── Game %s  ", g.ID)
	neutral.Printf("round %d/%d  status %s", g.Round, g.MaxRounds, g.Status)
	if st.Countdown != nil {
		warn.Printf("  starting in %ds", *st.Countdown)
	}
	fmt.Println()

	if st.LastRoll != nil {
		r := st.LastRoll
		verb := map[model.RollAction]string{
			model.RollUp:       "up",
			model.RollDown:     "down",
			model.RollDividend: "pays dividend",
		}[r.Action]
		neutral.Printf("last roll: %s %s %s\n", r.Stock, verb, r.Amount.StringFixed(2))
	}

	renderStocks(st)
	renderPlayers(g, localID)
	renderHistory(g)

	if g.Status == model.StatusWaiting && localID != "" && g.HostID() == localID {
		neutral.Println("you are the host — `start` begins the game")
	}
	if g.CurrentTurnPlayerID == localID && localID != "" {
		el := st.Eligibility(localID)
		var can []string
		if el.Roll {
			can = append(can, "roll")
		}
		if el.Buy {
			can = append(can, "buy")
		}
		if el.Sell {
			can = append(can, "sell")
		}
		if el.EndTurn {
			can = append(can, "end")
		}
		if len(can) > 0 {
			success.Printf("your turn: %s\n", strings.Join(can, ", "))
		}
	}
}

func renderStocks(st gamestate.GameUiState) {
	g := st.Game
	symbols := make([]string, 0, len(g.Stocks))
	for s := range g.Stocks {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		line := fmt.Sprintf("  %-10s $%8s  %s", symbol,
			g.Stocks[symbol].Price.StringFixed(2), sparkline(st.Sparkline(symbol)))
		switch st.StockChanges[symbol] {
		case model.RollUp:
			success.Println(line + " ▲")
		case model.RollDown:
			danger.Println(line + " ▼")
		case model.RollDividend:
			warn.Println(line + " $")
		default:
			fmt.Println(line)
		}
	}
}

func renderPlayers(g *model.GameSnapshot, localID string) {
	for _, pl := range g.Players {
		marker := " "
		if pl.ID == g.CurrentTurnPlayerID {
			marker = "»"
		}
		line := fmt.Sprintf("%s %-16s cash $%s  net $%s", marker, pl.Username,
			pl.Cash.StringFixed(2), pl.NetWorth(g.Stocks).StringFixed(2))
		var holdings []string
		symbols := make([]string, 0, len(pl.Portfolio))
		for s := range pl.Portfolio {
			symbols = append(symbols, s)
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			if n := pl.Portfolio.Shares(s); n > 0 {
				holdings = append(holdings, fmt.Sprintf("%s×%d", s, n))
			}
		}
		if len(holdings) > 0 {
			line += "  [" + strings.Join(holdings, " ") + "]"
		}
		if pl.ID == localID {
			accent.Println(line)
		} else {
			fmt.Println(line)
		}
	}
}

func renderHistory(g *model.GameSnapshot) {
	n := len(g.History)
	if n == 0 {
		return
	}
	start := n - 3
	if start < 0 {
		start = 0
	}
	for _, h := range g.History[start:] {
		neutral.Printf("  r%d %s: %s\n", h.Round, h.Player, h.Description)
	}
}

// sparkline renders a price series as block characters scaled to its own
// min/max. Flat series (including the two-point sentinel) render mid-height.
func sparkline(series []decimal.Decimal) string {
	lo, hi := series[0], series[0]
	for _, p := range series[1:] {
		if p.LessThan(lo) {
			lo = p
		}
		if p.GreaterThan(hi) {
			hi = p
		}
	}
	span := hi.Sub(lo)
	var b strings.Builder
	for _, p := range series {
		idx := len(sparkRunes) / 2
		if span.IsPositive() {
			f, _ := p.Sub(lo).Div(span).Float64()
			idx = int(f * float64(len(sparkRunes)-1))
			if idx < 0 {
				idx = 0
			}
			if idx >= len(sparkRunes) {
				idx = len(sparkRunes) - 1
			}
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}

// promptRequired reads one non-empty line from stdin.
func promptRequired(label string) (string, error) {
	r := bufio.NewReader(os.Stdin)
	for {
		prompt.Printf("%s: ", label)
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		if v := strings.TrimSpace(line); v != "" {
			return v, nil
		}
	}
}
