package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stockticker/game-client/internal/gateway"
)

// playLoop runs the interactive session for one game: a render goroutine
// driven by store change ticks, and a stdin command reader on the main
// goroutine. Returns when the player leaves or stdin closes.
func playLoop(ctx context.Context, s *session, gameID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	neutral.Printf("Playing as %s in game %s  (type `help` for commands)\n", s.id.Username, gameID)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.store.Watch():
			}
			if msg, ok := s.store.ConsumeToast(); ok {
				warn.Printf("\n  %s\n", msg)
			}
			renderState(s.store.State(), s.gw.LocalPlayerID())
		}
	}()

	in := bufio.NewScanner(os.Stdin)
	for {
		prompt.Print("> ")
		if !in.Scan() {
			return in.Err()
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}

		cctx, cancelCmd := context.WithTimeout(ctx, 20*time.Second)
		err := runCommand(cctx, s, gameID, fields)
		cancelCmd()

		switch {
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, gateway.ErrNotEligible):
			warn.Println("Not your move right now")
		case err != nil:
			// Rejections already surfaced as toasts; anything else prints.
			var rejected *gateway.RejectedError
			if !errors.As(err, &rejected) {
				danger.Printf("error: %v\n", err)
			}
		}
	}
}

var errQuit = errors.New("quit")

func runCommand(ctx context.Context, s *session, gameID string, fields []string) error {
	switch fields[0] {
	case "roll", "r":
		return s.gw.Roll(ctx, gameID)

	case "buy", "b":
		symbol, qty, err := parseTrade(fields)
		if err != nil {
			return err
		}
		return s.gw.Buy(ctx, gameID, symbol, qty)

	case "sell", "s":
		symbol, qty, err := parseTrade(fields)
		if err != nil {
			return err
		}
		return s.gw.Sell(ctx, gameID, symbol, qty)

	case "end", "e":
		return s.gw.EndTurn(ctx, gameID)

	case "start":
		return s.gw.StartGame(ctx, gameID)

	case "board":
		renderState(s.store.State(), s.gw.LocalPlayerID())
		return nil

	case "home", "quit", "q":
		if err := s.gw.ReturnHome(gameID); err != nil {
			danger.Printf("leave notice failed: %v\n", err)
		}
		s.gw.ClearGameState()
		return errQuit

	case "help", "h", "?":
		printHelp()
		return nil

	default:
		return fmt.Errorf("unknown command %q (try `help`)", fields[0])
	}
}

func parseTrade(fields []string) (string, int64, error) {
	if len(fields) < 2 {
		return "", 0, fmt.Errorf("usage: %s <symbol> [qty]", fields[0])
	}
	symbol := strings.ToLower(fields[1])
	qty := int64(1)
	if len(fields) >= 3 {
		n, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil || n <= 0 {
			return "", 0, fmt.Errorf("quantity must be a positive integer")
		}
		qty = n
	}
	return symbol, qty, nil
}

func printHelp() {
	neutral.Println(`Commands:
  roll               roll the dice (your turn, active game)
  buy <sym> [qty]    buy shares          sell <sym> [qty]   sell shares
  end                end your turn       start              start the game (host)
  board              redraw the board    quit               leave the game`)
}
