package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockticker/game-client/internal/config"
	"github.com/stockticker/game-client/internal/creds"
	"github.com/stockticker/game-client/internal/debug"
	"github.com/stockticker/game-client/internal/gamestate"
	"github.com/stockticker/game-client/internal/gateway"
	"github.com/stockticker/game-client/internal/identity"
	"github.com/stockticker/game-client/internal/rest"
	"github.com/stockticker/game-client/internal/transport"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	cfg := config.FromEnv()

	root := &cobra.Command{
		Use:          "ticker",
		Short:        "Stock Ticker multiplayer game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newRegisterCmd(cfg),
		newLoginCmd(cfg),
		newLogoutCmd(),
		newProfileCmd(cfg),
		newCreateCmd(cfg),
		newJoinCmd(cfg),
		newListCmd(cfg),
		newPlayCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// session bundles the live collaborators behind one game connection.
type session struct {
	cfg   config.Config
	creds *creds.Store
	id    identity.Identity
	sess  *transport.Session
	store *gamestate.Store
	gw    *gateway.Gateway
}

// openSession resolves identity, dials the transport, and binds the store.
// The reconnect callback re-enters the last-known game automatically.
func openSession(ctx context.Context, cfg config.Config) (*session, error) {
	cs, err := creds.NewStore()
	if err != nil {
		return nil, err
	}
	id := identity.Resolve(cs)
	store := gamestate.NewStore()

	var gw *gateway.Gateway
	sess := transport.NewSession(transport.Options{
		URL:        cfg.WebsocketURL(),
		AckTimeout: cfg.AckTimeout,
		OnConnect: func(reconnected bool) {
			if reconnected && gw != nil {
				rctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				gw.AutoRejoin(rctx)
			}
		},
	})
	store.Bind(sess)
	gw = gateway.New(sess, store, cs, id)

	if err := sess.Open(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("connect to %s: %w", cfg.WebsocketURL(), err)
	}

	if cfg.DebugAddr != "" {
		debug.Serve(cfg.DebugAddr, store)
	}

	return &session{cfg: cfg, creds: cs, id: id, sess: sess, store: store, gw: gw}, nil
}

func (s *session) close() {
	s.store.Close()
	s.sess.Close()
}

func newRegisterCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := promptRequired("Username")
			if err != nil {
				return err
			}
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			out, err := rest.NewClient(cfg.ServerURL).Register(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			cs, err := creds.NewStore()
			if err != nil {
				return err
			}
			if err := cs.SetToken(out.Token); err != nil {
				return err
			}
			success.Printf("Registered as %s\n", out.Username)
			return nil
		},
	}
}

func newLoginCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := promptRequired("Username")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			out, err := rest.NewClient(cfg.ServerURL).Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			cs, err := creds.NewStore()
			if err != nil {
				return err
			}
			if err := cs.SetToken(out.Token); err != nil {
				return err
			}
			success.Printf("Logged in as %s\n", out.Username)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := creds.NewStore()
			if err != nil {
				return err
			}
			if err := cs.ClearToken(); err != nil {
				return err
			}
			neutral.Println("Logged out; future games are played as a guest")
			return nil
		},
	}
}

func newProfileCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show account profile and play statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := creds.NewStore()
			if err != nil {
				return err
			}
			id := identity.Resolve(cs)
			if id.Kind != identity.Registered {
				return fmt.Errorf("not logged in (playing as %s)", id.Username)
			}
			client := rest.NewClient(cfg.ServerURL)
			profile, err := client.Profile(cmd.Context(), id.Token)
			if err != nil {
				return err
			}
			stats, err := client.Stats(cmd.Context(), id.Token)
			if err != nil {
				return err
			}
			accent.Printf("%s", profile.Username)
			neutral.Printf("  <%s>  joined %s\n", profile.Email, profile.CreatedAt.Format("2006-01-02"))
			neutral.Printf("Played %d  Won %d  Lost %d  Net profit $%.2f\n",
				stats.GamesPlayed, stats.GamesWon, stats.GamesLost, stats.TotalProfit)
			return nil
		},
	}
}

func newCreateCmd(cfg config.Config) *cobra.Command {
	var rounds, players, aiCount int
	var public bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game and enter its lobby",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			gameID, err := s.gw.CreateGame(ctx, rounds, players, aiCount, public)
			cancel()
			if err != nil {
				return err
			}
			success.Printf("Created game %s\n", gameID)
			return playLoop(cmd.Context(), s, gameID)
		},
	}
	cmd.Flags().IntVar(&rounds, "rounds", 10, "number of rounds")
	cmd.Flags().IntVar(&players, "players", 4, "maximum players (2-8)")
	cmd.Flags().IntVar(&aiCount, "ai", 0, "AI opponents")
	cmd.Flags().BoolVar(&public, "public", false, "list the game publicly")
	return cmd
}

func newJoinCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "join <game-id>",
		Short: "Join an existing game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			err = s.gw.JoinGame(ctx, args[0])
			cancel()
			if err != nil {
				return err
			}
			return playLoop(cmd.Context(), s, args[0])
		},
	}
}

func newListCmd(cfg config.Config) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List public games waiting for players",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.close()

			printList := func() error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
				games, err := s.gw.ListPublic(ctx)
				cancel()
				if err != nil {
					return err
				}
				open := 0
				for _, g := range games {
					if g.Status != "waiting" {
						continue
					}
					open++
					fmt.Printf("%s  %d/%d players  round %d\n", g.ID, g.Players, g.MaxPlayers, g.Round)
				}
				if open == 0 {
					neutral.Println("No public games available")
				}
				return nil
			}

			if err := printList(); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			// Re-list whenever the server announces a lobby change.
			changed := make(chan struct{}, 1)
			cancelSub := s.sess.Subscribe(transport.EventPublicUpdated, func(json.RawMessage) {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
			defer cancelSub()
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-changed:
					fmt.Println()
					if err := printList(); err != nil {
						return err
					}
				}
			}
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep listing as the lobby changes")
	return cmd
}

func newPlayCmd(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "play [game-id]",
		Short: "Rejoin a game (defaults to the last one played)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.close()

			gameID := s.creds.LastGameID()
			if len(args) == 1 {
				gameID = args[0]
			}
			if gameID == "" {
				return fmt.Errorf("no game to rejoin; use `ticker join <game-id>`")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			err = s.gw.RejoinGame(ctx, gameID)
			cancel()
			if err != nil {
				return err
			}
			return playLoop(cmd.Context(), s, gameID)
		},
	}
}
