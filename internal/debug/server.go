// Package debug serves a local-only HTTP listener for a running client:
// health, Prometheus metrics, and the current session state as JSON.
package debug

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stockticker/game-client/internal/gamestate"
	"github.com/stockticker/game-client/internal/metrics"
)

// Serve starts the debug listener on addr. It runs until the process exits;
// failures are logged, never fatal — the listener is a convenience.
func Serve(addr string, store *gamestate.Store) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"ticker-client"}`))
	})

	r.Handle("/metrics", metrics.Handler())

	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		st := store.State()
		view := map[string]any{
			"game":         st.Game,
			"stockChanges": st.StockChanges,
			"priceHistory": st.PriceHistory,
			"lastRoll":     st.LastRoll,
			"countdown":    st.Countdown,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(view)
	})

	go func() {
		slog.Info("debug listener", "addr", addr)
		if err := http.ListenAndServe(addr, r); err != nil {
			slog.Warn("debug listener stopped", "err", err)
		}
	}()
}
