package gamestate

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/stockticker/game-client/internal/metrics"
	"github.com/stockticker/game-client/internal/model"
	"github.com/stockticker/game-client/internal/transport"
)

type storeMsg interface{ isStoreMsg() }

type applySnapshot struct{ snap *model.GameSnapshot }
type applyRoll struct{ roll model.Roll }
type applyToast struct{ message string }
type applyCountdown struct{ seconds int }
type clearCountdown struct{}
type markRolled struct{}
type consumeToast struct{ reply chan string }
type reset struct{}

func (applySnapshot) isStoreMsg()  {}
func (applyRoll) isStoreMsg()      {}
func (applyToast) isStoreMsg()     {}
func (applyCountdown) isStoreMsg() {}
func (clearCountdown) isStoreMsg() {}
func (markRolled) isStoreMsg()     {}
func (consumeToast) isStoreMsg()   {}
func (reset) isStoreMsg()          {}

// Store is the single source of truth for one game session. Exactly one
// exists per running client; it is written only by its reducer goroutine and
// read concurrently through State().
type Store struct {
	inbox chan storeMsg
	cur   atomic.Value // GameUiState

	watch chan struct{} // conflated change notification

	done    chan struct{}
	once    sync.Once
	cancels []func()
}

// NewStore creates the store and starts its reducer loop.
func NewStore() *Store {
	s := &Store{
		inbox: make(chan storeMsg, 64),
		watch: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	s.cur.Store(GameUiState{})
	go s.loop()
	return s
}

// Bind subscribes the store to the session's inbound game events. All
// handlers forward into the inbox; decoding failures are logged and dropped,
// never fatal.
func (s *Store) Bind(bus transport.Bus) {
	sub := func(event string, h transport.Handler) {
		s.cancels = append(s.cancels, bus.Subscribe(event, h))
	}

	sub(transport.EventUpdate, func(data json.RawMessage) {
		var snap model.GameSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			slog.Warn("gamestate: dropping malformed snapshot", "err", err)
			return
		}
		s.post(applySnapshot{snap: &snap})
	})

	sub(transport.EventDiceRolled, func(data json.RawMessage) {
		var roll model.Roll
		if err := json.Unmarshal(data, &roll); err != nil || roll.Stock == "" {
			slog.Warn("gamestate: dropping malformed roll", "err", err)
			return
		}
		s.post(applyRoll{roll: roll})
	})

	sub(transport.EventToast, func(data json.RawMessage) {
		var body struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
			return
		}
		s.post(applyToast{message: body.Message})
	})

	sub(transport.EventCountdown, func(data json.RawMessage) {
		if seconds, ok := decodeCountdown(data); ok {
			s.post(applyCountdown{seconds: seconds})
		}
	})

	sub(transport.EventCountdownStop, func(json.RawMessage) {
		s.post(clearCountdown{})
	})
}

// decodeCountdown accepts both a bare integer and a {seconds: n} object.
func decodeCountdown(data json.RawMessage) (int, bool) {
	var seconds int
	if err := json.Unmarshal(data, &seconds); err == nil {
		return seconds, true
	}
	var body struct {
		Seconds int `json:"seconds"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		return body.Seconds, true
	}
	return 0, false
}

// Close detaches every listener the store registered and stops the reducer.
// Late in-flight events after Close are ignored.
func (s *Store) Close() {
	s.once.Do(func() {
		for _, cancel := range s.cancels {
			cancel()
		}
		s.cancels = nil
		close(s.done)
	})
}

// State returns the current immutable view.
func (s *Store) State() GameUiState {
	return s.cur.Load().(GameUiState)
}

// Watch returns a conflated notification channel that receives after state
// changes. Consumers re-read State() on each tick.
func (s *Store) Watch() <-chan struct{} {
	return s.watch
}

// ApplyRoll feeds a roll into the reducer exactly as if it had arrived via
// the dice-rolled event. Used for rolls inlined in command acks.
func (s *Store) ApplyRoll(roll model.Roll) {
	s.post(applyRoll{roll: roll})
}

// PushToast records a one-shot user-facing message (last-write-wins).
func (s *Store) PushToast(message string) {
	if message == "" {
		return
	}
	s.post(applyToast{message: message})
}

// MarkRolled sets the optimistic "rolled this turn" hint after a roll
// command succeeds. The next snapshot corrects it if the server disagrees.
func (s *Store) MarkRolled() {
	s.post(markRolled{})
}

// ConsumeToast returns the pending toast and clears it. The second consume
// is a no-op returning ok=false: at-most-once delivery per emission.
func (s *Store) ConsumeToast() (string, bool) {
	reply := make(chan string, 1)
	select {
	case s.inbox <- consumeToast{reply: reply}:
	case <-s.done:
		return "", false
	}
	select {
	case msg := <-reply:
		return msg, msg != ""
	case <-s.done:
		return "", false
	}
}

// Reset returns the store to the empty no-game state. Listeners stay
// attached; use Close to tear the session scope down entirely.
func (s *Store) Reset() {
	s.post(reset{})
}

func (s *Store) post(m storeMsg) {
	select {
	case s.inbox <- m:
	case <-s.done:
	}
}

func (s *Store) loop() {
	for {
		select {
		case <-s.done:
			return
		case m := <-s.inbox:
			st := s.State()
			notify := true
			switch msg := m.(type) {
			case applySnapshot:
				st = reduceSnapshot(st, msg.snap)
			case applyRoll:
				st = reduceRoll(st, msg.roll)
			case applyToast:
				st.Toast = msg.message
				metrics.ToastsShown.Inc()
			case applyCountdown:
				seconds := msg.seconds
				st.Countdown = &seconds
			case clearCountdown:
				st.Countdown = nil
			case markRolled:
				st.localRolled = true
			case consumeToast:
				msg.reply <- st.Toast
				// A no-op consume must not tick watchers, or a consumer
				// draining toasts on every tick would spin forever.
				notify = st.Toast != ""
				st.Toast = ""
			case reset:
				st = GameUiState{}
			}
			s.cur.Store(st)
			if notify {
				select {
				case s.watch <- struct{}{}:
				default:
				}
			}
		}
	}
}

// reduceSnapshot replaces the authoritative snapshot wholesale. Derived
// fields are untouched except the optimistic roll hint, which resets when the
// turn moves to another player.
func reduceSnapshot(st GameUiState, snap *model.GameSnapshot) GameUiState {
	if prev := st.Game; prev != nil {
		if prev.ID == snap.ID && snap.Status.Rank() < prev.Status.Rank() {
			// Status never moves backward; trust the stream anyway (the
			// server is authoritative) but leave a trace for debugging.
			slog.Warn("gamestate: snapshot status moved backward",
				"from", prev.Status, "to", snap.Status)
		}
		if prev.CurrentTurnPlayerID != snap.CurrentTurnPlayerID {
			st.localRolled = false
		}
	}
	st.Game = snap
	metrics.SnapshotsApplied.Inc()
	return st
}

// reduceRoll records the roll and appends the symbol's current post-roll
// price (from the already-stored snapshot, fallback 1) to its history,
// keeping the newest HistoryDepth entries. Maps are copied: published states
// are immutable.
func reduceRoll(st GameUiState, roll model.Roll) GameUiState {
	st.LastRoll = &roll

	changes := make(map[string]model.RollAction, len(st.StockChanges)+1)
	for k, v := range st.StockChanges {
		changes[k] = v
	}
	changes[roll.Stock] = roll.Action
	st.StockChanges = changes

	price, ok := st.Game.Price(roll.Stock)
	if !ok {
		price = decimal.NewFromInt(1)
	}

	history := make(map[string][]decimal.Decimal, len(st.PriceHistory)+1)
	for k, v := range st.PriceHistory {
		history[k] = v
	}
	series := append(append([]decimal.Decimal{}, history[roll.Stock]...), price)
	if len(series) > HistoryDepth {
		series = series[len(series)-HistoryDepth:]
	}
	history[roll.Stock] = series
	st.PriceHistory = history

	return st
}
