// Package transport owns the single long-lived websocket connection to the
// game server. It exposes emit-with-acknowledgement and subscribe/unsubscribe
// primitives, reconnects automatically, and guarantees that each acknowledged
// command resolves exactly once — with a real ack, a timeout, or a
// connection-loss error.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stockticker/game-client/internal/metrics"
)

// Event names on the wire. Outbound commands are acknowledged when emitted
// with EmitWithAck; inbound events are unacknowledged broadcasts.
const (
	EventCreate        = "game:create"
	EventJoin          = "game:join"
	EventRejoin        = "game:rejoin"
	EventRoll          = "game:roll"
	EventBuy           = "game:buy"
	EventSell          = "game:sell"
	EventEndTurn       = "game:endTurn"
	EventStart         = "game:start"
	EventReturnHome    = "game:returnHome"
	EventListPublic    = "game:listPublic"
	EventUpdate        = "game:update"
	EventDiceRolled    = "game:diceRolled"
	EventToast         = "game:toast"
	EventCountdown     = "game:countdown"
	EventCountdownStop = "game:countdownCancelled"
	EventPublicUpdated = "game:publicUpdated"
)

var (
	// ErrClosed is returned when the session has been torn down.
	ErrClosed = errors.New("transport: session closed")

	// ErrAckTimeout is returned when the server does not acknowledge a
	// command within the ack timeout. The outcome of the command is unknown,
	// not failed — the authoritative snapshot remains the source of truth.
	ErrAckTimeout = errors.New("transport: acknowledgement timed out")

	// ErrConnectionLost is returned for commands that were in flight when the
	// connection dropped. Like ErrAckTimeout, the outcome is unknown.
	ErrConnectionLost = errors.New("transport: connection lost before acknowledgement")
)

// Handler receives the raw payload of one inbound event. Handlers run on the
// session's read goroutine and must not block; the state store satisfies this
// by forwarding into its inbox channel.
type Handler func(data json.RawMessage)

// Bus is the narrow surface the store and gateway consume. Tests substitute
// an in-memory fake. Subscribe returns a cancel func removing exactly that
// handler; every subscriber owns its teardown, so tearing down a session
// scope always removes all of its listeners.
type Bus interface {
	Emit(event string, payload any) error
	EmitWithAck(ctx context.Context, event string, payload any) (json.RawMessage, error)
	Subscribe(event string, h Handler) (cancel func())
}

// envelope is the one-per-message wire frame. A client frame with ID > 0
// requests an acknowledgement; the server replies with event "ack" carrying
// the same ID.
type envelope struct {
	Event string          `json:"event"`
	ID    int64           `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const ackEvent = "ack"

type ackResult struct {
	data json.RawMessage
	err  error
}

// Options configures a Session.
type Options struct {
	// URL is the full websocket endpoint, e.g. ws://host:8080/ws.
	URL string

	// AckTimeout bounds the wait for a command acknowledgement.
	// Zero means 10 seconds.
	AckTimeout time.Duration

	// OnConnect, if set, is called after every successful (re)connect with
	// reconnected=false for the initial dial. It runs on its own goroutine.
	OnConnect func(reconnected bool)
}

// Session is one bidirectional event connection. Construct with NewSession,
// open with Open, tear down with Close. Handlers registered with Subscribe
// persist across reconnects.
type Session struct {
	url        string
	ackTimeout time.Duration
	onConnect  func(reconnected bool)

	dialer *websocket.Dialer

	mu     sync.Mutex // guards conn
	conn   *websocket.Conn
	opened bool

	handlersMu sync.RWMutex
	handlers   map[string]map[int64]Handler
	subSeq     int64

	pendingMu sync.Mutex
	pending   map[int64]chan ackResult
	nextID    atomic.Int64

	send chan envelope
	done chan struct{}
	once sync.Once
}

// NewSession creates a session for the given endpoint. The connection is not
// dialed until Open.
func NewSession(opts Options) *Session {
	timeout := opts.AckTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Session{
		url:        opts.URL,
		ackTimeout: timeout,
		onConnect:  opts.OnConnect,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		handlers: make(map[string]map[int64]Handler),
		pending:  make(map[int64]chan ackResult),
		send:     make(chan envelope, 64),
		done:     make(chan struct{}),
	}
}

// Open dials the server and starts the read/write pumps. It is idempotent:
// calling it on an already open session is a no-op.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.opened {
		s.mu.Unlock()
		return nil
	}
	s.opened = true
	s.mu.Unlock()

	conn, _, err := s.dialer.DialContext(ctx, s.url, http.Header{})
	if err != nil {
		s.mu.Lock()
		s.opened = false
		s.mu.Unlock()
		return err
	}
	s.attach(conn, false)
	return nil
}

// Close tears the session down. In-flight acknowledgements resolve with
// ErrClosed. Close is idempotent.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
		s.failPending(ErrClosed)
		metrics.Connected.Set(0)
	})
}

// IsConnected reports whether a live connection currently exists.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Subscribe registers a handler for an event. Multiple handlers per event are
// allowed (the lobby countdown store and the game store both watch countdown
// events). The returned cancel removes exactly this handler and is safe to
// call more than once.
func (s *Session) Subscribe(event string, h Handler) (cancel func()) {
	s.handlersMu.Lock()
	s.subSeq++
	id := s.subSeq
	if s.handlers[event] == nil {
		s.handlers[event] = make(map[int64]Handler)
	}
	s.handlers[event][id] = h
	s.handlersMu.Unlock()

	return func() {
		s.handlersMu.Lock()
		if hs := s.handlers[event]; hs != nil {
			delete(hs, id)
			if len(hs) == 0 {
				delete(s.handlers, event)
			}
		}
		s.handlersMu.Unlock()
	}
}

// Emit sends a fire-and-forget event. It blocks only if the outbound queue
// is full, and fails fast once the session is closed.
func (s *Session) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	select {
	case s.send <- envelope{Event: event, Data: data}:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// EmitWithAck sends an event and waits for its single acknowledgement. The
// wait is bounded by ctx and by the session's ack timeout; expiry yields
// ErrAckTimeout ("unknown outcome", not failure). The returned payload is the
// raw ack body.
func (s *Session) EmitWithAck(ctx context.Context, event string, payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	id := s.nextID.Add(1)
	ch := make(chan ackResult, 1)
	s.pendingMu.Lock()
	s.pending[id] = ch
	s.pendingMu.Unlock()

	cleanup := func() {
		s.pendingMu.Lock()
		delete(s.pending, id)
		s.pendingMu.Unlock()
	}

	select {
	case s.send <- envelope{Event: event, ID: id, Data: data}:
	case <-s.done:
		cleanup()
		return nil, ErrClosed
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	}

	start := time.Now()
	timer := time.NewTimer(s.ackTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		cleanup()
		if res.err != nil {
			return nil, res.err
		}
		metrics.AckLatency.WithLabelValues(event).Observe(time.Since(start).Seconds())
		return res.data, nil
	case <-timer.C:
		cleanup()
		return nil, ErrAckTimeout
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	case <-s.done:
		cleanup()
		return nil, ErrClosed
	}
}

// attach wires a freshly dialed connection into the pumps.
func (s *Session) attach(conn *websocket.Conn, reconnected bool) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	metrics.Connected.Set(1)
	if reconnected {
		metrics.Reconnects.Inc()
	}
	slog.Info("transport connected", "url", s.url, "reconnected", reconnected)

	connDone := make(chan struct{})
	go s.writePump(conn, connDone)
	go s.readPump(conn, connDone)

	if s.onConnect != nil {
		go s.onConnect(reconnected)
	}
}

// readPump decodes frames and dispatches them until the connection drops,
// then hands off to the reconnect loop.
func (s *Session) readPump(conn *websocket.Conn, connDone chan struct{}) {
	defer close(connDone)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.conn = nil
			s.mu.Unlock()
			metrics.Connected.Set(0)

			// Acks for in-flight commands can no longer arrive on this
			// connection; ordering guarantees reset across reconnects.
			s.failPending(ErrConnectionLost)

			select {
			case <-s.done:
				return
			default:
			}
			slog.Warn("transport disconnected", "err", err)
			go s.reconnect()
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			slog.Warn("transport: dropping malformed frame", "err", err)
			continue
		}
		s.dispatch(env)
	}
}

func (s *Session) dispatch(env envelope) {
	if env.Event == ackEvent {
		s.pendingMu.Lock()
		ch, ok := s.pending[env.ID]
		if ok {
			delete(s.pending, env.ID)
		}
		s.pendingMu.Unlock()
		if ok {
			ch <- ackResult{data: env.Data}
		}
		// A late ack after timeout or teardown is ignored, never a crash.
		return
	}

	metrics.EventsReceived.WithLabelValues(env.Event).Inc()
	s.handlersMu.RLock()
	hs := make([]Handler, 0, len(s.handlers[env.Event]))
	for _, h := range s.handlers[env.Event] {
		hs = append(hs, h)
	}
	s.handlersMu.RUnlock()
	for _, h := range hs {
		h(env.Data)
	}
}

// writePump is the single writer for one connection. Pings keep the
// connection alive through proxies.
func (s *Session) writePump(conn *websocket.Conn, connDone chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case env := <-s.send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(env); err != nil {
				slog.Warn("transport write failed", "event", env.Event, "err", err)
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-connDone:
			return
		case <-s.done:
			conn.Close()
			return
		}
	}
}

// reconnect redials with capped, jittered exponential backoff until it
// succeeds or the session is closed. Handlers persist; pending acks were
// already failed when the connection dropped.
func (s *Session) reconnect() {
	backoff := 250 * time.Millisecond
	const maxBackoff = 15 * time.Second

	for {
		select {
		case <-s.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, _, err := s.dialer.DialContext(ctx, s.url, http.Header{})
		cancel()
		if err == nil {
			s.attach(conn, true)
			return
		}

		sleep := backoff + time.Duration(rand.Int63n(int64(backoff)/2+1))
		slog.Warn("transport reconnect failed", "err", err, "retry_in", sleep)
		select {
		case <-time.After(sleep):
		case <-s.done:
			return
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *Session) failPending(err error) {
	s.pendingMu.Lock()
	for id, ch := range s.pending {
		delete(s.pending, id)
		ch <- ackResult{err: err}
	}
	s.pendingMu.Unlock()
}
