// Package config loads client configuration from the environment.
package config

import (
	"net/url"
	"os"
	"strings"
	"time"
)

// Config is everything the client needs to reach its server.
type Config struct {
	// ServerURL is the HTTP base of the game server.
	ServerURL string

	// WSPath is the websocket endpoint path on the server.
	WSPath string

	// AckTimeout bounds the wait for command acknowledgements.
	AckTimeout time.Duration

	// DebugAddr, when non-empty, enables the local debug HTTP listener
	// (healthz, metrics, state).
	DebugAddr string
}

// FromEnv reads configuration with defaults suitable for local development.
func FromEnv() Config {
	return Config{
		ServerURL:  strings.TrimRight(envDefault("TICKER_SERVER_URL", "http://localhost:8080"), "/"),
		WSPath:     envDefault("TICKER_WS_PATH", "/ws"),
		AckTimeout: envDurationDefault("TICKER_ACK_TIMEOUT", 10*time.Second),
		DebugAddr:  strings.TrimSpace(os.Getenv("TICKER_DEBUG_ADDR")),
	}
}

// WebsocketURL derives the ws:// or wss:// endpoint from the server URL.
func (c Config) WebsocketURL() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return "ws://localhost:8080" + c.WSPath
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = c.WSPath
	return u.String()
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
