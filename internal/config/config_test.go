package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("TICKER_SERVER_URL", "")
	t.Setenv("TICKER_WS_PATH", "")
	t.Setenv("TICKER_ACK_TIMEOUT", "")
	t.Setenv("TICKER_DEBUG_ADDR", "")

	cfg := FromEnv()
	if cfg.ServerURL != "http://localhost:8080" {
		t.Fatalf("server url = %s", cfg.ServerURL)
	}
	if cfg.WSPath != "/ws" {
		t.Fatalf("ws path = %s", cfg.WSPath)
	}
	if cfg.AckTimeout != 10*time.Second {
		t.Fatalf("ack timeout = %s", cfg.AckTimeout)
	}
	if cfg.DebugAddr != "" {
		t.Fatalf("debug addr = %s", cfg.DebugAddr)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TICKER_SERVER_URL", "https://game.example.com/")
	t.Setenv("TICKER_WS_PATH", "/socket")
	t.Setenv("TICKER_ACK_TIMEOUT", "3s")
	t.Setenv("TICKER_DEBUG_ADDR", "127.0.0.1:9900")

	cfg := FromEnv()
	if cfg.ServerURL != "https://game.example.com" {
		t.Fatalf("server url = %s, want trailing slash trimmed", cfg.ServerURL)
	}
	if cfg.AckTimeout != 3*time.Second {
		t.Fatalf("ack timeout = %s", cfg.AckTimeout)
	}
	if cfg.DebugAddr != "127.0.0.1:9900" {
		t.Fatalf("debug addr = %s", cfg.DebugAddr)
	}
	if cfg.WSPath != "/socket" {
		t.Fatalf("ws path = %s", cfg.WSPath)
	}
}

func TestFromEnvBadDurationFallsBack(t *testing.T) {
	t.Setenv("TICKER_ACK_TIMEOUT", "soon")
	if got := FromEnv().AckTimeout; got != 10*time.Second {
		t.Fatalf("ack timeout = %s, want default", got)
	}
}

func TestWebsocketURL(t *testing.T) {
	cases := []struct {
		server string
		want   string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://game.example.com", "wss://game.example.com/ws"},
	}
	for _, tc := range cases {
		cfg := Config{ServerURL: tc.server, WSPath: "/ws"}
		if got := cfg.WebsocketURL(); got != tc.want {
			t.Fatalf("WebsocketURL(%s) = %s, want %s", tc.server, got, tc.want)
		}
	}
}
