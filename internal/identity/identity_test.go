package identity

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stockticker/game-client/internal/creds"
)

// signedToken builds a three-part token whose middle segment carries the
// given claims. The signature is junk; resolution never verifies it.
func signedToken(claims string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(claims))
	return "header." + payload + ".signature"
}

func newStore(t *testing.T) *creds.Store {
	t.Helper()
	return creds.NewStoreAt(t.TempDir())
}

func TestResolveRegistered(t *testing.T) {
	cs := newStore(t)
	token := signedToken(`{"username":"alice","sub":"u1"}`)
	if err := cs.SetToken(token); err != nil {
		t.Fatalf("set token: %v", err)
	}

	id := Resolve(cs)
	if id.Kind != Registered {
		t.Fatalf("kind = %s, want registered", id.Kind)
	}
	if id.Username != "alice" {
		t.Fatalf("username = %s, want alice", id.Username)
	}
	if id.Token != token {
		t.Fatal("token should be carried for command payloads")
	}
}

func TestResolveMalformedTokenFallsBackToGuest(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"two segments", "header.payload"},
		{"not base64", "a.###.c"},
		{"payload not json", signedToken(`plain text`)},
		{"missing username claim", signedToken(`{"sub":"u1"}`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cs := newStore(t)
			if err := cs.SetToken(tc.token); err != nil {
				t.Fatalf("set token: %v", err)
			}
			id := Resolve(cs)
			if id.Kind != Guest {
				t.Fatalf("kind = %s, want guest", id.Kind)
			}
			if id.Token != "" {
				t.Fatal("guests must not carry the unusable token")
			}
		})
	}
}

func TestResolveGuestNameStable(t *testing.T) {
	cs := newStore(t)

	first := Resolve(cs)
	if first.Kind != Guest {
		t.Fatalf("kind = %s, want guest", first.Kind)
	}
	if !strings.HasPrefix(first.Username, "Guest") || len(first.Username) != len("Guest")+4 {
		t.Fatalf("guest name = %q, want Guest plus 4 characters", first.Username)
	}

	// The generated name persists across resolutions.
	second := Resolve(cs)
	if second.Username != first.Username {
		t.Fatalf("guest name changed: %q then %q", first.Username, second.Username)
	}
}

func TestResolvePadsTokenSegment(t *testing.T) {
	// Some issuers pad the middle segment; trailing '=' must not break decode.
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"username":"bob"}`))
	cs := newStore(t)
	if err := cs.SetToken("h." + payload + "==.s"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	id := Resolve(cs)
	if id.Kind != Registered || id.Username != "bob" {
		t.Fatalf("identity = %+v, want registered bob", id)
	}
}
