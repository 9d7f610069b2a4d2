// Package identity resolves "who am I" for this device. Resolution is local
// only — it never touches the network — and fails closed to a guest identity
// on any decode error.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/stockticker/game-client/internal/creds"
)

// Kind distinguishes registered users (holding a credential) from guests.
type Kind string

const (
	Registered Kind = "registered"
	Guest      Kind = "guest"
)

// Identity is the active player identity for this session.
type Identity struct {
	Kind     Kind
	Username string
	Token    string // empty for guests
}

var errMalformedToken = errors.New("identity: malformed token")

// Resolve determines the active identity: a stored well-formed signed token
// wins; otherwise the persisted guest name, synthesizing and persisting one
// on first use.
func Resolve(cs *creds.Store) Identity {
	if token := cs.Token(); token != "" {
		if username, err := usernameFromToken(token); err == nil {
			return Identity{Kind: Registered, Username: username, Token: token}
		}
		// Unusable credential: fall through to guest rather than fail.
	}

	name := cs.GuestName()
	if name == "" {
		name = generateGuestName()
		// Persistence failure just means a fresh name next launch.
		_ = cs.SetGuestName(name)
	}
	return Identity{Kind: Guest, Username: name}
}

// usernameFromToken decodes the middle segment of a three-part signed token
// and extracts the username claim. The signature is not verified — the server
// does that; the client only needs the display name.
func usernameFromToken(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", errMalformedToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return "", errMalformedToken
	}
	var claims struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil || claims.Username == "" {
		return "", errMalformedToken
	}
	return claims.Username, nil
}

// generateGuestName synthesizes "Guest" plus 4 random alphanumerics.
func generateGuestName() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return "Guest" + suffix
}
