// Package creds persists the client's local credentials: the auth token, the
// generated guest name, and the last-known game id used for auto-rejoin.
// Everything lives in one JSON file under the user's home directory.
package creds

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

type fileData struct {
	Token      string `json:"token,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`
	LastGameID string `json:"last_game_id,omitempty"`
}

// Store reads and writes the credential file. Methods never fail loudly on a
// missing or corrupt file — the zero state is "no credentials".
type Store struct {
	dir string
}

// NewStore uses ~/.ticker as the credential directory.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(filepath.Join(home, ".ticker")), nil
}

// NewStoreAt uses an explicit directory; tests point this at t.TempDir().
func NewStoreAt(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path() string {
	return filepath.Join(s.dir, "session.json")
}

func (s *Store) load() fileData {
	var d fileData
	raw, err := os.ReadFile(s.path())
	if err != nil {
		return d
	}
	// A corrupt file decodes to the zero state.
	_ = json.Unmarshal(raw, &d)
	return d
}

func (s *Store) save(d fileData) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(), raw, 0o600)
}

// Token returns the stored auth token, empty if none.
func (s *Store) Token() string {
	return strings.TrimSpace(s.load().Token)
}

// SetToken stores the auth token.
func (s *Store) SetToken(token string) error {
	d := s.load()
	d.Token = strings.TrimSpace(token)
	return s.save(d)
}

// ClearToken removes the auth token, keeping guest name and game id.
func (s *Store) ClearToken() error {
	d := s.load()
	if d.Token == "" {
		return nil
	}
	d.Token = ""
	return s.save(d)
}

// GuestName returns the persisted generated guest name, empty if none.
func (s *Store) GuestName() string {
	return s.load().GuestName
}

// SetGuestName persists the generated guest name.
func (s *Store) SetGuestName(name string) error {
	d := s.load()
	d.GuestName = name
	return s.save(d)
}

// LastGameID returns the last joined game id, empty if none.
func (s *Store) LastGameID() string {
	return s.load().LastGameID
}

// SetLastGameID records the game id for reconnect recovery.
func (s *Store) SetLastGameID(id string) error {
	d := s.load()
	d.LastGameID = id
	return s.save(d)
}

// ClearLastGameID forgets the recorded game id.
func (s *Store) ClearLastGameID() error {
	return s.SetLastGameID("")
}

// Clear removes the credential file entirely.
func (s *Store) Clear() error {
	err := os.Remove(s.path())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
