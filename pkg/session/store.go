package session

import (
	"encoding/json"
	"log/slog"
)

// Slot keys of the persisted session layout.
const (
	SlotAccessToken  = "access_token"
	SlotRefreshToken = "refresh_token"
	SlotUser         = "user"
)

// CredentialStore persists the credential and the cached user.
//
// Implementations never fail: a storage fault is treated as an absent
// value, so a broken medium degrades to an in-memory session.
type CredentialStore interface {
	Get() *Credential
	Set(c *Credential)
	GetUser() *User
	SetUser(u *User)
}

// SlotStore is the key/value medium behind a CredentialStore. Backends
// swallow and log their own faults.
type SlotStore interface {
	Load(key string) (string, bool)
	Save(key, value string)
	Remove(key string)
}

type slotCredentialStore struct {
	slots SlotStore
}

var _ = CredentialStore(&slotCredentialStore{})

// NewCredentialStore lays the credential and the user out over three
// independent slots of the given medium.
func NewCredentialStore(slots SlotStore) CredentialStore {
	return &slotCredentialStore{slots: slots}
}

func (s *slotCredentialStore) Get() *Credential {
	accessToken, ok := s.slots.Load(SlotAccessToken)
	if !ok || accessToken == "" {
		return nil
	}

	refreshToken, _ := s.slots.Load(SlotRefreshToken)

	return &Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}
}

func (s *slotCredentialStore) Set(c *Credential) {
	if c == nil || c.AccessToken == "" {
		s.slots.Remove(SlotAccessToken)
		s.slots.Remove(SlotRefreshToken)
		return
	}

	s.slots.Save(SlotAccessToken, c.AccessToken)
	if c.RefreshToken != "" {
		s.slots.Save(SlotRefreshToken, c.RefreshToken)
	} else {
		s.slots.Remove(SlotRefreshToken)
	}
}

func (s *slotCredentialStore) GetUser() *User {
	raw, ok := s.slots.Load(SlotUser)
	if !ok || raw == "" {
		return nil
	}

	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		slog.Warn("Discarding unreadable cached user", "error", err)
		return nil
	}

	return &u
}

func (s *slotCredentialStore) SetUser(u *User) {
	if u == nil {
		s.slots.Remove(SlotUser)
		return
	}

	raw, err := json.Marshal(u)
	if err != nil {
		slog.Warn("Could not encode user", "error", err)
		s.slots.Remove(SlotUser)
		return
	}

	s.slots.Save(SlotUser, string(raw))
}
