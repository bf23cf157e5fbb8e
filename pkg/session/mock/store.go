package sessionmock

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/openkcm/session-client/pkg/session"
)

type StoreOption func(*Store)

// Store is an in-memory slot medium with an operation log and fault
// injection.
type Store struct {
	mu    sync.Mutex
	slots map[string]string
	ops   []string

	faulty bool
}

var _ = session.SlotStore(&Store{})

func WithSlot(key, value string) StoreOption {
	return func(s *Store) { s.slots[key] = value }
}

func WithCredential(c session.Credential) StoreOption {
	return func(s *Store) {
		s.slots[session.SlotAccessToken] = c.AccessToken
		if c.RefreshToken != "" {
			s.slots[session.SlotRefreshToken] = c.RefreshToken
		}
	}
}

func WithUser(u session.User) StoreOption {
	return func(s *Store) {
		raw, err := json.Marshal(u)
		if err != nil {
			panic(err)
		}
		s.slots[session.SlotUser] = string(raw)
	}
}

// WithFaultyMedium makes every operation fail the way a disabled or full
// storage does: reads find nothing and writes are lost.
func WithFaultyMedium() StoreOption {
	return func(s *Store) { s.faulty = true }
}

func NewInMemStore(opts ...StoreOption) *Store {
	s := &Store{
		slots: make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) Load(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.faulty {
		return "", false
	}
	v, ok := s.slots[key]
	return v, ok
}

func (s *Store) Save(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ops = append(s.ops, fmt.Sprintf("save:%s", key))
	if s.faulty {
		return
	}
	s.slots[key] = value
}

func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ops = append(s.ops, fmt.Sprintf("remove:%s", key))
	if s.faulty {
		return
	}
	delete(s.slots, key)
}

// TSlots returns a copy of the stored slots.
func (s *Store) TSlots() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.slots))
	for k, v := range s.slots {
		out[k] = v
	}
	return out
}

// TOps returns the write operations in the order they happened.
func (s *Store) TOps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.ops...)
}

// TResetOps forgets the recorded write operations.
func (s *Store) TResetOps() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ops = nil
}
