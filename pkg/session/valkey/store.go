// Package sessionvalkey keeps the credential slots in valkey, so that
// several processes can share one session per profile.
package sessionvalkey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"
)

const DefaultTimeout = 3 * time.Second

type Option func(*Store)

func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

type Store struct {
	valkey  valkey.Client
	prefix  string
	profile string
	timeout time.Duration
}

func NewStore(valkeyClient valkey.Client, prefix, profile string, opts ...Option) *Store {
	s := &Store{
		valkey:  valkeyClient,
		prefix:  strings.TrimSuffix(prefix, ":"),
		profile: profile,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

func (s *Store) Load(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	v, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(s.key(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false
		}

		slogctx.Warn(ctx, "Could not load a credential slot", "slot", key, "error", err)
		return "", false
	}

	return v, true
}

func (s *Store) Save(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.valkey.Do(ctx, s.valkey.B().Set().Key(s.key(key)).Value(value).Build()).Error(); err != nil {
		slogctx.Warn(ctx, "Could not save a credential slot", "slot", key, "error", err)
	}
}

func (s *Store) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.valkey.Do(ctx, s.valkey.B().Del().Key(s.key(key)).Build()).Error(); err != nil {
		slogctx.Warn(ctx, "Could not remove a credential slot", "slot", key, "error", err)
	}
}

func (s *Store) key(slot string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, s.profile, slot)
}
