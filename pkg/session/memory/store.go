// Package sessionmemory keeps the credential slots in process memory.
// Nothing survives a restart.
package sessionmemory

import (
	"github.com/patrickmn/go-cache"

	"github.com/openkcm/session-client/pkg/session"
)

type Store struct {
	cache *cache.Cache
}

var _ = session.SlotStore(&Store{})

func NewStore() *Store {
	return &Store{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (s *Store) Load(key string) (string, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return "", false
	}

	str, ok := v.(string)
	return str, ok
}

func (s *Store) Save(key, value string) {
	s.cache.Set(key, value, cache.NoExpiration)
}

func (s *Store) Remove(key string) {
	s.cache.Delete(key)
}
