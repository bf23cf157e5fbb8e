package sessionvalkey

func (s *Store) Key(slot string) string { return s.key(slot) }

func (s *Store) Timeout() string { return s.timeout.String() }
