package session

import "context"

// Facade is the surface presentation code reads and drives the session
// through.
type Facade interface {
	Session() Session
	User() *User
	Restoring() bool
	Token() string
	Login(ctx context.Context, email, password string) error
	Signup(ctx context.Context, s Signup) error
	Logout()
	Subscribe(fn func(Session)) (unsubscribe func())
}

// Session returns a copy of the current session.
func (e *Engine) Session() Session {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := e.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}

	return s
}

// User returns the authenticated user, or nil.
func (e *Engine) User() *User {
	return e.Session().User
}

// Restoring reports whether the startup restoration is in progress.
func (e *Engine) Restoring() bool {
	return e.Session().Status == StatusRestoring
}

// Subscribe registers fn to be called with the new session after every
// transition.
func (e *Engine) Subscribe(fn func(Session)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}
