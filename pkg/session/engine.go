package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/session-client/pkg/gateway"
)

const (
	capabilityLogin   = "login"
	capabilitySignup  = "signup"
	capabilityForgot  = "forgot"
	capabilityMe      = "me"
	capabilityRefresh = "refresh"
)

type Option func(*Engine)

// WithOnLoginSuccess registers a callback run after a successful login or
// signup.
func WithOnLoginSuccess(fn func()) Option {
	return func(e *Engine) { e.onLoginSuccess = fn }
}

// WithOnLogout registers a callback run after a logout.
func WithOnLogout(fn func()) Option {
	return func(e *Engine) { e.onLogout = fn }
}

// WithTransitionCounter replaces the counter incremented on every change of
// the session status.
func WithTransitionCounter(c metric.Int64Counter) Option {
	return func(e *Engine) {
		if c != nil {
			e.transitions = c
		}
	}
}

// Engine owns the session of one client and drives its lifecycle.
//
// Operations are not serialised against each other. The mutex only guards
// the in-memory session and the subscribers, and is never held across a
// request.
type Engine struct {
	endpoints EndpointSet
	store     CredentialStore
	gateway   *gateway.Client

	onLoginSuccess func()
	onLogout       func()
	transitions    metric.Int64Counter

	mu          sync.RWMutex
	session     Session
	restored    bool
	subscribers map[int]func(Session)
	nextSubID   int
}

var _ = Facade(&Engine{})

// NewEngine creates an engine in Restoring when a credential is persisted
// and in Unauthenticated otherwise. Call Restore before anything else.
func NewEngine(endpoints EndpointSet, store CredentialStore, gw *gateway.Client, opts ...Option) *Engine {
	e := &Engine{
		endpoints:   endpoints,
		store:       store,
		gateway:     gw,
		session:     initial(store.Get() != nil),
		subscribers: make(map[int]func(Session)),
	}

	counter, err := otel.Meter("session-client/session").Int64Counter(
		"session.transitions",
		metric.WithDescription("Session state transitions"),
		metric.WithUnit("transition"),
	)
	if err != nil {
		counter = noop.Int64Counter{}
	}
	e.transitions = counter

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e
}

// TokenSource reads the access token from store for the request gateway.
func TokenSource(store CredentialStore) gateway.TokenSource {
	return func() string {
		if c := store.Get(); c != nil {
			return c.AccessToken
		}
		return ""
	}
}

// Restore reconstructs the session from persisted state. It runs once per
// engine; later calls return the current session.
//
// With a Me endpoint the persisted credential is verified against the
// server, otherwise the persisted user and credential are trusted as they
// are. Failures are never returned, they resolve to Unauthenticated.
func (e *Engine) Restore(ctx context.Context) Session {
	e.mu.Lock()
	if e.restored {
		s := e.session
		e.mu.Unlock()
		return s
	}
	e.restored = true
	e.mu.Unlock()

	if e.endpoints.Me == "" {
		return e.restoreOptimistic(ctx)
	}

	return e.restoreVerified(ctx)
}

func (e *Engine) restoreOptimistic(ctx context.Context) Session {
	c := e.store.Get()
	u := e.store.GetUser()
	if c == nil || u == nil {
		if isPersisted(e.store) {
			slogctx.Warn(ctx, "Discarding incomplete persisted session")
		}
		clearPersisted(e.store)
		return e.apply(ctx, unauthenticated())
	}

	slogctx.Debug(ctx, "Restored persisted session", "user_id", u.ID)

	return e.apply(ctx, authenticated(*u))
}

func (e *Engine) restoreVerified(ctx context.Context) Session {
	if e.store.Get() == nil {
		clearPersisted(e.store)
		return e.apply(ctx, unauthenticated())
	}

	u, err := e.fetchProfile(ctx)
	if err != nil && isUnauthorized(err) {
		if _, ok := e.renew(ctx); ok {
			u, err = e.fetchProfile(ctx)
		}
	}

	if err != nil {
		slogctx.Warn(ctx, "Could not restore the session", "error", err)
		clearPersisted(e.store)
		return e.apply(ctx, unauthenticated())
	}

	c := e.store.Get()
	if c == nil {
		// the medium lost the credential while the profile was fetched
		clearPersisted(e.store)
		return e.apply(ctx, unauthenticated())
	}
	persist(e.store, c, u)

	return e.apply(ctx, authenticated(*u))
}

func (e *Engine) fetchProfile(ctx context.Context) (*User, error) {
	u, err := gateway.Send[User](ctx, e.gateway, gateway.Request{
		Method:     http.MethodGet,
		Path:       e.endpoints.Me,
		Auth:       true,
		Capability: capabilityMe,
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("empty profile response: %w", ErrServerFault)
	}

	return u, nil
}

// Login authenticates with email and password. On failure the session is
// left as it was and the error is returned as is.
func (e *Engine) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := validateLogin(email, password); err != nil {
		return err
	}

	return e.authenticate(ctx, gateway.Request{
		Method:     http.MethodPost,
		Path:       e.endpoints.Login,
		Body:       credentials{Email: email, Password: password},
		Capability: capabilityLogin,
	})
}

// Signup registers a new account and authenticates with it.
func (e *Engine) Signup(ctx context.Context, s Signup) error {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	if err := validateSignup(s); err != nil {
		return err
	}

	return e.authenticate(ctx, gateway.Request{
		Method:     http.MethodPost,
		Path:       e.endpoints.Signup,
		Body:       s,
		Capability: capabilitySignup,
	})
}

func (e *Engine) authenticate(ctx context.Context, req gateway.Request) error {
	resp, err := gateway.Send[authResponse](ctx, e.gateway, req)
	if err != nil {
		slogctx.Info(ctx, "Authentication failed", "capability", req.Capability, "error", err)
		return err
	}

	if resp == nil || resp.AccessToken == "" || resp.User == nil {
		return fmt.Errorf("%s response without access token or user: %w", req.Capability, ErrServerFault)
	}

	persist(e.store, &Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}, resp.User)
	e.apply(ctx, authenticated(*resp.User))

	if e.onLoginSuccess != nil {
		e.onLoginSuccess()
	}

	return nil
}

// Logout clears the persisted session. It never fails and does nothing
// when there is no session.
func (e *Engine) Logout() {
	ctx := context.Background()

	if e.Session().Status == StatusUnauthenticated && !isPersisted(e.store) {
		return
	}

	clearPersisted(e.store)
	e.apply(ctx, unauthenticated())

	if e.onLogout != nil {
		e.onLogout()
	}
}

// RequestPasswordReset asks the server to send a reset link to email.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e.endpoints.Forgot == "" {
		return fmt.Errorf("password reset: %w", ErrCapabilityMissing)
	}

	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	_, err := gateway.Send[json.RawMessage](ctx, e.gateway, gateway.Request{
		Method:     http.MethodPost,
		Path:       e.endpoints.Forgot,
		Body:       resetRequest{Email: email},
		Capability: capabilityForgot,
	})

	return err
}

// renew exchanges the persisted refresh token for a new access token. It
// reports false when no renewal is possible.
func (e *Engine) renew(ctx context.Context) (string, bool) {
	if e.endpoints.Refresh == "" {
		return "", false
	}

	c := e.store.Get()
	if c == nil || c.RefreshToken == "" {
		return "", false
	}

	resp, err := gateway.Send[refreshResponse](ctx, e.gateway, gateway.Request{
		Method:     http.MethodPost,
		Path:       e.endpoints.Refresh,
		Body:       refreshRequest{RefreshToken: c.RefreshToken},
		Capability: capabilityRefresh,
	})
	if err != nil {
		slogctx.Warn(ctx, "Could not renew the session", "error", err)
		return "", false
	}
	if resp == nil || resp.AccessToken == "" {
		slogctx.Warn(ctx, "Renewal response without access token")
		return "", false
	}

	next := &Credential{AccessToken: resp.AccessToken, RefreshToken: c.RefreshToken}
	if resp.RefreshToken != "" {
		next.RefreshToken = resp.RefreshToken
	}

	if u := e.User(); u != nil {
		persist(e.store, next, u)
	} else {
		e.store.Set(next)
	}

	slogctx.Info(ctx, "Renewed the access token")

	return next.AccessToken, true
}

// Send performs an authenticated request. When the credential is rejected
// and a renewal succeeds, the request is retried exactly once. When no
// renewal is possible the rejection is returned and persisted state is left
// untouched.
func Send[T any](ctx context.Context, e *Engine, req gateway.Request) (*T, error) {
	req.Auth = true

	out, err := gateway.Send[T](ctx, e.gateway, req)
	if err == nil || !isUnauthorized(err) {
		return out, err
	}

	if _, ok := e.renew(ctx); !ok {
		return nil, err
	}

	return gateway.Send[T](ctx, e.gateway, req)
}

// Token returns the persisted access token, or "" when there is none.
func (e *Engine) Token() string {
	return TokenSource(e.store)()
}

func (e *Engine) apply(ctx context.Context, s Session) Session {
	e.mu.Lock()
	prev := e.session.Status
	e.session = s
	subscribers := slices.Collect(maps.Values(e.subscribers))
	e.mu.Unlock()

	if prev != s.Status {
		slogctx.Info(ctx, "Session state changed", "from", prev.String(), "to", s.Status.String())
		e.transitions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("from", prev.String()),
			attribute.String("to", s.Status.String()),
		))
	}

	for _, fn := range subscribers {
		fn(s)
	}

	return s
}

func isUnauthorized(err error) bool {
	var gerr *gateway.Error
	return errors.As(err, &gerr) && gerr.Unauthorized()
}
