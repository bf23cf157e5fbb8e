package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/openkcm/session-client/pkg/gateway"
	"github.com/openkcm/session-client/pkg/session"
	sessionmock "github.com/openkcm/session-client/pkg/session/mock"
)

const (
	pathLogin   = "/auth/login"
	pathSignup  = "/auth/signup"
	pathForgot  = "/auth/forgot"
	pathMe      = "/auth/me"
	pathRefresh = "/auth/refresh"
	pathData    = "/data"
)

var testUser = session.User{ID: "1", Name: "A", Email: "a@b.com"}

// credentialService is a fake credential service. Tokens listed in
// validTokens are accepted by the me and data routes; refresh maps a
// refresh token to the access token it is exchanged for.
type credentialService struct {
	*httptest.Server

	mu           sync.Mutex
	hits         map[string]int
	bearers      map[string][]string
	validTokens  map[string]bool
	refresh      map[string]string
	user         session.User
	loginResp    string
	loginStatus  int
	meStatus     int
	forgotStatus int
}

func startCredentialService(t *testing.T) *credentialService {
	t.Helper()

	s := &credentialService{
		hits:        make(map[string]int),
		bearers:     make(map[string][]string),
		validTokens: map[string]bool{"t1": true},
		refresh:     make(map[string]string),
		user:        testUser,
		loginResp:   `{"accessToken":"t1","user":{"id":1,"name":"A","email":"a@b.com"}}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+pathLogin, s.handleLogin)
	mux.HandleFunc("POST "+pathSignup, s.handleLogin)
	mux.HandleFunc("POST "+pathForgot, s.handleForgot)
	mux.HandleFunc("GET "+pathMe, s.handleMe)
	mux.HandleFunc("POST "+pathRefresh, s.handleRefresh)
	mux.HandleFunc("GET "+pathData, s.handleData)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.bearers[r.URL.Path] = append(s.bearers[r.URL.Path], strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)

	return s
}

// configure mutates the service behaviour under its lock.
func (s *credentialService) configure(fn func(s *credentialService)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *credentialService) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *credentialService) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func (s *credentialService) Bearers(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bearers[path]...)
}

func (s *credentialService) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validTokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *credentialService) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, `{"message":"Malformed body"}`)
		return
	}
	s.mu.Lock()
	status, resp := s.loginStatus, s.loginResp
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, `{"message":"Invalid credentials"}`)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *credentialService) handleForgot(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	status := s.forgotStatus
	s.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte("<html>Cannot POST</html>"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *credentialService) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status, user := s.meStatus, s.user
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, `{"message":"Boom"}`)
		return
	}
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Token expired"}`)
		return
	}
	raw, _ := json.Marshal(user)
	writeJSON(w, http.StatusOK, string(raw))
}

func (s *credentialService) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, `{"message":"Malformed body"}`)
		return
	}

	s.mu.Lock()
	next, ok := s.refresh[body.RefreshToken]
	if ok {
		s.validTokens[next] = true
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Refresh token revoked"}`)
		return
	}
	writeJSON(w, http.StatusOK, `{"accessToken":"`+next+`"}`)
}

func (s *credentialService) handleData(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Token expired"}`)
		return
	}
	writeJSON(w, http.StatusOK, `{"value":"ok"}`)
}

func endpoints(withMe, withRefresh bool) session.EndpointSet {
	e := session.EndpointSet{
		Login:  pathLogin,
		Signup: pathSignup,
		Forgot: pathForgot,
	}
	if withMe {
		e.Me = pathMe
	}
	if withRefresh {
		e.Refresh = pathRefresh
	}
	return e
}

func newEngine(t *testing.T, svc *credentialService, eps session.EndpointSet, slots *sessionmock.Store, opts ...session.Option) (*session.Engine, session.CredentialStore) {
	t.Helper()

	store := session.NewCredentialStore(slots)
	gw := gateway.NewClient(svc.URL, svc.Client(), session.TokenSource(store))

	return session.NewEngine(eps, store, gw, opts...), store
}

// assertInvariant checks that an authenticated session is fully persisted
// and an unauthenticated one not at all.
func assertInvariant(t *testing.T, e *session.Engine, store session.CredentialStore) {
	t.Helper()

	switch e.Session().Status {
	case session.StatusAuthenticated:
		require.NotNil(t, store.Get(), "authenticated without persisted credential")
		require.NotNil(t, store.GetUser(), "authenticated without persisted user")
	case session.StatusUnauthenticated:
		assert.Nil(t, store.Get(), "unauthenticated with persisted credential")
		assert.Nil(t, store.GetUser(), "unauthenticated with persisted user")
	}
}

// transitionCounter records every increment as "from->to".
type transitionCounter struct {
	noop.Int64Counter

	mu    sync.Mutex
	added []string
}

func (c *transitionCounter) Add(_ context.Context, incr int64, opts ...metric.AddOption) {
	attrs := metric.NewAddConfig(opts).Attributes()
	from, _ := attrs.Value("from")
	to, _ := attrs.Value("to")

	c.mu.Lock()
	defer c.mu.Unlock()
	for range incr {
		c.added = append(c.added, from.AsString()+"->"+to.AsString())
	}
}

func (c *transitionCounter) TAdded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.added...)
}
