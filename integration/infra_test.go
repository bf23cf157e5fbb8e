//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io/fs"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/session-client/internal/config"
	"github.com/openkcm/session-client/internal/dbtest/postgrestest"
	"github.com/openkcm/session-client/internal/dbtest/valkeytest"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	PostgresPort   nat.Port
	ValKeyPort     nat.Port
	ConfigFilePath string
	Procdir        string
	Cfg            config.Config
	Service        *credentialService

	closeFuncs []closeFunc
}

func initInfra(t *testing.T, name string) (istat infraStat) {
	t.Helper()

	// Since the config is read from the file $PWD/config.yaml,
	// we're running a process in a subdirectory so that we aren't interferring with the other tests.
	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")
	istat.Procdir = filepath.Join(wd, name+"-test")
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	err = os.MkdirAll(istat.Procdir, fs.ModePerm)
	require.NoError(t, err, "failed to create a dir for the process")

	err = os.WriteFile(istat.ConfigFilePath, []byte(validConfig), fs.ModePerm)
	require.NoError(t, err, "failed to write config file")

	err = commoncfg.LoadConfig(&istat.Cfg, nil, istat.Procdir)
	require.NoError(t, err, "failed to load config")

	istat.Cfg.Storage.Type = config.StorageFile
	istat.Cfg.Storage.Path = filepath.Join(istat.Procdir, "credentials.yaml")

	return istat
}

func (istat *infraStat) PrepareCredentialService(t *testing.T) {
	t.Helper()

	istat.Service = startCredentialService(t)
	istat.Cfg.Client.BaseURL = istat.Service.URL
}

func (istat *infraStat) PreparePostgres(t *testing.T) {
	t.Helper()

	pgClient, pgPort, pgTerminate := postgrestest.Start(t.Context())
	pgClient.Close()

	istat.PostgresPort = pgPort
	istat.closeFuncs = append(istat.closeFuncs, pgTerminate)

	istat.Cfg.Storage.Type = config.StoragePostgres
	istat.Cfg.Database.Name = postgrestest.DBName
	istat.Cfg.Database.User = commoncfg.SourceRef{Source: "embedded", Value: postgrestest.DBUser}
	istat.Cfg.Database.Password = commoncfg.SourceRef{Source: "embedded", Value: postgrestest.DBPassword}
	istat.Cfg.Database.Host = commoncfg.SourceRef{Source: "embedded", Value: postgrestest.DBHost}
	istat.Cfg.Database.Port = pgPort.Port()
}

func (istat *infraStat) PrepareValKey(t *testing.T) {
	t.Helper()

	vkClient, vkPort, vkTerminate := valkeytest.Start(t.Context())
	vkClient.Close()

	istat.ValKeyPort = vkPort
	istat.closeFuncs = append(istat.closeFuncs, vkTerminate)

	istat.Cfg.Storage.Type = config.StorageValKey
	istat.Cfg.ValKey.Host = commoncfg.SourceRef{Source: "embedded", Value: net.JoinHostPort("localhost", vkPort.Port())}
	istat.Cfg.ValKey.User = commoncfg.SourceRef{Source: "embedded", Value: ""}
	istat.Cfg.ValKey.Password = commoncfg.SourceRef{Source: "embedded", Value: ""}
}

// PrepareConfig writes a config file for running the test into the ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	cfgMap := make(map[any]any)
	err := mapstructure.Decode(istat.Cfg, &cfgMap)
	require.NoError(t, err, "failed to decode mapstructure")

	configFile, err := os.Create(istat.ConfigFilePath)
	require.NoError(t, err, "failed to create config file")
	defer configFile.Close()

	err = yaml.NewEncoder(configFile).Encode(cfgMap)
	require.NoError(t, err, "failed to write config")
}

// Run executes the binary inside Procdir and returns its combined output.
func (istat *infraStat) Run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err, "getting wd")

	cmd := exec.CommandContext(t.Context(), filepath.Join(wd, binary), args...)
	cmd.Dir = istat.Procdir
	cmd.Stdin = strings.NewReader("")

	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (istat *infraStat) Close(ctx context.Context) {
	os.Remove(istat.ConfigFilePath)
	os.RemoveAll(istat.Procdir)

	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}

const (
	testEmail    = "ada@example.com"
	testPassword = "correct horse"
)

// credentialService accepts testEmail/testPassword and hands out tokens
// that are valid until the next login.
type credentialService struct {
	*httptest.Server

	mu    sync.Mutex
	token string
	gen   int
}

func startCredentialService(t *testing.T) *credentialService {
	t.Helper()

	s := &credentialService{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["email"] != testEmail || body["password"] != testPassword {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}

		s.mu.Lock()
		s.gen++
		s.token = "token-" + strings.Repeat("x", s.gen)
		token := s.token
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":  token,
			"refreshToken": "refresh-" + token,
			"user":         map[string]any{"id": 1, "name": "Ada", "email": testEmail},
		})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !s.valid(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Token expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "name": "Ada", "email": testEmail})
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Refresh disabled"})
	})
	mux.HandleFunc("GET /projects", func(w http.ResponseWriter, r *http.Request) {
		if !s.valid(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Token expired"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"name": "alpha"}})
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

func (s *credentialService) valid(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token != "" && r.Header.Get("Authorization") == "Bearer "+s.token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
