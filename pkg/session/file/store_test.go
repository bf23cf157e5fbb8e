package sessionfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/session-client/pkg/session"
	sessionfile "github.com/openkcm/session-client/pkg/session/file"
)

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.yaml")
	s := sessionfile.NewStore(path)

	t.Run("Missing file reads as empty", func(t *testing.T) {
		_, ok := s.Load(session.SlotAccessToken)
		assert.False(t, ok)

		s.Remove(session.SlotAccessToken)
		assert.NoFileExists(t, path)
	})

	t.Run("Save creates the file", func(t *testing.T) {
		s.Save(session.SlotAccessToken, "t1")
		s.Save(session.SlotUser, `{"id":"1","name":"A","email":"a@b.com"}`)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		v, ok := s.Load(session.SlotAccessToken)
		assert.True(t, ok)
		assert.Equal(t, "t1", v)
	})

	t.Run("Survives a new instance", func(t *testing.T) {
		other := sessionfile.NewStore(path)

		v, ok := other.Load(session.SlotUser)
		assert.True(t, ok)
		assert.JSONEq(t, `{"id":"1","name":"A","email":"a@b.com"}`, v)
	})

	t.Run("Remove", func(t *testing.T) {
		s.Remove(session.SlotAccessToken)

		_, ok := s.Load(session.SlotAccessToken)
		assert.False(t, ok)
		_, ok = s.Load(session.SlotUser)
		assert.True(t, ok)
	})

	t.Run("No temp files left behind", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("slots: [not: a map"), 0o600))

	s := sessionfile.NewStore(path)

	_, ok := s.Load(session.SlotAccessToken)
	assert.False(t, ok)

	s.Save(session.SlotAccessToken, "t1")
	v, ok := s.Load(session.SlotAccessToken)
	assert.True(t, ok)
	assert.Equal(t, "t1", v)
}

func TestStore_UnwritableLocation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	// the parent is a regular file, so every write fails
	s := sessionfile.NewStore(filepath.Join(blocker, "credentials.yaml"))
	store := session.NewCredentialStore(s)

	assert.NotPanics(t, func() {
		store.Set(&session.Credential{AccessToken: "t1"})
	})
	assert.Nil(t, store.Get())
}
