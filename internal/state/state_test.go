package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	store := NewStore(path)

	original := State{"mrgl": 1416279400.5, "brgl": 1416280000}
	require.NoError(t, store.Save(original))

	loaded := NewStore(path).Load()
	assert.Equal(t, original, loaded)
}

func TestStore_MissingFileGivesDefaultState(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope"))

	assert.Equal(t, State{}, store.Load())
	assert.True(t, store.ModTime().IsZero())
}

func TestStore_MalformedFileGivesDefaultState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	assert.Equal(t, State{}, NewStore(path).Load())
}

func TestStore_SaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state")

	require.NoError(t, NewStore(path).Save(State{"mrgl": 1}))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestState_LastRun(t *testing.T) {
	s := State{"mrgl": 1416279400}

	t.Run("known backup", func(t *testing.T) {
		got := s.LastRun("mrgl", time.UTC)
		assert.Equal(t, time.Unix(1416279400, 0).UTC(), got)
	})

	t.Run("never-run backup is the epoch", func(t *testing.T) {
		got := s.LastRun("unknown", time.UTC)
		assert.Equal(t, time.Unix(0, 0).UTC(), got)
	})
}

func TestState_Clone(t *testing.T) {
	s := State{"mrgl": 1}
	clone := s.Clone()
	clone["mrgl"] = 2

	assert.Equal(t, 1.0, s["mrgl"])
}
