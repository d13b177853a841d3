package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTarsnap(t *testing.T) *Tarsnap {
	t.Helper()
	b, err := NewTarsnap("test backend", map[string]any{"keyfile": "/root/theKey.key"}, nil)
	require.NoError(t, err)
	return b.(*Tarsnap)
}

func TestTarsnap_InstanceName(t *testing.T) {
	b := testTarsnap(t)
	now := time.Unix(1416279400, 0)

	name := b.InstanceName("great", now)

	assert.Equal(t, "17b690276b0184062d03b56fbf0d66b775c2a19c-1416279400.0-great", name)
}

func TestTarsnap_FormatTimestamp(t *testing.T) {
	tests := []struct {
		ts   float64
		want string
	}{
		{1416279400, "1416279400.0"},
		{1416279400.5, "1416279400.5"},
		{1416279400.25, "1416279400.25"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatTimestamp(tt.ts))
		})
	}
}

func TestTarsnap_ArchivesFromPrimedToken(t *testing.T) {
	b := testTarsnap(t)

	token := tarsnapSnapshot{
		"712fded485ebd593f5954e38acb78ea437c15997-1416279400.0-mrgl",
		"712fded485ebd593f5954e38acb78ea437c1599f-1416280000.0-brgl",
		"712fded485ebd593f5954e38acb78ea437c15997-1416369139.0-mrgl",
	}

	archives, err := b.Archives(context.Background(), "mrgl", token)
	require.NoError(t, err)
	require.Len(t, archives, 2)

	for _, archive := range archives {
		assert.Equal(t, "test backend", archive.BackendName)
		assert.Equal(t, "mrgl", archive.BackupName)
	}
	assert.Equal(t, 1416279400.0, archives[0].Timestamp)
	assert.Equal(t, "712fded485ebd593f5954e38acb78ea437c15997-1416279400.0-mrgl", archives[0].Fullname)
	assert.Equal(t, 1416369139.0, archives[1].Timestamp)
}

func TestTarsnap_ArchivesIgnoresForeignLines(t *testing.T) {
	b := testTarsnap(t)

	token := tarsnapSnapshot{
		"manually-created-archive",
		"712fded485ebd593f5954e38acb78ea437c15997-notatime-mrgl",
		"712fded485ebd593f5954e38acb78ea437c15997-1416279400.5-mrgl",
	}

	archives, err := b.Archives(context.Background(), "mrgl", token)
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, 1416279400.5, archives[0].Timestamp)
}

func TestTarsnap_ArchivesRejectsForeignToken(t *testing.T) {
	b := testTarsnap(t)

	_, err := b.Archives(context.Background(), "mrgl", ListToken("not a snapshot"))
	assert.Error(t, err)
}

func TestTarsnap_SettingsValidation(t *testing.T) {
	_, err := NewTarsnap("b", map[string]any{"keyfile": 7}, nil)
	assert.Error(t, err)

	_, err = NewTarsnap("b", map[string]any{"tarsnap_path": 7}, nil)
	assert.Error(t, err)

	b, err := NewTarsnap("b", map[string]any{"tarsnap_path": "/opt/tarsnap"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/opt/tarsnap", b.(*Tarsnap).binaryPath)
}
