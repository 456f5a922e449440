package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/ircbridge/internal/store"
)

func TestLoadMissingKey(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()

	dst := map[string]string{"untouched": "yes"}
	found, err := s.Load(context.Background(), "irc_config", &dst)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, map[string]string{"untouched": "yes"}, dst)
}

func TestSaveOverwrites(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "irc_config", map[string]string{"ops": "irc://a/foo"}))
	require.NoError(t, s.Save(ctx, "irc_config", map[string]string{"dev": "irc://b/bar"}))

	var got map[string]string
	found, err := s.Load(ctx, "irc_config", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, map[string]string{"dev": "irc://b/bar"}, got)
}

func TestSeededCorruptValue(t *testing.T) {
	s, err := NewWithSetup(":memory:", func(db *sql.DB) error {
		_, err := db.Exec(`INSERT INTO kv (key, value) VALUES ('irc_config', 'not json')`)
		return err
	})
	require.NoError(t, err)
	defer s.Close()

	var got map[string]string
	found, err := s.Load(context.Background(), "irc_config", &got)
	assert.True(t, found)
	assert.Error(t, err)
}

func TestMappingsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	mappings := store.NewMappings(s, "")
	require.NoError(t, mappings.SaveMappings(ctx, map[string]string{
		"ops": "irc://irc.example.com/foo",
		"dev": "irc://bob@irc.example.com:6697/bar",
	}))
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := store.NewMappings(reopened, store.DefaultMappingKey).LoadMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "irc://irc.example.com/foo", got["ops"])
}
