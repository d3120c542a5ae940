package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/connect-x/game/engine"
)

// backends returns a fresh instance of every Store implementation
func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fs, err := NewFileStore(filepath.Join(dir, "save.json"))
	require.NoError(t, err)

	sq, err := OpenSQLite(filepath.Join(dir, "save.db"))
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   fs,
		"sqlite": sq,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, Stat("Wins"))
			require.NoError(t, err)
			assert.False(t, ok, "fresh store should be empty")

			require.NoError(t, s.Put(ctx, Stat("Wins"), []byte(`3`)))
			require.NoError(t, s.Put(ctx, Replay(2), []byte(`{"name":"a"}`)))
			require.NoError(t, s.Put(ctx, Setting(SettingPlayerSymbol), []byte(`"#"`)))

			v, ok, err := s.Get(ctx, Stat("Wins"))
			require.NoError(t, err)
			require.True(t, ok)
			assert.JSONEq(t, `3`, string(v))

			require.NoError(t, s.Put(ctx, Stat("Wins"), []byte(`4`)))
			v, _, err = s.Get(ctx, Stat("Wins"))
			require.NoError(t, err)
			assert.JSONEq(t, `4`, string(v), "put should overwrite")

			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []SaveKey{Replay(2), Setting(SettingPlayerSymbol), Stat("Wins")}, keys)

			require.NoError(t, s.Delete(ctx, Replay(2)))
			require.NoError(t, s.Delete(ctx, Replay(2)), "deleting a missing key is not an error")
			_, ok, err = s.Get(ctx, Replay(2))
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Close())
			_, _, err = s.Get(ctx, Stat("Wins"))
			assert.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestLoadFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	wins, err := Load[int](ctx, s, Stat("Wins"))
	require.NoError(t, err)
	assert.Equal(t, 0, wins)

	sym, err := Load[string](ctx, s, Setting(SettingEnemySymbol))
	require.NoError(t, err)
	assert.Equal(t, "O", sym)

	diff, err := Load[int](ctx, s, Setting(SettingDifficulty))
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultDifficulty, diff)

	require.NoError(t, Save(ctx, s, Stat("Wins"), 7))
	wins, err = Load[int](ctx, s, Stat("Wins"))
	require.NoError(t, err)
	assert.Equal(t, 7, wins)
}

func TestLoadDecodeError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, Stat("Wins"), []byte(`"many"`)))

	_, err := Load[int](ctx, s, Stat("Wins"))
	assert.Error(t, err)
}

func TestReplaySlots(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	r, err := LoadReplay(ctx, s, 1)
	require.NoError(t, err)
	assert.True(t, IsEmptyReplay(r), "unwritten slot reads as the empty sentinel")
	assert.Equal(t, EmptyReplayName, r.Name)

	g, err := engine.NewGame(engine.DefaultSymbols())
	require.NoError(t, err)
	mode, _ := engine.BuiltinMode("tictactoe")
	require.NoError(t, g.Start(mode, true))
	for _, m := range []struct {
		a engine.Actor
		c engine.Coord
	}{
		{engine.Player, engine.Coord{Row: 0, Col: 0}},
		{engine.Cpu, engine.Coord{Row: 1, Col: 0}},
		{engine.Player, engine.Coord{Row: 0, Col: 1}},
		{engine.Cpu, engine.Coord{Row: 1, Col: 1}},
		{engine.Player, engine.Coord{Row: 0, Col: 2}},
	} {
		_, err := g.Apply(m.a, m.c)
		require.NoError(t, err)
	}

	saved, err := engine.NewReplay("first win", g)
	require.NoError(t, err)
	saved.Version = 0
	require.NoError(t, SaveReplay(ctx, s, 1, saved))

	got, err := LoadReplay(ctx, s, 1)
	require.NoError(t, err)
	assert.Equal(t, engine.ReplayVersion, got.Version)
	assert.Equal(t, "first win", got.Name)
	assert.Equal(t, engine.Won, got.Outcome)
	assert.Equal(t, saved.PlayerMoves, got.PlayerMoves)
	assert.False(t, IsEmptyReplay(got))
}

func TestCustomModeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	m, err := LoadCustomMode(ctx, s)
	require.NoError(t, err)
	assert.True(t, m.Template)

	custom := engine.GameMode{ID: engine.CustomModeID, Title: "Mine", Rows: 5, Cols: 6, Objective: 4}
	require.NoError(t, SaveCustomMode(ctx, s, custom))

	m, err = LoadCustomMode(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, custom, m)
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "save.json")

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.Put(ctx, Stat("Ties"), []byte(`2`)))
	require.NoError(t, fs.Close())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, Stat("Ties"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `2`, string(v))
}

func TestFileStoreRejectsInvalidJSON(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "save.json"))
	require.NoError(t, err)
	assert.Error(t, fs.Put(context.Background(), Stat("Wins"), []byte(`{not json`)))
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "save.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, Stat("Losses"), []byte(`1`)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(ctx, Stat("Losses"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `1`, string(v))

	var applied int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(1) FROM _migrations`).Scan(&applied))
	assert.Equal(t, len(migrations), applied)
}
