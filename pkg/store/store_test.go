package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "save.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	snap := Snapshot{
		Slot:       "slot01",
		Map:        "arroyo",
		Ticks:      123456,
		Experience: 250,
		Globals:    []int32{0, 7, 0, -3},
		MapVars:    []int32{1, 0},
		SavedAt:    time.UnixMilli(1_700_000_000_000),
	}
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx, "slot01")
	require.NoError(t, err)
	require.Equal(t, snap.Map, got.Map)
	require.Equal(t, snap.Ticks, got.Ticks)
	require.Equal(t, snap.Experience, got.Experience)
	require.Equal(t, snap.Globals, got.Globals)
	require.Equal(t, snap.MapVars, got.MapVars)
	require.True(t, snap.SavedAt.Equal(got.SavedAt))
}

func TestSave_Replaces(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.Save(ctx, Snapshot{Slot: "a", Globals: []int32{5, 5, 5}}))
	require.NoError(t, s.Save(ctx, Snapshot{Slot: "a", Globals: []int32{0, 9}}))

	got, err := s.Load(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []int32{0, 9}, got.Globals)
	require.Empty(t, got.MapVars)
}

func TestSave_Rejects(t *testing.T) {
	s := openTest(t)
	require.Error(t, s.Save(context.Background(), Snapshot{}))
}

func TestLoad_Missing(t *testing.T) {
	s := openTest(t)
	_, err := s.Load(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNoSlot)
}

func TestSlotsAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.Save(ctx, Snapshot{Slot: "old", SavedAt: time.UnixMilli(1000)}))
	require.NoError(t, s.Save(ctx, Snapshot{Slot: "new", SavedAt: time.UnixMilli(2000), Globals: []int32{1}}))

	slots, err := s.Slots(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"new", "old"}, slots)

	require.NoError(t, s.Delete(ctx, "new"))
	require.ErrorIs(t, s.Delete(ctx, "new"), ErrNoSlot)

	slots, err = s.Slots(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"old"}, slots)

	var n int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vars").Scan(&n))
	require.Zero(t, n, "variables are deleted with their slot")
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "save.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, Snapshot{Slot: "q", Globals: []int32{0, 0, 42}}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx, "q")
	require.NoError(t, err)
	require.Equal(t, int32(42), got.Globals[2])
}
