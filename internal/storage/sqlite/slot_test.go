package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/common"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, RunMigrations(context.Background(), db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM session_slots`).Scan(&n))
	assert.Zero(t, n)
}

func TestRead_Empty(t *testing.T) {
	s := NewSlot(setupDB(t))
	_, _, err := s.Read(context.Background(), "origin")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestWrite_InsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewSlot(setupDB(t))

	v, err := s.Write(ctx, "origin", []byte(`{"a":1}`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = s.Write(ctx, "origin", []byte(`{"a":2}`), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	data, ver, err := s.Read(ctx, "origin")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":2}`), data)
	assert.Equal(t, int64(2), ver)
}

func TestWrite_StaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewSlot(setupDB(t))

	_, err := s.Write(ctx, "origin", []byte("first"), 0)
	require.NoError(t, err)
	_, err = s.Write(ctx, "origin", []byte("second"), 1)
	require.NoError(t, err)

	_, err = s.Write(ctx, "origin", []byte("stale"), 1)
	require.ErrorIs(t, err, common.ErrVersionConflict)

	_, err = s.Write(ctx, "origin", []byte("dup"), 0)
	require.ErrorIs(t, err, common.ErrVersionConflict)

	data, _, err := s.Read(ctx, "origin")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestWrite_AnyVersionOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewSlot(setupDB(t))

	v, err := s.Write(ctx, "origin", []byte("a"), -1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = s.Write(ctx, "origin", []byte("b"), -1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestDelete_TombstoneKeepsVersion(t *testing.T) {
	ctx := context.Background()
	s := NewSlot(setupDB(t))

	_, err := s.Write(ctx, "origin", []byte("old"), 0)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "origin"))
	require.NoError(t, s.Delete(ctx, "origin"), "deleting twice is fine")

	_, _, err = s.Read(ctx, "origin")
	require.ErrorIs(t, err, common.ErrorNotFound)

	v, err := s.Write(ctx, "origin", []byte("new"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	_, err = s.Write(ctx, "origin", []byte("stale"), 1)
	require.ErrorIs(t, err, common.ErrVersionConflict)
}

func TestSlotsAreIndependentPerOrigin(t *testing.T) {
	ctx := context.Background()
	s := NewSlot(setupDB(t))

	_, err := s.Write(ctx, "a", []byte("A"), 0)
	require.NoError(t, err)
	_, err = s.Write(ctx, "b", []byte("B"), 0)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "a"))

	data, _, err := s.Read(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []byte("B"), data)
}

func TestSweep_RemovesOldTombstones(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	s := NewSlot(db)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	_, err := s.Write(ctx, "gone", []byte("x"), 0)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "gone"))
	_, err = s.Write(ctx, "live", []byte("y"), 0)
	require.NoError(t, err)

	n, err := s.Sweep(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	data, _, err := s.Read(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), data)
}
