// Package sqlite is the default local slot backend. Each origin owns one row
// of session_slots; writes are compare-and-set on its version column.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/common"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/dbx"
)

type Slot struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSlot(db dbx.DBTX) *Slot {
	return &Slot{db: db, now: time.Now}
}

func (s *Slot) Read(ctx context.Context, key string) ([]byte, int64, error) {
	var (
		payload []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, version FROM session_slots WHERE origin = ?`, key).Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, common.ErrorNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read slot[%s]: %w", key, err)
	}
	if payload == nil {
		return nil, 0, common.ErrorNotFound
	}
	return payload, version, nil
}

const (
	upsertAny = `
		INSERT INTO session_slots (origin, payload, version, updated_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(origin) DO UPDATE SET
			payload = excluded.payload,
			version = session_slots.version + 1,
			updated_at = excluded.updated_at
		RETURNING version`

	insertIfEmpty = `
		INSERT INTO session_slots (origin, payload, version, updated_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(origin) DO UPDATE SET
			payload = excluded.payload,
			version = session_slots.version + 1,
			updated_at = excluded.updated_at
		WHERE session_slots.payload IS NULL
		RETURNING version`

	updateAt = `
		UPDATE session_slots SET payload = ?, version = version + 1, updated_at = ?
		WHERE origin = ? AND version = ? AND payload IS NOT NULL
		RETURNING version`
)

func (s *Slot) Write(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	ts := s.now().UnixMilli()

	var row *sql.Row
	switch {
	case expected < 0:
		row = s.db.QueryRowContext(ctx, upsertAny, key, data, ts)
	case expected == 0:
		row = s.db.QueryRowContext(ctx, insertIfEmpty, key, data, ts)
	default:
		row = s.db.QueryRowContext(ctx, updateAt, data, ts, key, expected)
	}

	version, ok, err := dbx.ScanVersion(row)
	if err != nil {
		return 0, fmt.Errorf("failed to write slot[%s]: %w", key, err)
	}
	if !ok {
		return 0, fmt.Errorf("slot[%s] moved past version %d: %w", key, expected, common.ErrVersionConflict)
	}
	return version, nil
}

// Delete leaves a tombstone so the version keeps counting.
func (s *Slot) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE session_slots SET payload = NULL, version = version + 1, updated_at = ?
		WHERE origin = ? AND payload IS NOT NULL
	`, s.now().UnixMilli(), key)
	if err != nil {
		return fmt.Errorf("failed to delete slot[%s]: %w", key, err)
	}
	return nil
}

// Sweep removes tombstones last touched before cutoff and returns how many
// rows went away.
func (s *Slot) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM session_slots WHERE payload IS NULL AND updated_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep slots: %w", err)
	}
	return res.RowsAffected()
}
