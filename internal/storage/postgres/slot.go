// Package postgres is the server-side slot backend, for deployments where
// sessions must follow the user across devices.
package postgres

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
	db dbx.DBTX
}

func NewSlot(db dbx.DBTX) *Slot {
	return &Slot{db: db}
}

func (s *Slot) Read(ctx context.Context, key string) ([]byte, int64, error) {
	query := `SELECT payload, version FROM session_slots WHERE origin = $1`

	var (
		payload []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, common.ErrorNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("error performing sql request: %w", err)
	}
	if payload == nil {
		return nil, 0, common.ErrorNotFound
	}
	return payload, version, nil
}

const (
	upsertAny = `INSERT INTO session_slots (origin, payload, version, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (origin) DO UPDATE SET
			payload = EXCLUDED.payload,
			version = session_slots.version + 1,
			updated_at = now()
		RETURNING version`

	insertIfEmpty = `INSERT INTO session_slots (origin, payload, version, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (origin) DO UPDATE SET
			payload = EXCLUDED.payload,
			version = session_slots.version + 1,
			updated_at = now()
		WHERE session_slots.payload IS NULL
		RETURNING version`

	updateAt = `UPDATE session_slots
		SET payload = $2, version = version + 1, updated_at = now()
		WHERE origin = $1 AND version = $3 AND payload IS NOT NULL
		RETURNING version`
)

func (s *Slot) Write(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	var row *sql.Row
	switch {
	case expected < 0:
		row = s.db.QueryRowContext(ctx, upsertAny, key, data)
	case expected == 0:
		row = s.db.QueryRowContext(ctx, insertIfEmpty, key, data)
	default:
		row = s.db.QueryRowContext(ctx, updateAt, key, data, expected)
	}

	version, ok, err := dbx.ScanVersion(row)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("slot %s moved past version %d: %w", key, expected, common.ErrVersionConflict)
	}
	return version, nil
}

// Delete leaves a tombstone so the version keeps counting.
func (s *Slot) Delete(ctx context.Context, key string) error {
	query := `UPDATE session_slots
		SET payload = NULL, version = version + 1, updated_at = now()
		WHERE origin = $1 AND payload IS NOT NULL`

	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// Sweep removes tombstones last touched before cutoff.
func (s *Slot) Sweep(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM session_slots WHERE payload IS NULL AND updated_at < $1`

	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return res.RowsAffected()
}
