package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/common"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/logging"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
)

// SessionStore persists the single resumable session of an origin.
type SessionStore interface {
	// Load returns (nil, nil) when there is no usable session.
	Load(ctx context.Context) (*models.WizardSession, error)
	// Save writes s; it is a no-op when s has no complete purchase context.
	Save(ctx context.Context, s *models.WizardSession) error
	// Clear deletes the stored session.
	Clear(ctx context.Context) error
}

// AnyVersion makes Slot.Write overwrite regardless of the stored version.
const AnyVersion int64 = -1

// Slot is a versioned byte cell keyed by origin. Implementations live in
// internal/storage.
type Slot interface {
	// Read returns common.ErrorNotFound when the slot is empty.
	Read(ctx context.Context, key string) (data []byte, version int64, err error)
	// Write stores data if the current version equals expected (0 meaning
	// "no live record") and returns the new version. A mismatch yields
	// common.ErrVersionConflict. Any negative expected, such as AnyVersion,
	// skips the check.
	//
	// Versions keep increasing across Delete, so a writer holding the
	// version of a deleted record cannot overwrite its replacement.
	Write(ctx context.Context, key string, data []byte, expected int64) (int64, error)
	// Delete removes the record; deleting an empty slot is not an error.
	Delete(ctx context.Context, key string) error
}

// DurableStore is the SessionStore backed by a Slot.
type DurableStore struct {
	slot          Slot
	key           string
	ttl           time.Duration
	now           func() time.Time
	log           logging.Logger
	lastWriteWins bool
}

// StoreOption customizes a DurableStore.
type StoreOption func(*DurableStore)

// WithTTL overrides the default 48h session lifetime.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *DurableStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock sets the time source, mainly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *DurableStore) { s.now = now }
}

// WithLastWriteWins disables stale-write detection: every Save overwrites.
func WithLastWriteWins() StoreOption {
	return func(s *DurableStore) { s.lastWriteWins = true }
}

// WithStoreLogger attaches a logger.
func WithStoreLogger(l logging.Logger) StoreOption {
	return func(s *DurableStore) { s.log = l }
}

// NewDurableStore binds a store to one slot key (usually the origin).
func NewDurableStore(slot Slot, key string, opts ...StoreOption) *DurableStore {
	s := &DurableStore{
		slot: slot,
		key:  key,
		ttl:  common.DefaultSessionTTL,
		now:  time.Now,
		log:  logging.Nop{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TTL reports the configured session lifetime.
func (s *DurableStore) TTL() time.Duration { return s.ttl }

// Load reads and validates the stored session. Anything unusable (expired,
// missing purchase context, undecodable, unreadable) is reported as no
// session; unusable records are deleted.
func (s *DurableStore) Load(ctx context.Context) (*models.WizardSession, error) {
	data, version, err := s.slot.Read(ctx, s.key)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "session slot unreadable, starting without session", "key", s.key, "error", err)
		}
		return nil, nil
	}

	sess, err := models.DecodeRecord(data)
	if err != nil {
		s.log.Warn(ctx, "discarding corrupt session record", "key", s.key, "error", err)
		s.discard(ctx)
		return nil, nil
	}

	if !sess.PurchaseContext.Complete() {
		s.log.Info(ctx, "discarding session without purchase context", "key", s.key)
		s.discard(ctx)
		return nil, nil
	}

	if sess.Expired(s.now(), s.ttl) {
		s.log.Info(ctx, "discarding expired session", "key", s.key, "saved_at", sess.SavedAt)
		s.discard(ctx)
		return nil, nil
	}

	sess.Version = version
	return sess, nil
}

// Save serializes s without secrets and stamps SavedAt and Version on it.
func (s *DurableStore) Save(ctx context.Context, sess *models.WizardSession) error {
	if sess == nil || !sess.PurchaseContext.Complete() {
		s.log.Debug(ctx, "skipping save of session without complete purchase context", "key", s.key)
		return nil
	}

	prev := sess.SavedAt
	sess.SavedAt = s.now()
	data, err := models.EncodeRecord(sess)
	if err != nil {
		sess.SavedAt = prev
		return err
	}

	expected := sess.Version
	if s.lastWriteWins {
		expected = AnyVersion
	}

	version, err := s.slot.Write(ctx, s.key, data, expected)
	if err != nil {
		sess.SavedAt = prev
		if errors.Is(err, common.ErrVersionConflict) {
			return fmt.Errorf("save session at version %d: %w", sess.Version, err)
		}
		return fmt.Errorf("save session: %w", err)
	}

	s.log.Debug(ctx, "session saved", "key", s.key, "step", int(sess.Step), "version", version)
	sess.Version = version
	return nil
}

// Clear deletes the stored session.
func (s *DurableStore) Clear(ctx context.Context) error {
	if err := s.slot.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *DurableStore) discard(ctx context.Context) {
	if err := s.slot.Delete(ctx, s.key); err != nil {
		s.log.Warn(ctx, "failed to delete unusable session", "key", s.key, "error", err)
	}
}
