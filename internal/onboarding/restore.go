package onboarding

import (
	"context"
	"fmt"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/common"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/logging"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
)

// Outcome is the restoration decision.
type Outcome int

const (
	OutcomeFreshStart Outcome = iota
	OutcomeResume
	OutcomeExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFreshStart:
		return "fresh_start"
	case OutcomeResume:
		return "resume"
	default:
		return "expired"
	}
}

// Decision is what the wizard starts from.
type Decision struct {
	Outcome Outcome
	// Session is nil for OutcomeExpired.
	Session *models.WizardSession
	// Step is the sequencer start; the persisted step is remapped through
	// models.Step.ResumePoint.
	Step models.Step
}

// Restorer runs the restoration policy once per mount.
type Restorer struct {
	store SessionStore
	auth  AuthSession
	log   logging.Logger
}

// NewRestorer builds a restorer. auth may be nil when there is no
// authenticated session to invalidate.
func NewRestorer(store SessionStore, auth AuthSession, log logging.Logger) *Restorer {
	if log == nil {
		log = logging.Nop{}
	}
	return &Restorer{store: store, auth: auth, log: log}
}

// Restore chooses exactly one outcome for the entry context:
//
//   - fresh start when the entry carries a complete purchase intent that is
//     not the one already stored;
//   - resume when a usable stored session exists and the entry does not
//     conflict with it;
//   - expired otherwise.
func (r *Restorer) Restore(ctx context.Context, entry models.EntryContext) (Decision, error) {
	stored, err := r.store.Load(ctx)
	if err != nil {
		r.log.Warn(ctx, "session load failed, treating as no session", "error", err)
		stored = nil
	}

	if entry.HasPurchaseIntent() {
		if stored != nil && sameOffer(stored, entry) {
			return r.resume(ctx, stored), nil
		}
		role := entry.Role
		if role == "" && stored != nil {
			role = stored.Role
		}
		return r.StartFresh(ctx, role, entry.Purchase)
	}

	if stored == nil {
		r.log.Info(ctx, "no usable session and no purchase intent")
		return Decision{Outcome: OutcomeExpired}, nil
	}

	if conflicts(stored, entry) {
		r.log.Info(ctx, "entry context conflicts with stored session",
			"stored_role", stored.Role, "entry_role", entry.Role)
		return Decision{Outcome: OutcomeExpired}, nil
	}

	return r.resume(ctx, stored), nil
}

// StartFresh clears whatever is stored, invalidates any authenticated
// session and saves a new session at the first step.
func (r *Restorer) StartFresh(ctx context.Context, role models.Role, pc models.PurchaseContext) (Decision, error) {
	if !role.Valid() {
		return Decision{}, fmt.Errorf("%w: fresh start needs a role", common.ErrInvalidTransition)
	}
	if !pc.Complete() {
		return Decision{}, fmt.Errorf("%w: fresh start needs plan, currency and recurring interval", common.ErrInvalidTransition)
	}

	if err := r.store.Clear(ctx); err != nil {
		r.log.Warn(ctx, "failed to clear previous session", "error", err)
	}
	if r.auth != nil {
		if err := r.auth.Invalidate(ctx); err != nil {
			r.log.Warn(ctx, "failed to invalidate previous auth session", "error", err)
		}
	}

	sess := models.NewSession(role, pc)
	if err := r.store.Save(ctx, sess); err != nil {
		// The wizard can still run; the first successful commit saves again.
		r.log.Warn(ctx, "failed to save fresh session", "error", err)
	}

	r.log.Info(ctx, "fresh onboarding session", "session_id", sess.ID, "role", role, "offer", pc.String())
	return Decision{Outcome: OutcomeFreshStart, Session: sess, Step: models.FirstStep}, nil
}

func (r *Restorer) resume(ctx context.Context, stored *models.WizardSession) Decision {
	step := stored.Step.ResumePoint()
	if step != stored.Step {
		r.log.Info(ctx, "remapped unsafe resume point", "stored_step", int(stored.Step), "step", int(step))
	}
	stored.Step = step
	r.log.Info(ctx, "resuming onboarding session", "session_id", stored.ID, "role", stored.Role, "step", int(step))
	return Decision{Outcome: OutcomeResume, Session: stored, Step: step}
}

func sameOffer(stored *models.WizardSession, entry models.EntryContext) bool {
	if entry.Role != "" && entry.Role != stored.Role {
		return false
	}
	return stored.PurchaseContext.Equal(entry.Purchase)
}

// conflicts reports whether a partial entry context disagrees with the
// stored session on any parameter it does carry.
func conflicts(stored *models.WizardSession, entry models.EntryContext) bool {
	if entry.Role != "" && entry.Role != stored.Role {
		return true
	}
	p, s := entry.Purchase, stored.PurchaseContext
	if p.Plan != "" && p.Plan != s.Plan {
		return true
	}
	if p.Currency != "" && p.Currency != s.Currency {
		return true
	}
	if p.RecurringInterval != "" && p.RecurringInterval != s.RecurringInterval {
		return true
	}
	return false
}
