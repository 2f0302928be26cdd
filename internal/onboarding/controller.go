package onboarding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/common"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/logging"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
)

// State is the controller's FSM state.
type State int

const (
	StateLoading State = iota
	StateStep
	StateAuthorizationConflict
	StateExpired
	StateAlreadyOnboarded
	StateDone
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateStep:
		return "step"
	case StateAuthorizationConflict:
		return "authorization_conflict"
	case StateExpired:
		return "expired"
	case StateAlreadyOnboarded:
		return "already_onboarded"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Terminal reports whether no step can be shown in s.
func (s State) Terminal() bool {
	return s == StateExpired || s == StateAlreadyOnboarded || s == StateDone
}

// EventType names a controller event.
type EventType string

const (
	EventRestore        EventType = "RESTORE"
	EventExpire         EventType = "EXPIRE"
	EventSubmitStep     EventType = "SUBMIT_STEP"
	EventBack           EventType = "BACK"
	EventPreparePayment EventType = "PREPARE_PAYMENT"
	EventProceed        EventType = "PROCEED"
	EventStartOver      EventType = "START_OVER"
	EventDismissError   EventType = "DISMISS_ERROR"
)

// Event is the single input of the controller.
type Event struct {
	Type EventType
	// Entry is read by RESTORE and START_OVER.
	Entry models.EntryContext
	// Fields holds the step-local values submitted with SUBMIT_STEP,
	// secrets included.
	Fields map[string]any
}

// Exit names where a terminal state leads.
type Exit string

const (
	ExitNone          Exit = ""
	ExitDashboard     Exit = "dashboard"
	ExitStartOver     Exit = "start_over"
	ExitProceedOrBack Exit = "proceed_or_back"
)

// View is a snapshot of what to render.
type View struct {
	State   State
	Step    models.Step
	Role    models.Role
	Intake  models.Intake
	Offer   models.PurchaseContext
	Pending bool
	// Err is the recoverable error of the last commit, if any.
	Err         error
	FieldErrors FieldErrors
	Exit        Exit
	// Stale is set once another writer has moved the stored session on.
	Stale bool
}

// Controller is the onboarding session controller.
type Controller struct {
	mu sync.Mutex

	restorer *Restorer
	protocol *Protocol
	accounts AccountFetcher
	auth     AuthSession
	notifier Notifier
	log      logging.Logger

	state   State
	seq     *Sequencer
	session *models.WizardSession
	// committed is the intake as of the last successful commit. session.Intake
	// also carries the draft of a commit that failed; only committed is saved.
	committed models.Intake
	// conflictFields are the step 2 fields held while the user decides on an
	// authorization conflict.
	conflictFields models.Intake

	inFlight     bool
	closed       bool
	lastErr      error
	fieldErrs    FieldErrors
	paymentToken string
	stale        bool
}

// ControllerDeps groups the collaborators of a Controller.
type ControllerDeps struct {
	Store     SessionStore
	Accounts  AccountAPI
	Payments  PaymentAuthorization
	Auth      AuthSession
	Images    ImageUploader
	Validator Validator
	Notifier  Notifier
	Logger    logging.Logger
	Tracer    trace.TracerProvider
}

// NewController wires a controller in the loading state. Dispatch RESTORE
// to mount it.
func NewController(d ControllerDeps) *Controller {
	log := d.Logger
	if log == nil {
		log = logging.Nop{}
	}
	n := d.Notifier
	if n == nil {
		n = discardNotifier{}
	}
	return &Controller{
		restorer: NewRestorer(d.Store, d.Auth, log),
		protocol: NewProtocol(ProtocolDeps{
			Accounts:  d.Accounts,
			Payments:  d.Payments,
			Images:    d.Images,
			Validator: d.Validator,
			Store:     d.Store,
			Logger:    log,
			Tracer:    d.Tracer,
		}),
		accounts: d.Accounts,
		auth:     d.Auth,
		notifier: n,
		log:      log,
		state:    StateLoading,
	}
}

// Close unmounts the controller. A commit still in flight is allowed to
// finish but its result is discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// View returns the current render snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Dispatch feeds one event into the state machine. Commit failures are not
// returned as errors: they are reported through View.Err and the Notifier.
// The returned error is reserved for events that are not allowed at all.
func (c *Controller) Dispatch(ctx context.Context, ev Event) (View, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return View{}, common.ErrClosed
	}

	var err error
	switch ev.Type {
	case EventRestore:
		err = c.restoreLocked(ctx, ev.Entry)
	case EventExpire:
		err = c.expireLocked(ctx)
	case EventSubmitStep:
		// releases and re-acquires the lock around the external call
		err = c.submitLocked(ctx, ev.Fields)
	case EventBack:
		err = c.backLocked()
	case EventPreparePayment:
		err = c.prepareLocked(ctx)
	case EventProceed:
		err = c.proceedLocked(ctx)
	case EventStartOver:
		err = c.startOverLocked(ctx, ev.Entry)
	case EventDismissError:
		c.lastErr = nil
		c.fieldErrs = nil
	default:
		err = fmt.Errorf("%w: unknown event %q", common.ErrInvalidTransition, ev.Type)
	}

	v := c.viewLocked()
	c.mu.Unlock()
	return v, err
}

func (c *Controller) viewLocked() View {
	v := View{
		State:       c.state,
		Pending:     c.inFlight,
		Err:         c.lastErr,
		FieldErrors: c.fieldErrs,
		Stale:       c.stale,
	}
	if c.session != nil {
		v.Role = c.session.Role
		v.Intake = c.session.Intake.Stripped()
		v.Offer = c.session.PurchaseContext
	}
	if c.seq != nil && !c.state.Terminal() {
		v.Step = c.seq.Current()
	}
	switch c.state {
	case StateExpired:
		v.Exit = ExitStartOver
	case StateAlreadyOnboarded, StateDone:
		v.Exit = ExitDashboard
	case StateAuthorizationConflict:
		v.Exit = ExitProceedOrBack
	}
	return v
}

func (c *Controller) restoreLocked(ctx context.Context, entry models.EntryContext) error {
	if c.state != StateLoading {
		return fmt.Errorf("%w: %s from %s", common.ErrInvalidTransition, EventRestore, c.state)
	}

	if AlreadyOnboarded(ctx, c.accounts, c.log) {
		c.enterOnboardedLocked(ctx)
		return nil
	}

	d, err := c.restorer.Restore(ctx, entry)
	if err != nil {
		return err
	}
	c.applyDecisionLocked(ctx, d)
	return nil
}

func (c *Controller) enterOnboardedLocked(ctx context.Context) {
	c.state = StateAlreadyOnboarded
	c.session = nil
	c.seq = nil
	if err := c.protocol.Finish(ctx); err != nil {
		c.log.Warn(ctx, "failed to clear session of onboarded account", "error", err)
	}
	c.notifier.Notify(ctx, Notice{Level: NoticeInfo, Code: NoticeOnboarded, Message: "Your account is already set up."})
}

func (c *Controller) applyDecisionLocked(ctx context.Context, d Decision) {
	switch d.Outcome {
	case OutcomeExpired:
		c.enterExpiredLocked(ctx)
	case OutcomeResume:
		c.session = d.Session
		c.committed = d.Session.Intake.Clone()
		c.seq = ResumeSequencer(d.Step)
		c.state = StateStep
		c.notifier.Notify(ctx, Notice{Level: NoticeInfo, Code: NoticeWelcomeBack, Message: "Welcome back! We saved your progress."})
	case OutcomeFreshStart:
		c.session = d.Session
		c.committed = d.Session.Intake.Clone()
		c.seq = NewSequencer(d.Step)
		c.state = StateStep
		c.stale = false
	}
	c.lastErr = nil
	c.fieldErrs = nil
	c.paymentToken = ""
	c.conflictFields = nil
}

func (c *Controller) enterExpiredLocked(ctx context.Context) {
	c.state = StateExpired
	c.seq = nil
	c.notifier.Notify(ctx, Notice{Level: NoticeWarning, Code: NoticeSessionExpired, Message: "Your onboarding session has expired. Please start over."})
}

func (c *Controller) expireLocked(ctx context.Context) error {
	if c.state != StateLoading {
		return fmt.Errorf("%w: %s from %s", common.ErrInvalidTransition, EventExpire, c.state)
	}
	c.enterExpiredLocked(ctx)
	return nil
}

func (c *Controller) backLocked() error {
	if c.inFlight {
		return common.ErrCommitInFlight
	}
	switch c.state {
	case StateStep:
		c.seq.Retreat()
	case StateAuthorizationConflict:
		c.state = StateStep
		c.conflictFields = nil
		c.seq.Retreat()
	default:
		return fmt.Errorf("%w: %s from %s", common.ErrInvalidTransition, EventBack, c.state)
	}
	c.lastErr = nil
	c.fieldErrs = nil
	c.paymentToken = ""
	return nil
}

func (c *Controller) submitLocked(ctx context.Context, fields map[string]any) error {
	if c.state != StateStep {
		return fmt.Errorf("%w: %s from %s", common.ErrInvalidTransition, EventSubmitStep, c.state)
	}
	if c.inFlight {
		return common.ErrCommitInFlight
	}

	step := c.seq.Current()
	c.fieldErrs = nil
	c.lastErr = nil

	if err := c.protocol.Validate(c.session, step, fields); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			c.fieldErrs = ve.Fields
		}
		c.lastErr = err
		return nil
	}

	c.protocol.Merge(c.session, fields)
	snapshot := c.session.Clone()
	token := c.paymentToken

	c.inFlight = true
	c.mu.Unlock()
	delta, err := c.protocol.Execute(ctx, snapshot, step, fields, token)
	c.mu.Lock()
	c.inFlight = false

	if c.closed {
		c.log.Info(ctx, "discarding commit result after close", "step", int(step))
		return nil
	}

	if err != nil {
		// server-derived values of a partial success, such as an uploaded
		// image URL, stay in the draft for the retry
		c.session.Intake.Merge(delta.Fields)
		c.failCommitLocked(ctx, err)
		return nil
	}

	if delta.Conflict {
		c.state = StateAuthorizationConflict
		c.conflictFields = stepValues(snapshot, step, fields)
		c.notifier.Notify(ctx, Notice{Level: NoticeInfo, Code: NoticeAlreadyPaid, Message: "Your payment was already authorized. Continue or go back."})
		return nil
	}

	c.completeStepLocked(ctx, step, stepValues(snapshot, step, fields), delta)
	return nil
}

func (c *Controller) prepareLocked(ctx context.Context) error {
	if c.state != StateStep || c.seq.Current() != models.StepAuthorization {
		return fmt.Errorf("%w: %s from %s", common.ErrInvalidTransition, EventPreparePayment, c.state)
	}
	if c.inFlight {
		return common.ErrCommitInFlight
	}

	snapshot := c.session.Clone()
	c.inFlight = true
	c.mu.Unlock()
	token, conflict, err := c.protocol.PrepareAuthorization(ctx, snapshot)
	c.mu.Lock()
	c.inFlight = false

	if c.closed {
		return nil
	}
	if err != nil {
		c.failCommitLocked(ctx, err)
		return nil
	}
	if conflict {
		c.state = StateAuthorizationConflict
		c.conflictFields = stepValues(snapshot, models.StepAuthorization, nil)
		c.notifier.Notify(ctx, Notice{Level: NoticeInfo, Code: NoticeAlreadyPaid, Message: "Your payment was already authorized. Continue or go back."})
		return nil
	}
	c.paymentToken = token
	return nil
}

func (c *Controller) proceedLocked(ctx context.Context) error {
	if c.state != StateAuthorizationConflict {
		return fmt.Errorf("%w: %s from %s", common.ErrInvalidTransition, EventProceed, c.state)
	}
	if c.inFlight {
		return common.ErrCommitInFlight
	}
	c.state = StateStep
	fields := c.conflictFields
	c.conflictFields = nil
	c.completeStepLocked(ctx, models.StepAuthorization, fields, Delta{})
	return nil
}

func (c *Controller) startOverLocked(ctx context.Context, entry models.EntryContext) error {
	switch c.state {
	case StateStep, StateAuthorizationConflict, StateExpired:
	default:
		return fmt.Errorf("%w: %s from %s", common.ErrInvalidTransition, EventStartOver, c.state)
	}
	if c.inFlight {
		return common.ErrCommitInFlight
	}

	role, pc := entry.Role, entry.Purchase
	if c.session != nil {
		if role == "" {
			role = c.session.Role
		}
		if !pc.Complete() {
			pc = c.session.PurchaseContext
		}
	}

	if !pc.Complete() || !role.Valid() {
		// Nothing to restart with: the visitor has to come back through a
		// plan selection.
		if err := c.protocol.Finish(ctx); err != nil {
			c.log.Warn(ctx, "failed to clear session on start over", "error", err)
		}
		if c.auth != nil {
			if err := c.auth.Invalidate(ctx); err != nil {
				c.log.Warn(ctx, "failed to invalidate auth session on start over", "error", err)
			}
		}
		c.session = nil
		c.enterExpiredLocked(ctx)
		return nil
	}

	d, err := c.restorer.StartFresh(ctx, role, pc)
	if err != nil {
		return err
	}
	c.applyDecisionLocked(ctx, d)
	return nil
}

func (c *Controller) failCommitLocked(ctx context.Context, err error) {
	c.lastErr = err
	c.paymentToken = ""

	code, msg := NoticeCommitFailed, "We couldn't save this step. Please check your details and try again."
	if errors.Is(err, common.ErrAuthorizationDeclined) {
		code, msg = NoticeDeclined, "Your payment method was declined. Please try another one."
	}
	c.log.Warn(ctx, "step commit failed", "step", int(c.seq.Current()), "error", err)
	c.notifier.Notify(ctx, Notice{Level: NoticeError, Code: code, Message: msg})
}

// completeStepLocked persists and advances after a successful commit of step.
// fields are the values the commit was made with.
func (c *Controller) completeStepLocked(ctx context.Context, step models.Step, fields models.Intake, delta Delta) {
	c.session.Intake.Merge(delta.Fields)
	if c.committed == nil {
		c.committed = models.Intake{}
	}
	c.committed.Merge(fields)
	c.committed.Merge(delta.Fields)
	c.paymentToken = ""
	c.lastErr = nil

	if step == models.LastStep {
		// a stale controller leaves the other writer's record alone
		if !c.stale {
			if err := c.protocol.Finish(ctx); err != nil {
				c.log.Warn(ctx, "failed to clear completed session", "error", err)
			}
		}
		c.state = StateDone
		c.notifier.Notify(ctx, Notice{Level: NoticeInfo, Code: NoticeCompleted, Message: "You're all set!"})
		c.log.Info(ctx, "onboarding completed", "session_id", c.session.ID, "role", c.session.Role)
		return
	}

	next := step + 1
	if !c.stale {
		durable := c.session.Clone()
		durable.Intake = c.committed.Clone()
		switch err := c.protocol.Persist(ctx, durable, next); {
		case err == nil:
			c.session.SavedAt = durable.SavedAt
			c.session.Version = durable.Version
		case errors.Is(err, common.ErrVersionConflict):
			c.stale = true
			c.log.Warn(ctx, "stored session was changed elsewhere; keeping it", "error", err)
			c.notifier.Notify(ctx, Notice{Level: NoticeWarning, Code: NoticeStaleSession,
				Message: "This onboarding continued in another window. Progress here will not be saved on this device."})
		default:
			c.log.Error(ctx, "failed to persist session", "error", err)
			c.notifier.Notify(ctx, Notice{Level: NoticeWarning, Code: NoticeProgressNotSave,
				Message: "Your step was saved, but progress could not be stored on this device."})
		}
	}

	c.session.Step = next
	// the sequencer is re-aligned to the committed step in case it differs
	c.seq = NewSequencer(step)
	c.seq.Advance()
}

// stepValues picks the values a commit of step was made with: the submitted
// fields plus the step's own inputs already held by sess. Uploads are left
// out; secrets are dropped later by Intake.Merge.
func stepValues(sess *models.WizardSession, step models.Step, fields map[string]any) models.Intake {
	out := models.Intake{}
	if d, ok := models.Definition(step); ok {
		for _, f := range d.Fields(sess.Role) {
			if v, ok := sess.Intake[f.Name]; ok {
				out[f.Name] = v
			}
		}
	}
	for k, v := range fields {
		if _, isUpload := v.(*models.ImageUpload); isUpload {
			continue
		}
		out[k] = v
	}
	return out
}
