package onboarding

import (
	"context"
	"errors"
	"fmt"
	"path"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/logging"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/shared"
)

const tracerName = "github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding"

// Delta is what a successful commit adds to the session.
type Delta struct {
	Account *models.AccountRecord
	// Fields are server-derived intake values (account id, image URL,
	// authorization reference).
	Fields models.Intake
	// Conflict is set when step 2 found the payment already authorized.
	Conflict bool
}

// Protocol is the step commit protocol.
type Protocol struct {
	accounts  AccountAPI
	payments  PaymentAuthorization
	images    ImageUploader
	validator Validator
	store     SessionStore
	log       logging.Logger
	tracer    trace.Tracer
}

// ProtocolDeps groups the collaborators of a Protocol. Images and Validator
// are optional.
type ProtocolDeps struct {
	Accounts  AccountAPI
	Payments  PaymentAuthorization
	Images    ImageUploader
	Validator Validator
	Store     SessionStore
	Logger    logging.Logger
	// Tracer defaults to the global provider.
	Tracer trace.TracerProvider
}

func NewProtocol(d ProtocolDeps) *Protocol {
	p := &Protocol{
		accounts:  d.Accounts,
		payments:  d.Payments,
		images:    d.Images,
		validator: d.Validator,
		store:     d.Store,
		log:       d.Logger,
	}
	if d.Tracer != nil {
		p.tracer = d.Tracer.Tracer(tracerName)
	} else {
		p.tracer = otel.Tracer(tracerName)
	}
	if p.validator == nil {
		p.validator = DefaultValidator{}
	}
	if p.log == nil {
		p.log = logging.Nop{}
	}
	return p
}

// Validate checks fields on top of what the intake already holds, so
// pre-filled values count as present.
func (p *Protocol) Validate(sess *models.WizardSession, step models.Step, fields map[string]any) error {
	values := make(map[string]any, len(sess.Intake)+len(fields))
	for k, v := range sess.Intake {
		values[k] = v
	}
	for k, v := range fields {
		values[k] = v
	}
	if errs := p.validator.Validate(sess.Role, step, values); len(errs) > 0 {
		return &ValidationError{Step: step, Fields: errs}
	}
	return nil
}

// Merge applies edited fields to the in-memory session. Secrets and file
// uploads are dropped; nothing is persisted here.
func (p *Protocol) Merge(sess *models.WizardSession, fields map[string]any) {
	plain := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, isUpload := v.(*models.ImageUpload); isUpload {
			continue
		}
		plain[k] = v
	}
	sess.Intake.Merge(plain)
}

// Execute runs the single external mutation of step against sess. token is
// a payment context prepared earlier for step 2, or empty. On failure the
// returned Delta may still carry server-derived fields of a partial success.
func (p *Protocol) Execute(ctx context.Context, sess *models.WizardSession, step models.Step, fields map[string]any, token string) (d Delta, err error) {
	ctx, span := p.tracer.Start(ctx, "onboarding.commit",
		trace.WithAttributes(
			attribute.Int("onboarding.step", int(step)),
			attribute.String("onboarding.role", string(sess.Role)),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	switch step {
	case models.StepProfile:
		return p.registerProfile(ctx, sess, fields)
	case models.StepAuthorization:
		return p.authorize(ctx, sess, fields, token)
	case models.StepCredentials:
		return p.setCredentials(ctx, sess, fields)
	case models.StepPreferences:
		return p.finalize(ctx, sess)
	default:
		return Delta{}, &CommitError{Step: step, Op: "commit", Err: fmt.Errorf("unknown step %d", step)}
	}
}

// Persist saves a snapshot of sess positioned at next. On success the
// in-memory session picks up the new SavedAt and Version.
func (p *Protocol) Persist(ctx context.Context, sess *models.WizardSession, next models.Step) error {
	snap := sess.Clone()
	snap.Step = next
	if err := p.store.Save(ctx, snap); err != nil {
		return err
	}
	sess.SavedAt = snap.SavedAt
	sess.Version = snap.Version
	return nil
}

// Finish removes the stored session once onboarding is complete.
func (p *Protocol) Finish(ctx context.Context) error {
	return p.store.Clear(ctx)
}

// PrepareAuthorization runs phase (a) of step 2 on its own so a checkout
// widget can be shown before the user confirms.
func (p *Protocol) PrepareAuthorization(ctx context.Context, sess *models.WizardSession) (token string, conflict bool, err error) {
	email := sess.Email()
	if email == "" {
		return "", false, &CommitError{Step: models.StepAuthorization, Op: "CreateAuthorizationContext", Err: errors.New("profile email missing")}
	}

	res := p.payments.CreateContext(ctx, models.NewAuthorizationRequest(email, sess.PurchaseContext))
	switch res.Kind {
	case models.AuthorizationSuccess:
		return res.Token, false, nil
	case models.AuthorizationConflict:
		p.log.Info(ctx, "payment already authorized", "email", email)
		return "", true, nil
	case models.AuthorizationDeclined:
		return "", false, &CommitError{Step: models.StepAuthorization, Kind: CommitDeclined, Op: "CreateAuthorizationContext", Err: resultErr(res)}
	default:
		return "", false, &CommitError{Step: models.StepAuthorization, Op: "CreateAuthorizationContext", Err: resultErr(res)}
	}
}

func (p *Protocol) registerProfile(ctx context.Context, sess *models.WizardSession, fields map[string]any) (Delta, error) {
	delta := Delta{Fields: models.Intake{}}

	if img, ok := fields[models.FieldProfileImage].(*models.ImageUpload); ok && img != nil && len(img.Data) > 0 {
		if p.images == nil {
			return Delta{}, &CommitError{Step: models.StepProfile, Op: "UploadImage", Err: errors.New("image uploads are not configured")}
		}
		key := path.Join("profiles", string(sess.Role), sess.ID, path.Base(img.Name))
		url, err := p.images.Upload(ctx, key, img)
		if err != nil {
			return Delta{}, &CommitError{Step: models.StepProfile, Op: "UploadImage", Err: err}
		}
		delta.Fields[models.FieldProfileImageURL] = url
	} else if url := sess.Intake.String(models.FieldProfileImageURL); url != "" {
		// uploaded by an earlier attempt
		delta.Fields[models.FieldProfileImageURL] = url
	}

	profile := sess.Intake.Stripped()
	for k, v := range delta.Fields {
		profile[k] = v
	}

	acct, err := p.accounts.RegisterProfile(ctx, models.ProfilePayload{
		Role:   sess.Role,
		Email:  sess.Email(),
		Fields: profile,
	})
	if err != nil {
		// the upload is kept so a retry does not need the file again
		return Delta{Fields: delta.Fields}, &CommitError{Step: models.StepProfile, Op: "RegisterProfile", Err: err}
	}
	if acct != nil && acct.ID != "" {
		delta.Fields["accountId"] = acct.ID
	}
	delta.Account = acct
	return delta, nil
}

func (p *Protocol) authorize(ctx context.Context, sess *models.WizardSession, fields map[string]any, token string) (Delta, error) {
	email := sess.Email()

	if token == "" {
		t, conflict, err := p.PrepareAuthorization(ctx, sess)
		if err != nil {
			return Delta{}, err
		}
		if conflict {
			return Delta{Conflict: true}, nil
		}
		token = t
	}

	details := textValue(fields[models.FieldPaymentDetails])
	res := p.payments.Confirm(ctx, token, details)
	switch res.Kind {
	case models.AuthorizationSuccess:
	case models.AuthorizationDeclined:
		return Delta{}, &CommitError{Step: models.StepAuthorization, Kind: CommitDeclined, Op: "ConfirmAuthorization", Err: resultErr(res)}
	default:
		return Delta{}, &CommitError{Step: models.StepAuthorization, Op: "ConfirmAuthorization", Err: resultErr(res)}
	}

	abn := sess.Intake.String(models.FieldABN)
	acct, err := p.accounts.RecordAuthorization(ctx, email, res.SessionID, abn)
	if err != nil {
		return Delta{}, &CommitError{Step: models.StepAuthorization, Op: "RecordAuthorization", Err: err}
	}

	return Delta{
		Account: acct,
		Fields:  models.Intake{models.FieldAuthorizationID: res.SessionID},
	}, nil
}

func (p *Protocol) setCredentials(ctx context.Context, sess *models.WizardSession, fields map[string]any) (Delta, error) {
	password := append([]byte(nil), secretValue(fields[models.FieldPassword])...)
	defer shared.WipeByteArray(password)

	acct, err := p.accounts.SetCredentials(ctx, sess.Email(), sess.Intake.String(models.FieldUsername), password)
	if err != nil {
		return Delta{}, &CommitError{Step: models.StepCredentials, Op: "SetCredentials", Err: err}
	}
	return Delta{Account: acct}, nil
}

func (p *Protocol) finalize(ctx context.Context, sess *models.WizardSession) (Delta, error) {
	acct, err := p.accounts.FinalizePreferences(ctx, models.PreferencesPayload{
		Email:                sess.Email(),
		HeardAboutUs:         sess.Intake.String(models.FieldHeardAboutUs),
		NotificationsEnabled: sess.Intake.Bool(models.FieldNotificationsEnabled),
		AgreedToTerms:        sess.Intake.Bool(models.FieldAgreedToTerms),
	})
	if err != nil {
		return Delta{}, &CommitError{Step: models.StepPreferences, Op: "FinalizePreferences", Err: err}
	}
	return Delta{Account: acct}, nil
}

func resultErr(res models.AuthorizationResult) error {
	if res.Err != nil {
		return res.Err
	}
	if res.Message != "" {
		return errors.New(res.Message)
	}
	return fmt.Errorf("authorization %s", res.Kind)
}
