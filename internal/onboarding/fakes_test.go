package onboarding

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/storage/memory"
)

const testKey = "epiclinx.test"

var (
	testOffer  = models.PurchaseContext{Plan: "pro", Currency: "aud", RecurringInterval: "month", Trial: true}
	otherOffer = models.PurchaseContext{Plan: "starter", Currency: "aud", RecurringInterval: "year"}

	testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	errDown = errors.New("backend down")
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(slot Slot, c *clock, opts ...StoreOption) *DurableStore {
	opts = append([]StoreOption{WithClock(c.Now)}, opts...)
	return NewDurableStore(slot, testKey, opts...)
}

// failingSlot fails every operation.
type failingSlot struct{ err error }

func (f failingSlot) Read(context.Context, string) ([]byte, int64, error) { return nil, 0, f.err }
func (f failingSlot) Write(context.Context, string, []byte, int64) (int64, error) {
	return 0, f.err
}
func (f failingSlot) Delete(context.Context, string) error { return f.err }

// countingSlot wraps a memory slot and counts writes.
type countingSlot struct {
	*memory.Slot
	mu     sync.Mutex
	writes int
	fail   error
}

func (c *countingSlot) Write(ctx context.Context, key string, data []byte, expected int64) (int64, error) {
	c.mu.Lock()
	c.writes++
	fail := c.fail
	c.mu.Unlock()
	if fail != nil {
		return 0, fail
	}
	return c.Slot.Write(ctx, key, data, expected)
}

func (c *countingSlot) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

type fakeAccounts struct {
	mu sync.Mutex

	calls []string

	current    *models.AccountRecord
	currentErr error

	registerErr error
	recordErr   error
	credsErr    error
	finalizeErr error

	profiles    []models.ProfilePayload
	recorded    []string
	usernames   []string
	passwords   []string
	preferences []models.PreferencesPayload

	// block, when set, is waited on inside every mutation.
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeAccounts) enter(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
}

func (f *fakeAccounts) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAccounts) RegisterProfile(_ context.Context, p models.ProfilePayload) (*models.AccountRecord, error) {
	f.enter("RegisterProfile")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.profiles = append(f.profiles, p)
	return &models.AccountRecord{ID: "acct-1", Email: p.Email, Role: p.Role}, nil
}

func (f *fakeAccounts) RecordAuthorization(_ context.Context, email, id, abn string) (*models.AccountRecord, error) {
	f.enter("RecordAuthorization")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	f.recorded = append(f.recorded, id+"|"+abn)
	return &models.AccountRecord{ID: "acct-1", Email: email, AuthorizationID: id}, nil
}

func (f *fakeAccounts) SetCredentials(_ context.Context, email, username string, password []byte) (*models.AccountRecord, error) {
	f.enter("SetCredentials")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.credsErr != nil {
		return nil, f.credsErr
	}
	f.usernames = append(f.usernames, username)
	f.passwords = append(f.passwords, string(password))
	return &models.AccountRecord{ID: "acct-1", Email: email, Username: username}, nil
}

func (f *fakeAccounts) FinalizePreferences(_ context.Context, p models.PreferencesPayload) (*models.AccountRecord, error) {
	f.enter("FinalizePreferences")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	f.preferences = append(f.preferences, p)
	return &models.AccountRecord{ID: "acct-1", Email: p.Email, OnboardingComplete: true}, nil
}

func (f *fakeAccounts) FetchCurrentAccount(context.Context) (*models.AccountRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "FetchCurrentAccount")
	return f.current, f.currentErr
}

type fakePayments struct {
	mu sync.Mutex

	create  models.AuthorizationResult
	confirm models.AuthorizationResult

	creates  []models.AuthorizationRequest
	confirms []string
}

func newFakePayments() *fakePayments {
	return &fakePayments{
		create:  models.AuthorizationResult{Kind: models.AuthorizationSuccess, Token: "seti_secret"},
		confirm: models.AuthorizationResult{Kind: models.AuthorizationSuccess, SessionID: "auth-1"},
	}
}

func (f *fakePayments) CreateContext(_ context.Context, req models.AuthorizationRequest) models.AuthorizationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, req)
	return f.create
}

func (f *fakePayments) Confirm(_ context.Context, token, details string) models.AuthorizationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms = append(f.confirms, token+"|"+details)
	return f.confirm
}

type fakeAuth struct {
	mu    sync.Mutex
	count int
}

func (f *fakeAuth) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return nil
}

func (f *fakeAuth) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

type fakeImages struct {
	keys []string
	err  error
}

func (f *fakeImages) Upload(_ context.Context, key string, _ *models.ImageUpload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

type recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) Codes() []NoticeCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]NoticeCode, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Code)
	}
	return out
}

func (r *recorder) Has(code NoticeCode) bool {
	for _, c := range r.Codes() {
		if c == code {
			return true
		}
	}
	return false
}

func creatorProfile() map[string]any {
	return map[string]any{
		"firstName":   "Ana",
		"lastName":    "Silva",
		"email":       "ana@example.com",
		"displayName": "ana.creates",
		"niche":       "travel",
	}
}

func authorizationInput() map[string]any {
	return map[string]any{
		"abn":            "51 824 753 556",
		"paymentDetails": "pm_card_visa",
	}
}

func credentialsInput() map[string]any {
	return map[string]any{
		"username":        "ana",
		"password":        "correct-horse",
		"confirmPassword": "correct-horse",
	}
}

func preferencesInput() map[string]any {
	return map[string]any{
		"heardAboutUs":         "podcast",
		"notificationsEnabled": true,
		"agreedToTerms":        true,
	}
}

// storedSession plants a session at step through st.
func storedSession(st SessionStore, role models.Role, step models.Step, intake models.Intake) *models.WizardSession {
	s := models.NewSession(role, testOffer)
	s.Step = step
	s.Intake.Merge(intake)
	if err := st.Save(context.Background(), s); err != nil {
		panic(err)
	}
	return s
}
