package onboarding

import "context"

// NoticeLevel grades a user-facing notice.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarning
	NoticeError
)

// NoticeCode identifies the condition behind a notice.
type NoticeCode string

const (
	NoticeWelcomeBack     NoticeCode = "welcome_back"
	NoticeCommitFailed    NoticeCode = "commit_failed"
	NoticeDeclined        NoticeCode = "authorization_declined"
	NoticeAlreadyPaid     NoticeCode = "authorization_conflict"
	NoticeStaleSession    NoticeCode = "stale_session"
	NoticeProgressNotSave NoticeCode = "progress_not_saved"
	NoticeSessionExpired  NoticeCode = "session_expired"
	NoticeOnboarded       NoticeCode = "already_onboarded"
	NoticeCompleted       NoticeCode = "onboarding_completed"
)

// Notice is a dismissible, non-fatal message for the user.
type Notice struct {
	Level   NoticeLevel
	Code    NoticeCode
	Message string
}

// Notifier presents notices (toasts, CLI lines).
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, Notice) {}
