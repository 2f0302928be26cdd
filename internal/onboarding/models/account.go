package models

// AccountRecord is the wizard's view of the remote, authoritative account.
type AccountRecord struct {
	ID                 string
	Email              string
	Role               Role
	Username           string
	AuthorizationID    string
	OnboardingComplete bool

	// AccessToken is set when the backend opens an authenticated API session
	// for the account (after registration or credential setup).
	AccessToken string
}

// ProfilePayload is the step 1 mutation input.
type ProfilePayload struct {
	Role   Role
	Email  string
	Fields Intake
}

// AuthorizationRequest keys the pending payment authorization context.
type AuthorizationRequest struct {
	Email             string
	Plan              string
	Currency          string
	RecurringInterval string
	Trial             bool
}

// NewAuthorizationRequest builds a request from a session.
func NewAuthorizationRequest(email string, pc PurchaseContext) AuthorizationRequest {
	return AuthorizationRequest{
		Email:             email,
		Plan:              pc.Plan,
		Currency:          pc.Currency,
		RecurringInterval: pc.RecurringInterval,
		Trial:             pc.Trial,
	}
}

// AuthorizationKind tags the outcome of a payment capability call.
type AuthorizationKind int

const (
	AuthorizationSuccess AuthorizationKind = iota
	AuthorizationConflict
	AuthorizationDeclined
	AuthorizationError
)

func (k AuthorizationKind) String() string {
	switch k {
	case AuthorizationSuccess:
		return "success"
	case AuthorizationConflict:
		return "conflict"
	case AuthorizationDeclined:
		return "declined"
	default:
		return "error"
	}
}

// AuthorizationResult is the tagged result of CreateContext and Confirm.
//
// CreateContext: Success carries Token; Conflict means the payment was
// already authorized in an earlier attempt.
// Confirm: Success carries SessionID; Declined carries Message.
type AuthorizationResult struct {
	Kind      AuthorizationKind
	Token     string
	SessionID string
	Message   string
	Err       error
}

// PreferencesPayload is the step 4 mutation input.
type PreferencesPayload struct {
	Email                string
	HeardAboutUs         string
	NotificationsEnabled bool
	AgreedToTerms        bool
}

// ImageUpload is a file picked on the profile step. It is uploaded before
// the profile commit and never stored in the intake; only the resulting URL is.
type ImageUpload struct {
	Name        string
	ContentType string
	Data        []byte
}
