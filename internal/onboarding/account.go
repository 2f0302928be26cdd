package onboarding

import (
	"context"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
)

// AccountAPI is the remote account-management backend. Mutations are
// assumed idempotent per email on the backend side.
type AccountAPI interface {
	RegisterProfile(ctx context.Context, payload models.ProfilePayload) (*models.AccountRecord, error)
	RecordAuthorization(ctx context.Context, email, authorizationSessionID, abn string) (*models.AccountRecord, error)
	SetCredentials(ctx context.Context, email, username string, password []byte) (*models.AccountRecord, error)
	FinalizePreferences(ctx context.Context, payload models.PreferencesPayload) (*models.AccountRecord, error)
	// FetchCurrentAccount returns (nil, nil) when there is no account yet.
	FetchCurrentAccount(ctx context.Context) (*models.AccountRecord, error)
}

// PaymentAuthorization is the two-phase payment capability used by step 2.
type PaymentAuthorization interface {
	CreateContext(ctx context.Context, req models.AuthorizationRequest) models.AuthorizationResult
	Confirm(ctx context.Context, token string, paymentDetails string) models.AuthorizationResult
}

// AuthSession drops whatever authenticated API session a previous attempt
// left behind.
type AuthSession interface {
	Invalidate(ctx context.Context) error
}

// ImageUploader stores a profile image or business logo and returns its URL.
type ImageUploader interface {
	Upload(ctx context.Context, key string, img *models.ImageUpload) (string, error)
}
