package accountapi

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/common"
)

// tokenStore holds the access token of the authenticated API session.
type tokenStore struct {
	mu     sync.Mutex
	access string
	now    func() time.Time
}

func (t *tokenStore) set(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.access = token
}

func (t *tokenStore) clear() {
	t.set("")
}

// get returns the token if there is one that is not known to be expired.
// An expired token is dropped.
func (t *tokenStore) get() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.access == "" {
		return "", nil
	}
	exp, err := tokenExpiry(t.access)
	if err != nil {
		// opaque tokens are passed through as they are
		return t.access, nil
	}
	if !exp.IsZero() && !t.now().Before(exp) {
		t.access = ""
		return "", common.ErrTokenExpired
	}
	return t.access, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client never holds the signing key and only uses it to avoid sending a
// token the server would refuse anyway.
func tokenExpiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, common.ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
