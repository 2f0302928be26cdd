package common

import "time"

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// DefaultSessionTTL is how long a stored onboarding session stays resumable.
const DefaultSessionTTL = 48 * time.Hour

// DefaultOrigin is the slot key used when no origin is configured.
const DefaultOrigin = "epiclinx.onboarding"
