// Package accountapi is the gRPC client of the account and payment
// backends used by the onboarding wizard.
//
// Messages are google.protobuf.Struct values so the client has no generated
// stubs; method names follow
//
//	/epiclinx.onboarding.v1.AccountService/<Method>
//	/epiclinx.billing.v1.PaymentService/<Method>
//
// The access token returned by RegisterProfile or SetCredentials is kept in
// memory and attached to every later call under the "access_token" metadata
// key. Transport errors are mapped to ErrUnavailable, ErrUnauthorized,
// ErrConflict and ErrRejected; payment outcomes are reported as
// models.AuthorizationResult values instead.
package accountapi
