// Package models holds the data model of the onboarding wizard: roles, the
// fixed step pipeline, purchase and entry contexts, the intake projection,
// the durable session and its storage record, and the remote account
// projection returned by the account API.
package models
