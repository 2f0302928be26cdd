// Package onboarding implements the resumable onboarding session controller.
//
// # Components
//
//  1. DurableStore: one serialized WizardSession per origin slot, with a
//     time-to-live, secret stripping and stale-write detection.
//  2. Restorer: decides once at mount between a fresh start, resuming a
//     stored session, or the terminal expired state.
//  3. Sequencer: the bounded 1..4 step index and the already-onboarded gate.
//  4. Protocol: the per-step commit. It validates and merges the fields,
//     calls exactly one external mutation, and persists only on success.
//
// Controller ties them together as a finite-state machine with a single
// Dispatch entry point. Network-facing collaborators (AccountAPI,
// PaymentAuthorization, AuthSession, ImageUploader) are injected as
// interfaces.
package onboarding
