// Package cli runs the onboarding wizard in a terminal.
//
// A Wizard drives an onboarding.Controller: it dispatches RESTORE with the
// entry context, prompts for the fields of the current step, submits them
// and renders the resulting view until a terminal state is reached or the
// user quits. Secrets are read without echo and wiped after each submit.
package cli
