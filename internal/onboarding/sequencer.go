package onboarding

import (
	"context"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/logging"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
)

// Sequencer owns the current step. It only moves forward after a successful
// commit and only backward on an explicit user "back".
type Sequencer struct {
	step models.Step
}

// NewSequencer starts at step, clamped into the pipeline.
func NewSequencer(step models.Step) *Sequencer {
	return &Sequencer{step: step.Clamp()}
}

// ResumeSequencer starts at the safe resume point for a persisted step.
func ResumeSequencer(persisted models.Step) *Sequencer {
	return &Sequencer{step: persisted.ResumePoint()}
}

// Current returns the active step.
func (s *Sequencer) Current() models.Step { return s.step }

// Advance moves one step forward, clamped at the last step.
func (s *Sequencer) Advance() models.Step {
	s.step = (s.step + 1).Clamp()
	return s.step
}

// Retreat moves one step back, clamped at the first step.
func (s *Sequencer) Retreat() models.Step {
	s.step = (s.step - 1).Clamp()
	return s.step
}

// AccountFetcher is the part of AccountAPI the gate needs.
type AccountFetcher interface {
	FetchCurrentAccount(ctx context.Context) (*models.AccountRecord, error)
}

// AlreadyOnboarded asks the backend once whether the current account has
// finished onboarding. Lookup failures are logged and treated as "not yet".
func AlreadyOnboarded(ctx context.Context, api AccountFetcher, log logging.Logger) bool {
	if api == nil {
		return false
	}
	acct, err := api.FetchCurrentAccount(ctx)
	if err != nil {
		log.Warn(ctx, "current account lookup failed", "error", err)
		return false
	}
	return acct != nil && acct.OnboardingComplete
}
