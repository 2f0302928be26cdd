package onboarding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/logging"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
)

func TestSequencer_Clamps(t *testing.T) {
	s := NewSequencer(models.StepProfile)
	assert.Equal(t, models.StepProfile, s.Retreat())
	assert.Equal(t, models.StepAuthorization, s.Advance())
	assert.Equal(t, models.StepCredentials, s.Advance())
	assert.Equal(t, models.StepPreferences, s.Advance())
	assert.Equal(t, models.StepPreferences, s.Advance(), "there is no step 5")
	assert.Equal(t, models.StepCredentials, s.Retreat())

	assert.Equal(t, models.StepPreferences, NewSequencer(9).Current())
	assert.Equal(t, models.StepProfile, NewSequencer(0).Current())
}

func TestResumeSequencer(t *testing.T) {
	assert.Equal(t, models.StepProfile, ResumeSequencer(models.StepAuthorization).Current())
	assert.Equal(t, models.StepCredentials, ResumeSequencer(models.StepCredentials).Current())
}

func TestAlreadyOnboarded(t *testing.T) {
	ctx := context.Background()
	log := logging.Nop{}

	assert.False(t, AlreadyOnboarded(ctx, nil, log))
	assert.False(t, AlreadyOnboarded(ctx, &fakeAccounts{}, log), "no account")
	assert.False(t, AlreadyOnboarded(ctx, &fakeAccounts{currentErr: errDown}, log), "lookup failure")
	assert.False(t, AlreadyOnboarded(ctx, &fakeAccounts{current: &models.AccountRecord{ID: "a"}}, log))
	assert.True(t, AlreadyOnboarded(ctx, &fakeAccounts{current: &models.AccountRecord{ID: "a", OnboardingComplete: true}}, log))

	api := &fakeAccounts{}
	AlreadyOnboarded(ctx, api, log)
	assert.Equal(t, []string{"FetchCurrentAccount"}, api.Calls())
}
