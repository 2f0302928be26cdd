package onboarding

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/common"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/storage/memory"
)

func TestDurableStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: testNow}
	slot := memory.NewSlot()
	st := newTestStore(slot, c)

	sess := models.NewSession(models.RoleCreator, testOffer)
	sess.Step = models.StepCredentials
	sess.Intake.Merge(creatorProfile())
	require.NoError(t, st.Save(ctx, sess))
	assert.Equal(t, testNow, sess.SavedAt)
	assert.Equal(t, int64(1), sess.Version)

	got, err := st.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, models.RoleCreator, got.Role)
	assert.Equal(t, models.StepCredentials, got.Step)
	assert.Equal(t, testOffer, got.PurchaseContext)
	assert.Equal(t, "Ana", got.Intake.String("firstName"))
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.SavedAt.Equal(testNow))
}

func TestDurableStore_RecordFormat(t *testing.T) {
	ctx := context.Background()
	slot := memory.NewSlot()
	st := newTestStore(slot, &clock{now: testNow})

	sess := models.NewSession(models.RoleBrand, testOffer)
	sess.Intake["companyName"] = "Acme"
	require.NoError(t, st.Save(ctx, sess))

	var rec map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(slot.Raw(testKey), &rec))
	assert.JSONEq(t, `1`, string(rec["stepIndex"]))
	assert.JSONEq(t, `1773133200000`, string(rec["savedAt"]))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec["session"], &body))
	assert.Equal(t, "brand", body["role"])
	assert.Equal(t, "Acme", body["companyName"])
	assert.Equal(t, map[string]any{
		"plan": "pro", "currency": "aud", "recurringInterval": "month", "trial": true,
	}, body["purchaseContext"])
}

func TestDurableStore_NeverPersistsSecrets(t *testing.T) {
	ctx := context.Background()
	slot := memory.NewSlot()
	st := newTestStore(slot, &clock{now: testNow})

	sess := models.NewSession(models.RoleCreator, testOffer)
	sess.Intake.Merge(creatorProfile())
	// bypass Merge to prove serialization strips again
	sess.Intake["password"] = "hunter22"
	sess.Intake["confirmPassword"] = "hunter22"
	sess.Intake["paymentDetails"] = "pm_card_visa"
	sess.Intake["cardNumber"] = "4242424242424242"
	sess.Intake["newPassword"] = "hunter33"
	require.NoError(t, st.Save(ctx, sess))

	raw := string(slot.Raw(testKey))
	for _, secret := range []string{"hunter22", "hunter33", "pm_card_visa", "4242424242424242", "assword", "cardNumber"} {
		assert.False(t, strings.Contains(raw, secret), "record leaks %q", secret)
	}
}

func TestDurableStore_SaveWithoutPurchaseContextIsNoop(t *testing.T) {
	ctx := context.Background()
	slot := &countingSlot{Slot: memory.NewSlot()}
	st := newTestStore(slot, &clock{now: testNow})

	sess := models.NewSession(models.RoleCreator, models.PurchaseContext{Plan: "pro", Currency: "aud"})
	require.NoError(t, st.Save(ctx, sess))
	assert.Zero(t, slot.Writes())
	assert.True(t, sess.SavedAt.IsZero())

	require.NoError(t, st.Save(ctx, nil))
	assert.Zero(t, slot.Writes())
}

func TestDurableStore_TTL(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: testNow}
	slot := memory.NewSlot()
	st := newTestStore(slot, c)
	assert.Equal(t, 48*time.Hour, st.TTL())

	storedSession(st, models.RoleCreator, models.StepProfile, nil)

	c.Advance(48 * time.Hour)
	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got, "exactly 48h old is still usable")

	c.Advance(time.Millisecond)
	got, err = st.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, slot.Raw(testKey), "expired record is deleted")
}

func TestDurableStore_CustomTTL(t *testing.T) {
	c := &clock{now: testNow}
	st := newTestStore(memory.NewSlot(), c, WithTTL(time.Hour))
	storedSession(st, models.RoleBrand, models.StepProfile, nil)

	c.Advance(61 * time.Minute)
	got, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDurableStore_DiscardsUnusableRecords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"no session body", `{"savedAt":1773133200000,"stepIndex":1}`},
		{"bad step", `{"savedAt":1773133200000,"stepIndex":7,"session":{"role":"creator","purchaseContext":{"plan":"pro","currency":"aud","recurringInterval":"month"}}}`},
		{"unknown role", `{"savedAt":1773133200000,"stepIndex":1,"session":{"role":"admin","purchaseContext":{"plan":"pro","currency":"aud","recurringInterval":"month"}}}`},
		{"incomplete purchase context", `{"savedAt":1773133200000,"stepIndex":3,"session":{"role":"creator","purchaseContext":{"plan":"pro"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := memory.NewSlot()
			slot.Put(testKey, []byte(tt.raw))
			st := newTestStore(slot, &clock{now: testNow})

			got, err := st.Load(context.Background())
			require.NoError(t, err)
			assert.Nil(t, got)
			assert.Nil(t, slot.Raw(testKey))
		})
	}
}

func TestDurableStore_ReadFailureFailsOpen(t *testing.T) {
	st := newTestStore(failingSlot{err: errDown}, &clock{now: testNow})

	got, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDurableStore_WriteFailureKeepsSavedAt(t *testing.T) {
	st := newTestStore(failingSlot{err: errDown}, &clock{now: testNow})

	sess := models.NewSession(models.RoleCreator, testOffer)
	err := st.Save(context.Background(), sess)
	require.ErrorIs(t, err, errDown)
	assert.True(t, sess.SavedAt.IsZero())
	assert.Zero(t, sess.Version)
}

func TestDurableStore_StaleWriteIsRejected(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: testNow}
	slot := memory.NewSlot()
	tabA := newTestStore(slot, c)
	tabB := newTestStore(slot, c)

	a := storedSession(tabA, models.RoleCreator, models.StepProfile, nil)

	b, err := tabB.Load(ctx)
	require.NoError(t, err)
	b.Step = models.StepCredentials
	require.NoError(t, tabB.Save(ctx, b))

	a.Step = models.StepAuthorization
	err = tabA.Save(ctx, a)
	require.ErrorIs(t, err, common.ErrVersionConflict)

	got, err := tabA.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StepCredentials, got.Step, "the newer write survives")
}

func TestDurableStore_StaleAfterFreshStartElsewhere(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: testNow}
	slot := memory.NewSlot()
	tabA := newTestStore(slot, c)
	tabB := newTestStore(slot, c)

	a := storedSession(tabA, models.RoleCreator, models.StepProfile, nil)

	require.NoError(t, tabB.Clear(ctx))
	storedSession(tabB, models.RoleBrand, models.StepProfile, nil)

	err := tabA.Save(ctx, a)
	require.ErrorIs(t, err, common.ErrVersionConflict)
}

func TestDurableStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	c := &clock{now: testNow}
	slot := memory.NewSlot()
	tabA := newTestStore(slot, c, WithLastWriteWins())
	tabB := newTestStore(slot, c, WithLastWriteWins())

	a := storedSession(tabA, models.RoleCreator, models.StepProfile, nil)
	b, err := tabB.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, tabB.Save(ctx, b))

	a.Step = models.StepCredentials
	require.NoError(t, tabA.Save(ctx, a))

	got, err := tabB.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StepCredentials, got.Step)
}

func TestDurableStore_Clear(t *testing.T) {
	ctx := context.Background()
	slot := memory.NewSlot()
	st := newTestStore(slot, &clock{now: testNow})
	storedSession(st, models.RoleCreator, models.StepProfile, nil)

	require.NoError(t, st.Clear(ctx))
	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.ErrorIs(t, newTestStore(failingSlot{err: errDown}, &clock{now: testNow}).Clear(ctx), errDown)
}
