package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// PurchaseContext identifies the subscription offer being onboarded into.
type PurchaseContext struct {
	Plan              string `json:"plan"`
	Currency          string `json:"currency"`
	RecurringInterval string `json:"recurringInterval"`
	Trial             bool   `json:"trial"`
}

// Complete reports whether plan, currency and interval are all present.
// Sessions with an incomplete context are never written to storage.
func (p PurchaseContext) Complete() bool {
	return p.Plan != "" && p.Currency != "" && p.RecurringInterval != ""
}

// Equal compares two contexts field by field.
func (p PurchaseContext) Equal(o PurchaseContext) bool {
	return p == o
}

func (p PurchaseContext) String() string {
	s := fmt.Sprintf("%s/%s/%s", p.Plan, p.Currency, p.RecurringInterval)
	if p.Trial {
		s += " (trial)"
	}
	return s
}

// EntryContext is the set of parameters the wizard was entered with.
type EntryContext struct {
	Role     Role
	Purchase PurchaseContext
}

// HasPurchaseIntent reports whether the entry carries a complete new-purchase
// intent (plan, currency and recurring interval all present).
func (e EntryContext) HasPurchaseIntent() bool {
	return e.Purchase.Complete()
}

// Entry query parameter names.
const (
	ParamRole              = "role"
	ParamPlan              = "plan"
	ParamCurrency          = "currency"
	ParamRecurringInterval = "recurring_interval"
	ParamTrial             = "trial"
)

// ParseEntryQuery builds an EntryContext from URL query values, e.g.
// "role=creator&plan=pro&currency=usd&recurring_interval=month&trial=true".
func ParseEntryQuery(q url.Values) (EntryContext, error) {
	role, err := ParseRole(q.Get(ParamRole))
	if err != nil {
		return EntryContext{}, err
	}

	trial := false
	if raw := strings.TrimSpace(q.Get(ParamTrial)); raw != "" {
		trial, err = strconv.ParseBool(raw)
		if err != nil {
			return EntryContext{}, fmt.Errorf("invalid %s value %q: %w", ParamTrial, raw, err)
		}
	}

	return EntryContext{
		Role: role,
		Purchase: PurchaseContext{
			Plan:              strings.ToLower(strings.TrimSpace(q.Get(ParamPlan))),
			Currency:          strings.ToLower(strings.TrimSpace(q.Get(ParamCurrency))),
			RecurringInterval: strings.ToLower(strings.TrimSpace(q.Get(ParamRecurringInterval))),
			Trial:             trial,
		},
	}, nil
}

// ParseEntryURL parses the query part of a raw entry URL.
func ParseEntryURL(raw string) (EntryContext, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return EntryContext{}, fmt.Errorf("parse entry url: %w", err)
	}
	return ParseEntryQuery(u.Query())
}
