package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known intake field names.
const (
	FieldEmail                = "email"
	FieldFirstName            = "firstName"
	FieldLastName             = "lastName"
	FieldCompanyName          = "companyName"
	FieldContactName          = "contactName"
	FieldProfileImage         = "profileImage"
	FieldProfileImageURL      = "profileImageUrl"
	FieldABN                  = "abn"
	FieldAuthorizationID      = "authorizationSessionId"
	FieldUsername             = "username"
	FieldPassword             = "password"
	FieldConfirmPassword      = "confirmPassword"
	FieldPaymentDetails       = "paymentDetails"
	FieldHeardAboutUs         = "heardAboutUs"
	FieldNotificationsEnabled = "notificationsEnabled"
	FieldAgreedToTerms        = "agreedToTerms"
)

// secretFields never enter the intake; they live only in step-local input.
var secretFields = map[string]struct{}{
	FieldPassword:        {},
	FieldConfirmPassword: {},
	FieldPaymentDetails:  {},
	"cardNumber":         {},
	"cardCvc":            {},
	"cardExpiry":         {},
}

// reservedFields are owned by the session envelope.
var reservedFields = map[string]struct{}{
	"role":            {},
	"purchaseContext": {},
}

// IsSecretField reports whether name must never be persisted.
func IsSecretField(name string) bool {
	_, ok := secretFields[name]
	if ok {
		return true
	}
	// catch variants such as "new_password" or "passwordConfirm"
	return strings.Contains(strings.ToLower(name), "password")
}

// Intake is the client-side projection of the account being built.
type Intake map[string]any

// Merge copies fields into in, skipping secrets and envelope keys.
func (in Intake) Merge(fields map[string]any) {
	for k, v := range fields {
		if IsSecretField(k) {
			continue
		}
		if _, ok := reservedFields[k]; ok {
			continue
		}
		in[k] = v
	}
}

// Stripped returns a copy without secret fields.
func (in Intake) Stripped() Intake {
	out := make(Intake, len(in))
	for k, v := range in {
		if IsSecretField(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy.
func (in Intake) Clone() Intake {
	out := make(Intake, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// String returns the field as text; non-string values are formatted.
func (in Intake) String(name string) string {
	v, ok := in[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool interprets the field as a boolean. Strings go through strconv.ParseBool
// plus "yes"/"y"; anything unparseable is false.
func (in Intake) Bool(name string) bool {
	switch v := in[name].(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if s == "yes" || s == "y" {
			return true
		}
		b, _ := strconv.ParseBool(s)
		return b
	default:
		return false
	}
}
