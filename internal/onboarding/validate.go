package onboarding

import (
	"bytes"
	"net/mail"
	"strings"
	"unicode"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
)

// Validator checks one step's values. Rule sets are owned by the front end;
// the controller only needs valid/invalid plus field errors.
type Validator interface {
	Validate(role models.Role, step models.Step, values map[string]any) FieldErrors
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(role models.Role, step models.Step, values map[string]any) FieldErrors

func (f ValidatorFunc) Validate(role models.Role, step models.Step, values map[string]any) FieldErrors {
	return f(role, step, values)
}

// MinPasswordLength is enforced by DefaultValidator.
const MinPasswordLength = 8

// DefaultValidator enforces required fields from the step definitions plus
// a few cross-field rules.
type DefaultValidator struct{}

func (DefaultValidator) Validate(role models.Role, step models.Step, values map[string]any) FieldErrors {
	errs := FieldErrors{}
	def, ok := models.Definition(step)
	if !ok {
		errs["step"] = "unknown step"
		return errs
	}

	for _, f := range def.Fields(role) {
		if !f.Required {
			continue
		}
		if f.Kind == models.FieldBool {
			if f.Name == models.FieldAgreedToTerms && !boolValue(values[f.Name]) {
				errs[f.Name] = "must be accepted"
			}
			continue
		}
		if isBlank(values[f.Name]) {
			errs[f.Name] = "is required"
		}
	}

	switch step {
	case models.StepProfile:
		if email := textValue(values[models.FieldEmail]); email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				errs[models.FieldEmail] = "is not a valid email address"
			}
		}
	case models.StepAuthorization:
		if abn := textValue(values[models.FieldABN]); abn != "" && !ValidABN(abn) {
			errs[models.FieldABN] = "is not a valid ABN"
		}
	case models.StepCredentials:
		pw := secretValue(values[models.FieldPassword])
		confirm := secretValue(values[models.FieldConfirmPassword])
		if len(pw) > 0 && len(pw) < MinPasswordLength {
			errs[models.FieldPassword] = "must be at least 8 characters"
		}
		if len(pw) > 0 && !bytes.Equal(pw, confirm) {
			errs[models.FieldConfirmPassword] = "does not match password"
		}
		if u := textValue(values[models.FieldUsername]); strings.ContainsFunc(u, unicode.IsSpace) {
			errs[models.FieldUsername] = "must not contain spaces"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

var abnWeights = [11]int{10, 1, 3, 5, 7, 9, 11, 13, 15, 17, 19}

// ValidABN checks an Australian Business Number: 11 digits, spaces allowed,
// weighted checksum divisible by 89 after subtracting 1 from the first digit.
func ValidABN(abn string) bool {
	digits := make([]int, 0, 11)
	for _, r := range abn {
		switch {
		case r == ' ':
			continue
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		default:
			return false
		}
	}
	if len(digits) != 11 {
		return false
	}
	digits[0]--
	sum := 0
	for i, d := range digits {
		sum += d * abnWeights[i]
	}
	return sum%89 == 0
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []byte:
		return len(t) == 0
	case *models.ImageUpload:
		return t == nil || len(t.Data) == 0
	default:
		return false
	}
}

func textValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	default:
		return ""
	}
}

func secretValue(v any) []byte {
	switch t := v.(type) {
	case []byte:
		return t
	case string:
		return []byte(t)
	default:
		return nil
	}
}

func boolValue(v any) bool {
	return models.Intake{"v": v}.Bool("v")
}
