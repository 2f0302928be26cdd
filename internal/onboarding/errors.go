package onboarding

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/common"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
)

// FieldErrors maps a field name to a human-readable problem.
type FieldErrors map[string]string

// ValidationError blocks a commit before anything leaves the client.
type ValidationError struct {
	Step   models.Step
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return fmt.Sprintf("step %s: invalid fields: %s", e.Step, strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error { return common.ErrValidation }

// CommitKind separates payment declines from other commit failures.
type CommitKind int

const (
	CommitFailed CommitKind = iota
	CommitDeclined
)

// CommitError is a failed or rejected external mutation. The step does not
// advance and nothing is persisted; the user may correct and retry.
type CommitError struct {
	Step models.Step
	Kind CommitKind
	Op   string
	Err  error
}

func (e *CommitError) Error() string {
	if e.Kind == CommitDeclined {
		return fmt.Sprintf("step %s: %s: payment authorization declined: %v", e.Step, e.Op, e.Err)
	}
	return fmt.Sprintf("step %s: %s: %v", e.Step, e.Op, e.Err)
}

func (e *CommitError) Unwrap() []error {
	errs := []error{common.ErrCommit}
	if e.Kind == CommitDeclined {
		errs = append(errs, common.ErrAuthorizationDeclined)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
