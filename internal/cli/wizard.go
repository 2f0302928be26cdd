package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/onboarding/models"
	"github.com/Vishalvk2219/Epiclinx-sub000/internal/shared"
)

// readFile is a test seam for os.ReadFile.
var readFile = os.ReadFile

// ErrQuit is returned by Run when the user leaves before a terminal state.
var ErrQuit = errors.New("wizard aborted by user")

// Dispatcher is the part of onboarding.Controller the wizard drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev onboarding.Event) (onboarding.View, error)
}

// Wizard is the interactive terminal front end of the onboarding flow.
type Wizard struct {
	ctrl   Dispatcher
	reader *bufio.Reader
	out    io.Writer
}

func NewWizard(ctrl Dispatcher, in io.Reader, out io.Writer) *Wizard {
	return &Wizard{ctrl: ctrl, reader: bufio.NewReader(in), out: out}
}

// Run mounts the controller with entry and loops until the flow reaches a
// terminal state. The final view is returned; ErrQuit reports that the user
// left early.
func (w *Wizard) Run(ctx context.Context, entry models.EntryContext) (onboarding.View, error) {
	v, err := w.ctrl.Dispatch(ctx, onboarding.Event{Type: onboarding.EventRestore, Entry: entry})
	if err != nil {
		return v, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return v, err
		}

		var ev onboarding.Event
		var secrets [][]byte
		switch v.State {
		case onboarding.StateDone:
			fmt.Fprintln(w.out, "Onboarding complete. Opening your dashboard.")
			return v, nil
		case onboarding.StateAlreadyOnboarded:
			fmt.Fprintln(w.out, "This account is already onboarded. Opening your dashboard.")
			return v, nil
		case onboarding.StateExpired:
			again, err := GetYesNo(w.reader, "Start over?", false, w.out)
			if err != nil {
				return v, err
			}
			if !again {
				return v, nil
			}
			ev = onboarding.Event{Type: onboarding.EventStartOver, Entry: entry}
		case onboarding.StateAuthorizationConflict:
			ev, err = w.conflictChoice()
			if err != nil {
				return v, err
			}
		case onboarding.StateStep:
			ev, secrets, err = w.stepEvent(ctx, v)
			if err != nil {
				return v, err
			}
		default:
			return v, fmt.Errorf("unexpected wizard state %s", v.State)
		}

		next, err := w.ctrl.Dispatch(ctx, ev)
		shared.WipeAll(secrets...)
		if err != nil {
			return next, err
		}
		v = next

		if v.Err != nil {
			w.printErrors(v)
			if v, err = w.ctrl.Dispatch(ctx, onboarding.Event{Type: onboarding.EventDismissError}); err != nil {
				return v, err
			}
		}
	}
}

func (w *Wizard) conflictChoice() (onboarding.Event, error) {
	for {
		ans, err := GetSimpleText(w.reader, "Continue without paying again (p), or go back (b)?", w.out)
		if err != nil {
			return onboarding.Event{}, err
		}
		switch strings.ToLower(ans) {
		case "p", "proceed":
			return onboarding.Event{Type: onboarding.EventProceed}, nil
		case "b", "back":
			return onboarding.Event{Type: onboarding.EventBack}, nil
		}
	}
}

// stepEvent asks what to do on the current step and, when the user fills
// it in, collects its fields into a SUBMIT_STEP event.
func (w *Wizard) stepEvent(ctx context.Context, v onboarding.View) (onboarding.Event, [][]byte, error) {
	def, ok := models.Definition(v.Step)
	if !ok {
		return onboarding.Event{}, nil, fmt.Errorf("unknown step %d", v.Step)
	}
	fmt.Fprintf(w.out, "\nStep %d/%d: %s\n", v.Step, models.LastStep, def.Name)

	ans, err := GetSimpleText(w.reader, "[Enter] fill in, (b)ack, (s)tart over, (q)uit", w.out)
	if err != nil {
		return onboarding.Event{}, nil, err
	}
	switch strings.ToLower(ans) {
	case "b", "back":
		return onboarding.Event{Type: onboarding.EventBack}, nil, nil
	case "s", "start over":
		return onboarding.Event{Type: onboarding.EventStartOver}, nil, nil
	case "q", "quit":
		return onboarding.Event{}, nil, ErrQuit
	}

	if v.Step == models.StepAuthorization {
		pv, err := w.ctrl.Dispatch(ctx, onboarding.Event{Type: onboarding.EventPreparePayment})
		if err != nil {
			return onboarding.Event{}, nil, err
		}
		if pv.State != onboarding.StateStep {
			// conflict: let the main loop offer the choice
			return onboarding.Event{Type: onboarding.EventDismissError}, nil, nil
		}
	}

	fields, secrets, err := w.collect(def.Fields(v.Role), v.Intake)
	if err != nil {
		shared.WipeAll(secrets...)
		return onboarding.Event{}, nil, err
	}
	return onboarding.Event{Type: onboarding.EventSubmitStep, Fields: fields}, secrets, nil
}

// collect prompts for each field. A blank answer keeps the value already on
// file and is left out of the submission.
func (w *Wizard) collect(fields []models.Field, current models.Intake) (map[string]any, [][]byte, error) {
	out := make(map[string]any, len(fields))
	var secrets [][]byte
	for _, f := range fields {
		label := f.Label
		if f.Required {
			label += " *"
		}

		switch f.Kind {
		case models.FieldSecret:
			pw, err := GetPassword(label, w.out)
			if err != nil {
				return nil, secrets, err
			}
			secrets = append(secrets, pw)
			out[f.Name] = pw

		case models.FieldBool:
			val, err := GetYesNo(w.reader, label, current.Bool(f.Name), w.out)
			if err != nil {
				return nil, secrets, err
			}
			out[f.Name] = val

		case models.FieldFile:
			p, err := GetSimpleText(w.reader, label+" (blank to skip)", w.out)
			if err != nil {
				return nil, secrets, err
			}
			if p == "" {
				continue
			}
			data, err := readFile(p)
			if err != nil {
				fmt.Fprintf(w.out, "Cannot read %s: %v\n", p, err)
				continue
			}
			out[f.Name] = &models.ImageUpload{Name: filepath.Base(p), Data: data}

		default:
			prompt := label
			if cur := current.String(f.Name); cur != "" {
				prompt += fmt.Sprintf(" [%s]", cur)
			}
			s, err := GetSimpleText(w.reader, prompt, w.out)
			if err != nil {
				return nil, secrets, err
			}
			if s != "" {
				out[f.Name] = s
			}
		}
	}
	return out, secrets, nil
}

func (w *Wizard) printErrors(v onboarding.View) {
	if len(v.FieldErrors) == 0 {
		fmt.Fprintf(w.out, "Error: %v\n", v.Err)
		return
	}
	names := make([]string, 0, len(v.FieldErrors))
	for k := range v.FieldErrors {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w.out, "  %s %s\n", k, v.FieldErrors[k])
	}
}
