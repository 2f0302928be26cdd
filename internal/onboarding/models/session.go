package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WizardSession is the durable, resumable snapshot of wizard progress.
type WizardSession struct {
	ID              string
	Role            Role
	Step            Step
	Intake          Intake
	PurchaseContext PurchaseContext
	SavedAt         time.Time

	// Version is the slot version this copy was read at or last written as.
	// It is owned by the store and not part of the serialized record.
	Version int64
}

// NewSession starts an empty session at the first step.
func NewSession(role Role, pc PurchaseContext) *WizardSession {
	return &WizardSession{
		ID:              NewSessionID(),
		Role:            role,
		Step:            FirstStep,
		Intake:          Intake{},
		PurchaseContext: pc,
	}
}

// NewSessionID returns a random identifier for a wizard run.
func NewSessionID() string {
	return uuid.NewString()
}

// Expired reports whether the session is older than ttl at now.
func (s *WizardSession) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.SavedAt) > ttl
}

// Clone returns a copy whose intake can be modified independently.
func (s *WizardSession) Clone() *WizardSession {
	c := *s
	c.Intake = s.Intake.Clone()
	return &c
}

// Email is the addressing key of the remote account record.
func (s *WizardSession) Email() string {
	return s.Intake.String(FieldEmail)
}

// Record is the serialized form of a session stored in a slot:
//
//	{"savedAt": <epoch-ms>, "stepIndex": 1..4, "sessionId": "...",
//	 "session": {"role": "...", ...intake, "purchaseContext": {...}}}
type Record struct {
	SavedAt   int64           `json:"savedAt"`
	StepIndex int             `json:"stepIndex"`
	SessionID string          `json:"sessionId,omitempty"`
	Session   json.RawMessage `json:"session"`
}

var ErrMalformedRecord = errors.New("malformed session record")

// EncodeRecord serializes s with secret fields stripped.
func EncodeRecord(s *WizardSession) ([]byte, error) {
	body := make(map[string]any, len(s.Intake)+2)
	for k, v := range s.Intake.Stripped() {
		body[k] = v
	}
	body["role"] = s.Role
	body["purchaseContext"] = s.PurchaseContext

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}

	return json.Marshal(Record{
		SavedAt:   s.SavedAt.UnixMilli(),
		StepIndex: int(s.Step),
		SessionID: s.ID,
		Session:   raw,
	})
}

// DecodeRecord parses a stored record. A record without a session body,
// an unknown role or an out-of-range step is malformed.
func DecodeRecord(data []byte) (*WizardSession, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if len(rec.Session) == 0 {
		return nil, fmt.Errorf("%w: missing session", ErrMalformedRecord)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Session, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	s := &WizardSession{
		ID:      rec.SessionID,
		Step:    Step(rec.StepIndex),
		SavedAt: time.UnixMilli(rec.SavedAt),
		Intake:  Intake{},
	}
	if !s.Step.Valid() {
		return nil, fmt.Errorf("%w: step %d", ErrMalformedRecord, rec.StepIndex)
	}

	if raw, ok := body["role"]; ok {
		if err := json.Unmarshal(raw, &s.Role); err != nil {
			return nil, fmt.Errorf("%w: role: %v", ErrMalformedRecord, err)
		}
	}
	if !s.Role.Valid() {
		return nil, fmt.Errorf("%w: role %q", ErrMalformedRecord, s.Role)
	}

	if raw, ok := body["purchaseContext"]; ok {
		if err := json.Unmarshal(raw, &s.PurchaseContext); err != nil {
			return nil, fmt.Errorf("%w: purchaseContext: %v", ErrMalformedRecord, err)
		}
	}

	for k, raw := range body {
		if _, ok := reservedFields[k]; ok || IsSecretField(k) {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrMalformedRecord, k, err)
		}
		s.Intake[k] = v
	}

	return s, nil
}
