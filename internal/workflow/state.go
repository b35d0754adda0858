package workflow

import (
	"encoding/json"
	"fmt"
)

// ReviewKind selects one of the two independent approvals.
type ReviewKind string

const (
	ReviewField    ReviewKind = "field"
	ReviewLanguage ReviewKind = "language"
)

// Valid reports whether k is field or language.
func (k ReviewKind) Valid() bool {
	return k == ReviewField || k == ReviewLanguage
}

// State is a question's status together with its two approval flags. The fields are
// unexported so that status and flags only change together through Transition.
type State struct {
	status           Status
	fieldApproved    bool
	languageApproved bool
}

// NewState returns the state of a freshly created question.
func NewState() State {
	return State{status: Initial()}
}

// RestoreState rebuilds a state from persisted columns.
func RestoreState(status Status, fieldApproved, languageApproved bool) State {
	return State{status: status, fieldApproved: fieldApproved, languageApproved: languageApproved}
}

func (s State) Status() Status          { return s.status }
func (s State) FieldApproved() bool    { return s.fieldApproved }
func (s State) LanguageApproved() bool { return s.languageApproved }

// BothApproved reports whether the field and language approvals are both recorded.
func (s State) BothApproved() bool {
	return s.fieldApproved && s.languageApproved
}

// ResetApprovals clears both flags.
func (s *State) ResetApprovals() {
	s.fieldApproved = false
	s.languageApproved = false
}

// RecordApproval sets the flag for kind and leaves the other one alone.
func (s *State) RecordApproval(kind ReviewKind) {
	switch kind {
	case ReviewField:
		s.fieldApproved = true
	case ReviewLanguage:
		s.languageApproved = true
	}
}

// Transition moves to status to and applies effect to the flags in the same step.
func (s *State) Transition(to Status, effect Effect) {
	s.status = to
	switch effect {
	case EffectRecordFieldApproval:
		s.RecordApproval(ReviewField)
	case EffectRecordLanguageApproval:
		s.RecordApproval(ReviewLanguage)
	case EffectResetApprovals:
		s.ResetApprovals()
	}
}

type stateJSON struct {
	Status           Status `json:"status"`
	FieldApproved    bool   `json:"field_approved"`
	LanguageApproved bool   `json:"language_approved"`
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{Status: s.status, FieldApproved: s.fieldApproved, LanguageApproved: s.languageApproved})
}

func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !IsValid(raw.Status) {
		return fmt.Errorf("unknown status %q", raw.Status)
	}
	*s = RestoreState(raw.Status, raw.FieldApproved, raw.LanguageApproved)
	return nil
}
