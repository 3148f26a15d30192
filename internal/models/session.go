package models

import (
	"encoding/json"
	"math"
	"time"
)

// SessionStatus represents the current state of a questionnaire session
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress" // Accepting answers
	SessionCompleted  SessionStatus = "completed"   // All steps answered, terminal
)

// Answer is the normalized value of an accepted response. Exactly one field is
// set, matching the step type: Value for single_choice, boolean and text steps,
// Values for multiple_choice, Number for range. A zero Answer records a skipped
// optional step.
type Answer struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
	Number *float64 `json:"number,omitempty"`
}

// IsEmpty returns true when no value was recorded.
func (a Answer) IsEmpty() bool {
	return a.Value == "" && len(a.Values) == 0 && a.Number == nil
}

// SelectedValues returns the chosen option values for choice-based answers.
func (a Answer) SelectedValues() []string {
	if a.Value != "" {
		return []string{a.Value}
	}
	return a.Values
}

// Response is one accepted answer. Immutable once appended to a session.
type Response struct {
	QuestionID string    `json:"question_id"`
	Answer     Answer    `json:"answer"`
	Confidence float64   `json:"confidence"`
	AnsweredAt time.Time `json:"answered_at"`
}

// Session tracks one user's progress through one advisor's questionnaire.
// CatalogVersion snapshots the advisor's content hash at creation time so a
// later catalog change is detectable during aggregation.
type Session struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	AdvisorID        string        `json:"advisor_id"`
	CatalogVersion   string        `json:"catalog_version"`
	CurrentStepIndex int           `json:"current_step_index"`
	Responses        []Response    `json:"responses"`
	Status           SessionStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}

// IsComplete returns true if the session has reached its terminal state
func (s *Session) IsComplete() bool {
	return s.Status == SessionCompleted
}

// ProgressPercent reports completion as a whole percentage, clamped to
// [0,100]. An empty-catalog advisor reports 0 rather than dividing by zero.
func (s *Session) ProgressPercent(stepCount int) int {
	if stepCount <= 0 {
		return 0
	}
	pct := int(math.Round(float64(s.CurrentStepIndex) / float64(stepCount) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// StartSessionRequest represents a request to start (or resume) a session
type StartSessionRequest struct {
	UserID    string `json:"user_id"`
	AdvisorID string `json:"advisor_id"`
	// Restart forces a fresh session even when an in-progress one exists.
	// The old session is retained as history.
	Restart bool `json:"restart,omitempty"`
}

// SubmitAnswerRequest represents one answer submission. Answer carries the raw
// JSON payload; its expected shape depends on the current step's type.
type SubmitAnswerRequest struct {
	QuestionID string          `json:"question_id"`
	Answer     json.RawMessage `json:"answer"`
	Confidence *float64        `json:"confidence,omitempty"`
}

// CurrentStepResponse is returned by the current-step endpoint. Step is nil
// once the session is completed.
type CurrentStepResponse struct {
	SessionID       string        `json:"session_id"`
	Status          SessionStatus `json:"status"`
	StepIndex       int           `json:"step_index"`
	StepCount       int           `json:"step_count"`
	ProgressPercent int           `json:"progress_percent"`
	Completed       bool          `json:"completed"`
	Step            *QuestionStep `json:"step,omitempty"`
}

// SubmitAnswerResponse is returned after a successful submit. NextStep is set
// while the session remains in progress; Insight is set when this submit
// completed the session.
type SubmitAnswerResponse struct {
	SessionID       string        `json:"session_id"`
	Status          SessionStatus `json:"status"`
	ProgressPercent int           `json:"progress_percent"`
	NextStep        *QuestionStep `json:"next_step,omitempty"`
	Insight         *Insight      `json:"insight,omitempty"`
}
