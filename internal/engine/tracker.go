package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/finapp/advisor-engine/internal/models"
)

// Tracker advances a session through its advisor's question steps. It mutates
// only the wrapped session; persistence happens at the caller's load/save
// boundaries. A tracker built from previously persisted state trusts the
// stored responses as-is and never re-runs validation on them.
type Tracker struct {
	def     *models.AdvisorDefinition
	session *models.Session
}

// NewTracker wraps a session, freshly created or restored from storage.
func NewTracker(def *models.AdvisorDefinition, session *models.Session) *Tracker {
	return &Tracker{def: def, session: session}
}

// Session returns the underlying session.
func (t *Tracker) Session() *models.Session {
	return t.session
}

// CurrentStep returns the step awaiting an answer, or nil once the session is
// completed.
func (t *Tracker) CurrentStep() *models.QuestionStep {
	if t.session.IsComplete() || t.session.CurrentStepIndex >= t.def.StepCount() {
		return nil
	}
	return &t.def.Steps[t.session.CurrentStepIndex]
}

// Progress returns the session's completion percentage.
func (t *Tracker) Progress() int {
	return t.session.ProgressPercent(t.def.StepCount())
}

// Submit validates an answer for the current step and, on success, appends the
// response and advances the session. On validation failure the session is left
// unchanged and the caller re-prompts. A question id that is not the current
// step means the caller's view of the session is out of date.
func (t *Tracker) Submit(questionID string, raw json.RawMessage, confidence *float64, now time.Time) (models.Response, error) {
	if t.session.IsComplete() {
		return models.Response{}, fmt.Errorf("%w: session %s", ErrSessionAlreadyComplete, t.session.ID)
	}

	step := t.CurrentStep()
	if step == nil {
		return models.Response{}, fmt.Errorf("%w: session %s", ErrSessionAlreadyComplete, t.session.ID)
	}

	if questionID != step.ID {
		return models.Response{}, fmt.Errorf("%w: expected question %q at step %d, got %q",
			ErrStaleSession, step.ID, t.session.CurrentStepIndex, questionID)
	}

	resp, err := ValidateAnswer(step, raw, confidence, now)
	if err != nil {
		return models.Response{}, err
	}

	t.session.Responses = append(t.session.Responses, resp)
	t.session.CurrentStepIndex++
	t.session.UpdatedAt = now

	if t.session.CurrentStepIndex >= t.def.StepCount() {
		t.session.Status = models.SessionCompleted
		completed := now
		t.session.CompletedAt = &completed
	}

	return resp, nil
}
