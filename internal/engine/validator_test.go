package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finapp/advisor-engine/internal/models"
)

func TestValidateAnswerSingleChoice(t *testing.T) {
	def := budgetAdvisor()
	step := &def.Steps[0]
	now := time.Now().UTC()

	resp, err := ValidateAnswer(step, json.RawMessage(`"six_months"`), nil, now)
	require.NoError(t, err)
	assert.Equal(t, "emergency_fund", resp.QuestionID)
	assert.Equal(t, "six_months", resp.Answer.Value)
	assert.Equal(t, DefaultConfidence, resp.Confidence)
	assert.Equal(t, now, resp.AnsweredAt)

	_, err = ValidateAnswer(step, json.RawMessage(`"twelve_months"`), nil, now)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = ValidateAnswer(step, json.RawMessage(`42`), nil, now)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestValidateAnswerRequired(t *testing.T) {
	def := budgetAdvisor()
	step := &def.Steps[0]
	now := time.Now().UTC()

	for _, raw := range []string{``, `null`, `""`, `[]`} {
		_, err := ValidateAnswer(step, json.RawMessage(raw), nil, now)
		assert.ErrorIs(t, err, ErrMissingRequiredAnswer, "payload %q", raw)
	}
}

func TestValidateAnswerOptionalSkip(t *testing.T) {
	step := &models.QuestionStep{
		ID:       "notes",
		Question: "Anything else?",
		Category: models.CategoryDemographic,
		Type:     models.TypeText,
	}

	resp, err := ValidateAnswer(step, json.RawMessage(`null`), nil, time.Now())
	require.NoError(t, err)
	assert.True(t, resp.Answer.IsEmpty())
}

func TestValidateAnswerMultipleChoice(t *testing.T) {
	def := budgetAdvisor()
	step := &def.Steps[2]
	now := time.Now().UTC()

	resp, err := ValidateAnswer(step, json.RawMessage(`["savings","travel"]`), nil, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"savings", "travel"}, resp.Answer.Values)

	_, err = ValidateAnswer(step, json.RawMessage(`["savings","savings"]`), nil, now)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = ValidateAnswer(step, json.RawMessage(`["lottery"]`), nil, now)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = ValidateAnswer(step, json.RawMessage(`"savings"`), nil, now)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestValidateAnswerRange(t *testing.T) {
	step := rangeStep(0, 10000)
	now := time.Now().UTC()

	resp, err := ValidateAnswer(step, json.RawMessage(`2500`), nil, now)
	require.NoError(t, err)
	require.NotNil(t, resp.Answer.Number)
	assert.Equal(t, 2500.0, *resp.Answer.Number)

	// Bounds are inclusive
	_, err = ValidateAnswer(step, json.RawMessage(`0`), nil, now)
	assert.NoError(t, err)
	_, err = ValidateAnswer(step, json.RawMessage(`10000`), nil, now)
	assert.NoError(t, err)

	_, err = ValidateAnswer(step, json.RawMessage(`-5`), nil, now)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = ValidateAnswer(step, json.RawMessage(`10001`), nil, now)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = ValidateAnswer(step, json.RawMessage(`"lots"`), nil, now)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestValidateAnswerRangeWithoutBounds(t *testing.T) {
	step := rangeStep(0, 10000)
	step.Validation.Min = nil
	step.Validation.Max = nil

	_, err := ValidateAnswer(step, json.RawMessage(`2500`), nil, time.Now().UTC())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrOutOfRange)
}

func TestValidateAnswerBoolean(t *testing.T) {
	step := &models.QuestionStep{
		ID:       "employer_plan",
		Question: "Does your employer offer a plan?",
		Category: models.CategoryFinancialStatus,
		Type:     models.TypeBoolean,
		Options: []models.QuestionOption{
			{ID: "opt_yes", Value: "true", Title: "Yes", Weight: 0.6},
			{ID: "opt_no", Value: "false", Title: "No", Weight: 0.6},
		},
		Validation: models.StepValidation{Required: true},
	}
	now := time.Now().UTC()

	// Accepts both the JSON bool and its string form
	resp, err := ValidateAnswer(step, json.RawMessage(`true`), nil, now)
	require.NoError(t, err)
	assert.Equal(t, "true", resp.Answer.Value)

	resp, err = ValidateAnswer(step, json.RawMessage(`"false"`), nil, now)
	require.NoError(t, err)
	assert.Equal(t, "false", resp.Answer.Value)

	_, err = ValidateAnswer(step, json.RawMessage(`"maybe"`), nil, now)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestValidateAnswerText(t *testing.T) {
	step := &models.QuestionStep{
		ID:         "notes",
		Question:   "Anything else?",
		Category:   models.CategoryDemographic,
		Type:       models.TypeText,
		Validation: models.StepValidation{Required: true},
	}
	now := time.Now().UTC()

	resp, err := ValidateAnswer(step, json.RawMessage(`"  self-employed  "`), nil, now)
	require.NoError(t, err)
	assert.Equal(t, "self-employed", resp.Answer.Value)

	_, err = ValidateAnswer(step, json.RawMessage(`"   "`), nil, now)
	assert.ErrorIs(t, err, ErrMissingRequiredAnswer)
}

func TestAcceptedAnswersRevalidate(t *testing.T) {
	def := budgetAdvisor()
	now := time.Now().UTC()

	payloads := map[string]json.RawMessage{
		"emergency_fund": json.RawMessage(`"six_months"`),
		"money_style":    json.RawMessage(`"hands_on"`),
		"saving_goals":   json.RawMessage(`["savings","debt_payoff"]`),
	}

	for i := range def.Steps {
		step := &def.Steps[i]
		first, err := ValidateAnswer(step, payloads[step.ID], nil, now)
		require.NoError(t, err)

		// An accepted answer never becomes invalid against the same step
		encoded, err := json.Marshal(first.Answer.Value)
		require.NoError(t, err)
		if len(first.Answer.Values) > 0 {
			encoded, err = json.Marshal(first.Answer.Values)
			require.NoError(t, err)
		}
		second, err := ValidateAnswer(step, encoded, nil, now)
		require.NoError(t, err)
		assert.Equal(t, first.Answer, second.Answer)
	}
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(ErrMissingRequiredAnswer))
	assert.True(t, IsValidationError(ErrInvalidOption))
	assert.True(t, IsValidationError(ErrOutOfRange))
	assert.False(t, IsValidationError(ErrStaleSession))
	assert.False(t, IsValidationError(ErrSessionAlreadyComplete))
}

func TestValidateAnswerConfidence(t *testing.T) {
	def := budgetAdvisor()
	step := &def.Steps[0]
	now := time.Now().UTC()

	tests := []struct {
		name string
		in   *float64
		want float64
	}{
		{"default", nil, DefaultConfidence},
		{"explicit", fptr(0.5), 0.5},
		{"clamped high", fptr(1.5), 1},
		{"clamped low", fptr(-0.2), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ValidateAnswer(step, json.RawMessage(`"six_months"`), tt.in, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Confidence)
		})
	}
}
