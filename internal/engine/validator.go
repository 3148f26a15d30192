package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/finapp/advisor-engine/internal/models"
)

// DefaultConfidence is assumed when the caller does not declare one.
const DefaultConfidence = 0.8

// ValidateAnswer checks a raw answer against its step's type and constraints
// and returns the accepted Response. The raw payload is JSON: a string for
// single_choice, boolean and text steps (boolean also accepts a JSON bool),
// an array of strings for multiple_choice, a number for range.
//
// A response accepted here re-validates cleanly against the same step: no
// answer becomes invalid after acceptance.
func ValidateAnswer(step *models.QuestionStep, raw json.RawMessage, confidence *float64, now time.Time) (models.Response, error) {
	resp := models.Response{
		QuestionID: step.ID,
		Confidence: normalizeConfidence(confidence),
		AnsweredAt: now,
	}

	if isEmptyPayload(raw) {
		if step.Validation.Required {
			return models.Response{}, fmt.Errorf("%w: question %q", ErrMissingRequiredAnswer, step.ID)
		}
		// Optional step skipped; record an empty answer.
		return resp, nil
	}

	answer, err := decodeAnswer(step, raw)
	if err != nil {
		return models.Response{}, err
	}
	if answer.IsEmpty() && step.Validation.Required {
		return models.Response{}, fmt.Errorf("%w: question %q", ErrMissingRequiredAnswer, step.ID)
	}

	resp.Answer = answer
	return resp, nil
}

func decodeAnswer(step *models.QuestionStep, raw json.RawMessage) (models.Answer, error) {
	switch step.Type {
	case models.TypeSingleChoice, models.TypeBoolean:
		value, err := decodeScalar(raw)
		if err != nil {
			return models.Answer{}, fmt.Errorf("%w: question %q expects a single value", ErrInvalidOption, step.ID)
		}
		if step.Option(value) == nil {
			return models.Answer{}, fmt.Errorf("%w: %q is not an option of question %q", ErrInvalidOption, value, step.ID)
		}
		return models.Answer{Value: value}, nil

	case models.TypeMultipleChoice:
		var values []string
		if err := json.Unmarshal(raw, &values); err != nil {
			return models.Answer{}, fmt.Errorf("%w: question %q expects an array of values", ErrInvalidOption, step.ID)
		}
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			if step.Option(v) == nil {
				return models.Answer{}, fmt.Errorf("%w: %q is not an option of question %q", ErrInvalidOption, v, step.ID)
			}
			if seen[v] {
				return models.Answer{}, fmt.Errorf("%w: duplicate selection %q for question %q", ErrInvalidOption, v, step.ID)
			}
			seen[v] = true
		}
		return models.Answer{Values: values}, nil

	case models.TypeRange:
		var number float64
		if err := json.Unmarshal(raw, &number); err != nil {
			return models.Answer{}, fmt.Errorf("%w: question %q expects a number", ErrOutOfRange, step.ID)
		}
		if step.Validation.Min == nil || step.Validation.Max == nil {
			return models.Answer{}, fmt.Errorf("question %q has no numeric bounds", step.ID)
		}
		min, max := *step.Validation.Min, *step.Validation.Max
		if number < min || number > max {
			return models.Answer{}, fmt.Errorf("%w: %v outside [%v, %v] for question %q", ErrOutOfRange, number, min, max, step.ID)
		}
		return models.Answer{Number: &number}, nil

	case models.TypeText:
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			text = ""
		}
		text = strings.TrimSpace(text)
		if text == "" && step.Validation.Required {
			return models.Answer{}, fmt.Errorf("%w: question %q", ErrMissingRequiredAnswer, step.ID)
		}
		return models.Answer{Value: text}, nil
	}

	return models.Answer{}, fmt.Errorf("%w: unsupported step type %q", ErrInvalidOption, step.Type)
}

// decodeScalar accepts a JSON string, or a JSON bool for boolean steps which
// are treated as a two-option "true"/"false" choice.
func decodeScalar(raw json.RawMessage) (string, error) {
	var value string
	if err := json.Unmarshal(raw, &value); err == nil {
		return value, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), nil
	}
	return "", fmt.Errorf("not a scalar answer")
}

func isEmptyPayload(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", `""`, "[]":
		return true
	}
	return false
}

func normalizeConfidence(confidence *float64) float64 {
	if confidence == nil {
		return DefaultConfidence
	}
	c := *confidence
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
