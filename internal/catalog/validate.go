package catalog

import (
	"fmt"

	"github.com/finapp/advisor-engine/internal/models"
)

// Validate checks an advisor definition against the catalog invariants:
// unique step ids, mapped categories, well-formed options and weights, range
// bounds, and a usable decision table.
func Validate(def *models.AdvisorDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("advisor id is required")
	}
	if def.Name == "" {
		return fmt.Errorf("advisor name is required")
	}

	stepIDs := make(map[string]bool, len(def.Steps))
	for i := range def.Steps {
		step := &def.Steps[i]
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.ID, err)
		}
		if stepIDs[step.ID] {
			return fmt.Errorf("step %d: duplicate step id %q", i, step.ID)
		}
		stepIDs[step.ID] = true
	}

	if len(def.DecisionTable) == 0 {
		return fmt.Errorf("decision table is empty")
	}
	for i, row := range def.DecisionTable {
		if len(row.Recommendations) == 0 {
			return fmt.Errorf("decision row %d: no recommendations", i)
		}
		if len(row.ActionPlan) == 0 {
			return fmt.Errorf("decision row %d: no action plan", i)
		}
	}

	return nil
}

func validateStep(step *models.QuestionStep) error {
	if step.ID == "" {
		return fmt.Errorf("step id is required")
	}
	if step.Question == "" {
		return fmt.Errorf("question text is required")
	}

	if _, ok := models.CategoryDimension(step.Category); !ok {
		return fmt.Errorf("category %q is not mapped to a profile dimension", step.Category)
	}

	switch step.Type {
	case models.TypeSingleChoice, models.TypeMultipleChoice, models.TypeBoolean:
		if len(step.Options) == 0 {
			return fmt.Errorf("choice step has no options")
		}
		if err := validateOptions(step); err != nil {
			return err
		}
	case models.TypeRange:
		if step.Validation.Min == nil || step.Validation.Max == nil {
			return fmt.Errorf("range step requires min and max bounds")
		}
		if *step.Validation.Min > *step.Validation.Max {
			return fmt.Errorf("range min %v exceeds max %v", *step.Validation.Min, *step.Validation.Max)
		}
	case models.TypeText:
		if len(step.Options) > 0 {
			return fmt.Errorf("text step must not define options")
		}
	default:
		return fmt.Errorf("unknown step type %q", step.Type)
	}

	return nil
}

func validateOptions(step *models.QuestionStep) error {
	ids := make(map[string]bool, len(step.Options))
	values := make(map[string]bool, len(step.Options))

	for i, opt := range step.Options {
		if opt.ID == "" || opt.Value == "" {
			return fmt.Errorf("option %d: id and value are required", i)
		}
		if ids[opt.ID] {
			return fmt.Errorf("option %d: duplicate option id %q", i, opt.ID)
		}
		if values[opt.Value] {
			return fmt.Errorf("option %d: duplicate option value %q", i, opt.Value)
		}
		ids[opt.ID] = true
		values[opt.Value] = true

		if opt.Weight < 0 || opt.Weight > 1 {
			return fmt.Errorf("option %q: weight %v outside [0,1]", opt.ID, opt.Weight)
		}

		if step.Type == models.TypeBoolean && opt.Value != "true" && opt.Value != "false" {
			return fmt.Errorf("option %q: boolean step values must be \"true\" or \"false\"", opt.ID)
		}
	}

	if step.Type == models.TypeBoolean && len(step.Options) != 2 {
		return fmt.Errorf("boolean step requires exactly two options, got %d", len(step.Options))
	}

	return nil
}
