package models

import "time"

// Recommendation is one ranked strategy suggestion.
type Recommendation struct {
	Title           string `yaml:"title" json:"title"`
	Description     string `yaml:"description" json:"description"`
	Priority        int    `yaml:"priority" json:"priority"`
	Timeframe       string `yaml:"timeframe" json:"timeframe"`
	SuggestedAction string `yaml:"suggested_action" json:"suggested_action"`
}

// DimensionScore is the outcome of one categorical profile dimension. An empty
// label with confidence 0 means no response contributed to the dimension; the
// engine never guesses.
type DimensionScore struct {
	Label      string  `json:"label,omitempty"`
	Confidence float64 `json:"confidence"`
}

// IsNull returns true when the dimension received no signal.
func (d DimensionScore) IsNull() bool {
	return d.Label == ""
}

// UserProfile is derived deterministically from a session's response list and
// the advisor's option weights. Never mutated in place.
type UserProfile struct {
	RiskTolerance       DimensionScore `json:"risk_tolerance"`
	FinancialExperience DimensionScore `json:"financial_experience"`
	DecisionStyle       DimensionScore `json:"decision_style"`
	LifeStage           DimensionScore `json:"life_stage"`
	PrimaryGoals        []string       `json:"primary_goals"`
	GoalsConfidence     float64        `json:"goals_confidence"`
	// Warnings records responses skipped during aggregation, e.g. answers
	// referencing a question removed by a catalog update.
	Warnings []string `json:"warnings,omitempty"`
}

// NonNullDimensions returns the count of dimensions that received signal and
// the mean confidence across them. The primary_goals set counts as one
// dimension, non-null when at least one goal was collected.
func (p *UserProfile) NonNullDimensions() (int, float64) {
	count := 0
	sum := 0.0
	for _, d := range []DimensionScore{p.RiskTolerance, p.FinancialExperience, p.DecisionStyle, p.LifeStage} {
		if !d.IsNull() {
			count++
			sum += d.Confidence
		}
	}
	if len(p.PrimaryGoals) > 0 {
		count++
		sum += p.GoalsConfidence
	}
	if count == 0 {
		return 0, 0
	}
	return count, sum / float64(count)
}

// Insight is the final artifact produced for a completed session. Recomputing
// it from the same session and catalog version yields identical content apart
// from GeneratedAt.
type Insight struct {
	SessionID            string           `json:"session_id"`
	AdvisorID            string           `json:"advisor_id"`
	CatalogVersion       string           `json:"catalog_version"`
	Profile              UserProfile      `json:"profile"`
	Recommendations      []Recommendation `json:"recommendations"`
	ActionPlan           []string         `json:"action_plan"`
	PersonalizationScore int              `json:"personalization_score"`
	Summary              string           `json:"summary"`
	GeneratedAt          time.Time        `json:"generated_at"`
}
