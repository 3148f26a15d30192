package models

// QuestionCategory is the fixed taxonomy a question step belongs to.
type QuestionCategory string

const (
	CategoryFinancialStatus QuestionCategory = "financial_status"
	CategoryGoals           QuestionCategory = "goals"
	CategoryRiskTolerance   QuestionCategory = "risk_tolerance"
	CategoryPreferences     QuestionCategory = "preferences"
	CategoryExperience      QuestionCategory = "experience"
	CategoryDemographic     QuestionCategory = "demographic"
)

// QuestionType determines the answer shape a step accepts.
type QuestionType string

const (
	TypeSingleChoice   QuestionType = "single_choice"
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeRange          QuestionType = "range"
	TypeText           QuestionType = "text"
	TypeBoolean        QuestionType = "boolean"
)

// IsChoice returns true for types answered by picking from the step's options.
// Boolean steps are a two-option choice ("true"/"false").
func (t QuestionType) IsChoice() bool {
	return t == TypeSingleChoice || t == TypeMultipleChoice || t == TypeBoolean
}

// Dimension is a named axis of the derived user profile.
type Dimension string

const (
	DimensionRiskTolerance       Dimension = "risk_tolerance"
	DimensionFinancialExperience Dimension = "financial_experience"
	DimensionDecisionStyle       Dimension = "decision_style"
	DimensionLifeStage           Dimension = "life_stage"
	DimensionPrimaryGoals        Dimension = "primary_goals"
)

// TotalDimensions is the number of profile dimensions (four categorical plus
// the primary_goals set).
const TotalDimensions = 5

// CategoryDimension maps a step category to the profile dimension its options
// feed. The mapping is validated at catalog load so an unmapped category fails
// fast instead of silently contributing to no dimension.
func CategoryDimension(c QuestionCategory) (Dimension, bool) {
	switch c {
	case CategoryRiskTolerance, CategoryFinancialStatus:
		return DimensionRiskTolerance, true
	case CategoryExperience:
		return DimensionFinancialExperience, true
	case CategoryPreferences:
		return DimensionDecisionStyle, true
	case CategoryDemographic:
		return DimensionLifeStage, true
	case CategoryGoals:
		return DimensionPrimaryGoals, true
	}
	return "", false
}

// QuestionOption is one selectable answer of a choice-based step. Weight
// expresses how strongly the option implies its step's latent dimension and is
// stable for the lifetime of the catalog entry.
type QuestionOption struct {
	ID          string  `yaml:"id" json:"id"`
	Value       string  `yaml:"value" json:"value"`
	Title       string  `yaml:"title" json:"title"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Weight      float64 `yaml:"weight" json:"weight"`
}

// StepValidation holds the per-step answer constraints.
type StepValidation struct {
	Required bool     `yaml:"required" json:"required"`
	Min      *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max      *float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// QuestionStep is one question of an advisor's sequence.
type QuestionStep struct {
	ID         string           `yaml:"id" json:"id"`
	Question   string           `yaml:"question" json:"question"`
	Category   QuestionCategory `yaml:"category" json:"category"`
	Type       QuestionType     `yaml:"type" json:"type"`
	Options    []QuestionOption `yaml:"options,omitempty" json:"options,omitempty"`
	Validation StepValidation   `yaml:"validation" json:"validation"`
}

// Option returns the option with the given stored value, or nil.
func (s *QuestionStep) Option(value string) *QuestionOption {
	for i := range s.Options {
		if s.Options[i].Value == value {
			return &s.Options[i]
		}
	}
	return nil
}

// DecisionRow is one row of an advisor's recommendation table. Empty criteria
// are wildcards; Goals matches on any overlap with the profile's goal set.
type DecisionRow struct {
	RiskTolerance   string           `yaml:"risk_tolerance,omitempty" json:"risk_tolerance,omitempty"`
	Experience      string           `yaml:"experience,omitempty" json:"experience,omitempty"`
	Goals           []string         `yaml:"goals,omitempty" json:"goals,omitempty"`
	Summary         string           `yaml:"summary" json:"summary"`
	Recommendations []Recommendation `yaml:"recommendations" json:"recommendations"`
	ActionPlan      []string         `yaml:"action_plan" json:"action_plan"`
}

// AdvisorDefinition is the immutable questionnaire and recommendation content
// of one advisor. Version is a content hash assigned by the catalog loader.
type AdvisorDefinition struct {
	ID            string         `yaml:"id" json:"id"`
	Name          string         `yaml:"name" json:"name"`
	Description   string         `yaml:"description,omitempty" json:"description,omitempty"`
	Steps         []QuestionStep `yaml:"steps" json:"steps"`
	DecisionTable []DecisionRow  `yaml:"decision_table" json:"-"`
	Version       string         `yaml:"-" json:"version"`
}

// StepCount returns the number of question steps.
func (d *AdvisorDefinition) StepCount() int {
	return len(d.Steps)
}

// StepByID returns the index and step with the given id, or (-1, nil).
func (d *AdvisorDefinition) StepByID(id string) (int, *QuestionStep) {
	for i := range d.Steps {
		if d.Steps[i].ID == id {
			return i, &d.Steps[i]
		}
	}
	return -1, nil
}
