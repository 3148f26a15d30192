package engine

import (
	"github.com/finapp/advisor-engine/internal/models"
)

func fptr(v float64) *float64 {
	return &v
}

// budgetAdvisor builds the three-step advisor used across the engine tests:
// a financial cushion question, a money-management style question and a
// multi-select goals question, with a decision table covering the main
// outcomes plus a wildcard fallback row.
func budgetAdvisor() *models.AdvisorDefinition {
	return &models.AdvisorDefinition{
		ID:      "budget_planner",
		Name:    "Budget Planner",
		Version: "v1abc",
		Steps: []models.QuestionStep{
			{
				ID:       "emergency_fund",
				Question: "How much of an emergency cushion do you have?",
				Category: models.CategoryFinancialStatus,
				Type:     models.TypeSingleChoice,
				Options: []models.QuestionOption{
					{ID: "opt_none", Value: "no_buffer", Title: "Little or none", Weight: 0.9},
					{ID: "opt_three", Value: "three_months", Title: "A few months", Weight: 0.7},
					{ID: "opt_six", Value: "six_months", Title: "About six months", Weight: 0.8},
				},
				Validation: models.StepValidation{Required: true},
			},
			{
				ID:       "money_style",
				Question: "How do you prefer to manage your money?",
				Category: models.CategoryPreferences,
				Type:     models.TypeSingleChoice,
				Options: []models.QuestionOption{
					{ID: "opt_auto", Value: "automatic", Title: "Set it and forget it", Weight: 0.9},
					{ID: "opt_hands", Value: "hands_on", Title: "Hands on", Weight: 0.8},
				},
				Validation: models.StepValidation{Required: true},
			},
			{
				ID:       "saving_goals",
				Question: "What are you saving toward?",
				Category: models.CategoryGoals,
				Type:     models.TypeMultipleChoice,
				Options: []models.QuestionOption{
					{ID: "opt_savings", Value: "savings", Title: "Building savings", Weight: 0.85},
					{ID: "opt_debt", Value: "debt_payoff", Title: "Paying off debt", Weight: 0.9},
					{ID: "opt_travel", Value: "travel", Title: "Travel", Weight: 0.7},
				},
				Validation: models.StepValidation{Required: true},
			},
		},
		DecisionTable: []models.DecisionRow{
			{
				RiskTolerance: "no_buffer",
				Summary:       "Build a cushion first.",
				Recommendations: []models.Recommendation{
					{Title: "Start an emergency fund", Priority: 1, Timeframe: "this_month", SuggestedAction: "open_savings_account"},
				},
				ActionPlan: []string{"Open a dedicated savings account"},
			},
			{
				RiskTolerance: "six_months",
				Goals:         []string{"savings"},
				Summary:       "Shift from protection to growth.",
				Recommendations: []models.Recommendation{
					{Title: "Automate surplus savings", Priority: 1, Timeframe: "this_month", SuggestedAction: "create_savings_rule"},
					{Title: "Set a named savings target", Priority: 2, Timeframe: "this_quarter", SuggestedAction: "define_savings_goal"},
				},
				ActionPlan: []string{"Pick a target amount", "Create an automatic transfer"},
			},
			{
				Summary: "A balanced starter budget.",
				Recommendations: []models.Recommendation{
					{Title: "Adopt a simple budget split", Priority: 1, Timeframe: "this_month", SuggestedAction: "apply_budget_split"},
				},
				ActionPlan: []string{"Track one full month of spending"},
			},
		},
	}
}

func rangeStep(min, max float64) *models.QuestionStep {
	return &models.QuestionStep{
		ID:       "monthly_amount",
		Question: "How much could you invest each month?",
		Category: models.CategoryFinancialStatus,
		Type:     models.TypeRange,
		Validation: models.StepValidation{
			Required: true,
			Min:      fptr(min),
			Max:      fptr(max),
		},
	}
}
