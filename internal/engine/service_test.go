package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finapp/advisor-engine/internal/catalog"
	"github.com/finapp/advisor-engine/internal/models"
	"github.com/finapp/advisor-engine/internal/storage"
)

func newTestService(t *testing.T, defs ...*models.AdvisorDefinition) *Service {
	t.Helper()
	cat := catalog.New()
	for _, def := range defs {
		require.NoError(t, cat.Add(def))
	}
	return NewService(cat, storage.NewMemoryRepository(), nil, nil)
}

func TestServiceFullFlow(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, budgetAdvisor())

	session, err := svc.StartSession(ctx, models.StartSessionRequest{
		UserID:    "user-1",
		AdvisorID: "budget_planner",
	})
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	assert.Equal(t, models.SessionInProgress, session.Status)
	assert.Equal(t, "v1abc", session.CatalogVersion)

	step, err := svc.CurrentStep(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, step.Step)
	assert.Equal(t, "emergency_fund", step.Step.ID)
	assert.Equal(t, 3, step.StepCount)

	result, err := svc.Submit(ctx, session.ID, models.SubmitAnswerRequest{
		QuestionID: "emergency_fund",
		Answer:     json.RawMessage(`"six_months"`),
	})
	require.NoError(t, err)
	assert.Equal(t, 33, result.ProgressPercent)
	require.NotNil(t, result.NextStep)
	assert.Equal(t, "money_style", result.NextStep.ID)
	assert.Nil(t, result.Insight)

	_, err = svc.Submit(ctx, session.ID, models.SubmitAnswerRequest{
		QuestionID: "money_style",
		Answer:     json.RawMessage(`"automatic"`),
	})
	require.NoError(t, err)

	result, err = svc.Submit(ctx, session.ID, models.SubmitAnswerRequest{
		QuestionID: "saving_goals",
		Answer:     json.RawMessage(`["savings"]`),
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, result.Status)
	assert.Equal(t, 100, result.ProgressPercent)
	assert.Nil(t, result.NextStep)

	insight := result.Insight
	require.NotNil(t, insight)
	assert.Equal(t, session.ID, insight.SessionID)
	assert.Equal(t, "six_months", insight.Profile.RiskTolerance.Label)
	assert.Equal(t, []string{"savings"}, insight.Profile.PrimaryGoals)
	assert.Equal(t, "Shift from protection to growth.", insight.Summary)
	assert.NotEmpty(t, insight.Recommendations)
	assert.NotEmpty(t, insight.ActionPlan)
	assert.Equal(t, 56, insight.PersonalizationScore)

	// The insight endpoint returns the persisted artifact unchanged.
	again, err := svc.Insight(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, insight, again)
}

func TestServiceResumeAndRestart(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, budgetAdvisor())

	first, err := svc.StartSession(ctx, models.StartSessionRequest{UserID: "user-1", AdvisorID: "budget_planner"})
	require.NoError(t, err)

	resumed, err := svc.StartSession(ctx, models.StartSessionRequest{UserID: "user-1", AdvisorID: "budget_planner"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, resumed.ID)

	fresh, err := svc.StartSession(ctx, models.StartSessionRequest{UserID: "user-1", AdvisorID: "budget_planner", Restart: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fresh.ID)

	// The old session survives as history
	sessions, err := svc.ListSessions(ctx, "user-1", "budget_planner", 0, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestServiceUnknownAdvisor(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, budgetAdvisor())

	_, err := svc.StartSession(ctx, models.StartSessionRequest{UserID: "user-1", AdvisorID: "ghost"})
	assert.ErrorIs(t, err, catalog.ErrUnknownAdvisor)
}

func TestServiceSessionNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, budgetAdvisor())

	_, err := svc.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Submit(ctx, "missing", models.SubmitAnswerRequest{QuestionID: "emergency_fund"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestServiceStaleSubmit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, budgetAdvisor())

	session, err := svc.StartSession(ctx, models.StartSessionRequest{UserID: "user-1", AdvisorID: "budget_planner"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, session.ID, models.SubmitAnswerRequest{
		QuestionID: "emergency_fund",
		Answer:     json.RawMessage(`"six_months"`),
	})
	require.NoError(t, err)

	// A second client replaying the first step holds an outdated view.
	_, err = svc.Submit(ctx, session.ID, models.SubmitAnswerRequest{
		QuestionID: "emergency_fund",
		Answer:     json.RawMessage(`"no_buffer"`),
	})
	require.ErrorIs(t, err, ErrStaleSession)

	// The session kept the winning submit only
	current, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.CurrentStepIndex)
	assert.Len(t, current.Responses, 1)
	assert.Equal(t, "six_months", current.Responses[0].Answer.Value)
}

func TestServiceInsightBeforeCompletion(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, budgetAdvisor())

	session, err := svc.StartSession(ctx, models.StartSessionRequest{UserID: "user-1", AdvisorID: "budget_planner"})
	require.NoError(t, err)

	_, err = svc.Insight(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotComplete)
}

func TestServiceEmptyAdvisorCompletesImmediately(t *testing.T) {
	ctx := context.Background()
	empty := &models.AdvisorDefinition{
		ID:      "empty_advisor",
		Name:    "Empty Advisor",
		Version: "v0",
		DecisionTable: []models.DecisionRow{{
			Summary:         "Nothing to ask.",
			Recommendations: []models.Recommendation{{Title: "General guidance"}},
			ActionPlan:      []string{"Book an appointment"},
		}},
	}
	svc := newTestService(t, empty)

	session, err := svc.StartSession(ctx, models.StartSessionRequest{UserID: "user-1", AdvisorID: "empty_advisor"})
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, session.Status)
	require.NotNil(t, session.CompletedAt)

	step, err := svc.CurrentStep(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, step.Completed)
	assert.Equal(t, 0, step.ProgressPercent)
	assert.Nil(t, step.Step)

	insight, err := svc.Insight(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, insight.PersonalizationScore)
	assert.Equal(t, "Nothing to ask.", insight.Summary)
}
