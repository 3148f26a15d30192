package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finapp/advisor-engine/internal/catalog"
	"github.com/finapp/advisor-engine/internal/config"
	"github.com/finapp/advisor-engine/internal/engine"
	"github.com/finapp/advisor-engine/internal/models"
	"github.com/finapp/advisor-engine/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cat := catalog.New()
	require.NoError(t, cat.Add(&models.AdvisorDefinition{
		ID:      "budget_planner",
		Name:    "Budget Planner",
		Version: "v1",
		Steps: []models.QuestionStep{
			{
				ID:       "emergency_fund",
				Question: "How much of an emergency cushion do you have?",
				Category: models.CategoryFinancialStatus,
				Type:     models.TypeSingleChoice,
				Options: []models.QuestionOption{
					{ID: "opt_none", Value: "no_buffer", Title: "Little or none", Weight: 0.9},
					{ID: "opt_six", Value: "six_months", Title: "About six months", Weight: 0.8},
				},
				Validation: models.StepValidation{Required: true},
			},
		},
		DecisionTable: []models.DecisionRow{{
			Summary:         "Baseline plan.",
			Recommendations: []models.Recommendation{{Title: "Track spending", Priority: 1}},
			ActionPlan:      []string{"Track one month of spending"},
		}},
	}))

	svc := engine.NewService(cat, storage.NewMemoryRepository(), nil, nil)
	server := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 8080}, svc, cat, nil)

	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, method, url string, payload interface{}) (int, testEnvelope) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env testEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, "GET", ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestAdvisorEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, "GET", ts.URL+"/api/v1/advisors", nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Advisors []models.AdvisorDefinition `json:"advisors"`
		Total    int                        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "budget_planner", list.Advisors[0].ID)

	status, env = doJSON(t, "GET", ts.URL+"/api/v1/advisors/ghost", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unknown_advisor", env.Error.Code)

	status, env = doJSON(t, "GET", ts.URL+"/api/v1/advisors/budget_planner/steps/5", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "step_out_of_range", env.Error.Code)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, "POST", ts.URL+"/api/v1/sessions", models.StartSessionRequest{
		UserID:    "user-1",
		AdvisorID: "budget_planner",
	})
	require.Equal(t, http.StatusCreated, status)
	var session models.Session
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.ID)

	base := fmt.Sprintf("%s/api/v1/sessions/%s", ts.URL, session.ID)

	status, env = doJSON(t, "GET", base+"/step", nil)
	require.Equal(t, http.StatusOK, status)
	var step models.CurrentStepResponse
	require.NoError(t, json.Unmarshal(env.Data, &step))
	assert.Equal(t, "emergency_fund", step.Step.ID)

	// A rejected answer keeps the session untouched
	status, env = doJSON(t, "POST", base+"/answers", models.SubmitAnswerRequest{
		QuestionID: "emergency_fund",
		Answer:     json.RawMessage(`"not_an_option"`),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid_option", env.Error.Code)

	// Insight is refused until the session completes
	status, env = doJSON(t, "GET", base+"/insight", nil)
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "session_not_complete", env.Error.Code)

	status, env = doJSON(t, "POST", base+"/answers", models.SubmitAnswerRequest{
		QuestionID: "emergency_fund",
		Answer:     json.RawMessage(`"six_months"`),
	})
	require.Equal(t, http.StatusOK, status)
	var result models.SubmitAnswerResponse
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, models.SessionCompleted, result.Status)
	require.NotNil(t, result.Insight)

	status, env = doJSON(t, "GET", base+"/insight", nil)
	require.Equal(t, http.StatusOK, status)
	var insight models.Insight
	require.NoError(t, json.Unmarshal(env.Data, &insight))
	assert.Equal(t, "Baseline plan.", insight.Summary)

	// Replaying the answer conflicts
	status, env = doJSON(t, "POST", base+"/answers", models.SubmitAnswerRequest{
		QuestionID: "emergency_fund",
		Answer:     json.RawMessage(`"no_buffer"`),
	})
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "session_complete", env.Error.Code)
}

func TestSessionNotFoundOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, "GET", ts.URL+"/api/v1/sessions/ghost", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "session_not_found", env.Error.Code)
}

func TestStartSessionValidation(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, "POST", ts.URL+"/api/v1/sessions", models.StartSessionRequest{
		AdvisorID: "budget_planner",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)

	status, env = doJSON(t, "POST", ts.URL+"/api/v1/sessions", models.StartSessionRequest{
		UserID:    "user-1",
		AdvisorID: "ghost",
	})
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unknown_advisor", env.Error.Code)
}

func TestWatchSessionErrors(t *testing.T) {
	ts := newTestServer(t)

	status, env := doJSON(t, "GET", ts.URL+"/api/v1/sessions/ghost/watch", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "session_not_found", env.Error.Code)

	// Streaming is disabled when no event dispatcher is configured.
	status, env = doJSON(t, "POST", ts.URL+"/api/v1/sessions", models.StartSessionRequest{
		UserID:    "user-w",
		AdvisorID: "budget_planner",
	})
	require.Equal(t, http.StatusCreated, status)
	var session models.Session
	require.NoError(t, json.Unmarshal(env.Data, &session))

	status, env = doJSON(t, "GET", ts.URL+"/api/v1/sessions/"+session.ID+"/watch", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "streaming_disabled", env.Error.Code)
}
