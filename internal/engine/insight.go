package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/finapp/advisor-engine/internal/models"
)

// BuildInsight assembles the final insight for a completed session: runs
// aggregation, selects a decision row and computes the personalization score.
// Apart from GeneratedAt the result is a pure function of the session and the
// advisor content, so recomputing it yields identical output.
func BuildInsight(def *models.AdvisorDefinition, session *models.Session, now time.Time) (*models.Insight, error) {
	if !session.IsComplete() {
		return nil, fmt.Errorf("%w: session %s at step %d", ErrSessionNotComplete, session.ID, session.CurrentStepIndex)
	}

	profile := Aggregate(def, session.Responses)
	for _, warning := range profile.Warnings {
		slog.Warn("aggregation warning",
			"session_id", session.ID,
			"advisor_id", session.AdvisorID,
			"warning", warning,
		)
	}
	if session.CatalogVersion != "" && session.CatalogVersion != def.Version {
		slog.Warn("session catalog version differs from current catalog",
			"session_id", session.ID,
			"session_version", session.CatalogVersion,
			"catalog_version", def.Version,
		)
	}

	row, err := Recommend(def, &profile)
	if err != nil {
		slog.Error("recommendation lookup failed",
			"session_id", session.ID,
			"advisor_id", session.AdvisorID,
			"error", err,
		)
		return nil, err
	}

	return &models.Insight{
		SessionID:            session.ID,
		AdvisorID:            session.AdvisorID,
		CatalogVersion:       def.Version,
		Profile:              profile,
		Recommendations:      row.Recommendations,
		ActionPlan:           row.ActionPlan,
		PersonalizationScore: PersonalizationScore(&profile),
		Summary:              row.Summary,
		GeneratedAt:          now,
	}, nil
}
