package storage

import (
	"context"
	"errors"

	"github.com/finapp/advisor-engine/internal/models"
)

// ErrStaleSession is returned by AdvanceSession when the persisted step index
// no longer matches the caller's loaded state because a concurrent submit
// already advanced the session.
var ErrStaleSession = errors.New("session advanced concurrently")

// Repository defines persistence for sessions and insights. Lookups return
// (nil, nil) when the record does not exist.
type Repository interface {
	// Sessions
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	// GetActiveSession returns the most recent in-progress session for a
	// (user, advisor) pair, if any.
	GetActiveSession(ctx context.Context, userID, advisorID string) (*models.Session, error)
	ListSessions(ctx context.Context, userID, advisorID string, limit, offset int) ([]*models.Session, error)
	// AdvanceSession persists the session's appended response and step
	// advance, guarded by an optimistic check on fromStepIndex.
	AdvanceSession(ctx context.Context, s *models.Session, fromStepIndex int) error

	// Insights
	SaveInsight(ctx context.Context, insight *models.Insight) error
	GetInsight(ctx context.Context, sessionID string) (*models.Insight, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
