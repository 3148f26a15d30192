package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/finapp/advisor-engine/internal/analytics"
	"github.com/finapp/advisor-engine/internal/catalog"
	"github.com/finapp/advisor-engine/internal/models"
	"github.com/finapp/advisor-engine/internal/storage"
)

// InsightCache is the read-through cache consulted before recomputing an
// insight. Satisfied by cache.InsightCache; nil disables caching.
type InsightCache interface {
	Get(ctx context.Context, sessionID string) (*models.Insight, error)
	Set(ctx context.Context, insight *models.Insight) error
}

// Service orchestrates the questionnaire engine: catalog lookups, session
// state transitions, persistence at the load/save boundaries, insight
// assembly, caching and analytics. All computation between those boundaries
// is pure and in-memory.
type Service struct {
	catalog *catalog.Catalog
	repo    storage.Repository
	cache   InsightCache
	events  *analytics.Dispatcher
	now     func() time.Time
}

// NewService creates the engine service. cache and events may be nil.
func NewService(cat *catalog.Catalog, repo storage.Repository, insightCache InsightCache, events *analytics.Dispatcher) *Service {
	return &Service{
		catalog: cat,
		repo:    repo,
		cache:   insightCache,
		events:  events,
		now:     time.Now,
	}
}

// StartSession returns the user's in-progress session for the advisor, or
// creates a new one. With restart set a fresh session is always created and
// the previous one is retained as history.
func (s *Service) StartSession(ctx context.Context, req models.StartSessionRequest) (*models.Session, error) {
	def, err := s.catalog.Get(req.AdvisorID)
	if err != nil {
		return nil, err
	}

	if !req.Restart {
		existing, err := s.repo.GetActiveSession(ctx, req.UserID, req.AdvisorID)
		if err != nil {
			return nil, fmt.Errorf("failed to load active session: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	now := s.now().UTC()
	session := &models.Session{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		AdvisorID:      req.AdvisorID,
		CatalogVersion: def.Version,
		Responses:      []models.Response{},
		Status:         models.SessionInProgress,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// An advisor with no steps has nothing to ask; the session is born
	// terminal.
	if def.StepCount() == 0 {
		session.Status = models.SessionCompleted
		completed := now
		session.CompletedAt = &completed
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.emit(analytics.Event{
		Type:      analytics.EventSessionStarted,
		SessionID: session.ID,
		UserID:    session.UserID,
		AdvisorID: session.AdvisorID,
		At:        now,
	})

	return session, nil
}

// GetSession loads a session by id.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return session, nil
}

// CurrentStep reports the step awaiting an answer, or the completed marker.
func (s *Service) CurrentStep(ctx context.Context, sessionID string) (*models.CurrentStepResponse, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	def, err := s.catalog.Get(session.AdvisorID)
	if err != nil {
		return nil, err
	}

	tracker := NewTracker(def, session)
	return &models.CurrentStepResponse{
		SessionID:       session.ID,
		Status:          session.Status,
		StepIndex:       session.CurrentStepIndex,
		StepCount:       def.StepCount(),
		ProgressPercent: tracker.Progress(),
		Completed:       session.IsComplete(),
		Step:            tracker.CurrentStep(),
	}, nil
}

// Submit validates and records one answer, advancing the session. A
// concurrent submit that already advanced the persisted session surfaces as
// ErrStaleSession; the caller reloads and retries with the fresh step. When
// the submit completes the session the response carries the insight.
func (s *Service) Submit(ctx context.Context, sessionID string, req models.SubmitAnswerRequest) (*models.SubmitAnswerResponse, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	def, err := s.catalog.Get(session.AdvisorID)
	if err != nil {
		return nil, err
	}

	fromIndex := session.CurrentStepIndex
	tracker := NewTracker(def, session)
	if _, err := tracker.Submit(req.QuestionID, req.Answer, req.Confidence, s.now().UTC()); err != nil {
		return nil, err
	}

	if err := s.repo.AdvanceSession(ctx, session, fromIndex); err != nil {
		if errors.Is(err, storage.ErrStaleSession) {
			return nil, fmt.Errorf("%w: %s", ErrStaleSession, sessionID)
		}
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.emit(analytics.Event{
		Type:      analytics.EventAnswerSubmitted,
		SessionID: session.ID,
		UserID:    session.UserID,
		AdvisorID: session.AdvisorID,
		Fields: map[string]string{
			"question_id": req.QuestionID,
			"step_index":  strconv.Itoa(fromIndex),
			"progress":    strconv.Itoa(tracker.Progress()),
		},
		At: session.UpdatedAt,
	})

	result := &models.SubmitAnswerResponse{
		SessionID:       session.ID,
		Status:          session.Status,
		ProgressPercent: tracker.Progress(),
		NextStep:        tracker.CurrentStep(),
	}

	if session.IsComplete() {
		s.emit(analytics.Event{
			Type:      analytics.EventSessionCompleted,
			SessionID: session.ID,
			UserID:    session.UserID,
			AdvisorID: session.AdvisorID,
			At:        session.UpdatedAt,
		})

		insight, err := s.computeInsight(ctx, def, session)
		if err != nil {
			return nil, err
		}
		result.Insight = insight
	}

	return result, nil
}

// Insight returns the insight for a completed session: cached copy when
// available, persisted copy next, recomputed otherwise. Recomputation is
// idempotent, so every path returns identical content.
func (s *Service) Insight(ctx context.Context, sessionID string) (*models.Insight, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsComplete() {
		return nil, fmt.Errorf("%w: session %s at step %d", ErrSessionNotComplete, session.ID, session.CurrentStepIndex)
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, sessionID)
		if err != nil {
			slog.Warn("insight cache read failed", "session_id", sessionID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	stored, err := s.repo.GetInsight(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load insight: %w", err)
	}
	if stored != nil {
		s.cacheInsight(ctx, stored)
		return stored, nil
	}

	def, err := s.catalog.Get(session.AdvisorID)
	if err != nil {
		return nil, err
	}
	return s.computeInsight(ctx, def, session)
}

// ListSessions returns a user's session history, newest first.
func (s *Service) ListSessions(ctx context.Context, userID, advisorID string, limit, offset int) ([]*models.Session, error) {
	return s.repo.ListSessions(ctx, userID, advisorID, limit, offset)
}

// Ping checks the service's persistence dependency.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) computeInsight(ctx context.Context, def *models.AdvisorDefinition, session *models.Session) (*models.Insight, error) {
	insight, err := BuildInsight(def, session, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveInsight(ctx, insight); err != nil {
		return nil, fmt.Errorf("failed to save insight: %w", err)
	}
	s.cacheInsight(ctx, insight)

	s.emit(analytics.Event{
		Type:      analytics.EventInsightGenerated,
		SessionID: session.ID,
		UserID:    session.UserID,
		AdvisorID: session.AdvisorID,
		Fields: map[string]string{
			"personalization_score": strconv.Itoa(insight.PersonalizationScore),
		},
		At: insight.GeneratedAt,
	})

	return insight, nil
}

func (s *Service) cacheInsight(ctx context.Context, insight *models.Insight) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, insight); err != nil {
		slog.Warn("insight cache write failed", "session_id", insight.SessionID, "error", err)
	}
}

func (s *Service) emit(e analytics.Event) {
	if s.events != nil {
		s.events.Emit(e)
	}
}
