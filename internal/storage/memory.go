package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/finapp/advisor-engine/internal/models"
)

// MemoryRepository is an in-memory Repository used in tests and for local
// development without a database. It applies the same optimistic step-index
// guard as the PostgreSQL implementation.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	insights map[string]*models.Insight
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*models.Session),
		insights: make(map[string]*models.Insight),
	}
}

// CreateSession stores a new session
func (r *MemoryRepository) CreateSession(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("session already exists: %s", s.ID)
	}
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

// GetSession returns a copy of the stored session, or nil
func (r *MemoryRepository) GetSession(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

// GetActiveSession returns the newest in-progress session for the pair
func (r *MemoryRepository) GetActiveSession(_ context.Context, userID, advisorID string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *models.Session
	for _, s := range r.sessions {
		if s.UserID != userID || s.AdvisorID != advisorID || s.Status != models.SessionInProgress {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneSession(latest), nil
}

// ListSessions returns a user's sessions, newest first
func (r *MemoryRepository) ListSessions(_ context.Context, userID, advisorID string, limit, offset int) ([]*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sessions []*models.Session
	for _, s := range r.sessions {
		if s.UserID != userID {
			continue
		}
		if advisorID != "" && s.AdvisorID != advisorID {
			continue
		}
		sessions = append(sessions, cloneSession(s))
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	if offset > 0 {
		if offset >= len(sessions) {
			return nil, nil
		}
		sessions = sessions[offset:]
	}
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

// AdvanceSession applies an optimistic update keyed on the previous step index
func (r *MemoryRepository) AdvanceSession(_ context.Context, s *models.Session, fromStepIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[s.ID]
	if !ok {
		return fmt.Errorf("session not found: %s", s.ID)
	}
	if stored.CurrentStepIndex != fromStepIndex {
		return fmt.Errorf("%w: session %s at step %d, expected %d",
			ErrStaleSession, s.ID, stored.CurrentStepIndex, fromStepIndex)
	}
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

// SaveInsight stores a computed insight
func (r *MemoryRepository) SaveInsight(_ context.Context, insight *models.Insight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *insight
	r.insights[insight.SessionID] = &copied
	return nil
}

// GetInsight returns the stored insight for a session, or nil
func (r *MemoryRepository) GetInsight(_ context.Context, sessionID string) (*models.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	insight, ok := r.insights[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *insight
	return &copied, nil
}

// Ping always succeeds
func (r *MemoryRepository) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}

func cloneSession(s *models.Session) *models.Session {
	copied := *s
	copied.Responses = append([]models.Response(nil), s.Responses...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		copied.CompletedAt = &t
	}
	return &copied
}
