package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finapp/advisor-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

const sessionColumns = `id, user_id, advisor_id, catalog_version, current_step_index, responses, status, created_at, updated_at, completed_at`

// CreateSession creates a new session record
func (r *PostgresRepository) CreateSession(ctx context.Context, s *models.Session) error {
	responsesJSON, err := json.Marshal(s.Responses)
	if err != nil {
		return fmt.Errorf("failed to marshal responses: %w", err)
	}

	query := `
		INSERT INTO sessions (id, user_id, advisor_id, catalog_version, current_step_index, responses, status, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.AdvisorID,
		s.CatalogVersion,
		s.CurrentStepIndex,
		responsesJSON,
		string(s.Status),
		s.CreatedAt,
		s.UpdatedAt,
		nullTime(s.CompletedAt),
	)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID
func (r *PostgresRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)

	s, err := r.scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// GetActiveSession returns the most recent in-progress session for a user and
// advisor, or nil when none exists.
func (r *PostgresRepository) GetActiveSession(ctx context.Context, userID, advisorID string) (*models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sessions
		WHERE user_id = $1 AND advisor_id = $2 AND status = 'in_progress'
		ORDER BY created_at DESC
		LIMIT 1
	`, sessionColumns)

	s, err := r.scanSession(r.pool.QueryRow(ctx, query, userID, advisorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return s, nil
}

// ListSessions returns sessions for a user, newest first, with optional
// advisor filter. Restarted sessions appear alongside their predecessors.
func (r *PostgresRepository) ListSessions(ctx context.Context, userID, advisorID string, limit, offset int) ([]*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE user_id = $1`, sessionColumns)
	args := []interface{}{userID}
	argNum := 2

	if advisorID != "" {
		query += fmt.Sprintf(" AND advisor_id = $%d", argNum)
		args = append(args, advisorID)
		argNum++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, limit)
		argNum++
	}

	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// AdvanceSession persists a step advance. The WHERE clause on the previous
// step index serializes concurrent submits: a stale writer updates zero rows
// and gets ErrStaleSession instead of silently double-advancing.
func (r *PostgresRepository) AdvanceSession(ctx context.Context, s *models.Session, fromStepIndex int) error {
	responsesJSON, err := json.Marshal(s.Responses)
	if err != nil {
		return fmt.Errorf("failed to marshal responses: %w", err)
	}

	query := `
		UPDATE sessions
		SET current_step_index = $2, responses = $3, status = $4, updated_at = $5, completed_at = $6
		WHERE id = $1 AND current_step_index = $7
	`

	result, err := r.pool.Exec(ctx, query,
		s.ID,
		s.CurrentStepIndex,
		responsesJSON,
		string(s.Status),
		s.UpdatedAt,
		nullTime(s.CompletedAt),
		fromStepIndex,
	)

	if err != nil {
		return fmt.Errorf("failed to advance session: %w", err)
	}

	if result.RowsAffected() == 0 {
		existing, getErr := r.GetSession(ctx, s.ID)
		if getErr != nil {
			return getErr
		}
		if existing == nil {
			return fmt.Errorf("session not found: %s", s.ID)
		}
		return fmt.Errorf("%w: session %s at step %d, expected %d",
			ErrStaleSession, s.ID, existing.CurrentStepIndex, fromStepIndex)
	}

	return nil
}

// SaveInsight stores a computed insight, replacing any previous record for the
// session. Recomputation is idempotent, so a replace is always safe.
func (r *PostgresRepository) SaveInsight(ctx context.Context, insight *models.Insight) error {
	payload, err := json.Marshal(insight)
	if err != nil {
		return fmt.Errorf("failed to marshal insight: %w", err)
	}

	query := `
		INSERT INTO insights (session_id, advisor_id, catalog_version, payload, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE
		SET catalog_version = EXCLUDED.catalog_version, payload = EXCLUDED.payload, generated_at = EXCLUDED.generated_at
	`

	_, err = r.pool.Exec(ctx, query,
		insight.SessionID,
		insight.AdvisorID,
		insight.CatalogVersion,
		payload,
		insight.GeneratedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save insight: %w", err)
	}

	return nil
}

// GetInsight retrieves a previously computed insight by session ID
func (r *PostgresRepository) GetInsight(ctx context.Context, sessionID string) (*models.Insight, error) {
	query := `SELECT payload FROM insights WHERE session_id = $1`

	var payload []byte
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}

	var insight models.Insight
	if err := json.Unmarshal(payload, &insight); err != nil {
		return nil, fmt.Errorf("failed to unmarshal insight: %w", err)
	}

	return &insight, nil
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scanning
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRepository) scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	var statusStr string
	var completedAt sql.NullTime
	var responsesJSON []byte

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.AdvisorID,
		&s.CatalogVersion,
		&s.CurrentStepIndex,
		&responsesJSON,
		&statusStr,
		&s.CreatedAt,
		&s.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = models.SessionStatus(statusStr)
	if completedAt.Valid {
		s.CompletedAt = &completedAt.Time
	}

	if responsesJSON != nil {
		if err := json.Unmarshal(responsesJSON, &s.Responses); err != nil {
			return nil, fmt.Errorf("failed to unmarshal responses: %w", err)
		}
	}

	return &s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
