// internal/repository/postgres/session_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketlens-service/internal/domain/auth"
	xerrors "marketlens-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row
func (r *SessionRepository) Create(ctx context.Context, s *auth.Session) error {
	query := `
		INSERT INTO sessions (id, principal_id, access_token, refresh_token, active, created_at, expires_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		s.ID, s.PrincipalID, s.AccessToken, s.RefreshToken,
		s.Active, s.CreatedAt, s.ExpiresAt, s.LastActivityAt,
	)
	if isUniqueViolation(err) {
		// Refresh-token uniqueness collision; the caller re-issues and retries.
		return xerrors.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByAccessToken retrieves a session by its access token
func (r *SessionRepository) FindByAccessToken(ctx context.Context, accessToken string) (*auth.Session, error) {
	return r.findByToken(ctx, "access_token", accessToken)
}

// FindByRefreshToken retrieves a session by its refresh token
func (r *SessionRepository) FindByRefreshToken(ctx context.Context, refreshToken string) (*auth.Session, error) {
	return r.findByToken(ctx, "refresh_token", refreshToken)
}

func (r *SessionRepository) findByToken(ctx context.Context, column, value string) (*auth.Session, error) {
	query := fmt.Sprintf(`
		SELECT id, principal_id, access_token, refresh_token, active, created_at, expires_at, last_activity_at
		FROM sessions
		WHERE %s = $1
	`, column)

	var s auth.Session
	err := r.db.QueryRow(ctx, query, value).Scan(
		&s.ID, &s.PrincipalID, &s.AccessToken, &s.RefreshToken,
		&s.Active, &s.CreatedAt, &s.ExpiresAt, &s.LastActivityAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return &s, nil
}

// Rotate atomically replaces the credential pair of the session holding
// oldRefreshToken. The guard re-checks active && unexpired inside the same
// statement, so of two concurrent rotations at most one sees a row; the other
// gets ErrNotFound. The old pair is dead the moment this commits.
func (r *SessionRepository) Rotate(ctx context.Context, oldRefreshToken, newAccessToken, newRefreshToken string, now, newExpiresAt time.Time) (*auth.Session, error) {
	query := `
		UPDATE sessions
		SET access_token = $2, refresh_token = $3, expires_at = $4, last_activity_at = $5
		WHERE refresh_token = $1 AND active AND expires_at > $5
		RETURNING id, principal_id, access_token, refresh_token, active, created_at, expires_at, last_activity_at
	`

	var s auth.Session
	err := r.db.QueryRow(ctx, query, oldRefreshToken, newAccessToken, newRefreshToken, newExpiresAt, now).Scan(
		&s.ID, &s.PrincipalID, &s.AccessToken, &s.RefreshToken,
		&s.Active, &s.CreatedAt, &s.ExpiresAt, &s.LastActivityAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if isUniqueViolation(err) {
		return nil, xerrors.ErrDuplicateEntry
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	return &s, nil
}

// Revoke marks the session inactive. Revoking an already-revoked session is a
// no-op success; active=false is never reversed.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string) error {
	query := `UPDATE sessions SET active = FALSE WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// Touch updates last_activity_at only. Last write wins across concurrent
// validations; this is diagnostic metadata.
func (r *SessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	query := `UPDATE sessions SET last_activity_at = $2 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, sessionID, at); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}
