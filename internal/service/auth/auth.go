// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketlens-service/internal/domain/auth"
	xerrors "marketlens-service/internal/pkg/errors"
	"marketlens-service/internal/pkg/token"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// defaultRole is granted to every newly registered principal.
const defaultRole = "Viewer"

// maxIssueAttempts bounds the retry loop on refresh-token collisions.
const maxIssueAttempts = 3

// PrincipalStore is the persistence contract for principal records.
type PrincipalStore interface {
	FindByEmail(ctx context.Context, email string) (*auth.Principal, error)
	FindByID(ctx context.Context, id string) (*auth.Principal, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CreateWithRole(ctx context.Context, p *auth.Principal, roleName string) error
	GetRoles(ctx context.Context, principalID string) ([]string, error)
}

// SessionStore is the persistence contract for session records. It is the
// single source of truth for active/revoked/expired state.
type SessionStore interface {
	Create(ctx context.Context, s *auth.Session) error
	FindByAccessToken(ctx context.Context, accessToken string) (*auth.Session, error)
	FindByRefreshToken(ctx context.Context, refreshToken string) (*auth.Session, error)
	Rotate(ctx context.Context, oldRefreshToken, newAccessToken, newRefreshToken string, now, newExpiresAt time.Time) (*auth.Session, error)
	Revoke(ctx context.Context, sessionID string) error
	Touch(ctx context.Context, sessionID string, at time.Time) error
}

// SessionCache is a best-effort lookup cache; failures degrade to the store.
type SessionCache interface {
	Put(ctx context.Context, s *auth.Session) error
	GetByAccessToken(ctx context.Context, accessToken string) (*auth.Session, error)
	Drop(ctx context.Context, accessToken string) error
}

// Service composes credential verification, token issuance and the session
// store into the user-facing auth operations.
type Service struct {
	principals PrincipalStore
	sessions   SessionStore
	cache      SessionCache
	verifier   *CredentialVerifier
	tokens     *token.Manager
	logger     *zap.Logger
}

func NewService(
	principals PrincipalStore,
	sessions SessionStore,
	cache SessionCache,
	tokens *token.Manager,
	logger *zap.Logger,
) *Service {
	return &Service{
		principals: principals,
		sessions:   sessions,
		cache:      cache,
		verifier:   NewCredentialVerifier(principals),
		tokens:     tokens,
		logger:     logger,
	}
}

// ========== Registration ==========

// Register creates a new principal with the default role and opens a session.
func (s *Service) Register(ctx context.Context, name, identity, secret string) (*auth.AuthResponse, error) {
	exists, err := s.principals.ExistsByEmail(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, xerrors.ErrEmailAlreadyRegistered
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash secret: %w", err)
	}

	principal := &auth.Principal{
		ID:         ulid.Make().String(),
		Name:       name,
		Email:      identity,
		SecretHash: string(hash),
	}

	// Principal and role grant commit together; a lost race on the email
	// unique index reports the same duplicate failure as the exists check.
	if err := s.principals.CreateWithRole(ctx, principal, defaultRole); err != nil {
		if errors.Is(err, xerrors.ErrDuplicateEntry) {
			return nil, xerrors.ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create principal: %w", err)
	}

	return s.startSession(ctx, principal, []string{defaultRole})
}

// ========== Login ==========

// Login authenticates a principal and opens a new session. Multiple live
// sessions per principal are allowed.
func (s *Service) Login(ctx context.Context, identity, secret string) (*auth.AuthResponse, error) {
	principal, err := s.verifier.Verify(ctx, identity, secret)
	if err != nil {
		return nil, err
	}

	roles, err := s.rolesFor(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	return s.startSession(ctx, principal, roles)
}

// ========== Refresh ==========

// Refresh rotates the credential pair of the session holding refreshToken.
// The rotation is atomic in the store; of two concurrent calls with the same
// token at most one succeeds and the old pair is dead immediately.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.AuthResponse, error) {
	sess, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if !sess.Usable(time.Now()) {
		return nil, xerrors.ErrInvalidOrExpiredToken
	}

	principal, err := s.principals.FindByID(ctx, sess.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load principal: %w", err)
	}
	roles, err := s.rolesFor(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	oldAccessToken := sess.AccessToken

	var rotated *auth.Session
	for attempt := 1; ; attempt++ {
		creds, err := s.tokens.Issuer.Issue(principal.ID, principal.Email, roles)
		if err != nil {
			return nil, err
		}

		rotated, err = s.sessions.Rotate(ctx, refreshToken, creds.AccessToken, creds.RefreshToken, time.Now(), creds.ExpiresAt)
		if errors.Is(err, xerrors.ErrNotFound) {
			// Lost the race to a concurrent rotation, or revoked in between.
			return nil, xerrors.ErrInvalidOrExpiredToken
		}
		if errors.Is(err, xerrors.ErrDuplicateEntry) && attempt < maxIssueAttempts {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to rotate session: %w", err)
		}
		break
	}

	if err := s.cache.Drop(ctx, oldAccessToken); err != nil {
		s.logger.Warn("failed to drop stale session cache entry", zap.Error(err))
	}
	if err := s.cache.Put(ctx, rotated); err != nil {
		s.logger.Warn("failed to cache rotated session", zap.Error(err))
	}

	return s.authResponse(principal, roles, rotated), nil
}

// ========== Logout ==========

// Logout revokes the session holding accessToken. A miss is reported as
// false, not an error; revocation is permanent and idempotent.
func (s *Service) Logout(ctx context.Context, accessToken string) (bool, error) {
	sess, err := s.sessions.FindByAccessToken(ctx, accessToken)
	if errors.Is(err, xerrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up session: %w", err)
	}

	if err := s.sessions.Revoke(ctx, sess.ID); err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}

	if err := s.cache.Drop(ctx, accessToken); err != nil {
		s.logger.Warn("failed to drop session cache entry", zap.Error(err))
	}

	return true, nil
}

// ========== Validate ==========

// Validate reports whether accessToken belongs to an active, unexpired
// session. On success it updates last activity; a false result has no side
// effect.
func (s *Service) Validate(ctx context.Context, accessToken string) (bool, error) {
	now := time.Now()

	if cached, err := s.cache.GetByAccessToken(ctx, accessToken); err == nil {
		if !cached.Usable(now) {
			return false, nil
		}
		s.touch(ctx, cached.ID, now)
		return true, nil
	} else if !errors.Is(err, xerrors.ErrNotFound) {
		s.logger.Warn("session cache lookup failed, falling back to store", zap.Error(err))
	}

	sess, err := s.sessions.FindByAccessToken(ctx, accessToken)
	if errors.Is(err, xerrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up session: %w", err)
	}
	if !sess.Usable(now) {
		return false, nil
	}

	s.touch(ctx, sess.ID, now)
	if err := s.cache.Put(ctx, sess); err != nil {
		s.logger.Warn("failed to cache session", zap.Error(err))
	}
	return true, nil
}

// Authenticate verifies the token signature and claims, then checks the
// session is still usable. Used by the request middleware.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*token.Claims, error) {
	claims, err := s.tokens.Verifier.Verify(accessToken)
	if err != nil {
		return nil, xerrors.ErrInvalidOrExpiredToken
	}

	valid, err := s.Validate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, xerrors.ErrInvalidOrExpiredToken
	}

	return claims, nil
}

// ========== Helpers ==========

// startSession issues a credential pair and persists the session, re-issuing
// on the astronomically rare refresh-token collision.
func (s *Service) startSession(ctx context.Context, principal *auth.Principal, roles []string) (*auth.AuthResponse, error) {
	var sess *auth.Session
	for attempt := 1; ; attempt++ {
		creds, err := s.tokens.Issuer.Issue(principal.ID, principal.Email, roles)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		sess = &auth.Session{
			ID:             ulid.Make().String(),
			PrincipalID:    principal.ID,
			AccessToken:    creds.AccessToken,
			RefreshToken:   creds.RefreshToken,
			Active:         true,
			CreatedAt:      now,
			ExpiresAt:      creds.ExpiresAt,
			LastActivityAt: now,
		}

		err = s.sessions.Create(ctx, sess)
		if errors.Is(err, xerrors.ErrDuplicateEntry) && attempt < maxIssueAttempts {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		break
	}

	if err := s.cache.Put(ctx, sess); err != nil {
		s.logger.Warn("failed to cache session", zap.Error(err))
	}

	return s.authResponse(principal, roles, sess), nil
}

func (s *Service) rolesFor(ctx context.Context, principalID string) ([]string, error) {
	roles, err := s.principals.GetRoles(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles: %w", err)
	}
	if len(roles) == 0 {
		roles = []string{defaultRole}
	}
	return roles, nil
}

func (s *Service) touch(ctx context.Context, sessionID string, at time.Time) {
	// Diagnostic metadata; a failed write never fails the validation.
	if err := s.sessions.Touch(ctx, sessionID, at); err != nil {
		s.logger.Warn("failed to update session activity", zap.Error(err))
	}
}

func (s *Service) authResponse(principal *auth.Principal, roles []string, sess *auth.Session) *auth.AuthResponse {
	return &auth.AuthResponse{
		PrincipalID:  principal.ID,
		Name:         principal.Name,
		Identity:     principal.Email,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt,
		Roles:        roles,
	}
}
