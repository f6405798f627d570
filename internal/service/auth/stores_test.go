package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"marketlens-service/internal/domain/auth"
	xerrors "marketlens-service/internal/pkg/errors"
)

// In-memory store fakes mirroring the Postgres repositories' contracts,
// including the atomic rotate guard and refresh-token uniqueness.

type memPrincipalStore struct {
	mu    sync.Mutex
	byID  map[string]*auth.Principal
	roles map[string][]string
}

func newMemPrincipalStore() *memPrincipalStore {
	return &memPrincipalStore{
		byID:  make(map[string]*auth.Principal),
		roles: make(map[string][]string),
	}
}

func (s *memPrincipalStore) FindByEmail(_ context.Context, email string) (*auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *memPrincipalStore) FindByID(_ context.Context, id string) (*auth.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPrincipalStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if strings.EqualFold(p.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memPrincipalStore) CreateWithRole(_ context.Context, p *auth.Principal, roleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if strings.EqualFold(existing.Email, p.Email) {
			return xerrors.ErrDuplicateEntry
		}
	}
	p.CreatedAt = time.Now()
	cp := *p
	s.byID[p.ID] = &cp
	s.roles[p.ID] = []string{roleName}
	return nil
}

func (s *memPrincipalStore) GetRoles(_ context.Context, principalID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.roles[principalID]...), nil
}

func (s *memPrincipalStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type memSessionStore struct {
	mu          sync.Mutex
	byID        map[string]*auth.Session
	failCreates int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{byID: make(map[string]*auth.Session)}
}

func (s *memSessionStore) Create(_ context.Context, sess *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreates > 0 {
		s.failCreates--
		return xerrors.ErrDuplicateEntry
	}
	for _, existing := range s.byID {
		if existing.RefreshToken == sess.RefreshToken {
			return xerrors.ErrDuplicateEntry
		}
	}
	cp := *sess
	s.byID[sess.ID] = &cp
	return nil
}

func (s *memSessionStore) FindByAccessToken(_ context.Context, accessToken string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.byID {
		if sess.AccessToken == accessToken {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *memSessionStore) FindByRefreshToken(_ context.Context, refreshToken string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.byID {
		if sess.RefreshToken == refreshToken {
			cp := *sess
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *memSessionStore) Rotate(_ context.Context, oldRefreshToken, newAccessToken, newRefreshToken string, now, newExpiresAt time.Time) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *auth.Session
	for _, sess := range s.byID {
		if sess.RefreshToken == oldRefreshToken && sess.Usable(now) {
			target = sess
			break
		}
	}
	if target == nil {
		return nil, xerrors.ErrNotFound
	}
	for _, sess := range s.byID {
		if sess.RefreshToken == newRefreshToken {
			return nil, xerrors.ErrDuplicateEntry
		}
	}

	target.AccessToken = newAccessToken
	target.RefreshToken = newRefreshToken
	target.ExpiresAt = newExpiresAt
	target.LastActivityAt = now

	cp := *target
	return &cp, nil
}

func (s *memSessionStore) Revoke(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byID[sessionID]; ok {
		sess.Active = false
	}
	return nil
}

func (s *memSessionStore) Touch(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byID[sessionID]; ok {
		sess.LastActivityAt = at
	}
	return nil
}

func (s *memSessionStore) get(sessionID string) *auth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byID[sessionID]; ok {
		cp := *sess
		return &cp
	}
	return nil
}

func (s *memSessionStore) bySessionAccessToken(accessToken string) *auth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.byID {
		if sess.AccessToken == accessToken {
			cp := *sess
			return &cp
		}
	}
	return nil
}

func (s *memSessionStore) expire(sessionID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byID[sessionID]; ok {
		sess.ExpiresAt = expiresAt
	}
}

func (s *memSessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// noopCache never stores; every lookup falls through to the session store.
// The real Redis cache expires entries at the session deadline, which the map
// fake cannot model, so expiry tests use this instead.
type noopCache struct{}

func (noopCache) Put(context.Context, *auth.Session) error { return nil }
func (noopCache) GetByAccessToken(context.Context, string) (*auth.Session, error) {
	return nil, xerrors.ErrNotFound
}
func (noopCache) Drop(context.Context, string) error { return nil }

type memSessionCache struct {
	mu      sync.Mutex
	byToken map[string]*auth.Session
}

func newMemSessionCache() *memSessionCache {
	return &memSessionCache{byToken: make(map[string]*auth.Session)}
}

func (c *memSessionCache) Put(_ context.Context, sess *auth.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *sess
	c.byToken[sess.AccessToken] = &cp
	return nil
}

func (c *memSessionCache) GetByAccessToken(_ context.Context, accessToken string) (*auth.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.byToken[accessToken]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (c *memSessionCache) Drop(_ context.Context, accessToken string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byToken, accessToken)
	return nil
}
