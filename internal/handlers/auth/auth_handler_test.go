package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	domain "marketlens-service/internal/domain/auth"
	xerrors "marketlens-service/internal/pkg/errors"
	"marketlens-service/internal/pkg/token"
	authsvc "marketlens-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Minimal in-memory stores backing a real auth service, so the handler tests
// exercise the full request path below the HTTP layer.

type fakePrincipalStore struct {
	mu    sync.Mutex
	byID  map[string]*domain.Principal
	roles map[string][]string
}

func newFakePrincipalStore() *fakePrincipalStore {
	return &fakePrincipalStore{
		byID:  make(map[string]*domain.Principal),
		roles: make(map[string][]string),
	}
}

func (s *fakePrincipalStore) FindByEmail(_ context.Context, email string) (*domain.Principal, error) {
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

func (s *fakePrincipalStore) FindByID(_ context.Context, id string) (*domain.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakePrincipalStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if strings.EqualFold(p.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePrincipalStore) CreateWithRole(_ context.Context, p *domain.Principal, roleName string) error {
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

func (s *fakePrincipalStore) GetRoles(_ context.Context, principalID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.roles[principalID]...), nil
}

type fakeSessionStore struct {
	mu   sync.Mutex
	byID map[string]*domain.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{byID: make(map[string]*domain.Session)}
}

func (s *fakeSessionStore) Create(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.RefreshToken == sess.RefreshToken {
			return xerrors.ErrDuplicateEntry
		}
	}
	cp := *sess
	s.byID[sess.ID] = &cp
	return nil
}

func (s *fakeSessionStore) FindByAccessToken(_ context.Context, accessToken string) (*domain.Session, error) {
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

func (s *fakeSessionStore) FindByRefreshToken(_ context.Context, refreshToken string) (*domain.Session, error) {
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

func (s *fakeSessionStore) Rotate(_ context.Context, oldRefreshToken, newAccessToken, newRefreshToken string, now, newExpiresAt time.Time) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.byID {
		if sess.RefreshToken == oldRefreshToken && sess.Usable(now) {
			sess.AccessToken = newAccessToken
			sess.RefreshToken = newRefreshToken
			sess.ExpiresAt = newExpiresAt
			sess.LastActivityAt = now
			cp := *sess
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (s *fakeSessionStore) Revoke(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byID[sessionID]; ok {
		sess.Active = false
	}
	return nil
}

func (s *fakeSessionStore) Touch(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byID[sessionID]; ok {
		sess.LastActivityAt = at
	}
	return nil
}

type fakeCache struct{}

func (fakeCache) Put(context.Context, *domain.Session) error { return nil }
func (fakeCache) GetByAccessToken(context.Context, string) (*domain.Session, error) {
	return nil, xerrors.ErrNotFound
}
func (fakeCache) Drop(context.Context, string) error { return nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager, err := token.NewManager(token.Config{
		SigningKey: "test-signing-key",
		Issuer:     "marketlens",
		Audience:   "marketlens-dashboard",
		AccessTTL:  8 * time.Hour,
	})
	require.NoError(t, err)

	svc := authsvc.NewService(newFakePrincipalStore(), newFakeSessionStore(), fakeCache{}, manager, zap.NewNop())
	handler := NewAuthHandler(svc, zap.NewNop())

	r := gin.New()
	grp := r.Group("/auth")
	{
		grp.POST("/register", handler.Register)
		grp.POST("/login", handler.Login)
		grp.POST("/refresh", handler.Refresh)
		grp.POST("/logout", handler.Logout)
		grp.GET("/validate", handler.Validate)
	}
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeAuthResponse(t *testing.T, w *httptest.ResponseRecorder) domain.AuthResponse {
	t.Helper()
	var res domain.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func TestAuthLifecycle(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"name": "Ana", "identity": "ana@x.com", "secret": "Secret123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	reg := decodeAuthResponse(t, w)
	assert.Equal(t, "Ana", reg.Name)
	assert.Equal(t, "ana@x.com", reg.Identity)
	assert.Equal(t, []string{"Viewer"}, reg.Roles)
	assert.NotEmpty(t, reg.AccessToken)
	assert.NotEmpty(t, reg.RefreshToken)

	w = doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
		"identity": "ana@x.com", "secret": "wrong-secret",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/login", gin.H{
		"identity": "ana@x.com", "secret": "Secret123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	login := decodeAuthResponse(t, w)
	assert.Equal(t, reg.PrincipalID, login.PrincipalID)

	w = doJSON(t, r, http.MethodGet, "/auth/validate", nil, login.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"valid":true}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/auth/logout", nil, login.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/auth/validate", nil, login.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"valid":false}`, w.Body.String())
}

func TestRegisterDuplicateIdentityReturnsBadRequest(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"name": "Ana", "identity": "ana@x.com", "secret": "Secret123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"name": "Other", "identity": "ana@x.com", "secret": "Different1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterRejectsMalformedBody(t *testing.T) {
	r := newTestRouter(t)

	// Secret shorter than the minimum fails binding validation.
	w := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"name": "Ana", "identity": "ana@x.com", "secret": "short",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{not-json"))
	req.Header.Set("Content-Type", "application/json")
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusBadRequest, w2.Code)
}

func TestRefreshRotatesAndRejectsReplayedToken(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register", gin.H{
		"name": "Ana", "identity": "ana@x.com", "secret": "Secret123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	reg := decodeAuthResponse(t, w)

	w = doJSON(t, r, http.MethodPost, "/auth/refresh", gin.H{
		"refreshToken": reg.RefreshToken,
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	rotated := decodeAuthResponse(t, w)
	assert.NotEqual(t, reg.RefreshToken, rotated.RefreshToken)

	w = doJSON(t, r, http.MethodPost, "/auth/refresh", gin.H{
		"refreshToken": reg.RefreshToken,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/auth/validate", nil, rotated.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshUnknownTokenReturnsUnauthorized(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/refresh", gin.H{
		"refreshToken": "never-issued",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutWithoutTokenReturnsBadRequest(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/logout", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutUnknownTokenReturnsBadRequest(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/logout", nil, "not-a-session")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidateWithoutTokenReturnsUnauthorized(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/auth/validate", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"valid":false}`, w.Body.String())
}
