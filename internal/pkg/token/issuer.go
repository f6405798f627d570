// internal/pkg/token/issuer.go
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	xerrors "marketlens-service/internal/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// refreshTokenBytes is the entropy of an opaque refresh credential (512 bits).
const refreshTokenBytes = 64

// Credentials is one issued access/refresh pair.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Issuer mints signed access tokens and opaque refresh tokens. It holds no
// mutable state and is safe for concurrent use.
type Issuer struct {
	key      []byte
	issuer   string
	audience string
	ttl      time.Duration
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("token issuer requires a signing key")
	}
	return &Issuer{
		key:      []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.AccessTTL,
	}, nil
}

// TTL returns the fixed access-token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue mints a signed access token for the principal plus a fresh opaque
// refresh token. Signing or RNG failure surfaces as ErrTokenGeneration and is
// never substituted with a degraded credential.
func (i *Issuer) Issue(principalID, identity string, roles []string) (*Credentials, error) {
	now := time.Now()
	expiresAt := now.Add(i.ttl)

	claims := &Claims{
		Identity: identity,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   principalID,
			Audience:  []string{i.audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return nil, fmt.Errorf("%w: sign access token: %v", xerrors.ErrTokenGeneration, err)
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	return &Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

// newRefreshToken draws an opaque credential from crypto/rand. It carries no
// claims and is only ever looked up verbatim in the session store.
func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: refresh token entropy: %v", xerrors.ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
