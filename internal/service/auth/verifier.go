// internal/service/auth/verifier.go
package auth

import (
	"context"
	"errors"

	"marketlens-service/internal/domain/auth"
	xerrors "marketlens-service/internal/pkg/errors"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the identity is unknown so both failure
// paths cost one bcrypt verification. Generated from a throwaway input.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// CredentialVerifier checks a submitted identity/secret pair against stored
// principal records.
type CredentialVerifier struct {
	principals PrincipalStore
}

func NewCredentialVerifier(principals PrincipalStore) *CredentialVerifier {
	return &CredentialVerifier{principals: principals}
}

// Verify returns the principal when the secret matches its stored hash.
// Unknown identity and wrong secret both yield ErrInvalidCredentials; the
// caller cannot tell them apart.
func (v *CredentialVerifier) Verify(ctx context.Context, identity, secret string) (*auth.Principal, error) {
	principal, err := v.principals.FindByEmail(ctx, identity)
	if errors.Is(err, xerrors.ErrNotFound) {
		bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(secret))
		return nil, xerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(principal.SecretHash), []byte(secret)); err != nil {
		return nil, xerrors.ErrInvalidCredentials
	}

	return principal, nil
}
