// internal/pkg/token/manager.go
package token

import "time"

// Config carries the signing material and claim values. It is injected at
// construction; nothing in this package reads ambient state.
type Config struct {
	SigningKey string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
}

type Manager struct {
	Issuer   *Issuer
	Verifier *Verifier
}

func NewManager(cfg Config) (*Manager, error) {
	iss, err := NewIssuer(cfg)
	if err != nil {
		return nil, err
	}
	return &Manager{
		Issuer:   iss,
		Verifier: NewVerifier(cfg),
	}, nil
}
