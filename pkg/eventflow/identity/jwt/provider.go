package jwt

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/code-payments/eventflow/pkg/eventflow/identity"
)

// Provider is an identity.Provider for self-issued session tokens, used with
// local emulators and development backends. Tokens are EdDSA signed JWTs
// whose subject is the user ID.
type Provider struct {
	publicKey ed25519.PublicKey
	now       func() time.Time

	mu        sync.RWMutex
	userId    string
	expiresAt *time.Time
}

// New returns a new identity.Provider verifying tokens against publicKey
func New(publicKey ed25519.PublicKey) *Provider {
	return &Provider{
		publicKey: publicKey,
		now:       time.Now,
	}
}

// SignIn verifies a session token and makes its subject the active user
func (p *Provider) SignIn(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(
		token,
		&jwt.RegisteredClaims{},
		func(_ *jwt.Token) (interface{}, error) {
			return p.publicKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return "", errors.Wrap(err, "error parsing session token")
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || len(claims.Subject) == 0 {
		return "", errors.New("session token has no subject")
	}

	p.mu.Lock()
	p.userId = claims.Subject
	p.expiresAt = nil
	if claims.ExpiresAt != nil {
		expiresAt := claims.ExpiresAt.Time
		p.expiresAt = &expiresAt
	}
	p.mu.Unlock()

	return claims.Subject, nil
}

// SignOut clears the active user
func (p *Provider) SignOut() {
	p.mu.Lock()
	p.userId = ""
	p.expiresAt = nil
	p.mu.Unlock()
}

// GetActiveUserId implements identity.Provider.GetActiveUserId
func (p *Provider) GetActiveUserId(_ context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.userId) == 0 {
		return "", identity.ErrUnauthenticated
	}

	if p.expiresAt != nil && !p.now().Before(*p.expiresAt) {
		return "", identity.ErrUnauthenticated
	}

	return p.userId, nil
}

// IssueToken signs a session token for userId. A zero ttl issues a token
// without expiry.
func IssueToken(privateKey ed25519.PrivateKey, userId string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:  userId,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(privateKey)
}
