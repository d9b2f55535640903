package firebase

import (
	"context"
	"sync"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/eventflow/pkg/eventflow/identity"
	"github.com/code-payments/eventflow/pkg/metrics"
)

const (
	metricsStructName = "identity.firebase.provider"
)

type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Provider is an identity.Provider backed by Firebase Authentication. The
// signed in user is established from a Firebase ID token, and remains active
// until the token expires or SignOut is called.
type Provider struct {
	log      *logrus.Entry
	verifier tokenVerifier
	now      func() time.Time

	mu        sync.RWMutex
	uid       string
	expiresAt time.Time
}

// New returns a new Firebase Authentication backed identity.Provider
func New(client *auth.Client) *Provider {
	return newProvider(client)
}

func newProvider(verifier tokenVerifier) *Provider {
	return &Provider{
		log:      logrus.StandardLogger().WithField("type", "identity/firebase"),
		verifier: verifier,
		now:      time.Now,
	}
}

// SignIn verifies a Firebase ID token and makes its subject the active user
func (p *Provider) SignIn(ctx context.Context, idToken string) (string, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SignIn")
	defer tracer.End()

	token, err := p.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		tracer.OnError(err)
		return "", errors.Wrap(err, "error verifying id token")
	}

	if len(token.UID) == 0 {
		return "", errors.New("id token has no subject")
	}

	p.mu.Lock()
	p.uid = token.UID
	p.expiresAt = time.Unix(token.Expires, 0)
	p.mu.Unlock()

	p.log.WithFields(logrus.Fields{
		"method":     "SignIn",
		"user":       token.UID,
		"expires_at": p.expiresAt,
	}).Debug("user signed in")

	return token.UID, nil
}

// SignOut clears the active user
func (p *Provider) SignOut() {
	p.mu.Lock()
	p.uid = ""
	p.expiresAt = time.Time{}
	p.mu.Unlock()
}

// GetActiveUserId implements identity.Provider.GetActiveUserId
func (p *Provider) GetActiveUserId(_ context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.uid) == 0 || !p.now().Before(p.expiresAt) {
		return "", identity.ErrUnauthenticated
	}
	return p.uid, nil
}
