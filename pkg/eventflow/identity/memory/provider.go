package memory

import (
	"context"
	"sync"

	"github.com/code-payments/eventflow/pkg/eventflow/identity"
)

// Provider is an in memory identity.Provider with a settable active user
type Provider struct {
	mu     sync.RWMutex
	userId string
	calls  int
}

// New returns a new identity.Provider. An empty userId starts unauthenticated.
func New(userId string) *Provider {
	return &Provider{
		userId: userId,
	}
}

// GetActiveUserId implements identity.Provider.GetActiveUserId
func (p *Provider) GetActiveUserId(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++

	if len(p.userId) == 0 {
		return "", identity.ErrUnauthenticated
	}
	return p.userId, nil
}

// SignIn sets the active user
func (p *Provider) SignIn(userId string) {
	p.mu.Lock()
	p.userId = userId
	p.mu.Unlock()
}

// SignOut clears the active user
func (p *Provider) SignOut() {
	p.mu.Lock()
	p.userId = ""
	p.mu.Unlock()
}

// GetCallCount returns the number of GetActiveUserId calls
func (p *Provider) GetCallCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls
}
