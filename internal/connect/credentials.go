package connect

import (
	"context"
	"sync"
)

// Credentials holds one user's backend tokens. A refresh performed by any
// request updates them in place.
type Credentials struct {
	mu        sync.RWMutex
	access    string
	refresh   string
	onRefresh func(access, refresh string)
}

func NewCredentials(accessToken, refreshToken string) *Credentials {
	return &Credentials{access: accessToken, refresh: refreshToken}
}

func (c *Credentials) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.access
}

func (c *Credentials) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refresh
}

// OnRefresh registers a callback run after the tokens were rotated.
func (c *Credentials) OnRefresh(fn func(access, refresh string)) {
	c.mu.Lock()
	c.onRefresh = fn
	c.mu.Unlock()
}

// Detach returns a copy without the refresh callback, for use beyond the
// lifetime of the request that carried the original.
func (c *Credentials) Detach() *Credentials {
	return NewCredentials(c.AccessToken(), c.RefreshToken())
}

func (c *Credentials) update(access, refresh string) {
	c.mu.Lock()
	c.access = access
	if refresh != "" {
		c.refresh = refresh
	}
	fn := c.onRefresh
	access, refresh = c.access, c.refresh
	c.mu.Unlock()

	if fn != nil {
		fn(access, refresh)
	}
}

type credentialsKey struct{}

func ContextWithCredentials(ctx context.Context, creds *Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

func CredentialsFrom(ctx context.Context) (*Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey{}).(*Credentials)
	return creds, ok && creds != nil
}
