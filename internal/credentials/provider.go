package credentials

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
)

// Consent runs an interactive authorization and returns a fresh token.
type Consent interface {
	Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)
}

// Provider hands out a valid token, refreshing or re-authorizing as needed.
// Every newly acquired token is written back to the token file.
type Provider struct {
	config  *oauth2.Config
	store   TokenFile
	consent Consent
	log     logger.Logger

	mu sync.Mutex
}

// NewProvider returns a Provider. With a nil consent the provider never
// prompts and fails when no usable token is on disk.
func NewProvider(cfg *oauth2.Config, store TokenFile, consent Consent) *Provider {
	return &Provider{
		config:  cfg,
		store:   store,
		consent: consent,
		log:     GetLogger().With(logger.String("token_file", store.Path)),
	}
}

// Token returns the saved token when it is still valid, refreshes it when it
// has expired and carries a refresh token, and falls back to consent otherwise.
func (p *Provider) Token(ctx context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	token, err := p.store.Load()
	switch {
	case errors.Is(err, ErrNoToken):
		p.log.Info("no saved token")
	case err != nil:
		p.log.Warn("ignoring unreadable token file", logger.Error(err))
		token = nil
	}

	if token.Valid() {
		return token, nil
	}

	if token != nil && token.RefreshToken != "" {
		refreshed, err := p.config.TokenSource(ctx, token).Token()
		if err == nil {
			if err := p.store.Save(refreshed); err != nil {
				return nil, err
			}
			p.log.Info("access token refreshed")
			return refreshed, nil
		}
		p.log.Warn("token refresh failed", logger.Error(err))
	}

	if p.consent == nil {
		return nil, errors.Newf("no valid OAuth2 token in %s; run the authorize command", p.store.Path).
			Component("credentials").
			Category(errors.CategoryAuthentication).
			Build()
	}

	fresh, err := p.consent.Authorize(ctx, p.config)
	if err != nil {
		return nil, err
	}
	if err := p.store.Save(fresh); err != nil {
		return nil, err
	}
	p.log.Info("authorization completed")
	return fresh, nil
}

// Client returns an HTTP client that authorizes every request. Tokens it
// refreshes at runtime go through Token and are persisted.
func (p *Provider) Client(ctx context.Context) (*http.Client, error) {
	token, err := p.Token(ctx)
	if err != nil {
		return nil, err
	}
	src := oauth2.ReuseTokenSource(token, providerSource{ctx: ctx, p: p})
	return oauth2.NewClient(ctx, src), nil
}

// providerSource adapts Provider to oauth2.TokenSource.
type providerSource struct {
	ctx context.Context
	p   *Provider
}

func (s providerSource) Token() (*oauth2.Token, error) {
	return s.p.Token(s.ctx)
}
