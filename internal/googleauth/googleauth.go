// Package googleauth exchanges a Google authorization code for the
// signed-in user's email and display name. That tuple is all the rest
// of the system consumes from the identity provider.
package googleauth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var ErrNotConfigured = errors.New("google sign-in not configured")

// UserInfo is the identity tuple delivered by the provider.
type UserInfo struct {
	Email string
	Name  string
}

// Provider wraps the OAuth code flow against Google.
type Provider struct {
	cfg *oauth2.Config
}

func NewProvider(clientID, clientSecret, redirectURL string) *Provider {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return &Provider{}
	}
	return &Provider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// Configured reports whether provider credentials were supplied.
func (p *Provider) Configured() bool { return p.cfg != nil }

// AuthURL returns the provider page to redirect the browser to.
func (p *Provider) AuthURL(state string) (string, error) {
	if p.cfg == nil {
		return "", ErrNotConfigured
	}
	return p.cfg.AuthCodeURL(state), nil
}

// Exchange trades the callback code for the user's email and name.
func (p *Provider) Exchange(ctx context.Context, code string) (UserInfo, error) {
	if p.cfg == nil {
		return UserInfo{}, ErrNotConfigured
	}

	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return UserInfo{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(p.cfg.TokenSource(ctx, token)))
	if err != nil {
		return UserInfo{}, fmt.Errorf("build userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return UserInfo{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Email == "" {
		return UserInfo{}, errors.New("userinfo response missing email")
	}

	name := info.Name
	if name == "" {
		name = "Google User"
	}
	return UserInfo{Email: info.Email, Name: name}, nil
}
