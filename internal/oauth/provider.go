// Package oauth wraps the OAuth2 login providers.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"agora/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
)

const (
	Google   = "google"
	Facebook = "facebook"

	googleProfileURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
	facebookProfileURL = "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)"
)

// ErrUnknownProvider is returned for providers that are not configured.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// Profile is the identity returned by a provider after login.
type Profile struct {
	Provider    string
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string
}

// Provider drives the authorization code flow for one identity provider.
type Provider struct {
	name       string
	config     *oauth2.Config
	profileURL string
	parse      func([]byte) (Profile, error)
}

// Name returns the provider key used in routes.
func (p *Provider) Name() string {
	return p.name
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades the callback code for a token and fetches the profile.
func (p *Provider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s token exchange: %w", p.name, err)
	}

	client := p.config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s profile request: %w", p.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s profile request: status %d", p.name, resp.StatusCode)
	}

	profile, err := p.parse(body)
	if err != nil {
		return nil, fmt.Errorf("%s profile decode: %w", p.name, err)
	}
	if profile.ID == "" {
		return nil, fmt.Errorf("%s profile has no id", p.name)
	}
	profile.Provider = p.name
	return &profile, nil
}

// Providers holds the configured providers by name.
type Providers struct {
	byName map[string]*Provider
}

// NewProviders builds a provider for every client id present in cfg.
func NewProviders(cfg *config.Config) *Providers {
	ps := &Providers{byName: map[string]*Provider{}}

	if cfg.GoogleClientID != "" {
		ps.add(&Provider{
			name: Google,
			config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				RedirectURL:  callbackURL(cfg, Google),
				Scopes: []string{
					"https://www.googleapis.com/auth/userinfo.email",
					"https://www.googleapis.com/auth/userinfo.profile",
				},
				Endpoint: google.Endpoint,
			},
			profileURL: googleProfileURL,
			parse:      parseGoogle,
		})
	}
	if cfg.FacebookClientID != "" {
		ps.add(&Provider{
			name: Facebook,
			config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				RedirectURL:  callbackURL(cfg, Facebook),
				Scopes:       []string{"email", "public_profile"},
				Endpoint:     facebook.Endpoint,
			},
			profileURL: facebookProfileURL,
			parse:      parseFacebook,
		})
	}
	return ps
}

func (ps *Providers) add(p *Provider) {
	ps.byName[p.name] = p
}

// Get returns the named provider or ErrUnknownProvider.
func (ps *Providers) Get(name string) (*Provider, error) {
	if ps == nil {
		return nil, ErrUnknownProvider
	}
	p, ok := ps.byName[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// Names lists the configured provider keys.
func (ps *Providers) Names() []string {
	names := make([]string, 0, len(ps.byName))
	for _, n := range []string{Google, Facebook} {
		if _, ok := ps.byName[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

func callbackURL(cfg *config.Config, provider string) string {
	return cfg.OAuthRedirectBase + "/auth/" + provider + "/callback"
}

type googleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func parseGoogle(body []byte) (Profile, error) {
	var u googleUser
	if err := json.Unmarshal(body, &u); err != nil {
		return Profile{}, err
	}
	return Profile{ID: u.ID, DisplayName: u.Name, Email: u.Email, AvatarURL: u.Picture}, nil
}

type facebookUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func parseFacebook(body []byte) (Profile, error) {
	var u facebookUser
	if err := json.Unmarshal(body, &u); err != nil {
		return Profile{}, err
	}
	return Profile{ID: u.ID, DisplayName: u.Name, Email: u.Email, AvatarURL: u.Picture.Data.URL}, nil
}
