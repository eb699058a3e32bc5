// Package oauth runs the authorization-code flow against the configured
// identity providers. The completion endpoint hands its result back to a
// browser redirect, never a JSON body, so failures here surface as
// error query parameters on the front-end login URL.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// Profile is the provider-agnostic identity extracted from the userinfo
// endpoint after a successful code exchange.
type Profile struct {
	Provider  string
	Username  string
	Name      string
	AvatarURL *string
}

type Provider struct {
	Name        string
	config      *oauth2.Config
	userinfoURL string
	extract     func(body []byte) (*Profile, error)
}

// Providers builds the configured provider set from the environment.
// A provider with no client ID is left out rather than half-configured.
func Providers() map[string]*Provider {
	providers := make(map[string]*Provider)

	if clientID := os.Getenv("GOOGLE_OAUTH2_KEY"); clientID != "" {
		providers["google"] = &Provider{
			Name: "google",
			config: &oauth2.Config{
				ClientID:     clientID,
				ClientSecret: os.Getenv("GOOGLE_OAUTH2_SECRET"),
				RedirectURL:  os.Getenv("OAUTH_REDIRECT_URL"),
				Scopes: []string{
					"https://www.googleapis.com/auth/userinfo.email",
					"https://www.googleapis.com/auth/userinfo.profile",
				},
				Endpoint: google.Endpoint,
			},
			userinfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
			extract:     googleProfile,
		}
	}

	if clientID := os.Getenv("GITHUB_CLIENT_ID"); clientID != "" {
		providers["github"] = &Provider{
			Name: "github",
			config: &oauth2.Config{
				ClientID:     clientID,
				ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
				RedirectURL:  os.Getenv("OAUTH_REDIRECT_URL"),
				Scopes:       []string{"user:email"},
				Endpoint:     github.Endpoint,
			},
			userinfoURL: "https://api.github.com/user",
			extract:     githubProfile,
		}
	}

	return providers
}

// AuthCodeURL returns the provider's consent page URL for the state value.
func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// CompleteExchange swaps the authorization code for a token and fetches
// the user's profile from the provider's userinfo endpoint.
func (p *Provider) CompleteExchange(ctx context.Context, code string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code with %s: %w", p.Name, err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s userinfo: %w", p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s userinfo returned status %d", p.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	profile, err := p.extract(body)
	if err != nil {
		return nil, err
	}

	profile.Provider = p.Name
	return profile, nil
}

func googleProfile(body []byte) (*Profile, error) {
	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	if info.Email == "" {
		return nil, errors.New("google userinfo has no email")
	}

	profile := &Profile{Username: info.Email, Name: info.Name}
	if info.Picture != "" {
		profile.AvatarURL = &info.Picture
	}
	return profile, nil
}

func githubProfile(body []byte) (*Profile, error) {
	var info struct {
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, err
	}
	if info.Login == "" {
		return nil, errors.New("github userinfo has no login")
	}

	profile := &Profile{Username: info.Login, Name: info.Name}
	if info.AvatarURL != "" {
		profile.AvatarURL = &info.AvatarURL
	}
	return profile, nil
}
