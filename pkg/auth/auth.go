// Package auth implements the OAuth2 authorization flows of the Web API
// and the shared token state the rest of the client reads from.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
)

// Account service endpoints.
const (
	AuthURL  = "https://accounts.spotify.com/authorize"
	TokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes accepted by the authorization endpoint. Only the ones the typed
// client endpoints need are listed here; any string the service accepts
// can be passed to WithScopes.
const (
	ScopeUserLibraryRead     = "user-library-read"
	ScopeUserFollowRead      = "user-follow-read"
	ScopeUserFollowModify    = "user-follow-modify"
	ScopePlaylistReadPrivate = "playlist-read-private"
	ScopeUserReadEmail       = "user-read-email"
)

// Environment variables read by CredentialsFromEnv.
const (
	EnvClientID     = "SPOTIFY_ID"
	EnvClientSecret = "SPOTIFY_SECRET"
)

// ErrMissingCredentials is returned when the client ID or secret is absent.
var ErrMissingCredentials = errors.New("auth: client credentials not set")

// Credentials identify the registered application.
type Credentials struct {
	ID     string
	Secret string
}

// CredentialsFromEnv reads the application credentials from the
// SPOTIFY_ID and SPOTIFY_SECRET environment variables.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		ID:     os.Getenv(EnvClientID),
		Secret: os.Getenv(EnvClientSecret),
	}
	if creds.ID == "" || creds.Secret == "" {
		return Credentials{}, fmt.Errorf("%w: %s and %s must both be set",
			ErrMissingCredentials, EnvClientID, EnvClientSecret)
	}
	return creds, nil
}

// Authenticator drives the authorization-code flow and mints refreshing
// token sources for the HTTP core.
type Authenticator struct {
	config *oauth2.Config
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithRedirectURL sets the redirect URL registered for the application.
func WithRedirectURL(url string) Option {
	return func(a *Authenticator) {
		a.config.RedirectURL = url
	}
}

// WithScopes sets the scopes requested during authorization.
func WithScopes(scopes ...string) Option {
	return func(a *Authenticator) {
		a.config.Scopes = scopes
	}
}

// WithEndpoint overrides the account service endpoints. This is primarily
// useful for testing against a local server.
func WithEndpoint(authURL, tokenURL string) Option {
	return func(a *Authenticator) {
		a.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	}
}

// New creates an Authenticator for the given application credentials.
func New(creds Credentials, opts ...Option) *Authenticator {
	a := &Authenticator{
		config: &oauth2.Config{
			ClientID:     creds.ID,
			ClientSecret: creds.Secret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  AuthURL,
				TokenURL: TokenURL,
			},
		},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// AuthCodeURL returns the URL the user must visit to grant access. state
// is echoed back on the redirect and must be verified by the caller.
func (a *Authenticator) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token. The returned token
// carries the refresh token needed for later sessions.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return token, nil
}

// Refresh obtains a fresh access token from the refresh token carried by
// the given token. Refresh tokens are long-lived, so a persisted one can
// rebuild a working session without user interaction.
func (a *Authenticator) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := a.config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return fresh, nil
}

// TokenSource returns a source that refreshes the token transparently
// when it expires.
func (a *Authenticator) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return a.config.TokenSource(ctx, token)
}

// SlotSource returns a token source backed by the given slot: tokens are
// refreshed through the account service as needed and every refreshed
// token is written back to the slot, so all holders observe it.
func (a *Authenticator) SlotSource(ctx context.Context, slot *TokenSlot) oauth2.TokenSource {
	return &slotSource{
		slot: slot,
		src:  a.config.TokenSource(ctx, slot.Load()),
	}
}

// Client returns an HTTP client that injects the bearer token on every
// request and refreshes it transparently.
func (a *Authenticator) Client(ctx context.Context, token *oauth2.Token) *http.Client {
	return oauth2.NewClient(ctx, a.config.TokenSource(ctx, token))
}

// JoinScopes renders scopes in the space-separated form the authorize
// endpoint expects.
func JoinScopes(scopes ...string) string {
	return strings.Join(scopes, " ")
}
