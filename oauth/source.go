// Package oauth keeps a user's OAuth2 token in the oauth_tokens table and
// hands publishers a token source that refreshes it ahead of expiry and
// writes the refreshed token back.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ProviderX is the oauth_tokens key for the X account.
const ProviderX = "x"

// DefaultWindow is how long before expiry a token is refreshed.
const DefaultWindow = 2 * time.Minute

// ErrNoToken is returned when nothing is stored for the provider.
var ErrNoToken = errors.New("no oauth token stored")

// Store persists tokens per provider.
type Store interface {
	LoadToken(ctx context.Context, provider string) (*oauth2.Token, error)
	SaveToken(ctx context.Context, provider string, tok *oauth2.Token) error
}

// XScopes are the scopes needed to upload media and post.
var XScopes = []string{"tweet.read", "tweet.write", "users.read", "media.write", "offline.access"}

// XConfig returns the OAuth2 app config for X. apiBase replaces the token
// host, which tests point at an httptest server.
func XConfig(clientID, clientSecret, apiBase string) *oauth2.Config {
	if apiBase == "" {
		apiBase = "https://api.x.com"
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://x.com/i/oauth2/authorize",
			TokenURL:  strings.TrimRight(apiBase, "/") + "/2/oauth2/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		RedirectURL: "http://127.0.0.1/callback",
		Scopes:      XScopes,
	}
}

// Source is an oauth2.TokenSource backed by a Store.
type Source struct {
	provider string
	cfg      *oauth2.Config
	store    Store
	window   time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu  sync.Mutex
	cur *oauth2.Token
}

// NewSource returns a source for provider. The token is read lazily.
func NewSource(cfg *oauth2.Config, store Store, provider string) *Source {
	return &Source{
		provider: provider,
		cfg:      cfg,
		store:    store,
		window:   DefaultWindow,
		now:      time.Now,
		logger:   slog.Default().With(slog.String("component", "oauth"), slog.String("provider", provider)),
	}
}

// Token returns a valid access token, refreshing and persisting it when it
// expires within the refresh window. It uses a background context; use
// TokenContext to bound the refresh.
func (s *Source) Token() (*oauth2.Token, error) {
	return s.TokenContext(context.Background())
}

// TokenContext is Token with a caller context.
func (s *Source) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		tok, err := s.store.LoadToken(ctx, s.provider)
		if err != nil {
			return nil, fmt.Errorf("load %s token: %w", s.provider, err)
		}
		if tok == nil || tok.AccessToken == "" {
			return nil, fmt.Errorf("%w for %s", ErrNoToken, s.provider)
		}
		s.cur = tok
	}
	if s.cur.Expiry.IsZero() || s.cur.Expiry.Sub(s.now()) > s.window {
		return s.cur, nil
	}
	if s.cur.RefreshToken == "" {
		return nil, fmt.Errorf("%s token expired and has no refresh token", s.provider)
	}

	// an expired copy makes the oauth2 package refresh unconditionally
	stale := *s.cur
	stale.Expiry = s.now().Add(-time.Second)
	fresh, err := s.cfg.TokenSource(ctx, &stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh %s token: %w", s.provider, err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = s.cur.RefreshToken
	}
	if err := s.store.SaveToken(ctx, s.provider, fresh); err != nil {
		// the refresh token may already be rotated, so keep going with the
		// fresh one and make the failure loud
		s.logger.Error("token refreshed but not persisted", slog.Any("err", err))
	} else {
		s.logger.Info("token refreshed", slog.Time("expiry", fresh.Expiry))
	}
	s.cur = fresh
	return fresh, nil
}

// Client returns an HTTP client that authorizes requests with the source.
func (s *Source) Client(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, s)
}

// AuthCodeURL starts the PKCE authorization flow. The returned verifier must
// be passed to Exchange.
func AuthCodeURL(cfg *oauth2.Config, state string) (url, verifier string) {
	verifier = oauth2.GenerateVerifier()
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)), verifier
}

// Exchange trades an authorization code for a token and stores it.
func Exchange(ctx context.Context, cfg *oauth2.Config, store Store, provider, code, verifier string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange %s code: %w", provider, err)
	}
	if err := store.SaveToken(ctx, provider, tok); err != nil {
		return nil, fmt.Errorf("save %s token: %w", provider, err)
	}
	return tok, nil
}
