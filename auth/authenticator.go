package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/s0up4200/referral/force"
)

const (
	// DefaultLoginURL is the production login host.
	DefaultLoginURL = "https://login.salesforce.com"

	tokenPath     = "/services/oauth2/token"
	authorizePath = "/services/oauth2/authorize"

	// tokenTimeout bounds a shared token request, which outlives the
	// cancellation of whichever caller started it.
	tokenTimeout = 30 * time.Second
)

// ErrNoCredentials is returned when a token is needed but neither a refresh
// token nor a username/password pair is available.
var ErrNoCredentials = errors.New("no credentials available to obtain an access token")

// Config describes the connected app and the user it signs in as.
type Config struct {
	LoginURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	RedirectURL  string
	Scopes       []string
}

func (c Config) storeKey() string {
	return c.ClientID + "|" + c.Username
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithStore persists tokens across runs.
func WithStore(s Store) Option {
	return func(a *Authenticator) {
		a.store = s
	}
}

// WithHTTPClient sets the client used against the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Authenticator) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = l
	}
}

// WithBackOff sets the retry policy for token endpoint calls.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(a *Authenticator) {
		if fn != nil {
			a.newBackOff = fn
		}
	}
}

// Authenticator obtains and refreshes OAuth2 access tokens and satisfies
// force.TokenProvider. Concurrent RefreshToken calls share one token
// endpoint round trip.
type Authenticator struct {
	cfg        Config
	oauth      *oauth2.Config
	store      Store
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	logger     zerolog.Logger

	mu    sync.RWMutex
	token *oauth2.Token

	group singleflight.Group
}

var _ force.TokenProvider = (*Authenticator)(nil)

// New creates an Authenticator. A stored token, if any, is loaded eagerly so
// AccessToken never blocks on I/O.
func New(cfg Config, opts ...Option) (*Authenticator, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = DefaultLoginURL
	}
	cfg.LoginURL = strings.TrimRight(cfg.LoginURL, "/")

	a := &Authenticator{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.LoginURL + authorizePath,
				TokenURL:  cfg.LoginURL + tokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		newBackOff: defaultBackOff,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store != nil {
		tok, err := a.store.Load(cfg.storeKey())
		if err != nil {
			return nil, fmt.Errorf("failed to load stored token: %w", err)
		}
		if tok != nil {
			a.token = tok
			a.logger.Debug().Msg("Loaded stored access token")
		}
	}

	return a, nil
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxRetries(b, 3)
}

// AccessToken returns the current access token without any I/O.
func (a *Authenticator) AccessToken() (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.token == nil || a.token.AccessToken == "" {
		return "", false
	}
	return a.token.AccessToken, true
}

// InstanceURL returns the instance URL reported by the token endpoint, if any.
func (a *Authenticator) InstanceURL() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return instanceURL(a.token)
}

// RefreshToken obtains a new access token. It prefers the refresh token
// grant and falls back to the password grant.
func (a *Authenticator) RefreshToken(ctx context.Context) (string, error) {
	return a.shared(ctx, "refresh", true)
}

// Login runs the password grant regardless of any stored refresh token.
func (a *Authenticator) Login(ctx context.Context) (string, error) {
	return a.shared(ctx, "login", false)
}

// shared runs one token request per key for all concurrent callers. The
// request itself is detached from ctx; a cancelled caller stops waiting
// without failing the others.
func (a *Authenticator) shared(ctx context.Context, key string, allowRefresh bool) (string, error) {
	ch := a.group.DoChan(key, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenTimeout)
		defer cancel()
		return a.obtain(rctx, allowRefresh)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			a.logger.Debug().Str("grant", key).Msg("Joined in-flight token request")
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Logout forgets the current token, both in memory and in the store.
func (a *Authenticator) Logout() error {
	a.mu.Lock()
	a.token = nil
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Delete(a.cfg.storeKey()); err != nil {
			return fmt.Errorf("failed to delete stored token: %w", err)
		}
	}
	a.logger.Info().Msg("Logged out")
	return nil
}

// AuthorizeURL builds the user-agent flow URL a browser should open to sign
// in interactively.
func (a *Authenticator) AuthorizeURL(state string) (string, error) {
	if a.cfg.RedirectURL == "" {
		return "", fmt.Errorf("redirect URL is required for interactive login")
	}

	items := []force.QueryItem{
		{Name: "response_type", Value: "token"},
		{Name: "client_id", Value: a.cfg.ClientID},
		{Name: "redirect_uri", Value: a.cfg.RedirectURL},
		{Name: "prompt", Value: "login consent"},
		{Name: "display", Value: "touch"},
	}
	if len(a.cfg.Scopes) > 0 {
		items = append(items, force.QueryItem{Name: "scope", Value: strings.Join(a.cfg.Scopes, " ")})
	}
	if state != "" {
		items = append(items, force.QueryItem{Name: "state", Value: state})
	}

	u, err := force.Transform(a.oauth.Endpoint.AuthURL, items...)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (a *Authenticator) obtain(ctx context.Context, allowRefresh bool) (string, error) {
	a.mu.RLock()
	var refresh string
	if a.token != nil {
		refresh = a.token.RefreshToken
	}
	a.mu.RUnlock()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	var op backoff.OperationWithData[*oauth2.Token]
	switch {
	case allowRefresh && refresh != "":
		a.logger.Debug().Msg("Refreshing access token")
		op = func() (*oauth2.Token, error) {
			return a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
		}
	case a.cfg.Username != "" && a.cfg.Password != "":
		a.logger.Debug().Str("username", a.cfg.Username).Msg("Requesting access token with password grant")
		op = func() (*oauth2.Token, error) {
			return a.oauth.PasswordCredentialsToken(ctx, a.cfg.Username, a.cfg.Password)
		}
	default:
		return "", ErrNoCredentials
	}

	tok, err := backoff.RetryNotifyWithData(permanentOn4xx(op), backoff.WithContext(a.newBackOff(), ctx),
		func(err error, wait time.Duration) {
			a.logger.Warn().Err(err).Dur("retry_in", wait).Msg("Token request failed, retrying")
		})
	if err != nil {
		return "", fmt.Errorf("failed to obtain access token: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refresh
	}

	a.mu.Lock()
	a.token = tok
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Save(a.cfg.storeKey(), tok); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to persist access token")
		}
	}

	a.logger.Info().Str("instance_url", instanceURL(tok)).Msg("Obtained access token")
	return tok.AccessToken, nil
}

// permanentOn4xx stops retrying when the token endpoint rejects the grant.
func permanentOn4xx(op backoff.OperationWithData[*oauth2.Token]) backoff.OperationWithData[*oauth2.Token] {
	return func() (*oauth2.Token, error) {
		tok, err := op()
		if err == nil {
			return tok, nil
		}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < http.StatusInternalServerError {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
}

func instanceURL(t *oauth2.Token) string {
	if t == nil {
		return ""
	}
	if s, ok := t.Extra("instance_url").(string); ok {
		return s
	}
	return ""
}
