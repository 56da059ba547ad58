package force

import "context"

// TokenProvider supplies bearer tokens to a Client.
//
// AccessToken returns the cached token, if any, without blocking and must be
// safe to call from any goroutine. RefreshToken obtains a fresh token; it may
// be called concurrently by several in-flight fetches, so implementations
// must serialize or memoize refreshes themselves. The Client never stores
// tokens it receives.
type TokenProvider interface {
	AccessToken() (string, bool)
	RefreshToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider that always returns the same token and
// cannot refresh. Useful for scripts holding a session id.
type StaticToken string

// AccessToken implements TokenProvider.
func (s StaticToken) AccessToken() (string, bool) {
	return string(s), s != ""
}

// RefreshToken implements TokenProvider. It always fails.
func (s StaticToken) RefreshToken(context.Context) (string, error) {
	return "", ErrAuthenticationNeeded
}
