package force

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the id shared by all dispatches of one fetch.
const RequestIDHeader = "X-Request-Id"

// Client is the authenticated fetch pipeline: it attaches a bearer token,
// dispatches through a Transport, classifies the response, re-authenticates
// at most once and decodes the result.
type Client struct {
	auth      TokenProvider
	transport Transport
	decoder   *Decoder
	logger    zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithDecoder replaces the default decoder.
func WithDecoder(d *Decoder) Option {
	return func(c *Client) {
		if d != nil {
			c.decoder = d
		}
	}
}

// WithLogger sets the logger used for dispatch tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client. Both capabilities are required.
func NewClient(auth TokenProvider, transport Transport, opts ...Option) (*Client, error) {
	if auth == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	c := &Client{
		auth:      auth,
		transport: transport,
		decoder:   NewDecoder(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Decoder returns the decoder used for responses.
func (c *Client) Decoder() *Decoder {
	return c.decoder
}

// Do performs req and decodes a successful response body into out. out may
// be nil when the caller does not need the body.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	if req == nil {
		return invalidURL("request is required", nil)
	}

	token, ok := c.auth.AccessToken()
	if !ok || token == "" {
		return &Error{Kind: KindAuthenticationNeeded, Message: "no access token"}
	}

	requestID := uuid.NewString()
	logger := c.logger.With().
		Str("request_id", requestID).
		Str("method", req.Method()).
		Str("url", req.URL()).
		Logger()
	req = req.WithHeader(RequestIDHeader, requestID)

	out1, err := c.dispatch(ctx, req, token, logger)
	if KindOf(err) == KindAuthenticationNeeded {
		logger.Debug().Msg("Access token rejected, refreshing")

		fresh, rerr := c.auth.RefreshToken(ctx)
		if rerr != nil {
			logger.Warn().Err(rerr).Msg("Token refresh failed")
			if errors.Is(rerr, ErrAuthenticationNeeded) {
				return rerr
			}
			return &Error{Kind: KindAuthenticationNeeded, Message: "token refresh failed", Err: rerr}
		}
		if fresh == "" {
			return &Error{Kind: KindAuthenticationNeeded, Message: "token refresh returned no access token"}
		}
		out1, err = c.dispatch(ctx, req, fresh, logger)
	}
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := c.decoder.Decode(out1.Body, out); err != nil {
		logger.Debug().Err(err).Msg("Failed to decode response")
		return err
	}
	return nil
}

func (c *Client) dispatch(ctx context.Context, req *Request, token string, logger zerolog.Logger) (*Outcome, error) {
	authed := req.WithHeader("Authorization", "Bearer "+token)

	out, err := c.transport.Send(ctx, authed)
	if err != nil {
		logger.Debug().Err(err).Msg("Dispatch failed")
		return nil, ClassifyTransportError(err)
	}

	logger.Debug().Int("status", out.StatusCode).Msg("Received response")
	if err := Classify(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Fetch performs req with c and returns the decoded body as T.
func Fetch[T any](ctx context.Context, c *Client, req *Request) (T, error) {
	var result T
	if err := c.Do(ctx, req, &result); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
