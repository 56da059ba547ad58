package force

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Outcome is the raw result of one dispatch.
type Outcome struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Transport sends a request and returns its outcome. An error means no HTTP
// status was obtained (network, TLS, timeout, cancellation).
type Transport interface {
	Send(ctx context.Context, req *Request) (*Outcome, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*Outcome, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req *Request) (*Outcome, error) {
	return f(ctx, req)
}

// RestyTransport dispatches requests through a resty client.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport creates a transport with the given timeout. A zero
// timeout leaves the request bounded only by its context.
func NewRestyTransport(timeout time.Duration) *RestyTransport {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &RestyTransport{client: c}
}

// NewRestyTransportWithClient wraps an existing resty client.
func NewRestyTransportWithClient(client *resty.Client) *RestyTransport {
	return &RestyTransport{client: client}
}

// Send implements Transport.
func (t *RestyTransport) Send(ctx context.Context, req *Request) (*Outcome, error) {
	r := t.client.R().SetContext(ctx)
	for key, values := range req.Header() {
		for _, v := range values {
			r.Header.Add(key, v)
		}
	}
	if body := req.Body(); len(body) > 0 {
		r.SetBody(body)
	}

	resp, err := r.Execute(req.Method(), req.URL())
	if err != nil {
		return nil, err
	}

	return &Outcome{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Header:     resp.Header(),
	}, nil
}
