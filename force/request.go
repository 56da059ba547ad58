package force

import (
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// QueryItem is a single query parameter. A slice of QueryItem keeps the order
// in which parameters are written to the query string.
type QueryItem struct {
	Name  string
	Value string
}

// QueryItemsFromMap converts m into query items sorted by name.
func QueryItemsFromMap(m map[string]string) []QueryItem {
	keys := slices.Sorted(maps.Keys(m))
	items := make([]QueryItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, QueryItem{Name: k, Value: m[k]})
	}
	return items
}

// Request describes a single API call. It is immutable once built; use
// WithHeader to derive a copy with an extra header.
type Request struct {
	url    *url.URL
	method string
	header http.Header
	body   []byte
}

// NewRequest builds a request for path relative to instanceURL. Query items
// are appended in order. It fails with ErrInvalidURL when the combination
// does not form an absolute URL.
func NewRequest(instanceURL, path, method string, body []byte, query ...QueryItem) (*Request, error) {
	if strings.TrimSpace(instanceURL) == "" {
		return nil, invalidURL("instance URL is required", nil)
	}
	if strings.ContainsAny(path, "?#") {
		return nil, invalidURL("path must not contain a query or fragment: "+path, nil)
	}

	raw := strings.TrimRight(instanceURL, "/")
	if path != "" {
		raw += "/" + strings.TrimLeft(path, "/")
	}

	u, err := parseAbsolute(raw)
	if err != nil {
		return nil, err
	}
	return newRequest(u, method, body, query)
}

// NewRequestFromURL builds a body-less request for an existing absolute URL.
func NewRequestFromURL(u *url.URL, method string, query ...QueryItem) (*Request, error) {
	if u == nil {
		return nil, invalidURL("URL is required", nil)
	}
	parsed, err := parseAbsolute(u.String())
	if err != nil {
		return nil, err
	}
	return newRequest(parsed, method, nil, query)
}

// Transform returns from with query items appended after any existing query.
func Transform(from string, query ...QueryItem) (*url.URL, error) {
	u, err := parseAbsolute(from)
	if err != nil {
		return nil, err
	}
	return appendQuery(u, query)
}

func newRequest(u *url.URL, method string, body []byte, query []QueryItem) (*Request, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return nil, invalidURL("HTTP method is required", nil)
	}

	u, err := appendQuery(u, query)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("Accept", "application/json")
	if len(body) > 0 {
		header.Set("Content-Type", "application/json")
	}

	return &Request{
		url:    u,
		method: method,
		header: header,
		body:   slices.Clone(body),
	}, nil
}

func parseAbsolute(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, invalidURL(raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, invalidURL("not an absolute URL: "+raw, nil)
	}
	return u, nil
}

func appendQuery(u *url.URL, query []QueryItem) (*url.URL, error) {
	out := *u
	if len(query) == 0 {
		return &out, nil
	}

	parts := make([]string, 0, len(query)+1)
	if out.RawQuery != "" {
		parts = append(parts, out.RawQuery)
	}
	for _, item := range query {
		if item.Name == "" {
			return nil, invalidURL("query item with empty name", nil)
		}
		parts = append(parts, escapeQuery(item.Name)+"="+escapeQuery(item.Value))
	}
	out.RawQuery = strings.Join(parts, "&")

	// Round-trip to make sure the result still parses.
	if _, err := url.Parse(out.String()); err != nil {
		return nil, invalidURL(out.String(), err)
	}
	return &out, nil
}

// escapeQuery percent-encodes s for use in a query component, encoding
// spaces as %20 rather than '+'.
func escapeQuery(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// URL returns the full request URL.
func (r *Request) URL() string {
	return r.url.String()
}

// Method returns the HTTP method.
func (r *Request) Method() string {
	return r.method
}

// Header returns a copy of the request headers.
func (r *Request) Header() http.Header {
	return r.header.Clone()
}

// Body returns a copy of the request body, or nil.
func (r *Request) Body() []byte {
	return slices.Clone(r.body)
}

// Query returns the decoded query parameters.
func (r *Request) Query() url.Values {
	return r.url.Query()
}

// WithHeader returns a copy of r with key set to value.
func (r *Request) WithHeader(key, value string) *Request {
	u := *r.url
	clone := &Request{
		url:    &u,
		method: r.method,
		header: r.header.Clone(),
		body:   r.body,
	}
	clone.header.Set(key, value)
	return clone
}
