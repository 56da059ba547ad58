package force

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	tests := []struct {
		name        string
		instanceURL string
		path        string
		method      string
		wantURL     string
		wantErr     bool
	}{
		{
			name:        "relative path",
			instanceURL: "https://instanceUrl",
			path:        "game/participant/1234/games",
			method:      "GET",
			wantURL:     "https://instanceUrl/game/participant/1234/games",
		},
		{
			name:        "slashes are collapsed at the join",
			instanceURL: "https://instanceUrl/",
			path:        "/services/data/v60.0/referral-program/referral-event",
			method:      "post",
			wantURL:     "https://instanceUrl/services/data/v60.0/referral-program/referral-event",
		},
		{
			name:        "empty instance URL",
			instanceURL: "",
			path:        "game/participant/@1234/games?",
			method:      "GET",
			wantErr:     true,
		},
		{
			name:        "instance URL without scheme",
			instanceURL: "instanceUrl",
			path:        "game",
			method:      "GET",
			wantErr:     true,
		},
		{
			name:        "malformed escape",
			instanceURL: "https://instanceUrl",
			path:        "game/%zz",
			method:      "GET",
			wantErr:     true,
		},
		{
			name:        "path carries its own query",
			instanceURL: "https://instanceUrl",
			path:        "game/participant/@1234/games?",
			method:      "GET",
			wantErr:     true,
		},
		{
			name:        "missing method",
			instanceURL: "https://instanceUrl",
			path:        "game",
			method:      " ",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(tt.instanceURL, tt.path, tt.method, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidURL)
				assert.Nil(t, req)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, req.URL())
		})
	}
}

func TestNewRequestHeadersAndBody(t *testing.T) {
	body := []byte(`{"memberStatus":"Active"}`)
	req, err := NewRequest("https://instanceUrl", "referral", http.MethodPost, body)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method())
	assert.Equal(t, "application/json", req.Header().Get("Accept"))
	assert.Equal(t, "application/json", req.Header().Get("Content-Type"))
	assert.Equal(t, body, req.Body())

	// mutating the caller's buffer or returned copies must not leak in
	body[0] = 'x'
	req.Header().Set("Accept", "text/plain")
	got := req.Body()
	got[1] = 'y'
	assert.Equal(t, `{"memberStatus":"Active"}`, string(req.Body()))
	assert.Equal(t, "application/json", req.Header().Get("Accept"))

	get, err := NewRequest("https://instanceUrl", "referral", http.MethodGet, nil)
	require.NoError(t, err)
	assert.Empty(t, get.Header().Get("Content-Type"))
	assert.Nil(t, get.Body())
}

func TestNewRequestQueryOrder(t *testing.T) {
	req, err := NewRequest("https://instanceUrl", "search", http.MethodGet, nil,
		QueryItem{Name: "q", Value: "a b&c"},
		QueryItem{Name: "b", Value: "2"},
		QueryItem{Name: "a", Value: "1"},
	)
	require.NoError(t, err)
	assert.Equal(t, "https://instanceUrl/search?q=a%20b%26c&b=2&a=1", req.URL())
	assert.Equal(t, "a b&c", req.Query().Get("q"))

	_, err = NewRequest("https://instanceUrl", "search", http.MethodGet, nil, QueryItem{Value: "x"})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestWithHeaderCopies(t *testing.T) {
	req, err := NewRequest("https://instanceUrl", "referral", http.MethodGet, nil)
	require.NoError(t, err)

	authed := req.WithHeader("Authorization", "Bearer abc")
	assert.Equal(t, "Bearer abc", authed.Header().Get("Authorization"))
	assert.Empty(t, req.Header().Get("Authorization"))
	assert.Equal(t, req.URL(), authed.URL())
}

func TestTransform(t *testing.T) {
	queryItems := map[string]string{
		"response_type": "token",
		"client_id":     "1",
		"redirect_uri":  "123",
		"prompt":        "login consent",
		"display":       "touch",
	}

	u, err := Transform("https://instanceUrl", QueryItemsFromMap(queryItems)...)
	require.NoError(t, err)

	decoded, err := url.ParseQuery(u.RawQuery)
	require.NoError(t, err)
	assert.Len(t, decoded, len(queryItems))
	for k, v := range queryItems {
		assert.Equal(t, v, decoded.Get(k), k)
	}
	assert.Equal(t,
		"https://instanceUrl?client_id=1&display=touch&prompt=login%20consent&redirect_uri=123&response_type=token",
		u.String())
}

func TestTransformKeepsExistingQuery(t *testing.T) {
	u, err := Transform("https://instanceUrl/services/oauth2/authorize?display=touch",
		QueryItem{Name: "response_type", Value: "token"},
		QueryItem{Name: "client_id", Value: "1"},
	)
	require.NoError(t, err)
	assert.Equal(t, "display=touch&response_type=token&client_id=1", u.RawQuery)

	_, err = Transform("", QueryItem{Name: "a", Value: "b"})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestNewRequestFromURL(t *testing.T) {
	base, err := url.Parse("https://instanceUrl")
	require.NoError(t, err)

	req, err := NewRequestFromURL(base, http.MethodGet, QueryItem{Name: "client_id", Value: "1"})
	require.NoError(t, err)
	assert.Equal(t, "https://instanceUrl?client_id=1", req.URL())

	_, err = NewRequestFromURL(nil, http.MethodGet)
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = NewRequestFromURL(&url.URL{Path: "relative"}, http.MethodGet)
	assert.ErrorIs(t, err, ErrInvalidURL)
}
