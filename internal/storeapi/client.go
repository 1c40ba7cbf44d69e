// Package storeapi is a typed client for the remote store REST API.
//
// Each Client owns a cookie jar, so the store API's session cookie is attached
// to every call the same way a browser attaches it with credentials enabled.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// maxBodySize caps how much of a response body is read
const maxBodySize = 10 << 20

// Client represents an HTTP client for the store API
type Client struct {
	baseURL    *url.URL
	jar        http.CookieJar
	httpClient *http.Client
}

// New creates a new API client with an empty cookie jar
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid store API URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid store API URL %q: scheme and host are required", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: u,
		jar:     jar,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}, nil
}

// SetHTTPClient sets a custom HTTP client. The client keeps using this
// Client's cookie jar.
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	httpClient.Jar = c.jar
	c.httpClient = httpClient
}

// BaseURL returns the store API root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Cookies returns the store API cookies currently held by the jar
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.baseURL)
}

// SetCookies loads previously saved store API cookies into the jar
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.jar.SetCookies(c.baseURL, cookies)
}

// ClearCookies expires every cookie the jar holds for the store API
func (c *Client) ClearCookies() {
	current := c.jar.Cookies(c.baseURL)
	expired := make([]*http.Cookie, 0, len(current))
	for _, cookie := range current {
		expired = append(expired, &http.Cookie{Name: cookie.Name, Value: "", Path: "/", MaxAge: -1})
	}
	c.jar.SetCookies(c.baseURL, expired)
}

// envelope is the response wrapper every store API endpoint uses
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do sends a request and returns the raw body of a 2xx response. Non-2xx
// responses become *APIError carrying the API message when there is one.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var env envelope
		if json.Unmarshal(data, &env) == nil {
			apiErr.Message = env.Message
		}
		return nil, apiErr
	}

	return data, nil
}

// call sends a request, decodes the envelope and, when out is non-nil,
// decodes envelope.data into out. success:false becomes *APIError.
func (c *Client) call(ctx context.Context, method, path string, body io.Reader, contentType string, out any) (*envelope, error) {
	data, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !env.Success {
		return nil, &APIError{Status: http.StatusOK, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	return &env, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(jsonData), "application/json")
}

// IsTransport reports whether err is a network-level failure rather than an
// answer from the store API
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return !errors.As(err, &apiErr) && !errors.Is(err, ErrMalformedResponse) && !errors.Is(err, ErrNotAuthenticated)
}
