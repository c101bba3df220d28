package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/justinas/nosurf"
	"github.com/myrjola/casebook/internal/errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Client talks JSON to the game API. It keeps the session cookie and the CSRF token between calls.
type Client struct {
	client    *http.Client
	jar       *plainHTTPJar
	url       string
	csrfToken string
}

// NewClient creates a cookie-aware HTTP client for the server at url.
func NewClient(url string) (*Client, error) {
	jar, err := newPlainHTTPJar()
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}
	return &Client{
		client:    &http.Client{Jar: jar}, //nolint:exhaustruct // defaults are fine in tests
		jar:       jar,
		url:       url,
		csrfToken: "",
	}, nil
}

// HasCookie reports whether the client holds a cookie called name for the server.
func (c *Client) HasCookie(name string) bool {
	u, err := url.Parse(c.url)
	if err != nil {
		return false
	}
	return c.jar.has(u, name)
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+urlPath, nil)
		if err != nil {
			return errors.Wrap(err, "create request")
		}

		var resp *http.Response
		if resp, err = c.client.Do(req); err == nil {
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Response is a decoded API response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, "unmarshal response", slog.String("body", string(r.Body)))
	}
	return nil
}

// ErrorMessage returns the error field of an error response.
func (r Response) ErrorMessage() string {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(r.Body, &body)
	return body.Error
}

// Get fetches urlPath. Fetching /api/game also refreshes the CSRF token used by the mutating calls.
func (c *Client) Get(ctx context.Context, urlPath string) (Response, error) {
	resp, err := c.do(ctx, http.MethodGet, urlPath, nil)
	if err != nil {
		return Response{}, err
	}
	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if json.Unmarshal(resp.Body, &body) == nil && body.CSRFToken != "" {
		c.csrfToken = body.CSRFToken
	}
	return resp, nil
}

// Post sends payload as JSON. A nil payload sends an empty object.
func (c *Client) Post(ctx context.Context, urlPath string, payload any) (Response, error) {
	return c.mutate(ctx, http.MethodPost, urlPath, payload)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, urlPath string) (Response, error) {
	return c.mutate(ctx, http.MethodDelete, urlPath, nil)
}

func (c *Client) mutate(ctx context.Context, method string, urlPath string, payload any) (Response, error) {
	if c.csrfToken == "" {
		if _, err := c.Get(ctx, "/api/game"); err != nil {
			return Response{}, errors.Wrap(err, "fetch csrf token")
		}
	}
	if payload == nil {
		payload = struct{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, errors.Wrap(err, "marshal payload")
	}
	return c.do(ctx, method, urlPath, body)
}

func (c *Client) do(ctx context.Context, method string, urlPath string, body []byte) (Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, reader)
	if err != nil {
		return Response{}, errors.Wrap(err, "create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.csrfToken != "" {
		req.Header.Set(nosurf.HeaderName, c.csrfToken)
	}
	var resp *http.Response
	if resp, err = c.client.Do(req); err != nil {
		return Response{}, errors.Wrap(err, "do request", slog.String("method", method), slog.String("path", urlPath))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var respBody []byte
	if respBody, err = io.ReadAll(resp.Body); err != nil {
		return Response{}, errors.Wrap(err, "read body")
	}
	return Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
