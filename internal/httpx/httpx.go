// Package httpx holds the small request helpers shared by the platform
// adapters. Requests are sent once; nothing here retries.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxBodySize bounds how much of a provider response is read.
const MaxBodySize = 1 << 20

// DefaultTimeout applies when no client is supplied.
const DefaultTimeout = 15 * time.Second

// Response is a fully read provider response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Text returns the trimmed body for diagnostics.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(string(r.Body))
}

// Client returns c, or a client with DefaultTimeout when c is nil.
func Client(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// RequestOption mutates an outgoing request.
type RequestOption func(*http.Request)

// WithBearer sets the Authorization header to a bearer token.
func WithBearer(token string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// WithBasicAuth sets HTTP basic credentials.
func WithBasicAuth(user, pass string) RequestOption {
	return func(r *http.Request) {
		r.SetBasicAuth(user, pass)
	}
}

// WithHeader sets a single header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// PostForm sends form as application/x-www-form-urlencoded.
func PostForm(ctx context.Context, client *http.Client, endpoint string, form url.Values, opts ...RequestOption) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(client, req, opts...)
}

// Get sends a GET with query appended to endpoint.
func Get(ctx context.Context, client *http.Client, endpoint string, query url.Values, opts ...RequestOption) (*Response, error) {
	target := endpoint
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		target = endpoint + sep + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return do(client, req, opts...)
}

func do(client *http.Client, req *http.Request, opts ...RequestOption) (*Response, error) {
	req.Header.Set("Accept", "application/json")
	for _, opt := range opts {
		if opt != nil {
			opt(req)
		}
	}

	resp, err := Client(client).Do(req)
	if err != nil {
		return nil, redactURLError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, err
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

// RedactURL strips the query, fragment and user info from raw. Several
// providers take credentials and tokens as query parameters.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// redactURLError rewrites the URL a transport error carries.
func redactURLError(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	return &url.Error{
		Op:  uerr.Op,
		URL: RedactURL(uerr.URL),
		Err: uerr.Err,
	}
}

// SplitScopes splits a comma or space separated scope string.
func SplitScopes(scopes string) []string {
	fields := strings.FieldsFunc(scopes, func(r rune) bool {
		return r == ',' || r == ' '
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
