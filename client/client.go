// Package client implements the HTTP fetch, mutation and export
// collaborators consumed by listview controllers. It talks the API's
// success/message envelope and normalizes every failure to a single
// human-readable error.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNoToken is the fetch precondition failure: without a token no
	// request is attempted at all.
	ErrNoToken = errors.New("not authenticated")
)

type (
	// TokenSource supplies the bearer token attached to every request.
	// It is injected explicitly; business logic never reads ambient storage.
	TokenSource interface {
		Token() (string, error)
	}

	// StaticToken is a fixed bearer token.
	StaticToken string

	Options struct {
		BaseURL string // e.g. "http://localhost:8000/v1"
		Auth    TokenSource
		HTTP    *http.Client
		NowFunc func() time.Time // export filename clock; defaults to time.Now
	}

	Client struct {
		base string
		auth TokenSource
		http *http.Client
		now  func() time.Time
	}

	// envelope is the API's uniform response shape.
	envelope struct {
		Success bool                       `json:"success"`
		Message string                     `json:"message"`
		Data    map[string]json.RawMessage `json:"data"`
	}

	pageMeta struct {
		CurrentPage int  `json:"currentPage"`
		TotalPages  int  `json:"totalPages"`
		TotalItems  int  `json:"totalItems"`
		HasNextPage bool `json:"hasNextPage"`
		HasPrevPage bool `json:"hasPrevPage"`
	}
)

func (t StaticToken) Token() (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

func New(opts Options) *Client {
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	now := opts.NowFunc
	if now == nil {
		now = time.Now
	}
	return &Client{
		base: strings.TrimRight(opts.BaseURL, "/"),
		auth: opts.Auth,
		http: httpClient,
		now:  now,
	}
}

// do issues one request and decodes the envelope. Network failures and
// non-2xx responses are both normalized to a plain error message.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (*envelope, error) {
	raw, _, err := c.doRaw(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	env := new(envelope)
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, errors.Wrap(err, "decoding response")
	}
	if !env.Success {
		return nil, errors.New(env.Message)
	}
	return env, nil
}

// doRaw issues one request and returns the raw body. Used by do and by
// exports, whose payload is a CSV blob rather than an envelope.
func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, string, error) {
	token, err := c.token()
	if err != nil {
		return nil, "", err
	}

	u := c.base + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", errors.Wrap(err, "encoding request body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, "", errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "request failed")
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "reading response")
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		// pass the server's message through verbatim when it sent one
		env := new(envelope)
		if jsonErr := json.Unmarshal(data, env); jsonErr == nil && env.Message != "" {
			return nil, "", errors.New(env.Message)
		}
		return nil, "", errors.Errorf("request failed: %s", res.Status)
	}
	return data, res.Header.Get("Content-Type"), nil
}

func (c *Client) token() (string, error) {
	if c.auth == nil {
		return "", ErrNoToken
	}
	return c.auth.Token()
}
