package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource supplies the bearer credential for requests. The chat client
// only ever reads tokens; refreshing is the auth collaborator's job.
type TokenSource interface {
	AccessToken() string
	// Refresh exchanges the refresh token for a new pair. Called at most
	// once per request, on a 401.
	Refresh(ctx context.Context) error
}

// Client is a thin wrapper around the SkillSwap REST API.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a client for the given base URL, e.g.
// "http://localhost:8000/api". tokens may be nil for unauthenticated use.
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// WebSocketURL converts the base URL to its websocket equivalent and appends
// path, e.g. WebSocketURL("/v1/chats/ws/chat/7") ->
// "ws://localhost:8000/api/v1/chats/ws/chat/7".
func (c *Client) WebSocketURL(path string) string {
	ws := c.baseURL
	if strings.HasPrefix(ws, "https://") {
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	} else if strings.HasPrefix(ws, "http://") {
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return ws + path
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.request(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.request(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.request(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.request(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.request(ctx, http.MethodDelete, path, nil, nil)
}

// request runs one HTTP round trip. On a 401 it asks the token source to
// refresh and retries exactly once; a second 401 surfaces as
// CredentialExpiredError.
func (c *Client) request(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if err := c.tokens.Refresh(ctx); err != nil {
			return &CredentialExpiredError{Err: err}
		}
		resp, err = c.do(ctx, method, path, body)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	return resp, nil
}

// errorEnvelope matches the backend's error shape:
// {"detail": {"error_key": "...", "message": "..."}}
type errorEnvelope struct {
	Detail struct {
		ErrorKey string `json:"error_key"`
		Message  string `json:"message"`
	} `json:"detail"`
}

func decodeError(resp *http.Response) error {
	var env errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	json.Unmarshal(raw, &env)

	msg := env.Detail.Message
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return &NotFoundError{Key: env.Detail.ErrorKey, Message: msg}
	case http.StatusForbidden:
		return &AccessDeniedError{Key: env.Detail.ErrorKey, Message: msg}
	case http.StatusUnauthorized:
		return &CredentialExpiredError{}
	default:
		return &APIError{Status: resp.StatusCode, Key: env.Detail.ErrorKey, Message: msg}
	}
}

// Query builds a query string from limit/offset plus extra pairs, in the
// order the backend documents them.
func Query(limit, offset int, extra ...[2]string) string {
	params := url.Values{}
	params.Set("limit", fmt.Sprint(limit))
	params.Set("offset", fmt.Sprint(offset))
	for _, kv := range extra {
		if kv[1] != "" {
			params.Set(kv[0], kv[1])
		}
	}
	return "?" + params.Encode()
}
