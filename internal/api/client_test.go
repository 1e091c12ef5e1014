package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type fakeTokens struct {
	token     atomic.Value
	refreshes atomic.Int32
	fail      bool
}

func newFakeTokens(token string) *fakeTokens {
	f := &fakeTokens{}
	f.token.Store(token)
	return f
}

func (f *fakeTokens) AccessToken() string { return f.token.Load().(string) }

func (f *fakeTokens) Refresh(ctx context.Context) error {
	f.refreshes.Add(1)
	if f.fail {
		return errors.New("refresh rejected")
	}
	f.token.Store("fresh-token")
	return nil
}

func TestRequestRetriesOnceAfterRefresh(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tokens := newFakeTokens("stale-token")
	client := NewClient(srv.URL, tokens)

	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.Get(context.Background(), "/v1/ping", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !out.OK {
		t.Fatal("expected decoded response after retry")
	}
	if n := tokens.refreshes.Load(); n != 1 {
		t.Fatalf("expected exactly 1 refresh, got %d", n)
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("expected exactly 2 round trips, got %d", n)
	}
}

func TestRequestSurfacesCredentialExpiry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	tokens := newFakeTokens("stale-token")
	tokens.fail = true
	client := NewClient(srv.URL, tokens)

	err := client.Get(context.Background(), "/v1/ping", nil)
	var expired *CredentialExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("expected CredentialExpiredError, got %v", err)
	}
	if n := tokens.refreshes.Load(); n != 1 {
		t.Fatalf("expected exactly 1 refresh attempt, got %d", n)
	}
}

func TestErrorEnvelopeMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":{"error_key":"chat_not_found","message":"Chat not found"}}`))
		case "/v1/forbidden":
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"detail":{"error_key":"chat_access_denied","message":"No access"}}`))
		default:
			w.WriteHeader(http.StatusTeapot)
			w.Write([]byte(`{"detail":{"error_key":"teapot","message":"I'm a teapot"}}`))
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)
	ctx := context.Background()

	var notFound *NotFoundError
	if err := client.Get(ctx, "/v1/missing", nil); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Key != "chat_not_found" {
		t.Fatalf("expected error_key from envelope, got %q", notFound.Key)
	}

	var denied *AccessDeniedError
	if err := client.Get(ctx, "/v1/forbidden", nil); !errors.As(err, &denied) {
		t.Fatalf("expected AccessDeniedError, got %v", err)
	}

	var apiErr *APIError
	if err := client.Get(ctx, "/v1/other", nil); !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusTeapot {
		t.Fatalf("expected status 418, got %d", apiErr.Status)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	client := NewClient(srv.URL, nil)
	err := client.Get(context.Background(), "/v1/ping", nil)

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestWebSocketURL(t *testing.T) {
	client := NewClient("http://localhost:8000/api", nil)
	got := client.WebSocketURL("/v1/chats/ws/chat/7")
	want := "ws://localhost:8000/api/v1/chats/ws/chat/7"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	client = NewClient("https://skillswap.example/api", nil)
	got = client.WebSocketURL("/v1/chats/ws/chat/7")
	want = "wss://skillswap.example/api/v1/chats/ws/chat/7"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
