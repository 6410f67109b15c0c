package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientGet_ReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("expected Accept header application/json, got %q", r.Header.Get("Accept"))
		}
		w.Write([]byte(`{"rumBundles":[]}`))
	}))
	defer srv.Close()

	body, err := NewClient(time.Second).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"rumBundles":[]}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestClientGet_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(time.Second).Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
}

func TestClientGet_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewClient(time.Second).Get(ctx, srv.URL); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c := NewClient(0)
	if c.httpClient.Timeout != DefaultTimeout {
		t.Fatalf("expected timeout %v, got %v", DefaultTimeout, c.httpClient.Timeout)
	}
}

func TestClientGet_HTTPClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClientWithHTTP(&http.Client{Timeout: 20 * time.Millisecond})
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}
