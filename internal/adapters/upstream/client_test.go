package upstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hotel_search/internal/adapters/memcache"
	"hotel_search/internal/adapters/upstream"
	"hotel_search/internal/domain"
)

func TestClient_GetProperty_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]any{"hotel_id": 123.0, "hotel_name": "Le Test"})
		}
	}))
	defer ts.Close()

	cl, err := upstream.New(ts.URL, "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := cl.GetProperty(ctx, 123)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got["hotel_name"] != "Le Test" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Fatalf("expected 3 calls, got %d", n)
	}
}

func TestClient_GetProperty_NotFoundTriesLegacyPath(t *testing.T) {
	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		http.NotFound(w, r)
	}))
	defer ts.Close()

	cl, _ := upstream.New(ts.URL, "test-key", 100)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := cl.GetProperty(ctx, 7)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(paths) != 2 || paths[0] != "/properties/7" || paths[1] != "/property/7" {
		t.Fatalf("unexpected paths: %v", paths)
	}
}

func TestClient_GetProperty_Forbidden(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	cl, _ := upstream.New(ts.URL, "test-key", 100)
	_, err := cl.GetProperty(context.Background(), 1)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	if _, err := upstream.New("http://example.invalid", "", 1); err == nil {
		t.Fatalf("expected error without API key")
	}
}

func TestClient_GetProperty_HonorsRetryAfter(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"hotel_id": 5.0})
	}))
	defer ts.Close()

	cl, _ := upstream.New(ts.URL, "test-key", 100)
	start := time.Now()
	if _, err := cl.GetProperty(context.Background(), 5); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Fatalf("Retry-After ignored, retried after %v", elapsed)
	}
}

func TestClient_GetProperty_GivesUpAfterMaxAttempts(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	cl, _ := upstream.New(ts.URL, "test-key", 100)
	if _, err := cl.GetProperty(context.Background(), 9); err == nil {
		t.Fatalf("expected error after retries")
	}
	if n := atomic.LoadInt32(&hits); n != 4 {
		t.Fatalf("expected 4 attempts, got %d", n)
	}
}

func TestClient_GetProperty_PayloadCache(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{"hotel_id": 11.0, "hotel_name": "Twice"})
	}))
	defer ts.Close()

	cl, _ := upstream.New(ts.URL, "test-key", 100)
	cl.WithPayloadCache(memcache.New(time.Minute, time.Minute), time.Minute)

	for i := 0; i < 2; i++ {
		got, err := cl.GetProperty(context.Background(), 11)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if got["hotel_name"] != "Twice" {
			t.Fatalf("payload = %+v", got)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected one upstream call, got %d", n)
	}
}
