package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler, remote, fwd string) int {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = remote
	if fwd != "" {
		req.Header.Set("X-Forwarded-For", fwd)
	}
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiter_AllowsBurst(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 3)
	rl.now = func() time.Time { return now }
	h := limitedHandler(rl)

	for i := 0; i < 3; i++ {
		if code := hit(h, "1.2.3.4:1234", ""); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := hit(h, "1.2.3.4:5678", ""); code != http.StatusTooManyRequests {
		t.Fatalf("4th request from same host: expected 429, got %d", code)
	}

	now = now.Add(time.Second)
	if code := hit(h, "1.2.3.4:1234", ""); code != http.StatusOK {
		t.Fatalf("after refill: expected 200, got %d", code)
	}
}

func TestRateLimiter_DifferentClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return time.Unix(0, 0) }
	h := limitedHandler(rl)

	if code := hit(h, "1.1.1.1:1234", ""); code != http.StatusOK {
		t.Fatalf("client 1: expected 200, got %d", code)
	}
	if code := hit(h, "2.2.2.2:1234", ""); code != http.StatusOK {
		t.Fatalf("client 2: expected 200, got %d", code)
	}
	if code := hit(h, "9.9.9.9:1", "1.1.1.1, 10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("forwarded client 1: expected 429, got %d", code)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	h := limitedHandler(NewRateLimiter(0, 1))
	for i := 0; i < 5; i++ {
		if code := hit(h, "1.1.1.1:1", ""); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	h := limitedHandler(rl)

	hit(h, "1.1.1.1:1", "")
	now = now.Add(idleAfter + time.Second)
	hit(h, "2.2.2.2:1", "")
	if _, ok := rl.buckets["1.1.1.1"]; ok {
		t.Fatal("idle bucket was not evicted")
	}
}
