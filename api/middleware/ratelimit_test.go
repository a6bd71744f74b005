package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// tight mutation quota so the limit trips within a test, with the general
// limits wide open
func mutationTestConfig() *RateLimitConfig {
	return &RateLimitConfig{
		IPRequestsPerSecond: 1000,
		IPBurst:             1000,
		IPBlockDuration:     time.Minute,

		AccountRequestsPerSecond: 1000,
		AccountBurst:             1000,

		MutationsPerSecond: 1,
		MutationsPerDay:    1000,
		MutationBurst:      2,

		CleanupInterval: time.Minute,
		BucketTTL:       time.Hour,
	}
}

func TestAllowMutationBurst(t *testing.T) {
	rl := NewRateLimiter(mutationTestConfig())
	defer rl.Stop()

	for i := 0; i < 2; i++ {
		if allowed, info := rl.AllowMutation("alice"); !allowed {
			t.Fatalf("mutation %d denied: %+v", i+1, info)
		}
	}

	allowed, info := rl.AllowMutation("alice")
	if allowed {
		t.Fatal("third rapid mutation allowed, expected limit")
	}
	if info.LimitType != "rate" {
		t.Errorf("limit type = %s, expected rate", info.LimitType)
	}
	if info.RetryAfter <= 0 {
		t.Errorf("retry after = %d, expected positive", info.RetryAfter)
	}

	// Quotas are per account
	if allowed, _ := rl.AllowMutation("bob"); !allowed {
		t.Error("bob's first mutation denied by alice's quota")
	}
}

func TestAllowMutationDailyLimit(t *testing.T) {
	config := mutationTestConfig()
	config.MutationBurst = 100
	config.MutationsPerDay = 3
	rl := NewRateLimiter(config)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if allowed, info := rl.AllowMutation("alice"); !allowed {
			t.Fatalf("mutation %d denied: %+v", i+1, info)
		}
	}

	allowed, info := rl.AllowMutation("alice")
	if allowed {
		t.Fatal("mutation beyond daily limit allowed")
	}
	if info.LimitType != "daily" {
		t.Errorf("limit type = %s, expected daily", info.LimitType)
	}
}

func TestMutationRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(mutationTestConfig())
	defer rl.Stop()

	handler := MutationRateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// No account identification
	req := httptest.NewRequest(http.MethodPost, "/v1/positions/mint", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, expected 401 without account", rec.Code)
	}

	// Identified requests pass until the burst is spent
	for i := 0; i < 2; i++ {
		req = httptest.NewRequest(http.MethodPost, "/v1/positions/mint", nil)
		req.Header.Set("X-Account-Address", "alice")
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("mutation %d status = %d, expected 200", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Mutation-Remaining") == "" {
			t.Error("missing X-RateLimit-Mutation-Remaining header")
		}
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/positions/mint", nil)
	req.Header.Set("X-Account-Address", "alice")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, expected 429 after burst", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["error"] != "mutation_limit_exceeded" {
		t.Errorf("error = %v, expected mutation_limit_exceeded", body["error"])
	}
}

func TestMutationRateLimitMiddlewareAccountFromContext(t *testing.T) {
	rl := NewRateLimiter(mutationTestConfig())
	defer rl.Stop()

	handler := MutationRateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/positions/deposit", nil)
	req = req.WithContext(SetAccountContext(req.Context(), "carol"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200 with account in context", rec.Code)
	}
}
