package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openalpha/dusd/api/middleware"
)

func newTestServer(tb testing.TB, config *Config) *Server {
	tb.Helper()
	s := NewServerWithService(config, newTestService(tb))
	tb.Cleanup(s.rateLimiter.Stop)
	return s
}

func postMutation(handler http.Handler, path, account string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if account != "" {
		req.Header.Set("X-Account-Address", account)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMutationQuotaOnPositionRoutes(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	handler := s.routes()

	// Rapid mutations from one account spend the burst and then get
	// limited, regardless of request validity.
	burst := middleware.DefaultRateLimitConfig().MutationBurst
	for i := 0; i < burst; i++ {
		if rec := postMutation(handler, "/v1/positions/deposit", alice); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("mutation %d limited before burst spent", i+1)
		}
	}
	rec := postMutation(handler, "/v1/positions/deposit", alice)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, expected 429 once burst spent", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mutation_limit_exceeded") {
		t.Errorf("body = %s, expected mutation_limit_exceeded", rec.Body.String())
	}

	// Reads keep flowing while the mutation quota is exhausted
	req := httptest.NewRequest(http.MethodGet, "/v1/liquidations", nil)
	req.Header.Set("X-Account-Address", alice)
	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Errorf("GET /v1/liquidations status = %d, expected 200", getRec.Code)
	}
}

func TestMutationQuotaOnLiquidationRoute(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	handler := s.routes()

	burst := middleware.DefaultRateLimitConfig().MutationBurst
	for i := 0; i < burst; i++ {
		if rec := postMutation(handler, "/v1/liquidations", bob); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("liquidation %d limited before burst spent", i+1)
		}
	}
	if rec := postMutation(handler, "/v1/liquidations", bob); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, expected 429 once burst spent", rec.Code)
	}
}

func TestMutationRequiresAccountIdentity(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	handler := s.routes()

	rec := postMutation(handler, "/v1/positions/mint", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, expected 401 without account identification", rec.Code)
	}
}

func TestMutationQuotaDisabled(t *testing.T) {
	config := DefaultConfig()
	config.DisableRateLimit = true
	s := newTestServer(t, config)
	handler := s.routes()

	// With rate limiting off, anonymous mutations reach the handler
	rec := postMutation(handler, "/v1/positions/deposit", "")
	if rec.Code == http.StatusUnauthorized || rec.Code == http.StatusTooManyRequests {
		t.Fatalf("status = %d, expected no limiter response", rec.Code)
	}
}
