package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// RateLimiter implements a token bucket rate limiter
type RateLimiter struct {
	config *RateLimitConfig

	// Buckets by key (IP or account address)
	buckets   map[string]*Bucket
	bucketsMu sync.RWMutex

	// Position mutation limits (stricter)
	mutationBuckets   map[string]*Bucket
	mutationBucketsMu sync.RWMutex

	// Daily counters
	dailyCounters   map[string]*DailyCounter
	dailyCountersMu sync.RWMutex

	// Cleanup ticker
	cleanupTicker *time.Ticker
	stopCh        chan struct{}
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	// IP-based limits
	IPRequestsPerSecond int
	IPBurst             int
	IPBlockDuration     time.Duration

	// Account-based limits (identified callers)
	AccountRequestsPerSecond int
	AccountBurst             int

	// Mutation-specific limits (deposit, mint, redeem, burn, liquidate)
	MutationsPerSecond int
	MutationsPerDay    int
	MutationBurst      int

	// Cleanup
	CleanupInterval time.Duration
	BucketTTL       time.Duration
}

// DefaultRateLimitConfig returns default configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		IPRequestsPerSecond: 100,
		IPBurst:             200,
		IPBlockDuration:     time.Minute,

		AccountRequestsPerSecond: 200,
		AccountBurst:             400,

		MutationsPerSecond: 10,
		MutationsPerDay:    10000,
		MutationBurst:      20,

		CleanupInterval: time.Minute * 5,
		BucketTTL:       time.Hour,
	}
}

// Bucket represents a token bucket for rate limiting
type Bucket struct {
	tokens       float64
	maxTokens    float64
	refillRate   float64 // tokens per second
	lastUpdate   time.Time
	blocked      bool
	blockedUntil time.Time
	mu           sync.Mutex
}

// DailyCounter tracks daily request counts
type DailyCounter struct {
	count int
	limit int
	date  string
	mu    sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	rl := &RateLimiter{
		config:          config,
		buckets:         make(map[string]*Bucket),
		mutationBuckets: make(map[string]*Bucket),
		dailyCounters:   make(map[string]*DailyCounter),
		cleanupTicker:   time.NewTicker(config.CleanupInterval),
		stopCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the rate limiter
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
	rl.cleanupTicker.Stop()
}

// cleanupLoop periodically cleans up expired buckets
func (rl *RateLimiter) cleanupLoop() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup removes expired buckets
func (rl *RateLimiter) cleanup() {
	now := time.Now()
	threshold := now.Add(-rl.config.BucketTTL)

	rl.bucketsMu.Lock()
	for key, bucket := range rl.buckets {
		bucket.mu.Lock()
		if bucket.lastUpdate.Before(threshold) {
			delete(rl.buckets, key)
		}
		bucket.mu.Unlock()
	}
	rl.bucketsMu.Unlock()

	rl.mutationBucketsMu.Lock()
	for key, bucket := range rl.mutationBuckets {
		bucket.mu.Lock()
		if bucket.lastUpdate.Before(threshold) {
			delete(rl.mutationBuckets, key)
		}
		bucket.mu.Unlock()
	}
	rl.mutationBucketsMu.Unlock()
}

// getBucket gets or creates a bucket for a key
func (rl *RateLimiter) getBucket(key string, maxTokens, refillRate float64) *Bucket {
	rl.bucketsMu.RLock()
	bucket, ok := rl.buckets[key]
	rl.bucketsMu.RUnlock()

	if ok {
		return bucket
	}

	rl.bucketsMu.Lock()
	defer rl.bucketsMu.Unlock()

	// Double-check after acquiring write lock
	if bucket, ok := rl.buckets[key]; ok {
		return bucket
	}

	bucket = &Bucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastUpdate: time.Now(),
	}
	rl.buckets[key] = bucket
	return bucket
}

// getMutationBucket gets or creates a mutation bucket for a key
func (rl *RateLimiter) getMutationBucket(key string) *Bucket {
	rl.mutationBucketsMu.RLock()
	bucket, ok := rl.mutationBuckets[key]
	rl.mutationBucketsMu.RUnlock()

	if ok {
		return bucket
	}

	rl.mutationBucketsMu.Lock()
	defer rl.mutationBucketsMu.Unlock()

	// Double-check
	if bucket, ok := rl.mutationBuckets[key]; ok {
		return bucket
	}

	bucket = &Bucket{
		tokens:     float64(rl.config.MutationBurst),
		maxTokens:  float64(rl.config.MutationBurst),
		refillRate: float64(rl.config.MutationsPerSecond),
		lastUpdate: time.Now(),
	}
	rl.mutationBuckets[key] = bucket
	return bucket
}

// getDailyCounter gets or creates a daily counter for a key
func (rl *RateLimiter) getDailyCounter(key string, limit int) *DailyCounter {
	today := time.Now().Format("2006-01-02")
	counterKey := key + ":" + today

	rl.dailyCountersMu.RLock()
	counter, ok := rl.dailyCounters[counterKey]
	rl.dailyCountersMu.RUnlock()

	if ok {
		return counter
	}

	rl.dailyCountersMu.Lock()
	defer rl.dailyCountersMu.Unlock()

	// Double-check
	if counter, ok := rl.dailyCounters[counterKey]; ok {
		return counter
	}

	counter = &DailyCounter{
		count: 0,
		limit: limit,
		date:  today,
	}
	rl.dailyCounters[counterKey] = counter
	return counter
}

// AllowIP checks if a request from an IP is allowed
func (rl *RateLimiter) AllowIP(ip string) (bool, *RateLimitInfo) {
	bucket := rl.getBucket("ip:"+ip, float64(rl.config.IPBurst), float64(rl.config.IPRequestsPerSecond))
	return rl.tryConsume(bucket, 1)
}

// AllowAccount checks if a request from an identified account is allowed
func (rl *RateLimiter) AllowAccount(account string) (bool, *RateLimitInfo) {
	bucket := rl.getBucket("account:"+account, float64(rl.config.AccountBurst), float64(rl.config.AccountRequestsPerSecond))
	return rl.tryConsume(bucket, 1)
}

// AllowMutation checks if a position mutation is allowed
func (rl *RateLimiter) AllowMutation(account string) (bool, *RateLimitInfo) {
	// Check rate limit
	bucket := rl.getMutationBucket("mutation:" + account)
	allowed, info := rl.tryConsume(bucket, 1)
	if !allowed {
		return false, info
	}

	// Check daily limit
	counter := rl.getDailyCounter("mutation:"+account, rl.config.MutationsPerDay)
	counter.mu.Lock()
	defer counter.mu.Unlock()

	if counter.count >= counter.limit {
		return false, &RateLimitInfo{
			Allowed:    false,
			Remaining:  0,
			Limit:      counter.limit,
			RetryAfter: rl.secondsUntilMidnight(),
			LimitType:  "daily",
		}
	}

	counter.count++
	return true, &RateLimitInfo{
		Allowed:   true,
		Remaining: counter.limit - counter.count,
		Limit:     counter.limit,
		LimitType: "daily",
	}
}

// tryConsume tries to consume a token from a bucket
func (rl *RateLimiter) tryConsume(bucket *Bucket, tokens float64) (bool, *RateLimitInfo) {
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()

	// Check if blocked
	if bucket.blocked && now.Before(bucket.blockedUntil) {
		return false, &RateLimitInfo{
			Allowed:    false,
			Remaining:  0,
			Limit:      int(bucket.maxTokens),
			RetryAfter: int(bucket.blockedUntil.Sub(now).Seconds()) + 1,
			LimitType:  "blocked",
		}
	}
	bucket.blocked = false

	// Refill tokens
	elapsed := now.Sub(bucket.lastUpdate).Seconds()
	bucket.tokens += elapsed * bucket.refillRate
	if bucket.tokens > bucket.maxTokens {
		bucket.tokens = bucket.maxTokens
	}
	bucket.lastUpdate = now

	// Try to consume
	if bucket.tokens >= tokens {
		bucket.tokens -= tokens
		return true, &RateLimitInfo{
			Allowed:   true,
			Remaining: int(bucket.tokens),
			Limit:     int(bucket.maxTokens),
			LimitType: "rate",
		}
	}

	// Not enough tokens, block the bucket
	bucket.blocked = true
	bucket.blockedUntil = now.Add(rl.config.IPBlockDuration)

	retryAfter := int((tokens-bucket.tokens)/bucket.refillRate) + 1
	return false, &RateLimitInfo{
		Allowed:    false,
		Remaining:  0,
		Limit:      int(bucket.maxTokens),
		RetryAfter: retryAfter,
		LimitType:  "rate",
	}
}

// secondsUntilMidnight returns seconds until midnight
func (rl *RateLimiter) secondsUntilMidnight() int {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return int(midnight.Sub(now).Seconds())
}

// RateLimitInfo contains rate limit information
type RateLimitInfo struct {
	Allowed    bool   `json:"allowed"`
	Remaining  int    `json:"remaining"`
	Limit      int    `json:"limit"`
	RetryAfter int    `json:"retry_after,omitempty"`
	LimitType  string `json:"limit_type"`
}

// ============ HTTP Middleware ============

// RateLimitMiddleware creates an HTTP middleware for rate limiting
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)

			// Check IP rate limit
			allowed, info := rl.AllowIP(ip)
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
				w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
				if info.RetryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%d", info.RetryAfter))
				}
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error":       "rate_limit_exceeded",
					"message":     "Too many requests, please slow down",
					"retry_after": info.RetryAfter,
				})
				return
			}

			// Add rate limit headers
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))

			// Check account rate limit if identified
			account := getAccountFromContext(r.Context())
			if account == "" {
				account = r.Header.Get("X-Account-Address")
			}
			if account != "" {
				allowed, acctInfo := rl.AllowAccount(account)
				if !allowed {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", acctInfo.Limit))
					w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", acctInfo.Remaining))
					if acctInfo.RetryAfter > 0 {
						w.Header().Set("Retry-After", fmt.Sprintf("%d", acctInfo.RetryAfter))
					}
					w.WriteHeader(http.StatusTooManyRequests)
					_ = json.NewEncoder(w).Encode(map[string]interface{}{
						"error":       "rate_limit_exceeded",
						"message":     "Account rate limit exceeded",
						"retry_after": acctInfo.RetryAfter,
					})
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MutationRateLimitMiddleware creates an HTTP middleware for position mutation rate limiting
func MutationRateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := getAccountFromContext(r.Context())
			if account == "" {
				account = r.Header.Get("X-Account-Address")
			}
			if account == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "unauthorized",
					"message": "Account identification required for position mutations",
				})
				return
			}

			allowed, info := rl.AllowMutation(account)
			if !allowed {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
				w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
				if info.RetryAfter > 0 {
					w.Header().Set("Retry-After", fmt.Sprintf("%d", info.RetryAfter))
				}
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error":       "mutation_limit_exceeded",
					"message":     fmt.Sprintf("Mutation %s limit exceeded", info.LimitType),
					"retry_after": info.RetryAfter,
					"limit_type":  info.LimitType,
				})
				return
			}

			w.Header().Set("X-RateLimit-Mutation-Remaining", fmt.Sprintf("%d", info.Remaining))

			next.ServeHTTP(w, r)
		})
	}
}

// Helper context key for account address
type contextKey string

const accountContextKey contextKey = "account_address"

// SetAccountContext sets the account address in context
func SetAccountContext(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// getAccountFromContext gets the account address from context
func getAccountFromContext(ctx context.Context) string {
	if account, ok := ctx.Value(accountContextKey).(string); ok {
		return account
	}
	return ""
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check for forwarded headers
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to remote address
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}

// ============ Statistics ============

// Stats returns rate limiter statistics
type Stats struct {
	TotalBuckets    int `json:"total_buckets"`
	MutationBuckets int `json:"mutation_buckets"`
	DailyCounters   int `json:"daily_counters"`
	BlockedBuckets  int `json:"blocked_buckets"`
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() *Stats {
	rl.bucketsMu.RLock()
	totalBuckets := len(rl.buckets)
	blockedCount := 0
	for _, b := range rl.buckets {
		b.mu.Lock()
		if b.blocked && time.Now().Before(b.blockedUntil) {
			blockedCount++
		}
		b.mu.Unlock()
	}
	rl.bucketsMu.RUnlock()

	rl.mutationBucketsMu.RLock()
	mutationBuckets := len(rl.mutationBuckets)
	rl.mutationBucketsMu.RUnlock()

	rl.dailyCountersMu.RLock()
	dailyCounters := len(rl.dailyCounters)
	rl.dailyCountersMu.RUnlock()

	return &Stats{
		TotalBuckets:    totalBuckets,
		MutationBuckets: mutationBuckets,
		DailyCounters:   dailyCounters,
		BlockedBuckets:  blockedCount,
	}
}
