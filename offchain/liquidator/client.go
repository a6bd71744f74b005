package liquidator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/openalpha/dusd/api/types"
)

// EngineClient defines the interface for talking to the engine API
type EngineClient interface {
	// GetAccount fetches the current position of an account
	GetAccount(ctx context.Context, address string) (*types.Account, error)

	// GetUnsafeAccounts fetches all accounts below the safety threshold
	GetUnsafeAccounts(ctx context.Context) ([]types.UnsafeAccount, error)

	// SubmitLiquidation executes a liquidation against the engine
	SubmitLiquidation(ctx context.Context, req *types.LiquidateRequest) (*types.LiquidateResponse, error)

	// GetStatus returns the client status
	GetStatus() ClientStatus
}

// ClientStatus represents the status of an engine client
type ClientStatus struct {
	Connected         bool
	LastSubmitTime    time.Time
	LastError         string
	TotalSubmissions  int64
	FailedSubmissions int64
}

// ============================================================================
// HTTP Client
// ============================================================================

// HTTPClientConfig holds configuration for HTTPClient
type HTTPClientConfig struct {
	APIURL        string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultHTTPClientConfig returns default configuration
func DefaultHTTPClientConfig() *HTTPClientConfig {
	return &HTTPClientConfig{
		APIURL:        "http://localhost:8080",
		Timeout:       10 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// HTTPClient talks to the engine over its REST API
type HTTPClient struct {
	apiURL        string
	httpClient    *http.Client
	retryAttempts int
	retryDelay    time.Duration

	mu     sync.Mutex
	status ClientStatus
}

// NewHTTPClient creates a new HTTP engine client
func NewHTTPClient(config *HTTPClientConfig) *HTTPClient {
	if config == nil {
		config = DefaultHTTPClientConfig()
	}

	return &HTTPClient{
		apiURL:        config.APIURL,
		httpClient:    &http.Client{Timeout: config.Timeout},
		retryAttempts: config.RetryAttempts,
		retryDelay:    config.RetryDelay,
		status: ClientStatus{
			Connected: true,
		},
	}
}

// apiError is the error body returned by the engine API
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetAccount fetches an account position via GET /v1/accounts/{address}
func (c *HTTPClient) GetAccount(ctx context.Context, address string) (*types.Account, error) {
	var wrapper struct {
		Account *types.Account `json:"account"`
	}
	if err := c.getJSON(ctx, "/v1/accounts/"+address, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Account, nil
}

// GetUnsafeAccounts fetches liquidatable accounts via GET /v1/liquidations/unsafe
func (c *HTTPClient) GetUnsafeAccounts(ctx context.Context) ([]types.UnsafeAccount, error) {
	var wrapper struct {
		Accounts []types.UnsafeAccount `json:"accounts"`
		Total    int                   `json:"total"`
	}
	if err := c.getJSON(ctx, "/v1/liquidations/unsafe", &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Accounts, nil
}

// SubmitLiquidation executes a liquidation via POST /v1/liquidations,
// retrying transient failures. Rejections from the engine (bad request,
// healthy target) are returned without retry.
func (c *HTTPClient) SubmitLiquidation(ctx context.Context, req *types.LiquidateRequest) (*types.LiquidateResponse, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		resp, retryable, err := c.postLiquidation(ctx, req)
		if err == nil {
			c.mu.Lock()
			c.status.TotalSubmissions++
			c.status.LastSubmitTime = time.Now()
			c.mu.Unlock()
			return resp, nil
		}
		lastErr = err
		if !retryable {
			break
		}
		log.Printf("Liquidation submission attempt %d failed: %v", attempt+1, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	c.mu.Lock()
	c.status.FailedSubmissions++
	c.status.LastError = lastErr.Error()
	c.mu.Unlock()
	return nil, lastErr
}

// postLiquidation performs a single POST. The second return value
// reports whether the failure is worth retrying.
func (c *HTTPClient) postLiquidation(ctx context.Context, req *types.LiquidateRequest) (*types.LiquidateResponse, bool, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/v1/liquidations", bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Account-Address", req.Liquidator)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		apiErr := decodeAPIError(httpResp.Body)
		// 4xx responses are engine rejections, not transport failures
		retryable := httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("liquidation rejected (%d %s): %s", httpResp.StatusCode, apiErr.Error, apiErr.Message)
	}

	var resp types.LiquidateResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, false, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, false, nil
}

// getJSON performs a GET against the API and decodes the response
func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
	if err != nil {
		return err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.mu.Lock()
		c.status.Connected = false
		c.status.LastError = err.Error()
		c.mu.Unlock()
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	c.mu.Lock()
	c.status.Connected = true
	c.mu.Unlock()

	if httpResp.StatusCode != http.StatusOK {
		apiErr := decodeAPIError(httpResp.Body)
		return fmt.Errorf("request rejected (%d %s): %s", httpResp.StatusCode, apiErr.Error, apiErr.Message)
	}

	return json.NewDecoder(httpResp.Body).Decode(out)
}

// GetStatus returns the HTTP client status
func (c *HTTPClient) GetStatus() ClientStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func decodeAPIError(body io.Reader) apiError {
	var apiErr apiError
	if err := json.NewDecoder(body).Decode(&apiErr); err != nil {
		apiErr.Error = "unknown"
		apiErr.Message = "unreadable error body"
	}
	return apiErr
}

// ============================================================================
// Mock Client
// ============================================================================

// MockClient is a mock implementation for testing
type MockClient struct {
	mu              sync.Mutex
	accounts        map[string]*types.Account
	unsafeAccounts  []types.UnsafeAccount
	submitted       []*types.LiquidateRequest
	response        *types.LiquidateResponse
	status          ClientStatus
	simulateFailure bool
}

// NewMockClient creates a new mock client
func NewMockClient() *MockClient {
	return &MockClient{
		accounts:  make(map[string]*types.Account),
		submitted: make([]*types.LiquidateRequest, 0),
		status: ClientStatus{
			Connected: true,
		},
	}
}

// SetAccount seeds an account view (for testing)
func (c *MockClient) SetAccount(account *types.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[account.Address] = account
}

// SetUnsafeAccounts seeds the unsafe account list (for testing)
func (c *MockClient) SetUnsafeAccounts(accounts []types.UnsafeAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsafeAccounts = accounts
}

// SetResponse seeds the liquidation response (for testing)
func (c *MockClient) SetResponse(resp *types.LiquidateResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.response = resp
}

// SetSimulateFailure enables or disables failure simulation
func (c *MockClient) SetSimulateFailure(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.simulateFailure = fail
}

// GetAccount returns the seeded account view
func (c *MockClient) GetAccount(ctx context.Context, address string) (*types.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	account, ok := c.accounts[address]
	if !ok {
		return nil, fmt.Errorf("account not found: %s", address)
	}
	return account, nil
}

// GetUnsafeAccounts returns the seeded unsafe account list
func (c *MockClient) GetUnsafeAccounts(ctx context.Context) ([]types.UnsafeAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]types.UnsafeAccount, len(c.unsafeAccounts))
	copy(result, c.unsafeAccounts)
	return result, nil
}

// SubmitLiquidation records the request (mock implementation)
func (c *MockClient) SubmitLiquidation(ctx context.Context, req *types.LiquidateRequest) (*types.LiquidateResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.simulateFailure {
		c.status.FailedSubmissions++
		c.status.LastError = "simulated failure"
		return nil, fmt.Errorf("simulated failure")
	}

	c.submitted = append(c.submitted, req)
	c.status.TotalSubmissions++
	c.status.LastSubmitTime = time.Now()
	return c.response, nil
}

// GetSubmitted returns all submitted requests (for testing)
func (c *MockClient) GetSubmitted() []*types.LiquidateRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]*types.LiquidateRequest, len(c.submitted))
	copy(result, c.submitted)
	return result
}

// GetStatus returns the mock client status
func (c *MockClient) GetStatus() ClientStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// NewEngineClient creates a client based on the type
func NewEngineClient(clientType string, config *HTTPClientConfig) EngineClient {
	switch clientType {
	case "mock":
		return NewMockClient()
	default:
		return NewHTTPClient(config)
	}
}
