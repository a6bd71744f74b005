package liquidator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"cosmossdk.io/math"

	"github.com/openalpha/dusd/api/types"
)

// Config holds configuration for the liquidator bot
type Config struct {
	// LiquidatorAddress is the account that covers debt and receives collateral
	LiquidatorAddress string

	// ScanInterval is how often the watch index is scanned for targets
	ScanInterval time.Duration

	// SyncInterval is how often the index is reseeded from the engine.
	// Covers updates missed while the feed was disconnected.
	SyncInterval time.Duration

	// MaxPerScan caps liquidation attempts per scan pass
	MaxPerScan int

	// WebSocketURL is the engine's websocket endpoint; empty disables the feed
	WebSocketURL string
}

// DefaultConfig returns default liquidator configuration
func DefaultConfig() *Config {
	return &Config{
		ScanInterval: 2 * time.Second,
		SyncInterval: 30 * time.Second,
		MaxPerScan:   5,
		WebSocketURL: "ws://localhost:8080/ws",
	}
}

// Liquidator watches account health and liquidates undercollateralized
// positions through the engine API. Health updates stream in over the
// websocket feed; a periodic sync against the unsafe-accounts endpoint
// backfills anything the feed missed.
type Liquidator struct {
	config *Config
	client EngineClient
	index  *WatchIndex
	feed   *Feed

	// minFactor is the liquidation threshold in 1e18 fixed point
	minFactor math.Int

	eventCh chan *Event
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool
	stats   statsCounters
}

type statsCounters struct {
	eventsProcessed int64
	attempted       int64
	executed        int64
	failed          int64
	lastTarget      string
	lastError       string
}

// Stats contains liquidator statistics
type Stats struct {
	WatchedAccounts int
	EventsProcessed int64
	Attempted       int64
	Executed        int64
	Failed          int64
	LastTarget      string
	LastError       string
	FeedConnected   bool
}

// NewLiquidator creates a new liquidator bot
func NewLiquidator(config *Config, client EngineClient) *Liquidator {
	if config == nil {
		config = DefaultConfig()
	}

	l := &Liquidator{
		config:    config,
		client:    client,
		index:     NewWatchIndex(),
		minFactor: math.NewIntWithDecimal(1, 18),
		eventCh:   make(chan *Event, 1000),
		stopCh:    make(chan struct{}),
	}

	if config.WebSocketURL != "" {
		l.feed = NewFeed(config.WebSocketURL, []string{"unsafe", "liquidations"}, l.eventCh)
	}

	return l
}

// Start launches the liquidator's goroutines
func (l *Liquidator) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("liquidator already running")
	}
	if l.config.LiquidatorAddress == "" {
		l.mu.Unlock()
		return fmt.Errorf("liquidator address is required")
	}
	l.running = true
	l.mu.Unlock()

	log.Println("Starting liquidator...")

	if l.feed != nil {
		l.feed.Start(ctx)
	}

	l.wg.Add(3)
	go l.eventLoop(ctx)
	go l.scanLoop(ctx)
	go l.syncLoop(ctx)

	// Seed the index before the first scan fires
	if err := l.syncIndex(ctx); err != nil {
		log.Printf("Initial index sync failed: %v", err)
	}

	log.Println("Liquidator started")
	return nil
}

// Stop stops the liquidator and waits for goroutines to finish
func (l *Liquidator) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return fmt.Errorf("liquidator not running")
	}
	l.running = false
	l.mu.Unlock()

	log.Println("Stopping liquidator...")
	close(l.stopCh)
	if l.feed != nil {
		l.feed.Stop()
	}
	l.wg.Wait()
	log.Println("Liquidator stopped")
	return nil
}

// GetStats returns liquidator statistics
func (l *Liquidator) GetStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Stats{
		WatchedAccounts: l.index.Len(),
		EventsProcessed: l.stats.eventsProcessed,
		Attempted:       l.stats.attempted,
		Executed:        l.stats.executed,
		Failed:          l.stats.failed,
		LastTarget:      l.stats.lastTarget,
		LastError:       l.stats.lastError,
		FeedConnected:   l.feed != nil && l.feed.Connected(),
	}
}

// Index returns the watch index (for testing)
func (l *Liquidator) Index() *WatchIndex {
	return l.index
}

// ============================================================================
// Event processing
// ============================================================================

// eventLoop processes feed events
func (l *Liquidator) eventLoop(ctx context.Context) {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		case event := <-l.eventCh:
			l.handleEvent(ctx, event)
		}
	}
}

// handleEvent applies a single feed event to the watch index
func (l *Liquidator) handleEvent(ctx context.Context, event *Event) {
	l.mu.Lock()
	l.stats.eventsProcessed++
	l.mu.Unlock()

	switch event.Type {
	case EventHealthUpdate:
		l.handleHealthUpdate(event.Health.Account, event.Health.HealthFactor, event.Health.DebtDusd, event.Health.Timestamp)
	case EventLiquidationExecuted:
		// Someone moved the target's position. Refresh it from the engine
		// so the index does not scan against a stale factor.
		l.refreshAccount(ctx, event.Liquidation.Target)
	}
}

// handleHealthUpdate records a health update in the watch index.
// Accounts with no debt cannot be liquidated and are dropped.
func (l *Liquidator) handleHealthUpdate(address, factorStr, debtStr string, updatedAt int64) {
	factor, ok := math.NewIntFromString(factorStr)
	if !ok {
		log.Printf("Ignoring health update with bad factor for %s: %q", address, factorStr)
		return
	}
	debt, ok := math.NewIntFromString(debtStr)
	if !ok {
		log.Printf("Ignoring health update with bad debt for %s: %q", address, debtStr)
		return
	}

	if debt.IsZero() || factor.GTE(l.minFactor) {
		l.index.Remove(address)
		return
	}
	l.index.Upsert(address, factor, debt, updatedAt)
}

// refreshAccount re-reads an account from the engine and updates the index
func (l *Liquidator) refreshAccount(ctx context.Context, address string) {
	account, err := l.client.GetAccount(ctx, address)
	if err != nil {
		log.Printf("Failed to refresh account %s: %v", address, err)
		return
	}
	l.handleHealthUpdate(account.Address, account.HealthFactor, account.DebtDusd, account.UpdatedAt)
}

// ============================================================================
// Scanning
// ============================================================================

// scanLoop periodically liquidates the riskiest watched accounts
func (l *Liquidator) scanLoop(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.scan(ctx)
		}
	}
}

// scan attempts to liquidate the riskiest accounts in the index
func (l *Liquidator) scan(ctx context.Context) {
	targets := l.index.Riskiest(l.minFactor, l.config.MaxPerScan)
	for _, target := range targets {
		if err := l.Liquidate(ctx, target.Address); err != nil {
			log.Printf("Liquidation of %s failed: %v", target.Address, err)
		}
	}
}

// Liquidate re-reads the target's position and, if it is still unsafe,
// covers its full debt against its most valuable collateral asset.
func (l *Liquidator) Liquidate(ctx context.Context, target string) error {
	account, err := l.client.GetAccount(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to fetch target: %w", err)
	}

	factor, ok := math.NewIntFromString(account.HealthFactor)
	if !ok {
		return fmt.Errorf("bad health factor for %s: %q", target, account.HealthFactor)
	}
	if factor.GTE(l.minFactor) || account.DebtDusd == "0" {
		// Recovered since the last update, nothing to do
		l.index.Remove(target)
		return nil
	}

	denom := pickDenom(account)
	if denom == "" {
		l.index.Remove(target)
		return fmt.Errorf("target %s has no collateral to seize", target)
	}

	l.mu.Lock()
	l.stats.attempted++
	l.stats.lastTarget = target
	l.mu.Unlock()

	req := &types.LiquidateRequest{
		Liquidator:  l.config.LiquidatorAddress,
		Target:      target,
		Denom:       denom,
		DebtToCover: account.DebtDusd,
	}
	resp, err := l.client.SubmitLiquidation(ctx, req)
	if err != nil {
		l.mu.Lock()
		l.stats.failed++
		l.stats.lastError = err.Error()
		l.mu.Unlock()

		// A healthy rejection means our view was stale
		if strings.Contains(err.Error(), "healthy") {
			l.index.Remove(target)
		}
		return err
	}

	l.mu.Lock()
	l.stats.executed++
	l.mu.Unlock()

	if resp != nil && resp.Liquidation != nil {
		log.Printf("Liquidated %s: covered %s dusd, seized %s %s",
			target, resp.Liquidation.DebtCovered, resp.Liquidation.TotalSeized, denom)
	}
	if resp != nil && resp.Target != nil {
		l.handleHealthUpdate(resp.Target.Address, resp.Target.HealthFactor, resp.Target.DebtDusd, resp.Target.UpdatedAt)
	} else {
		l.index.Remove(target)
	}
	return nil
}

// pickDenom returns the target's most valuable collateral denom.
// Seizing from the deepest balance keeps partial liquidations viable.
func pickDenom(account *types.Account) string {
	best := ""
	bestValue := math.ZeroInt()
	for _, balance := range account.Collateral {
		value, ok := math.NewIntFromString(balance.UsdValue)
		if !ok {
			continue
		}
		if value.IsPositive() && value.GT(bestValue) {
			best = balance.Denom
			bestValue = value
		}
	}
	return best
}

// ============================================================================
// Index sync
// ============================================================================

// syncLoop periodically reseeds the index from the engine
func (l *Liquidator) syncLoop(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.syncIndex(ctx); err != nil {
				log.Printf("Index sync failed: %v", err)
			}
		}
	}
}

// syncIndex pulls the engine's unsafe account list into the index
func (l *Liquidator) syncIndex(ctx context.Context) error {
	accounts, err := l.client.GetUnsafeAccounts(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	for _, account := range accounts {
		l.handleHealthUpdate(account.Address, account.HealthFactor, account.DebtDusd, now)
	}
	return nil
}
