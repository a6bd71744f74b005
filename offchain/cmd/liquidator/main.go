package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openalpha/dusd/offchain/liquidator"
)

// Config holds the application configuration
type Config struct {
	APIURL            string        `json:"api_url"`
	WebSocketURL      string        `json:"websocket_url"`
	LiquidatorAddress string        `json:"liquidator_address"`
	ScanInterval      time.Duration `json:"scan_interval"`
	SyncInterval      time.Duration `json:"sync_interval"`
	MaxPerScan        int           `json:"max_per_scan"`
	ClientType        string        `json:"client_type"` // "http" or "mock"
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		APIURL:       "http://localhost:8080",
		WebSocketURL: "ws://localhost:8080/ws",
		ScanInterval: 2 * time.Second,
		SyncInterval: 30 * time.Second,
		MaxPerScan:   5,
		ClientType:   "http",
	}
}

// LoadConfig loads configuration from a file
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	apiURL := flag.String("api", "", "Engine API URL")
	wsURL := flag.String("ws", "", "Engine WebSocket URL")
	address := flag.String("address", "", "Liquidator account address")
	scanInterval := flag.Duration("scan-interval", 0, "Interval between liquidation scans")
	syncInterval := flag.Duration("sync-interval", 0, "Interval between full index syncs")
	maxPerScan := flag.Int("max-per-scan", 0, "Maximum liquidation attempts per scan")
	clientType := flag.String("client", "", "Client type (http or mock)")
	flag.Parse()

	// Load configuration
	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Override with command line flags
	if *apiURL != "" {
		config.APIURL = *apiURL
	}
	if *wsURL != "" {
		config.WebSocketURL = *wsURL
	}
	if *address != "" {
		config.LiquidatorAddress = *address
	}
	if *scanInterval > 0 {
		config.ScanInterval = *scanInterval
	}
	if *syncInterval > 0 {
		config.SyncInterval = *syncInterval
	}
	if *maxPerScan > 0 {
		config.MaxPerScan = *maxPerScan
	}
	if *clientType != "" {
		config.ClientType = *clientType
	}

	if config.LiquidatorAddress == "" {
		log.Fatal("Liquidator address is required (-address or liquidator_address in config)")
	}

	// Print configuration
	log.Println("=== dUSD Liquidator ===")
	log.Printf("API: %s", config.APIURL)
	log.Printf("WebSocket: %s", config.WebSocketURL)
	log.Printf("Address: %s", config.LiquidatorAddress)
	log.Printf("Scan Interval: %v", config.ScanInterval)
	log.Printf("Sync Interval: %v", config.SyncInterval)
	log.Printf("Max Per Scan: %d", config.MaxPerScan)
	log.Println("=======================")

	// Create engine client
	client := liquidator.NewEngineClient(config.ClientType, &liquidator.HTTPClientConfig{
		APIURL:        config.APIURL,
		Timeout:       10 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	})

	// Create liquidator
	bot := liquidator.NewLiquidator(&liquidator.Config{
		LiquidatorAddress: config.LiquidatorAddress,
		ScanInterval:      config.ScanInterval,
		SyncInterval:      config.SyncInterval,
		MaxPerScan:        config.MaxPerScan,
		WebSocketURL:      config.WebSocketURL,
	}, client)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the liquidator
	if err := bot.Start(ctx); err != nil {
		log.Fatalf("Failed to start liquidator: %v", err)
	}

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Periodic stats logging
	statsTicker := time.NewTicker(10 * time.Second)
	defer statsTicker.Stop()

	log.Println("Liquidator is running. Press Ctrl+C to stop.")

	for {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal: %v", sig)
			cancel()
			if err := bot.Stop(); err != nil {
				log.Printf("Error stopping liquidator: %v", err)
			}
			log.Println("Liquidator stopped")
			return
		case <-statsTicker.C:
			stats := bot.GetStats()
			log.Printf("Stats: Watched=%d, Attempted=%d, Executed=%d, Failed=%d, FeedConnected=%v",
				stats.WatchedAccounts, stats.Attempted, stats.Executed, stats.Failed, stats.FeedConnected)
		}
	}
}
