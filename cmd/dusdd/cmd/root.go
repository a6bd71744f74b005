package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openalpha/dusd/api"
	"github.com/openalpha/dusd/app"
)

// NewRootCmd creates the root command for dusdd
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dusdd",
		Short: "dUSD - Collateral-backed synthetic dollar engine",
		Long: `dUSD is an overcollateralized synthetic dollar engine.
Accounts deposit exogenous collateral, mint dusd against it, and are
liquidated when their position falls below the safety threshold.`,
	}

	rootCmd.AddCommand(
		StartCmd(),
		VersionCmd(),
	)

	return rootCmd
}

// StartCmd returns the command that runs the engine and its API server
func StartCmd() *cobra.Command {
	var (
		host        string
		port        int
		genesisPath string
		noRateLimit bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the engine and serve its HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			genesis, err := loadGenesis(genesisPath)
			if err != nil {
				return err
			}

			config := api.DefaultConfig()
			config.Host = host
			config.Port = port
			config.DisableRateLimit = noRateLimit

			server, err := api.NewServer(config, genesis)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			cmd.Printf("Engine listening on %s:%d\n", host, port)
			cmd.Printf("WebSocket endpoint: ws://%s:%d/ws\n", host, port)
			cmd.Printf("Metrics: http://%s:%d/metrics\n", host, port)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				cmd.Printf("Received signal: %v, shutting down\n", sig)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Stop(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Listen host")
	cmd.Flags().IntVar(&port, "port", 8080, "Listen port")
	cmd.Flags().StringVar(&genesisPath, "genesis", "", "Path to genesis JSON (collateral set and initial prices)")
	cmd.Flags().BoolVar(&noRateLimit, "no-rate-limit", false, "Disable API rate limiting")

	return cmd
}

// loadGenesis reads a genesis file, falling back to a default two-asset
// collateral set when no path is given.
func loadGenesis(path string) (*app.GenesisConfig, error) {
	if path == "" {
		return DefaultGenesis(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis file: %w", err)
	}

	var genesis app.GenesisConfig
	if err := json.Unmarshal(data, &genesis); err != nil {
		return nil, fmt.Errorf("failed to parse genesis file: %w", err)
	}
	if len(genesis.Collateral) == 0 {
		return nil, fmt.Errorf("genesis file declares no collateral assets")
	}

	return &genesis, nil
}

// DefaultGenesis returns a wrapped-ETH and wrapped-BTC collateral set
// with 8-decimal price feeds.
func DefaultGenesis() *app.GenesisConfig {
	return &app.GenesisConfig{
		Collateral: []app.CollateralConfig{
			{Denom: "weth", FeedID: "eth-usd", Decimals: 8},
			{Denom: "wbtc", FeedID: "btc-usd", Decimals: 8},
		},
		Prices: map[string]app.PriceConfig{
			"eth-usd": {Price: "200000000000", Decimals: 8},
			"btc-usd": {Price: "6000000000000", Decimals: 8},
		},
	}
}

// VersionCmd returns a command to print the version
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("dUSD v0.1.0")
		},
	}
}
