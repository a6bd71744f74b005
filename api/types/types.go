package types

import (
	"context"
	"time"
)

// CollateralBalance represents one deposited asset in an API response
type CollateralBalance struct {
	Denom    string `json:"denom"`
	Amount   string `json:"amount"`
	UsdValue string `json:"usd_value"`
}

// Account represents an account position in the API response
type Account struct {
	Address            string              `json:"address"`
	Collateral         []CollateralBalance `json:"collateral"`
	CollateralValueUsd string              `json:"collateral_value_usd"`
	DebtDusd           string              `json:"debt_dusd"`
	HealthFactor       string              `json:"health_factor"`
	UpdatedAt          int64               `json:"updated_at"`
}

// Asset represents a registered collateral asset
type Asset struct {
	Denom    string `json:"denom"`
	FeedID   string `json:"feed_id"`
	Decimals uint8  `json:"decimals"`
	PriceUsd string `json:"price_usd,omitempty"`
}

// Liquidation represents an executed liquidation in the API response
type Liquidation struct {
	ID          string `json:"id"`
	Liquidator  string `json:"liquidator"`
	Target      string `json:"target"`
	Denom       string `json:"denom"`
	DebtCovered string `json:"debt_covered"`
	BaseSeized  string `json:"base_seized"`
	BonusSeized string `json:"bonus_seized"`
	TotalSeized string `json:"total_seized"`
	StartFactor string `json:"start_factor"`
	EndFactor   string `json:"end_factor"`
	Status      string `json:"status"`
	ExecutedAt  int64  `json:"executed_at"`
}

// UnsafeAccount represents a liquidatable account
type UnsafeAccount struct {
	Address      string `json:"address"`
	HealthFactor string `json:"health_factor"`
	DebtDusd     string `json:"debt_dusd"`
}

// BackingReport represents the system-wide solvency snapshot
type BackingReport struct {
	DusdSupply         string `json:"dusd_supply"`
	CollateralValueUsd string `json:"collateral_value_usd"`
	Backed             bool   `json:"backed"`
	Timestamp          int64  `json:"timestamp"`
}

// DepositRequest represents the request to deposit collateral
type DepositRequest struct {
	Depositor string `json:"depositor"`
	Denom     string `json:"denom"`
	Amount    string `json:"amount"`
}

// MintRequest represents the request to mint dusd
type MintRequest struct {
	Minter string `json:"minter"`
	Amount string `json:"amount"`
}

// RedeemRequest represents the request to redeem collateral
type RedeemRequest struct {
	Redeemer string `json:"redeemer"`
	Denom    string `json:"denom"`
	Amount   string `json:"amount"`
}

// BurnRequest represents the request to burn dusd
type BurnRequest struct {
	Burner string `json:"burner"`
	Amount string `json:"amount"`
}

// DepositAndMintRequest represents the combined deposit-then-mint request
type DepositAndMintRequest struct {
	Depositor     string `json:"depositor"`
	Denom         string `json:"denom"`
	DepositAmount string `json:"deposit_amount"`
	MintAmount    string `json:"mint_amount"`
}

// RedeemForDusdRequest represents the combined burn-then-redeem request
type RedeemForDusdRequest struct {
	Redeemer     string `json:"redeemer"`
	Denom        string `json:"denom"`
	RedeemAmount string `json:"redeem_amount"`
	BurnAmount   string `json:"burn_amount"`
}

// LiquidateRequest represents the request to liquidate an unsafe account
type LiquidateRequest struct {
	Liquidator  string `json:"liquidator"`
	Target      string `json:"target"`
	Denom       string `json:"denom"`
	DebtToCover string `json:"debt_to_cover"`
}

// AccountResponse represents the response for position mutations
type AccountResponse struct {
	Account *Account `json:"account"`
}

// LiquidateResponse represents the response after a liquidation
type LiquidateResponse struct {
	Liquidation *Liquidation `json:"liquidation"`
	Target      *Account     `json:"target"`
}

// PositionService defines the interface for position mutations
type PositionService interface {
	Deposit(ctx context.Context, req *DepositRequest) (*AccountResponse, error)
	Mint(ctx context.Context, req *MintRequest) (*AccountResponse, error)
	Redeem(ctx context.Context, req *RedeemRequest) (*AccountResponse, error)
	Burn(ctx context.Context, req *BurnRequest) (*AccountResponse, error)
	DepositAndMint(ctx context.Context, req *DepositAndMintRequest) (*AccountResponse, error)
	RedeemForDusd(ctx context.Context, req *RedeemForDusdRequest) (*AccountResponse, error)
}

// AccountService defines the interface for account queries
type AccountService interface {
	GetAccount(ctx context.Context, address string) (*Account, error)
	GetAssets(ctx context.Context) ([]*Asset, error)
	GetBacking(ctx context.Context) (*BackingReport, error)
}

// LiquidationService defines the interface for liquidation operations
type LiquidationService interface {
	Liquidate(ctx context.Context, req *LiquidateRequest) (*LiquidateResponse, error)
	GetLiquidations(ctx context.Context) ([]*Liquidation, error)
	GetUnsafeAccounts(ctx context.Context) ([]*UnsafeAccount, error)
}

// Helper function to get current timestamp in milliseconds
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
