package types

import (
	"time"

	"cosmossdk.io/math"
)

// CollateralAsset binds a whitelisted collateral denom to its price feed.
// The registry is fixed at keeper construction and immutable afterward.
type CollateralAsset struct {
	Denom    string // token ledger denom, e.g. "weth"
	FeedID   string // oracle feed identifier, e.g. "eth-usd"
	Decimals uint8  // the asset's native fixed-point precision
}

// NewRegistry builds the collateral registry from parallel configuration
// lists. Lengths must match and denoms must be unique.
func NewRegistry(denoms, feedIDs []string, decimals []uint8) ([]CollateralAsset, error) {
	if len(denoms) != len(feedIDs) || len(denoms) != len(decimals) {
		return nil, ErrConfigMismatch
	}

	seen := make(map[string]bool, len(denoms))
	registry := make([]CollateralAsset, 0, len(denoms))
	for i, denom := range denoms {
		if seen[denom] {
			return nil, ErrConfigMismatch
		}
		seen[denom] = true
		registry = append(registry, CollateralAsset{
			Denom:    denom,
			FeedID:   feedIDs[i],
			Decimals: decimals[i],
		})
	}
	return registry, nil
}

// CollateralBalance is one entry of an account's collateral holdings.
type CollateralBalance struct {
	Denom  string   `json:"denom"`
	Amount math.Int `json:"amount"`
}

// AccountSummary is the read-only view of a position: outstanding debt plus
// the aggregate USD value of all deposited collateral.
type AccountSummary struct {
	Account            string              `json:"account"`
	Debt               math.Int            `json:"debt"`
	CollateralValueUsd math.Int            `json:"collateral_value_usd"`
	HealthFactor       math.Int            `json:"health_factor"`
	Collateral         []CollateralBalance `json:"collateral"`
}

// LiquidationStatus tracks the lifecycle of a liquidation record.
type LiquidationStatus int

const (
	LiquidationStatusUnspecified LiquidationStatus = iota
	LiquidationStatusExecuted
)

func (s LiquidationStatus) String() string {
	switch s {
	case LiquidationStatusExecuted:
		return "executed"
	default:
		return "unspecified"
	}
}

// Liquidation is the persisted record of a successful liquidation.
type Liquidation struct {
	LiquidationID   string            `json:"liquidation_id"`
	Target          string            `json:"target"`
	Liquidator      string            `json:"liquidator"`
	CollateralDenom string            `json:"collateral_denom"`
	DebtCovered     math.Int          `json:"debt_covered"`
	CollateralBase  math.Int          `json:"collateral_base"`
	CollateralBonus math.Int          `json:"collateral_bonus"`
	StartFactor     math.Int          `json:"start_factor"`
	EndFactor       math.Int          `json:"end_factor"`
	Status          LiquidationStatus `json:"status"`
	ExecutedAt      time.Time         `json:"executed_at"`
}

// NewLiquidation creates a liquidation record pending execution.
func NewLiquidation(id, target, liquidator, denom string, debtCovered, base, bonus, startFactor math.Int, at time.Time) *Liquidation {
	return &Liquidation{
		LiquidationID:   id,
		Target:          target,
		Liquidator:      liquidator,
		CollateralDenom: denom,
		DebtCovered:     debtCovered,
		CollateralBase:  base,
		CollateralBonus: bonus,
		StartFactor:     startFactor,
		Status:          LiquidationStatusUnspecified,
		ExecutedAt:      at,
	}
}

// TotalSeized returns the full collateral amount transferred to the
// liquidator.
func (l *Liquidation) TotalSeized() math.Int {
	return l.CollateralBase.Add(l.CollateralBonus)
}

// Params is the read-only view of the configured protocol constants.
type Params struct {
	LiquidationThreshold math.Int `json:"liquidation_threshold"`
	LiquidationBonus     math.Int `json:"liquidation_bonus"`
	MinHealthFactor      math.Int `json:"min_health_factor"`
	Precision            math.Int `json:"precision"`
}

// CurrentParams returns the compiled-in protocol constants.
func CurrentParams() Params {
	return Params{
		LiquidationThreshold: LiquidationThreshold,
		LiquidationBonus:     LiquidationBonus,
		MinHealthFactor:      MinHealthFactor,
		Precision:            Precision,
	}
}
