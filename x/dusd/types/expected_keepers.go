package types

import (
	"time"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// TokenKeeper is the expected interface of the fungible-ledger collaborator.
// It holds both the synthetic dollar denom and every collateral denom.
// Transfers have move-or-fail semantics: a non-nil error means no balance
// changed.
type TokenKeeper interface {
	// Mint creates amount of denom for to. For authority-gated denoms the
	// caller identity must hold the mint capability.
	Mint(ctx sdk.Context, denom, caller, to string, amount math.Int) error
	// Burn destroys amount of denom from the caller's own balance. For
	// authority-gated denoms only the authority may burn.
	Burn(ctx sdk.Context, denom, caller string, amount math.Int) error
	// Transfer moves amount of denom between accounts.
	Transfer(ctx sdk.Context, denom, from, to string, amount math.Int) error
	BalanceOf(ctx sdk.Context, denom, account string) math.Int
	TotalSupply(ctx sdk.Context, denom string) math.Int
}

// PriceData is one oracle observation. Price is an integer scaled by
// 10^Decimals. The engine trusts it as given: no staleness or deviation
// defense.
type PriceData struct {
	Price     math.Int  `json:"price"`
	Decimals  uint8     `json:"decimals"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OracleKeeper is the expected interface of the price-feed collaborator.
type OracleKeeper interface {
	LatestPrice(ctx sdk.Context, feedID string) (PriceData, error)
}
