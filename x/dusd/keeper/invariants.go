package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/openalpha/dusd/x/dusd/types"
)

// BackingReport is the protocol-level collateralization snapshot.
type BackingReport struct {
	TotalSupply          math.Int
	TotalCollateralValue math.Int
	Backed               bool
}

// CheckTotalSupplyBacked reports whether the outstanding synthetic-dollar
// supply is covered by the USD value of all engine-held collateral.
//
// This is a system-wide soundness property checked out of band (property
// tests, ops tooling), not enforced per transaction: the per-account
// health factor is necessary but not sufficient for it, and the protocol
// has no defense once it is globally undercollateralized.
func (k *Keeper) CheckTotalSupplyBacked(ctx sdk.Context) (BackingReport, error) {
	supply := k.tokenKeeper.TotalSupply(ctx, types.DusdDenom)
	collateralValue, err := k.TotalCollateralValue(ctx)
	if err != nil {
		return BackingReport{}, err
	}
	return BackingReport{
		TotalSupply:          supply,
		TotalCollateralValue: collateralValue,
		Backed:               supply.LTE(collateralValue),
	}, nil
}
