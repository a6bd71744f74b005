package keeper

import (
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/openalpha/dusd/x/dusd/types"
)

// Read-only query surface. Nothing here mutates state or fails on valid
// input.

// GetAccountSummary returns the full position view for an account.
func (k *Keeper) GetAccountSummary(ctx sdk.Context, account string) (*types.AccountSummary, error) {
	collateralValue, err := k.AccountCollateralValue(ctx, account)
	if err != nil {
		return nil, err
	}
	factor, err := k.HealthFactor(ctx, account)
	if err != nil {
		return nil, err
	}

	var balances []types.CollateralBalance
	for _, asset := range k.registry {
		amount := k.GetCollateral(ctx, account, asset.Denom)
		if amount.IsZero() {
			continue
		}
		balances = append(balances, types.CollateralBalance{
			Denom:  asset.Denom,
			Amount: amount,
		})
	}

	return &types.AccountSummary{
		Account:            account,
		Debt:               k.GetDebt(ctx, account),
		CollateralValueUsd: collateralValue,
		HealthFactor:       factor,
		Collateral:         balances,
	}, nil
}

// TotalCollateralValue returns the USD value of all collateral held by the
// engine across every depositor.
func (k *Keeper) TotalCollateralValue(ctx sdk.Context) (math.Int, error) {
	total := math.ZeroInt()
	for _, account := range k.GetDepositors(ctx) {
		value, err := k.AccountCollateralValue(ctx, account)
		if err != nil {
			return math.Int{}, err
		}
		total = total.Add(value)
	}
	return total, nil
}

// Params returns the configured protocol constants.
func (k *Keeper) Params() types.Params {
	return types.CurrentParams()
}
