package keeper

import (
	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/openalpha/dusd/x/dusd/types"
)

// RiskEngine: the health-factor formula and the safety invariant every
// mutating operation must re-establish before it commits.
//
// The factor is recomputed from scratch on every check rather than cached
// incrementally. Each check is O(registered assets), a small fixed
// constant, and recomputation cannot go stale.

// AccountCollateralValue returns the aggregate 18-decimal USD value of all
// collateral deposited by account, scanning the registry in order.
func (k *Keeper) AccountCollateralValue(ctx sdk.Context, account string) (math.Int, error) {
	total := math.ZeroInt()
	for _, asset := range k.registry {
		amount := k.GetCollateral(ctx, account, asset.Denom)
		if amount.IsZero() {
			continue
		}
		value, err := k.UsdValue(ctx, asset.Denom, amount)
		if err != nil {
			return math.Int{}, err
		}
		total = total.Add(value)
	}
	return total, nil
}

// HealthFactor returns how close to liquidation an account is. An account
// with no debt is infinitely solvent and gets MaxHealthFactor; dividing by
// a zero debt is explicitly avoided.
func (k *Keeper) HealthFactor(ctx sdk.Context, account string) (math.Int, error) {
	debt := k.GetDebt(ctx, account)
	if debt.IsZero() {
		return types.MaxHealthFactor, nil
	}

	collateralValue, err := k.AccountCollateralValue(ctx, account)
	if err != nil {
		return math.Int{}, err
	}

	adjusted := collateralValue.Mul(types.LiquidationThreshold).Quo(types.LiquidationPrecision)
	return adjusted.Mul(types.Precision).Quo(debt), nil
}

// assertSafe fails with ErrHealthFactorBroken if account's health factor is
// below the minimum. Called as a post-condition after every mutation that
// can reduce collateral or increase debt.
func (k *Keeper) assertSafe(ctx sdk.Context, account string) error {
	factor, err := k.HealthFactor(ctx, account)
	if err != nil {
		return err
	}
	if factor.LT(types.MinHealthFactor) {
		return errors.Wrapf(types.ErrHealthFactorBroken, "account %s health factor %s", account, factor)
	}
	return nil
}
