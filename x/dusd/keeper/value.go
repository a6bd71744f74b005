package keeper

import (
	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/openalpha/dusd/x/dusd/types"
)

// Value conversion between collateral amounts and 18-decimal USD.
//
// All arithmetic runs on math.Int (256-bit, checked) with multiply before
// divide. Division truncates, which systematically rounds conversions in
// the protocol's favor when they determine seize amounts.

// normalizedPrice fetches the oracle price for asset and scales it to
// 18-decimal fixed point.
func (k *Keeper) normalizedPrice(ctx sdk.Context, asset types.CollateralAsset) (math.Int, error) {
	price, err := k.oracleKeeper.LatestPrice(ctx, asset.FeedID)
	if err != nil {
		return math.Int{}, errors.Wrapf(types.ErrOracleUnavailable, "feed %s: %s", asset.FeedID, err)
	}
	if price.Decimals > 18 {
		return math.Int{}, errors.Wrapf(types.ErrOracleUnavailable, "feed %s reports %d decimals", asset.FeedID, price.Decimals)
	}
	if price.Decimals == types.CanonicalFeedDecimals {
		return price.Price.Mul(types.AdditionalFeedPrecision), nil
	}
	return price.Price.Mul(math.NewIntWithDecimal(1, 18-int(price.Decimals))), nil
}

// UsdValue converts amount of denom into 18-decimal USD at the oracle's
// latest price.
func (k *Keeper) UsdValue(ctx sdk.Context, denom string, amount math.Int) (math.Int, error) {
	asset, err := k.Asset(denom)
	if err != nil {
		return math.Int{}, err
	}
	priceNorm, err := k.normalizedPrice(ctx, asset)
	if err != nil {
		return math.Int{}, err
	}
	return priceNorm.Mul(amount).Quo(math.NewIntWithDecimal(1, int(asset.Decimals))), nil
}

// AmountFromUsd converts an 18-decimal USD amount into a quantity of denom,
// truncating at the asset's lowest decimal digit. Used by the liquidation
// engine to translate a debt repayment into a collateral seizure.
func (k *Keeper) AmountFromUsd(ctx sdk.Context, denom string, usdAmount math.Int) (math.Int, error) {
	asset, err := k.Asset(denom)
	if err != nil {
		return math.Int{}, err
	}
	priceNorm, err := k.normalizedPrice(ctx, asset)
	if err != nil {
		return math.Int{}, err
	}
	if !priceNorm.IsPositive() {
		return math.Int{}, errors.Wrapf(types.ErrOracleUnavailable, "feed %s reports non-positive price", asset.FeedID)
	}
	return usdAmount.Mul(math.NewIntWithDecimal(1, int(asset.Decimals))).Quo(priceNorm), nil
}
