package keeper

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/openalpha/dusd/x/dusd/types"
)

func TestUsdValue(t *testing.T) {
	env := setupKeeper(t)
	k, ctx := env.keeper, env.ctx

	// 15 ETH at $3000 (8-decimal feed) is worth $45000 in 18-decimal USD
	env.setEthPrice(t, math.NewInt(3000_0000_0000))
	value, err := k.UsdValue(ctx, wethDenom, eth18(15))
	if err != nil {
		t.Fatalf("UsdValue failed: %v", err)
	}
	if expected := eth18(45000); !value.Equal(expected) {
		t.Errorf("UsdValue = %s, expected %s", value, expected)
	}

	// 8-decimal collateral: 2 BTC at $30000
	value, err = k.UsdValue(ctx, wbtcDenom, math.NewInt(2_0000_0000))
	if err != nil {
		t.Fatalf("UsdValue failed: %v", err)
	}
	if expected := eth18(60000); !value.Equal(expected) {
		t.Errorf("UsdValue = %s, expected %s", value, expected)
	}
}

func TestAmountFromUsd(t *testing.T) {
	env := setupKeeper(t)
	k, ctx := env.keeper, env.ctx

	// $100 of ETH at $2000 is 0.05 ETH
	amount, err := k.AmountFromUsd(ctx, wethDenom, eth18(100))
	if err != nil {
		t.Fatalf("AmountFromUsd failed: %v", err)
	}
	if expected := math.NewIntWithDecimal(5, 16); !amount.Equal(expected) {
		t.Errorf("AmountFromUsd = %s, expected %s", amount, expected)
	}
}

func TestValueRoundTrip(t *testing.T) {
	env := setupKeeper(t)
	k, ctx := env.keeper, env.ctx

	amounts := []math.Int{
		math.NewInt(1),
		math.NewInt(1_000_000),
		eth18(1),
		eth18(15),
		eth18(123456),
	}
	for _, amount := range amounts {
		value, err := k.UsdValue(ctx, wethDenom, amount)
		if err != nil {
			t.Fatalf("UsdValue(%s) failed: %v", amount, err)
		}
		back, err := k.AmountFromUsd(ctx, wethDenom, value)
		if err != nil {
			t.Fatalf("AmountFromUsd(%s) failed: %v", value, err)
		}
		if !back.Equal(amount) {
			t.Errorf("round trip: %s -> %s -> %s", amount, value, back)
		}
	}

	// With a price that does not divide evenly the round trip truncates,
	// always in the protocol's favor.
	env.setEthPrice(t, math.NewInt(3333_3333_3333))
	amount := math.NewInt(7)
	value, err := k.UsdValue(ctx, wethDenom, amount)
	if err != nil {
		t.Fatalf("UsdValue failed: %v", err)
	}
	back, err := k.AmountFromUsd(ctx, wethDenom, value)
	if err != nil {
		t.Fatalf("AmountFromUsd failed: %v", err)
	}
	if back.GT(amount) {
		t.Errorf("truncating round trip must never round up: %s -> %s", amount, back)
	}
}

func TestUsdValueUnknownAsset(t *testing.T) {
	env := setupKeeper(t)

	if _, err := env.keeper.UsdValue(env.ctx, "doge", eth18(1)); err != types.ErrAssetNotAllowed {
		t.Errorf("expected ErrAssetNotAllowed, got %v", err)
	}
}

func TestUsdValueMissingFeed(t *testing.T) {
	env := setupKeeper(t)

	// Registry entry exists but the oracle holds no observation for its
	// feed.
	registry, err := types.NewRegistry([]string{"wsol"}, []string{"sol-usd"}, []uint8{9})
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	k, err := NewKeeper(env.keeper.cdc, env.keeper.storeKey, env.token, env.oracle, registry, env.keeper.logger)
	if err != nil {
		t.Fatalf("failed to build keeper: %v", err)
	}

	if _, err := k.UsdValue(env.ctx, "wsol", math.NewInt(1_000_000_000)); !types.ErrOracleUnavailable.Is(err) {
		t.Errorf("expected ErrOracleUnavailable, got %v", err)
	}
}

func TestNormalizedPrice(t *testing.T) {
	env := setupKeeper(t)
	k, ctx := env.keeper, env.ctx

	asset, err := k.Asset(wethDenom)
	if err != nil {
		t.Fatalf("Asset failed: %v", err)
	}

	// Canonical-precision feed scales by the fixed precision lift.
	env.setEthPrice(t, math.NewInt(2000_0000_0000))
	norm, err := k.normalizedPrice(ctx, asset)
	if err != nil {
		t.Fatalf("normalizedPrice failed: %v", err)
	}
	if expected := math.NewInt(2000_0000_0000).Mul(types.AdditionalFeedPrecision); !norm.Equal(expected) {
		t.Errorf("normalized price = %s, expected %s", norm, expected)
	}
	if !norm.Equal(eth18(2000)) {
		t.Errorf("normalized price = %s, expected %s", norm, eth18(2000))
	}

	// Any other precision lands on the same 18-decimal scale.
	if err := env.oracle.SetPrice(ctx, ethFeed, math.NewIntWithDecimal(2000, 12), 12, ctx.BlockTime()); err != nil {
		t.Fatalf("SetPrice failed: %v", err)
	}
	norm, err = k.normalizedPrice(ctx, asset)
	if err != nil {
		t.Fatalf("normalizedPrice failed: %v", err)
	}
	if !norm.Equal(eth18(2000)) {
		t.Errorf("normalized price = %s, expected %s", norm, eth18(2000))
	}
}
