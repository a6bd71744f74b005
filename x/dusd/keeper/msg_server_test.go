package keeper

import (
	"testing"

	"github.com/openalpha/dusd/x/dusd/types"
)

func TestMsgServerDepositAndMint(t *testing.T) {
	env := setupKeeper(t)
	server := NewMsgServerImpl(env.keeper)

	env.fund(t, wethDenom, alice, eth18(10))

	resp, err := server.DepositCollateralAndMintDusd(env.ctx, &types.MsgDepositCollateralAndMintDusd{
		Account:    alice,
		Denom:      wethDenom,
		DepositAmt: eth18(10).String(),
		MintAmt:    eth18(9000).String(),
	})
	if err != nil {
		t.Fatalf("composite failed: %v", err)
	}
	if resp.Debt != eth18(9000).String() {
		t.Errorf("debt = %s, expected %s", resp.Debt, eth18(9000))
	}
}

func TestMsgServerRejectsBadAmounts(t *testing.T) {
	env := setupKeeper(t)
	server := NewMsgServerImpl(env.keeper)

	cases := []struct {
		name   string
		amount string
	}{
		{"zero", "0"},
		{"negative", "-5"},
		{"garbage", "not-a-number"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := server.MintDusd(env.ctx, &types.MsgMintDusd{Account: alice, Amount: tc.amount})
			if err != types.ErrInputInvalid {
				t.Errorf("expected ErrInputInvalid, got %v", err)
			}
		})
	}
}

func TestMsgServerValidateBasic(t *testing.T) {
	env := setupKeeper(t)
	server := NewMsgServerImpl(env.keeper)

	if _, err := server.DepositCollateral(env.ctx, &types.MsgDepositCollateral{Denom: wethDenom, Amount: "1"}); err != types.ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized for missing account, got %v", err)
	}
	if _, err := server.Liquidate(env.ctx, &types.MsgLiquidate{Liquidator: bob, Target: alice, DebtToCover: "1"}); err != types.ErrAssetNotAllowed {
		t.Errorf("expected ErrAssetNotAllowed for missing denom, got %v", err)
	}
}

func TestQueryAccountSummary(t *testing.T) {
	env := setupKeeper(t)
	k, ctx := env.keeper, env.ctx

	env.fund(t, wethDenom, alice, eth18(10))
	if err := k.DepositCollateralAndMintDusd(ctx, alice, wethDenom, eth18(10), eth18(5000)); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	summary, err := k.GetAccountSummary(ctx, alice)
	if err != nil {
		t.Fatalf("GetAccountSummary failed: %v", err)
	}
	if !summary.Debt.Equal(eth18(5000)) {
		t.Errorf("debt = %s, expected %s", summary.Debt, eth18(5000))
	}
	if !summary.CollateralValueUsd.Equal(eth18(20000)) {
		t.Errorf("collateral value = %s, expected %s", summary.CollateralValueUsd, eth18(20000))
	}
	if len(summary.Collateral) != 1 || summary.Collateral[0].Denom != wethDenom {
		t.Errorf("unexpected collateral list: %+v", summary.Collateral)
	}
	if !summary.HealthFactor.Equal(eth18(2)) {
		t.Errorf("health factor = %s, expected %s", summary.HealthFactor, eth18(2))
	}
}

func TestParams(t *testing.T) {
	env := setupKeeper(t)

	params := env.keeper.Params()
	if !params.LiquidationThreshold.Equal(types.LiquidationThreshold) {
		t.Errorf("threshold = %s", params.LiquidationThreshold)
	}
	if !params.LiquidationBonus.Equal(types.LiquidationBonus) {
		t.Errorf("bonus = %s", params.LiquidationBonus)
	}
	if !params.MinHealthFactor.Equal(types.MinHealthFactor) {
		t.Errorf("min health factor = %s", params.MinHealthFactor)
	}
}
