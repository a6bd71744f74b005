package api

import (
	"context"
	"strings"
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dusd/api/types"
	"github.com/openalpha/dusd/app"
)

const (
	wethDenom = "weth"
	wbtcDenom = "wbtc"

	alice = "alice"
	bob   = "bob"
)

// newTestService boots a service over a fresh in-memory engine with a
// two-asset collateral set and seeded oracle prices.
func newTestService(tb testing.TB) *KeeperService {
	tb.Helper()

	genesis := &app.GenesisConfig{
		Collateral: []app.CollateralConfig{
			{Denom: wethDenom, FeedID: "eth-usd", Decimals: 8},
			{Denom: wbtcDenom, FeedID: "btc-usd", Decimals: 8},
		},
		Prices: map[string]app.PriceConfig{
			"eth-usd": {Price: "200000000000", Decimals: 8},  // $2000
			"btc-usd": {Price: "3000000000000", Decimals: 8}, // $30000
		},
	}

	service, err := NewKeeperService(log.NewNopLogger(), genesis)
	if err != nil {
		tb.Fatalf("failed to create service: %v", err)
	}
	return service
}

// fund seeds an account with collateral tokens.
func fund(tb testing.TB, s *KeeperService, denom, account string, amount math.Int) {
	tb.Helper()
	err := s.App().RunTx(func(ctx sdk.Context) error {
		return s.App().TokenKeeper.FundAccount(ctx, denom, account, amount)
	})
	if err != nil {
		tb.Fatalf("failed to fund %s with %s %s: %v", account, amount, denom, err)
	}
}

// setEthPrice replaces the eth-usd observation, 8-decimal scale.
func setEthPrice(tb testing.TB, s *KeeperService, price math.Int) {
	tb.Helper()
	err := s.App().RunTx(func(ctx sdk.Context) error {
		return s.App().OracleKeeper.SetPrice(ctx, "eth-usd", price, 8, ctx.BlockTime())
	})
	if err != nil {
		tb.Fatalf("failed to set eth price: %v", err)
	}
}

// amt18 converts whole units into an 18-decimal base unit string.
func amt18(units int64) string {
	return math.NewInt(units).Mul(math.NewIntWithDecimal(1, 18)).String()
}

func TestServiceDepositAndAccountView(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	fund(t, s, wethDenom, alice, math.NewInt(10).Mul(math.NewIntWithDecimal(1, 18)))

	resp, err := s.Deposit(ctx, &types.DepositRequest{
		Depositor: alice,
		Denom:     wethDenom,
		Amount:    amt18(4),
	})
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	account := resp.Account
	if account.Address != alice {
		t.Errorf("address = %s, expected %s", account.Address, alice)
	}
	if len(account.Collateral) != 1 || account.Collateral[0].Denom != wethDenom {
		t.Fatalf("unexpected collateral: %+v", account.Collateral)
	}
	if account.Collateral[0].Amount != amt18(4) {
		t.Errorf("collateral amount = %s, expected %s", account.Collateral[0].Amount, amt18(4))
	}
	// 4 eth at $2000
	if account.CollateralValueUsd != amt18(8000) {
		t.Errorf("collateral value = %s, expected %s", account.CollateralValueUsd, amt18(8000))
	}
	if account.DebtDusd != "0" {
		t.Errorf("fresh account debt = %s, expected 0", account.DebtDusd)
	}
}

func TestServiceMintUpdatesHealthFactor(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	fund(t, s, wethDenom, alice, math.NewInt(10).Mul(math.NewIntWithDecimal(1, 18)))
	if _, err := s.Deposit(ctx, &types.DepositRequest{Depositor: alice, Denom: wethDenom, Amount: amt18(10)}); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	resp, err := s.Mint(ctx, &types.MintRequest{Minter: alice, Amount: amt18(9000)})
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if resp.Account.DebtDusd != amt18(9000) {
		t.Errorf("debt = %s, expected %s", resp.Account.DebtDusd, amt18(9000))
	}
	// $20000 collateral at a 50% threshold against 9000 debt
	factor, ok := math.NewIntFromString(resp.Account.HealthFactor)
	if !ok {
		t.Fatalf("unparseable health factor: %s", resp.Account.HealthFactor)
	}
	if factor.LT(math.NewIntWithDecimal(1, 18)) {
		t.Errorf("healthy position reported unsafe factor %s", factor)
	}
}

func TestServiceMintRejectedWithoutCollateral(t *testing.T) {
	s := newTestService(t)

	_, err := s.Mint(context.Background(), &types.MintRequest{Minter: alice, Amount: amt18(1)})
	if err == nil {
		t.Fatal("expected mint without collateral to fail")
	}
	if !strings.Contains(err.Error(), "health factor") {
		t.Errorf("expected health factor error, got: %v", err)
	}

	// Nothing committed
	account, err := s.GetAccount(context.Background(), alice)
	if err != nil {
		t.Fatalf("account query failed: %v", err)
	}
	if account.DebtDusd != "0" {
		t.Errorf("failed mint left debt: %s", account.DebtDusd)
	}
}

func TestServiceDepositAndMintAtomic(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	fund(t, s, wethDenom, alice, math.NewInt(10).Mul(math.NewIntWithDecimal(1, 18)))

	// Mint amount exceeds what the deposit supports, so the whole
	// operation must roll back including the deposit leg.
	_, err := s.DepositAndMint(ctx, &types.DepositAndMintRequest{
		Depositor:     alice,
		Denom:         wethDenom,
		DepositAmount: amt18(1),
		MintAmount:    amt18(5000),
	})
	if err == nil {
		t.Fatal("expected overleveraged deposit-and-mint to fail")
	}

	account, err := s.GetAccount(ctx, alice)
	if err != nil {
		t.Fatalf("account query failed: %v", err)
	}
	if len(account.Collateral) != 0 {
		t.Errorf("failed operation left collateral behind: %+v", account.Collateral)
	}
	if account.DebtDusd != "0" {
		t.Errorf("failed operation left debt behind: %s", account.DebtDusd)
	}

	// A supportable combination succeeds in one step
	resp, err := s.DepositAndMint(ctx, &types.DepositAndMintRequest{
		Depositor:     alice,
		Denom:         wethDenom,
		DepositAmount: amt18(10),
		MintAmount:    amt18(5000),
	})
	if err != nil {
		t.Fatalf("deposit-and-mint failed: %v", err)
	}
	if resp.Account.DebtDusd != amt18(5000) {
		t.Errorf("debt = %s, expected %s", resp.Account.DebtDusd, amt18(5000))
	}
}

func TestServiceRedeemForDusd(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	fund(t, s, wethDenom, alice, math.NewInt(10).Mul(math.NewIntWithDecimal(1, 18)))
	if _, err := s.DepositAndMint(ctx, &types.DepositAndMintRequest{
		Depositor: alice, Denom: wethDenom, DepositAmount: amt18(10), MintAmount: amt18(5000),
	}); err != nil {
		t.Fatalf("deposit-and-mint failed: %v", err)
	}

	resp, err := s.RedeemForDusd(ctx, &types.RedeemForDusdRequest{
		Redeemer:     alice,
		Denom:        wethDenom,
		RedeemAmount: amt18(2),
		BurnAmount:   amt18(2000),
	})
	if err != nil {
		t.Fatalf("redeem-for-dusd failed: %v", err)
	}
	if resp.Account.DebtDusd != amt18(3000) {
		t.Errorf("debt = %s, expected %s", resp.Account.DebtDusd, amt18(3000))
	}
	if resp.Account.Collateral[0].Amount != amt18(8) {
		t.Errorf("collateral = %s, expected %s", resp.Account.Collateral[0].Amount, amt18(8))
	}
}

func TestServiceAssetsAndBacking(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	assets, err := s.GetAssets(ctx)
	if err != nil {
		t.Fatalf("assets query failed: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets, got %d", len(assets))
	}
	byDenom := make(map[string]*types.Asset)
	for _, asset := range assets {
		byDenom[asset.Denom] = asset
	}
	if byDenom[wethDenom] == nil || byDenom[wethDenom].PriceUsd != "200000000000" {
		t.Errorf("unexpected weth asset: %+v", byDenom[wethDenom])
	}

	report, err := s.GetBacking(ctx)
	if err != nil {
		t.Fatalf("backing query failed: %v", err)
	}
	if report.DusdSupply != "0" || !report.Backed {
		t.Errorf("fresh engine should be trivially backed: %+v", report)
	}

	fund(t, s, wethDenom, alice, math.NewInt(10).Mul(math.NewIntWithDecimal(1, 18)))
	if _, err := s.DepositAndMint(ctx, &types.DepositAndMintRequest{
		Depositor: alice, Denom: wethDenom, DepositAmount: amt18(10), MintAmount: amt18(5000),
	}); err != nil {
		t.Fatalf("deposit-and-mint failed: %v", err)
	}

	report, err = s.GetBacking(ctx)
	if err != nil {
		t.Fatalf("backing query failed: %v", err)
	}
	if report.DusdSupply != amt18(5000) {
		t.Errorf("supply = %s, expected %s", report.DusdSupply, amt18(5000))
	}
	if report.CollateralValueUsd != amt18(20000) {
		t.Errorf("collateral value = %s, expected %s", report.CollateralValueUsd, amt18(20000))
	}
	if !report.Backed {
		t.Error("overcollateralized engine reported unbacked")
	}
}

func TestServiceLiquidationFlow(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// Alice leverages against eth
	fund(t, s, wethDenom, alice, math.NewInt(10).Mul(math.NewIntWithDecimal(1, 18)))
	if _, err := s.DepositAndMint(ctx, &types.DepositAndMintRequest{
		Depositor: alice, Denom: wethDenom, DepositAmount: amt18(10), MintAmount: amt18(9000),
	}); err != nil {
		t.Fatalf("alice deposit-and-mint failed: %v", err)
	}

	// Bob holds dusd minted against btc to cover alice's debt
	fund(t, s, wbtcDenom, bob, math.NewInt(10).Mul(math.NewIntWithDecimal(1, 18)))
	if _, err := s.DepositAndMint(ctx, &types.DepositAndMintRequest{
		Depositor: bob, Denom: wbtcDenom, DepositAmount: amt18(10), MintAmount: amt18(20000),
	}); err != nil {
		t.Fatalf("bob deposit-and-mint failed: %v", err)
	}

	// A healthy target cannot be liquidated
	_, err := s.Liquidate(ctx, &types.LiquidateRequest{
		Liquidator: bob, Target: alice, Denom: wethDenom, DebtToCover: amt18(1000),
	})
	if err == nil {
		t.Fatal("expected liquidation of healthy target to fail")
	}
	if !strings.Contains(err.Error(), "healthy") {
		t.Errorf("expected healthy rejection, got: %v", err)
	}

	// Eth drops to $1500: alice's adjusted collateral is $7500 against
	// 9000 debt
	setEthPrice(t, s, math.NewInt(1500_0000_0000))

	unsafeAccounts, err := s.GetUnsafeAccounts(ctx)
	if err != nil {
		t.Fatalf("unsafe query failed: %v", err)
	}
	if len(unsafeAccounts) != 1 || unsafeAccounts[0].Address != alice {
		t.Fatalf("expected alice unsafe, got %+v", unsafeAccounts)
	}

	resp, err := s.Liquidate(ctx, &types.LiquidateRequest{
		Liquidator: bob, Target: alice, Denom: wethDenom, DebtToCover: amt18(4500),
	})
	if err != nil {
		t.Fatalf("liquidation failed: %v", err)
	}

	liq := resp.Liquidation
	if liq.Target != alice || liq.Liquidator != bob {
		t.Errorf("unexpected liquidation addressing: %+v", liq)
	}
	if liq.DebtCovered != amt18(4500) {
		t.Errorf("debt covered = %s, expected %s", liq.DebtCovered, amt18(4500))
	}
	// 4500 dusd at $1500/eth is 3 eth base, plus a 10% bonus
	if liq.BaseSeized != amt18(3) {
		t.Errorf("base seized = %s, expected %s", liq.BaseSeized, amt18(3))
	}
	if liq.BonusSeized != "300000000000000000" {
		t.Errorf("bonus seized = %s, expected 0.3 eth", liq.BonusSeized)
	}
	if liq.TotalSeized != "3300000000000000000" {
		t.Errorf("total seized = %s, expected 3.3 eth", liq.TotalSeized)
	}

	if resp.Target.DebtDusd != amt18(4500) {
		t.Errorf("remaining debt = %s, expected %s", resp.Target.DebtDusd, amt18(4500))
	}

	// The record shows up in history
	history, err := s.GetLiquidations(ctx)
	if err != nil {
		t.Fatalf("history query failed: %v", err)
	}
	if len(history) != 1 || history[0].ID != liq.ID {
		t.Fatalf("expected liquidation in history, got %+v", history)
	}
}
