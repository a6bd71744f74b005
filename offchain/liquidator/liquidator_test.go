package liquidator

import (
	"context"
	"testing"
	"time"

	"cosmossdk.io/math"

	"github.com/openalpha/dusd/api/types"
)

func factor(f string) math.Int {
	v, ok := math.NewIntFromString(f)
	if !ok {
		panic("bad factor: " + f)
	}
	return v
}

func TestWatchIndexOrdering(t *testing.T) {
	idx := NewWatchIndex()
	idx.Upsert("carol", factor("900000000000000000"), math.NewInt(100), 1)
	idx.Upsert("alice", factor("400000000000000000"), math.NewInt(100), 1)
	idx.Upsert("bob", factor("700000000000000000"), math.NewInt(100), 1)

	riskiest := idx.Riskiest(factor("1000000000000000000"), 10)
	if len(riskiest) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(riskiest))
	}
	want := []string{"alice", "bob", "carol"}
	for i, acct := range riskiest {
		if acct.Address != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], acct.Address)
		}
	}
}

func TestWatchIndexUpsertReorders(t *testing.T) {
	idx := NewWatchIndex()
	idx.Upsert("alice", factor("400000000000000000"), math.NewInt(100), 1)
	idx.Upsert("bob", factor("700000000000000000"), math.NewInt(100), 1)

	// Alice partially recovers past bob
	idx.Upsert("alice", factor("800000000000000000"), math.NewInt(50), 2)

	riskiest := idx.Riskiest(factor("1000000000000000000"), 10)
	if len(riskiest) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(riskiest))
	}
	if riskiest[0].Address != "bob" {
		t.Errorf("expected bob first, got %s", riskiest[0].Address)
	}
	if idx.Len() != 2 {
		t.Errorf("expected index length 2, got %d", idx.Len())
	}
}

func TestWatchIndexRiskiestRespectsThreshold(t *testing.T) {
	idx := NewWatchIndex()
	idx.Upsert("alice", factor("400000000000000000"), math.NewInt(100), 1)
	idx.Upsert("bob", factor("1500000000000000000"), math.NewInt(100), 1)

	riskiest := idx.Riskiest(factor("1000000000000000000"), 10)
	if len(riskiest) != 1 {
		t.Fatalf("expected 1 account below threshold, got %d", len(riskiest))
	}
	if riskiest[0].Address != "alice" {
		t.Errorf("expected alice, got %s", riskiest[0].Address)
	}
}

func TestWatchIndexRemove(t *testing.T) {
	idx := NewWatchIndex()
	idx.Upsert("alice", factor("400000000000000000"), math.NewInt(100), 1)
	idx.Remove("alice")
	idx.Remove("alice") // removing twice is a no-op

	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d", idx.Len())
	}
	if idx.Get("alice") != nil {
		t.Error("expected alice to be gone")
	}
}

func TestHandleHealthUpdateDropsSafeAccounts(t *testing.T) {
	l := NewLiquidator(&Config{
		LiquidatorAddress: "liquidator",
		ScanInterval:      time.Second,
		SyncInterval:      time.Second,
		MaxPerScan:        5,
	}, NewMockClient())

	l.handleHealthUpdate("alice", "400000000000000000", "100000000000000000000", 1)
	if l.index.Len() != 1 {
		t.Fatalf("expected alice watched, got %d accounts", l.index.Len())
	}

	// Recovered above the threshold
	l.handleHealthUpdate("alice", "2000000000000000000", "100000000000000000000", 2)
	if l.index.Len() != 0 {
		t.Errorf("expected alice dropped after recovery, got %d accounts", l.index.Len())
	}

	// Debt fully repaid
	l.handleHealthUpdate("bob", "400000000000000000", "0", 3)
	if l.index.Len() != 0 {
		t.Errorf("expected debtless account ignored, got %d accounts", l.index.Len())
	}
}

func TestPickDenomPrefersDeepestBalance(t *testing.T) {
	account := &types.Account{
		Address: "alice",
		Collateral: []types.CollateralBalance{
			{Denom: "weth", Amount: "1000000000000000000", UsdValue: "2000000000000000000000"},
			{Denom: "wbtc", Amount: "10000000", UsdValue: "9000000000000000000000"},
		},
	}
	if denom := pickDenom(account); denom != "wbtc" {
		t.Errorf("expected wbtc, got %s", denom)
	}

	empty := &types.Account{Address: "bob"}
	if denom := pickDenom(empty); denom != "" {
		t.Errorf("expected no denom for empty account, got %s", denom)
	}
}

func TestLiquidateSubmitsFullDebt(t *testing.T) {
	client := NewMockClient()
	client.SetAccount(&types.Account{
		Address: "alice",
		Collateral: []types.CollateralBalance{
			{Denom: "weth", Amount: "1000000000000000000", UsdValue: "90000000000000000000"},
		},
		CollateralValueUsd: "90000000000000000000",
		DebtDusd:           "50000000000000000000",
		HealthFactor:       "900000000000000000",
	})
	client.SetResponse(&types.LiquidateResponse{
		Liquidation: &types.Liquidation{
			ID:          "liq-1",
			Target:      "alice",
			Denom:       "weth",
			DebtCovered: "50000000000000000000",
			TotalSeized: "611111111111111111",
		},
		Target: &types.Account{
			Address:      "alice",
			DebtDusd:     "0",
			HealthFactor: "115792089237316195423570985008687907853269984665640564039457584007913129639935",
		},
	})

	l := NewLiquidator(&Config{
		LiquidatorAddress: "liquidator",
		ScanInterval:      time.Second,
		SyncInterval:      time.Second,
		MaxPerScan:        5,
	}, client)
	l.index.Upsert("alice", factor("900000000000000000"), factor("50000000000000000000"), 1)

	if err := l.Liquidate(context.Background(), "alice"); err != nil {
		t.Fatalf("liquidate failed: %v", err)
	}

	submitted := client.GetSubmitted()
	if len(submitted) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(submitted))
	}
	req := submitted[0]
	if req.Liquidator != "liquidator" || req.Target != "alice" {
		t.Errorf("unexpected request addressing: %+v", req)
	}
	if req.Denom != "weth" {
		t.Errorf("expected weth, got %s", req.Denom)
	}
	if req.DebtToCover != "50000000000000000000" {
		t.Errorf("expected full debt covered, got %s", req.DebtToCover)
	}

	// Debt cleared, so the target leaves the index
	if l.index.Get("alice") != nil {
		t.Error("expected alice removed from index after full liquidation")
	}

	stats := l.GetStats()
	if stats.Attempted != 1 || stats.Executed != 1 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestLiquidateSkipsRecoveredTarget(t *testing.T) {
	client := NewMockClient()
	client.SetAccount(&types.Account{
		Address: "alice",
		Collateral: []types.CollateralBalance{
			{Denom: "weth", Amount: "1000000000000000000", UsdValue: "2000000000000000000000"},
		},
		DebtDusd:     "50000000000000000000",
		HealthFactor: "20000000000000000000",
	})

	l := NewLiquidator(&Config{
		LiquidatorAddress: "liquidator",
		ScanInterval:      time.Second,
		SyncInterval:      time.Second,
		MaxPerScan:        5,
	}, client)
	l.index.Upsert("alice", factor("900000000000000000"), factor("50000000000000000000"), 1)

	if err := l.Liquidate(context.Background(), "alice"); err != nil {
		t.Fatalf("expected recovered target to be skipped, got %v", err)
	}
	if len(client.GetSubmitted()) != 0 {
		t.Error("expected no submission against healthy target")
	}
	if l.index.Get("alice") != nil {
		t.Error("expected recovered target dropped from index")
	}
}

func TestLiquidateRecordsFailure(t *testing.T) {
	client := NewMockClient()
	client.SetAccount(&types.Account{
		Address: "alice",
		Collateral: []types.CollateralBalance{
			{Denom: "weth", Amount: "1000000000000000000", UsdValue: "90000000000000000000"},
		},
		DebtDusd:     "50000000000000000000",
		HealthFactor: "900000000000000000",
	})
	client.SetSimulateFailure(true)

	l := NewLiquidator(&Config{
		LiquidatorAddress: "liquidator",
		ScanInterval:      time.Second,
		SyncInterval:      time.Second,
		MaxPerScan:        5,
	}, client)

	if err := l.Liquidate(context.Background(), "alice"); err == nil {
		t.Fatal("expected submission failure")
	}

	stats := l.GetStats()
	if stats.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", stats.Failed)
	}
	if stats.LastError == "" {
		t.Error("expected last error recorded")
	}
}

func TestSyncIndexSeedsFromEngine(t *testing.T) {
	client := NewMockClient()
	client.SetUnsafeAccounts([]types.UnsafeAccount{
		{Address: "alice", HealthFactor: "400000000000000000", DebtDusd: "100000000000000000000"},
		{Address: "bob", HealthFactor: "900000000000000000", DebtDusd: "50000000000000000000"},
		{Address: "carol", HealthFactor: "2000000000000000000", DebtDusd: "10000000000000000000"},
	})

	l := NewLiquidator(&Config{
		LiquidatorAddress: "liquidator",
		ScanInterval:      time.Second,
		SyncInterval:      time.Second,
		MaxPerScan:        5,
	}, client)

	if err := l.syncIndex(context.Background()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	// carol is above the threshold and stays out of the index
	if l.index.Len() != 2 {
		t.Fatalf("expected 2 watched accounts, got %d", l.index.Len())
	}
	riskiest := l.index.Riskiest(factor("1000000000000000000"), 10)
	if riskiest[0].Address != "alice" || riskiest[1].Address != "bob" {
		t.Errorf("unexpected ordering: %s, %s", riskiest[0].Address, riskiest[1].Address)
	}
}
