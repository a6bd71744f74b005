package keeper

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dusd/x/dusd/types"
	oraclekeeper "github.com/openalpha/dusd/x/oracle/keeper"
	tokenkeeper "github.com/openalpha/dusd/x/token/keeper"
)

const (
	wethDenom = "weth"
	wbtcDenom = "wbtc"
	ethFeed   = "eth-usd"
	btcFeed   = "btc-usd"

	alice = "alice"
	bob   = "bob"
)

// testEnv bundles the engine keeper and its collaborator keepers over a
// shared in-memory multistore.
type testEnv struct {
	keeper *Keeper
	token  *tokenkeeper.Keeper
	oracle *oraclekeeper.Keeper
	ctx    sdk.Context
}

// setupKeeper creates an engine with a weth (18 decimals) and wbtc
// (8 decimals) registry over an in-memory store, prices at $2000 and
// $30000 on 8-decimal feeds.
func setupKeeper(tb testing.TB) *testEnv {
	tb.Helper()

	dusdKey := storetypes.NewKVStoreKey(types.ModuleName)
	tokenKey := storetypes.NewKVStoreKey("token")
	oracleKey := storetypes.NewKVStoreKey("oracle")

	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(dusdKey, storetypes.StoreTypeIAVL, db)
	stateStore.MountStoreWithDB(tokenKey, storetypes.StoreTypeIAVL, db)
	stateStore.MountStoreWithDB(oracleKey, storetypes.StoreTypeIAVL, db)
	if err := stateStore.LoadLatestVersion(); err != nil {
		tb.Fatalf("failed to load store: %v", err)
	}

	ctx := sdk.NewContext(stateStore, cmtproto.Header{Time: time.Unix(1700000000, 0)}, false, log.NewNopLogger())

	interfaceRegistry := codectypes.NewInterfaceRegistry()
	cdc := codec.NewProtoCodec(interfaceRegistry)

	tokenK := tokenkeeper.NewKeeper(cdc, tokenKey, log.NewNopLogger())
	oracleK := oraclekeeper.NewKeeper(cdc, oracleKey, log.NewNopLogger())

	registry, err := types.NewRegistry(
		[]string{wethDenom, wbtcDenom},
		[]string{ethFeed, btcFeed},
		[]uint8{18, 8},
	)
	if err != nil {
		tb.Fatalf("failed to build registry: %v", err)
	}

	k, err := NewKeeper(cdc, dusdKey, tokenK, oracleK, registry, log.NewNopLogger())
	if err != nil {
		tb.Fatalf("failed to build keeper: %v", err)
	}

	if err := tokenK.SetDenomAuthority(ctx, types.DusdDenom, types.EngineAccount); err != nil {
		tb.Fatalf("failed to set dusd authority: %v", err)
	}
	if err := oracleK.SetPrice(ctx, ethFeed, math.NewInt(2000_0000_0000), 8, ctx.BlockTime()); err != nil {
		tb.Fatalf("failed to set eth price: %v", err)
	}
	if err := oracleK.SetPrice(ctx, btcFeed, math.NewInt(30000_0000_0000), 8, ctx.BlockTime()); err != nil {
		tb.Fatalf("failed to set btc price: %v", err)
	}

	return &testEnv{keeper: k, token: tokenK, oracle: oracleK, ctx: ctx}
}

// fund seeds an account with collateral tokens.
func (env *testEnv) fund(tb testing.TB, denom, account string, amount math.Int) {
	tb.Helper()
	if err := env.token.FundAccount(env.ctx, denom, account, amount); err != nil {
		tb.Fatalf("failed to fund %s with %s %s: %v", account, amount, denom, err)
	}
}

// setEthPrice replaces the eth-usd observation, 8-decimal scale.
func (env *testEnv) setEthPrice(tb testing.TB, price math.Int) {
	tb.Helper()
	if err := env.oracle.SetPrice(env.ctx, ethFeed, price, 8, env.ctx.BlockTime()); err != nil {
		tb.Fatalf("failed to set eth price: %v", err)
	}
}

// eth18 converts whole units into 18-decimal base units.
func eth18(units int64) math.Int {
	return math.NewInt(units).Mul(math.NewIntWithDecimal(1, 18))
}

func TestNewRegistryConfigMismatch(t *testing.T) {
	_, err := types.NewRegistry([]string{"weth"}, []string{"eth-usd", "btc-usd"}, []uint8{18})
	if err != types.ErrConfigMismatch {
		t.Errorf("expected ErrConfigMismatch, got %v", err)
	}

	_, err = types.NewRegistry([]string{"weth", "weth"}, []string{"a", "b"}, []uint8{18, 18})
	if err != types.ErrConfigMismatch {
		t.Errorf("expected ErrConfigMismatch on duplicate denom, got %v", err)
	}
}

func TestCollateralLedger(t *testing.T) {
	env := setupKeeper(t)
	k, ctx := env.keeper, env.ctx

	if !k.GetCollateral(ctx, alice, wethDenom).IsZero() {
		t.Fatal("fresh account should have zero collateral")
	}

	if err := k.AddCollateral(ctx, alice, wethDenom, eth18(5)); err != nil {
		t.Fatalf("AddCollateral failed: %v", err)
	}
	if got := k.GetCollateral(ctx, alice, wethDenom); !got.Equal(eth18(5)) {
		t.Errorf("collateral = %s, expected %s", got, eth18(5))
	}

	// Zero and negative amounts rejected
	if err := k.AddCollateral(ctx, alice, wethDenom, math.ZeroInt()); err != types.ErrInputInvalid {
		t.Errorf("expected ErrInputInvalid for zero amount, got %v", err)
	}

	// Unregistered denom rejected
	if err := k.AddCollateral(ctx, alice, "doge", eth18(1)); err != types.ErrAssetNotAllowed {
		t.Errorf("expected ErrAssetNotAllowed, got %v", err)
	}

	// Withdrawing more than the balance underflows into an error, never a wrap
	if err := k.SubCollateral(ctx, alice, wethDenom, eth18(6)); err != types.ErrInsufficientCollateral {
		t.Errorf("expected ErrInsufficientCollateral, got %v", err)
	}
	if err := k.SubCollateral(ctx, alice, wethDenom, eth18(5)); err != nil {
		t.Fatalf("SubCollateral failed: %v", err)
	}
	if !k.GetCollateral(ctx, alice, wethDenom).IsZero() {
		t.Error("collateral should be zero after full withdrawal")
	}
}

func TestDebtLedger(t *testing.T) {
	env := setupKeeper(t)
	k, ctx := env.keeper, env.ctx

	if err := k.RecordMint(ctx, alice, eth18(100)); err != nil {
		t.Fatalf("RecordMint failed: %v", err)
	}
	if got := k.GetDebt(ctx, alice); !got.Equal(eth18(100)) {
		t.Errorf("debt = %s, expected %s", got, eth18(100))
	}

	// Burning past zero is a hard error
	if err := k.RecordBurn(ctx, alice, eth18(101)); err != types.ErrInsufficientDebt {
		t.Errorf("expected ErrInsufficientDebt, got %v", err)
	}

	if err := k.RecordBurn(ctx, alice, eth18(100)); err != nil {
		t.Fatalf("RecordBurn failed: %v", err)
	}
	if !k.GetDebt(ctx, alice).IsZero() {
		t.Error("debt should be zero after full burn")
	}
}

func TestRegisteredAssets(t *testing.T) {
	env := setupKeeper(t)

	assets := env.keeper.RegisteredAssets()
	if len(assets) != 2 {
		t.Fatalf("expected 2 registered assets, got %d", len(assets))
	}
	if assets[0].Denom != wethDenom || assets[0].FeedID != ethFeed {
		t.Errorf("unexpected first asset: %+v", assets[0])
	}
	if assets[1].Denom != wbtcDenom || assets[1].Decimals != 8 {
		t.Errorf("unexpected second asset: %+v", assets[1])
	}

	if _, err := env.keeper.Asset("doge"); err != types.ErrAssetNotAllowed {
		t.Errorf("expected ErrAssetNotAllowed, got %v", err)
	}
}
