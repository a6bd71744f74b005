package app

import (
	"sync"
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

	dusdkeeper "github.com/openalpha/dusd/x/dusd/keeper"
	dusdtypes "github.com/openalpha/dusd/x/dusd/types"
	oraclekeeper "github.com/openalpha/dusd/x/oracle/keeper"
	oracletypes "github.com/openalpha/dusd/x/oracle/types"
	tokenkeeper "github.com/openalpha/dusd/x/token/keeper"
	tokentypes "github.com/openalpha/dusd/x/token/types"
)

const (
	Name = "dusd"
)

// CollateralConfig describes one collateral asset accepted at genesis.
type CollateralConfig struct {
	Denom    string `json:"denom"`
	FeedID   string `json:"feed_id"`
	Decimals uint8  `json:"decimals"`
}

// GenesisConfig is everything needed to boot a fresh engine.
type GenesisConfig struct {
	Collateral []CollateralConfig `json:"collateral"`

	// Optional initial oracle prices, keyed by feed ID. Values use the
	// feed's own decimal scale.
	Prices map[string]PriceConfig `json:"prices,omitempty"`
}

// PriceConfig is an initial oracle price for one feed.
type PriceConfig struct {
	Price    string `json:"price"`
	Decimals uint8  `json:"decimals"`
}

// DusdApp wires the engine keepers over a single committed multistore.
// All keepers share the store so a discarded branch rolls back every
// collaborator, including token transfers.
type DusdApp struct {
	cdc    codec.Codec
	db     dbm.DB
	cms    storetypes.CommitMultiStore
	logger log.Logger

	dusdKey   *storetypes.KVStoreKey
	tokenKey  *storetypes.KVStoreKey
	oracleKey *storetypes.KVStoreKey

	TokenKeeper  *tokenkeeper.Keeper
	OracleKeeper *oraclekeeper.Keeper
	DusdKeeper   *dusdkeeper.Keeper

	// Serializes state-changing entry points. The engine guards against
	// reentrancy internally, but concurrent top-level writers would race
	// on the multistore.
	mu sync.Mutex
}

// NewDusdApp builds the application over the given database.
func NewDusdApp(logger log.Logger, db dbm.DB, genesis *GenesisConfig) (*DusdApp, error) {
	dusdKey := storetypes.NewKVStoreKey(dusdtypes.ModuleName)
	tokenKey := storetypes.NewKVStoreKey(tokentypes.ModuleName)
	oracleKey := storetypes.NewKVStoreKey(oracletypes.ModuleName)

	cms := store.NewCommitMultiStore(db, logger, metrics.NewNoOpMetrics())
	cms.MountStoreWithDB(dusdKey, storetypes.StoreTypeIAVL, db)
	cms.MountStoreWithDB(tokenKey, storetypes.StoreTypeIAVL, db)
	cms.MountStoreWithDB(oracleKey, storetypes.StoreTypeIAVL, db)
	if err := cms.LoadLatestVersion(); err != nil {
		return nil, err
	}

	interfaceRegistry := codectypes.NewInterfaceRegistry()
	dusdtypes.RegisterInterfaces(interfaceRegistry)
	cdc := codec.NewProtoCodec(interfaceRegistry)

	tokenK := tokenkeeper.NewKeeper(cdc, tokenKey, logger)
	oracleK := oraclekeeper.NewKeeper(cdc, oracleKey, logger)

	denoms := make([]string, 0, len(genesis.Collateral))
	feedIDs := make([]string, 0, len(genesis.Collateral))
	decimals := make([]uint8, 0, len(genesis.Collateral))
	for _, c := range genesis.Collateral {
		denoms = append(denoms, c.Denom)
		feedIDs = append(feedIDs, c.FeedID)
		decimals = append(decimals, c.Decimals)
	}
	registry, err := dusdtypes.NewRegistry(denoms, feedIDs, decimals)
	if err != nil {
		return nil, err
	}

	dusdK, err := dusdkeeper.NewKeeper(cdc, dusdKey, tokenK, oracleK, registry, logger)
	if err != nil {
		return nil, err
	}

	a := &DusdApp{
		cdc:          cdc,
		db:           db,
		cms:          cms,
		logger:       logger.With("app", Name),
		dusdKey:      dusdKey,
		tokenKey:     tokenKey,
		oracleKey:    oracleKey,
		TokenKeeper:  tokenK,
		OracleKeeper: oracleK,
		DusdKeeper:   dusdK,
	}

	if err := a.initGenesis(genesis); err != nil {
		return nil, err
	}

	return a, nil
}

// initGenesis claims the synthetic-dollar denom for the engine and seeds
// any configured oracle prices. Idempotent over restarts.
func (a *DusdApp) initGenesis(genesis *GenesisConfig) error {
	ctx := a.NewContext()

	if _, claimed := a.TokenKeeper.Authority(ctx, dusdtypes.DusdDenom); !claimed {
		if err := a.TokenKeeper.SetDenomAuthority(ctx, dusdtypes.DusdDenom, dusdtypes.EngineAccount); err != nil {
			return err
		}
	}

	for feedID, p := range genesis.Prices {
		price, ok := math.NewIntFromString(p.Price)
		if !ok {
			return oracletypes.ErrInvalidPrice.Wrapf("genesis price %q for feed %s", p.Price, feedID)
		}
		if err := a.OracleKeeper.SetPrice(ctx, feedID, price, p.Decimals, time.Now().UTC()); err != nil {
			return err
		}
	}

	a.Commit()
	return nil
}

// NewContext returns a context over the live multistore.
func (a *DusdApp) NewContext() sdk.Context {
	return sdk.NewContext(a.cms, cmtproto.Header{Time: time.Now().UTC()}, false, a.logger)
}

// Commit flushes pending writes to the database.
func (a *DusdApp) Commit() {
	a.cms.Commit()
}

// RunTx executes fn under the app write lock and commits on success.
// On error nothing is committed.
func (a *DusdApp) RunTx(fn func(ctx sdk.Context) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, writeCache := a.NewContext().CacheContext()
	if err := fn(ctx); err != nil {
		return err
	}
	writeCache()
	a.cms.Commit()
	return nil
}

// RunQuery executes fn over a read-only branch of current state.
func (a *DusdApp) RunQuery(fn func(ctx sdk.Context) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, _ := a.NewContext().CacheContext()
	return fn(ctx)
}

// Close releases the underlying database.
func (a *DusdApp) Close() error {
	return a.db.Close()
}
