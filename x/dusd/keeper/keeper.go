package keeper

import (
	"encoding/json"

	"cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/openalpha/dusd/x/dusd/types"
)

// Store key prefixes
var (
	CollateralKeyPrefix  = []byte{0x01}
	DebtKeyPrefix        = []byte{0x02}
	DepositorKeyPrefix   = []byte{0x03}
	LiquidationKeyPrefix = []byte{0x04}
)

// Keeper manages the synthetic-dollar engine state: the collateral and debt
// ledgers plus the immutable collateral registry. All invariant enforcement
// lives in risk.go; the ledger primitives here only validate their own
// inputs.
type Keeper struct {
	cdc          codec.BinaryCodec
	storeKey     storetypes.StoreKey
	tokenKeeper  types.TokenKeeper
	oracleKeeper types.OracleKeeper
	logger       log.Logger

	registry []types.CollateralAsset
	byDenom  map[string]types.CollateralAsset

	// Non-reentrancy flag. The engine processes one mutating call at a
	// time against shared ledgers; a collaborator callback that re-enters
	// a mutating entry point is rejected with ErrReentrantCall.
	entered bool
}

// NewKeeper creates the engine keeper. The collateral registry is validated
// and frozen here; there is no way to add or remove assets afterward.
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	tokenKeeper types.TokenKeeper,
	oracleKeeper types.OracleKeeper,
	registry []types.CollateralAsset,
	logger log.Logger,
) (*Keeper, error) {
	byDenom := make(map[string]types.CollateralAsset, len(registry))
	for _, asset := range registry {
		if _, dup := byDenom[asset.Denom]; dup {
			return nil, types.ErrConfigMismatch
		}
		if asset.FeedID == "" {
			return nil, types.ErrConfigMismatch
		}
		byDenom[asset.Denom] = asset
	}

	return &Keeper{
		cdc:          cdc,
		storeKey:     storeKey,
		tokenKeeper:  tokenKeeper,
		oracleKeeper: oracleKeeper,
		registry:     registry,
		byDenom:      byDenom,
		logger:       logger.With("module", "x/dusd"),
	}, nil
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

// RegisteredAssets returns the immutable collateral registry in
// construction order.
func (k *Keeper) RegisteredAssets() []types.CollateralAsset {
	out := make([]types.CollateralAsset, len(k.registry))
	copy(out, k.registry)
	return out
}

// Asset looks up a registered collateral asset by denom.
func (k *Keeper) Asset(denom string) (types.CollateralAsset, error) {
	asset, ok := k.byDenom[denom]
	if !ok {
		return types.CollateralAsset{}, types.ErrAssetNotAllowed
	}
	return asset, nil
}

// enter acquires the module-wide non-reentrancy flag.
func (k *Keeper) enter() error {
	if k.entered {
		return types.ErrReentrantCall
	}
	k.entered = true
	return nil
}

// exit releases the non-reentrancy flag.
func (k *Keeper) exit() {
	k.entered = false
}

// ============ Collateral Ledger ============

// collateralKey generates the key for a (user, denom) collateral balance
func collateralKey(account, denom string) []byte {
	return append(CollateralKeyPrefix, []byte(account+":"+denom)...)
}

// GetCollateral returns the deposited amount of denom for account (zero if
// none).
func (k *Keeper) GetCollateral(ctx sdk.Context, account, denom string) math.Int {
	store := k.GetStore(ctx)
	bz := store.Get(collateralKey(account, denom))
	if bz == nil {
		return math.ZeroInt()
	}
	var amount math.Int
	if err := json.Unmarshal(bz, &amount); err != nil {
		return math.ZeroInt()
	}
	return amount
}

// setCollateral writes a collateral balance, deleting zero entries.
func (k *Keeper) setCollateral(ctx sdk.Context, account, denom string, amount math.Int) {
	store := k.GetStore(ctx)
	key := collateralKey(account, denom)
	if amount.IsZero() {
		store.Delete(key)
		return
	}
	bz, _ := json.Marshal(amount)
	store.Set(key, bz)
}

// AddCollateral increases the (account, denom) collateral balance. Amount
// must be positive and denom registered; the caller performs the matching
// external transfer.
func (k *Keeper) AddCollateral(ctx sdk.Context, account, denom string, amount math.Int) error {
	if !amount.IsPositive() {
		return types.ErrInputInvalid
	}
	if _, err := k.Asset(denom); err != nil {
		return err
	}
	k.setCollateral(ctx, account, denom, k.GetCollateral(ctx, account, denom).Add(amount))
	k.markDepositor(ctx, account)
	return nil
}

// SubCollateral decreases the (account, denom) collateral balance. Fails
// with ErrInsufficientCollateral instead of underflowing.
func (k *Keeper) SubCollateral(ctx sdk.Context, account, denom string, amount math.Int) error {
	if !amount.IsPositive() {
		return types.ErrInputInvalid
	}
	balance := k.GetCollateral(ctx, account, denom)
	if balance.LT(amount) {
		return types.ErrInsufficientCollateral
	}
	k.setCollateral(ctx, account, denom, balance.Sub(amount))
	return nil
}

// ============ Debt Ledger ============

// debtKey generates the key for an account's debt balance
func debtKey(account string) []byte {
	return append(DebtKeyPrefix, []byte(account)...)
}

// GetDebt returns the outstanding minted debt for account (zero if none).
func (k *Keeper) GetDebt(ctx sdk.Context, account string) math.Int {
	store := k.GetStore(ctx)
	bz := store.Get(debtKey(account))
	if bz == nil {
		return math.ZeroInt()
	}
	var amount math.Int
	if err := json.Unmarshal(bz, &amount); err != nil {
		return math.ZeroInt()
	}
	return amount
}

// setDebt writes a debt balance, deleting zero entries.
func (k *Keeper) setDebt(ctx sdk.Context, account string, amount math.Int) {
	store := k.GetStore(ctx)
	key := debtKey(account)
	if amount.IsZero() {
		store.Delete(key)
		return
	}
	bz, _ := json.Marshal(amount)
	store.Set(key, bz)
}

// RecordMint increases an account's debt.
func (k *Keeper) RecordMint(ctx sdk.Context, account string, amount math.Int) error {
	if !amount.IsPositive() {
		return types.ErrInputInvalid
	}
	k.setDebt(ctx, account, k.GetDebt(ctx, account).Add(amount))
	return nil
}

// RecordBurn decreases an account's debt. Burning past zero is rejected,
// never wrapped: silent wraparound would break the solvency invariant.
func (k *Keeper) RecordBurn(ctx sdk.Context, account string, amount math.Int) error {
	if !amount.IsPositive() {
		return types.ErrInputInvalid
	}
	debt := k.GetDebt(ctx, account)
	if debt.LT(amount) {
		return types.ErrInsufficientDebt
	}
	k.setDebt(ctx, account, debt.Sub(amount))
	return nil
}

// ============ Depositor Index ============

// depositorKey generates the key marking an account as a known depositor
func depositorKey(account string) []byte {
	return append(DepositorKeyPrefix, []byte(account)...)
}

// markDepositor records an account the first time it deposits so the query
// surface and the protocol-level invariant can enumerate positions.
func (k *Keeper) markDepositor(ctx sdk.Context, account string) {
	store := k.GetStore(ctx)
	store.Set(depositorKey(account), []byte{1})
}

// GetDepositors returns every account that has ever deposited collateral.
func (k *Keeper) GetDepositors(ctx sdk.Context) []string {
	store := k.GetStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, DepositorKeyPrefix)
	defer iterator.Close()

	var accounts []string
	for ; iterator.Valid(); iterator.Next() {
		accounts = append(accounts, string(iterator.Key()[len(DepositorKeyPrefix):]))
	}
	return accounts
}

// ============ Liquidation Records ============

// liquidationKey generates the key for a liquidation record
func liquidationKey(id string) []byte {
	return append(LiquidationKeyPrefix, []byte(id)...)
}

// SetLiquidation saves a liquidation record to the store
func (k *Keeper) SetLiquidation(ctx sdk.Context, liq *types.Liquidation) {
	store := k.GetStore(ctx)
	bz, _ := json.Marshal(liq)
	store.Set(liquidationKey(liq.LiquidationID), bz)
}

// GetLiquidation retrieves a liquidation record from the store
func (k *Keeper) GetLiquidation(ctx sdk.Context, id string) (*types.Liquidation, error) {
	store := k.GetStore(ctx)
	bz := store.Get(liquidationKey(id))
	if bz == nil {
		return nil, errors.Wrapf(types.ErrLiquidationNotFound, "id %s", id)
	}
	var liq types.Liquidation
	if err := json.Unmarshal(bz, &liq); err != nil {
		return nil, errors.Wrapf(types.ErrLiquidationNotFound, "id %s: corrupt record: %s", id, err)
	}
	return &liq, nil
}

// GetAllLiquidations returns all persisted liquidation records
func (k *Keeper) GetAllLiquidations(ctx sdk.Context) []*types.Liquidation {
	store := k.GetStore(ctx)
	iterator := storetypes.KVStorePrefixIterator(store, LiquidationKeyPrefix)
	defer iterator.Close()

	var liquidations []*types.Liquidation
	for ; iterator.Valid(); iterator.Next() {
		var liq types.Liquidation
		if err := json.Unmarshal(iterator.Value(), &liq); err != nil {
			continue
		}
		liquidations = append(liquidations, &liq)
	}
	return liquidations
}
