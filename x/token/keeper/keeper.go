package keeper

import (
	"encoding/json"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/openalpha/dusd/x/token/types"
)

// Store key prefixes
var (
	BalanceKeyPrefix   = []byte{0x01}
	SupplyKeyPrefix    = []byte{0x02}
	AuthorityKeyPrefix = []byte{0x03}
)

// Keeper is a multi-denom fungible-value ledger. Denoms with a stored
// authority are mint/burn gated (the synthetic dollar); denoms without one
// are plain assets whose supply enters via FundAccount.
type Keeper struct {
	cdc      codec.BinaryCodec
	storeKey storetypes.StoreKey
	logger   log.Logger
}

// NewKeeper creates a new token ledger keeper
func NewKeeper(cdc codec.BinaryCodec, storeKey storetypes.StoreKey, logger log.Logger) *Keeper {
	return &Keeper{
		cdc:      cdc,
		storeKey: storeKey,
		logger:   logger.With("module", "x/token"),
	}
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

// balanceKey generates the key for a (denom, account) balance
func balanceKey(denom, account string) []byte {
	return append(BalanceKeyPrefix, []byte(denom+":"+account)...)
}

// supplyKey generates the key for a denom's total supply
func supplyKey(denom string) []byte {
	return append(SupplyKeyPrefix, []byte(denom)...)
}

// authorityKey generates the key for a denom's mint/burn authority
func authorityKey(denom string) []byte {
	return append(AuthorityKeyPrefix, []byte(denom)...)
}

func (k *Keeper) getInt(ctx sdk.Context, key []byte) math.Int {
	bz := k.GetStore(ctx).Get(key)
	if bz == nil {
		return math.ZeroInt()
	}
	var amount math.Int
	if err := json.Unmarshal(bz, &amount); err != nil {
		return math.ZeroInt()
	}
	return amount
}

func (k *Keeper) setInt(ctx sdk.Context, key []byte, amount math.Int) {
	store := k.GetStore(ctx)
	if amount.IsZero() {
		store.Delete(key)
		return
	}
	bz, _ := json.Marshal(amount)
	store.Set(key, bz)
}

// ============ Authority (mint/burn capability) ============

// Authority returns the stored mint/burn authority for denom, if any.
func (k *Keeper) Authority(ctx sdk.Context, denom string) (string, bool) {
	bz := k.GetStore(ctx).Get(authorityKey(denom))
	if bz == nil {
		return "", false
	}
	return string(bz), true
}

// SetDenomAuthority binds the mint/burn capability for denom to authority.
// One-shot: only usable while no authority is set, during bootstrap.
func (k *Keeper) SetDenomAuthority(ctx sdk.Context, denom, authority string) error {
	if _, exists := k.Authority(ctx, denom); exists {
		return types.ErrAuthorityExists
	}
	k.GetStore(ctx).Set(authorityKey(denom), []byte(authority))
	k.logger.Info("denom authority set", "denom", denom, "authority", authority)
	return nil
}

// TransferDenomAuthority hands the capability to a new controller. Only the
// current authority may call it.
func (k *Keeper) TransferDenomAuthority(ctx sdk.Context, denom, caller, newAuthority string) error {
	current, exists := k.Authority(ctx, denom)
	if !exists {
		return types.ErrAuthorityNotSet
	}
	if caller != current {
		return types.ErrUnauthorized
	}
	k.GetStore(ctx).Set(authorityKey(denom), []byte(newAuthority))
	k.logger.Info("denom authority transferred", "denom", denom, "from", caller, "to", newAuthority)
	return nil
}

// ============ Ledger Operations ============

// BalanceOf returns account's balance of denom (zero if none).
func (k *Keeper) BalanceOf(ctx sdk.Context, denom, account string) math.Int {
	return k.getInt(ctx, balanceKey(denom, account))
}

// TotalSupply returns the outstanding supply of denom.
func (k *Keeper) TotalSupply(ctx sdk.Context, denom string) math.Int {
	return k.getInt(ctx, supplyKey(denom))
}

// Mint creates amount of denom for to. The caller must hold the denom's
// authority if one is set.
func (k *Keeper) Mint(ctx sdk.Context, denom, caller, to string, amount math.Int) error {
	if !amount.IsPositive() {
		return types.ErrInvalidAmount
	}
	if authority, gated := k.Authority(ctx, denom); gated && caller != authority {
		return types.ErrUnauthorized
	}
	k.setInt(ctx, balanceKey(denom, to), k.BalanceOf(ctx, denom, to).Add(amount))
	k.setInt(ctx, supplyKey(denom), k.TotalSupply(ctx, denom).Add(amount))
	return nil
}

// Burn destroys amount of denom from the caller's own balance. For gated
// denoms only the authority may burn.
func (k *Keeper) Burn(ctx sdk.Context, denom, caller string, amount math.Int) error {
	if !amount.IsPositive() {
		return types.ErrInvalidAmount
	}
	if authority, gated := k.Authority(ctx, denom); gated && caller != authority {
		return types.ErrUnauthorized
	}
	balance := k.BalanceOf(ctx, denom, caller)
	if balance.LT(amount) {
		return types.ErrInsufficientFunds
	}
	supply := k.TotalSupply(ctx, denom)
	if supply.LT(amount) {
		return types.ErrSupplyUnderflow
	}
	k.setInt(ctx, balanceKey(denom, caller), balance.Sub(amount))
	k.setInt(ctx, supplyKey(denom), supply.Sub(amount))
	return nil
}

// Transfer moves amount of denom from one account to another with
// move-or-fail semantics.
func (k *Keeper) Transfer(ctx sdk.Context, denom, from, to string, amount math.Int) error {
	if !amount.IsPositive() {
		return types.ErrInvalidAmount
	}
	fromBalance := k.BalanceOf(ctx, denom, from)
	if fromBalance.LT(amount) {
		return types.ErrInsufficientFunds
	}
	k.setInt(ctx, balanceKey(denom, from), fromBalance.Sub(amount))
	k.setInt(ctx, balanceKey(denom, to), k.BalanceOf(ctx, denom, to).Add(amount))
	return nil
}

// FundAccount seeds an un-gated denom balance, for genesis and test
// fixtures. Refused for authority-gated denoms.
func (k *Keeper) FundAccount(ctx sdk.Context, denom, to string, amount math.Int) error {
	if _, gated := k.Authority(ctx, denom); gated {
		return types.ErrUnauthorized
	}
	return k.Mint(ctx, denom, "", to, amount)
}
