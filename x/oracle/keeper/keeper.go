package keeper

import (
	"encoding/json"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	dusdtypes "github.com/openalpha/dusd/x/dusd/types"
	"github.com/openalpha/dusd/x/oracle/types"
)

// Store key prefixes
var (
	PriceKeyPrefix = []byte{0x01}
)

// Keeper stores the latest observation per price feed. Prices are trusted
// as given: no staleness, deviation or manipulation defense.
type Keeper struct {
	cdc      codec.BinaryCodec
	storeKey storetypes.StoreKey
	logger   log.Logger
}

// NewKeeper creates a new oracle keeper
func NewKeeper(cdc codec.BinaryCodec, storeKey storetypes.StoreKey, logger log.Logger) *Keeper {
	return &Keeper{
		cdc:      cdc,
		storeKey: storeKey,
		logger:   logger.With("module", "x/oracle"),
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

// priceKey generates the key for a feed's latest observation
func priceKey(feedID string) []byte {
	return append(PriceKeyPrefix, []byte(feedID)...)
}

// SetPrice records a new observation for feedID.
func (k *Keeper) SetPrice(ctx sdk.Context, feedID string, price math.Int, decimals uint8, updatedAt time.Time) error {
	if !price.IsPositive() {
		return types.ErrInvalidPrice
	}
	data := dusdtypes.PriceData{
		Price:     price,
		Decimals:  decimals,
		UpdatedAt: updatedAt,
	}
	bz, _ := json.Marshal(data)
	k.GetStore(ctx).Set(priceKey(feedID), bz)

	k.logger.Info("price updated",
		"feed", feedID,
		"price", price.String(),
		"decimals", decimals,
	)
	return nil
}

// LatestPrice returns the latest observation for feedID.
func (k *Keeper) LatestPrice(ctx sdk.Context, feedID string) (dusdtypes.PriceData, error) {
	bz := k.GetStore(ctx).Get(priceKey(feedID))
	if bz == nil {
		return dusdtypes.PriceData{}, types.ErrFeedNotFound
	}
	var data dusdtypes.PriceData
	if err := json.Unmarshal(bz, &data); err != nil {
		return dusdtypes.PriceData{}, types.ErrFeedNotFound
	}
	return data, nil
}
