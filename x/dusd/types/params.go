package types

import (
	"math/big"

	"cosmossdk.io/math"
)

// Protocol constants. All fixed at compile time: no governance, no fees,
// no interest accrual.
var (
	// Precision is the 18-decimal fixed-point scale shared by the synthetic
	// dollar, all USD values, and the health factor.
	Precision = math.NewIntWithDecimal(1, 18)

	// AdditionalFeedPrecision lifts a canonical-precision oracle price to
	// 18 decimals. Feeds with other precisions are normalized generically in
	// the value converter.
	AdditionalFeedPrecision = math.NewIntWithDecimal(1, 10)

	// CanonicalFeedDecimals is the precision most price feeds report.
	CanonicalFeedDecimals = uint8(8)

	// LiquidationThreshold is the percentage of raw collateral USD value
	// usable as debt backing. 50 means a 2:1 overcollateralization
	// requirement.
	LiquidationThreshold = math.NewInt(50)

	// LiquidationPrecision is the divisor for percentage constants.
	LiquidationPrecision = math.NewInt(100)

	// LiquidationBonus is the extra percentage of seized collateral awarded
	// to a liquidator on top of the USD value of the debt they repay.
	LiquidationBonus = math.NewInt(10)

	// MinHealthFactor is the smallest health factor a position may hold
	// after any mutating operation. 1e18 encodes 1.0.
	MinHealthFactor = math.NewIntWithDecimal(1, 18)

	// MaxHealthFactor is returned for positions with zero debt. Largest
	// value math.Int can represent (2^256 - 1).
	MaxHealthFactor = math.NewIntFromBigInt(new(big.Int).Sub(
		new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)))
)

// ModuleName is the engine's store and error namespace.
const ModuleName = "dusd"

// EngineAccount is the identity under which the engine holds custody of
// deposited collateral and pulled tokens, and under which it exercises the
// mint/burn capability on the synthetic dollar denom.
const EngineAccount = "dusd_engine"

// DusdDenom is the synthetic dollar denom in the token ledger.
const DusdDenom = "dusd"
