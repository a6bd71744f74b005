package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrInputInvalid            = errors.Register(ModuleName, 1, "amount must be positive")
	ErrConfigMismatch          = errors.Register(ModuleName, 2, "collateral and feed lists must have equal length")
	ErrAssetNotAllowed         = errors.Register(ModuleName, 3, "collateral asset is not registered")
	ErrTransferFailed          = errors.Register(ModuleName, 4, "external transfer failed")
	ErrMintFailed              = errors.Register(ModuleName, 5, "token mint was declined")
	ErrHealthFactorBroken      = errors.Register(ModuleName, 6, "health factor below minimum")
	ErrHealthFactorOk          = errors.Register(ModuleName, 7, "position is healthy, cannot liquidate")
	ErrHealthFactorNotImproved = errors.Register(ModuleName, 8, "liquidation did not improve health factor")
	ErrInsufficientCollateral  = errors.Register(ModuleName, 9, "insufficient collateral balance")
	ErrInsufficientDebt        = errors.Register(ModuleName, 10, "burn exceeds outstanding debt")
	ErrOracleUnavailable       = errors.Register(ModuleName, 11, "no price feed bound for asset")
	ErrReentrantCall           = errors.Register(ModuleName, 12, "reentrant call rejected")
	ErrUnauthorized            = errors.Register(ModuleName, 13, "unauthorized")
	ErrLiquidationNotFound     = errors.Register(ModuleName, 14, "liquidation record not found")
)
