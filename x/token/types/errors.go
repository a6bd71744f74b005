package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrInvalidAmount     = errors.Register(ModuleName, 1, "amount must be positive")
	ErrInsufficientFunds = errors.Register(ModuleName, 2, "insufficient balance")
	ErrUnauthorized      = errors.Register(ModuleName, 3, "caller does not hold the denom authority")
	ErrAuthorityExists   = errors.Register(ModuleName, 4, "denom authority already set")
	ErrAuthorityNotSet   = errors.Register(ModuleName, 5, "denom authority not set")
	ErrSupplyUnderflow   = errors.Register(ModuleName, 6, "burn exceeds total supply")
)
