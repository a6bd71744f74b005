package types

import (
	"cosmossdk.io/errors"
)

// ModuleName is the oracle's store and error namespace.
const ModuleName = "oracle"

// Module error codes
var (
	ErrFeedNotFound = errors.Register(ModuleName, 1, "price feed not found")
	ErrInvalidPrice = errors.Register(ModuleName, 2, "price must be positive")
)
