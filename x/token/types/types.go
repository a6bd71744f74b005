package types

// ModuleName is the token ledger's store and error namespace.
const ModuleName = "token"
