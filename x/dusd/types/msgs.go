package types

import (
	"context"

	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// RegisterInterfaces registers the module's interface types
func RegisterInterfaces(registry cdctypes.InterfaceRegistry) {
	registry.RegisterImplementations((*sdk.Msg)(nil),
		&MsgDepositCollateral{},
		&MsgMintDusd{},
		&MsgRedeemCollateral{},
		&MsgBurnDusd{},
		&MsgDepositCollateralAndMintDusd{},
		&MsgRedeemCollateralForDusd{},
		&MsgLiquidate{},
	)
}

// Message types for the dusd module, also used as event type names. The
// composite messages emit the events of the operations they combine.
const (
	TypeMsgDepositCollateral = "deposit_collateral"
	TypeMsgMintDusd          = "mint_dusd"
	TypeMsgRedeemCollateral  = "redeem_collateral"
	TypeMsgBurnDusd          = "burn_dusd"
	TypeMsgLiquidate         = "liquidate"
)

// MsgServer defines the dusd module's message service
type MsgServer interface {
	DepositCollateral(context.Context, *MsgDepositCollateral) (*MsgDepositCollateralResponse, error)
	MintDusd(context.Context, *MsgMintDusd) (*MsgMintDusdResponse, error)
	RedeemCollateral(context.Context, *MsgRedeemCollateral) (*MsgRedeemCollateralResponse, error)
	BurnDusd(context.Context, *MsgBurnDusd) (*MsgBurnDusdResponse, error)
	DepositCollateralAndMintDusd(context.Context, *MsgDepositCollateralAndMintDusd) (*MsgDepositCollateralAndMintDusdResponse, error)
	RedeemCollateralForDusd(context.Context, *MsgRedeemCollateralForDusd) (*MsgRedeemCollateralForDusdResponse, error)
	Liquidate(context.Context, *MsgLiquidate) (*MsgLiquidateResponse, error)
}

// MsgDepositCollateral deposits collateral into the engine's custody
type MsgDepositCollateral struct {
	Account string `json:"account"`
	Denom   string `json:"denom"`
	Amount  string `json:"amount"`
}

// MsgDepositCollateralResponse is the deposit response
type MsgDepositCollateralResponse struct {
	NewBalance string `json:"new_balance"`
}

// MsgMintDusd mints synthetic dollars against deposited collateral
type MsgMintDusd struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// MsgMintDusdResponse is the mint response
type MsgMintDusdResponse struct {
	Debt         string `json:"debt"`
	HealthFactor string `json:"health_factor"`
}

// MsgRedeemCollateral withdraws collateral back to the owner
type MsgRedeemCollateral struct {
	Account string `json:"account"`
	Denom   string `json:"denom"`
	Amount  string `json:"amount"`
}

// MsgRedeemCollateralResponse is the redeem response
type MsgRedeemCollateralResponse struct {
	NewBalance   string `json:"new_balance"`
	HealthFactor string `json:"health_factor"`
}

// MsgBurnDusd repays outstanding debt
type MsgBurnDusd struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// MsgBurnDusdResponse is the burn response
type MsgBurnDusdResponse struct {
	Debt string `json:"debt"`
}

// MsgDepositCollateralAndMintDusd is deposit followed by mint in one call
type MsgDepositCollateralAndMintDusd struct {
	Account    string `json:"account"`
	Denom      string `json:"denom"`
	DepositAmt string `json:"deposit_amount"`
	MintAmt    string `json:"mint_amount"`
}

// MsgDepositCollateralAndMintDusdResponse is the composite response
type MsgDepositCollateralAndMintDusdResponse struct {
	Debt         string `json:"debt"`
	HealthFactor string `json:"health_factor"`
}

// MsgRedeemCollateralForDusd burns debt then redeems collateral in one call
type MsgRedeemCollateralForDusd struct {
	Account   string `json:"account"`
	Denom     string `json:"denom"`
	RedeemAmt string `json:"redeem_amount"`
	BurnAmt   string `json:"burn_amount"`
}

// MsgRedeemCollateralForDusdResponse is the composite response
type MsgRedeemCollateralForDusdResponse struct {
	Debt         string `json:"debt"`
	HealthFactor string `json:"health_factor"`
}

// MsgLiquidate repays part of an unsafe position's debt in exchange for a
// bonus-weighted share of its collateral
type MsgLiquidate struct {
	Liquidator  string `json:"liquidator"`
	Target      string `json:"target"`
	Denom       string `json:"denom"`
	DebtToCover string `json:"debt_to_cover"`
}

// MsgLiquidateResponse is the liquidation response
type MsgLiquidateResponse struct {
	LiquidationID    string `json:"liquidation_id"`
	CollateralSeized string `json:"collateral_seized"`
	EndFactor        string `json:"end_factor"`
}

// Proto interface implementations for MsgDepositCollateral
func (msg *MsgDepositCollateral) Reset()         { *msg = MsgDepositCollateral{} }
func (msg *MsgDepositCollateral) String() string { return msg.Account }
func (msg *MsgDepositCollateral) ProtoMessage()  {}

// XXX_MessageName returns the message type URL for MsgDepositCollateral
func (msg *MsgDepositCollateral) XXX_MessageName() string {
	return "openalpha.dusd.v1.MsgDepositCollateral"
}

// Proto interface implementations for MsgMintDusd
func (msg *MsgMintDusd) Reset()         { *msg = MsgMintDusd{} }
func (msg *MsgMintDusd) String() string { return msg.Account }
func (msg *MsgMintDusd) ProtoMessage()  {}

// XXX_MessageName returns the message type URL for MsgMintDusd
func (msg *MsgMintDusd) XXX_MessageName() string {
	return "openalpha.dusd.v1.MsgMintDusd"
}

// Proto interface implementations for MsgRedeemCollateral
func (msg *MsgRedeemCollateral) Reset()         { *msg = MsgRedeemCollateral{} }
func (msg *MsgRedeemCollateral) String() string { return msg.Account }
func (msg *MsgRedeemCollateral) ProtoMessage()  {}

// XXX_MessageName returns the message type URL for MsgRedeemCollateral
func (msg *MsgRedeemCollateral) XXX_MessageName() string {
	return "openalpha.dusd.v1.MsgRedeemCollateral"
}

// Proto interface implementations for MsgBurnDusd
func (msg *MsgBurnDusd) Reset()         { *msg = MsgBurnDusd{} }
func (msg *MsgBurnDusd) String() string { return msg.Account }
func (msg *MsgBurnDusd) ProtoMessage()  {}

// XXX_MessageName returns the message type URL for MsgBurnDusd
func (msg *MsgBurnDusd) XXX_MessageName() string {
	return "openalpha.dusd.v1.MsgBurnDusd"
}

// Proto interface implementations for MsgDepositCollateralAndMintDusd
func (msg *MsgDepositCollateralAndMintDusd) Reset()         { *msg = MsgDepositCollateralAndMintDusd{} }
func (msg *MsgDepositCollateralAndMintDusd) String() string { return msg.Account }
func (msg *MsgDepositCollateralAndMintDusd) ProtoMessage()  {}

// XXX_MessageName returns the message type URL for MsgDepositCollateralAndMintDusd
func (msg *MsgDepositCollateralAndMintDusd) XXX_MessageName() string {
	return "openalpha.dusd.v1.MsgDepositCollateralAndMintDusd"
}

// Proto interface implementations for MsgRedeemCollateralForDusd
func (msg *MsgRedeemCollateralForDusd) Reset()         { *msg = MsgRedeemCollateralForDusd{} }
func (msg *MsgRedeemCollateralForDusd) String() string { return msg.Account }
func (msg *MsgRedeemCollateralForDusd) ProtoMessage()  {}

// XXX_MessageName returns the message type URL for MsgRedeemCollateralForDusd
func (msg *MsgRedeemCollateralForDusd) XXX_MessageName() string {
	return "openalpha.dusd.v1.MsgRedeemCollateralForDusd"
}

// Proto interface implementations for MsgLiquidate
func (msg *MsgLiquidate) Reset()         { *msg = MsgLiquidate{} }
func (msg *MsgLiquidate) String() string { return msg.Target }
func (msg *MsgLiquidate) ProtoMessage()  {}

// XXX_MessageName returns the message type URL for MsgLiquidate
func (msg *MsgLiquidate) XXX_MessageName() string {
	return "openalpha.dusd.v1.MsgLiquidate"
}

// ValidateBasic for MsgDepositCollateral
func (msg *MsgDepositCollateral) ValidateBasic() error {
	if msg.Account == "" {
		return ErrUnauthorized
	}
	if msg.Denom == "" {
		return ErrAssetNotAllowed
	}
	return nil
}

// ValidateBasic for MsgMintDusd
func (msg *MsgMintDusd) ValidateBasic() error {
	if msg.Account == "" {
		return ErrUnauthorized
	}
	return nil
}

// ValidateBasic for MsgRedeemCollateral
func (msg *MsgRedeemCollateral) ValidateBasic() error {
	if msg.Account == "" {
		return ErrUnauthorized
	}
	if msg.Denom == "" {
		return ErrAssetNotAllowed
	}
	return nil
}

// ValidateBasic for MsgBurnDusd
func (msg *MsgBurnDusd) ValidateBasic() error {
	if msg.Account == "" {
		return ErrUnauthorized
	}
	return nil
}

// ValidateBasic for MsgDepositCollateralAndMintDusd
func (msg *MsgDepositCollateralAndMintDusd) ValidateBasic() error {
	if msg.Account == "" {
		return ErrUnauthorized
	}
	if msg.Denom == "" {
		return ErrAssetNotAllowed
	}
	return nil
}

// ValidateBasic for MsgRedeemCollateralForDusd
func (msg *MsgRedeemCollateralForDusd) ValidateBasic() error {
	if msg.Account == "" {
		return ErrUnauthorized
	}
	if msg.Denom == "" {
		return ErrAssetNotAllowed
	}
	return nil
}

// ValidateBasic for MsgLiquidate
func (msg *MsgLiquidate) ValidateBasic() error {
	if msg.Liquidator == "" || msg.Target == "" {
		return ErrUnauthorized
	}
	if msg.Denom == "" {
		return ErrAssetNotAllowed
	}
	return nil
}
