package keeper

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/openalpha/dusd/x/dusd/types"
)

var _ types.MsgServer = (*msgServer)(nil)

type msgServer struct {
	Keeper *Keeper
}

// NewMsgServerImpl returns an implementation of the MsgServer interface
func NewMsgServerImpl(keeper *Keeper) types.MsgServer {
	return &msgServer{Keeper: keeper}
}

// parseAmount parses a positive base-unit integer amount.
func parseAmount(s string) (math.Int, error) {
	amount, ok := math.NewIntFromString(s)
	if !ok || !amount.IsPositive() {
		return math.Int{}, types.ErrInputInvalid
	}
	return amount, nil
}

// DepositCollateral handles the MsgDepositCollateral message
func (m *msgServer) DepositCollateral(ctx context.Context, msg *types.MsgDepositCollateral) (*types.MsgDepositCollateralResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, err := parseAmount(msg.Amount)
	if err != nil {
		return nil, err
	}

	if err := m.Keeper.DepositCollateral(sdkCtx, msg.Account, msg.Denom, amount); err != nil {
		return nil, err
	}

	return &types.MsgDepositCollateralResponse{
		NewBalance: m.Keeper.GetCollateral(sdkCtx, msg.Account, msg.Denom).String(),
	}, nil
}

// MintDusd handles the MsgMintDusd message
func (m *msgServer) MintDusd(ctx context.Context, msg *types.MsgMintDusd) (*types.MsgMintDusdResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, err := parseAmount(msg.Amount)
	if err != nil {
		return nil, err
	}

	if err := m.Keeper.MintDusd(sdkCtx, msg.Account, amount); err != nil {
		return nil, err
	}

	factor, err := m.Keeper.HealthFactor(sdkCtx, msg.Account)
	if err != nil {
		return nil, err
	}
	return &types.MsgMintDusdResponse{
		Debt:         m.Keeper.GetDebt(sdkCtx, msg.Account).String(),
		HealthFactor: factor.String(),
	}, nil
}

// RedeemCollateral handles the MsgRedeemCollateral message
func (m *msgServer) RedeemCollateral(ctx context.Context, msg *types.MsgRedeemCollateral) (*types.MsgRedeemCollateralResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, err := parseAmount(msg.Amount)
	if err != nil {
		return nil, err
	}

	if err := m.Keeper.RedeemCollateral(sdkCtx, msg.Account, msg.Denom, amount); err != nil {
		return nil, err
	}

	factor, err := m.Keeper.HealthFactor(sdkCtx, msg.Account)
	if err != nil {
		return nil, err
	}
	return &types.MsgRedeemCollateralResponse{
		NewBalance:   m.Keeper.GetCollateral(sdkCtx, msg.Account, msg.Denom).String(),
		HealthFactor: factor.String(),
	}, nil
}

// BurnDusd handles the MsgBurnDusd message
func (m *msgServer) BurnDusd(ctx context.Context, msg *types.MsgBurnDusd) (*types.MsgBurnDusdResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	amount, err := parseAmount(msg.Amount)
	if err != nil {
		return nil, err
	}

	if err := m.Keeper.BurnDusd(sdkCtx, msg.Account, amount); err != nil {
		return nil, err
	}

	return &types.MsgBurnDusdResponse{
		Debt: m.Keeper.GetDebt(sdkCtx, msg.Account).String(),
	}, nil
}

// DepositCollateralAndMintDusd handles the composite deposit+mint message
func (m *msgServer) DepositCollateralAndMintDusd(ctx context.Context, msg *types.MsgDepositCollateralAndMintDusd) (*types.MsgDepositCollateralAndMintDusdResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	depositAmt, err := parseAmount(msg.DepositAmt)
	if err != nil {
		return nil, err
	}
	mintAmt, err := parseAmount(msg.MintAmt)
	if err != nil {
		return nil, err
	}

	if err := m.Keeper.DepositCollateralAndMintDusd(sdkCtx, msg.Account, msg.Denom, depositAmt, mintAmt); err != nil {
		return nil, err
	}

	factor, err := m.Keeper.HealthFactor(sdkCtx, msg.Account)
	if err != nil {
		return nil, err
	}
	return &types.MsgDepositCollateralAndMintDusdResponse{
		Debt:         m.Keeper.GetDebt(sdkCtx, msg.Account).String(),
		HealthFactor: factor.String(),
	}, nil
}

// RedeemCollateralForDusd handles the composite burn+redeem message
func (m *msgServer) RedeemCollateralForDusd(ctx context.Context, msg *types.MsgRedeemCollateralForDusd) (*types.MsgRedeemCollateralForDusdResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	redeemAmt, err := parseAmount(msg.RedeemAmt)
	if err != nil {
		return nil, err
	}
	burnAmt, err := parseAmount(msg.BurnAmt)
	if err != nil {
		return nil, err
	}

	if err := m.Keeper.RedeemCollateralForDusd(sdkCtx, msg.Account, msg.Denom, redeemAmt, burnAmt); err != nil {
		return nil, err
	}

	factor, err := m.Keeper.HealthFactor(sdkCtx, msg.Account)
	if err != nil {
		return nil, err
	}
	return &types.MsgRedeemCollateralForDusdResponse{
		Debt:         m.Keeper.GetDebt(sdkCtx, msg.Account).String(),
		HealthFactor: factor.String(),
	}, nil
}

// Liquidate handles the MsgLiquidate message
func (m *msgServer) Liquidate(ctx context.Context, msg *types.MsgLiquidate) (*types.MsgLiquidateResponse, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	if err := msg.ValidateBasic(); err != nil {
		return nil, err
	}
	debtToCover, err := parseAmount(msg.DebtToCover)
	if err != nil {
		return nil, err
	}

	result, err := m.Keeper.Liquidate(sdkCtx, msg.Liquidator, msg.Target, msg.Denom, debtToCover)
	if err != nil {
		return nil, err
	}

	return &types.MsgLiquidateResponse{
		LiquidationID:    result.LiquidationID,
		CollateralSeized: result.CollateralSeized.String(),
		EndFactor:        result.EndFactor.String(),
	}, nil
}
