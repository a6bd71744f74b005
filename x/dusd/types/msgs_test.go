package types

import (
	"testing"

	cdctypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

func TestRegisterInterfaces(t *testing.T) {
	registry := cdctypes.NewInterfaceRegistry()
	RegisterInterfaces(registry)

	urls := []string{
		"/openalpha.dusd.v1.MsgDepositCollateral",
		"/openalpha.dusd.v1.MsgMintDusd",
		"/openalpha.dusd.v1.MsgRedeemCollateral",
		"/openalpha.dusd.v1.MsgBurnDusd",
		"/openalpha.dusd.v1.MsgDepositCollateralAndMintDusd",
		"/openalpha.dusd.v1.MsgRedeemCollateralForDusd",
		"/openalpha.dusd.v1.MsgLiquidate",
	}
	for _, url := range urls {
		msg, err := registry.Resolve(url)
		if err != nil {
			t.Errorf("resolve %s: %v", url, err)
			continue
		}
		if _, ok := msg.(sdk.Msg); !ok {
			t.Errorf("%s does not resolve to an sdk.Msg", url)
		}
	}
}
