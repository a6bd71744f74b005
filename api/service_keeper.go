package api

import (
	"context"
	"math/big"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	dbm "github.com/cosmos/cosmos-db"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dusd/api/types"
	"github.com/openalpha/dusd/api/websocket"
	"github.com/openalpha/dusd/app"
	"github.com/openalpha/dusd/metrics"
	dusdkeeper "github.com/openalpha/dusd/x/dusd/keeper"
	dusdtypes "github.com/openalpha/dusd/x/dusd/types"
)

// KeeperService implements PositionService, AccountService and
// LiquidationService over a live DusdApp. Mutations run through the
// engine's message server so validation matches on-chain handling.
type KeeperService struct {
	app       *app.DusdApp
	msgServer dusdtypes.MsgServer

	// Optional websocket hub for pushing state changes
	hub *websocket.Hub
}

// NewKeeperService creates a service over an in-memory engine. Used for
// standalone serving and tests.
func NewKeeperService(logger log.Logger, genesis *app.GenesisConfig) (*KeeperService, error) {
	a, err := app.NewDusdApp(logger, dbm.NewMemDB(), genesis)
	if err != nil {
		return nil, err
	}
	return NewKeeperServiceWithApp(a), nil
}

// NewKeeperServiceWithApp wraps an existing application.
func NewKeeperServiceWithApp(a *app.DusdApp) *KeeperService {
	return &KeeperService{
		app:       a,
		msgServer: dusdkeeper.NewMsgServerImpl(a.DusdKeeper),
	}
}

// App exposes the underlying application, for wiring and tests.
func (s *KeeperService) App() *app.DusdApp {
	return s.app
}

// SetHub attaches a websocket hub for push updates.
func (s *KeeperService) SetHub(hub *websocket.Hub) {
	s.hub = hub
}

// ============ PositionService ============

// Deposit deposits collateral into the engine.
func (s *KeeperService) Deposit(ctx context.Context, req *types.DepositRequest) (*types.AccountResponse, error) {
	err := s.app.RunTx(func(sdkCtx sdk.Context) error {
		_, err := s.msgServer.DepositCollateral(sdk.WrapSDKContext(sdkCtx), &dusdtypes.MsgDepositCollateral{
			Account: req.Depositor,
			Denom:   req.Denom,
			Amount:  req.Amount,
		})
		return err
	})
	if err != nil {
		metrics.GetCollector().RecordOperationError("deposit")
		return nil, err
	}

	metrics.GetCollector().RecordDeposit(req.Denom)
	return s.accountResponse(req.Depositor)
}

// Mint mints dusd against deposited collateral.
func (s *KeeperService) Mint(ctx context.Context, req *types.MintRequest) (*types.AccountResponse, error) {
	err := s.app.RunTx(func(sdkCtx sdk.Context) error {
		_, err := s.msgServer.MintDusd(sdk.WrapSDKContext(sdkCtx), &dusdtypes.MsgMintDusd{
			Account: req.Minter,
			Amount:  req.Amount,
		})
		return err
	})
	if err != nil {
		metrics.GetCollector().RecordOperationError("mint")
		return nil, err
	}

	metrics.GetCollector().RecordMint()
	return s.accountResponse(req.Minter)
}

// Redeem withdraws collateral from the engine.
func (s *KeeperService) Redeem(ctx context.Context, req *types.RedeemRequest) (*types.AccountResponse, error) {
	err := s.app.RunTx(func(sdkCtx sdk.Context) error {
		_, err := s.msgServer.RedeemCollateral(sdk.WrapSDKContext(sdkCtx), &dusdtypes.MsgRedeemCollateral{
			Account: req.Redeemer,
			Denom:   req.Denom,
			Amount:  req.Amount,
		})
		return err
	})
	if err != nil {
		metrics.GetCollector().RecordOperationError("redeem")
		return nil, err
	}

	metrics.GetCollector().RecordRedemption(req.Denom)
	return s.accountResponse(req.Redeemer)
}

// Burn repays dusd debt.
func (s *KeeperService) Burn(ctx context.Context, req *types.BurnRequest) (*types.AccountResponse, error) {
	err := s.app.RunTx(func(sdkCtx sdk.Context) error {
		_, err := s.msgServer.BurnDusd(sdk.WrapSDKContext(sdkCtx), &dusdtypes.MsgBurnDusd{
			Account: req.Burner,
			Amount:  req.Amount,
		})
		return err
	})
	if err != nil {
		metrics.GetCollector().RecordOperationError("burn")
		return nil, err
	}

	metrics.GetCollector().RecordBurn()
	return s.accountResponse(req.Burner)
}

// DepositAndMint deposits collateral and mints dusd in one atomic step.
func (s *KeeperService) DepositAndMint(ctx context.Context, req *types.DepositAndMintRequest) (*types.AccountResponse, error) {
	err := s.app.RunTx(func(sdkCtx sdk.Context) error {
		_, err := s.msgServer.DepositCollateralAndMintDusd(sdk.WrapSDKContext(sdkCtx), &dusdtypes.MsgDepositCollateralAndMintDusd{
			Account:    req.Depositor,
			Denom:      req.Denom,
			DepositAmt: req.DepositAmount,
			MintAmt:    req.MintAmount,
		})
		return err
	})
	if err != nil {
		metrics.GetCollector().RecordOperationError("deposit_and_mint")
		return nil, err
	}

	metrics.GetCollector().RecordDeposit(req.Denom)
	metrics.GetCollector().RecordMint()
	return s.accountResponse(req.Depositor)
}

// RedeemForDusd burns dusd and withdraws collateral in one atomic step.
func (s *KeeperService) RedeemForDusd(ctx context.Context, req *types.RedeemForDusdRequest) (*types.AccountResponse, error) {
	err := s.app.RunTx(func(sdkCtx sdk.Context) error {
		_, err := s.msgServer.RedeemCollateralForDusd(sdk.WrapSDKContext(sdkCtx), &dusdtypes.MsgRedeemCollateralForDusd{
			Account:   req.Redeemer,
			Denom:     req.Denom,
			RedeemAmt: req.RedeemAmount,
			BurnAmt:   req.BurnAmount,
		})
		return err
	})
	if err != nil {
		metrics.GetCollector().RecordOperationError("redeem_for_dusd")
		return nil, err
	}

	metrics.GetCollector().RecordBurn()
	metrics.GetCollector().RecordRedemption(req.Denom)
	return s.accountResponse(req.Redeemer)
}

// ============ AccountService ============

// GetAccount returns the position view for an account.
func (s *KeeperService) GetAccount(ctx context.Context, address string) (*types.Account, error) {
	var account *types.Account
	err := s.app.RunQuery(func(sdkCtx sdk.Context) error {
		var err error
		account, err = s.buildAccount(sdkCtx, address)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetAssets returns the collateral registry with latest prices.
func (s *KeeperService) GetAssets(ctx context.Context) ([]*types.Asset, error) {
	var assets []*types.Asset
	err := s.app.RunQuery(func(sdkCtx sdk.Context) error {
		for _, a := range s.app.DusdKeeper.RegisteredAssets() {
			asset := &types.Asset{
				Denom:    a.Denom,
				FeedID:   a.FeedID,
				Decimals: a.Decimals,
			}
			if price, err := s.app.OracleKeeper.LatestPrice(sdkCtx, a.FeedID); err == nil {
				asset.PriceUsd = price.Price.String()
			}
			assets = append(assets, asset)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assets, nil
}

// GetBacking returns the system-wide solvency report.
func (s *KeeperService) GetBacking(ctx context.Context) (*types.BackingReport, error) {
	var report *types.BackingReport
	err := s.app.RunQuery(func(sdkCtx sdk.Context) error {
		backing, err := s.app.DusdKeeper.CheckTotalSupplyBacked(sdkCtx)
		if err != nil {
			return err
		}
		report = &types.BackingReport{
			DusdSupply:         backing.TotalSupply.String(),
			CollateralValueUsd: backing.TotalCollateralValue.String(),
			Backed:             backing.Backed,
			Timestamp:          types.NowMillis(),
		}

		metrics.GetCollector().UpdateProtocolSolvency(
			usdFloat(backing.TotalSupply), usdFloat(backing.TotalCollateralValue))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastBacking(&websocket.BackingMessage{
			DusdSupply:         report.DusdSupply,
			CollateralValueUsd: report.CollateralValueUsd,
			Backed:             report.Backed,
			Timestamp:          report.Timestamp,
		})
	}
	return report, nil
}

// ============ LiquidationService ============

// Liquidate executes a liquidation against an unsafe account.
func (s *KeeperService) Liquidate(ctx context.Context, req *types.LiquidateRequest) (*types.LiquidateResponse, error) {
	var record *dusdtypes.Liquidation
	err := s.app.RunTx(func(sdkCtx sdk.Context) error {
		resp, err := s.msgServer.Liquidate(sdk.WrapSDKContext(sdkCtx), &dusdtypes.MsgLiquidate{
			Liquidator:  req.Liquidator,
			Target:      req.Target,
			Denom:       req.Denom,
			DebtToCover: req.DebtToCover,
		})
		if err != nil {
			return err
		}
		record, err = s.app.DusdKeeper.GetLiquidation(sdkCtx, resp.LiquidationID)
		return err
	})
	if err != nil {
		metrics.GetCollector().RecordOperationError("liquidate")
		return nil, err
	}

	liq := liquidationView(record)
	metrics.GetCollector().RecordLiquidation(liq.Denom,
		usdFloat(record.DebtCovered), usdFloat(record.CollateralBonus))

	if s.hub != nil {
		s.hub.BroadcastLiquidation(&websocket.LiquidationMessage{
			ID:          liq.ID,
			Liquidator:  liq.Liquidator,
			Target:      liq.Target,
			Denom:       liq.Denom,
			DebtCovered: liq.DebtCovered,
			TotalSeized: liq.TotalSeized,
			Timestamp:   liq.ExecutedAt,
		})
	}

	target, err := s.GetAccount(ctx, req.Target)
	if err != nil {
		return nil, err
	}
	return &types.LiquidateResponse{Liquidation: liq, Target: target}, nil
}

// GetLiquidations returns all executed liquidations.
func (s *KeeperService) GetLiquidations(ctx context.Context) ([]*types.Liquidation, error) {
	var out []*types.Liquidation
	err := s.app.RunQuery(func(sdkCtx sdk.Context) error {
		for _, record := range s.app.DusdKeeper.GetAllLiquidations(sdkCtx) {
			out = append(out, liquidationView(record))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetUnsafeAccounts returns all accounts below the minimum health factor.
func (s *KeeperService) GetUnsafeAccounts(ctx context.Context) ([]*types.UnsafeAccount, error) {
	var out []*types.UnsafeAccount
	err := s.app.RunQuery(func(sdkCtx sdk.Context) error {
		accounts, err := s.app.DusdKeeper.GetUnsafeAccounts(sdkCtx)
		if err != nil {
			return err
		}
		for _, address := range accounts {
			factor, err := s.app.DusdKeeper.HealthFactor(sdkCtx, address)
			if err != nil {
				return err
			}
			out = append(out, &types.UnsafeAccount{
				Address:      address,
				HealthFactor: factor.String(),
				DebtDusd:     s.app.DusdKeeper.GetDebt(sdkCtx, address).String(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ============ Helpers ============

// accountResponse rebuilds the account view after a mutation and pushes
// health updates out to metrics and the websocket hub.
func (s *KeeperService) accountResponse(address string) (*types.AccountResponse, error) {
	var account *types.Account
	err := s.app.RunQuery(func(sdkCtx sdk.Context) error {
		var err error
		account, err = s.buildAccount(sdkCtx, address)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		unsafe := false
		if factor, ok := math.NewIntFromString(account.HealthFactor); ok {
			unsafe = factor.LT(dusdtypes.MinHealthFactor) && account.DebtDusd != "0"
		}
		s.hub.UpdateHealth(address, &websocket.HealthMessage{
			Account:            address,
			HealthFactor:       account.HealthFactor,
			CollateralValueUsd: account.CollateralValueUsd,
			DebtDusd:           account.DebtDusd,
			Unsafe:             unsafe,
			Timestamp:          account.UpdatedAt,
		})
	}

	return &types.AccountResponse{Account: account}, nil
}

// buildAccount assembles the API account view from keeper state.
func (s *KeeperService) buildAccount(sdkCtx sdk.Context, address string) (*types.Account, error) {
	summary, err := s.app.DusdKeeper.GetAccountSummary(sdkCtx, address)
	if err != nil {
		return nil, err
	}

	collateral := make([]types.CollateralBalance, 0, len(summary.Collateral))
	for _, balance := range summary.Collateral {
		value, err := s.app.DusdKeeper.UsdValue(sdkCtx, balance.Denom, balance.Amount)
		if err != nil {
			return nil, err
		}
		collateral = append(collateral, types.CollateralBalance{
			Denom:    balance.Denom,
			Amount:   balance.Amount.String(),
			UsdValue: value.String(),
		})
	}

	metrics.GetCollector().UpdateAccountSolvency(address,
		factorFloat(summary.HealthFactor),
		usdFloat(summary.CollateralValueUsd),
		usdFloat(summary.Debt))

	return &types.Account{
		Address:            address,
		Collateral:         collateral,
		CollateralValueUsd: summary.CollateralValueUsd.String(),
		DebtDusd:           summary.Debt.String(),
		HealthFactor:       summary.HealthFactor.String(),
		UpdatedAt:          types.NowMillis(),
	}, nil
}

// liquidationView converts a stored liquidation record to its API shape.
func liquidationView(record *dusdtypes.Liquidation) *types.Liquidation {
	return &types.Liquidation{
		ID:          record.LiquidationID,
		Liquidator:  record.Liquidator,
		Target:      record.Target,
		Denom:       record.CollateralDenom,
		DebtCovered: record.DebtCovered.String(),
		BaseSeized:  record.CollateralBase.String(),
		BonusSeized: record.CollateralBonus.String(),
		TotalSeized: record.TotalSeized().String(),
		StartFactor: record.StartFactor.String(),
		EndFactor:   record.EndFactor.String(),
		Status:      record.Status.String(),
		ExecutedAt:  record.ExecutedAt.UnixMilli(),
	}
}

// usdFloat approximates an 18-decimal fixed point value for metrics.
func usdFloat(v math.Int) float64 {
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(v.BigInt()),
		big.NewFloat(1e18),
	).Float64()
	return f
}

// priceFloat approximates an oracle price at its feed scale for metrics.
func priceFloat(price math.Int, decimals uint8) float64 {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(price.BigInt()), scale).Float64()
	return f
}

// factorFloat approximates a health factor for metrics, capping the
// no-debt sentinel at a readable ceiling.
func factorFloat(v math.Int) float64 {
	if v.Equal(dusdtypes.MaxHealthFactor) {
		return 1e9
	}
	return usdFloat(v)
}
