package increase

import (
	"math/big"

	"github.com/atmx/synthetics-engine/internal/fixedpoint"
	"github.com/atmx/synthetics-engine/internal/model"
)

// NextPositionParams are the inputs of ComputeNextPositionValues. Leverage,
// IsLong and MaxLeverage only feed the liquidation price, which is not
// projected yet.
type NextPositionParams struct {
	Market             *model.MarketInfo
	ExistingPosition   *model.PositionInfo
	SizeDeltaUsd       *big.Int
	CollateralDeltaUsd *big.Int
	ShowPnlInLeverage  bool
	Leverage           *big.Int
	EntryMarkPrice     *big.Int
	IsLong             bool
	MaxLeverage        *big.Int
}

// ComputeNextPositionValues projects the position after the order settles.
// Size and collateral add to the existing position. Leverage follows
// size / (collateral + pnl - pending fees). The liquidation price is not
// projected and is always nil.
func ComputeNextPositionValues(p NextPositionParams) model.NextPositionValues {
	sizeDelta := fixedpoint.OrZero(p.SizeDeltaUsd)
	collateralDelta := fixedpoint.OrZero(p.CollateralDeltaUsd)

	nextSize := new(big.Int).Set(sizeDelta)
	nextCollateral := new(big.Int).Set(collateralDelta)

	var pnl, borrowing, funding *big.Int
	if pos := p.ExistingPosition; pos != nil {
		if pos.SizeInUsd != nil {
			nextSize.Add(nextSize, pos.SizeInUsd)
		}
		if pos.InitialCollateralUsd != nil {
			nextCollateral.Add(nextCollateral, pos.InitialCollateralUsd)
		}
		if p.ShowPnlInLeverage {
			pnl = pos.Pnl
		}
		borrowing = pos.PendingBorrowingFeesUsd
		funding = pos.PendingFundingFeesUsd
	}

	return model.NextPositionValues{
		NextSizeUsd:       nextSize,
		NextCollateralUsd: nextCollateral,
		NextLeverage:      Leverage(nextSize, nextCollateral, pnl, borrowing, funding),
		NextLiqPrice:      nil,
		NextEntryPrice:    fixedpoint.Copy(p.EntryMarkPrice),
	}
}

// Leverage returns size / remaining collateral in basis points, where the
// remaining collateral is collateral + pnl - pending borrowing and funding
// fees. Returns nil when nothing remains.
func Leverage(sizeUsd, collateralUsd, pnl, pendingBorrowingFeesUsd, pendingFundingFeesUsd *big.Int) *big.Int {
	if sizeUsd == nil || collateralUsd == nil {
		return nil
	}
	remaining := new(big.Int).Set(collateralUsd)
	if pnl != nil {
		remaining.Add(remaining, pnl)
	}
	if pendingBorrowingFeesUsd != nil {
		remaining.Sub(remaining, pendingBorrowingFeesUsd)
	}
	if pendingFundingFeesUsd != nil {
		remaining.Sub(remaining, pendingFundingFeesUsd)
	}
	if remaining.Sign() <= 0 {
		return nil
	}
	return fixedpoint.MulDiv(sizeUsd, fixedpoint.BPS(), remaining)
}
