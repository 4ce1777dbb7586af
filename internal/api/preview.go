package api

import (
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/google/uuid"

	"github.com/atmx/synthetics-engine/internal/increase"
	"github.com/atmx/synthetics-engine/internal/metrics"
	"github.com/atmx/synthetics-engine/internal/model"
	"github.com/atmx/synthetics-engine/internal/swap"
)

// PreviewRequest is the JSON body for POST /positions/increase/preview.
// Exactly one of InitialCollateralAmount and IndexTokenAmount is set.
// Leverage, AllowedSlippage and AcceptablePriceImpactBps are in basis
// points.
type PreviewRequest struct {
	MarketAddress          string `json:"market_address"`
	InitialCollateralToken string `json:"initial_collateral_token"`
	CollateralToken        string `json:"collateral_token"`
	IsLong                 bool   `json:"is_long"`

	InitialCollateralAmount *big.Int `json:"initial_collateral_amount,omitempty"`
	IndexTokenAmount        *big.Int `json:"index_token_amount,omitempty"`

	Leverage                 *big.Int `json:"leverage"`
	IsLimit                  bool     `json:"is_limit"`
	TriggerPrice             *big.Int `json:"trigger_price,omitempty"`
	AllowedSlippage          int64    `json:"allowed_slippage"`
	AcceptablePriceImpactBps *big.Int `json:"acceptable_price_impact_bps,omitempty"`

	ExistingPosition  *model.PositionInfo `json:"existing_position,omitempty"`
	ShowPnlInLeverage bool                `json:"show_pnl_in_leverage"`
}

// PreviewResponse is the JSON body returned from a preview. Amounts is
// null while the index token price is not loaded.
type PreviewResponse struct {
	PreviewID string                             `json:"preview_id"`
	Mode      string                             `json:"mode"`
	Amounts   *model.IncreasePositionTradeParams `json:"amounts"`
}

// PreviewIncrease handles POST /api/v1/positions/increase/preview
func (s *Service) PreviewIncrease(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var amount increase.AmountInput
	switch {
	case req.InitialCollateralAmount != nil && req.IndexTokenAmount != nil:
		writeError(w, "set only one of initial_collateral_amount and index_token_amount", http.StatusBadRequest)
		return
	case req.InitialCollateralAmount != nil:
		amount = increase.ByCollateralAmount{InitialCollateralAmount: req.InitialCollateralAmount}
	case req.IndexTokenAmount != nil:
		amount = increase.ByIndexAmount{IndexTokenAmount: req.IndexTokenAmount}
	default:
		writeError(w, "initial_collateral_amount or index_token_amount is required", http.StatusBadRequest)
		return
	}
	if req.Leverage == nil || req.Leverage.Sign() <= 0 {
		writeError(w, "leverage must be positive", http.StatusBadRequest)
		return
	}
	if req.AllowedSlippage < 0 || req.AllowedSlippage >= 10000 {
		writeError(w, "allowed_slippage must be between 0 and 9999", http.StatusBadRequest)
		return
	}

	snap, err := s.snapshot(r.Context())
	if err != nil {
		slog.Error("load snapshot failed", "err", err)
		writeError(w, "failed to load reference data", http.StatusInternalServerError)
		return
	}

	market, ok := snap.Market(req.MarketAddress)
	if !ok {
		writeError(w, "market not found: "+req.MarketAddress, http.StatusNotFound)
		return
	}
	initial, ok := snap.Token(req.InitialCollateralToken)
	if !ok {
		writeError(w, "token not found: "+req.InitialCollateralToken, http.StatusNotFound)
		return
	}
	collateral, ok := snap.Token(req.CollateralToken)
	if !ok {
		writeError(w, "token not found: "+req.CollateralToken, http.StatusNotFound)
		return
	}
	if collateral.Address != market.LongTokenAddress && collateral.Address != market.ShortTokenAddress {
		writeError(w, "collateral token is not a collateral of the market", http.StatusBadRequest)
		return
	}

	params := increase.TradeParamsInput{
		Params: increase.Params{
			Market:                   market,
			InitialCollateralToken:   initial,
			CollateralToken:          collateral,
			IndexToken:               market.IndexToken,
			Amount:                   amount,
			IsLong:                   req.IsLong,
			Leverage:                 req.Leverage,
			TriggerPrice:             req.TriggerPrice,
			IsLimit:                  req.IsLimit,
			AllowedSlippage:          req.AllowedSlippage,
			AcceptablePriceImpactBps: req.AcceptablePriceImpactBps,
			FindSwapPath:             swap.DirectPathFinder(snap, initial.Address, collateral.Address),
		},
		ExistingPosition:  req.ExistingPosition,
		ShowPnlInLeverage: req.ShowPnlInLeverage,
	}

	mode := increase.Mode(amount)
	resp := PreviewResponse{
		PreviewID: uuid.New().String(),
		Mode:      mode,
		Amounts:   increase.ComputeTradeParams(params),
	}

	outcome := "ok"
	switch {
	case resp.Amounts == nil:
		outcome = "loading"
	case resp.Amounts.SizeDeltaUsd == nil || resp.Amounts.SizeDeltaUsd.Sign() == 0:
		outcome = "empty"
	}
	metrics.IncreasePreviews.WithLabelValues(mode, outcome).Inc()

	slog.Debug("increase preview",
		"preview_id", resp.PreviewID,
		"market", market.Name,
		"mode", mode,
		"is_long", req.IsLong,
		"outcome", outcome,
	)
	writeJSON(w, http.StatusOK, resp)
}
