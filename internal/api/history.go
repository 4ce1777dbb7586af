package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/synthetics-engine/internal/history"
	"github.com/atmx/synthetics-engine/internal/model"
)

// maxPage bounds how deep a single request may page.
const maxPage = 49

// ClaimsResponse is the JSON body of GET /accounts/{account}/claims.
type ClaimsResponse struct {
	Account string              `json:"account"`
	Pages   int                 `json:"pages"`
	HasMore bool                `json:"has_more"`
	Actions []model.ClaimAction `json:"actions"`
}

// TradesResponse is the JSON body of GET /accounts/{account}/trades.
type TradesResponse struct {
	Account string             `json:"account"`
	Pages   int                `json:"pages"`
	HasMore bool               `json:"has_more"`
	Rows    []history.TradeRow `json:"rows"`
}

// GetClaims handles GET /api/v1/accounts/{account}/claims
// Query: page, page_size, from, to, event_name (repeated), market (repeated).
func (s *Service) GetClaims(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		writeError(w, "history is not available on this chain", http.StatusServiceUnavailable)
		return
	}
	page, filters, err := parseHistoryQuery(r.URL.Query())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	account := chi.URLParam(r, "account")
	h, err := history.NewClaimHistory(s.chainID, account, s.indexer, s.claims, filters)
	if err != nil {
		writeError(w, "invalid account address", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := h.LoadPages(ctx, page+1); err != nil {
		slog.Error("load claim history failed", "account", account, "err", err)
		writeError(w, "indexer query failed", http.StatusBadGateway)
		return
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		slog.Error("load snapshot failed", "err", err)
		writeError(w, "failed to load reference data", http.StatusInternalServerError)
		return
	}

	actions := h.Actions(snap)
	if actions == nil {
		actions = []model.ClaimAction{}
	}
	writeJSON(w, http.StatusOK, ClaimsResponse{
		Account: model.NormalizeAddress(account),
		Pages:   h.PageIndex(),
		HasMore: h.HasMore(),
		Actions: actions,
	})
}

// GetTrades handles GET /api/v1/accounts/{account}/trades
// Query: as for claims, plus order_type (repeated).
func (s *Service) GetTrades(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		writeError(w, "history is not available on this chain", http.StatusServiceUnavailable)
		return
	}
	page, filters, err := parseHistoryQuery(r.URL.Query())
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	account := chi.URLParam(r, "account")
	h, err := history.NewTradeHistory(s.chainID, account, s.indexer, s.trades, filters)
	if err != nil {
		writeError(w, "invalid account address", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := h.LoadPages(ctx, page+1); err != nil {
		slog.Error("load trade history failed", "account", account, "err", err)
		writeError(w, "indexer query failed", http.StatusBadGateway)
		return
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		slog.Error("load snapshot failed", "err", err)
		writeError(w, "failed to load reference data", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, TradesResponse{
		Account: model.NormalizeAddress(account),
		Pages:   h.PageIndex(),
		HasMore: h.HasMore(),
		Rows:    h.Rows(snap, s.explorerURL, s.limits),
	})
}

func parseHistoryQuery(q url.Values) (int, history.Filters, error) {
	var f history.Filters
	page, err := queryInt(q, "page", 0)
	if err != nil || page < 0 || page > maxPage {
		return 0, f, errors.New("page must be between 0 and " + strconv.Itoa(maxPage))
	}
	if f.PageSize, err = queryInt(q, "page_size", history.DefaultPageSize); err != nil || f.PageSize <= 0 || f.PageSize > 1000 {
		return 0, f, errors.New("page_size must be between 1 and 1000")
	}
	from, err := queryInt(q, "from", 0)
	if err != nil || from < 0 {
		return 0, f, errors.New("invalid from timestamp")
	}
	to, err := queryInt(q, "to", 0)
	if err != nil || to < 0 {
		return 0, f, errors.New("invalid to timestamp")
	}
	f.FromTimestamp, f.ToTimestamp = int64(from), int64(to)

	f.EventNames = q["event_name"]
	for _, m := range q["market"] {
		if !model.IsAddress(m) {
			return 0, f, errors.New("invalid market address: " + m)
		}
		f.MarketAddresses = append(f.MarketAddresses, m)
	}
	for _, raw := range q["order_type"] {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, f, errors.New("invalid order_type: " + raw)
		}
		if _, err := model.ParseOrderType(v); err != nil {
			return 0, f, err
		}
		f.OrderTypes = append(f.OrderTypes, v)
	}
	return page, f, nil
}

func queryInt(q url.Values, key string, def int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
