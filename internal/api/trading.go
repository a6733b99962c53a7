package api

import (
	"context"
	"net/url"
	"strconv"

	"somniadash/internal/cache"
)

// TradingAPI wraps /trading
type TradingAPI struct{ base }

// Portfolio returns open positions and totals, cached under "portfolio"
func (t *TradingAPI) Portfolio(ctx context.Context) (*PortfolioResponse, error) {
	var out PortfolioResponse
	if err := t.client.GetJSON(ctx, "portfolio", "/trading/portfolio", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query encodes the filter in the order the backend documents
func (f HistoryFilter) Query() url.Values {
	q := url.Values{}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Symbol != "" {
		q.Set("symbol", f.Symbol)
	}
	if f.Side != "" {
		q.Set("side", f.Side)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	return q
}

// History returns past trades. Each distinct filter has its own cache entry.
func (t *TradingAPI) History(ctx context.Context, filter HistoryFilter) (*HistoryResponse, error) {
	if filter.Side != "" && filter.Side != "buy" && filter.Side != "sell" {
		return nil, invalid("side must be buy or sell")
	}
	q := filter.Query()

	var out HistoryResponse
	if err := t.client.GetJSON(ctx, cache.QueryKey("history", q), "/trading/history", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balance returns the exchange balance, cached under "balance"
func (t *TradingAPI) Balance(ctx context.Context) (*BalanceResponse, error) {
	var out BalanceResponse
	if err := t.client.GetJSON(ctx, "balance", "/trading/balance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trade returns one order, cached under "trade-<id>"
func (t *TradingAPI) Trade(ctx context.Context, orderID string) (*TradeResponse, error) {
	id, err := requireID("orderId", orderID)
	if err != nil {
		return nil, err
	}
	var out TradeResponse
	if err := t.client.GetJSON(ctx, "trade-"+id, "/trading/trade/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats returns performance and risk figures, cached under "trading-stats"
func (t *TradingAPI) Stats(ctx context.Context) (*TradingStatsResponse, error) {
	var out TradingStatsResponse
	if err := t.client.GetJSON(ctx, "trading-stats", "/trading/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
