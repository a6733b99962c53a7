package api

import (
	"context"
	"net/url"
	"strings"
)

// DefaultCoins are queried when Prices is called without coins
var DefaultCoins = []string{"bitcoin", "ethereum"}

// MarketAPI wraps /market
type MarketAPI struct{ base }

// Status returns per-coin market data, cached under "market-status"
func (m *MarketAPI) Status(ctx context.Context) (*MarketStatus, error) {
	var out MarketStatus
	if err := m.client.GetJSON(ctx, "market-status", "/market/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signals returns the active trading signals, cached under "market-signals"
func (m *MarketAPI) Signals(ctx context.Context) (*MarketSignals, error) {
	var out MarketSignals
	if err := m.client.GetJSON(ctx, "market-signals", "/market/signals", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Prices returns current prices of coins, cached under "prices-<coins>"
func (m *MarketAPI) Prices(ctx context.Context, coins ...string) (*Prices, error) {
	if len(coins) == 0 {
		coins = DefaultCoins
	}
	joined := strings.Join(coins, ",")

	var out Prices
	err := m.client.GetJSON(ctx, "prices-"+joined, "/market/prices", url.Values{"coins": {joined}}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Detailed returns the full analysis of one coin, cached under "detailed-<coin>"
func (m *MarketAPI) Detailed(ctx context.Context, coin string) (*DetailedMarket, error) {
	id, err := requireID("coin", coin)
	if err != nil {
		return nil, err
	}
	var out DetailedMarket
	if err := m.client.GetJSON(ctx, "detailed-"+id, "/market/detailed/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
