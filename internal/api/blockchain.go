package api

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// DefaultSignalLimit is the page size used when Signals gets no limit
const DefaultSignalLimit = 10

// BlockchainAPI wraps /blockchain. Only Info is cached, the rest reads live chain state.
type BlockchainAPI struct{ base }

// Status returns connection and pending-write state
func (b *BlockchainAPI) Status(ctx context.Context) (*BlockchainStatus, error) {
	var out BlockchainStatus
	if err := b.client.FetchJSON(ctx, "/blockchain/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Info returns network and contract details, cached under "blockchain-info"
func (b *BlockchainAPI) Info(ctx context.Context) (*BlockchainInfoResponse, error) {
	var out BlockchainInfoResponse
	if err := b.client.GetJSON(ctx, "blockchain-info", "/blockchain/info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analytics returns on-chain aggregates
func (b *BlockchainAPI) Analytics(ctx context.Context) (*AnalyticsResponse, error) {
	var out AnalyticsResponse
	if err := b.client.FetchJSON(ctx, "/blockchain/analytics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetryCache asks the backend to resubmit writes that failed to reach the chain
func (b *BlockchainAPI) RetryCache(ctx context.Context) (*TxResponse, error) {
	var out TxResponse
	if err := b.client.PostJSON(ctx, "/blockchain/retry-cache", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitSignal stores a signal on chain
func (b *BlockchainAPI) SubmitSignal(ctx context.Context, s SignalSubmission) (*TxResponse, error) {
	s.Coin = strings.TrimSpace(s.Coin)
	if s.Coin == "" {
		return nil, invalid("coin is required")
	}
	if s.Action == "" {
		return nil, invalid("action is required")
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		return nil, invalid("confidence must be between 0 and 100")
	}
	if s.EntryPoint <= 0 {
		return nil, invalid("entryPoint must be positive")
	}

	var out TxResponse
	if err := b.write(ctx, "/blockchain/submit-signal", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signals returns the latest on-chain signals
func (b *BlockchainAPI) Signals(ctx context.Context, limit int) (*ChainSignalsResponse, error) {
	if limit <= 0 {
		limit = DefaultSignalLimit
	}
	var out ChainSignalsResponse
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := b.client.FetchJSON(ctx, "/blockchain/signals", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MySignals returns the signals submitted by the backend wallet
func (b *BlockchainAPI) MySignals(ctx context.Context) (*ChainSignalsResponse, error) {
	var out ChainSignalsResponse
	if err := b.client.FetchJSON(ctx, "/blockchain/my-signals", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signal returns one on-chain signal
func (b *BlockchainAPI) Signal(ctx context.Context, id string) (*ChainSignalResponse, error) {
	esc, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	var out ChainSignalResponse
	if err := b.client.FetchJSON(ctx, "/blockchain/signal/"+esc, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecuteTrade executes a trade through the trade executor contract
func (b *BlockchainAPI) ExecuteTrade(ctx context.Context, order TradeOrder) (*TxResponse, error) {
	order.Symbol = strings.TrimSpace(order.Symbol)
	if order.Symbol == "" {
		return nil, invalid("symbol is required")
	}
	if order.Side != "buy" && order.Side != "sell" {
		return nil, invalid("side must be buy or sell")
	}
	if order.Amount <= 0 {
		return nil, invalid("amount must be positive")
	}
	if order.Price != nil && *order.Price <= 0 {
		return nil, invalid("price must be positive")
	}

	var out TxResponse
	if err := b.write(ctx, "/blockchain/execute-trade", order, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trades returns on-chain trades, optionally only those of address
func (b *BlockchainAPI) Trades(ctx context.Context, address string) (*ChainTradesResponse, error) {
	var q url.Values
	if address = strings.TrimSpace(address); address != "" {
		q = url.Values{"address": {address}}
	}
	var out ChainTradesResponse
	if err := b.client.FetchJSON(ctx, "/blockchain/trades", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Trade returns one on-chain trade
func (b *BlockchainAPI) Trade(ctx context.Context, id string) (*ChainTradeResponse, error) {
	esc, err := requireID("id", id)
	if err != nil {
		return nil, err
	}
	var out ChainTradeResponse
	if err := b.client.FetchJSON(ctx, "/blockchain/trade/"+esc, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Volume returns the traded volume of address, or of the backend wallet when empty
func (b *BlockchainAPI) Volume(ctx context.Context, address string) (*VolumeResponse, error) {
	var out VolumeResponse
	if err := b.client.FetchJSON(ctx, withOptional("/blockchain/volume", address), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
