package api

import "encoding/json"

// Envelope is the common wrapper of every backend response
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK reports whether the backend marked the response successful
func (e Envelope) OK() bool {
	return e.Success
}

// Health is the response of GET /health
type Health struct {
	Envelope
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

// AgentStatus describes one backend agent
type AgentStatus struct {
	IsRunning bool   `json:"isRunning"`
	LastRun   string `json:"lastRun,omitempty"`
}

// SystemStatus is the payload of GET /system/status
type SystemStatus struct {
	IsRunning     bool                   `json:"isRunning"`
	Agents        map[string]AgentStatus `json:"agents"`
	ActiveSignals int                    `json:"activeSignals"`
	TotalAlerts   int                    `json:"totalAlerts"`
}

// SystemStatusResponse wraps SystemStatus
type SystemStatusResponse struct {
	Envelope
	Data SystemStatus `json:"data"`
}

// CoinMarket holds the market snapshot of one coin
type CoinMarket struct {
	Price      float64         `json:"price"`
	Change     float64         `json:"change"`
	Volume     float64         `json:"volume,omitempty"`
	Sentiment  string          `json:"sentiment,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
	Analysis   json.RawMessage `json:"analysis,omitempty"`
}

// MarketStatus is the response of GET /market/status
type MarketStatus struct {
	Envelope
	Data          map[string]CoinMarket `json:"data"`
	ActiveSignals int                   `json:"activeSignals"`
}

// MarketSignal is a trading signal produced by the analysis agent
type MarketSignal struct {
	ID         string  `json:"id,omitempty"`
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	EntryPoint float64 `json:"entryPoint,omitempty"`
	StopLoss   float64 `json:"stopLoss,omitempty"`
	TakeProfit float64 `json:"takeProfit,omitempty"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Timestamp  string  `json:"timestamp,omitempty"`
}

// MarketSignals is the response of GET /market/signals
type MarketSignals struct {
	Envelope
	Signals []MarketSignal `json:"signals"`
}

// Prices is the response of GET /market/prices
type Prices struct {
	Envelope
	Data map[string]CoinMarket `json:"data"`
}

// DetailedMarket is the response of GET /market/detailed/{coin}
type DetailedMarket struct {
	Envelope
	Coin string          `json:"coin"`
	Data json.RawMessage `json:"data"`
}

// Position is an open position of the portfolio
type Position struct {
	Symbol          string          `json:"symbol"`
	Side            string          `json:"side"`
	Quantity        float64         `json:"quantity"`
	EntryPrice      float64         `json:"entryPrice"`
	CurrentPrice    float64         `json:"currentPrice"`
	StopLoss        float64         `json:"stopLoss"`
	TakeProfit      float64         `json:"takeProfit"`
	UnrealizedPnL   float64         `json:"unrealizedPnL"`
	DurationMinutes float64         `json:"durationMinutes"`
	LSTMPrediction  json.RawMessage `json:"lstmPrediction,omitempty"`
}

// RiskSnapshot holds equity and drawdown figures
type RiskSnapshot struct {
	CurrentEquity float64    `json:"currentEquity"`
	PeakEquity    float64    `json:"peakEquity"`
	Drawdown      float64    `json:"drawdown"`
	RiskLimits    RiskLimits `json:"riskLimits"`
}

// RiskLimits are the limits enforced by the backend risk manager
type RiskLimits struct {
	MaxPositionSize  float64 `json:"maxPositionSize"`
	MaxOpenPositions int     `json:"maxOpenPositions"`
	MaxDailyLoss     float64 `json:"maxDailyLoss"`
	MinConfidence    float64 `json:"minConfidence"`
}

// Portfolio is the portfolio summary
type Portfolio struct {
	Positions          []Position   `json:"positions"`
	OpenPositions      int          `json:"openPositions"`
	TotalPnL           float64      `json:"totalPnL"`
	TotalRealizedPnL   float64      `json:"totalRealizedPnL"`
	TotalUnrealizedPnL float64      `json:"totalUnrealizedPnL"`
	TotalTrades        int          `json:"totalTrades"`
	WinTrades          int          `json:"winTrades"`
	LossTrades         int          `json:"lossTrades"`
	WinRate            float64      `json:"winRate"`
	AvgWin             float64      `json:"avgWin"`
	AvgLoss            float64      `json:"avgLoss"`
	ProfitFactor       float64      `json:"profitFactor"`
	Risk               RiskSnapshot `json:"risk"`
}

// PortfolioResponse is the response of GET /trading/portfolio
type PortfolioResponse struct {
	Envelope
	Portfolio Portfolio `json:"portfolio"`
}

// Trade is a trade record
type Trade struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Amount        float64 `json:"amount"`
	Price         float64 `json:"price"`
	Status        string  `json:"status"`
	Timestamp     string  `json:"timestamp"`
	ExitPrice     float64 `json:"exitPrice,omitempty"`
	ExitTime      string  `json:"exitTime,omitempty"`
	PnL           float64 `json:"pnl,omitempty"`
	PnLPercentage float64 `json:"pnlPercentage,omitempty"`
	TxHash        string  `json:"txHash,omitempty"`
}

// HistorySummary aggregates the trade history
type HistorySummary struct {
	TotalTrades  int     `json:"totalTrades"`
	OpenTrades   int     `json:"openTrades"`
	ClosedTrades int     `json:"closedTrades"`
	TotalPnL     float64 `json:"totalPnL"`
	AvgTradeSize float64 `json:"avgTradeSize"`
}

// HistoryResponse is the response of GET /trading/history
type HistoryResponse struct {
	Envelope
	History []Trade         `json:"history"`
	Summary *HistorySummary `json:"summary,omitempty"`
}

// HistoryFilter narrows a history query. Zero fields are omitted.
type HistoryFilter struct {
	Limit  int
	Symbol string
	Side   string
	Status string
}

// BalanceResponse is the response of GET /trading/balance
type BalanceResponse struct {
	Envelope
	Balance json.RawMessage `json:"balance"`
}

// TradeResponse is the response of GET /trading/trade/{id}
type TradeResponse struct {
	Envelope
	Trade Trade `json:"trade"`
}

// TradingOverview is the overview block of the trading stats
type TradingOverview struct {
	TotalTrades     int     `json:"totalTrades"`
	OpenPositions   int     `json:"openPositions"`
	ClosedPositions int     `json:"closedPositions"`
	TotalPnL        float64 `json:"totalPnL"`
	DailyPnL        float64 `json:"dailyPnL"`
}

// TradingPerformance is the performance block of the trading stats
type TradingPerformance struct {
	WinRate       float64 `json:"winRate"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	AvgWin        float64 `json:"avgWin"`
	AvgLoss       float64 `json:"avgLoss"`
	BestTrade     float64 `json:"bestTrade"`
	WorstTrade    float64 `json:"worstTrade"`
}

// TradingStats groups overview, performance and risk figures
type TradingStats struct {
	Overview    TradingOverview    `json:"overview"`
	Performance TradingPerformance `json:"performance"`
	Risk        RiskSnapshot       `json:"risk"`
}

// TradingStatsResponse is the response of GET /trading/stats
type TradingStatsResponse struct {
	Envelope
	Stats TradingStats `json:"stats"`
}

// AnalysisResponse is the response of POST /analysis/trigger
type AnalysisResponse struct {
	Envelope
	Data json.RawMessage `json:"data,omitempty"`
}

// BlockchainCache reports the backend's pending on-chain writes
type BlockchainCache struct {
	Signals int `json:"signals"`
	Trades  int `json:"trades"`
}

// BlockchainStatus is the response of GET /blockchain/status
type BlockchainStatus struct {
	Envelope
	IsEnabled   bool            `json:"isEnabled"`
	IsConnected bool            `json:"isConnected"`
	Mode        string          `json:"mode,omitempty"`
	Network     string          `json:"network,omitempty"`
	Wallet      string          `json:"wallet,omitempty"`
	Contracts   json.RawMessage `json:"contracts,omitempty"`
	Cache       BlockchainCache `json:"cache"`
	Metrics     json.RawMessage `json:"metrics,omitempty"`
}

// Contracts lists deployed contract addresses
type Contracts struct {
	SignalStorage string `json:"signalStorage"`
	TradeExecutor string `json:"tradeExecutor"`
}

// BlockchainInfo describes the connected chain
type BlockchainInfo struct {
	IsConnected      bool      `json:"isConnected"`
	Network          string    `json:"network"`
	WalletAddress    string    `json:"walletAddress"`
	HasTradeExecutor bool      `json:"hasTradeExecutor"`
	Contracts        Contracts `json:"contracts"`
}

// BlockchainInfoResponse is the response of GET /blockchain/info
type BlockchainInfoResponse struct {
	Envelope
	Data BlockchainInfo `json:"data"`
}

// AnalyticsResponse is the response of GET /blockchain/analytics
type AnalyticsResponse struct {
	Envelope
	Data json.RawMessage `json:"data"`
}

// ChainSignal is a signal stored on chain
type ChainSignal struct {
	ID         json.Number `json:"id"`
	Coin       string      `json:"coin,omitempty"`
	Symbol     string      `json:"symbol,omitempty"`
	Action     string      `json:"action"`
	Confidence float64     `json:"confidence"`
	EntryPoint float64     `json:"entryPoint"`
	StopLoss   float64     `json:"stopLoss,omitempty"`
	TakeProfit float64     `json:"takeProfit,omitempty"`
	Executed   bool        `json:"executed"`
	Timestamp  json.Number `json:"timestamp,omitempty"`
}

// ChainSignalsResponse is the response of GET /blockchain/signals and /blockchain/my-signals
type ChainSignalsResponse struct {
	Envelope
	Data []ChainSignal `json:"data"`
}

// ChainSignalResponse is the response of GET /blockchain/signal/{id}
type ChainSignalResponse struct {
	Envelope
	Data ChainSignal `json:"data"`
}

// ChainTrade is a trade executed on chain
type ChainTrade struct {
	ID        json.Number `json:"id"`
	Symbol    string      `json:"symbol"`
	Side      string      `json:"side"`
	Amount    float64     `json:"amount"`
	Price     float64     `json:"price"`
	Status    string      `json:"status"`
	Trader    string      `json:"trader,omitempty"`
	Timestamp json.Number `json:"timestamp,omitempty"`
}

// ChainTradesResponse is the response of GET /blockchain/trades
type ChainTradesResponse struct {
	Envelope
	Data []ChainTrade `json:"data"`
}

// ChainTradeResponse is the response of GET /blockchain/trade/{id}
type ChainTradeResponse struct {
	Envelope
	Data ChainTrade `json:"data"`
}

// VolumeResponse is the response of GET /blockchain/volume
type VolumeResponse struct {
	Envelope
	Data json.RawMessage `json:"data"`
}

// SignalSubmission is the body of POST /blockchain/submit-signal
type SignalSubmission struct {
	Coin       string  `json:"coin"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	EntryPoint float64 `json:"entryPoint"`
	StopLoss   float64 `json:"stopLoss"`
	TakeProfit float64 `json:"takeProfit"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// TradeOrder is the body of POST /blockchain/execute-trade
type TradeOrder struct {
	Symbol string   `json:"symbol"`
	Side   string   `json:"side"`
	Amount float64  `json:"amount"`
	Price  *float64 `json:"price,omitempty"`
}

// TxResponse is returned by on-chain write operations
type TxResponse struct {
	Envelope
	Data json.RawMessage `json:"data,omitempty"`
}

// Proposal is a DAO governance proposal
type Proposal struct {
	ID           json.Number `json:"id"`
	SignalID     json.Number `json:"signalId"`
	Description  string      `json:"description"`
	VotesFor     json.Number `json:"votesFor"`
	VotesAgainst json.Number `json:"votesAgainst"`
	StartTime    json.Number `json:"startTime"`
	EndTime      json.Number `json:"endTime"`
	Executed     bool        `json:"executed"`
}

// ProposalResponse is the response of GET /dao/proposal/{id}
type ProposalResponse struct {
	Envelope
	Data Proposal `json:"data"`
}

// VotingPower holds the governance weight of an address
type VotingPower struct {
	Address     string      `json:"address,omitempty"`
	VotingPower json.Number `json:"votingPower"`
}

// VotingPowerResponse is the response of GET /dao/voting-power. The backend
// returns the fields next to the envelope.
type VotingPowerResponse struct {
	Envelope
	VotingPower
}

// RewardRecipient is one entry of a bulk distribution
type RewardRecipient struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
	Reason  string  `json:"reason,omitempty"`
}

// DistributionResult summarises a bulk distribution
type DistributionResult struct {
	Successful       int     `json:"successful"`
	Failed           int     `json:"failed"`
	TotalDistributed float64 `json:"totalDistributed"`
}

// DistributionResponse is the response of the reward distribution endpoints
type DistributionResponse struct {
	Envelope
	DistributionResult
}

// RewardBalance is the reward token balance of an address
type RewardBalance struct {
	Address string      `json:"address,omitempty"`
	Balance json.Number `json:"balance"`
}

// RewardBalanceResponse is the response of GET /rewards/balance
type RewardBalanceResponse struct {
	Envelope
	RewardBalance
}
