package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"somniadash/internal/api"
	"somniadash/internal/config"
)

// View names
const (
	ViewOverview       = "overview"
	ViewAgents         = "agents"
	ViewPortfolio      = "portfolio"
	ViewTrading        = "trading"
	ViewHistory        = "history"
	ViewBlockchain     = "blockchain"
	ViewBlockchainInfo = "blockchain-info"
	ViewDAO            = "dao"
	ViewRewards        = "rewards"
)

const (
	recentTradesLimit = 5
	blockchainSignals = 20
	daoSignals        = 50

	// Signals inside [voteMinConfidence, voteMaxConfidence) are put to a DAO vote
	voteMinConfidence = 60
	voteMaxConfidence = 75
)

// knownAgents lists the backend agents in display order
var knownAgents = []struct{ Key, Name string }{
	{"market", "Market Agent"},
	{"analysis", "Analysis Agent"},
	{"trading", "Trading Agent"},
	{"news", "News Agent"},
	{"risk", "Risk Manager"},
}

// ErrBackendFailure is returned when a response has success=false
var ErrBackendFailure = errors.New("backend reported failure")

// Overview is the landing view. Parts that failed to load are nil and listed in Failed.
type Overview struct {
	Market       *api.MarketStatus     `json:"market"`
	System       *api.SystemStatus     `json:"system"`
	Portfolio    *api.Portfolio        `json:"portfolio"`
	RecentTrades []api.Trade           `json:"recentTrades"`
	Blockchain   *api.BlockchainStatus `json:"blockchain"`
	Failed       []string              `json:"failed,omitempty"`
	Display      map[string]string     `json:"display"`
}

// AgentRow is one line of the agents view
type AgentRow struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

// Agents is the agents view
type Agents struct {
	Running       bool       `json:"running"`
	Agents        []AgentRow `json:"agents"`
	ActiveSignals int        `json:"activeSignals"`
	TotalAlerts   int        `json:"totalAlerts"`
}

// PortfolioView is the portfolio view
type PortfolioView struct {
	api.Portfolio
	Display map[string]string `json:"display"`
}

// TradingView is the trading statistics view
type TradingView struct {
	api.TradingStats
	Display map[string]string `json:"display"`
}

// HistoryView is the trade history view
type HistoryView struct {
	Trades  []api.Trade         `json:"trades"`
	Summary *api.HistorySummary `json:"summary"`
}

// BlockchainView is the on-chain activity view
type BlockchainView struct {
	Status    *api.BlockchainStatus  `json:"status"`
	Analytics *api.AnalyticsResponse `json:"analytics"`
	Signals   []api.ChainSignal      `json:"signals"`
	Trades    []api.ChainTrade       `json:"trades"`
}

// BlockchainInfoView is the chain connection panel
type BlockchainInfoView struct {
	api.BlockchainInfo
	ShortWallet string `json:"shortWallet"`
}

// DAOView is the governance view
type DAOView struct {
	VotingPower api.VotingPower   `json:"votingPower"`
	Signals     []api.ChainSignal `json:"signals"`
}

// RewardsView is the reward balance view
type RewardsView struct {
	api.RewardBalance
	ShortAddress string `json:"shortAddress,omitempty"`
}

// NewFromConfig builds a dashboard with the built-in views, honouring the
// per-view intervals and enabled flags of cfg
func NewFromConfig(cfg *config.Config, a *api.API, logger zerolog.Logger) (*Dashboard, error) {
	views := BuildViews(a, cfg.Wallet)
	for i := range views {
		vc := cfg.View(views[i].Name)
		views[i].Interval = vc.GetIntervalDuration()
		views[i].Disabled = !vc.IsEnabled()
	}
	return New(views, logger)
}

// BuildViews returns the built-in views with their default intervals.
// wallet selects the address of the rewards view, empty means the backend wallet.
func BuildViews(a *api.API, wallet string) []View {
	view := func(name string) View {
		return View{Name: name, Interval: time.Duration(config.DefaultViewIntervals[name]) * time.Millisecond}
	}

	views := []View{
		view(ViewOverview),
		view(ViewAgents),
		view(ViewPortfolio),
		view(ViewTrading),
		view(ViewHistory),
		view(ViewBlockchain),
		view(ViewBlockchainInfo),
		view(ViewDAO),
		view(ViewRewards),
	}

	fetchers := map[string]FetchFunc{
		ViewOverview:       func(ctx context.Context) (any, error) { return fetchOverview(ctx, a) },
		ViewAgents:         func(ctx context.Context) (any, error) { return fetchAgents(ctx, a) },
		ViewPortfolio:      func(ctx context.Context) (any, error) { return fetchPortfolio(ctx, a) },
		ViewTrading:        func(ctx context.Context) (any, error) { return fetchTrading(ctx, a) },
		ViewHistory:        func(ctx context.Context) (any, error) { return fetchHistory(ctx, a) },
		ViewBlockchain:     func(ctx context.Context) (any, error) { return fetchBlockchain(ctx, a) },
		ViewBlockchainInfo: func(ctx context.Context) (any, error) { return fetchBlockchainInfo(ctx, a) },
		ViewDAO:            func(ctx context.Context) (any, error) { return fetchDAO(ctx, a) },
		ViewRewards:        func(ctx context.Context) (any, error) { return fetchRewards(ctx, a, wallet) },
	}
	for i := range views {
		views[i].Fetch = fetchers[views[i].Name]
	}
	return views
}

func ensureOK(what string, env api.Envelope) error {
	if env.OK() {
		return nil
	}
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	if msg == "" {
		return fmt.Errorf("%s: %w", what, ErrBackendFailure)
	}
	return fmt.Errorf("%s: %w: %s", what, ErrBackendFailure, msg)
}

// fetchOverview loads five independent parts in parallel. It only fails when every part fails.
func fetchOverview(ctx context.Context, a *api.API) (*Overview, error) {
	var (
		out  Overview
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	part := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				out.Failed = append(out.Failed, name)
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		}()
	}

	part("market", func() error {
		resp, err := a.Market.Status(ctx)
		if err == nil {
			err = ensureOK("market status", resp.Envelope)
		}
		if err != nil {
			return err
		}
		mu.Lock()
		out.Market = resp
		mu.Unlock()
		return nil
	})
	part("system", func() error {
		resp, err := a.System.Status(ctx)
		if err == nil {
			err = ensureOK("system status", resp.Envelope)
		}
		if err != nil {
			return err
		}
		mu.Lock()
		out.System = &resp.Data
		mu.Unlock()
		return nil
	})
	part("portfolio", func() error {
		resp, err := a.Trading.Portfolio(ctx)
		if err == nil {
			err = ensureOK("portfolio", resp.Envelope)
		}
		if err != nil {
			return err
		}
		mu.Lock()
		out.Portfolio = &resp.Portfolio
		mu.Unlock()
		return nil
	})
	part("history", func() error {
		resp, err := a.Trading.History(ctx, api.HistoryFilter{})
		if err == nil {
			err = ensureOK("history", resp.Envelope)
		}
		if err != nil {
			return err
		}
		trades := resp.History
		if len(trades) > recentTradesLimit {
			trades = trades[:recentTradesLimit]
		}
		mu.Lock()
		out.RecentTrades = trades
		mu.Unlock()
		return nil
	})
	part("blockchain", func() error {
		resp, err := a.Blockchain.Status(ctx)
		if err == nil {
			err = ensureOK("blockchain status", resp.Envelope)
		}
		if err != nil {
			return err
		}
		mu.Lock()
		out.Blockchain = resp
		mu.Unlock()
		return nil
	})

	wg.Wait()

	if len(errs) == 5 {
		return nil, errors.Join(errs...)
	}
	sort.Strings(out.Failed)

	out.Display = map[string]string{}
	if out.Portfolio != nil {
		out.Display["totalPnL"] = FormatSignedCurrency(out.Portfolio.TotalPnL)
		out.Display["realizedPnL"] = FormatSignedCurrency(out.Portfolio.TotalRealizedPnL)
		out.Display["winRate"] = FormatRate(out.Portfolio.WinRate)
	}
	if out.Blockchain != nil && out.Blockchain.Wallet != "" {
		out.Display["wallet"] = ShortAddress(out.Blockchain.Wallet)
	}
	return &out, nil
}

func fetchAgents(ctx context.Context, a *api.API) (*Agents, error) {
	resp, err := a.System.Status(ctx)
	if err != nil {
		return nil, err
	}
	if err := ensureOK("system status", resp.Envelope); err != nil {
		return nil, err
	}

	out := &Agents{
		Running:       resp.Data.IsRunning,
		ActiveSignals: resp.Data.ActiveSignals,
		TotalAlerts:   resp.Data.TotalAlerts,
	}
	seen := make(map[string]bool, len(knownAgents))
	for _, ag := range knownAgents {
		seen[ag.Key] = true
		out.Agents = append(out.Agents, AgentRow{
			Key:     ag.Key,
			Name:    ag.Name,
			Running: resp.Data.Agents[ag.Key].IsRunning,
		})
	}

	var extra []string
	for key := range resp.Data.Agents {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		out.Agents = append(out.Agents, AgentRow{Key: key, Name: key, Running: resp.Data.Agents[key].IsRunning})
	}
	return out, nil
}

func fetchPortfolio(ctx context.Context, a *api.API) (*PortfolioView, error) {
	resp, err := a.Trading.Portfolio(ctx)
	if err != nil {
		return nil, err
	}
	if err := ensureOK("portfolio", resp.Envelope); err != nil {
		return nil, err
	}

	p := resp.Portfolio
	return &PortfolioView{
		Portfolio: p,
		Display: map[string]string{
			"totalPnL":      FormatSignedCurrency(p.TotalPnL),
			"realizedPnL":   FormatSignedCurrency(p.TotalRealizedPnL),
			"unrealizedPnL": FormatSignedCurrency(p.TotalUnrealizedPnL),
			"winRate":       FormatRate(p.WinRate),
			"drawdown":      FormatRatio(p.Risk.Drawdown),
			"peakEquity":    FormatCurrency(p.Risk.PeakEquity),
		},
	}, nil
}

func fetchTrading(ctx context.Context, a *api.API) (*TradingView, error) {
	resp, err := a.Trading.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if err := ensureOK("trading stats", resp.Envelope); err != nil {
		return nil, err
	}

	s := resp.Stats
	avgLoss := s.Performance.AvgLoss
	if avgLoss == 0 {
		avgLoss = 1
	}
	return &TradingView{
		TradingStats: s,
		Display: map[string]string{
			"totalPnL":   FormatSignedCurrency(s.Overview.TotalPnL),
			"dailyPnL":   FormatSignedCurrency(s.Overview.DailyPnL),
			"winRate":    FormatRate(s.Performance.WinRate),
			"drawdown":   FormatRatio(s.Risk.Drawdown),
			"bestTrade":  FormatSignedCurrency(s.Performance.BestTrade),
			"worstTrade": FormatSignedCurrency(s.Performance.WorstTrade),
			"winLoss":    fmt.Sprintf("%.2fx", s.Performance.AvgWin/avgLoss),
		},
	}, nil
}

func fetchHistory(ctx context.Context, a *api.API) (*HistoryView, error) {
	resp, err := a.Trading.History(ctx, api.HistoryFilter{})
	if err != nil {
		return nil, err
	}
	if err := ensureOK("history", resp.Envelope); err != nil {
		return nil, err
	}
	trades := resp.History
	if trades == nil {
		trades = []api.Trade{}
	}
	return &HistoryView{Trades: trades, Summary: resp.Summary}, nil
}

// fetchBlockchain loads all parts together and fails if any of them fails
func fetchBlockchain(ctx context.Context, a *api.API) (*BlockchainView, error) {
	var out BlockchainView
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		resp, err := a.Blockchain.Status(gctx)
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		out.Status = resp
		return nil
	})
	g.Go(func() error {
		resp, err := a.Blockchain.Analytics(gctx)
		if err != nil {
			return fmt.Errorf("analytics: %w", err)
		}
		out.Analytics = resp
		return nil
	})
	g.Go(func() error {
		resp, err := a.Blockchain.Signals(gctx, blockchainSignals)
		if err != nil {
			return fmt.Errorf("signals: %w", err)
		}
		if resp.OK() {
			out.Signals = resp.Data
		}
		return nil
	})
	g.Go(func() error {
		resp, err := a.Blockchain.Trades(gctx, "")
		if err != nil {
			return fmt.Errorf("trades: %w", err)
		}
		if resp.OK() {
			out.Trades = resp.Data
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func fetchBlockchainInfo(ctx context.Context, a *api.API) (*BlockchainInfoView, error) {
	resp, err := a.Blockchain.Info(ctx)
	if err != nil {
		return nil, err
	}
	if err := ensureOK("blockchain info", resp.Envelope); err != nil {
		return nil, err
	}
	return &BlockchainInfoView{
		BlockchainInfo: resp.Data,
		ShortWallet:    ShortAddress(resp.Data.WalletAddress),
	}, nil
}

func fetchDAO(ctx context.Context, a *api.API) (*DAOView, error) {
	var out DAOView
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		resp, err := a.DAO.VotingPower(gctx, "")
		if err != nil {
			return fmt.Errorf("voting power: %w", err)
		}
		if resp.OK() {
			out.VotingPower = resp.VotingPower
		}
		return nil
	})
	g.Go(func() error {
		resp, err := a.Blockchain.Signals(gctx, daoSignals)
		if err != nil {
			return fmt.Errorf("signals: %w", err)
		}
		if resp.OK() {
			out.Signals = borderlineSignals(resp.Data)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func borderlineSignals(signals []api.ChainSignal) []api.ChainSignal {
	out := make([]api.ChainSignal, 0, len(signals))
	for _, s := range signals {
		if s.Confidence >= voteMinConfidence && s.Confidence < voteMaxConfidence {
			out = append(out, s)
		}
	}
	return out
}

func fetchRewards(ctx context.Context, a *api.API, wallet string) (*RewardsView, error) {
	resp, err := a.Rewards.Balance(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if err := ensureOK("rewards balance", resp.Envelope); err != nil {
		return nil, err
	}
	out := &RewardsView{RewardBalance: resp.RewardBalance}
	if out.Address == "" {
		out.Address = wallet
	}
	out.ShortAddress = ShortAddress(out.Address)
	return out, nil
}
