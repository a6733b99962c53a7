package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"somniadash/internal/api"
	"somniadash/internal/cache"
	"somniadash/internal/client"
	"somniadash/internal/config"
)

var fixtures = map[string]string{
	"GET /api/market/status":                      `{"success":true,"data":{"bitcoin":{"price":65000,"change":2.1}},"activeSignals":1}`,
	"GET /api/system/status":                      `{"success":true,"data":{"isRunning":true,"agents":{"market":{"isRunning":true},"risk":{"isRunning":false},"sentiment":{"isRunning":true}},"activeSignals":3,"totalAlerts":7}}`,
	"GET /api/trading/portfolio":                  `{"success":true,"portfolio":{"openPositions":1,"totalPnL":1234.5,"totalRealizedPnL":-10,"winRate":62.5,"risk":{"peakEquity":10500,"drawdown":0.042}}}`,
	"GET /api/trading/history":                    `{"success":true,"history":[{"id":"1"},{"id":"2"},{"id":"3"},{"id":"4"},{"id":"5"},{"id":"6"}],"summary":{"totalTrades":6}}`,
	"GET /api/trading/stats":                      `{"success":true,"stats":{"overview":{"totalPnL":50,"dailyPnL":-5},"performance":{"winRate":55,"avgWin":30,"avgLoss":15,"bestTrade":80,"worstTrade":-20},"risk":{"drawdown":0.15}}}`,
	"GET /api/blockchain/status":                  `{"success":true,"isEnabled":true,"isConnected":true,"wallet":"0x1234567890abcdef1234"}`,
	"GET /api/blockchain/info":                    `{"success":true,"data":{"isConnected":true,"network":"somnia","walletAddress":"0xabcdef0123456789"}}`,
	"GET /api/blockchain/analytics":               `{"success":true,"data":{"totalSignals":4}}`,
	"GET /api/blockchain/signals":                 `{"success":true,"data":[{"id":1,"coin":"bitcoin","action":"BUY","confidence":80,"entryPoint":100},{"id":2,"confidence":59},{"id":3,"confidence":60},{"id":4,"confidence":74.9},{"id":5,"confidence":75}]}`,
	"GET /api/blockchain/trades":                  `{"success":true,"data":[{"id":9,"symbol":"BTC","side":"buy","amount":1,"price":100,"status":"filled"}]}`,
	"GET /api/dao/voting-power":                   `{"success":true,"votingPower":"12"}`,
	"GET /api/rewards/balance/0xfeedfacecafebeef": `{"success":true,"balance":"3.5"}`,
}

func newTestAPI(t *testing.T, overrides map[string]int) *api.API {
	t.Helper()

	mux := http.NewServeMux()
	for pattern, body := range fixtures {
		status := http.StatusOK
		if code, ok := overrides[pattern]; ok {
			status = code
		}
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := client.New(client.Options{
		BaseURL: srv.URL + "/api",
		Timeout: 2 * time.Second,
		Cache:   cache.NewMemoryCache(cache.Options{TTL: 10 * time.Second}),
		Logger:  zerolog.Nop(),
	})
	t.Cleanup(func() { c.Close() })
	return api.New(c, zerolog.Nop())
}

func refreshView(t *testing.T, a *api.API, name string) (State, error) {
	t.Helper()
	d, err := New(BuildViews(a, "0xfeedfacecafebeef"), zerolog.Nop())
	require.NoError(t, err)
	return d.Refresh(context.Background(), name)
}

func TestBuildViews_Intervals(t *testing.T) {
	views := BuildViews(newTestAPI(t, nil), "")
	got := map[string]time.Duration{}
	for _, v := range views {
		require.NotNil(t, v.Fetch, v.Name)
		got[v.Name] = v.Interval
	}

	assert.Len(t, views, 9)
	assert.Equal(t, 30*time.Second, got[ViewOverview])
	assert.Equal(t, 10*time.Second, got[ViewAgents])
	assert.Equal(t, 15*time.Second, got[ViewPortfolio])
	assert.Equal(t, 10*time.Second, got[ViewTrading])
	assert.Equal(t, time.Minute, got[ViewBlockchainInfo])
}

func TestNewFromConfig_AppliesViewSettings(t *testing.T) {
	off := false
	cfg := &config.Config{Views: map[string]config.ViewConfig{
		ViewAgents:  {Interval: 2000},
		ViewRewards: {Enabled: &off},
	}}

	d, err := NewFromConfig(cfg, newTestAPI(t, nil), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, d.views[ViewAgents].Interval)
	assert.True(t, d.views[ViewRewards].Disabled)
	assert.False(t, d.views[ViewDAO].Disabled)
}

func TestOverview_AllParts(t *testing.T) {
	st, err := refreshView(t, newTestAPI(t, nil), ViewOverview)
	require.NoError(t, err)

	ov := st.Data.(*Overview)
	assert.Empty(t, ov.Failed)
	assert.Equal(t, 65000.0, ov.Market.Data["bitcoin"].Price)
	assert.True(t, ov.System.IsRunning)
	assert.Len(t, ov.RecentTrades, 5)
	assert.Equal(t, "+$1,234.50", ov.Display["totalPnL"])
	assert.Equal(t, "0x1234...1234", ov.Display["wallet"])
}

func TestOverview_ToleratesPartialFailure(t *testing.T) {
	a := newTestAPI(t, map[string]int{
		"GET /api/market/status":     http.StatusInternalServerError,
		"GET /api/blockchain/status": http.StatusBadGateway,
	})

	st, err := refreshView(t, a, ViewOverview)
	require.NoError(t, err)

	ov := st.Data.(*Overview)
	assert.Equal(t, []string{"blockchain", "market"}, ov.Failed)
	assert.Nil(t, ov.Market)
	assert.NotNil(t, ov.Portfolio)
}

func TestOverview_FailsWhenEverythingFails(t *testing.T) {
	a := newTestAPI(t, map[string]int{
		"GET /api/market/status":     http.StatusInternalServerError,
		"GET /api/system/status":     http.StatusInternalServerError,
		"GET /api/trading/portfolio": http.StatusInternalServerError,
		"GET /api/trading/history":   http.StatusInternalServerError,
		"GET /api/blockchain/status": http.StatusInternalServerError,
	})

	st, err := refreshView(t, a, ViewOverview)
	require.Error(t, err)
	assert.False(t, st.HasData())
	assert.NotEmpty(t, st.Error)
}

func TestAgents_OrderAndExtras(t *testing.T) {
	st, err := refreshView(t, newTestAPI(t, nil), ViewAgents)
	require.NoError(t, err)

	ag := st.Data.(*Agents)
	require.Len(t, ag.Agents, 6)
	assert.Equal(t, "market", ag.Agents[0].Key)
	assert.True(t, ag.Agents[0].Running)
	assert.Equal(t, "risk", ag.Agents[4].Key)
	assert.False(t, ag.Agents[4].Running)
	assert.Equal(t, "sentiment", ag.Agents[5].Key)
	assert.Equal(t, 7, ag.TotalAlerts)
}

func TestTradingAndPortfolioDisplay(t *testing.T) {
	a := newTestAPI(t, nil)

	st, err := refreshView(t, a, ViewTrading)
	require.NoError(t, err)
	tv := st.Data.(*TradingView)
	assert.Equal(t, "2.00x", tv.Display["winLoss"])
	assert.Equal(t, "-$5.00", tv.Display["dailyPnL"])
	assert.Equal(t, "55.00%", tv.Display["winRate"])
	assert.Equal(t, "15.00%", tv.Display["drawdown"])

	st, err = refreshView(t, a, ViewPortfolio)
	require.NoError(t, err)
	pv := st.Data.(*PortfolioView)
	assert.Equal(t, "62.50%", pv.Display["winRate"])
	assert.Equal(t, "4.20%", pv.Display["drawdown"])
	assert.Equal(t, "-$10.00", pv.Display["realizedPnL"])
}

func TestBlockchain_AllOrNothing(t *testing.T) {
	st, err := refreshView(t, newTestAPI(t, nil), ViewBlockchain)
	require.NoError(t, err)
	bv := st.Data.(*BlockchainView)
	assert.Len(t, bv.Signals, 5)
	assert.Len(t, bv.Trades, 1)
	assert.True(t, bv.Status.IsConnected)

	a := newTestAPI(t, map[string]int{"GET /api/blockchain/analytics": http.StatusInternalServerError})
	_, err = refreshView(t, a, ViewBlockchain)
	assert.Error(t, err)
}

func TestInfoDAOAndRewards(t *testing.T) {
	a := newTestAPI(t, nil)

	st, err := refreshView(t, a, ViewBlockchainInfo)
	require.NoError(t, err)
	assert.Equal(t, "0xabcd...6789", st.Data.(*BlockchainInfoView).ShortWallet)

	st, err = refreshView(t, a, ViewDAO)
	require.NoError(t, err)
	dv := st.Data.(*DAOView)
	assert.Equal(t, "12", dv.VotingPower.VotingPower.String())
	require.Len(t, dv.Signals, 2)
	assert.Equal(t, "3", dv.Signals[0].ID.String())
	assert.Equal(t, "4", dv.Signals[1].ID.String())

	st, err = refreshView(t, a, ViewRewards)
	require.NoError(t, err)
	rv := st.Data.(*RewardsView)
	assert.Equal(t, "3.5", rv.Balance.String())
	assert.Equal(t, "0xfeed...beef", rv.ShortAddress)
}

func TestEnsureOK(t *testing.T) {
	assert.NoError(t, ensureOK("x", api.Envelope{Success: true}))

	err := ensureOK("x", api.Envelope{Message: "not ready"})
	assert.ErrorIs(t, err, ErrBackendFailure)
	assert.Contains(t, err.Error(), "not ready")
}
