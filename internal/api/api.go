package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"somniadash/internal/client"
)

// ErrInvalidArgument is returned when a request fails local validation
var ErrInvalidArgument = errors.New("invalid argument")

// API groups the typed backend endpoints
type API struct {
	Health     *HealthAPI
	System     *SystemAPI
	Market     *MarketAPI
	Trading    *TradingAPI
	Analysis   *AnalysisAPI
	Blockchain *BlockchainAPI
	DAO        *DAOAPI
	Rewards    *RewardsAPI

	client *client.Client
}

// base holds what every endpoint group shares
type base struct {
	client *client.Client
	logger zerolog.Logger
}

// New creates the endpoint groups on top of a cached client
func New(c *client.Client, logger zerolog.Logger) *API {
	b := base{
		client: c,
		logger: logger.With().Str("component", "api").Logger(),
	}
	return &API{
		Health:     &HealthAPI{b},
		System:     &SystemAPI{b},
		Market:     &MarketAPI{b},
		Trading:    &TradingAPI{b},
		Analysis:   &AnalysisAPI{b},
		Blockchain: &BlockchainAPI{b},
		DAO:        &DAOAPI{b},
		Rewards:    &RewardsAPI{b},
		client:     c,
	}
}

// Client returns the underlying cached client
func (a *API) Client() *client.Client {
	return a.client
}

// ClearCache drops every cached response
func (a *API) ClearCache() {
	a.client.Flush()
}

// write posts body and invalidates the cache once the backend accepted it
func (b base) write(ctx context.Context, path string, body, out any) error {
	if err := b.client.PostJSON(ctx, path, body, out); err != nil {
		return err
	}
	b.client.Flush()
	b.logger.Debug().Str("path", path).Msg("cache flushed after write")
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func requireID(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid("%s is required", field)
	}
	return url.PathEscape(v), nil
}

// withOptional appends an escaped path segment when v is set
func withOptional(path, v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return path
	}
	return path + "/" + url.PathEscape(v)
}

// HealthAPI wraps /health
type HealthAPI struct{ base }

// Check returns the backend health, cached under "health"
func (h *HealthAPI) Check(ctx context.Context) (*Health, error) {
	var out Health
	if err := h.client.GetJSON(ctx, "health", "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SystemAPI wraps /system
type SystemAPI struct{ base }

// Status returns agent and system state, cached under "system-status"
func (s *SystemAPI) Status(ctx context.Context) (*SystemStatusResponse, error) {
	var out SystemStatusResponse
	if err := s.client.GetJSON(ctx, "system-status", "/system/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalysisAPI wraps /analysis
type AnalysisAPI struct{ base }

// Trigger asks the backend to analyse coin now
func (a *AnalysisAPI) Trigger(ctx context.Context, coin string) (*AnalysisResponse, error) {
	coin = strings.TrimSpace(coin)
	if coin == "" {
		return nil, invalid("coin is required")
	}
	var out AnalysisResponse
	if err := a.write(ctx, "/analysis/trigger", map[string]string{"coin": coin}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
