package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"kiwoom-signal-monitor-go/internal/models"
)

// Client talks to the auto-trading backend's read-only HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewClient creates a backend client. baseURL is the backend root, without a
// trailing slash.
func NewClient(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// doRequest performs one HTTP exchange and returns the raw body. Non-2xx
// responses are mapped to *models.APIError carrying the backend's detail
// message when one is present.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debugw("backend request", "method", method, "url", fullURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &models.APIError{StatusCode: resp.StatusCode}
		// FastAPI wraps errors as {"detail": ...}; fall back to the raw body.
		if json.Unmarshal(body, apiErr) != nil || apiErr.Detail == "" {
			apiErr.Detail = strings.TrimSpace(string(body))
		}
		return body, apiErr
	}

	return body, nil
}

// Signals fetches all pending-table signals. skip_price avoids the backend
// issuing per-signal price lookups against its Kiwoom rate budget.
func (c *Client) Signals(ctx context.Context) ([]models.Signal, error) {
	params := url.Values{}
	params.Set("status", "ALL")
	params.Set("skip_price", "true")
	body, err := c.doRequest(ctx, http.MethodGet, "/signals/pending", params)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Signal](body), nil
}

// Positions fetches all positions regardless of status.
func (c *Client) Positions(ctx context.Context) ([]models.Position, error) {
	params := url.Values{}
	params.Set("status", "ALL")
	body, err := c.doRequest(ctx, http.MethodGet, "/positions/", params)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Position](body), nil
}

// SellOrders fetches all sell orders regardless of status.
func (c *Client) SellOrders(ctx context.Context) ([]models.SellOrder, error) {
	params := url.Values{}
	params.Set("status", "ALL")
	body, err := c.doRequest(ctx, http.MethodGet, "/sell-orders/", params)
	if err != nil {
		return nil, err
	}
	return decodeList[models.SellOrder](body), nil
}

// CleanupFailedSignals asks the backend to delete FAILED signals that have no
// associated position. The no-position invariant is enforced server-side.
func (c *Client) CleanupFailedSignals(ctx context.Context) (*models.CleanupResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/signals/cleanup-failed", nil)
	if err != nil {
		return nil, err
	}
	var result models.CleanupResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode cleanup result: %w", err)
	}
	return &result, nil
}

// AccountBalance fetches the Kiwoom account summary.
func (c *Client) AccountBalance(ctx context.Context) (*models.AccountBalance, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/account/balance", nil)
	if err != nil {
		return nil, err
	}
	var balance models.AccountBalance
	if err := json.Unmarshal(body, &balance); err != nil {
		return nil, fmt.Errorf("decode account balance: %w", err)
	}
	return &balance, nil
}

// Holdings fetches the current holding rows.
func (c *Client) Holdings(ctx context.Context) ([]models.Holding, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/account/holdings", nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Holdings []models.Holding `json:"holdings"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode holdings: %w", err)
	}
	return envelope.Holdings, nil
}

// TradeHistory fetches the account trade history rows.
func (c *Client) TradeHistory(ctx context.Context) ([]models.TradeRecord, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/account/history", nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		History []models.TradeRecord `json:"history"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode trade history: %w", err)
	}
	return envelope.History, nil
}

// Watchlist fetches the backend-managed watchlist.
func (c *Client) Watchlist(ctx context.Context) ([]models.WatchlistStock, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/watchlist/", nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Watchlist []models.WatchlistStock `json:"watchlist"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode watchlist: %w", err)
	}
	return envelope.Watchlist, nil
}

// Strategies fetches the configured trading strategies.
func (c *Client) Strategies(ctx context.Context) ([]models.Strategy, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/strategies/", nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Strategies []models.Strategy `json:"strategies"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode strategies: %w", err)
	}
	return envelope.Strategies, nil
}

// StrategyStatus reports whether the backend's strategy monitor is running.
func (c *Client) StrategyStatus(ctx context.Context) (bool, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/strategy/status", nil)
	if err != nil {
		return false, err
	}
	var status models.MonitoringStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return false, fmt.Errorf("decode strategy status: %w", err)
	}
	return status.Running(), nil
}

// MonitoringStatus reports the condition monitor's run state.
func (c *Client) MonitoringStatus(ctx context.Context) (*models.MonitoringStatus, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/monitoring/status", nil)
	if err != nil {
		return nil, err
	}
	var status models.MonitoringStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode monitoring status: %w", err)
	}
	return &status, nil
}

// StartMonitoring starts the backend condition monitor.
func (c *Client) StartMonitoring(ctx context.Context) (*models.MonitoringStatus, error) {
	return c.postMonitoring(ctx, "/monitoring/start")
}

// StopMonitoring stops the backend condition monitor.
func (c *Client) StopMonitoring(ctx context.Context) (*models.MonitoringStatus, error) {
	return c.postMonitoring(ctx, "/monitoring/stop")
}

func (c *Client) postMonitoring(ctx context.Context, endpoint string) (*models.MonitoringStatus, error) {
	body, err := c.doRequest(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var status models.MonitoringStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode monitoring status: %w", err)
	}
	return &status, nil
}
