package models

import "fmt"

// SignalStatus is the backend-owned lifecycle status of a buy signal.
// The monitor only observes snapshots; transitions happen server-side.
type SignalStatus string

const (
	SignalPending    SignalStatus = "PENDING"
	SignalProcessing SignalStatus = "PROCESSING"
	SignalOrdered    SignalStatus = "ORDERED"
	SignalFailed     SignalStatus = "FAILED"
	SignalCanceled   SignalStatus = "CANCELED"
)

// PositionStatus describes a filled position. Anything other than HOLDING
// means the position has been liquidated.
type PositionStatus string

const (
	PositionHolding    PositionStatus = "HOLDING"
	PositionStopLoss   PositionStatus = "STOP_LOSS"
	PositionTakeProfit PositionStatus = "TAKE_PROFIT"
	PositionManualSell PositionStatus = "MANUAL_SELL"
)

// Liquidated reports whether the position has left the HOLDING state.
func (s PositionStatus) Liquidated() bool {
	switch s {
	case PositionStopLoss, PositionTakeProfit, PositionManualSell:
		return true
	}
	return false
}

// SellOrderStatus is the state of a liquidation order.
type SellOrderStatus string

const (
	SellOrderPending   SellOrderStatus = "PENDING"
	SellOrderOrdered   SellOrderStatus = "ORDERED"
	SellOrderCompleted SellOrderStatus = "COMPLETED"
	SellOrderFailed    SellOrderStatus = "FAILED"
)

// Signal is a detected trading opportunity reported by the backend's
// condition monitor.
type Signal struct {
	ID             int64        `json:"id"`
	ConditionID    int64        `json:"condition_id"`
	StockCode      string       `json:"stock_code"`
	StockName      string       `json:"stock_name"`
	Status         SignalStatus `json:"status"`
	SignalType     string       `json:"signal_type"`
	DetectedAt     Time         `json:"detected_at"`
	FailureReason  string       `json:"failure_reason,omitempty"`
	TargetPrice    int64        `json:"target_price,omitempty"`
	TargetQuantity int64        `json:"target_quantity,omitempty"`

	// Position is pre-joined by some backend endpoints. When present it is
	// authoritative over an index lookup, which may be stale.
	Position *Position `json:"position,omitempty"`
}

// Position is a filled buy order resulting from a signal. Prices and amounts
// are integral KRW, as delivered by the Kiwoom API.
type Position struct {
	ID              int64          `json:"id"`
	SignalID        int64          `json:"signal_id"`
	StockCode       string         `json:"stock_code"`
	StockName       string         `json:"stock_name"`
	Status          PositionStatus `json:"status"`
	BuyPrice        int64          `json:"buy_price"`
	BuyQuantity     int64          `json:"buy_quantity"`
	BuyAmount       int64          `json:"buy_amount"`
	ActualBuyAmount int64          `json:"actual_buy_amount,omitempty"`
	StopLossPrice   int64          `json:"stop_loss_price,omitempty"`
	TakeProfitPrice int64          `json:"take_profit_price,omitempty"`

	// CurrentPrice is absent until the backend's first price refresh.
	CurrentPrice          *int64   `json:"current_price,omitempty"`
	CurrentProfitLoss     *int64   `json:"current_profit_loss,omitempty"`
	CurrentProfitLossRate *float64 `json:"current_profit_loss_rate,omitempty"`

	BuyTime   Time `json:"buy_time"`
	CreatedAt Time `json:"created_at"`
	SellTime  Time `json:"sell_time,omitempty"`
}

// EntryTime returns the authoritative fill timestamp: buy_time when the
// backend sets it, otherwise the row creation time.
func (p *Position) EntryTime() Time {
	if !p.BuyTime.IsZero() {
		return p.BuyTime
	}
	return p.CreatedAt
}

// SellOrder is the liquidation transaction placed against a position.
type SellOrder struct {
	ID               int64           `json:"id"`
	PositionID       int64           `json:"position_id"`
	StockCode        string          `json:"stock_code"`
	StockName        string          `json:"stock_name"`
	SellPrice        int64           `json:"sell_price"`
	SellQuantity     int64           `json:"sell_quantity"`
	SellAmount       int64           `json:"sell_amount"`
	SellReason       string          `json:"sell_reason"`
	SellReasonDetail string          `json:"sell_reason_detail,omitempty"`
	ProfitLoss       *int64          `json:"profit_loss,omitempty"`
	ProfitLossRate   *float64        `json:"profit_loss_rate,omitempty"`
	Status           SellOrderStatus `json:"status"`
	OrderedAt        Time            `json:"ordered_at,omitempty"`
	CompletedAt      Time            `json:"completed_at,omitempty"`
	CreatedAt        Time            `json:"created_at"`
}

// SettledTime is the best available timestamp for the liquidation:
// completion, then order placement, then row creation.
func (o *SellOrder) SettledTime() Time {
	if !o.CompletedAt.IsZero() {
		return o.CompletedAt
	}
	if !o.OrderedAt.IsZero() {
		return o.OrderedAt
	}
	return o.CreatedAt
}

// AccountBalance mirrors the Kiwoom balance payload served by the backend.
// Kiwoom delivers amounts as quoted numeric strings, hence the Won type.
type AccountBalance struct {
	AccountNo      string `json:"acnt_no"`
	AccountName    string `json:"acnt_nm"`
	BranchName     string `json:"brch_nm"`
	Deposit        Won    `json:"entr"`
	TotalValuation Won    `json:"tot_est_amt"`
	AccountType    string `json:"_account_type,omitempty"`
}

// Holding is one row of the Kiwoom holdings response.
type Holding struct {
	StockName      string `json:"stk_nm"`
	Quantity       Won    `json:"rmnd_qty"`
	AveragePrice   Won    `json:"avg_prc"`
	CurrentPrice   Won    `json:"cur_prc"`
	Valuation      Won    `json:"evlt_amt"`
	ProfitLoss     Won    `json:"pl_amt"`
	ProfitLossRate Rate   `json:"pl_rt"`
}

// TradeRecord is one row of the account trade history.
type TradeRecord struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	StockName string `json:"stock_name"`
	Type      string `json:"type"`
	Quantity  int64  `json:"quantity"`
	Price     int64  `json:"price"`
	Amount    int64  `json:"amount"`
}

// WatchlistStock is a backend-managed stock under monitoring.
type WatchlistStock struct {
	ID            int64  `json:"id"`
	StockCode     string `json:"stock_code"`
	StockName     string `json:"stock_name"`
	IsActive      bool   `json:"is_active"`
	SourceType    string `json:"source_type"`
	ConditionID   int64  `json:"condition_id,omitempty"`
	ConditionName string `json:"condition_name,omitempty"`
	Notes         string `json:"notes,omitempty"`
	AddedAt       Time   `json:"added_at"`
}

// Strategy is one configured trading strategy on the backend.
type Strategy struct {
	ID           int64          `json:"id"`
	StrategyName string         `json:"strategy_name"`
	StrategyType string         `json:"strategy_type"`
	IsEnabled    bool           `json:"is_enabled"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	UpdatedAt    Time           `json:"updated_at"`
}

// MonitoringStatus reports whether the backend's condition monitor is running.
type MonitoringStatus struct {
	IsRunning    bool `json:"is_running"`
	IsMonitoring bool `json:"is_monitoring"`
}

// Running reconciles the two flag spellings the backend has used.
func (s MonitoringStatus) Running() bool {
	return s.IsRunning || s.IsMonitoring
}

// CleanupResult is the response of POST /signals/cleanup-failed.
type CleanupResult struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deleted_count"`
}

// Config holds all monitor settings loaded from the JSON config file.
type Config struct {
	BackendURL         string    `json:"backend_url"`          // base URL of the trading backend
	RequestTimeoutSec  int       `json:"request_timeout_sec"`  // per-request timeout
	RefreshIntervalSec int       `json:"refresh_interval_sec"` // auto refresh period (Kiwoom rate limit: 20 req/min)
	SellFeeRate        float64   `json:"sell_fee_rate"`        // simulated-account sell commission
	TaxRate            float64   `json:"tax_rate"`             // transaction tax on sells
	LogConfig          LogConfig `json:"log"`
}

// LogConfig defines logging behavior.
type LogConfig struct {
	Level      string `json:"level"`       // "debug", "info", "warn", "error"
	Output     string `json:"output"`      // "console", "file", "both"
	File       string `json:"file"`        // log file path
	MaxSize    int    `json:"max_size"`    // max size of a single log file (MB)
	MaxBackups int    `json:"max_backups"` // max number of rotated files kept
	MaxAge     int    `json:"max_age"`     // max age of rotated files (days)
	Compress   bool   `json:"compress"`    // gzip rotated files
}

// APIError is the backend's FastAPI-style error envelope.
type APIError struct {
	StatusCode int    `json:"-"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error: status=%d, detail=%s", e.StatusCode, e.Detail)
}
