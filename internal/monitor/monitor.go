// Package monitor drives the refresh cycle: fetch the three lifecycle
// collections jointly, aggregate them, and replace the in-memory snapshot.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jxskiss/base62"
	"go.uber.org/multierr"

	"kiwoom-signal-monitor-go/internal/lifecycle"
	"kiwoom-signal-monitor-go/internal/logger"
	"kiwoom-signal-monitor-go/internal/models"
)

// ErrRefreshInFlight is returned when a refresh is requested while another
// cycle is still running. The single-flight guard keeps a slow cycle from
// being outpaced by the next timer tick and applying results out of order.
var ErrRefreshInFlight = errors.New("refresh already in flight")

// Backend is the slice of the API client the monitor needs. It is an
// interface so tests can substitute a fake.
type Backend interface {
	Signals(ctx context.Context) ([]models.Signal, error)
	Positions(ctx context.Context) ([]models.Position, error)
	SellOrders(ctx context.Context) ([]models.SellOrder, error)
	AccountBalance(ctx context.Context) (*models.AccountBalance, error)
	Holdings(ctx context.Context) ([]models.Holding, error)
}

// Snapshot is the full dashboard state produced by one successful refresh
// cycle. Snapshots are immutable once published; a new cycle replaces the
// whole snapshot, it never merges into one.
type Snapshot struct {
	CycleID     string
	RefreshedAt time.Time
	Views       []lifecycle.View
	Balance     *models.AccountBalance
	Holdings    []models.Holding
}

// StatusCounts tallies signals per status for the stats line.
func (s *Snapshot) StatusCounts() map[models.SignalStatus]int {
	counts := make(map[models.SignalStatus]int)
	for _, v := range s.Views {
		counts[v.Signal.Status]++
	}
	return counts
}

// Monitor owns the refresh loop and the current snapshot.
type Monitor struct {
	backend  Backend
	calc     *lifecycle.Calculator
	interval time.Duration
	timeout  time.Duration

	mu       sync.RWMutex
	snapshot *Snapshot

	inFlight atomic.Bool
	onUpdate func(*Snapshot)
	onError  func(cycleID string, err error)
}

// NewMonitor creates a monitor. interval is the auto-refresh period, timeout
// bounds one whole refresh cycle.
func NewMonitor(backend Backend, calc *lifecycle.Calculator, interval, timeout time.Duration) *Monitor {
	return &Monitor{
		backend:  backend,
		calc:     calc,
		interval: interval,
		timeout:  timeout,
	}
}

// OnUpdate registers the callback invoked with each new snapshot.
func (m *Monitor) OnUpdate(fn func(*Snapshot)) { m.onUpdate = fn }

// OnError registers the callback invoked when a refresh cycle fails.
func (m *Monitor) OnError(fn func(cycleID string, err error)) { m.onError = fn }

// Snapshot returns the most recent published snapshot, or nil before the
// first successful refresh. Snapshots are immutable, so no copy is needed.
func (m *Monitor) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Refresh runs one cycle: fetch signals, positions and sell orders jointly,
// aggregate, and publish. Any of the three fetches failing aborts the whole
// cycle with an aggregate error and leaves the previous snapshot in place.
// Account data is best-effort and never fails a cycle.
func (m *Monitor) Refresh(ctx context.Context) (*Snapshot, error) {
	if !m.inFlight.CompareAndSwap(false, true) {
		return nil, ErrRefreshInFlight
	}
	defer m.inFlight.Store(false)

	cycleID := string(base62.FormatInt(time.Now().UnixMilli()))

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	logger.S().Debugw("refresh cycle started", "cycle", cycleID)

	var (
		signals    []models.Signal
		positions  []models.Position
		sellOrders []models.SellOrder
		sigErr     error
		posErr     error
		sellErr    error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		signals, sigErr = m.backend.Signals(ctx)
	}()
	go func() {
		defer wg.Done()
		positions, posErr = m.backend.Positions(ctx)
	}()
	go func() {
		defer wg.Done()
		sellOrders, sellErr = m.backend.SellOrders(ctx)
	}()
	wg.Wait()

	if err := multierr.Combine(
		wrap("signals", sigErr),
		wrap("positions", posErr),
		wrap("sell orders", sellErr),
	); err != nil {
		if m.onError != nil {
			m.onError(cycleID, err)
		}
		return nil, fmt.Errorf("refresh cycle %s: %w", cycleID, err)
	}

	snap := &Snapshot{
		CycleID:     cycleID,
		RefreshedAt: time.Now(),
		Views:       m.calc.Aggregate(signals, positions, sellOrders),
	}

	// Account data enriches the dashboard but is not part of the lifecycle
	// contract; a failure here degrades to empty sections.
	var accErr error
	snap.Balance, accErr = m.backend.AccountBalance(ctx)
	if accErr != nil {
		logger.S().Warnw("account balance unavailable", "cycle", cycleID, "error", accErr)
	}
	snap.Holdings, accErr = m.backend.Holdings(ctx)
	if accErr != nil {
		logger.S().Warnw("holdings unavailable", "cycle", cycleID, "error", accErr)
	}

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()

	logger.S().Infow("refresh cycle done",
		"cycle", cycleID,
		"signals", len(snap.Views),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if m.onUpdate != nil {
		m.onUpdate(snap)
	}
	return snap, nil
}

// Run refreshes immediately and then on every interval tick until ctx is
// cancelled. A tick that lands while a cycle is still in flight is skipped;
// the guard makes overlapping fetch sets impossible.
func (m *Monitor) Run(ctx context.Context) error {
	m.refresh(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

func (m *Monitor) refresh(ctx context.Context) {
	if _, err := m.Refresh(ctx); err != nil {
		if errors.Is(err, ErrRefreshInFlight) {
			logger.S().Debug("tick skipped, refresh still in flight")
			return
		}
		logger.S().Errorw("refresh failed", "error", err)
	}
}

func wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
