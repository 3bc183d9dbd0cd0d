package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kiwoom-signal-monitor-go/internal/api"
	"kiwoom-signal-monitor-go/internal/config"
	"kiwoom-signal-monitor-go/internal/lifecycle"
	"kiwoom-signal-monitor-go/internal/logger"
	"kiwoom-signal-monitor-go/internal/models"
	"kiwoom-signal-monitor-go/internal/monitor"
	"kiwoom-signal-monitor-go/internal/render"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	mode := flag.String("mode", "watch", "running mode: watch, once, cleanup, status, start, stop, history, watchlist or strategies")
	flag.Parse()

	// A default logger so config loading itself can log; re-initialized below
	// once the config file is in.
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	if err := godotenv.Load(); err != nil {
		logger.S().Debug(".env not found, reading from process environment")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("failed to load config: %v", err)
	}

	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	client := api.NewClient(cfg.BackendURL, time.Duration(cfg.RequestTimeoutSec)*time.Second, logger.S())
	calc := lifecycle.NewCalculator(lifecycle.FeeSchedule{
		SellFeeRate: cfg.SellFeeRate,
		TaxRate:     cfg.TaxRate,
	})

	switch *mode {
	case "watch":
		runWatch(cfg, client, calc)
	case "once":
		runOnce(cfg, client, calc)
	case "cleanup":
		runCleanup(client)
	case "status":
		runStatus(client)
	case "start":
		runMonitoringToggle(client, true)
	case "stop":
		runMonitoringToggle(client, false)
	case "history":
		runHistory(client)
	case "watchlist":
		runWatchlist(client)
	case "strategies":
		runStrategies(client)
	default:
		logger.S().Fatalf("unknown mode: %s (want watch, once, cleanup, status, start, stop, history, watchlist or strategies)", *mode)
	}
}

// loadConfig reads the config file when present and overlays the backend URL
// from the environment, so the monitor can run with nothing but
// KIWOOM_BACKEND_URL set.
func loadConfig(path string) (*models.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		logger.S().Infof("config file %s not found, using defaults", path)
		cfg = config.Default()
	}
	if url := os.Getenv("KIWOOM_BACKEND_URL"); url != "" {
		cfg.BackendURL = url
	}
	if cfg.BackendURL == "" {
		logger.S().Fatal("no backend URL: set backend_url in config or KIWOOM_BACKEND_URL in the environment")
	}
	return cfg, nil
}

func runWatch(cfg *models.Config, client *api.Client, calc *lifecycle.Calculator) {
	interval := time.Duration(cfg.RefreshIntervalSec) * time.Second
	// A cycle spans up to five backend calls; bound it by the per-request
	// timeout with headroom rather than letting a stall eat the interval.
	cycleTimeout := time.Duration(cfg.RequestTimeoutSec) * 3 * time.Second

	m := monitor.NewMonitor(client, calc, interval, cycleTimeout)
	m.OnUpdate(func(snap *monitor.Snapshot) {
		render.Dashboard(os.Stdout, snap)
	})
	m.OnError(func(cycleID string, err error) {
		logger.S().Errorw("데이터를 불러오는 중 오류가 발생했습니다", "cycle", cycleID, "error", err)
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.S().Infof("signal monitor started, backend=%s, interval=%s", cfg.BackendURL, interval)
	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		logger.S().Fatalf("monitor stopped: %v", err)
	}
	logger.S().Info("signal monitor stopped")
}

func runOnce(cfg *models.Config, client *api.Client, calc *lifecycle.Calculator) {
	cycleTimeout := time.Duration(cfg.RequestTimeoutSec) * 3 * time.Second
	m := monitor.NewMonitor(client, calc, 0, cycleTimeout)

	snap, err := m.Refresh(context.Background())
	if err != nil {
		logger.S().Fatalf("refresh failed: %v", err)
	}
	render.Dashboard(os.Stdout, snap)
}

func runCleanup(client *api.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := client.CleanupFailedSignals(ctx)
	if err != nil {
		logger.S().Fatalf("cleanup failed: %v", err)
	}
	logger.S().Infof("%s (삭제된 신호: %d개)", result.Message, result.DeletedCount)
}

func runStatus(client *api.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := client.MonitoringStatus(ctx)
	if err != nil {
		logger.S().Fatalf("monitoring status unavailable: %v", err)
	}
	if status.Running() {
		logger.S().Info("모니터링 실행 중")
	} else {
		logger.S().Info("모니터링 중지됨")
	}
}

func runMonitoringToggle(client *api.Client, start bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		status *models.MonitoringStatus
		err    error
	)
	if start {
		status, err = client.StartMonitoring(ctx)
	} else {
		status, err = client.StopMonitoring(ctx)
	}
	if err != nil {
		logger.S().Fatalf("monitoring toggle failed: %v", err)
	}
	if status.Running() {
		logger.S().Info("모니터링 시작됨")
	} else {
		logger.S().Info("모니터링 중지됨")
	}
}

func runHistory(client *api.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := client.TradeHistory(ctx)
	if err != nil {
		logger.S().Fatalf("trade history unavailable: %v", err)
	}
	render.History(os.Stdout, records)
}

func runWatchlist(client *api.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stocks, err := client.Watchlist(ctx)
	if err != nil {
		logger.S().Fatalf("watchlist unavailable: %v", err)
	}
	render.Watchlist(os.Stdout, stocks)
}

func runStrategies(client *api.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	strategies, err := client.Strategies(ctx)
	if err != nil {
		logger.S().Fatalf("strategies unavailable: %v", err)
	}
	// The strategy monitor state is informative only; its absence should not
	// hide the strategy list.
	running, err := client.StrategyStatus(ctx)
	if err != nil {
		logger.S().Warnf("strategy status unavailable: %v", err)
	}
	render.Strategies(os.Stdout, strategies, running)
}
