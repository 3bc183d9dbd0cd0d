// Package render draws the dashboard snapshot as terminal tables.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"kiwoom-signal-monitor-go/internal/format"
	"kiwoom-signal-monitor-go/internal/lifecycle"
	"kiwoom-signal-monitor-go/internal/models"
	"kiwoom-signal-monitor-go/internal/monitor"
)

// statusText maps backend statuses to the dashboard's Korean badges.
var statusText = map[models.SignalStatus]string{
	models.SignalPending:    "대기중",
	models.SignalProcessing: "처리중",
	models.SignalOrdered:    "주문완료",
	models.SignalFailed:     "실패",
	models.SignalCanceled:   "취소됨",
}

// StatusText returns the display text for a signal status, falling back to
// the raw value for statuses this client does not know.
func StatusText(status models.SignalStatus) string {
	if s, ok := statusText[status]; ok {
		return s
	}
	return string(status)
}

// stageMarks are the single-rune progress bar cells per stage status.
var stageMarks = map[lifecycle.StageStatus]string{
	lifecycle.StatusCompleted: "●",
	lifecycle.StatusActive:    "◐",
	lifecycle.StatusFailed:    "✗",
	lifecycle.StatusCanceled:  "⊘",
	lifecycle.StatusUnknown:   "○",
}

// Dashboard writes the whole snapshot: stats line, signal table, balance and
// holdings sections.
func Dashboard(w io.Writer, snap *monitor.Snapshot) {
	now := time.Now()

	counts := snap.StatusCounts()
	fmt.Fprintf(w, "시그널 %d건 (대기 %d / 처리중 %d / 주문 %d / 실패 %d)  ·  갱신 %s\n\n",
		len(snap.Views),
		counts[models.SignalPending],
		counts[models.SignalProcessing],
		counts[models.SignalOrdered],
		counts[models.SignalFailed],
		snap.RefreshedAt.Format("15:04:05"),
	)

	Signals(w, snap.Views, now)

	// Expanded timelines for signals still moving through the pipeline; the
	// table strip alone does not show which stage is the current one.
	for _, v := range snap.Views {
		if !inFlight(v.Lifecycle) {
			continue
		}
		fmt.Fprintf(w, "\n%s (%s)\n", v.Signal.StockName, v.Signal.StockCode)
		Timeline(w, v.Lifecycle)
	}

	if snap.Balance != nil {
		fmt.Fprintln(w)
		Balance(w, snap.Balance)
	}
	if len(snap.Holdings) > 0 {
		fmt.Fprintln(w)
		Holdings(w, snap.Holdings)
	}
}

// inFlight reports whether any stage is still active.
func inFlight(lc lifecycle.Lifecycle) bool {
	for _, stage := range lc {
		if stage.Status == lifecycle.StatusActive {
			return true
		}
	}
	return false
}

// Signals renders the aggregated signal table with per-stage progress.
func Signals(w io.Writer, views []lifecycle.View, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "종목", "상태", "진행", "감지", "매수가", "현재가", "손익", "비고"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "진행", Align: text.AlignCenter},
		{Name: "매수가", Align: text.AlignRight},
		{Name: "현재가", Align: text.AlignRight},
		{Name: "손익", Align: text.AlignRight},
	})

	for _, v := range views {
		sig := v.Signal

		var buyPrice, currentPrice, pnl string
		if v.Position != nil {
			buyPrice = format.Won(v.Position.BuyPrice)
			if v.Position.CurrentPrice != nil {
				currentPrice = format.Won(*v.Position.CurrentPrice)
			}
		} else if sig.TargetPrice > 0 {
			buyPrice = format.Won(sig.TargetPrice) + "(목표)"
		}
		if v.ProfitLoss != nil {
			pnl = fmt.Sprintf("%s원 (%s%%)",
				format.SignedAmount(v.ProfitLoss.Amount),
				format.ChangeRate(v.ProfitLoss.Rate),
			)
		}

		note := ""
		switch {
		case sig.Status == models.SignalFailed && sig.FailureReason != "":
			note = sig.FailureReason
		case sig.Status == models.SignalOrdered && v.Position == nil:
			note = "주문 체결 대기 중"
		}

		t.AppendRow(table.Row{
			sig.ID,
			fmt.Sprintf("%s (%s)", sig.StockName, sig.StockCode),
			StatusText(sig.Status),
			progressBar(v.Lifecycle),
			format.RelativeTime(sig.DetectedAt.Time, now),
			buyPrice,
			currentPrice,
			pnl,
			note,
		})
	}

	t.Render()
}

// Timeline renders one signal's lifecycle stage-by-stage, the expanded view
// behind the dashboard's timeline strip.
func Timeline(w io.Writer, lc lifecycle.Lifecycle) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "단계", "상태", "시각"})

	for _, stage := range lc {
		t.AppendRow(table.Row{
			stageMarks[stage.Status],
			stage.Label,
			string(stage.Status),
			format.ClockTime(stage.Time),
		})
	}

	t.Render()
}

// Balance renders the account summary block.
func Balance(w io.Writer, balance *models.AccountBalance) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("계좌 정보")

	accountType := balance.AccountType
	if accountType == "" {
		accountType = "실계좌"
	}
	t.AppendRow(table.Row{"계좌", fmt.Sprintf("%s (%s)", balance.AccountNo, accountType)})
	t.AppendRow(table.Row{"계좌명", balance.AccountName})
	if balance.BranchName != "" {
		t.AppendRow(table.Row{"지점명", balance.BranchName})
	}
	t.AppendRow(table.Row{"예수금", format.Won(int64(balance.Deposit))})
	t.AppendRow(table.Row{"총 평가금액", format.Won(int64(balance.TotalValuation))})

	t.Render()
}

// Holdings renders the holdings table.
func Holdings(w io.Writer, holdings []models.Holding) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("보유종목")
	t.AppendHeader(table.Row{"종목명", "수량", "평균단가", "현재가", "평가금액", "손익", "수익률"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "수량", Align: text.AlignRight},
		{Name: "평균단가", Align: text.AlignRight},
		{Name: "현재가", Align: text.AlignRight},
		{Name: "평가금액", Align: text.AlignRight},
		{Name: "손익", Align: text.AlignRight},
		{Name: "수익률", Align: text.AlignRight},
	})

	for _, h := range holdings {
		t.AppendRow(table.Row{
			h.StockName,
			format.Quantity(int64(h.Quantity)),
			format.Won(int64(h.AveragePrice)),
			format.Won(int64(h.CurrentPrice)),
			format.Won(int64(h.Valuation)),
			format.SignedAmount(int64(h.ProfitLoss)) + "원",
			format.ChangeRate(float64(h.ProfitLossRate)) + "%",
		})
	}

	t.Render()
}

// History renders the account trade history.
func History(w io.Writer, records []models.TradeRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("거래 내역")
	t.AppendHeader(table.Row{"일자", "시각", "종목명", "구분", "수량", "단가", "금액"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "수량", Align: text.AlignRight},
		{Name: "단가", Align: text.AlignRight},
		{Name: "금액", Align: text.AlignRight},
	})

	for _, r := range records {
		t.AppendRow(table.Row{
			r.Date,
			r.Time,
			r.StockName,
			r.Type,
			format.Quantity(r.Quantity),
			format.Won(r.Price),
			format.Won(r.Amount),
		})
	}

	t.Render()
}

// Watchlist renders the backend-managed watchlist.
func Watchlist(w io.Writer, stocks []models.WatchlistStock) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("관심종목")
	t.AppendHeader(table.Row{"종목", "활성", "출처", "조건식", "메모"})

	for _, s := range stocks {
		active := "비활성"
		if s.IsActive {
			active = "활성"
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%s (%s)", s.StockName, s.StockCode),
			active,
			s.SourceType,
			s.ConditionName,
			s.Notes,
		})
	}

	t.Render()
}

// Strategies renders the configured strategies and the strategy monitor's
// run state.
func Strategies(w io.Writer, strategies []models.Strategy, running bool) {
	state := "중지됨"
	if running {
		state = "실행 중"
	}
	fmt.Fprintf(w, "전략 모니터: %s\n", state)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("매매 전략")
	t.AppendHeader(table.Row{"전략명", "유형", "사용", "파라미터"})

	for _, s := range strategies {
		enabled := "꺼짐"
		if s.IsEnabled {
			enabled = "켜짐"
		}
		params := ""
		if len(s.Parameters) > 0 {
			encoded, err := json.Marshal(s.Parameters)
			if err == nil {
				params = string(encoded)
			}
		}
		t.AppendRow(table.Row{s.StrategyName, s.StrategyType, enabled, params})
	}

	t.Render()
}

// progressBar renders the one-line stage strip, e.g. "●●●◐○○".
func progressBar(lc lifecycle.Lifecycle) string {
	var b strings.Builder
	for _, stage := range lc {
		b.WriteString(stageMarks[stage.Status])
	}
	return b.String()
}
