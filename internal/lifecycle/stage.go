// Package lifecycle reconstructs a per-signal progress state machine from
// snapshots of three independently fetched backend collections: signals,
// positions, and sell orders. The backend owns all transitions; this package
// only infers how far each signal has advanced, for display.
package lifecycle

import "time"

// StageKey identifies one step of the signal lifecycle.
type StageKey string

const (
	StageDetected        StageKey = "detected"
	StagePriceCheck      StageKey = "priceCheck"
	StageQuantityCalc    StageKey = "quantityCalc"
	StageOrderPlaced     StageKey = "orderPlaced"
	StageOrderCompleted  StageKey = "orderCompleted"
	StagePositionCreated StageKey = "positionCreated"
	StageSellCompleted   StageKey = "sellCompleted"
)

// StageStatus is the derived state of one lifecycle stage.
type StageStatus string

const (
	StatusCompleted StageStatus = "completed"
	StatusActive    StageStatus = "active"
	StatusFailed    StageStatus = "failed"
	StatusCanceled  StageStatus = "canceled"
	StatusUnknown   StageStatus = "unknown"
)

// Stage is one derived lifecycle step. Time is nil when no timestamp, real or
// synthetic, applies.
type Stage struct {
	Key    StageKey    `json:"key"`
	Status StageStatus `json:"status"`
	Time   *time.Time  `json:"time"`
	Label  string      `json:"label"`
	Icon   string      `json:"icon"`
}

// Lifecycle is the ordered stage set for one signal. Ordering is fixed and
// total; the sellCompleted stage is present only when a position resolved.
type Lifecycle []Stage

// Stage returns the stage with the given key.
func (l Lifecycle) Stage(key StageKey) (Stage, bool) {
	for _, s := range l {
		if s.Key == key {
			return s, true
		}
	}
	return Stage{}, false
}

// Progress is the completed-stage ratio as a percentage, the figure behind
// the dashboard progress bar.
func (l Lifecycle) Progress() float64 {
	if len(l) == 0 {
		return 0
	}
	var completed int
	for _, s := range l {
		if s.Status == StatusCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(l)) * 100
}

// stageOrder fixes the total order of stages. sellCompleted comes last and is
// conditionally appended by the calculator.
var stageOrder = []StageKey{
	StageDetected,
	StagePriceCheck,
	StageQuantityCalc,
	StageOrderPlaced,
	StageOrderCompleted,
	StagePositionCreated,
}

// stageOffsets are the synthetic timestamps, relative to detected_at, used
// when no authoritative source for a stage time exists. The values mirror the
// backend executor's typical pacing.
var stageOffsets = map[StageKey]time.Duration{
	StageDetected:        0,
	StagePriceCheck:      2 * time.Second,
	StageQuantityCalc:    4 * time.Second,
	StageOrderPlaced:     6 * time.Second,
	StageOrderCompleted:  10 * time.Second,
	StagePositionCreated: 12 * time.Second,
}

var stageLabels = map[StageKey]string{
	StageDetected:        "시그널 포착",
	StagePriceCheck:      "현재가 조회",
	StageQuantityCalc:    "수량 계산",
	StageOrderPlaced:     "주문 실행",
	StageOrderCompleted:  "주문 완료",
	StagePositionCreated: "포지션 생성",
	StageSellCompleted:   "매도 완료",
}

var stageIcons = map[StageKey]string{
	StageDetected:        "fa-radar",
	StagePriceCheck:      "fa-dollar-sign",
	StageQuantityCalc:    "fa-calculator",
	StageOrderPlaced:     "fa-paper-plane",
	StageOrderCompleted:  "fa-check-circle",
	StagePositionCreated: "fa-briefcase",
	StageSellCompleted:   "fa-flag-checkered",
}
