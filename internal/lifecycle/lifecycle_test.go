package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiwoom-signal-monitor-go/internal/models"
)

var detectedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newSignal(id int64, status models.SignalStatus) models.Signal {
	return models.Signal{
		ID:         id,
		StockCode:  "005930",
		StockName:  "삼성전자",
		Status:     status,
		SignalType: "condition",
		DetectedAt: models.NewTime(detectedAt),
	}
}

func newPosition(id, signalID int64, status models.PositionStatus) models.Position {
	return models.Position{
		ID:          id,
		SignalID:    signalID,
		StockCode:   "005930",
		StockName:   "삼성전자",
		Status:      status,
		BuyPrice:    1000,
		BuyQuantity: 5,
		BuyAmount:   5000,
		BuyTime:     models.NewTime(detectedAt.Add(5 * time.Second)),
		CreatedAt:   models.NewTime(detectedAt.Add(6 * time.Second)),
	}
}

func requireStage(t *testing.T, lc Lifecycle, key StageKey) Stage {
	t.Helper()
	stage, ok := lc.Stage(key)
	require.True(t, ok, "stage %s missing", key)
	return stage
}

func TestCalculateDetectedAlwaysCompleted(t *testing.T) {
	calc := NewCalculator(DefaultFeeSchedule())

	for _, status := range []models.SignalStatus{
		models.SignalPending,
		models.SignalProcessing,
		models.SignalOrdered,
		models.SignalFailed,
		models.SignalCanceled,
	} {
		sig := newSignal(1, status)
		lc := calc.Calculate(&sig, nil, nil)

		stage := requireStage(t, lc, StageDetected)
		assert.Equal(t, StatusCompleted, stage.Status, "status %s", status)
		require.NotNil(t, stage.Time)
		assert.True(t, stage.Time.Equal(detectedAt), "detected time must be detected_at")
	}
}

func TestCalculateSyntheticStageTimes(t *testing.T) {
	calc := NewCalculator(DefaultFeeSchedule())
	sig := newSignal(1, models.SignalPending)
	lc := calc.Calculate(&sig, nil, nil)

	expected := map[StageKey]time.Duration{
		StagePriceCheck:      2 * time.Second,
		StageQuantityCalc:    4 * time.Second,
		StageOrderPlaced:     6 * time.Second,
		StageOrderCompleted:  10 * time.Second,
		StagePositionCreated: 12 * time.Second,
	}
	for key, offset := range expected {
		stage := requireStage(t, lc, key)
		require.NotNil(t, stage.Time, "stage %s", key)
		assert.True(t, stage.Time.Equal(detectedAt.Add(offset)), "stage %s offset", key)
	}
}

func TestCalculateStatusPlans(t *testing.T) {
	calc := NewCalculator(DefaultFeeSchedule())

	tests := []struct {
		name   string
		status models.SignalStatus
		want   map[StageKey]StageStatus
	}{
		{
			name:   "pending activates price check",
			status: models.SignalPending,
			want: map[StageKey]StageStatus{
				StagePriceCheck:      StatusActive,
				StageQuantityCalc:    StatusUnknown,
				StageOrderPlaced:     StatusUnknown,
				StageOrderCompleted:  StatusUnknown,
				StagePositionCreated: StatusUnknown,
			},
		},
		{
			name:   "processing activates order placement",
			status: models.SignalProcessing,
			want: map[StageKey]StageStatus{
				StagePriceCheck:      StatusCompleted,
				StageQuantityCalc:    StatusCompleted,
				StageOrderPlaced:     StatusActive,
				StageOrderCompleted:  StatusUnknown,
				StagePositionCreated: StatusUnknown,
			},
		},
		{
			name:   "canceled stops at price check",
			status: models.SignalCanceled,
			want: map[StageKey]StageStatus{
				StagePriceCheck:      StatusCanceled,
				StageQuantityCalc:    StatusUnknown,
				StageOrderPlaced:     StatusUnknown,
				StageOrderCompleted:  StatusUnknown,
				StagePositionCreated: StatusUnknown,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := newSignal(1, tt.status)
			lc := calc.Calculate(&sig, nil, nil)
			for key, status := range tt.want {
				assert.Equal(t, status, requireStage(t, lc, key).Status, "stage %s", key)
			}
		})
	}
}

func TestCalculateOrderedWithoutPositionOmitsSellStage(t *testing.T) {
	calc := NewCalculator(DefaultFeeSchedule())
	sig := newSignal(1, models.SignalOrdered)
	lc := calc.Calculate(&sig, nil, nil)

	assert.Equal(t, StatusActive, requireStage(t, lc, StagePositionCreated).Status)

	_, ok := lc.Stage(StageSellCompleted)
	assert.False(t, ok, "sellCompleted must be omitted entirely when no position resolved")
	assert.Len(t, lc, 6)
}

func TestCalculateOrderedHoldingPosition(t *testing.T) {
	calc := NewCalculator(DefaultFeeSchedule())
	sig := newSignal(1, models.SignalOrdered)
	pos := newPosition(10, 1, models.PositionHolding)

	lc := calc.Calculate(&sig, &pos, nil)

	created := requireStage(t, lc, StagePositionCreated)
	assert.Equal(t, StatusCompleted, created.Status)
	require.NotNil(t, created.Time)
	assert.True(t, created.Time.Equal(pos.BuyTime.Time), "positionCreated uses the position's buy time")

	sell := requireStage(t, lc, StageSellCompleted)
	assert.Equal(t, StatusUnknown, sell.Status)
	assert.Nil(t, sell.Time)
}

func TestCalculateHoldingPositionIgnoresStraySellOrder(t *testing.T) {
	// The collections are fetched independently, so a sell-order row can land
	// while the position snapshot still reads HOLDING. The sell stage must
	// stay unknown with no timestamp until the position reflects the exit.
	calc := NewCalculator(DefaultFeeSchedule())
	sig := newSignal(1, models.SignalOrdered)
	pos := newPosition(10, 1, models.PositionHolding)
	sell := &models.SellOrder{
		ID: 20, PositionID: 10,
		Status:    models.SellOrderOrdered,
		OrderedAt: models.NewTime(time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)),
	}

	lc := calc.Calculate(&sig, &pos, sell)

	stage := requireStage(t, lc, StageSellCompleted)
	assert.Equal(t, StatusUnknown, stage.Status)
	assert.Nil(t, stage.Time)
}

func TestCalculateLiquidatedPositionSellStates(t *testing.T) {
	calc := NewCalculator(DefaultFeeSchedule())
	completedAt := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	orderedAt := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		sell       *models.SellOrder
		wantStatus StageStatus
		wantTime   *time.Time
	}{
		{
			name: "completed sell order",
			sell: &models.SellOrder{
				ID: 20, PositionID: 10,
				Status:      models.SellOrderCompleted,
				CompletedAt: models.NewTime(completedAt),
				OrderedAt:   models.NewTime(orderedAt),
			},
			wantStatus: StatusCompleted,
			wantTime:   &completedAt,
		},
		{
			name: "ordered sell order falls back to ordered_at",
			sell: &models.SellOrder{
				ID: 20, PositionID: 10,
				Status:    models.SellOrderOrdered,
				OrderedAt: models.NewTime(orderedAt),
			},
			wantStatus: StatusActive,
			wantTime:   &orderedAt,
		},
		{
			name:       "no sell order observed yet",
			sell:       nil,
			wantStatus: StatusActive,
			wantTime:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := newSignal(1, models.SignalOrdered)
			pos := newPosition(10, 1, models.PositionTakeProfit)
			lc := calc.Calculate(&sig, &pos, tt.sell)

			sell := requireStage(t, lc, StageSellCompleted)
			assert.Equal(t, tt.wantStatus, sell.Status)
			if tt.wantTime == nil {
				assert.Nil(t, sell.Time)
			} else {
				require.NotNil(t, sell.Time)
				assert.True(t, sell.Time.Equal(*tt.wantTime))
			}
		})
	}
}

func TestCalculateFailedReasonClassification(t *testing.T) {
	calc := NewCalculator(DefaultFeeSchedule())

	tests := []struct {
		name       string
		reason     string
		wantFailed StageKey
		wantDone   []StageKey
	}{
		{
			name:       "price lookup failure",
			reason:     "현재가 조회 실패",
			wantFailed: StagePriceCheck,
		},
		{
			name:       "quantity shortfall",
			reason:     "수량 부족",
			wantFailed: StageQuantityCalc,
			wantDone:   []StageKey{StagePriceCheck},
		},
		{
			name:       "deposit shortfall",
			reason:     "예수금 부족",
			wantFailed: StageQuantityCalc,
			wantDone:   []StageKey{StagePriceCheck},
		},
		{
			name:       "order rejection",
			reason:     "주문 거부됨",
			wantFailed: StageOrderPlaced,
			wantDone:   []StageKey{StagePriceCheck, StageQuantityCalc},
		},
		{
			name:       "unmatched reason falls back to order placement",
			reason:     "알 수 없는 오류",
			wantFailed: StageOrderPlaced,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := newSignal(1, models.SignalFailed)
			sig.FailureReason = tt.reason
			lc := calc.Calculate(&sig, nil, nil)

			assert.Equal(t, StatusFailed, requireStage(t, lc, tt.wantFailed).Status)
			for _, key := range tt.wantDone {
				assert.Equal(t, StatusCompleted, requireStage(t, lc, key).Status, "stage %s", key)
			}
		})
	}
}

func TestCalculateFailedWithoutReasonAdvancesNothing(t *testing.T) {
	calc := NewCalculator(DefaultFeeSchedule())
	sig := newSignal(1, models.SignalFailed)
	lc := calc.Calculate(&sig, nil, nil)

	for _, key := range []StageKey{StagePriceCheck, StageQuantityCalc, StageOrderPlaced, StageOrderCompleted, StagePositionCreated} {
		assert.Equal(t, StatusUnknown, requireStage(t, lc, key).Status, "stage %s", key)
	}
}

func TestClassifierPrecedenceIsFirstMatch(t *testing.T) {
	// "현재가" and "주문" both match; check order resolves the ambiguity.
	class, ok := classifyFailure("현재가 조회 중 주문 오류")
	require.True(t, ok)
	assert.Equal(t, StagePriceCheck, class.failed)
}

func TestBuildPositionIndex(t *testing.T) {
	positions := []models.Position{
		{ID: 1, SignalID: 100},
		{ID: 2, SignalID: 0}, // no back-reference, skipped
		{ID: 3, SignalID: 100},
		{ID: 4, SignalID: 200},
	}

	index := BuildPositionIndex(positions)

	require.Len(t, index, 2)
	assert.Equal(t, int64(3), index[100].ID, "last write wins on duplicate signal_id")
	assert.Equal(t, int64(4), index[200].ID)
}

func TestBuildSellOrderIndex(t *testing.T) {
	orders := []models.SellOrder{
		{ID: 1, PositionID: 10},
		{ID: 2, PositionID: 0}, // skipped
		{ID: 3, PositionID: 10},
	}

	index := BuildSellOrderIndex(orders)

	require.Len(t, index, 1)
	assert.Equal(t, int64(3), index[10].ID)
}

func TestAggregatePrefersEmbeddedPosition(t *testing.T) {
	calc := NewCalculator(DefaultFeeSchedule())

	embedded := newPosition(99, 1, models.PositionHolding)
	sig := newSignal(1, models.SignalOrdered)
	sig.Position = &embedded

	stale := newPosition(10, 1, models.PositionStopLoss)

	views := calc.Aggregate([]models.Signal{sig}, []models.Position{stale}, nil)

	require.Len(t, views, 1)
	require.NotNil(t, views[0].Position)
	assert.Equal(t, int64(99), views[0].Position.ID, "embedded position is authoritative over the index")
}

func TestAggregateSortsByDetectionTimeDescending(t *testing.T) {
	calc := NewCalculator(DefaultFeeSchedule())

	t0 := detectedAt
	t1 := detectedAt.Add(1 * time.Minute)
	t2 := detectedAt.Add(2 * time.Minute)

	sigs := []models.Signal{
		newSignal(1, models.SignalPending),
		newSignal(2, models.SignalPending),
		newSignal(3, models.SignalPending),
	}
	sigs[0].DetectedAt = models.NewTime(t0)
	sigs[1].DetectedAt = models.NewTime(t2)
	sigs[2].DetectedAt = models.NewTime(t1)

	views := calc.Aggregate(sigs, nil, nil)

	require.Len(t, views, 3)
	assert.Equal(t, int64(2), views[0].Signal.ID)
	assert.Equal(t, int64(3), views[1].Signal.ID)
	assert.Equal(t, int64(1), views[2].Signal.ID)
}

func TestAggregateStableOnEqualDetectionTimes(t *testing.T) {
	calc := NewCalculator(DefaultFeeSchedule())

	sigs := []models.Signal{
		newSignal(1, models.SignalPending),
		newSignal(2, models.SignalPending),
		newSignal(3, models.SignalPending),
	}

	views := calc.Aggregate(sigs, nil, nil)

	require.Len(t, views, 3)
	assert.Equal(t, int64(1), views[0].Signal.ID)
	assert.Equal(t, int64(2), views[1].Signal.ID)
	assert.Equal(t, int64(3), views[2].Signal.ID)
}

func TestAggregateIsIdempotent(t *testing.T) {
	calc := NewCalculator(DefaultFeeSchedule())

	sigs := []models.Signal{
		newSignal(1, models.SignalOrdered),
		newSignal(2, models.SignalFailed),
	}
	sigs[1].FailureReason = "예수금 부족"
	positions := []models.Position{newPosition(10, 1, models.PositionTakeProfit)}
	sells := []models.SellOrder{{
		ID: 20, PositionID: 10,
		Status:      models.SellOrderCompleted,
		CompletedAt: models.NewTime(detectedAt.Add(time.Hour)),
	}}

	first := calc.Aggregate(sigs, positions, sells)
	second := calc.Aggregate(sigs, positions, sells)

	assert.Equal(t, first, second, "aggregation must be a pure function of its inputs")
}

func TestAggregateScenarioHoldingPosition(t *testing.T) {
	// Signal ORDERED + HOLDING position, no sell order.
	calc := NewCalculator(DefaultFeeSchedule())

	sig := newSignal(1, models.SignalOrdered)
	pos := newPosition(10, 1, models.PositionHolding)
	pos.BuyTime = models.NewTime(detectedAt.Add(5 * time.Second))

	views := calc.Aggregate([]models.Signal{sig}, []models.Position{pos}, nil)
	require.Len(t, views, 1)
	lc := views[0].Lifecycle

	created := requireStage(t, lc, StagePositionCreated)
	assert.Equal(t, StatusCompleted, created.Status)
	require.NotNil(t, created.Time)
	assert.True(t, created.Time.Equal(detectedAt.Add(5*time.Second)))

	sell := requireStage(t, lc, StageSellCompleted)
	assert.Equal(t, StatusUnknown, sell.Status)
	assert.Nil(t, sell.Time)
}

func TestAggregateScenarioCompletedSell(t *testing.T) {
	// Same as above but liquidated via take-profit with a completed sell order.
	calc := NewCalculator(DefaultFeeSchedule())
	completedAt := detectedAt.Add(time.Hour)

	sig := newSignal(1, models.SignalOrdered)
	pos := newPosition(10, 1, models.PositionTakeProfit)
	sells := []models.SellOrder{{
		ID: 20, PositionID: 10,
		Status:      models.SellOrderCompleted,
		CompletedAt: models.NewTime(completedAt),
	}}

	views := calc.Aggregate([]models.Signal{sig}, []models.Position{pos}, sells)
	require.Len(t, views, 1)

	sell := requireStage(t, views[0].Lifecycle, StageSellCompleted)
	assert.Equal(t, StatusCompleted, sell.Status)
	require.NotNil(t, sell.Time)
	assert.True(t, sell.Time.Equal(completedAt))
}

func TestLifecycleProgress(t *testing.T) {
	lc := Lifecycle{
		{Key: StageDetected, Status: StatusCompleted},
		{Key: StagePriceCheck, Status: StatusCompleted},
		{Key: StageQuantityCalc, Status: StatusActive},
		{Key: StageOrderPlaced, Status: StatusUnknown},
	}
	assert.InDelta(t, 50.0, lc.Progress(), 1e-9)
	assert.Zero(t, Lifecycle{}.Progress())
}
