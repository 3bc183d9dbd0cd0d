package lifecycle

import (
	"time"

	"kiwoom-signal-monitor-go/internal/models"
)

// Calculator derives lifecycle stage sets. It carries the fee schedule used
// for client-side P&L derivation so the whole pipeline stays a pure function
// of its inputs.
type Calculator struct {
	Fees FeeSchedule
}

// NewCalculator returns a calculator with the given fee schedule.
func NewCalculator(fees FeeSchedule) *Calculator {
	return &Calculator{Fees: fees}
}

// stageMark is one row of a transition plan: set stage Key to Status.
type stageMark struct {
	key    StageKey
	status StageStatus
}

// statusPlans maps each observable signal status to the stage states it
// implies. FAILED is handled by the keyword classifier and ORDERED gets a
// further position/sell-order refinement in Calculate.
var statusPlans = map[models.SignalStatus][]stageMark{
	models.SignalPending: {
		{StagePriceCheck, StatusActive},
	},
	models.SignalProcessing: {
		{StagePriceCheck, StatusCompleted},
		{StageQuantityCalc, StatusCompleted},
		{StageOrderPlaced, StatusActive},
	},
	models.SignalOrdered: {
		{StagePriceCheck, StatusCompleted},
		{StageQuantityCalc, StatusCompleted},
		{StageOrderPlaced, StatusCompleted},
		{StageOrderCompleted, StatusCompleted},
	},
	models.SignalCanceled: {
		{StagePriceCheck, StatusCanceled},
	},
}

// Calculate derives the stage set for one signal given its resolved position
// and sell order, either of which may be nil. It never fails: missing
// optional fields short-circuit the corresponding branch.
func (c *Calculator) Calculate(sig *models.Signal, pos *models.Position, sell *models.SellOrder) Lifecycle {
	base := sig.DetectedAt.Time

	stages := make(Lifecycle, 0, len(stageOrder)+1)
	for _, key := range stageOrder {
		stages = append(stages, Stage{
			Key:    key,
			Status: StatusUnknown,
			Time:   timePtr(base.Add(stageOffsets[key])),
			Label:  stageLabels[key],
			Icon:   stageIcons[key],
		})
	}

	// detected always reflects the signal's own clock origin.
	stages.set(StageDetected, StatusCompleted)
	stages.setTime(StageDetected, timePtr(base))

	// positionCreated has an authoritative timestamp once the fill exists.
	if pos != nil {
		stages.setTime(StagePositionCreated, timePtr(pos.EntryTime().Time))
	}

	// The sellCompleted stage exists only when a position resolved; with no
	// position there is nothing that could ever be sold, so the stage is
	// omitted entirely rather than shown as unknown. While the position still
	// reads HOLDING the stage carries no timestamp, even if a sell-order row
	// already landed in its independently fetched collection.
	if pos != nil {
		sellStage := Stage{
			Key:    StageSellCompleted,
			Status: StatusUnknown,
			Label:  stageLabels[StageSellCompleted],
			Icon:   stageIcons[StageSellCompleted],
		}
		if pos.Status.Liquidated() && sell != nil {
			sellStage.Time = timePtr(sell.SettledTime().Time)
		}
		stages = append(stages, sellStage)
	}

	if plan, ok := statusPlans[sig.Status]; ok {
		for _, mark := range plan {
			stages.set(mark.key, mark.status)
		}
	}

	switch sig.Status {
	case models.SignalOrdered:
		if pos != nil {
			stages.set(StagePositionCreated, StatusCompleted)
			if pos.Status.Liquidated() {
				switch {
				case sell == nil:
					// Liquidation recorded on the position but the sell order
					// has not been observed yet.
					stages.set(StageSellCompleted, StatusActive)
				case sell.Status == models.SellOrderCompleted:
					stages.set(StageSellCompleted, StatusCompleted)
				case sell.Status == models.SellOrderOrdered:
					stages.set(StageSellCompleted, StatusActive)
				}
			}
		} else {
			stages.set(StagePositionCreated, StatusActive)
		}
	case models.SignalFailed:
		if class, ok := classifyFailure(sig.FailureReason); ok {
			for _, key := range class.completed {
				stages.set(key, StatusCompleted)
			}
			stages.set(class.failed, StatusFailed)
		}
	}

	return stages
}

func (l Lifecycle) set(key StageKey, status StageStatus) {
	for i := range l {
		if l[i].Key == key {
			l[i].Status = status
			return
		}
	}
}

func (l Lifecycle) setTime(key StageKey, t *time.Time) {
	for i := range l {
		if l[i].Key == key {
			l[i].Time = t
			return
		}
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
