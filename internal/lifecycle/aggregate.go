package lifecycle

import (
	"sort"

	"kiwoom-signal-monitor-go/internal/models"
)

// View is one aggregated dashboard row: a signal joined with its resolved
// position and sell order, the derived lifecycle, and the valuation.
type View struct {
	Signal     models.Signal
	Position   *models.Position
	SellOrder  *models.SellOrder
	Lifecycle  Lifecycle
	ProfitLoss *ProfitLoss
}

// BuildPositionIndex keys positions by originating signal ID. At most one
// position per signal exists in the domain; on duplicates the last write
// wins. Rows without a signal back-reference are skipped.
func BuildPositionIndex(positions []models.Position) map[int64]*models.Position {
	index := make(map[int64]*models.Position, len(positions))
	for i := range positions {
		if positions[i].SignalID == 0 {
			continue
		}
		index[positions[i].SignalID] = &positions[i]
	}
	return index
}

// BuildSellOrderIndex keys sell orders by position ID, last write wins,
// skipping rows without a position back-reference.
func BuildSellOrderIndex(orders []models.SellOrder) map[int64]*models.SellOrder {
	index := make(map[int64]*models.SellOrder, len(orders))
	for i := range orders {
		if orders[i].PositionID == 0 {
			continue
		}
		index[orders[i].PositionID] = &orders[i]
	}
	return index
}

// Aggregate joins the three collections into the dashboard view set, sorted
// by detection time descending with input order breaking ties. The result is
// a pure function of the inputs.
func (c *Calculator) Aggregate(signals []models.Signal, positions []models.Position, sellOrders []models.SellOrder) []View {
	posIndex := BuildPositionIndex(positions)
	sellIndex := BuildSellOrderIndex(sellOrders)

	views := make([]View, 0, len(signals))
	for i := range signals {
		sig := signals[i]

		// A position embedded on the signal is a backend pre-join and richer
		// than the index hit, which may be stale. Prefer it.
		pos := sig.Position
		if pos == nil {
			pos = posIndex[sig.ID]
		}

		var sell *models.SellOrder
		if pos != nil {
			sell = sellIndex[pos.ID]
		}

		views = append(views, View{
			Signal:     sig,
			Position:   pos,
			SellOrder:  sell,
			Lifecycle:  c.Calculate(&sig, pos, sell),
			ProfitLoss: c.Fees.Evaluate(pos),
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Signal.DetectedAt.After(views[j].Signal.DetectedAt.Time)
	})

	return views
}
