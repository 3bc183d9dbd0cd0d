package lifecycle

import (
	"math"

	"kiwoom-signal-monitor-go/internal/models"
)

// FeeSchedule holds the sell-side cost rates used to derive profit/loss when
// the backend has not computed it. The defaults are one brokerage's
// simulated-account schedule, not a universal truth, which is why this is a
// value handed to the calculator rather than package constants.
type FeeSchedule struct {
	SellFeeRate float64 // commission on gross sell amount
	TaxRate     float64 // transaction tax on gross sell amount
}

// DefaultFeeSchedule is the Kiwoom simulated-account schedule.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{SellFeeRate: 0.0035, TaxRate: 0.00557}
}

// ProfitLoss is the valuation attached to an aggregated signal. Derived marks
// values computed client-side from current_price rather than reported by the
// backend.
type ProfitLoss struct {
	Amount  int64
	Rate    float64
	Derived bool
}

// Evaluate returns the position's profit/loss, preferring backend-reported
// figures and deriving them from the current price otherwise. Returns nil
// when the position has neither a reported P&L nor a current price, or when
// no investment base can be established.
func (f FeeSchedule) Evaluate(pos *models.Position) *ProfitLoss {
	if pos == nil {
		return nil
	}

	base := pos.ActualBuyAmount
	if base <= 0 {
		base = pos.BuyPrice * pos.BuyQuantity
	}

	if pos.CurrentProfitLoss != nil {
		pl := &ProfitLoss{Amount: *pos.CurrentProfitLoss}
		if pos.CurrentProfitLossRate != nil {
			pl.Rate = *pos.CurrentProfitLossRate
		} else if base > 0 {
			pl.Rate = float64(pl.Amount) / float64(base) * 100
		}
		return pl
	}

	if pos.CurrentPrice == nil || base <= 0 {
		return nil
	}

	gross := *pos.CurrentPrice * pos.BuyQuantity
	sellFee := int64(math.Floor(float64(gross) * f.SellFeeRate))
	tax := int64(math.Floor(float64(gross) * f.TaxRate))
	evaluation := gross - sellFee - tax

	amount := evaluation - base
	return &ProfitLoss{
		Amount:  amount,
		Rate:    float64(amount) / float64(base) * 100,
		Derived: true,
	}
}
