// Package format converts raw numeric and time fields into the display
// strings the dashboard uses. Non-numeric input is treated as zero, never as
// an error.
package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cast"
)

// Price renders a KRW amount with thousands grouping, truncated to an
// integer: 1234567.8 -> "1,234,567".
func Price(v any) string {
	return humanize.Comma(int64(cast.ToFloat64(v)))
}

// Won renders a grouped amount with the currency suffix.
func Won(v any) string {
	return Price(v) + "원"
}

// ChangeRate renders a signed percentage with two decimals: 1.5 -> "+1.50",
// -0.337 -> "-0.34". Zero carries the plus sign, like the dashboard's delta
// badges.
func ChangeRate(v any) string {
	rate := cast.ToFloat64(v)
	sign := ""
	if rate >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f", sign, rate)
}

// SignedAmount renders a signed grouped integer delta: 1100 -> "+1,100".
// Zero renders as "+0".
func SignedAmount(v any) string {
	amount := int64(cast.ToFloat64(v))
	if amount >= 0 {
		return "+" + humanize.Comma(amount)
	}
	return humanize.Comma(amount)
}

// Quantity renders a share count: 5 -> "5주".
func Quantity(v any) string {
	return Price(v) + "주"
}

// RelativeTime renders a Korean relative timestamp against now, with the
// dashboard's thresholds: under a minute, minutes, hours, days, then an
// absolute date-time past a week.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := now.Sub(t)
	minutes := int(diff.Minutes())
	hours := int(diff.Hours())
	days := hours / 24

	switch {
	case minutes < 1:
		return "방금 전"
	case minutes < 60:
		return fmt.Sprintf("%d분 전", minutes)
	case hours < 24:
		return fmt.Sprintf("%d시간 전", hours)
	case days < 7:
		return fmt.Sprintf("%d일 전", days)
	}
	return t.Format("2006. 1. 2. 15:04")
}

// ClockTime renders the short time-of-day form used inside the lifecycle
// timeline. A nil time renders as a dash.
func ClockTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("15:04")
}
