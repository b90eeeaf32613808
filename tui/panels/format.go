package panels

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/zappabad/dealsviewer/internal/deal"
	"github.com/zappabad/dealsviewer/tui/styles"
)

// DateLayout renders deal timestamps on a 12-hour clock.
const DateLayout = "2006-01-02 03:04:05"

// FormatDate renders t in local time.
func FormatDate(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// FormatPrice renders a price with two decimals.
func FormatPrice(price float64) string {
	return decimal.NewFromFloat(price).StringFixed(2)
}

// FormatAmount renders an amount rounded to a whole number.
func FormatAmount(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(0)
}

// FormatSide renders the side as a lowercase word.
func FormatSide(s deal.Side) string {
	return s.String()
}

// sideStyle colors prices green for buys and red for sells.
func sideStyle(s deal.Side) lipgloss.Style {
	if s == deal.SideSell {
		return styles.SellStyle
	}
	return styles.BuyStyle
}

// Indicator renders a column header state.
func Indicator(i deal.Indicator) string {
	switch i {
	case deal.Ascending:
		return "▲"
	case deal.Descending:
		return "▼"
	default:
		return "·"
	}
}
