package dispatcher

import (
	"strings"

	"github.com/shopspring/decimal"

	"voicetrader/src/model"
)

// Money totals are rounded to cents.
const moneyPlaces = 2

func positionsProfit(positions []model.Position) float64 {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(decimal.NewFromFloat(p.Profit))
	}
	return total.Round(moneyPlaces).InexactFloat64()
}

func mt5Profit(positions []model.MT5Position) float64 {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(decimal.NewFromFloat(p.Profit)).Add(decimal.NewFromFloat(p.Swap))
	}
	return total.Round(moneyPlaces).InexactFloat64()
}

// profitTableTotal sums sell_price - buy_price over raw profit table rows.
// Rows missing either price are skipped.
func profitTableTotal(rows []map[string]interface{}) float64 {
	total := decimal.Zero
	for _, row := range rows {
		buy, ok := decimalOf(row["buy_price"])
		if !ok {
			continue
		}
		sell, ok := decimalOf(row["sell_price"])
		if !ok {
			continue
		}
		total = total.Add(sell.Sub(buy))
	}
	return total.Round(moneyPlaces).InexactFloat64()
}

func decimalOf(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}
