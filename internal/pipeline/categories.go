package pipeline

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finscore/internal/model"
)

// Frequency thresholds are exclusive: 11 transactions is high, 10 is medium.
const (
	HighFrequencyOver   = 10
	MediumFrequencyOver = 5
)

// ClassifyFrequency labels a category by its transaction count.
func ClassifyFrequency(count int) model.Frequency {
	switch {
	case count > HighFrequencyOver:
		return model.FrequencyHigh
	case count > MediumFrequencyOver:
		return model.FrequencyMedium
	default:
		return model.FrequencyLow
	}
}

// CategoryInsights computes the per-category breakdown, sorted by total
// descending with ties broken by category name ascending.
func CategoryInsights(txns []model.TransactionRecord) []model.CategoryInsight {
	totals := SumBy(txns, byCategory, txnAmount)
	counts := CountBy(txns, byCategory)

	var grand decimal.Decimal
	for _, t := range totals {
		grand = grand.Add(t)
	}

	rows := make([]model.CategoryInsight, 0, len(totals))
	for cat, total := range totals {
		n := counts[cat]
		rows = append(rows, model.CategoryInsight{
			Category:          cat,
			Total:             total,
			Count:             n,
			Average:           model.DivAtLeastOne(total, n),
			PercentageOfTotal: model.Clamp(model.Percent(total, grand), 0, 100),
			Frequency:         ClassifyFrequency(n),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if c := rows[i].Total.Cmp(rows[j].Total); c != 0 {
			return c > 0
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}

// Diversity is the number of distinct categories with spend.
func Diversity(txns []model.TransactionRecord) int {
	return len(CountBy(txns, byCategory))
}

// TopCategory returns the highest-spend row, if any.
func TopCategory(rows []model.CategoryInsight) (model.CategoryInsight, bool) {
	if len(rows) == 0 {
		return model.CategoryInsight{}, false
	}
	return rows[0], true
}
