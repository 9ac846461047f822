// Package pipeline holds the pure aggregation stages of the analytics engine:
// grouping, trend detection, category insights, budget utilization and
// projections. Nothing here performs I/O or mutates its inputs.
package pipeline

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finscore/internal/model"
)

// SumBy sums amount(item) per key(item).
func SumBy[T any, K comparable](items []T, key func(T) K, amount func(T) decimal.Decimal) map[K]decimal.Decimal {
	out := make(map[K]decimal.Decimal)
	for _, it := range items {
		k := key(it)
		out[k] = out[k].Add(amount(it))
	}
	return out
}

// CountBy counts items per key(item).
func CountBy[T any, K comparable](items []T, key func(T) K) map[K]int {
	out := make(map[K]int)
	for _, it := range items {
		out[key(it)]++
	}
	return out
}

// AverageBy averages amount(item) per key(item).
func AverageBy[T any, K comparable](items []T, key func(T) K, amount func(T) decimal.Decimal) map[K]decimal.Decimal {
	sums := SumBy(items, key, amount)
	counts := CountBy(items, key)
	out := make(map[K]decimal.Decimal, len(sums))
	for k, sum := range sums {
		out[k] = model.DivAtLeastOne(sum, counts[k])
	}
	return out
}

// BucketByDay groups transactions by calendar day.
func BucketByDay(txns []model.TransactionRecord) map[time.Time]model.DayBucket {
	out := make(map[time.Time]model.DayBucket)
	for _, t := range txns {
		d := model.DateOf(t.OccurredOn)
		b := out[d]
		b.Date = d
		b.Amount = b.Amount.Add(t.Amount)
		b.Count++
		out[d] = b
	}
	return out
}

// DailySeries converts a bucket map into a slice ordered oldest first.
func DailySeries(buckets map[time.Time]model.DayBucket) []model.DayBucket {
	days := make([]model.DayBucket, 0, len(buckets))
	for _, b := range buckets {
		days = append(days, b)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	return days
}

// FillDays returns one bucket per day of the window, zero where no spend
// was recorded, so charts show gaps.
func FillDays(buckets map[time.Time]model.DayBucket, w model.PeriodWindow) []model.DayBucket {
	days := make([]model.DayBucket, 0, w.Days())
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		b, ok := buckets[d]
		if !ok {
			b = model.DayBucket{Date: d}
		}
		days = append(days, b)
	}
	return days
}

// FilterByWindow returns transactions whose date falls inside w.
func FilterByWindow(txns []model.TransactionRecord, w model.PeriodWindow) []model.TransactionRecord {
	var result []model.TransactionRecord
	for _, t := range txns {
		if w.Contains(t.OccurredOn) {
			result = append(result, t)
		}
	}
	return result
}

// FilterByCategory returns transactions of exactly the given category.
func FilterByCategory(txns []model.TransactionRecord, category string) []model.TransactionRecord {
	var result []model.TransactionRecord
	for _, t := range txns {
		if t.Category == category {
			result = append(result, t)
		}
	}
	return result
}

// Summarize computes totals over the transactions of a window. Daily average
// divides by the full window length, not by active days.
func Summarize(txns []model.TransactionRecord, w model.PeriodWindow) model.Summary {
	var s model.Summary
	for _, t := range txns {
		s.TotalAmount = s.TotalAmount.Add(t.Amount)
		s.TransactionCount++
	}
	s.AverageAmount = model.DivAtLeastOne(s.TotalAmount, s.TransactionCount)
	s.DailyAverage = model.DivAtLeastOne(s.TotalAmount, w.Days())
	return s
}

// Amounts extracts transaction amounts as floats for variance math.
func Amounts(txns []model.TransactionRecord) []float64 {
	out := make([]float64, len(txns))
	for i, t := range txns {
		out[i] = t.Amount.InexactFloat64()
	}
	return out
}

func byCategory(t model.TransactionRecord) string         { return t.Category }
func txnAmount(t model.TransactionRecord) decimal.Decimal { return t.Amount }
