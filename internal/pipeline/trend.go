package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finscore/internal/model"
)

// RecentBuckets is how many trailing buckets form the "recent" side of a
// trend comparison.
const RecentBuckets = 7

// AnalyzeTrend compares the mean of the last min(RecentBuckets, n) buckets
// with the mean of the buckets before them. The split counts buckets, not
// calendar days, so gaps between spending days do not move it.
//
// With fewer than two buckets, or when no bucket precedes the recent ones,
// the trend is stable with zero magnitude. The earlier average is floored
// at 1 when used as a denominator.
func AnalyzeTrend(buckets []model.DayBucket, w model.PeriodWindow) model.TrendResult {
	res := model.TrendResult{
		Direction:   model.TrendStable,
		SampleCount: len(buckets),
	}

	var total decimal.Decimal
	for i := range buckets {
		b := buckets[i]
		total = total.Add(b.Amount)
		// Ties keep the earliest date since buckets are ordered oldest first.
		if res.Highest == nil || b.Amount.GreaterThan(res.Highest.Amount) {
			res.Highest = &b
		}
		if res.Lowest == nil || b.Amount.LessThan(res.Lowest.Amount) {
			res.Lowest = &b
		}
	}
	res.AverageDaily = model.DivAtLeastOne(total, w.Days())

	if len(buckets) < 2 {
		return res
	}

	split := len(buckets) - min(RecentBuckets, len(buckets))
	if split == 0 {
		return res
	}

	var recentSum, earlierSum decimal.Decimal
	for _, b := range buckets[:split] {
		earlierSum = earlierSum.Add(b.Amount)
	}
	for _, b := range buckets[split:] {
		recentSum = recentSum.Add(b.Amount)
	}
	recentN, earlierN := len(buckets)-split, split

	res.RecentAverage = recentSum.Div(decimal.NewFromInt(int64(recentN)))
	res.EarlierAverage = earlierSum.Div(decimal.NewFromInt(int64(earlierN)))

	denom := res.EarlierAverage
	if denom.LessThan(decimal.NewFromInt(1)) {
		denom = decimal.NewFromInt(1)
	}
	diff := res.RecentAverage.Sub(res.EarlierAverage)
	res.MagnitudePercent = diff.Abs().Div(denom).Mul(decimal.NewFromInt(100)).InexactFloat64()

	switch diff.Sign() {
	case 1:
		res.Direction = model.TrendIncreasing
	case -1:
		res.Direction = model.TrendDecreasing
	}
	return res
}
