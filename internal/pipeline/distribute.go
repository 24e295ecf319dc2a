package pipeline

import (
	"time"

	"kdtboard/internal"
)

// UndatedYear is the bucket key for records without a valid course span.
const UndatedYear = 0

// YearlyDistribution spreads a total across the calendar years of
// [start, end], proportional to the inclusive month count each year
// contributes. The bucket values sum to the total. Records without a valid
// span get everything in the UndatedYear bucket.
func YearlyDistribution(total float64, start, end *time.Time) map[int]float64 {
	if start == nil || end == nil || start.After(*end) {
		return map[int]float64{UndatedYear: total}
	}

	months := monthSpan(*start, *end)
	if months <= 0 {
		return map[int]float64{UndatedYear: total}
	}

	monthly := total / float64(months)
	out := map[int]float64{}
	year, month := start.Year(), int(start.Month())
	for i := 0; i < months; i++ {
		out[year] += monthly
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return out
}

// RevenueForYear returns a single year's share of the distribution, 0 when
// the course does not touch that year or has no valid span.
func RevenueForYear(total float64, start, end *time.Time, targetYear int) float64 {
	if start == nil || end == nil || start.After(*end) {
		return 0
	}
	return YearlyDistribution(total, start, end)[targetYear]
}

// monthSpan is the inclusive count of calendar months between two dates.
func monthSpan(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
}

// DistributeRecords fills each record's YearlyRevenue from its BaseRevenue
// and course span.
func DistributeRecords(records []internal.CourseRecord) []internal.CourseRecord {
	out := make([]internal.CourseRecord, 0, len(records))
	for _, rec := range records {
		rec.YearlyRevenue = YearlyDistribution(rec.BaseRevenue, rec.StartDate, rec.EndDate)
		out = append(out, rec)
	}
	return out
}

// ElapsedRevenue is the as-of-today variant: nothing is recognized before
// the course starts, everything after it ends, and an in-flight course
// recognizes each year bucket linearly by elapsed days. Distinct from the
// completion-based estimator; the two are never composed.
func ElapsedRevenue(total float64, start, end *time.Time, now time.Time) map[int]float64 {
	if start == nil || end == nil || start.After(*end) {
		return map[int]float64{}
	}
	if now.Before(*start) {
		return map[int]float64{}
	}

	full := YearlyDistribution(total, start, end)
	if !now.Before(*end) {
		return full
	}

	ratio := elapsedRatio(*start, *end, now)
	out := make(map[int]float64, len(full))
	for year, amount := range full {
		out[year] = amount * ratio
	}
	return out
}

func elapsedRatio(start, end, now time.Time) float64 {
	totalDays := end.Sub(start).Hours()/24 + 1
	if totalDays <= 0 {
		return 1
	}
	elapsed := now.Sub(start).Hours()/24 + 1
	ratio := elapsed / totalDays
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// ApplyElapsedRevenue sets the adjusted fields from the elapsed-time
// estimator, leaving YearlyRevenue untouched.
func ApplyElapsedRevenue(records []internal.CourseRecord, now time.Time) []internal.CourseRecord {
	out := make([]internal.CourseRecord, 0, len(records))
	for _, rec := range records {
		adjusted := ElapsedRevenue(rec.Total(), rec.StartDate, rec.EndDate, now)
		total := 0.0
		for _, v := range adjusted {
			total += v
		}
		rec.AdjustedYearlyRevenue = adjusted
		rec.AdjustedTotalRevenue = &total
		out = append(out, rec)
	}
	return out
}
