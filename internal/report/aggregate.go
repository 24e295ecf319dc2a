// Package report aggregates processed course records for the dashboard
// layer: institution rankings, per-year and per-month revenue, taxonomy
// breakdowns.
package report

import (
	"sort"

	"kdtboard/internal"
)

type InstitutionSummary struct {
	Institution     string
	Courses         int
	Enrollment      int
	Completion      int
	Satisfaction    float64 // enrollment-weighted mean, 0 when no enrollment
	Revenue         float64
	AdjustedRevenue float64
	RevenueByYear   map[int]float64
}

// ByInstitution groups records by (grouped) institution and ranks them by
// adjusted revenue when present, nominal revenue otherwise.
func ByInstitution(records []internal.CourseRecord) []InstitutionSummary {
	byName := map[string]*InstitutionSummary{}
	weight := map[string]float64{}
	var order []string

	for _, rec := range records {
		s, ok := byName[rec.Institution]
		if !ok {
			s = &InstitutionSummary{Institution: rec.Institution, RevenueByYear: map[int]float64{}}
			byName[rec.Institution] = s
			order = append(order, rec.Institution)
		}
		s.Courses++
		s.Enrollment += rec.EnrollmentCount
		s.Completion += rec.CompletionCount
		s.Satisfaction += rec.SatisfactionScore * float64(rec.EnrollmentCount)
		weight[rec.Institution] += float64(rec.EnrollmentCount)
		s.Revenue += rec.Total()
		if rec.AdjustedTotalRevenue != nil {
			s.AdjustedRevenue += *rec.AdjustedTotalRevenue
		}
		for year, amount := range rec.YearlyRevenue {
			s.RevenueByYear[year] += amount
		}
	}

	out := make([]InstitutionSummary, 0, len(byName))
	for _, name := range order {
		s := byName[name]
		if weight[name] > 0 {
			s.Satisfaction /= weight[name]
		} else {
			s.Satisfaction = 0
		}
		out = append(out, *s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return rankRevenue(out[i]) > rankRevenue(out[j])
	})
	return out
}

func rankRevenue(s InstitutionSummary) float64 {
	if s.AdjustedRevenue != 0 {
		return s.AdjustedRevenue
	}
	return s.Revenue
}

// TopInstitutions truncates a ranking to its first n entries.
func TopInstitutions(summaries []InstitutionSummary, n int) []InstitutionSummary {
	if n >= 0 && len(summaries) > n {
		return summaries[:n]
	}
	return summaries
}

// ByYear sums distributed revenue per calendar year across all records.
func ByYear(records []internal.CourseRecord) map[int]float64 {
	out := map[int]float64{}
	for _, rec := range records {
		for year, amount := range rec.YearlyRevenue {
			out[year] += amount
		}
	}
	return out
}

// ByTrainingType sums distributed revenue per taxonomy label (composite
// labels count as their own bucket, matching how the dashboards render).
func ByTrainingType(records []internal.CourseRecord) map[string]float64 {
	out := map[string]float64{}
	for _, rec := range records {
		out[rec.TrainingType] += rec.Total()
	}
	return out
}

// ByNCSCategory sums distributed revenue per NCS category.
func ByNCSCategory(records []internal.CourseRecord) map[string]float64 {
	out := map[string]float64{}
	for _, rec := range records {
		out[rec.NCSCategory] += rec.Total()
	}
	return out
}

// MonthlyRevenue spreads each record's revenue evenly over its course months
// and returns the 12 month buckets of one target year. Records without a
// valid span are excluded.
func MonthlyRevenue(records []internal.CourseRecord, year int) [12]float64 {
	var out [12]float64
	for _, rec := range records {
		if !rec.HasValidSpan() {
			continue
		}
		start, end := *rec.StartDate, *rec.EndDate
		months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
		if months <= 0 {
			continue
		}
		monthly := rec.Total() / float64(months)
		y, m := start.Year(), int(start.Month())
		for i := 0; i < months; i++ {
			if y == year {
				out[m-1] += monthly
			}
			m++
			if m > 12 {
				m = 1
				y++
			}
		}
	}
	return out
}

// Years lists the calendar years present in the record set, ascending,
// excluding the undated bucket.
func Years(records []internal.CourseRecord) []int {
	seen := map[int]struct{}{}
	for _, rec := range records {
		for year := range rec.YearlyRevenue {
			if year > 0 {
				seen[year] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(seen))
	for year := range seen {
		out = append(out, year)
	}
	sort.Ints(out)
	return out
}
