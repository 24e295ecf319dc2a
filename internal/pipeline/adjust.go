package pipeline

import (
	"math"
	"time"

	"kdtboard/internal"
)

const (
	defaultBaseCompletionRate = 0.8
	minAdjustmentRatio        = 0.9
	maxAdjustmentRatio        = 1.25
	logCurveBase              = 10.0
	minRecognitionRatio       = 0.3
)

// CompletionEstimator recomputes recognized revenue from actual completion
// figures. Nominal revenue is assumed to have been priced against the base
// completion rate; the ratio of actual to base completion scales it, floored
// and capped as a guard against over- and undercounting. Reference time is
// always an explicit argument so the estimator is deterministic under test.
type CompletionEstimator struct {
	baseRate float64
}

func NewCompletionEstimator(baseRate float64) *CompletionEstimator {
	if baseRate <= 0 {
		baseRate = defaultBaseCompletionRate
	}
	return &CompletionEstimator{baseRate: baseRate}
}

// AdjustmentRatio is clamp((completion/enrollment)/baseRate, 0.9, 1.25).
// Zero enrollment yields 1 so the nominal revenue passes through unchanged.
func (e *CompletionEstimator) AdjustmentRatio(completion, enrollment int) float64 {
	if enrollment == 0 {
		return 1
	}
	ratio := (float64(completion) / float64(enrollment)) / e.baseRate
	if ratio < minAdjustmentRatio {
		return minAdjustmentRatio
	}
	if ratio > maxAdjustmentRatio {
		return maxAdjustmentRatio
	}
	return ratio
}

// AdjustedTotal computes the recognized revenue for one record as of now.
// Courses that have not started recognize nothing. Finished courses
// recognize nominal times the adjustment ratio. In-flight courses blend the
// enrollment-based and completion-based figures through a log curve that
// favors enrollment early and completion late, then ramp recognition from
// 30% at start to 100% at end. Records without a valid span pass through
// unadjusted.
func (e *CompletionEstimator) AdjustedTotal(nominal float64, start, end *time.Time, completion, enrollment int, now time.Time) float64 {
	if start == nil || end == nil || start.After(*end) {
		return nominal
	}
	if now.Before(*start) {
		return 0
	}
	if enrollment == 0 {
		return nominal
	}

	adjustment := e.AdjustmentRatio(completion, enrollment)
	if !now.Before(*end) {
		return nominal * adjustment
	}

	progress := elapsedRatio(*start, *end, now)
	curve := logCurve(progress)

	enrollmentBased := nominal
	completionBased := nominal * adjustment
	blended := curve*enrollmentBased + (1-curve)*completionBased

	recognition := minRecognitionRatio + (1-minRecognitionRatio)*progress
	return blended * recognition
}

// logCurve decays from 1 at progress 0 to 0 at progress 1, slowly at first
// and faster toward course end.
func logCurve(progress float64) float64 {
	return 1 - math.Log(1+(logCurveBase-1)*progress)/math.Log(logCurveBase)
}

// Apply sets the adjusted revenue fields on every record, re-weighting the
// existing year buckets by the adjusted/nominal factor. YearlyRevenue is
// never mutated; the adjusted totals are an estimate, not a conservation
// law, so they need not re-sum to the nominal total across records.
func (e *CompletionEstimator) Apply(records []internal.CourseRecord, now time.Time) []internal.CourseRecord {
	out := make([]internal.CourseRecord, 0, len(records))
	for _, rec := range records {
		nominal := rec.Total()
		adjusted := e.AdjustedTotal(nominal, rec.StartDate, rec.EndDate, rec.CompletionCount, rec.EnrollmentCount, now)

		factor := 0.0
		if nominal != 0 {
			factor = adjusted / nominal
		}
		yearly := make(map[int]float64, len(rec.YearlyRevenue))
		for year, amount := range rec.YearlyRevenue {
			yearly[year] = amount * factor
		}

		rec.AdjustedYearlyRevenue = yearly
		rec.AdjustedTotalRevenue = &adjusted
		out = append(out, rec)
	}
	return out
}
