package report

import (
	"math"
	"testing"
	"time"

	"kdtboard/internal"
	"kdtboard/internal/util"
)

func record(institution string, yearly map[int]float64) internal.CourseRecord {
	return internal.CourseRecord{Institution: institution, YearlyRevenue: yearly, PartnerShare: 1}
}

func TestByInstitutionRanking(t *testing.T) {
	records := []internal.CourseRecord{
		record("엘리스", map[int]float64{2024: 100}),
		record("멀티캠퍼스", map[int]float64{2024: 500}),
		record("엘리스", map[int]float64{2024: 150}),
	}

	summaries := ByInstitution(records)
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries", len(summaries))
	}
	if summaries[0].Institution != "멀티캠퍼스" {
		t.Fatalf("ranking: got %q first", summaries[0].Institution)
	}
	if summaries[1].Revenue != 250 || summaries[1].Courses != 2 {
		t.Fatalf("aggregation: %+v", summaries[1])
	}
}

func TestByInstitutionWeightedSatisfaction(t *testing.T) {
	a := record("엘리스", map[int]float64{2024: 1})
	a.EnrollmentCount, a.SatisfactionScore = 10, 4.0
	b := record("엘리스", map[int]float64{2024: 1})
	b.EnrollmentCount, b.SatisfactionScore = 30, 5.0

	summaries := ByInstitution([]internal.CourseRecord{a, b})
	want := (4.0*10 + 5.0*30) / 40
	if math.Abs(summaries[0].Satisfaction-want) > 1e-9 {
		t.Fatalf("got %v want %v", summaries[0].Satisfaction, want)
	}

	empty := ByInstitution([]internal.CourseRecord{record("무인기관", map[int]float64{2024: 1})})
	if empty[0].Satisfaction != 0 {
		t.Fatalf("zero enrollment satisfaction: %v", empty[0].Satisfaction)
	}
}

func TestByYearAndTrainingType(t *testing.T) {
	a := record("엘리스", map[int]float64{2023: 100, 2024: 200})
	a.TrainingType = internal.TrainingEmergingTech
	b := record("멀티캠퍼스", map[int]float64{2024: 300})
	b.TrainingType = internal.TrainingLeadingCompany

	byYear := ByYear([]internal.CourseRecord{a, b})
	if byYear[2023] != 100 || byYear[2024] != 500 {
		t.Fatalf("by year: %v", byYear)
	}

	byType := ByTrainingType([]internal.CourseRecord{a, b})
	if byType[internal.TrainingEmergingTech] != 300 || byType[internal.TrainingLeadingCompany] != 300 {
		t.Fatalf("by type: %v", byType)
	}

	years := Years([]internal.CourseRecord{a, b})
	if len(years) != 2 || years[0] != 2023 || years[1] != 2024 {
		t.Fatalf("years: %v", years)
	}
}

func TestMonthlyRevenue(t *testing.T) {
	rec := internal.CourseRecord{
		Institution:   "엘리스",
		StartDate:     util.DatePtr(time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:       util.DatePtr(time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)),
		YearlyRevenue: map[int]float64{2023: 200000, 2024: 200000},
		PartnerShare:  1,
	}

	monthly := MonthlyRevenue([]internal.CourseRecord{rec}, 2024)
	if math.Abs(monthly[0]-100000) > 1e-6 || math.Abs(monthly[1]-100000) > 1e-6 {
		t.Fatalf("jan/feb: %v %v", monthly[0], monthly[1])
	}
	if monthly[5] != 0 {
		t.Fatalf("june should be empty: %v", monthly[5])
	}

	undated := MonthlyRevenue([]internal.CourseRecord{{Institution: "엘리스", YearlyRevenue: map[int]float64{0: 100}}}, 2024)
	for _, v := range undated {
		if v != 0 {
			t.Fatalf("undated record distributed: %v", undated)
		}
	}
}
