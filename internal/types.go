package internal

import "time"

// TrainingType is the closed course taxonomy. Composite labels join several
// type names with "&" when more than one substring rule matches.
type TrainingType = string

const (
	TrainingLeadingCompany TrainingType = "선도기업형 훈련"
	TrainingIncumbent      TrainingType = "재직자 훈련"
	TrainingUniversity     TrainingType = "대학주도형 훈련"
	TrainingAdvanced       TrainingType = "심화 훈련"
	TrainingConvergence    TrainingType = "융합 훈련"
	TrainingEmergingTech   TrainingType = "신기술 훈련"
)

// RevenueMode selects which estimator augments the processed rows. The two
// estimators are alternatives, never composed.
type RevenueMode string

const (
	// RevenueModeElapsed scales year buckets linearly by elapsed days.
	RevenueModeElapsed RevenueMode = "elapsed"
	// RevenueModeCompletion blends enrollment- and completion-based revenue
	// through a log curve.
	RevenueModeCompletion RevenueMode = "completion"
	// RevenueModeNone leaves only the plain yearly distribution.
	RevenueModeNone RevenueMode = "none"
)

// CourseRecord is one row of the KDT dataset: a single offering (round) of a
// course at one institution. Optional fields are pointers; dates are nil when
// the source cell did not parse.
type CourseRecord struct {
	ID            string
	CourseID      string
	Round         int
	CourseName    string
	InstitutionID string

	// Institution is rewritten by the grouper; RawInstitution keeps the
	// pre-grouping value.
	Institution    string
	RawInstitution string

	PartnerInstitution *string
	NCSCategory        string

	StartDate *time.Time
	EndDate   *time.Time

	EnrollmentCount   int
	CompletionCount   int
	SatisfactionScore float64

	BaseRevenue float64

	TrainingType   TrainingType
	LeadingCompany bool
	// PartnerShare is the fraction of the offering's revenue carried by this
	// row after the partner split: 0.9 on a derived partner row, 0.1 on the
	// retained institution row, 1.0 otherwise.
	PartnerShare float64

	YearlyRevenue map[int]float64

	AdjustedYearlyRevenue map[int]float64
	AdjustedTotalRevenue  *float64
}

// Total returns the distributed revenue summed over all years, or BaseRevenue
// when distribution has not run yet.
func (r CourseRecord) Total() float64 {
	if len(r.YearlyRevenue) == 0 {
		return r.BaseRevenue
	}
	sum := 0.0
	for _, v := range r.YearlyRevenue {
		sum += v
	}
	return sum
}

// HasValidSpan reports whether both dates parsed and start <= end.
func (r CourseRecord) HasValidSpan() bool {
	return r.StartDate != nil && r.EndDate != nil && !r.StartDate.After(*r.EndDate)
}

// RunStats summarizes one processing run for the runs table and log output.
type RunStats struct {
	Records        int
	Institutions   int
	Groups         int
	LeadingCompany int
	PartnerRows    int
	Skipped        int
}

// DatasetRow identifies one ingested source file in storage.
type DatasetRow struct {
	ID         int
	SourcePath string
	Hash       string
	IngestedAt string
	Status     string
	Rows       int
}
