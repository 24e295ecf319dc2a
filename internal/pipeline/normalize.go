package pipeline

import (
	"fmt"
	"strings"

	"kdtboard/internal"
)

// NormalizeRecords cleans the raw fields of a freshly ingested batch: names
// are trimmed, blank partner fields become nil, negative counters are zeroed
// and missing IDs are derived from course, round and institution. The stage
// is idempotent so re-running on already normalized rows is a no-op.
func NormalizeRecords(records []internal.CourseRecord) []internal.CourseRecord {
	out := make([]internal.CourseRecord, 0, len(records))
	for _, rec := range records {
		rec.CourseName = strings.TrimSpace(rec.CourseName)
		rec.Institution = strings.TrimSpace(rec.Institution)
		rec.InstitutionID = strings.TrimSpace(rec.InstitutionID)
		rec.NCSCategory = strings.TrimSpace(rec.NCSCategory)

		if rec.RawInstitution == "" {
			rec.RawInstitution = rec.Institution
		}

		if rec.PartnerInstitution != nil {
			trimmed := strings.TrimSpace(*rec.PartnerInstitution)
			if trimmed == "" {
				rec.PartnerInstitution = nil
			} else {
				rec.PartnerInstitution = &trimmed
			}
		}

		if rec.EnrollmentCount < 0 {
			rec.EnrollmentCount = 0
		}
		if rec.CompletionCount < 0 {
			rec.CompletionCount = 0
		}
		if rec.SatisfactionScore < 0 {
			rec.SatisfactionScore = 0
		}
		if rec.BaseRevenue < 0 {
			rec.BaseRevenue = 0
		}
		if rec.Round <= 0 {
			rec.Round = 1
		}
		if rec.PartnerShare == 0 {
			rec.PartnerShare = 1
		}

		if rec.ID == "" {
			rec.ID = fmt.Sprintf("%s-%d-%s", rec.CourseID, rec.Round, rec.InstitutionID)
		}

		out = append(out, rec)
	}
	return out
}
