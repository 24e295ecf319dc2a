package pipeline

import (
	"strings"

	"kdtboard/internal"
	"kdtboard/internal/rules"
	"kdtboard/internal/util"
)

// ClassifyRecords assigns one taxonomy label per record. A record tagged
// leading-company by the partner cascade is terminal; otherwise the
// substring rules run in a fixed order and every match contributes to a
// composite label. No match falls back to emerging-technology training.
func ClassifyRecords(records []internal.CourseRecord, r rules.Rules) []internal.CourseRecord {
	out := make([]internal.CourseRecord, 0, len(records))
	for _, rec := range records {
		rec.TrainingType = classify(rec, r)
		out = append(out, rec)
	}
	return out
}

func classify(rec internal.CourseRecord, r rules.Rules) internal.TrainingType {
	if rec.LeadingCompany {
		return internal.TrainingLeadingCompany
	}

	var matched []string
	if hasAnyPrefix(rec.CourseName, r.IncumbentPrefixes) {
		matched = append(matched, internal.TrainingIncumbent)
	}
	if _, ok := util.ContainsAny(rec.Institution, r.UniversityMarkers); ok {
		matched = append(matched, internal.TrainingUniversity)
	}
	if hasAnyPrefix(rec.CourseName, r.AdvancedPrefixes) {
		matched = append(matched, internal.TrainingAdvanced)
	}
	if hasAnyPrefix(rec.CourseName, r.ConvergencePrefixes) {
		matched = append(matched, internal.TrainingConvergence)
	}

	if len(matched) == 0 {
		return internal.TrainingEmergingTech
	}
	return strings.Join(matched, "&")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
