package pipeline

import (
	"strings"

	"kdtboard/internal"
	"kdtboard/internal/rules"
	"kdtboard/internal/util"
)

// DetectPartner applies the leading-company decision cascade, first match
// wins: an explicit partner field, then the special-institution list, then
// course-name keywords (which tag the course without naming a separate
// partner). A malformed or blank partner field counts as no partner.
func DetectPartner(rec internal.CourseRecord, r rules.Rules) (bool, *string) {
	if rec.PartnerInstitution != nil {
		partner := strings.TrimSpace(*rec.PartnerInstitution)
		if partner != "" {
			return true, &partner
		}
	}

	for _, special := range r.SpecialInstitutions {
		if special != "" && strings.Contains(rec.Institution, special) {
			name := special
			return true, &name
		}
	}

	if _, ok := util.ContainsAny(rec.CourseName, r.LeadingCompanyKeywords); ok {
		return true, nil
	}

	return false, nil
}

// SplitPartnerRevenue tags leading-company records and, where a distinct
// partner exists, replaces the record with two weighted rows: the partner
// row carries r.PartnerShare of every revenue figure, the training
// institution keeps the rest. The two rows sum to the original for each
// year column, so the reallocation is zero-sum.
func SplitPartnerRevenue(records []internal.CourseRecord, r rules.Rules) []internal.CourseRecord {
	out := make([]internal.CourseRecord, 0, len(records))
	for _, rec := range records {
		leading, partner := DetectPartner(rec, r)
		rec.LeadingCompany = leading
		if !leading {
			out = append(out, rec)
			continue
		}

		if partner == nil || *partner == rec.Institution {
			out = append(out, rec)
			continue
		}

		rec.PartnerInstitution = partner

		instRow := scaleRevenue(rec, 1-r.PartnerShare)
		instRow.PartnerShare = 1 - r.PartnerShare

		partnerRow := scaleRevenue(rec, r.PartnerShare)
		partnerRow.ID = rec.ID + "-partner"
		partnerRow.Institution = *partner
		partnerRow.PartnerShare = r.PartnerShare

		out = append(out, instRow, partnerRow)
	}
	return out
}

func scaleRevenue(rec internal.CourseRecord, factor float64) internal.CourseRecord {
	rec.BaseRevenue *= factor
	if rec.YearlyRevenue != nil {
		scaled := make(map[int]float64, len(rec.YearlyRevenue))
		for year, amount := range rec.YearlyRevenue {
			scaled[year] = amount * factor
		}
		rec.YearlyRevenue = scaled
	}
	return rec
}
