package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"kdtboard/internal"
	"kdtboard/internal/report"
)

// ExportRecordsToXLSX writes the augmented record set plus an institution
// ranking sheet for the dashboard layer.
func ExportRecordsToXLSX(records []internal.CourseRecord, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetSheetName(sheet, "records")
	sheet = "records"

	years := report.Years(records)

	headers := []string{
		"id", "course_id", "round", "course_name", "institution", "raw_institution",
		"partner_institution", "ncs_category", "training_type", "leading_company",
		"start_date", "end_date", "enrollment", "completion", "satisfaction",
		"base_revenue",
	}
	for _, year := range years {
		headers = append(headers, fmt.Sprintf("revenue_%d", year))
	}
	headers = append(headers, "revenue_undated", "adjusted_total_revenue")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, rec := range records {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, rec.ID)
		set(2, rec.CourseID)
		set(3, rec.Round)
		set(4, rec.CourseName)
		set(5, rec.Institution)
		set(6, rec.RawInstitution)
		set(7, derefString(rec.PartnerInstitution))
		set(8, rec.NCSCategory)
		set(9, rec.TrainingType)
		set(10, rec.LeadingCompany)
		set(11, formatDate(rec.StartDate))
		set(12, formatDate(rec.EndDate))
		set(13, rec.EnrollmentCount)
		set(14, rec.CompletionCount)
		set(15, rec.SatisfactionScore)
		set(16, rec.BaseRevenue)

		col := 17
		for _, year := range years {
			set(col, rec.YearlyRevenue[year])
			col++
		}
		set(col, rec.YearlyRevenue[UndatedYear])
		col++
		if rec.AdjustedTotalRevenue != nil {
			set(col, *rec.AdjustedTotalRevenue)
		}
	}

	if err := writeRankingSheet(f, records); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeRankingSheet(f *excelize.File, records []internal.CourseRecord) error {
	const sheet = "institutions"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"rank", "institution", "courses", "enrollment", "completion", "satisfaction", "revenue", "adjusted_revenue"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, s := range report.ByInstitution(records) {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
		set(1, i+1)
		set(2, s.Institution)
		set(3, s.Courses)
		set(4, s.Enrollment)
		set(5, s.Completion)
		set(6, s.Satisfaction)
		set(7, s.Revenue)
		set(8, s.AdjustedRevenue)
	}
	return nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatDate(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format("2006-01-02")
}
