// Package dataset maps the loosely typed xlsx exports of the KDT portal into
// the CourseRecord schema, once, at the boundary. Messy cells are coerced to
// safe defaults; only a missing required column is a hard error.
package dataset

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"kdtboard/internal"
	"kdtboard/internal/util"
)

var reYearHeader = regexp.MustCompile(`^(19|20)\d{2}`)

type columnMap struct {
	courseID      int
	courseName    int
	round         int
	institutionID int
	institution   int
	partner       int
	ncs           int
	start         int
	end           int
	enrollment    int
	completion    int
	satisfaction  int
	revenue       int
	years         map[int]int
}

// ReadFile loads one dataset file into CourseRecords.
func ReadFile(path string) ([]internal.CourseRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()
	return readWorkbook(f)
}

// ReadReader loads a dataset from an in-memory xlsx stream.
func ReadReader(r io.Reader) ([]internal.CourseRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open dataset stream: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) ([]internal.CourseRecord, error) {
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		return readSheet(rows)
	}
	return nil, fmt.Errorf("dataset has no non-empty sheet")
}

func readSheet(rows [][]string) ([]internal.CourseRecord, error) {
	headerIdx, cols := -1, columnMap{}
	for i := 0; i < len(rows) && i < 3; i++ {
		c := inferColumns(normalizeCells(rows[i]))
		if c.institution >= 0 && c.courseName >= 0 {
			headerIdx, cols = i, c
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("missing required column: 훈련기관 (institution) or 과정명 (course name)")
	}

	out := make([]internal.CourseRecord, 0, len(rows)-headerIdx-1)
	for _, row := range rows[headerIdx+1:] {
		cells := normalizeCells(row)
		if allBlank(cells) {
			continue
		}
		rec := internal.CourseRecord{
			CourseID:      pickCell(cells, cols.courseID),
			CourseName:    pickCell(cells, cols.courseName),
			Round:         util.ParseCount(pickCell(cells, cols.round)),
			InstitutionID: pickCell(cells, cols.institutionID),
			Institution:   pickCell(cells, cols.institution),
			NCSCategory:   pickCell(cells, cols.ncs),

			StartDate: util.ParseDate(pickCell(cells, cols.start)),
			EndDate:   util.ParseDate(pickCell(cells, cols.end)),

			EnrollmentCount:   util.ParseCount(pickCell(cells, cols.enrollment)),
			CompletionCount:   util.ParseCount(pickCell(cells, cols.completion)),
			SatisfactionScore: util.ParseAmount(pickCell(cells, cols.satisfaction)),

			BaseRevenue:  util.ParseAmount(pickCell(cells, cols.revenue)),
			PartnerShare: 1,
		}
		if partner := pickCell(cells, cols.partner); partner != "" {
			rec.PartnerInstitution = util.StringPtr(partner)
		}

		if len(cols.years) > 0 {
			yearly := map[int]float64{}
			sum := 0.0
			for year, idx := range cols.years {
				amount := util.ParseAmount(pickCell(cells, idx))
				if amount != 0 {
					yearly[year] = amount
					sum += amount
				}
			}
			if len(yearly) > 0 {
				rec.YearlyRevenue = yearly
				if rec.BaseRevenue == 0 {
					rec.BaseRevenue = sum
				}
			}
		}

		out = append(out, rec)
	}
	return out, nil
}

func inferColumns(headers []string) columnMap {
	norm := make([]string, 0, len(headers))
	for _, h := range headers {
		norm = append(norm, strings.ToLower(strings.TrimSpace(h)))
	}

	years := map[int]int{}
	for i, h := range norm {
		if m := reYearHeader.FindString(h); m != "" {
			// Columns like "2023년" or "2023 매출" hold that year's revenue.
			year := util.ParseCount(m)
			if year > 0 {
				years[year] = i
			}
		}
	}

	cols := columnMap{
		courseID:      findHeaderIndex(norm, []string{"과정id", "과정코드", "course_id", "courseid"}),
		courseName:    findHeaderIndex(norm, []string{"과정명", "훈련과정명", "course"}),
		round:         findHeaderIndex(norm, []string{"회차", "기수", "round"}),
		institutionID: findHeaderIndex(norm, []string{"기관id", "기관코드", "institution_id"}),
		institution:   findHeaderIndex(norm, []string{"훈련기관", "기관명", "institution"}),
		partner:       findHeaderIndex(norm, []string{"파트너기관", "선도기업명", "partner"}),
		ncs:           findHeaderIndex(norm, []string{"ncs", "직무분야"}),
		start:         findHeaderIndex(norm, []string{"과정시작일", "시작일", "개강일", "start"}),
		end:           findHeaderIndex(norm, []string{"과정종료일", "종료일", "end"}),
		enrollment:    findHeaderIndex(norm, []string{"수강신청", "신청인원", "enrollment"}),
		completion:    findHeaderIndex(norm, []string{"수료인원", "수료자", "completion"}),
		satisfaction:  findHeaderIndex(norm, []string{"만족도", "satisfaction"}),
		revenue:       findHeaderIndex(norm, []string{"누적매출", "매출액", "훈련비", "revenue"}),
		years:         years,
	}

	// A header like "2023년 매출액" belongs to the year columns, not the
	// cumulative revenue column.
	for _, idx := range years {
		if cols.revenue == idx {
			cols.revenue = -1
		}
	}
	return cols
}

func findHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	return ""
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, strings.Join(strings.Fields(c), " "))
	}
	return out
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
