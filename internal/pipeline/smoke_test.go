package pipeline

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"kdtboard/internal"
	"kdtboard/internal/config"
	"kdtboard/internal/rules"
	"kdtboard/internal/storage"
)

func writeFixture(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	rows := [][]any{
		{"과정ID", "과정명", "회차", "기관ID", "훈련기관", "파트너기관", "과정시작일", "과정종료일", "수강신청 인원", "수료인원", "만족도", "누적매출"},
		{"C001", "클라우드 엔지니어 양성과정", 1, "I001", "멀티캠퍼스", "", "2023-11-01", "2024-02-28", 25, 20, 4.5, "400,000"},
		{"C002", "재직자_데이터 분석", 1, "I002", "(주)멀티캠퍼스", "", "2024-01-01", "2024-06-30", 30, 28, 4.2, "1,200,000"},
		{"C003", "AI 서비스 기획", 2, "I003", "엘리스", "네이버클라우드", "2024-03-01", "2024-12-31", 20, 0, 0, "900,000"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestSmokeDatasetToXLSX(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "kdt.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	fixture := filepath.Join(tmp, "dataset.xlsx")
	writeFixture(t, fixture)

	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	proc := NewProcessingService(db, cfg, rules.Default(), nil)

	ds, err := proc.IngestFile(fixture)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Rows != 3 {
		t.Fatalf("ingested rows: got %d want 3", ds.Rows)
	}

	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	res, err := proc.ProcessDataset(ds.ID, internal.RevenueModeCompletion, asOf)
	if err != nil {
		t.Fatal(err)
	}
	// The explicit-partner record splits into two rows.
	if res.Stats.Records != 4 {
		t.Fatalf("processed records: got %d want 4", res.Stats.Records)
	}
	if res.Stats.PartnerRows != 1 {
		t.Fatalf("partner rows: got %d want 1", res.Stats.PartnerRows)
	}

	processed, err := db.ListRecords(ds.ID, "processed")
	if err != nil {
		t.Fatal(err)
	}

	// Nominal revenue is conserved through grouping and the partner split.
	total := 0.0
	for _, rec := range processed {
		total += rec.Total()
	}
	if math.Abs(total-2500000) > 1 {
		t.Fatalf("total revenue not conserved: %v", total)
	}

	// The two 멀티캠퍼스 variants were grouped.
	byInstitution := map[string]int{}
	for _, rec := range processed {
		byInstitution[rec.Institution]++
	}
	if byInstitution["멀티캠퍼스"] != 2 {
		t.Fatalf("institution grouping: %v", byInstitution)
	}

	out := filepath.Join(tmp, "result.xlsx")
	if err := ExportRecordsToXLSX(processed, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
}
