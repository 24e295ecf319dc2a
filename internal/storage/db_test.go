package storage

import (
	"path/filepath"
	"testing"
	"time"

	"kdtboard/internal"
	"kdtboard/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "kdt.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUpsertDatasetDedupesByHash(t *testing.T) {
	db := openTestDB(t)

	first, err := db.UpsertDataset("/tmp/a.xlsx", "hash-1", "ingested")
	if err != nil {
		t.Fatal(err)
	}
	second, err := db.UpsertDataset("/tmp/moved/a.xlsx", "hash-1", "ingested")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same dataset, got %d and %d", first.ID, second.ID)
	}
	if second.SourcePath != "/tmp/moved/a.xlsx" {
		t.Fatalf("source path not refreshed: %q", second.SourcePath)
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	ds, err := db.UpsertDataset("/tmp/a.xlsx", "hash-rt", "ingested")
	if err != nil {
		t.Fatal(err)
	}

	adjusted := 1250.0
	records := []internal.CourseRecord{
		{
			ID:                 "C1-1-I1",
			CourseID:           "C1",
			Round:              1,
			CourseName:         "클라우드 과정",
			InstitutionID:      "I1",
			Institution:        "멀티캠퍼스",
			RawInstitution:     "(주)멀티캠퍼스",
			PartnerInstitution: util.StringPtr("네이버클라우드"),
			NCSCategory:        "정보기술",
			StartDate:          util.DatePtr(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			EndDate:            util.DatePtr(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)),
			EnrollmentCount:    25,
			CompletionCount:    20,
			SatisfactionScore:  4.5,
			BaseRevenue:        1000,
			TrainingType:       internal.TrainingLeadingCompany,
			LeadingCompany:     true,
			PartnerShare:       0.9,
			YearlyRevenue:      map[int]float64{2024: 1000},
			AdjustedYearlyRevenue: map[int]float64{
				2024: 1250,
			},
			AdjustedTotalRevenue: &adjusted,
		},
		{
			ID:           "C2-1-I2",
			CourseName:   "AI 기초",
			Institution:  "엘리스",
			PartnerShare: 1,
		},
	}

	if err := db.ReplaceRecords(ds.ID, "processed", records); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListRecords(ds.ID, "processed")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records", len(got))
	}

	rec := got[0]
	if rec.ID != "C1-1-I1" || rec.Institution != "멀티캠퍼스" || rec.RawInstitution != "(주)멀티캠퍼스" {
		t.Fatalf("identity fields: %+v", rec)
	}
	if rec.PartnerInstitution == nil || *rec.PartnerInstitution != "네이버클라우드" {
		t.Fatalf("partner: %+v", rec.PartnerInstitution)
	}
	if rec.StartDate == nil || rec.StartDate.Format("2006-01-02") != "2024-01-01" {
		t.Fatalf("start date: %+v", rec.StartDate)
	}
	if !rec.LeadingCompany || rec.PartnerShare != 0.9 {
		t.Fatalf("partner split fields: %+v", rec)
	}
	if rec.YearlyRevenue[2024] != 1000 || rec.AdjustedYearlyRevenue[2024] != 1250 {
		t.Fatalf("revenue maps: %+v %+v", rec.YearlyRevenue, rec.AdjustedYearlyRevenue)
	}
	if rec.AdjustedTotalRevenue == nil || *rec.AdjustedTotalRevenue != 1250 {
		t.Fatalf("adjusted total: %+v", rec.AdjustedTotalRevenue)
	}

	bare := got[1]
	if bare.PartnerInstitution != nil || bare.StartDate != nil || bare.AdjustedTotalRevenue != nil {
		t.Fatalf("optional fields should be nil: %+v", bare)
	}
	if bare.YearlyRevenue != nil {
		t.Fatalf("empty revenue map should stay nil: %+v", bare.YearlyRevenue)
	}

	// Replacing swaps the stage wholesale.
	if err := db.ReplaceRecords(ds.ID, "processed", records[:1]); err != nil {
		t.Fatal(err)
	}
	got, err = db.ListRecords(ds.ID, "processed")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("replace did not swap: %d records", len(got))
	}
}

func TestDatasetStatusFlow(t *testing.T) {
	db := openTestDB(t)

	ds, err := db.UpsertDataset("/tmp/b.xlsx", "hash-2", "ingested")
	if err != nil {
		t.Fatal(err)
	}

	pending, err := db.ListDatasetsByStatus("ingested", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != ds.ID {
		t.Fatalf("pending: %+v", pending)
	}

	if err := db.UpdateDatasetStatus(ds.ID, "processed"); err != nil {
		t.Fatal(err)
	}
	pending, err = db.ListDatasetsByStatus("ingested", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("still pending: %+v", pending)
	}

	if err := db.InsertRun("trace-1", ds.ID, internal.RunStats{Records: 3}); err != nil {
		t.Fatal(err)
	}
}
