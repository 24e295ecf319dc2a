package pipeline

import (
	"reflect"
	"testing"

	"kdtboard/internal"
	"kdtboard/internal/util"
)

func TestNormalizeRecords(t *testing.T) {
	records := []internal.CourseRecord{{
		CourseID:           "C100",
		Round:              0,
		CourseName:         "  클라우드 엔지니어  ",
		InstitutionID:      "I200",
		Institution:        " 엘리스 ",
		PartnerInstitution: util.StringPtr("  "),
		EnrollmentCount:    -3,
		CompletionCount:    -1,
		SatisfactionScore:  -0.5,
		BaseRevenue:        -100,
	}}

	out := NormalizeRecords(records)
	rec := out[0]

	if rec.CourseName != "클라우드 엔지니어" || rec.Institution != "엘리스" {
		t.Fatalf("names not trimmed: %+v", rec)
	}
	if rec.PartnerInstitution != nil {
		t.Fatal("blank partner not cleared")
	}
	if rec.EnrollmentCount != 0 || rec.CompletionCount != 0 || rec.SatisfactionScore != 0 || rec.BaseRevenue != 0 {
		t.Fatalf("negative fields not zeroed: %+v", rec)
	}
	if rec.Round != 1 {
		t.Fatalf("round default: got %d", rec.Round)
	}
	if rec.ID != "C100-1-I200" {
		t.Fatalf("derived id: got %q", rec.ID)
	}
	if rec.RawInstitution != "엘리스" {
		t.Fatalf("raw institution: got %q", rec.RawInstitution)
	}
	if rec.PartnerShare != 1 {
		t.Fatalf("partner share default: got %v", rec.PartnerShare)
	}
}

func TestNormalizeRecordsIdempotent(t *testing.T) {
	records := []internal.CourseRecord{{
		CourseID:      "C1",
		CourseName:    "AI 기초",
		InstitutionID: "I1",
		Institution:   "엘리스",
	}}

	once := NormalizeRecords(records)
	twice := NormalizeRecords(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}
