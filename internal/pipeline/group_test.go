package pipeline

import (
	"math"
	"testing"

	"kdtboard/internal"
	"kdtboard/internal/rules"
)

func rec(institution string, revenue float64) internal.CourseRecord {
	return internal.CourseRecord{Institution: institution, BaseRevenue: revenue, PartnerShare: 1}
}

func totalRevenue(records []internal.CourseRecord) float64 {
	sum := 0.0
	for _, r := range records {
		sum += r.BaseRevenue
	}
	return sum
}

func TestGrouperClustersVariants(t *testing.T) {
	records := []internal.CourseRecord{
		rec("멀티캠퍼스", 100),
		rec("(주)멀티캠퍼스", 200),
		rec("멀티캠퍼스", 50),
		rec("코드스테이츠", 300),
	}

	g := NewGrouper(rules.Default())
	mapping := g.BuildMapping(records)

	if mapping["멀티캠퍼스"] != mapping["(주)멀티캠퍼스"] {
		t.Fatalf("variants not grouped: %q vs %q", mapping["멀티캠퍼스"], mapping["(주)멀티캠퍼스"])
	}
	// 멀티캠퍼스 appears twice, so it wins the canonical label.
	if mapping["(주)멀티캠퍼스"] != "멀티캠퍼스" {
		t.Fatalf("canonical label: got %q", mapping["(주)멀티캠퍼스"])
	}
	if mapping["코드스테이츠"] == mapping["멀티캠퍼스"] {
		t.Fatal("unrelated institutions grouped together")
	}
}

func TestGrouperAliasTableWins(t *testing.T) {
	r := rules.Default()
	records := []internal.CourseRecord{
		rec("대한상의", 100),
		rec("상공회의소 인력개발원", 100),
	}

	mapping := NewGrouper(r).BuildMapping(records)
	for raw, canonical := range mapping {
		if canonical != "대한상공회의소" {
			t.Fatalf("%q: got %q want alias canonical 대한상공회의소", raw, canonical)
		}
	}
}

func TestGrouperSkipsBlankNames(t *testing.T) {
	records := []internal.CourseRecord{rec("", 100), rec("   ", 200), rec("엘리스", 300)}
	mapping := NewGrouper(rules.Default()).BuildMapping(records)
	if _, ok := mapping[""]; ok {
		t.Fatal("blank name mapped")
	}
	if _, ok := mapping["   "]; ok {
		t.Fatal("whitespace name mapped")
	}
}

func TestGroupingConservesRevenue(t *testing.T) {
	records := []internal.CourseRecord{
		rec("멀티캠퍼스", 123456.78),
		rec("(주)멀티캠퍼스", 99999.99),
		rec("한국폴리텍대학", 500),
		rec("폴리텍대학", 700),
		rec("", 42),
	}

	g := NewGrouper(rules.Default())
	grouped := GroupInstitutions(records, g.BuildMapping(records))

	if len(grouped) != len(records) {
		t.Fatalf("row count changed: %d -> %d", len(records), len(grouped))
	}
	before, after := totalRevenue(records), totalRevenue(grouped)
	if math.Abs(before-after) > 1e-9 {
		t.Fatalf("revenue changed under grouping: %v -> %v", before, after)
	}
	// Blank names keep their original value.
	if grouped[4].Institution != "" {
		t.Fatalf("blank institution rewritten to %q", grouped[4].Institution)
	}
}

func TestGrouperThresholdIsTunable(t *testing.T) {
	loose := rules.Default()
	loose.SimilarityThreshold = 0.3
	strict := rules.Default()
	strict.SimilarityThreshold = 0.99

	records := []internal.CourseRecord{rec("서울아카데미", 1), rec("서울아카데미 강남", 1)}

	if m := NewGrouper(loose).BuildMapping(records); m["서울아카데미"] != m["서울아카데미 강남"] {
		t.Fatal("loose threshold should group the variants")
	}
	if m := NewGrouper(strict).BuildMapping(records); m["서울아카데미"] == m["서울아카데미 강남"] {
		t.Fatal("strict threshold should keep the variants apart")
	}
}
