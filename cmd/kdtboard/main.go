package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"kdtboard/internal"
	"kdtboard/internal/config"
	sftpconnector "kdtboard/internal/connectors/sftp"
	"kdtboard/internal/dataset"
	"kdtboard/internal/listener"
	"kdtboard/internal/pipeline"
	"kdtboard/internal/report"
	"kdtboard/internal/rules"
	"kdtboard/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	r, err := loadRules(cfg)
	must(err)

	log := logrus.New()

	cmd := os.Args[1]
	switch cmd {
	case "dataset:fetch":
		conn, err := sftpconnector.NewConnector(cfg)
		must(err)
		fetched, err := conn.FetchNew(context.Background(), cfg.DropDir)
		must(err)
		fmt.Printf("dataset fetch done files=%d dir=%s\n", len(fetched), cfg.DropDir)
		for _, path := range fetched {
			fmt.Printf("  %s\n", path)
		}
	case "dataset:ingest":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "dataset xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		processor := pipeline.NewProcessingService(db, cfg, r, log)
		ds, err := processor.IngestFile(*file)
		must(err)
		fmt.Printf("ingested dataset id=%d rows=%d\n", ds.ID, ds.Rows)
	case "process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		datasetID := fs.Int("dataset", 0, "dataset id (0 = all pending)")
		mode := fs.String("mode", cfg.RevenueMode, "completion|elapsed|none")
		asOf := fs.String("asof", "", "reference date YYYY-MM-DD (default today)")
		batch := fs.Int("batch", 20, "batch size for pending datasets")
		_ = fs.Parse(os.Args[2:])

		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		processor := pipeline.NewProcessingService(db, cfg, r, log)

		now := parseAsOf(*asOf)
		if *datasetID != 0 {
			res, err := processor.ProcessDataset(*datasetID, internal.RevenueMode(*mode), now)
			must(err)
			printStats(res.Stats)
			return
		}
		done, err := processor.ProcessPending(*batch, internal.RevenueMode(*mode), now)
		must(err)
		fmt.Printf("processed pending datasets=%d\n", done)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		datasetID := fs.Int("dataset", 0, "dataset id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *datasetID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--dataset and --out are required"))
		}
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		records, err := db.ListRecords(*datasetID, "processed")
		must(err)
		if len(records) == 0 {
			must(fmt.Errorf("no processed rows for dataset=%d", *datasetID))
		}
		must(pipeline.ExportRecordsToXLSX(records, *out))
		fmt.Printf("exported %d rows to %s\n", len(records), *out)
	case "report":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		datasetID := fs.Int("dataset", 0, "dataset id")
		top := fs.Int("top", 10, "ranking size")
		year := fs.Int("year", 0, "monthly breakdown for this year")
		_ = fs.Parse(os.Args[2:])
		if *datasetID == 0 {
			must(fmt.Errorf("--dataset is required"))
		}
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		records, err := db.ListRecords(*datasetID, "processed")
		must(err)
		printReport(records, *top, *year)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "dataset xlsx path")
		output := fs.String("output", "", "output xlsx path")
		mode := fs.String("mode", cfg.RevenueMode, "completion|elapsed|none")
		asOf := fs.String("asof", "", "reference date YYYY-MM-DD (default today)")
		_ = fs.Parse(os.Args[2:])
		if *input == "" || *output == "" {
			must(fmt.Errorf("--input and --output are required"))
		}

		records, err := dataset.ReadFile(*input)
		must(err)
		processed, stats := pipeline.Run(records, r, internal.RevenueMode(*mode), parseAsOf(*asOf))
		must(pipeline.ExportRecordsToXLSX(processed, *output))
		printStats(stats)
		fmt.Printf("run done output=%s\n", *output)
	case "watch":
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		svc := listener.NewService(db, cfg, r, log)
		must(svc.Run(context.Background()))
	default:
		usage()
		os.Exit(1)
	}
}

// loadRules reads the YAML table file (when configured) and lets env knobs
// override the tunables.
func loadRules(cfg config.Config) (rules.Rules, error) {
	r, err := rules.Load(cfg.RulesPath)
	if err != nil {
		return rules.Rules{}, err
	}
	if cfg.SimilarityThreshold > 0 {
		r.SimilarityThreshold = cfg.SimilarityThreshold
	}
	if cfg.PartnerShare > 0 {
		r.PartnerShare = cfg.PartnerShare
	}
	if cfg.BaseCompletionRate > 0 {
		r.BaseCompletionRate = cfg.BaseCompletionRate
	}
	return r, nil
}

func parseAsOf(value string) time.Time {
	if strings.TrimSpace(value) == "" {
		return time.Now()
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		must(fmt.Errorf("invalid --asof date: %s", value))
	}
	return parsed
}

func printStats(stats internal.RunStats) {
	fmt.Printf("processed records=%d institutions=%d groups=%d leadingCompany=%d partnerRows=%d invalidSpan=%d\n",
		stats.Records, stats.Institutions, stats.Groups, stats.LeadingCompany, stats.PartnerRows, stats.Skipped)
}

func printReport(records []internal.CourseRecord, top, year int) {
	fmt.Println("== institutions ==")
	for i, s := range report.TopInstitutions(report.ByInstitution(records), top) {
		fmt.Printf("%2d. %-30s courses=%d enrollment=%d revenue=%.0f adjusted=%.0f\n",
			i+1, s.Institution, s.Courses, s.Enrollment, s.Revenue, s.AdjustedRevenue)
	}

	fmt.Println("== revenue by year ==")
	byYear := report.ByYear(records)
	for _, y := range report.Years(records) {
		fmt.Printf("%d: %.0f\n", y, byYear[y])
	}

	fmt.Println("== revenue by training type ==")
	for label, amount := range report.ByTrainingType(records) {
		fmt.Printf("%s: %.0f\n", label, amount)
	}

	if year > 0 {
		fmt.Printf("== monthly revenue %d ==\n", year)
		monthly := report.MonthlyRevenue(records, year)
		for m, amount := range monthly {
			fmt.Printf("%02d: %.0f\n", m+1, amount)
		}
	}
}

func usage() {
	fmt.Println("usage: kdtboard <command>")
	fmt.Println("commands:")
	fmt.Println("  dataset:fetch")
	fmt.Println("  dataset:ingest --file=./data/drop/kdt.xlsx")
	fmt.Println("  process [--dataset=1] [--mode=completion|elapsed|none] [--asof=2024-06-30]")
	fmt.Println("  export:xlsx --dataset=1 --out=./out/kdt.xlsx")
	fmt.Println("  report --dataset=1 [--top=10] [--year=2024]")
	fmt.Println("  run --input=./kdt.xlsx --output=./out/kdt.xlsx [--mode=...] [--asof=...]")
	fmt.Println("  watch")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
