package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"kdtboard/internal"
	"kdtboard/internal/util"
)

// DB caches ingested datasets and their processed rows so the dashboard
// layer can re-read results without re-running the pipeline. The pipeline
// itself never touches storage.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS datasets (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sourcePath TEXT NOT NULL,
  hash TEXT NOT NULL UNIQUE,
  ingestedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  status TEXT NOT NULL,
  rows INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  datasetId INTEGER NOT NULL,
  stage TEXT NOT NULL,
  recordId TEXT NOT NULL,
  courseId TEXT,
  round INTEGER,
  courseName TEXT,
  institutionId TEXT,
  institution TEXT,
  rawInstitution TEXT,
  partnerInstitution TEXT,
  ncsCategory TEXT,
  startDate TEXT,
  endDate TEXT,
  enrollment INTEGER,
  completion INTEGER,
  satisfaction REAL,
  baseRevenue REAL,
  trainingType TEXT,
  leadingCompany INTEGER NOT NULL DEFAULT 0,
  partnerShare REAL NOT NULL DEFAULT 1,
  yearlyRevenue TEXT,
  adjustedYearlyRevenue TEXT,
  adjustedTotalRevenue REAL
);
CREATE INDEX IF NOT EXISTS idx_records_dataset_stage ON records(datasetId, stage);
CREATE INDEX IF NOT EXISTS idx_records_institution ON records(institution);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  datasetId INTEGER NOT NULL,
  stats_json TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	_, err := d.conn.Exec(schema)
	return err
}

// UpsertDataset registers a source file by content hash. Re-ingesting the
// same file returns the existing row.
func (d *DB) UpsertDataset(sourcePath, hash, status string) (internal.DatasetRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO datasets (sourcePath, hash, status) VALUES (?, ?, ?)
ON CONFLICT(hash) DO UPDATE SET sourcePath = excluded.sourcePath`,
		sourcePath, hash, status)
	if err != nil {
		return internal.DatasetRow{}, err
	}
	return d.DatasetByHash(hash)
}

func (d *DB) DatasetByHash(hash string) (internal.DatasetRow, error) {
	row := d.conn.QueryRow(`SELECT id, sourcePath, hash, ingestedAt, status, rows FROM datasets WHERE hash = ?`, hash)
	return scanDataset(row)
}

func (d *DB) DatasetByID(id int) (internal.DatasetRow, error) {
	row := d.conn.QueryRow(`SELECT id, sourcePath, hash, ingestedAt, status, rows FROM datasets WHERE id = ?`, id)
	return scanDataset(row)
}

func scanDataset(row *sql.Row) (internal.DatasetRow, error) {
	var ds internal.DatasetRow
	if err := row.Scan(&ds.ID, &ds.SourcePath, &ds.Hash, &ds.IngestedAt, &ds.Status, &ds.Rows); err != nil {
		if err == sql.ErrNoRows {
			return internal.DatasetRow{}, fmt.Errorf("dataset not found")
		}
		return internal.DatasetRow{}, err
	}
	return ds, nil
}

func (d *DB) ListDatasetsByStatus(status string, limit int) ([]internal.DatasetRow, error) {
	rows, err := d.conn.Query(`SELECT id, sourcePath, hash, ingestedAt, status, rows FROM datasets WHERE status = ? ORDER BY id LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DatasetRow
	for rows.Next() {
		var ds internal.DatasetRow
		if err := rows.Scan(&ds.ID, &ds.SourcePath, &ds.Hash, &ds.IngestedAt, &ds.Status, &ds.Rows); err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

func (d *DB) UpdateDatasetStatus(id int, status string) error {
	_, err := d.conn.Exec(`UPDATE datasets SET status = ? WHERE id = ?`, status, id)
	return err
}

// ReplaceRecords swaps the stored rows of one dataset stage ("raw" or
// "processed") in a single transaction.
func (d *DB) ReplaceRecords(datasetID int, stage string, records []internal.CourseRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM records WHERE datasetId = ? AND stage = ?`, datasetID, stage); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO records (
  datasetId, stage, recordId, courseId, round, courseName, institutionId,
  institution, rawInstitution, partnerInstitution, ncsCategory,
  startDate, endDate, enrollment, completion, satisfaction, baseRevenue,
  trainingType, leadingCompany, partnerShare,
  yearlyRevenue, adjustedYearlyRevenue, adjustedTotalRevenue
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		yearly, err := marshalYears(rec.YearlyRevenue)
		if err != nil {
			return err
		}
		adjustedYearly, err := marshalYears(rec.AdjustedYearlyRevenue)
		if err != nil {
			return err
		}

		var partner any
		if rec.PartnerInstitution != nil {
			partner = *rec.PartnerInstitution
		}
		var start, end any
		if rec.StartDate != nil {
			start = rec.StartDate.Format("2006-01-02")
		}
		if rec.EndDate != nil {
			end = rec.EndDate.Format("2006-01-02")
		}
		var adjustedTotal any
		if rec.AdjustedTotalRevenue != nil {
			adjustedTotal = *rec.AdjustedTotalRevenue
		}

		leading := 0
		if rec.LeadingCompany {
			leading = 1
		}

		if _, err := stmt.Exec(
			datasetID, stage, rec.ID, rec.CourseID, rec.Round, rec.CourseName, rec.InstitutionID,
			rec.Institution, rec.RawInstitution, partner, rec.NCSCategory,
			start, end, rec.EnrollmentCount, rec.CompletionCount, rec.SatisfactionScore, rec.BaseRevenue,
			rec.TrainingType, leading, rec.PartnerShare,
			yearly, adjustedYearly, adjustedTotal,
		); err != nil {
			return err
		}
	}

	if stage == "raw" {
		if _, err := tx.Exec(`UPDATE datasets SET rows = ? WHERE id = ?`, len(records), datasetID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRecords loads one dataset stage back in insertion order.
func (d *DB) ListRecords(datasetID int, stage string) ([]internal.CourseRecord, error) {
	rows, err := d.conn.Query(`
SELECT recordId, courseId, round, courseName, institutionId,
       institution, rawInstitution, partnerInstitution, ncsCategory,
       startDate, endDate, enrollment, completion, satisfaction, baseRevenue,
       trainingType, leadingCompany, partnerShare,
       yearlyRevenue, adjustedYearlyRevenue, adjustedTotalRevenue
FROM records WHERE datasetId = ? AND stage = ? ORDER BY id`, datasetID, stage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CourseRecord
	for rows.Next() {
		var rec internal.CourseRecord
		var partner, start, end sql.NullString
		var yearly, adjustedYearly sql.NullString
		var adjustedTotal sql.NullFloat64
		var leading int

		if err := rows.Scan(
			&rec.ID, &rec.CourseID, &rec.Round, &rec.CourseName, &rec.InstitutionID,
			&rec.Institution, &rec.RawInstitution, &partner, &rec.NCSCategory,
			&start, &end, &rec.EnrollmentCount, &rec.CompletionCount, &rec.SatisfactionScore, &rec.BaseRevenue,
			&rec.TrainingType, &leading, &rec.PartnerShare,
			&yearly, &adjustedYearly, &adjustedTotal,
		); err != nil {
			return nil, err
		}

		if partner.Valid && partner.String != "" {
			v := partner.String
			rec.PartnerInstitution = &v
		}
		rec.StartDate = parseStoredDate(start)
		rec.EndDate = parseStoredDate(end)
		rec.LeadingCompany = leading != 0

		rec.YearlyRevenue, err = unmarshalYears(yearly)
		if err != nil {
			return nil, err
		}
		rec.AdjustedYearlyRevenue, err = unmarshalYears(adjustedYearly)
		if err != nil {
			return nil, err
		}
		if adjustedTotal.Valid {
			v := adjustedTotal.Float64
			rec.AdjustedTotalRevenue = &v
		}

		out = append(out, rec)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(traceID string, datasetID int, stats internal.RunStats) error {
	blob, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`INSERT INTO runs (traceId, datasetId, stats_json) VALUES (?, ?, ?)`, traceID, datasetID, string(blob))
	return err
}

func parseStoredDate(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	return util.ParseDate(v.String)
}

func marshalYears(m map[int]float64) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	blob, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(blob), nil
}

func unmarshalYears(v sql.NullString) (map[int]float64, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	out := map[int]float64{}
	if err := json.Unmarshal([]byte(v.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}
