package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/greenarea-go/internal/database"
	"github.com/jengzang/greenarea-go/internal/models"
)

// AreaRecordRepository stores the per-region results of runs
type AreaRecordRepository struct {
	db *sql.DB
}

// NewAreaRecordRepository creates a new area record repository
func NewAreaRecordRepository(db *sql.DB) *AreaRecordRepository {
	return &AreaRecordRepository{db: db}
}

// InsertBatch stores records of one run in a transaction
func (r *AreaRecordRepository) InsertBatch(runID string, records []models.AreaRecord) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO area_records (
				run_id, sensor, threshold, year, code, name_eng, area_m2, green_pixels, valid_pixels
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			if _, err := stmt.Exec(runID, rec.Sensor, rec.Threshold, rec.Year, rec.Code, rec.Name,
				rec.AreaM2, rec.GreenPixels, rec.ValidPixels); err != nil {
				return fmt.Errorf("failed to insert record %s/%d/%s: %w", rec.Sensor, rec.Year, rec.Code, err)
			}
		}
		return nil
	})
}

// RecordFilter narrows ListByRun; zero values match everything
type RecordFilter struct {
	Sensor    string
	Threshold *float64
	Year      int
}

// ListByRun returns records in insertion order, which is export order
func (r *AreaRecordRepository) ListByRun(runID string, filter RecordFilter) ([]models.AreaRecord, error) {
	query := `
		SELECT run_id, sensor, threshold, year, code, name_eng, area_m2, green_pixels, valid_pixels
		FROM area_records
		WHERE run_id = ?
	`
	args := []interface{}{runID}
	if filter.Sensor != "" {
		query += " AND sensor = ?"
		args = append(args, filter.Sensor)
	}
	if filter.Threshold != nil {
		query += " AND threshold = ?"
		args = append(args, *filter.Threshold)
	}
	if filter.Year != 0 {
		query += " AND year = ?"
		args = append(args, filter.Year)
	}
	query += " ORDER BY rowid"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list area records: %w", err)
	}
	defer rows.Close()

	var records []models.AreaRecord
	for rows.Next() {
		var rec models.AreaRecord
		if err := rows.Scan(&rec.RunID, &rec.Sensor, &rec.Threshold, &rec.Year, &rec.Code, &rec.Name,
			&rec.AreaM2, &rec.GreenPixels, &rec.ValidPixels); err != nil {
			return nil, fmt.Errorf("failed to scan area record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
