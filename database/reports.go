package database

import (
	"context"
	"fmt"

	"saferoads/common"
	"saferoads/models"
)

// InsertReport stores one damage score. The generated row id is not returned.
func (d *Database) InsertReport(ctx context.Context, damageScore int) error {
	result, err := d.db.ExecContext(ctx,
		"INSERT INTO reports (damage_score) VALUES (?)", damageScore)
	common.LogResult("InsertReport", result, err, true)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// ListReports returns every stored report, newest first. Rows created within the same
// timestamp tick are ordered by descending id.
func (d *Database) ListReports(ctx context.Context) ([]models.StoredReport, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT id, damage_score, created_at FROM reports ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.StoredReport, 0)
	for rows.Next() {
		var r models.StoredReport
		if err := rows.Scan(&r.Id, &r.DamageScore, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

// CountReports returns the number of stored reports.
func (d *Database) CountReports(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return n, nil
}
