package database

import "database/sql"

// InsertRunReport stores a run's markdown summary.
func (db *DB) InsertRunReport(runDate, state, markdown string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO run_reports (run_date, state, summary_markdown) VALUES (?, ?, ?)",
		runDate, state, markdown,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetRunReport returns one report by ID, or nil when absent.
func (db *DB) GetRunReport(id int64) (*RunReport, error) {
	row := db.conn.QueryRow(
		"SELECT id, run_date, state, summary_markdown, created_at FROM run_reports WHERE id = ?",
		id,
	)
	var r RunReport
	err := row.Scan(&r.ID, &r.RunDate, &r.State, &r.SummaryMarkdown, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRunReports returns the most recent reports, newest first.
func (db *DB) ListRunReports(limit int) ([]RunReport, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := db.conn.Query(
		"SELECT id, run_date, state, summary_markdown, created_at FROM run_reports ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []RunReport
	for rows.Next() {
		var r RunReport
		if err := rows.Scan(&r.ID, &r.RunDate, &r.State, &r.SummaryMarkdown, &r.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
