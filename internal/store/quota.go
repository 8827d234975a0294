package store

import "database/sql"

// SendsOn returns how many DMs were sent on the given day bucket
// (local-midnight date string, e.g. "2026-08-29").
func (db *DB) SendsOn(day string) (int, error) {
	var count int
	err := db.QueryRow(`SELECT count FROM send_quota WHERE day = ?`, day).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

// IncrementSendsOn bumps the day bucket's send counter. Persisted so a
// daemon restart cannot reset the daily cap.
func (db *DB) IncrementSendsOn(day string) error {
	_, err := db.Exec(`
		INSERT INTO send_quota (day, count) VALUES (?, 1)
		ON CONFLICT(day) DO UPDATE SET count = count + 1`, day)
	return err
}
