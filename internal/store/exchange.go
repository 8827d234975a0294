package store

import (
	"database/sql"
	"fmt"
	"time"
)

// nonTerminalExchangeFilter mirrors state.TerminalExchangeStatuses; keep the
// two in sync when adding statuses.
const nonTerminalExchangeFilter = `status NOT IN ('completed', 'failed', 'no_response', 'partner_did_not_complete')`

const exchangeColumns = `id, uuid, contact_id, initiated_by, our_video_url, their_video_url,
	terms, status, our_result, their_result, initiated_at, agreed_at, completed_at, timeout_at`

func scanExchange(row interface{ Scan(...any) error }) (*Exchange, error) {
	var e Exchange
	var terms string
	err := row.Scan(&e.ID, &e.UUID, &e.ContactID, &e.InitiatedBy, &e.OurVideoURL, &e.TheirVideoURL,
		&terms, &e.Status, &e.OurResult, &e.TheirResult, &e.InitiatedAt, &e.AgreedAt, &e.CompletedAt, &e.TimeoutAt)
	if err != nil {
		return nil, err
	}
	e.Terms = decodeTerms(terms)
	return &e, nil
}

// CreateExchange inserts a new exchange and sets e.ID.
func (db *DB) CreateExchange(e *Exchange) error {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO exchanges (uuid, contact_id, initiated_by, our_video_url, their_video_url,
			terms, status, our_result, their_result, initiated_at, agreed_at, completed_at, timeout_at,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UUID, e.ContactID, e.InitiatedBy, e.OurVideoURL, e.TheirVideoURL,
		encodeJSON(e.Terms), e.Status, e.OurResult, e.TheirResult,
		e.InitiatedAt, e.AgreedAt, e.CompletedAt, e.TimeoutAt, now, now)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// UpdateExchange writes all mutable exchange fields by id.
func (db *DB) UpdateExchange(e *Exchange) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE exchanges SET our_video_url = ?, their_video_url = ?, terms = ?, status = ?,
			our_result = ?, their_result = ?, agreed_at = ?, completed_at = ?, timeout_at = ?, updated_at = ?
		WHERE id = ?`,
		e.OurVideoURL, e.TheirVideoURL, encodeJSON(e.Terms), e.Status,
		e.OurResult, e.TheirResult, e.AgreedAt, e.CompletedAt, e.TimeoutAt, now,
		e.ID)
	if err != nil {
		return fmt.Errorf("update exchange %d: %w", e.ID, err)
	}
	return nil
}

// GetExchangeByID returns an exchange by primary key, nil if unknown.
func (db *DB) GetExchangeByID(id int64) (*Exchange, error) {
	row := db.QueryRow(`SELECT `+exchangeColumns+` FROM exchanges WHERE id = ?`, id)
	e, err := scanExchange(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// GetExchangeByUUID returns an exchange by its stable UUID, nil if unknown.
func (db *DB) GetExchangeByUUID(uuid string) (*Exchange, error) {
	row := db.QueryRow(`SELECT `+exchangeColumns+` FROM exchanges WHERE uuid = ?`, uuid)
	e, err := scanExchange(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ActiveExchangeForContact returns the contact's non-terminal exchange, nil
// if none. The orchestrator enforces at most one.
func (db *DB) ActiveExchangeForContact(contactID int64) (*Exchange, error) {
	row := db.QueryRow(`SELECT `+exchangeColumns+` FROM exchanges
		WHERE contact_id = ? AND `+nonTerminalExchangeFilter+` ORDER BY id DESC LIMIT 1`, contactID)
	e, err := scanExchange(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// ListActiveExchanges returns all non-terminal exchanges, oldest first.
func (db *DB) ListActiveExchanges() ([]Exchange, error) {
	rows, err := db.Query(`SELECT ` + exchangeColumns + ` FROM exchanges
		WHERE ` + nonTerminalExchangeFilter + ` ORDER BY initiated_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Exchange
	for rows.Next() {
		e, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// ExpiredExchanges returns non-terminal exchanges whose timeout has passed.
func (db *DB) ExpiredExchanges(now int64) ([]Exchange, error) {
	rows, err := db.Query(`SELECT `+exchangeColumns+` FROM exchanges
		WHERE `+nonTerminalExchangeFilter+` AND timeout_at > 0 AND timeout_at <= ?
		ORDER BY timeout_at ASC`, now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Exchange
	for rows.Next() {
		e, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// CountExchangesByStatus returns exchange counts keyed by status.
func (db *DB) CountExchangesByStatus() (map[string]int, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM exchanges GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}
