package store

import (
	"database/sql"
	"fmt"
	"time"
)

const contactColumns = `id, platform, user_id, username, display_name, status,
	discovered_at, source_group_id, source_group_name, source_message, source_video_url,
	reliability_score, total_exchanges, successful_exchanges, failed_exchanges,
	first_contact_at, last_contact_at, last_response_at, last_exchange_at,
	preferred_terms, response_time_avg, notes, tags`

func scanContact(row interface{ Scan(...any) error }) (*Contact, error) {
	var c Contact
	var terms, tags string
	err := row.Scan(&c.ID, &c.Platform, &c.UserID, &c.Username, &c.DisplayName, &c.Status,
		&c.DiscoveredAt, &c.SourceGroupID, &c.SourceGroupName, &c.SourceMessage, &c.SourceVideoURL,
		&c.ReliabilityScore, &c.TotalExchanges, &c.SuccessfulExchanges, &c.FailedExchanges,
		&c.FirstContactAt, &c.LastContactAt, &c.LastResponseAt, &c.LastExchangeAt,
		&terms, &c.ResponseTimeAvg, &c.Notes, &tags)
	if err != nil {
		return nil, err
	}
	c.PreferredTerms = decodeTerms(terms)
	c.Tags = decodeStrings(tags)
	return &c, nil
}

// CreateContact inserts a new contact and sets c.ID.
func (db *DB) CreateContact(c *Contact) error {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO contacts (platform, user_id, username, display_name, status,
			discovered_at, source_group_id, source_group_name, source_message, source_video_url,
			reliability_score, total_exchanges, successful_exchanges, failed_exchanges,
			first_contact_at, last_contact_at, last_response_at, last_exchange_at,
			preferred_terms, response_time_avg, notes, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Platform, c.UserID, c.Username, c.DisplayName, c.Status,
		c.DiscoveredAt, c.SourceGroupID, c.SourceGroupName, c.SourceMessage, c.SourceVideoURL,
		c.ReliabilityScore, c.TotalExchanges, c.SuccessfulExchanges, c.FailedExchanges,
		c.FirstContactAt, c.LastContactAt, c.LastResponseAt, c.LastExchangeAt,
		encodeJSON(c.PreferredTerms), c.ResponseTimeAvg, c.Notes, encodeJSON(c.Tags), now, now)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// UpdateContact writes all mutable contact fields by id.
func (db *DB) UpdateContact(c *Contact) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE contacts SET username = ?, display_name = ?, status = ?,
			reliability_score = ?, total_exchanges = ?, successful_exchanges = ?, failed_exchanges = ?,
			first_contact_at = ?, last_contact_at = ?, last_response_at = ?, last_exchange_at = ?,
			preferred_terms = ?, response_time_avg = ?, notes = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		c.Username, c.DisplayName, c.Status,
		c.ReliabilityScore, c.TotalExchanges, c.SuccessfulExchanges, c.FailedExchanges,
		c.FirstContactAt, c.LastContactAt, c.LastResponseAt, c.LastExchangeAt,
		encodeJSON(c.PreferredTerms), c.ResponseTimeAvg, c.Notes, encodeJSON(c.Tags), now,
		c.ID)
	if err != nil {
		return fmt.Errorf("update contact %d: %w", c.ID, err)
	}
	return nil
}

// GetContact returns a contact by platform-scoped user id, nil if unknown.
func (db *DB) GetContact(platform, userID string) (*Contact, error) {
	row := db.QueryRow(`SELECT `+contactColumns+` FROM contacts WHERE platform = ? AND user_id = ?`, platform, userID)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetContactByID returns a contact by primary key, nil if unknown.
func (db *DB) GetContactByID(id int64) (*Contact, error) {
	row := db.QueryRow(`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListContacts returns contacts ordered by reliability, most reliable first.
func (db *DB) ListContacts(limit, offset int) ([]Contact, error) {
	rows, err := db.Query(`SELECT `+contactColumns+` FROM contacts
		ORDER BY reliability_score DESC, id ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ContactsReadyForRelaunch returns contacts eligible for a fresh proposal:
// previously worked statuses, idle since lastContactBefore, score at or above
// minScore, and no exchange currently in flight.
func (db *DB) ContactsReadyForRelaunch(minScore int, lastContactBefore int64, limit int) ([]Contact, error) {
	rows, err := db.Query(`SELECT `+contactColumns+` FROM contacts c
		WHERE c.status IN ('unresponsive', 'responded', 'active_saved')
		  AND c.last_contact_at > 0 AND c.last_contact_at <= ?
		  AND c.reliability_score >= ?
		  AND NOT EXISTS (
			SELECT 1 FROM exchanges e
			WHERE e.contact_id = c.id AND e.`+nonTerminalExchangeFilter+`
		  )
		ORDER BY c.reliability_score DESC, c.last_contact_at ASC
		LIMIT ?`, lastContactBefore, minScore, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CountContactsByStatus returns contact counts keyed by lifecycle status.
func (db *DB) CountContactsByStatus() (map[string]int, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM contacts GROUP BY status`)
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
