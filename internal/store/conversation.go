package store

import (
	"database/sql"
	"fmt"
	"time"
)

const conversationColumns = `id, contact_id, exchange_id, state, prev_state,
	proposed_terms, context, state_entered_at, expires_at`

func scanConversation(row interface{ Scan(...any) error }) (*Conversation, error) {
	var cv Conversation
	var terms, ctx string
	err := row.Scan(&cv.ID, &cv.ContactID, &cv.ExchangeID, &cv.State, &cv.PrevState,
		&terms, &ctx, &cv.StateEnteredAt, &cv.ExpiresAt)
	if err != nil {
		return nil, err
	}
	cv.ProposedTerms = decodeTerms(terms)
	cv.Context = decodeStringMap(ctx)
	return &cv, nil
}

// UpsertConversation inserts or replaces the conversation for its contact.
// The contact_id UNIQUE constraint is what enforces "at most one cursor per
// contact"; writes are keyed on it so repeating a write is safe.
func (db *DB) UpsertConversation(cv *Conversation) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO conversations (contact_id, exchange_id, state, prev_state,
			proposed_terms, context, state_entered_at, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(contact_id) DO UPDATE SET
			exchange_id = excluded.exchange_id,
			state = excluded.state,
			prev_state = excluded.prev_state,
			proposed_terms = excluded.proposed_terms,
			context = excluded.context,
			state_entered_at = excluded.state_entered_at,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		cv.ContactID, cv.ExchangeID, cv.State, cv.PrevState,
		encodeJSON(cv.ProposedTerms), encodeJSON(cv.Context), cv.StateEnteredAt, cv.ExpiresAt, now)
	if err != nil {
		return fmt.Errorf("upsert conversation for contact %d: %w", cv.ContactID, err)
	}
	return nil
}

// GetConversation returns the contact's conversation cursor, nil if none.
func (db *DB) GetConversation(contactID int64) (*Conversation, error) {
	row := db.QueryRow(`SELECT `+conversationColumns+` FROM conversations WHERE contact_id = ?`, contactID)
	cv, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cv, err
}

// DeleteConversation removes the contact's conversation cursor. Deleting a
// missing cursor is not an error.
func (db *DB) DeleteConversation(contactID int64) error {
	_, err := db.Exec(`DELETE FROM conversations WHERE contact_id = ?`, contactID)
	return err
}

// ExpiredConversations returns cursors whose expiry has passed.
func (db *DB) ExpiredConversations(now int64) ([]Conversation, error) {
	rows, err := db.Query(`SELECT `+conversationColumns+` FROM conversations
		WHERE expires_at > 0 AND expires_at <= ? ORDER BY expires_at ASC`, now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Conversation
	for rows.Next() {
		cv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cv)
	}
	return out, rows.Err()
}
