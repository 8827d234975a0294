package store

import "time"

// QueueDM adds a direct message to the send outbox.
func (db *DB) QueueDM(clientMsgID, userID, body string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO outbox (client_msg_id, user_id, body, status, created_at, updated_at)
		VALUES (?, ?, ?, 'queued', ?, ?)`,
		clientMsgID, userID, body, now, now)
	return err
}

// MarkDMSending updates an outbox entry to 'sending' status.
func (db *DB) MarkDMSending(clientMsgID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'sending', updated_at = ? WHERE client_msg_id = ?`, now, clientMsgID)
	return err
}

// MarkDMSent updates an outbox entry to 'sent' with the platform message ID.
func (db *DB) MarkDMSent(clientMsgID, platformMsgID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'sent', platform_msg_id = ?, updated_at = ? WHERE client_msg_id = ?`, platformMsgID, now, clientMsgID)
	return err
}

// MarkDMFailed updates an outbox entry to 'failed' with an error message.
func (db *DB) MarkDMFailed(clientMsgID, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'failed', error_message = ?, updated_at = ? WHERE client_msg_id = ?`, errMsg, now, clientMsgID)
	return err
}

// RequeueDM puts a 'sending' entry back to 'queued'. Used when the daily cap
// is reached mid-drain so the attempt is deferred, not dropped.
func (db *DB) RequeueDM(clientMsgID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'queued', updated_at = ? WHERE client_msg_id = ?`, now, clientMsgID)
	return err
}

// PendingDMs returns outbox entries that are still queued, oldest first.
func (db *DB) PendingDMs() ([]DMEntry, error) {
	rows, err := db.Query(`
		SELECT id, client_msg_id, user_id, body, status, error_message, platform_msg_id
		FROM outbox WHERE status = 'queued' ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []DMEntry
	for rows.Next() {
		var e DMEntry
		if err := rows.Scan(&e.ID, &e.ClientMsgID, &e.UserID, &e.Body, &e.Status, &e.ErrorMessage, &e.PlatformMsgID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
