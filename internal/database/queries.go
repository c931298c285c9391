package database

import (
	"database/sql"
	"time"
)

const userColumns = "id, username, phone, password_hash, profile_photo, is_online, last_seen, created_at"

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.Phone,
		&u.PasswordHash,
		&u.ProfilePhoto,
		&u.IsOnline,
		&u.LastSeen,
		&u.CreatedAt,
	)

	return u, err
}

func (db *PgTeleTokRepository) CreateAccount(params CreateAccountParams) (User, error) {
	photo := params.ProfilePhoto
	if photo == "" {
		photo = "default.jpg"
	}

	row := db.conn.QueryRow(
		"INSERT INTO users (username, phone, password_hash, profile_photo, last_seen, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) RETURNING "+userColumns,
		params.Username,
		params.Phone,
		params.PasswordHash,
		photo,
		time.Now().UTC(),
	)

	return scanUser(row)
}

func (db *PgTeleTokRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE id = $1 LIMIT 1",
		accountId,
	)

	return scanUser(row)
}

func (db *PgTeleTokRepository) GetAccountByPhone(phone string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE phone = $1 LIMIT 1",
		phone,
	)

	return scanUser(row)
}

func (db *PgTeleTokRepository) UsernameTaken(username string, excludeId int) (bool, error) {
	var id int
	err := db.conn.QueryRow(
		"SELECT id FROM users WHERE username = $1 AND id != $2 LIMIT 1",
		username,
		excludeId,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}

	return err == nil, err
}

func (db *PgTeleTokRepository) UpdateProfile(params UpdateProfileParams) (User, error) {
	row := db.conn.QueryRow(
		"UPDATE users SET "+
			"username = COALESCE(NULLIF($2, ''), username), "+
			"profile_photo = COALESCE(NULLIF($3, ''), profile_photo) "+
			"WHERE id = $1 RETURNING "+userColumns,
		params.UserId,
		params.Username,
		params.ProfilePhoto,
	)

	return scanUser(row)
}

func (db *PgTeleTokRepository) SetPresence(accountId int, online bool, lastSeen time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE users SET is_online = $2, last_seen = $3 WHERE id = $1",
		accountId,
		online,
		lastSeen,
	)

	return err
}

func (db *PgTeleTokRepository) SearchAccounts(query string, excludeId, limit int) ([]User, error) {
	pattern := "%" + query + "%"
	rows, err := db.conn.Query(
		"SELECT "+userColumns+" FROM users "+
			"WHERE (username LIKE $1 OR phone LIKE $1) AND id != $2 LIMIT $3",
		pattern,
		excludeId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err = rows.Scan(
			&u.Id,
			&u.Username,
			&u.Phone,
			&u.PasswordHash,
			&u.ProfilePhoto,
			&u.IsOnline,
			&u.LastSeen,
			&u.CreatedAt,
		); err != nil {
			break
		}

		users = append(users, u)
	}

	return users, err
}

// ContactExists reports whether a link exists between the two users in
// either direction.
func (db *PgTeleTokRepository) ContactExists(accountId, contactId int) (bool, error) {
	var id int
	err := db.conn.QueryRow(
		"SELECT id FROM contacts WHERE (user_id = $1 AND contact_id = $2) "+
			"OR (user_id = $2 AND contact_id = $1) LIMIT 1",
		accountId,
		contactId,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}

	return err == nil, err
}

// CreateContactPair inserts the symmetric contact edges in one transaction.
func (db *PgTeleTokRepository) CreateContactPair(accountId, contactId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	_, err = tx.Exec(
		"INSERT INTO contacts (user_id, contact_id, created_at) VALUES ($1, $2, $3)",
		accountId,
		contactId,
		now,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		"INSERT INTO contacts (user_id, contact_id, created_at) VALUES ($1, $2, $3)",
		contactId,
		accountId,
		now,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgTeleTokRepository) ListContacts(accountId int) ([]ContactEntry, error) {
	rows, err := db.conn.Query(
		"SELECT u.id, u.username, u.phone, u.profile_photo, u.is_online, u.last_seen, "+
			"(SELECT COUNT(*) FROM messages m "+
			" WHERE m.sender_id = u.id AND m.receiver_id = c.user_id AND NOT m.is_seen) "+
			"FROM contacts c JOIN users u ON u.id = c.contact_id "+
			"WHERE c.user_id = $1 ORDER BY u.username",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries = make([]ContactEntry, 0)
	for rows.Next() {
		var e ContactEntry
		if err = rows.Scan(
			&e.User.Id,
			&e.User.Username,
			&e.User.Phone,
			&e.User.ProfilePhoto,
			&e.User.IsOnline,
			&e.User.LastSeen,
			&e.UnreadCount,
		); err != nil {
			break
		}

		entries = append(entries, e)
	}

	return entries, err
}

func (db *PgTeleTokRepository) CreateMessage(senderId, receiverId int, text string) (Message, error) {
	row := db.conn.QueryRow(
		"INSERT INTO messages (sender_id, receiver_id, message_text, sent_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, sender_id, receiver_id, message_text, is_seen, sent_at",
		senderId,
		receiverId,
		text,
		time.Now().UTC(),
	)

	var m Message
	err := row.Scan(
		&m.Id,
		&m.SenderId,
		&m.ReceiverId,
		&m.MessageText,
		&m.IsSeen,
		&m.SentAt,
	)

	return m, err
}

func (db *PgTeleTokRepository) GetMessageById(messageId int) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT id, sender_id, receiver_id, message_text, is_seen, sent_at "+
			"FROM messages WHERE id = $1 LIMIT 1",
		messageId,
	)

	var m Message
	err := row.Scan(
		&m.Id,
		&m.SenderId,
		&m.ReceiverId,
		&m.MessageText,
		&m.IsSeen,
		&m.SentAt,
	)

	return m, err
}

// GetMessageWithSender loads a message joined with the sender's display
// name and photo reference, the canonical broadcast payload.
func (db *PgTeleTokRepository) GetMessageWithSender(messageId int) (Message, error) {
	row := db.conn.QueryRow(
		"SELECT m.id, m.sender_id, m.receiver_id, m.message_text, m.is_seen, m.sent_at, "+
			"u.username, u.profile_photo "+
			"FROM messages m JOIN users u ON m.sender_id = u.id "+
			"WHERE m.id = $1 LIMIT 1",
		messageId,
	)

	var m Message
	err := row.Scan(
		&m.Id,
		&m.SenderId,
		&m.ReceiverId,
		&m.MessageText,
		&m.IsSeen,
		&m.SentAt,
		&m.SenderName,
		&m.SenderPhoto,
	)

	return m, err
}

func (db *PgTeleTokRepository) GetConversation(accountId, otherId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT m.id, m.sender_id, m.receiver_id, m.message_text, m.is_seen, m.sent_at, "+
			"u.username, u.profile_photo "+
			"FROM messages m JOIN users u ON m.sender_id = u.id "+
			"WHERE (m.sender_id = $1 AND m.receiver_id = $2) "+
			"OR (m.sender_id = $2 AND m.receiver_id = $1) "+
			"ORDER BY m.sent_at",
		accountId,
		otherId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0)
	for rows.Next() {
		var m Message
		if err = rows.Scan(
			&m.Id,
			&m.SenderId,
			&m.ReceiverId,
			&m.MessageText,
			&m.IsSeen,
			&m.SentAt,
			&m.SenderName,
			&m.SenderPhoto,
		); err != nil {
			break
		}

		messages = append(messages, m)
	}

	return messages, err
}

func (db *PgTeleTokRepository) MarkConversationSeen(senderId, receiverId int) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET is_seen = TRUE "+
			"WHERE sender_id = $1 AND receiver_id = $2 AND NOT is_seen",
		senderId,
		receiverId,
	)

	return err
}

func (db *PgTeleTokRepository) MarkMessageSeen(messageId int) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET is_seen = TRUE WHERE id = $1",
		messageId,
	)

	return err
}

func (db *PgTeleTokRepository) DeleteMessage(messageId int) error {
	_, err := db.conn.Exec("DELETE FROM messages WHERE id = $1", messageId)

	return err
}
