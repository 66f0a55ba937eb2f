package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/ragchat/ragchat/store"
)

func (d *DB) CreateChatSession(ctx context.Context, create *store.ChatSession) (*store.ChatSession, error) {
	stmt := "INSERT INTO `chat_session` (`uid`, `user_id`, `title`, `is_favorite`) VALUES (?, ?, ?, ?)"
	result, err := d.db.ExecContext(ctx, stmt, create.UID, create.UserID, create.Title, create.IsFavorite)
	if err != nil {
		return nil, err
	}
	rawID, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	id := int32(rawID)
	list, err := d.ListChatSessions(ctx, &store.FindChatSession{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("created session %d not found", id)
	}
	return list[0], nil
}

func (d *DB) ListChatSessions(ctx context.Context, find *store.FindChatSession) ([]*store.ChatSession, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "`id` = ?"), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "`uid` = ?"), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "`user_id` = ?"), append(args, *v)
	}
	if v := find.IsFavorite; v != nil {
		where, args = append(where, "`is_favorite` = ?"), append(args, *v)
	}
	query := fmt.Sprintf(
		"SELECT `id`, `uid`, `user_id`, `title`, `is_favorite`, `created_ts`, `updated_ts`, "+
			"(SELECT COUNT(*) FROM `chat_message` WHERE `session_id` = `chat_session`.`id`) "+
			"FROM `chat_session` WHERE %s ORDER BY `updated_ts` DESC, `id` DESC",
		strings.Join(where, " AND "),
	)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.ChatSession
	for rows.Next() {
		s := &store.ChatSession{}
		if err := rows.Scan(&s.ID, &s.UID, &s.UserID, &s.Title, &s.IsFavorite, &s.CreatedTs, &s.UpdatedTs, &s.MessageCount); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (d *DB) UpdateChatSession(ctx context.Context, update *store.UpdateChatSession) (*store.ChatSession, error) {
	set, args := []string{}, []any{}
	if v := update.Title; v != nil {
		set, args = append(set, "`title` = ?"), append(args, *v)
	}
	if v := update.IsFavorite; v != nil {
		set, args = append(set, "`is_favorite` = ?"), append(args, *v)
	}
	if len(set) > 0 {
		set = append(set, "`updated_ts` = UNIX_TIMESTAMP()")
		args = append(args, update.ID)
		stmt := fmt.Sprintf("UPDATE `chat_session` SET %s WHERE `id` = ?", strings.Join(set, ", "))
		if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
			return nil, err
		}
	}
	list, err := d.ListChatSessions(ctx, &store.FindChatSession{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) DeleteChatSession(ctx context.Context, id int32) error {
	// Messages go with the session via ON DELETE CASCADE.
	_, err := d.db.ExecContext(ctx, "DELETE FROM `chat_session` WHERE `id` = ?", id)
	return err
}

func (d *DB) CreateChatMessage(ctx context.Context, create *store.CreateChatMessage) (*store.ChatMessage, error) {
	stmt := "INSERT INTO `chat_message` (`session_id`, `sender`, `content`, `context`) VALUES (?, ?, ?, ?)"
	result, err := d.db.ExecContext(ctx, stmt, create.SessionID, create.Sender, create.Content, create.Context)
	if err != nil {
		return nil, err
	}
	rawID, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	m := &store.ChatMessage{
		ID:        int32(rawID),
		SessionID: create.SessionID,
		Sender:    create.Sender,
		Content:   create.Content,
		Context:   create.Context,
	}
	if err := d.db.QueryRowContext(ctx, "SELECT `created_ts` FROM `chat_message` WHERE `id` = ?", m.ID).Scan(&m.CreatedTs); err != nil {
		return nil, err
	}
	_, _ = d.db.ExecContext(ctx, "UPDATE `chat_session` SET `updated_ts` = UNIX_TIMESTAMP() WHERE `id` = ?", create.SessionID)
	return m, nil
}

func (d *DB) ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	query := "SELECT `id`, `session_id`, `sender`, `content`, `context`, `created_ts` " +
		"FROM `chat_message` WHERE `session_id` = ? ORDER BY `created_ts` ASC, `id` ASC"
	args := []any{find.SessionID}
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
		if find.Offset != nil {
			query += " OFFSET ?"
			args = append(args, *find.Offset)
		}
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*store.ChatMessage
	for rows.Next() {
		m := &store.ChatMessage{}
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Content, &m.Context, &m.CreatedTs); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (d *DB) CountChatMessages(ctx context.Context, sessionID int32) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM `chat_message` WHERE `session_id` = ?", sessionID).Scan(&count)
	return count, err
}
