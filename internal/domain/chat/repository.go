package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines chat message data access
type Repository interface {
	InsertMessage(ctx context.Context, m *Message) error
	GetMessage(ctx context.Context, id uuid.UUID) (*Message, error)
	ListMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*Message, error)

	// MarkRead inserts a read receipt. Returns false without error when
	// the receipt already exists.
	MarkRead(ctx context.Context, messageID, userID uuid.UUID, actorType ActorType) (bool, error)

	CountUnread(ctx context.Context, roomID, userID uuid.UUID) (int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates chat repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) InsertMessage(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO chat_messages (
			id, chat_room_id, type, body_type, body_content,
			sender_id, sender_type, deleted, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, false, NOW(), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.ChatRoomID, m.Type, m.Body.Type, m.Body.Content,
		m.Sender.ID, m.Sender.Type)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (r *repository) GetMessage(ctx context.Context, id uuid.UUID) (*Message, error) {
	var row messageRow
	query := `SELECT * FROM chat_messages WHERE id = $1 AND deleted = false`

	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	m := row.toEntity()
	if err := r.loadReceipts(ctx, []*Message{m}); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *repository) ListMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*Message, error) {
	rows := []*messageRow{}
	query := `
		SELECT * FROM chat_messages
		WHERE chat_room_id = $1 AND deleted = false
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	err := r.db.SelectContext(ctx, &rows, query, roomID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages := make([]*Message, len(rows))
	for i, row := range rows {
		messages[i] = row.toEntity()
	}
	if err := r.loadReceipts(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *repository) MarkRead(ctx context.Context, messageID, userID uuid.UUID, actorType ActorType) (bool, error) {
	query := `
		INSERT INTO chat_message_reads (message_id, user_id, type, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (message_id, user_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, messageID, userID, actorType)
	if err != nil {
		return false, fmt.Errorf("failed to mark message read: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx, `UPDATE chat_messages SET updated_at = NOW() WHERE id = $1`, messageID)
	if err != nil {
		return true, fmt.Errorf("failed to touch message: %w", err)
	}
	return true, nil
}

func (r *repository) CountUnread(ctx context.Context, roomID, userID uuid.UUID) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM chat_messages m
		WHERE m.chat_room_id = $1
		  AND m.deleted = false
		  AND m.sender_id != $2
		  AND NOT EXISTS (
			SELECT 1 FROM chat_message_reads r
			WHERE r.message_id = m.id AND r.user_id = $2
		  )`

	err := r.db.GetContext(ctx, &count, query, roomID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread: %w", err)
	}
	return count, nil
}

func (r *repository) loadReceipts(ctx context.Context, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(messages))
	byID := make(map[uuid.UUID]*Message, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
		byID[m.ID] = m
	}

	query, args, err := sqlx.In(`
		SELECT message_id, user_id, type, created_at
		FROM chat_message_reads
		WHERE message_id IN (?)
		ORDER BY created_at`, ids)
	if err != nil {
		return fmt.Errorf("failed to build receipts query: %w", err)
	}

	receipts := []*ReadReceipt{}
	err = r.db.SelectContext(ctx, &receipts, r.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to load receipts: %w", err)
	}

	for _, receipt := range receipts {
		if m, ok := byID[receipt.MessageID]; ok {
			m.ReadBy = append(m.ReadBy, receipt)
		}
	}
	return nil
}
