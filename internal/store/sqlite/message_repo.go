package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/yati-kasera/chat-app/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageStore = (*MessageRepo)(nil)

const messageColumns = `id, sender_id, recipient_kind, recipient_id, content,
	attachment_url, attachment_mime, reply_to, status, edited, deleted, deleted_at,
	reactions, created_at`

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	reactions, err := marshalReactions(m.Reactions)
	if err != nil {
		return err
	}
	var attURL, attMime sql.NullString
	if m.Attachment != nil {
		attURL = sql.NullString{String: m.Attachment.URL, Valid: true}
		attMime = sql.NullString{String: m.Attachment.MimeType, Valid: true}
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.SenderID, string(m.RecipientKind), m.RecipientID, m.Content,
		attURL, attMime, m.ReplyTo, string(m.Status), m.Edited, m.Deleted, m.DeletedAt,
		reactions, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	return scanMessage(row)
}

func (r *MessageRepo) Update(ctx context.Context, m *domain.Message) error {
	reactions, err := marshalReactions(m.Reactions)
	if err != nil {
		return err
	}
	var attURL, attMime sql.NullString
	if m.Attachment != nil {
		attURL = sql.NullString{String: m.Attachment.URL, Valid: true}
		attMime = sql.NullString{String: m.Attachment.MimeType, Valid: true}
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE messages
		SET content = ?, attachment_url = ?, attachment_mime = ?, status = ?,
			edited = ?, deleted = ?, deleted_at = ?, reactions = ?
		WHERE id = ?
	`, m.Content, attURL, attMime, string(m.Status),
		m.Edited, m.Deleted, m.DeletedAt, reactions, m.ID)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListDirect(ctx context.Context, userA, userB string) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE recipient_kind = 'user'
		  AND ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))
		ORDER BY created_at ASC
	`, userA, userB, userB, userA)
	if err != nil {
		return nil, fmt.Errorf("list direct messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *MessageRepo) ListGroup(ctx context.Context, groupID string) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE recipient_kind = 'group' AND recipient_id = ?
		ORDER BY created_at ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	m := &domain.Message{}
	var kind, status string
	var attURL, attMime sql.NullString
	var reactions string
	err := row.Scan(&m.ID, &m.SenderID, &kind, &m.RecipientID, &m.Content,
		&attURL, &attMime, &m.ReplyTo, &status, &m.Edited, &m.Deleted, &m.DeletedAt,
		&reactions, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.RecipientKind = domain.RecipientKind(kind)
	m.Status = domain.MessageStatus(status)
	if attURL.Valid {
		m.Attachment = &domain.Attachment{URL: attURL.String, MimeType: attMime.String}
	}
	if reactions != "" {
		if err := json.Unmarshal([]byte(reactions), &m.Reactions); err != nil {
			return nil, fmt.Errorf("decode reactions: %w", err)
		}
	}
	return m, nil
}

func scanMessages(rows *sql.Rows) ([]*domain.Message, error) {
	var messages []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func marshalReactions(reactions []domain.Reaction) (string, error) {
	if len(reactions) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(reactions)
	if err != nil {
		return "", fmt.Errorf("encode reactions: %w", err)
	}
	return string(b), nil
}
