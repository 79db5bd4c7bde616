package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/PremHer/appdelivery-sub000/models"
)

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	if m == nil {
		return nil, errors.New("message is nil")
	}
	if m.Body == "" {
		return nil, errors.New("empty message body")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO messages (order_id, sender_id, body) VALUES (?,?,?)`,
		m.OrderID, m.SenderID, m.Body)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	m.ID = id
	return m, nil
}

// ListByOrder returns the order's chat thread oldest first.
func (r *MessageRepository) ListByOrder(ctx context.Context, orderID string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, order_id, sender_id, body, sent_at FROM messages WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.OrderID, &m.SenderID, &m.Body, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
