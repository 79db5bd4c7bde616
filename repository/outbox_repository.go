package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Outbox task statuses.
const (
	TaskStatusCreated    = "CREATED"
	TaskStatusProcessing = "PROCESSING"
	TaskStatusDone       = "DONE"
	TaskStatusFailed     = "FAILED"
)

// OutboxTask is a pending event destined for the message broker. Writing
// the task in the same store as the order keeps event emission from being
// lost when the broker is unreachable.
type OutboxTask struct {
	ID          uuid.UUID
	Topic       string
	Payload     []byte
	Status      string
	Attempts    int
	LastError   *string
	CreatedAt   string
	ProcessedAt *string
}

type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue stores a new task in CREATED state.
func (r *OutboxRepository) Enqueue(ctx context.Context, topic string, payload []byte) (*OutboxTask, error) {
	if topic == "" {
		return nil, errors.New("empty topic")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	t := &OutboxTask{ID: uuid.New(), Topic: topic, Payload: payload, Status: TaskStatusCreated}
	_, err := r.db.ExecContext(ctx, `INSERT INTO outbox_tasks (id, topic, payload, status) VALUES (?,?,?,?)`,
		t.ID.String(), t.Topic, t.Payload, t.Status)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetProcessable returns tasks eligible for publishing, oldest first.
// CREATED tasks plus FAILED ones below the attempt cap.
func (r *OutboxRepository) GetProcessable(ctx context.Context, limit, maxAttempts int) ([]*OutboxTask, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT id, topic, payload, status, attempts, last_error, created_at, processed_at
FROM outbox_tasks
WHERE status = ? OR (status = ? AND attempts < ?)
ORDER BY created_at ASC
LIMIT ?`, TaskStatusCreated, TaskStatusFailed, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*OutboxTask
	for rows.Next() {
		var t OutboxTask
		var id string
		var lastErr, processedAt sql.NullString
		if err := rows.Scan(&id, &t.Topic, &t.Payload, &t.Status, &t.Attempts, &lastErr, &t.CreatedAt, &processedAt); err != nil {
			return nil, err
		}
		t.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		if lastErr.Valid {
			v := lastErr.String
			t.LastError = &v
		}
		if processedAt.Valid {
			v := processedAt.String
			t.ProcessedAt = &v
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// UpdateStatus records the publish attempt result for a task.
func (r *OutboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, attempts int, lastError *string, done bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var err error
	if done {
		_, err = r.db.ExecContext(ctx, `UPDATE outbox_tasks SET status = ?, attempts = ?, last_error = ?, processed_at = CURRENT_TIMESTAMP WHERE id = ?`,
			status, attempts, lastError, id.String())
	} else {
		_, err = r.db.ExecContext(ctx, `UPDATE outbox_tasks SET status = ?, attempts = ?, last_error = ? WHERE id = ?`,
			status, attempts, lastError, id.String())
	}
	return err
}
