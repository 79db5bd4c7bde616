package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/PremHer/appdelivery-sub000/models"
)

// ListByUserID returns all orders for a customer ordered by created_at desc.
func (r *OrderRepository) ListByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanOrderRows(rows)
}

// ListByDriverID returns all orders assigned to a driver, newest first.
func (r *OrderRepository) ListByDriverID(ctx context.Context, driverID int64) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE driver_id = ? ORDER BY created_at DESC, id DESC`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanOrderRows(rows)
}

// ListAvailable returns unassigned pending orders a driver may claim,
// oldest first. Losing a claim race means this view is stale; callers
// refresh it from here.
func (r *OrderRepository) ListAvailable(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT `+orderColumns+` FROM orders
WHERE driver_id IS NULL AND status = 'pending'
ORDER BY created_at ASC, id ASC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanOrderRows(rows)
}

// ListOrdersAdminParams represents filters and pagination for ListAdmin.
type ListOrdersAdminParams struct {
	Statuses    []models.OrderStatus
	UserID      *int64
	DriverID    *int64
	CreatedFrom *string // optional inclusive lower bound on created_at
	CreatedTo   *string // optional inclusive upper bound on created_at
	PageSize    int
	AfterTime   string // keyset cursor: created_at of the last row seen
	AfterID     string // keyset cursor: order id of the last row seen
}

// ListAdmin returns orders matching filters ordered by created_at desc,
// id desc with keyset pagination.
func (r *OrderRepository) ListAdmin(ctx context.Context, p ListOrdersAdminParams) ([]models.Order, error) {
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var where []string
	var args []any

	if len(p.Statuses) > 0 {
		ph, inArgs := statusSet(p.Statuses)
		where = append(where, "status IN ("+ph+")")
		args = append(args, inArgs...)
	}
	if p.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *p.UserID)
	}
	if p.DriverID != nil {
		where = append(where, "driver_id = ?")
		args = append(args, *p.DriverID)
	}
	if p.CreatedFrom != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *p.CreatedFrom)
	}
	if p.CreatedTo != nil {
		where = append(where, "created_at <= ?")
		args = append(args, *p.CreatedTo)
	}
	if p.AfterTime != "" && p.AfterID != "" {
		where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, p.AfterTime, p.AfterTime, p.AfterID)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, p.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanOrderRows(rows)
}

// CountByStatus returns order counts per status for the admin dashboard.
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[models.OrderStatus]int64{}
	for rows.Next() {
		var s string
		var n int64
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[models.OrderStatus(s)] = n
	}
	return out, rows.Err()
}

// scanOrderRows is a helper to scan rows into Order values.
func (r *OrderRepository) scanOrderRows(rows *sql.Rows) ([]models.Order, error) {
	var out []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}
