package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PremHer/appdelivery-sub000/models"
)

// OrderRepository is the core repository for Order entities. Status writes
// are conditional updates: every method that moves an order takes the set of
// statuses the row must still be in, and returns the affected row count so
// callers can detect stale rows instead of assuming success.
type OrderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, user_id, restaurant_id, driver_id, status, total, delivery_fee, dest_lat, dest_lng, proof_of_delivery, cancellation_reason, created_at, updated_at, cancelled_at`

// Create inserts a new order with its items in one transaction. The ID is
// assigned here (UUID); status defaults to 'pending' and driver_id to null.
// Creation is not idempotent and must not be blindly retried by callers.
func (r *OrderRepository) Create(ctx context.Context, o *models.Order, items []models.OrderItem) (*models.Order, error) {
	if o == nil {
		return nil, errors.New("order is nil")
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Total < 0 || o.DeliveryFee < 0 {
		return nil, errors.New("negative amount")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO orders (id, user_id, restaurant_id, status, total, delivery_fee, dest_lat, dest_lng) VALUES (?,?,?,?,?,?,?,?)`,
		o.ID, o.UserID, o.RestaurantID, string(o.Status), o.Total, o.DeliveryFee, o.DestLat, o.DestLng)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].OrderID = o.ID
		if _, err := tx.ExecContext(ctx, `INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES (?,?,?,?)`,
			o.ID, items[i].ProductID, items[i].Quantity, items[i].UnitPrice); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, o.ID)
}

// GetByID fetches an order by its ID. Returns (nil, nil) when not found.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

// ListItems returns the line items of an order.
func (r *OrderRepository) ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, order_id, product_id, quantity, unit_price FROM order_items WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Claim conditionally assigns an unassigned pending order to a driver and
// moves it to confirmed in a single write. The WHERE clause is the
// compare-and-swap: it only applies while driver_id is still null. Returns
// the affected row count; zero means another driver won the race, which is
// an expected outcome, not an error.
func (r *OrderRepository) Claim(ctx context.Context, id string, driverID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET driver_id = ?, status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND driver_id IS NULL AND status = ?`,
		driverID, string(models.OrderStatusConfirmed), id, string(models.OrderStatusPending))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateStatus moves an order to the given status provided the row is still
// in one of the from statuses. Returns the affected row count: zero means
// the row moved since it was read (or does not exist).
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) (int64, error) {
	if len(from) == 0 {
		return 0, errors.New("empty status precondition")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ph, inArgs := statusSet(from)
	args := append([]any{string(to), id}, inArgs...)
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status IN (`+ph+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkCancelled sets status=cancelled together with the reason and
// cancelled_at, guarded by the from statuses.
func (r *OrderRepository) MarkCancelled(ctx context.Context, id string, reason string, from []models.OrderStatus) (int64, error) {
	if len(from) == 0 {
		return 0, errors.New("empty status precondition")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	ph, args := statusSet(from)
	all := append([]any{reason, id}, args...)
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status = 'cancelled', cancellation_reason = ?,
       cancelled_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status IN (`+ph+`)`, all...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkDelivered finishes an order from picked_up. proofURL may be nil: the
// photo is best-effort and delivery succeeds without it.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, proofURL *string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status = 'delivered', proof_of_delivery = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'picked_up'`, proofURL, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReassignDriver overrides the assigned driver. Admin-only escape hatch:
// unlike Claim it does not require driver_id to be null, but it still
// refuses terminal orders.
func (r *OrderRepository) ReassignDriver(ctx context.Context, id string, driverID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET driver_id = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status NOT IN ('delivered','cancelled')`, driverID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EarningsForDriver sums delivery fees over the driver's delivered orders.
// The order's actual delivery_fee is authoritative.
func (r *OrderRepository) EarningsForDriver(ctx context.Context, driverID int64) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var total sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT SUM(delivery_fee) FROM orders WHERE driver_id = ? AND status = 'delivered'`, driverID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Float64, nil
}

// statusSet builds an IN(...) placeholder list and its args.
func statusSet(statuses []models.OrderStatus) (string, []any) {
	ph := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		ph[i] = "?"
		args[i] = string(s)
	}
	return strings.Join(ph, ","), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var status string
	var driverID sql.NullInt64
	var proof, reason, cancelledAt sql.NullString
	err := row.Scan(&o.ID, &o.UserID, &o.RestaurantID, &driverID, &status, &o.Total, &o.DeliveryFee,
		&o.DestLat, &o.DestLng, &proof, &reason, &o.CreatedAt, &o.UpdatedAt, &cancelledAt)
	if err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	if driverID.Valid {
		v := driverID.Int64
		o.DriverID = &v
	}
	if proof.Valid {
		v := proof.String
		o.ProofOfDelivery = &v
	}
	if reason.Valid {
		v := reason.String
		o.CancellationReason = &v
	}
	if cancelledAt.Valid {
		v := cancelledAt.String
		o.CancelledAt = &v
	}
	return &o, nil
}
