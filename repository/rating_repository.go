package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/PremHer/appdelivery-sub000/models"
)

type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create inserts the customer's rating for a delivered order. The orders
// table enforces one rating per order via a unique index.
func (r *RatingRepository) Create(ctx context.Context, m *models.Rating) (*models.Rating, error) {
	if m == nil {
		return nil, errors.New("rating is nil")
	}
	if m.Stars < 1 || m.Stars > 5 {
		return nil, errors.New("stars out of range")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO ratings (order_id, user_id, stars, comment) VALUES (?,?,?,?)`,
		m.OrderID, m.UserID, m.Stars, m.Comment)
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

func (r *RatingRepository) GetByOrder(ctx context.Context, orderID string) (*models.Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var m models.Rating
	err := r.db.QueryRowContext(ctx, `SELECT id, order_id, user_id, stars, comment, created_at FROM ratings WHERE order_id = ?`, orderID).
		Scan(&m.ID, &m.OrderID, &m.UserID, &m.Stars, &m.Comment, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// AverageForDriver returns the mean stars over a driver's delivered orders.
func (r *RatingRepository) AverageForDriver(ctx context.Context, driverID int64) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
SELECT AVG(rt.stars) FROM ratings rt
JOIN orders o ON o.id = rt.order_id
WHERE o.driver_id = ?`, driverID).Scan(&avg)
	if err != nil {
		return 0, err
	}
	return avg.Float64, nil
}
