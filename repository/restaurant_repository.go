package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/PremHer/appdelivery-sub000/models"
)

type RestaurantRepository struct {
	db *sql.DB
}

func NewRestaurantRepository(db *sql.DB) *RestaurantRepository {
	return &RestaurantRepository{db: db}
}

func (r *RestaurantRepository) Create(ctx context.Context, m *models.Restaurant) (*models.Restaurant, error) {
	if m == nil {
		return nil, errors.New("restaurant is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO restaurants (name, address, lat, lng, is_open) VALUES (?,?,?,?,?)`,
		m.Name, m.Address, m.Lat, m.Lng, m.IsOpen)
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

func (r *RestaurantRepository) GetByID(ctx context.Context, id int64) (*models.Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var m models.Restaurant
	err := r.db.QueryRowContext(ctx, `SELECT id, name, address, lat, lng, is_open, created_at FROM restaurants WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Address, &m.Lat, &m.Lng, &m.IsOpen, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// SetOpen toggles whether the restaurant accepts new orders.
func (r *RestaurantRepository) SetOpen(ctx context.Context, id int64, open bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE restaurants SET is_open = ? WHERE id = ?`, open, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *RestaurantRepository) List(ctx context.Context, limit, offset int) ([]models.Restaurant, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, address, lat, lng, is_open, created_at FROM restaurants ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Restaurant
	for rows.Next() {
		var m models.Restaurant
		if err := rows.Scan(&m.ID, &m.Name, &m.Address, &m.Lat, &m.Lng, &m.IsOpen, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
