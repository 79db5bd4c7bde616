package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/PremHer/appdelivery-sub000/models"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p == nil {
		return nil, errors.New("product is nil")
	}
	if p.Price < 0 {
		return nil, errors.New("negative price")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO products (restaurant_id, name, description, price, available) VALUES (?,?,?,?,?)`,
		p.RestaurantID, p.Name, p.Description, p.Price, p.Available)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	p.ID = id
	return p, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var p models.Product
	err := r.db.QueryRowContext(ctx, `SELECT id, restaurant_id, name, description, price, available FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.RestaurantID, &p.Name, &p.Description, &p.Price, &p.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]models.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, restaurant_id, name, description, price, available FROM products WHERE restaurant_id = ? ORDER BY id`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.RestaurantID, &p.Name, &p.Description, &p.Price, &p.Available); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetAvailable toggles whether the product can be ordered.
func (r *ProductRepository) SetAvailable(ctx context.Context, id int64, available bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE products SET available = ? WHERE id = ?`, available, id)
	return err
}
