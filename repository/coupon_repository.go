package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/PremHer/appdelivery-sub000/models"
)

type CouponRepository struct {
	db *sql.DB
}

func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) Create(ctx context.Context, c *models.Coupon) (*models.Coupon, error) {
	if c == nil {
		return nil, errors.New("coupon is nil")
	}
	if c.Discount <= 0 || c.Discount > 1 {
		return nil, errors.New("discount out of range")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO coupons (code, discount, expires_at, active) VALUES (?,?,?,?)`,
		c.Code, c.Discount, c.ExpiresAt, c.Active)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

// GetActiveByCode returns the coupon only while it is active and unexpired.
func (r *CouponRepository) GetActiveByCode(ctx context.Context, code string) (*models.Coupon, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var c models.Coupon
	err := r.db.QueryRowContext(ctx, `
SELECT id, code, discount, expires_at, active FROM coupons
WHERE code = ? AND active = 1 AND expires_at > ?`, code, time.Now().UTC().Format("2006-01-02 15:04:05")).
		Scan(&c.ID, &c.Code, &c.Discount, &c.ExpiresAt, &c.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CouponRepository) Deactivate(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE coupons SET active = 0 WHERE id = ?`, id)
	return err
}
