package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/PremHer/appdelivery-sub000/models"
)

type DriverRepository struct {
	db *sql.DB
}

func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

func (r *DriverRepository) Create(ctx context.Context, p *models.DriverProfile) (*models.DriverProfile, error) {
	if p == nil {
		return nil, errors.New("profile is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `INSERT INTO driver_profiles (user_id, vehicle, lat, lng, available) VALUES (?,?,?,?,?)`,
		p.UserID, p.Vehicle, p.Lat, p.Lng, p.Available)
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

func (r *DriverRepository) GetByID(ctx context.Context, id int64) (*models.DriverProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var p models.DriverProfile
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, vehicle, lat, lng, available, created_at FROM driver_profiles WHERE id = ?`, id).
		Scan(&p.ID, &p.UserID, &p.Vehicle, &p.Lat, &p.Lng, &p.Available, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *DriverRepository) GetByUserID(ctx context.Context, userID int64) (*models.DriverProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var p models.DriverProfile
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, vehicle, lat, lng, available, created_at FROM driver_profiles WHERE user_id = ?`, userID).
		Scan(&p.ID, &p.UserID, &p.Vehicle, &p.Lat, &p.Lng, &p.Available, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// UpdateLocation records the driver's last heartbeat position.
func (r *DriverRepository) UpdateLocation(ctx context.Context, id int64, lat, lng float64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE driver_profiles SET lat = ?, lng = ? WHERE id = ?`, lat, lng, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetAvailable toggles whether the driver is accepting orders.
func (r *DriverRepository) SetAvailable(ctx context.Context, id int64, available bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE driver_profiles SET available = ? WHERE id = ?`, available, id)
	return err
}

// ListAvailable returns drivers currently accepting orders. Used to fan out
// the "order ready" notification.
func (r *DriverRepository) ListAvailable(ctx context.Context) ([]models.DriverProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, vehicle, lat, lng, available, created_at FROM driver_profiles WHERE available = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.DriverProfile
	for rows.Next() {
		var p models.DriverProfile
		if err := rows.Scan(&p.ID, &p.UserID, &p.Vehicle, &p.Lat, &p.Lng, &p.Available, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
