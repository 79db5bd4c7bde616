package repository

import (
	"context"

	"github.com/PremHer/appdelivery-sub000/models"
)

// OrderRepositoryI defines operations on Order entities. Mutating methods
// return the affected row count so callers can distinguish a stale or
// contended row (zero rows) from success.
type OrderRepositoryI interface {
	Create(ctx context.Context, o *models.Order, items []models.OrderItem) (*models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	ListByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	ListByDriverID(ctx context.Context, driverID int64) ([]models.Order, error)
	ListAvailable(ctx context.Context, limit int) ([]models.Order, error)
	ListAdmin(ctx context.Context, p ListOrdersAdminParams) ([]models.Order, error)
	CountByStatus(ctx context.Context) (map[models.OrderStatus]int64, error)
	Claim(ctx context.Context, id string, driverID int64) (int64, error)
	UpdateStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) (int64, error)
	MarkCancelled(ctx context.Context, id string, reason string, from []models.OrderStatus) (int64, error)
	MarkDelivered(ctx context.Context, id string, proofURL *string) (int64, error)
	ReassignDriver(ctx context.Context, id string, driverID int64) (int64, error)
	EarningsForDriver(ctx context.Context, driverID int64) (float64, error)
}

// DriverRepositoryI defines operations on DriverProfile entities.
type DriverRepositoryI interface {
	Create(ctx context.Context, p *models.DriverProfile) (*models.DriverProfile, error)
	GetByID(ctx context.Context, id int64) (*models.DriverProfile, error)
	GetByUserID(ctx context.Context, userID int64) (*models.DriverProfile, error)
	UpdateLocation(ctx context.Context, id int64, lat, lng float64) error
	SetAvailable(ctx context.Context, id int64, available bool) error
	ListAvailable(ctx context.Context) ([]models.DriverProfile, error)
}

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateDeviceToken(ctx context.Context, id int64, token string) error
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}
