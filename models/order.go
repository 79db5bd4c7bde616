package models

// OrderStatus represents the current progress of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusPickedUp  OrderStatus = "picked_up"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ValidOrderStatus reports whether s is a member of the closed status enum.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReady, OrderStatusPickedUp, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order represents a delivery order. The ID is an opaque UUID assigned at
// creation. DriverID is null until exactly one driver claims the order;
// once set it changes only by explicit admin reassignment.
type Order struct {
	ID           string      `db:"id" json:"id"`
	UserID       int64       `db:"user_id" json:"user_id"`
	RestaurantID int64       `db:"restaurant_id" json:"restaurant_id"`
	DriverID     *int64      `db:"driver_id" json:"driver_id"`
	Status       OrderStatus `db:"status" json:"status"`
	Total        float64     `db:"total" json:"total"`
	DeliveryFee  float64     `db:"delivery_fee" json:"delivery_fee"`
	// Delivery destination chosen at checkout.
	DestLat float64 `db:"dest_lat" json:"dest_lat"`
	DestLng float64 `db:"dest_lng" json:"dest_lng"`
	// ProofOfDelivery is a public URL set only on the transition into delivered.
	ProofOfDelivery *string `db:"proof_of_delivery" json:"proof_of_delivery,omitempty"`
	// CancellationReason is set only when status becomes cancelled.
	CancellationReason *string `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          string  `db:"created_at" json:"created_at"`
	UpdatedAt          string  `db:"updated_at" json:"updated_at"`
	CancelledAt        *string `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// OrderItem is a line of an order referencing a product at checkout price.
type OrderItem struct {
	ID        int64   `db:"id" json:"id"`
	OrderID   string  `db:"order_id" json:"order_id"`
	ProductID int64   `db:"product_id" json:"product_id"`
	Quantity  int     `db:"quantity" json:"quantity"`
	UnitPrice float64 `db:"unit_price" json:"unit_price"`
}
