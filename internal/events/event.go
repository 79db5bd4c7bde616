package events

import (
	"encoding/json"
	"time"

	"github.com/PremHer/appdelivery-sub000/models"
)

// OrderEvent is the payload published for each order status transition.
type OrderEvent struct {
	OrderID    string             `json:"order_id"`
	UserID     int64              `json:"user_id"`
	DriverID   *int64             `json:"driver_id,omitempty"`
	Event      string             `json:"event"`
	FromStatus models.OrderStatus `json:"from_status"`
	ToStatus   models.OrderStatus `json:"to_status"`
	OccurredAt string             `json:"occurred_at"`
}

// EncodeOrderEvent builds the outbox payload for a transition.
func EncodeOrderEvent(o *models.Order, event string, from models.OrderStatus) ([]byte, error) {
	return json.Marshal(OrderEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		DriverID:   o.DriverID,
		Event:      event,
		FromStatus: from,
		ToStatus:   o.Status,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
}
