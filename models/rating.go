package models

// Rating is left by the customer after delivery. One per order.
type Rating struct {
	ID        int64  `db:"id" json:"id"`
	OrderID   string `db:"order_id" json:"order_id"`
	UserID    int64  `db:"user_id" json:"user_id"`
	Stars     int    `db:"stars" json:"stars"`
	Comment   string `db:"comment" json:"comment"`
	CreatedAt string `db:"created_at" json:"created_at"`
}
