package models

// Message is a chat message attached to an order, exchanged between the
// customer and the assigned driver.
type Message struct {
	ID       int64  `db:"id" json:"id"`
	OrderID  string `db:"order_id" json:"order_id"`
	SenderID int64  `db:"sender_id" json:"sender_id"`
	Body     string `db:"body" json:"body"`
	SentAt   string `db:"sent_at" json:"sent_at"`
}
