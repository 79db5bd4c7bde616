package models

// Coupon applies a discount at checkout. Discount is a fraction in (0, 1].
type Coupon struct {
	ID        int64   `db:"id" json:"id"`
	Code      string  `db:"code" json:"code"`
	Discount  float64 `db:"discount" json:"discount"`
	ExpiresAt string  `db:"expires_at" json:"expires_at"`
	Active    bool    `db:"active" json:"active"`
}
