package models

// Role values carried in users.role and in JWT claims.
const (
	RoleCustomer = "customer"
	RoleDriver   = "driver"
	RoleAdmin    = "admin"
)

// User represents an account in the system. Role defaults to "customer";
// restaurant staff use "admin" accounts scoped to their restaurant.
type User struct {
	ID          int64  `db:"id" json:"id"`
	Username    string `db:"username" json:"username"`
	Role        string `db:"role" json:"role"`
	Phone       string `db:"phone" json:"phone"`
	DeviceToken string `db:"device_token" json:"device_token,omitempty"`
	CreatedAt   string `db:"created_at" json:"created_at"`
}
