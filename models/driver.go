package models

// DriverProfile holds delivery-specific state for a user with the driver
// role. Last known location comes from the driver app's heartbeat.
type DriverProfile struct {
	ID        int64   `db:"id" json:"id"`
	UserID    int64   `db:"user_id" json:"user_id"`
	Vehicle   string  `db:"vehicle" json:"vehicle"`
	Lat       float64 `db:"lat" json:"lat"`
	Lng       float64 `db:"lng" json:"lng"`
	Available bool    `db:"available" json:"available"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}
