package models

// Restaurant represents a pickup origin. Lat/Lng feed the ETA estimate.
type Restaurant struct {
	ID        int64   `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Address   string  `db:"address" json:"address"`
	Lat       float64 `db:"lat" json:"lat"`
	Lng       float64 `db:"lng" json:"lng"`
	IsOpen    bool    `db:"is_open" json:"is_open"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}
