package models

// Product is a menu item offered by a restaurant.
type Product struct {
	ID           int64   `db:"id" json:"id"`
	RestaurantID int64   `db:"restaurant_id" json:"restaurant_id"`
	Name         string  `db:"name" json:"name"`
	Description  string  `db:"description" json:"description"`
	Price        float64 `db:"price" json:"price"`
	Available    bool    `db:"available" json:"available"`
}
