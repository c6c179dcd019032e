package catalog

import (
	"time"
)

// Product represents a catalog entry.
//
// Price sign and name emptiness are not validated at this layer; the admin
// surface stores whatever it was given.
type Product struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Price       int64          `json:"price"`
	Description string         `json:"description,omitempty"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	Sizes       map[string]int `json:"sizes"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// ProductView records that a user has opened a product. At most one row
// exists per (user, product) pair; the timestamp is the first-seen time and
// is never updated afterwards.
type ProductView struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	ProductID int64     `json:"productId"`
	ViewedAt  time.Time `json:"viewedAt"`
}

// TopProduct is a ranking entry derived from product views.
type TopProduct struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Views int64  `json:"views"`
}
