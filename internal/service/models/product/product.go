package product

import (
	"time"
)

// Product is rentable equipment. Stock is a single global counter; the
// order lifecycle decrements it on rental commit and increments it on
// return or cancel. It never goes below zero.
type Product struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	CategoryID       int64     `json:"categoryId"`
	CategoryName     string    `json:"categoryName"`
	PerDayPriceCents int64     `json:"perDayPriceCents"`
	Stock            int64     `json:"stock"`
	CreatedBy        int64     `json:"createdBy"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
