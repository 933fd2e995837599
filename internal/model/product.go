package model

import "time"

// Product is a catalog entry that observations refer to by ID.
type Product struct {
	ID        string  `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Unit      string  `json:"unit" yaml:"unit"`
	BasePrice float64 `json:"base_price" yaml:"base_price"`
}

// CatalogState is the persisted reference-price state of the catalog.
type CatalogState struct {
	LastMedians   map[string]float64 `json:"last_medians"`
	LastRefreshAt time.Time          `json:"last_refresh_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}
