package model

import (
	"errors"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidPrice   = errors.New("price must be a positive number")
	ErrMissingProduct = errors.New("product is required")
)

// PriceObservation is a single user-submitted price report.
type PriceObservation struct {
	ID         string    `json:"id"`
	Product    string    `json:"product"`
	Price      float64   `json:"price"`
	Shop       string    `json:"shop"`
	ReporterID string    `json:"reporter_id"`
	ObservedAt time.Time `json:"observed_at"`

	// Optional fields carried over from the submission flow.
	Category string `json:"category,omitempty"`
	Area     string `json:"area,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Validate checks the invariants enforced at the storage boundary.
func (o *PriceObservation) Validate() error {
	if strings.TrimSpace(o.Product) == "" {
		return ErrMissingProduct
	}
	if !ValidPrice(o.Price) {
		return ErrInvalidPrice
	}
	return nil
}

// ValidPrice reports whether p can enter a price sample.
func ValidPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
