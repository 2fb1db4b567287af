package models

import "gorm.io/gorm"

// PurchaseRecord stores the calendar date (UTC, "2006-01-02") of the last
// triggered action for a symbol. It backs the once-per-day guard and must
// survive restarts. There is at most one row per symbol.
type PurchaseRecord struct {
	gorm.Model
	Symbol     string `gorm:"uniqueIndex"`
	LastAction string
}
