package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/Noslix/BinanceBot/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// dateLayout is the calendar-date format of the persisted record.
const dateLayout = "2006-01-02"

// PurchaseStore persists the date of the last triggered action per symbol.
// A missing or corrupt record is treated as "no prior action", never fatal.
type PurchaseStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPurchaseStore creates a PurchaseStore backed by the given database.
func NewPurchaseStore(db *gorm.DB, logger *zap.Logger) *PurchaseStore {
	return &PurchaseStore{db: db, logger: logger.Named("purchase-store")}
}

// LastActionDate returns the recorded date for the symbol, or false when no
// usable record exists.
func (s *PurchaseStore) LastActionDate(symbol string) (time.Time, bool) {
	var rec models.PurchaseRecord
	err := s.db.Where("symbol = ?", symbol).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false
	}
	if err != nil {
		s.logger.Warn("Failed to read purchase record, treating as absent",
			zap.String("symbol", symbol), zap.Error(err))
		return time.Time{}, false
	}

	day, err := time.Parse(dateLayout, rec.LastAction)
	if err != nil {
		s.logger.Warn("Corrupt purchase record, treating as absent",
			zap.String("symbol", symbol), zap.String("value", rec.LastAction))
		return time.Time{}, false
	}
	return day, true
}

// SetLastActionDate records that an action happened on the given day.
func (s *PurchaseStore) SetLastActionDate(symbol string, day time.Time) error {
	rec := models.PurchaseRecord{Symbol: symbol}
	if err := s.db.Where(models.PurchaseRecord{Symbol: symbol}).FirstOrCreate(&rec).Error; err != nil {
		return fmt.Errorf("failed to load purchase record for %s: %w", symbol, err)
	}
	if err := s.db.Model(&rec).Update("last_action", day.UTC().Format(dateLayout)).Error; err != nil {
		return fmt.Errorf("failed to save purchase record for %s: %w", symbol, err)
	}
	return nil
}
