package store

import (
	"fmt"
	"time"

	"github.com/Noslix/BinanceBot/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EventLog is the append-only audit trail of the controller. Entries are
// stamped at append time; ordering is append order.
type EventLog struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewEventLog creates an EventLog backed by the given database.
func NewEventLog(db *gorm.DB, logger *zap.Logger) *EventLog {
	return &EventLog{
		db:     db,
		logger: logger.Named("event-log"),
		now:    time.Now,
	}
}

// Append writes a timestamped entry. A write failure is logged and swallowed,
// losing an audit line must never take the controller down.
func (l *EventLog) Append(message string) {
	entry := models.LogEntry{Timestamp: l.now().UTC(), Message: message}
	if err := l.db.Create(&entry).Error; err != nil {
		l.logger.Error("Failed to append log entry", zap.String("message", message), zap.Error(err))
	}
}

// Query returns all entries with a timestamp within the last sinceDays days,
// ascending by timestamp.
func (l *EventLog) Query(sinceDays int) ([]models.LogEntry, error) {
	cutoff := l.now().UTC().Add(-time.Duration(sinceDays) * 24 * time.Hour)
	var entries []models.LogEntry
	if err := l.db.Where("timestamp >= ?", cutoff).Order("timestamp asc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	return entries, nil
}
