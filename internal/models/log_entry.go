package models

import (
	"time"

	"gorm.io/gorm"
)

// LogEntry is a single append-only audit log record. Entries are never
// updated or deleted after being written.
type LogEntry struct {
	gorm.Model
	Timestamp time.Time `gorm:"index"`
	Message   string
}
