package models

import "time"

// SyncLock is a database-backed mutual-exclusion token held for one
// full sync and ingest cycle. At most one automation session runs
// per tenant; the lock is released on completion or failure and
// expires so a crashed holder cannot wedge the scheduler.
type SyncLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LockName  string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_name"`
	LockKey   string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_key"`
	LockedBy  string    `gorm:"size:100" json:"locked_by"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (SyncLock) TableName() string { return "sync_locks" }
