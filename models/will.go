package models

import (
	"time"
)

// FinalizedWill is an immutable, versioned snapshot of a draft. WillData is
// the draft JSON sealed with the sensitive-data key; only it and UpdatedAt
// change after creation.
type FinalizedWill struct {
	ID        string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string     `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_will_user_version"`
	Version   int        `json:"version" gorm:"not null;uniqueIndex:idx_will_user_version"`
	WillData  string     `json:"-" gorm:"type:text;not null"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" gorm:"autoUpdateTime:false"`
}

// DocumentExport records one rendered PDF handed to object storage.
type DocumentExport struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `json:"user_id" gorm:"type:varchar(36);not null;index"`
	WillID     string    `json:"will_id" gorm:"type:varchar(36);not null;index"`
	Filename   string    `json:"filename" gorm:"not null"`
	StorageKey string    `json:"storage_key" gorm:"not null"`
	Backend    string    `json:"backend" gorm:"not null"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}
