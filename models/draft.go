package models

import (
	"time"

	"gorm.io/datatypes"
)

// DraftSection holds one singleton section (personalInfo, familyDetails,
// executor) of a user's working draft.
type DraftSection struct {
	ID        uint           `json:"-" gorm:"primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_draft_section"`
	Section   string         `json:"section" gorm:"not null;uniqueIndex:idx_draft_section"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DraftItem is one element of a list section (assets, beneficiaries,
// allocations). Position preserves the order the user entered items in.
type DraftItem struct {
	ID        uint           `json:"-" gorm:"primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_draft_item"`
	Section   string         `json:"section" gorm:"not null;uniqueIndex:idx_draft_item"`
	ItemID    string         `json:"item_id" gorm:"not null;uniqueIndex:idx_draft_item"`
	Position  int            `json:"position" gorm:"not null;default:0"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
