package models

import (
	"time"
)

// GachaProfile holds the gacha-relevant fields of a platform user.
// Total experience is written by the external accrual system (through the
// admin credit endpoint); the milestone cursor is owned exclusively by this
// service. Owned item keys are the user's Holding rows.
type GachaProfile struct {
	ProfileID       uint64 `gorm:"primaryKey;autoIncrement"`
	UserID          string `gorm:"size:128;uniqueIndex;not null"`
	UserName        string `gorm:"size:128;not null"`
	TotalExperience int64  `gorm:"not null;default:0"`
	LastMilestone   int64  `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Holding is one item currently possessed by one user.
// Generation is assigned from the item registry counter at claim time and is
// never reused. At most one holding per item has IsPrimary set, and it
// matches the registry's primary holder.
type Holding struct {
	HoldingID  uint64 `gorm:"primaryKey;autoIncrement"`
	UserID     string `gorm:"size:128;not null;index:idx_holder_item,unique"`
	CourseID   string `gorm:"size:128;not null;index:idx_holder_item,unique"`
	ItemID     int64  `gorm:"not null;index:idx_holder_item,unique"`
	Generation int64  `gorm:"not null"`
	IsPrimary  bool   `gorm:"not null;default:false"`
	Equipped   bool   `gorm:"not null;default:false"`
	AcquiredAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName overrides the table name for GachaProfile
func (GachaProfile) TableName() string {
	return "gacha_profiles"
}

// TableName overrides the table name for Holding
func (Holding) TableName() string {
	return "holdings"
}
