package models

import (
	"time"
)

// Event kinds recorded in the gacha audit journal.
const (
	EventRoll    = "roll"
	EventClaim   = "claim"
	EventReplace = "replace"
	EventRename  = "rename"
	EventEquip   = "equip"
	EventCredit  = "credit"
)

// GachaEvent is one row of the append-only audit journal. Events are written
// inside the same transaction as the mutation they describe.
type GachaEvent struct {
	EventID   uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"size:128;not null;index"`
	CourseID  string `gorm:"size:128"`
	ItemID    int64
	Kind      string `gorm:"size:16;not null"`
	Payload   JSON   `gorm:"type:json"`
	CreatedAt time.Time
}

// TableName overrides the table name for GachaEvent
func (GachaEvent) TableName() string {
	return "gacha_events"
}
