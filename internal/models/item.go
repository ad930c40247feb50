// item.go
//
// Collectible reward (gacha) data service for the QuizRoom learning platform
// Copyright (c) 2026 QuizRoom <dev@quizroom.app>
//
// This file is part of gachadb.
// gachadb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gachadb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gachadb.
// If not, see <https://www.gnu.org/licenses/>.

package models

import (
	"time"
)

// ItemRegistry is the shared, course-scoped record for one collectible item.
// Created lazily on the item's first claim and never deleted; HolderCount and
// NextGeneration survive the item going vacant.
type ItemRegistry struct {
	RegistryID      uint64  `gorm:"primaryKey;autoIncrement"`
	CourseID        string  `gorm:"size:128;not null;index:idx_course_item,unique"`
	ItemID          int64   `gorm:"not null;index:idx_course_item,unique"`
	PrimaryHolderID *string `gorm:"size:128"`
	DisplayName     *string `gorm:"size:64"`
	HolderCount     int64   `gorm:"not null;default:0"`
	NextGeneration  int64   `gorm:"not null;default:1"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Tenures         []TenureEntry     `gorm:"foreignKey:RegistryID"`
	Queue           []SuccessionEntry `gorm:"foreignKey:RegistryID"`
}

// TenureEntry is one row of an item's append-only primary-holder history.
// EndedAt stays null while the tenure is active.
type TenureEntry struct {
	TenureID    uint64  `gorm:"primaryKey;autoIncrement"`
	RegistryID  uint64  `gorm:"not null;index"`
	UserID      string  `gorm:"size:128;not null"`
	UserName    string  `gorm:"size:128;not null"`
	DisplayName *string `gorm:"size:64"`
	StartedAt   time.Time
	EndedAt     *time.Time
	CreatedAt   time.Time
}

// SuccessionEntry is one waiting secondary holder of an item. FIFO order is
// ascending generation, which matches claim order.
type SuccessionEntry struct {
	EntryID    uint64 `gorm:"primaryKey;autoIncrement"`
	RegistryID uint64 `gorm:"not null;index"`
	UserID     string `gorm:"size:128;not null"`
	UserName   string `gorm:"size:128;not null"`
	Generation int64  `gorm:"not null"`
	AcquiredAt time.Time
	CreatedAt  time.Time
}

// TableName overrides the table name for ItemRegistry
func (ItemRegistry) TableName() string {
	return "item_registries"
}

// TableName overrides the table name for TenureEntry
func (TenureEntry) TableName() string {
	return "tenure_entries"
}

// TableName overrides the table name for SuccessionEntry
func (SuccessionEntry) TableName() string {
	return "succession_entries"
}
