// registry.go
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

package services

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quizroom/gachadb/internal/config"
	"github.com/quizroom/gachadb/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

// InventoryItem is one holding joined with its registry state.
type InventoryItem struct {
	CourseID    string    `json:"courseId"`
	ItemID      int64     `json:"itemId"`
	Generation  int64     `json:"generationIndex"`
	IsPrimary   bool      `json:"isPrimary"`
	Equipped    bool      `json:"equipped"`
	AcquiredAt  time.Time `json:"acquiredAt"`
	DisplayName *string   `json:"displayName"`
	HolderCount int64     `json:"holderCount"`
}

// Inventory is a user's gacha state: milestone progress plus holdings.
type Inventory struct {
	UserID          string          `json:"userId"`
	UserName        string          `json:"userName"`
	TotalExperience int64           `json:"totalExperience"`
	LastMilestone   int64           `json:"lastMilestone"`
	NextMilestone   int64           `json:"nextMilestone"`
	OwnedCount      int64           `json:"ownedCount"`
	Items           []InventoryItem `json:"items"`
}

// GetInventory returns the caller's profile summary and holdings.
func GetInventory(db *gorm.DB, cfg *config.Config, userID string) (*Inventory, error) {
	var profile models.GachaProfile
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("user_id = ?", userID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var holdings []models.Holding
	if err := db.Where("user_id = ?", userID).
		Order("acquired_at ASC").
		Find(&holdings).Error; err != nil {
		return nil, err
	}

	inv := &Inventory{
		UserID:          profile.UserID,
		UserName:        profile.UserName,
		TotalExperience: profile.TotalExperience,
		LastMilestone:   profile.LastMilestone,
		NextMilestone:   profile.LastMilestone + cfg.MilestoneStep,
		OwnedCount:      int64(len(holdings)),
		Items:           make([]InventoryItem, 0, len(holdings)),
	}

	for _, h := range holdings {
		item := InventoryItem{
			CourseID:   h.CourseID,
			ItemID:     h.ItemID,
			Generation: h.Generation,
			IsPrimary:  h.IsPrimary,
			Equipped:   h.Equipped,
			AcquiredAt: h.AcquiredAt,
		}
		var registry models.ItemRegistry
		err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
			Where("course_id = ? AND item_id = ?", h.CourseID, h.ItemID).
			First(&registry).Error
		if err == nil {
			item.DisplayName = registry.DisplayName
			item.HolderCount = registry.HolderCount
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		inv.Items = append(inv.Items, item)
	}

	return inv, nil
}

// CourseItem is one discovered item in a course registry listing.
type CourseItem struct {
	ItemID      int64   `json:"itemId"`
	DisplayName *string `json:"displayName"`
	HolderName  *string `json:"holderName"`
	HolderCount int64   `json:"holderCount"`
	Vacant      bool    `json:"vacant"`
}

// ListCourseItems returns every item ever claimed in a course, in id order.
func ListCourseItems(db *gorm.DB, courseID string) ([]CourseItem, error) {
	query := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("course_id = ?", courseID).
		Order("item_id ASC")
	if db.Dialector.Name() == "mysql" {
		query = query.Clauses(hints.UseIndex("idx_course_item"))
	}

	var registries []models.ItemRegistry
	if err := query.Find(&registries).Error; err != nil {
		return nil, err
	}
	if len(registries) == 0 {
		return nil, ErrNotFound
	}

	// Resolve holder names in one pass.
	holderIDs := make([]string, 0, len(registries))
	for _, r := range registries {
		if r.PrimaryHolderID != nil {
			holderIDs = append(holderIDs, *r.PrimaryHolderID)
		}
	}
	names := make(map[string]string, len(holderIDs))
	if len(holderIDs) > 0 {
		var profiles []models.GachaProfile
		if err := db.Where("user_id IN ?", holderIDs).Find(&profiles).Error; err != nil {
			return nil, err
		}
		for _, p := range profiles {
			names[p.UserID] = p.UserName
		}
	}

	items := make([]CourseItem, 0, len(registries))
	for _, r := range registries {
		item := CourseItem{
			ItemID:      r.ItemID,
			DisplayName: r.DisplayName,
			HolderCount: r.HolderCount,
			Vacant:      r.PrimaryHolderID == nil,
		}
		if r.PrimaryHolderID != nil {
			if name, ok := names[*r.PrimaryHolderID]; ok {
				item.HolderName = &name
			}
		}
		items = append(items, item)
	}

	return items, nil
}

// TenureInfo is one entry of an item's primary-holder history.
type TenureInfo struct {
	UserID      string     `json:"userId"`
	UserName    string     `json:"userName"`
	DisplayName *string    `json:"displayName"`
	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt"`
}

// QueueInfo is one waiting secondary holder.
type QueueInfo struct {
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	Generation int64     `json:"generationIndex"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

// ItemDetail is the full public state of one item.
type ItemDetail struct {
	CourseID       string       `json:"courseId"`
	ItemID         int64        `json:"itemId"`
	DisplayName    *string      `json:"displayName"`
	HolderName     *string      `json:"holderName"`
	HolderCount    int64        `json:"holderCount"`
	NextGeneration int64        `json:"nextGenerationIndex"`
	Tenures        []TenureInfo `json:"tenureHistory"`
	Queue          []QueueInfo  `json:"successionQueue"`
}

// GetItemDetail returns one item's registry state with its full tenure
// history and succession queue.
func GetItemDetail(db *gorm.DB, courseID string, itemID int64) (*ItemDetail, error) {
	var registry models.ItemRegistry
	err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Preload("Tenures", func(db *gorm.DB) *gorm.DB {
			return db.Order("started_at ASC")
		}).
		Preload("Queue", func(db *gorm.DB) *gorm.DB {
			return db.Order("generation ASC")
		}).
		Where("course_id = ? AND item_id = ?", courseID, itemID).
		First(&registry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	detail := &ItemDetail{
		CourseID:       registry.CourseID,
		ItemID:         registry.ItemID,
		DisplayName:    registry.DisplayName,
		HolderCount:    registry.HolderCount,
		NextGeneration: registry.NextGeneration,
		Tenures:        make([]TenureInfo, 0, len(registry.Tenures)),
		Queue:          make([]QueueInfo, 0, len(registry.Queue)),
	}
	if registry.PrimaryHolderID != nil {
		name, err := lookupUserName(db, *registry.PrimaryHolderID)
		if err != nil {
			return nil, err
		}
		detail.HolderName = name
	}
	for _, t := range registry.Tenures {
		detail.Tenures = append(detail.Tenures, TenureInfo{
			UserID:      t.UserID,
			UserName:    t.UserName,
			DisplayName: t.DisplayName,
			StartedAt:   t.StartedAt,
			EndedAt:     t.EndedAt,
		})
	}
	for _, q := range registry.Queue {
		detail.Queue = append(detail.Queue, QueueInfo{
			UserID:     q.UserID,
			UserName:   q.UserName,
			Generation: q.Generation,
			AcquiredAt: q.AcquiredAt,
		})
	}

	return detail, nil
}

// RenameItem changes an item's display name. Names are primary-holder-scoped,
// so only the current primary holder may rename, and the open tenure entry
// records the new name.
func RenameItem(db *gorm.DB, cfg *config.Config, userID, courseID string, itemID int64, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > cfg.NameMax {
		return "", ErrInvalidName
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var registry models.ItemRegistry
		err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("course_id = ? AND item_id = ?", courseID, itemID).
			First(&registry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if registry.PrimaryHolderID == nil || *registry.PrimaryHolderID != userID {
			return ErrNotPrimaryHolder
		}

		if err := tx.Model(&registry).Update("display_name", trimmed).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.TenureEntry{}).
			Where("registry_id = ? AND ended_at IS NULL", registry.RegistryID).
			Update("display_name", trimmed).Error; err != nil {
			return err
		}

		return appendEvent(tx, userID, courseID, itemID, models.EventRename,
			map[string]interface{}{"name": trimmed})
	})
	if err != nil {
		return "", err
	}

	return trimmed, nil
}

// EquipItem marks a holding as displayed. When every equip slot is taken the
// oldest equipped holding is released first. Equipping an already-equipped
// holding is a no-op.
func EquipItem(db *gorm.DB, cfg *config.Config, userID, courseID string, itemID int64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		// Profile lock serializes equip-slot changes per user.
		var profile models.GachaProfile
		err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var holding models.Holding
		err = tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Where("user_id = ? AND course_id = ? AND item_id = ?", userID, courseID, itemID).
			First(&holding).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if holding.Equipped {
			return nil
		}

		var equipped []models.Holding
		if err := tx.Where("user_id = ? AND equipped = ?", userID, true).
			Order("acquired_at ASC").
			Find(&equipped).Error; err != nil {
			return err
		}
		if int64(len(equipped)) >= cfg.EquipSlots {
			if err := tx.Model(&equipped[0]).Update("equipped", false).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&holding).Update("equipped", true).Error; err != nil {
			return err
		}

		return appendEvent(tx, userID, courseID, itemID, models.EventEquip, nil)
	})
}

// ExperienceCredit is one accrual written by the external experience system.
type ExperienceCredit struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Amount   int64  `json:"amount"`
}

// CreditExperience applies accruals from the external experience system,
// creating profiles on first credit. The milestone cursor is never touched
// here; only a roll consumes milestones.
func CreditExperience(db *gorm.DB, credits []ExperienceCredit) (int64, error) {
	var applied int64

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, credit := range credits {
			if credit.UserID == "" || credit.Amount <= 0 {
				return ErrInvalidCredit
			}

			var profile models.GachaProfile
			err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("user_id = ?", credit.UserID).
				First(&profile).Error

			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				name := credit.UserName
				if name == "" {
					name = credit.UserID
				}
				profile = models.GachaProfile{
					UserID:          credit.UserID,
					UserName:        name,
					TotalExperience: credit.Amount,
				}
				if err := tx.Create(&profile).Error; err != nil {
					return err
				}

			case err != nil:
				return err

			default:
				updates := map[string]interface{}{
					"total_experience": profile.TotalExperience + credit.Amount,
				}
				if credit.UserName != "" {
					updates["user_name"] = credit.UserName
				}
				if err := tx.Model(&profile).Updates(updates).Error; err != nil {
					return err
				}
			}

			if err := appendEvent(tx, credit.UserID, "", 0, models.EventCredit,
				map[string]interface{}{"amount": credit.Amount}); err != nil {
				return err
			}
			applied++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return applied, nil
}
