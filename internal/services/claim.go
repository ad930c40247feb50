// claim.go
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
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/quizroom/gachadb/internal/config"
	"github.com/quizroom/gachadb/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Claim outcomes.
const (
	OutcomeNewPrimary   = "new_primary"
	OutcomeNewSecondary = "new_secondary"
)

// ItemKey identifies one collectible item within one course.
type ItemKey struct {
	CourseID string
	ItemID   int64
}

// ParseItemKey parses the "courseId:itemId" wire form of an item key.
func ParseItemKey(s string) (ItemKey, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return ItemKey{}, fmt.Errorf("invalid item key %q", s)
	}
	itemID, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil || itemID <= 0 {
		return ItemKey{}, fmt.Errorf("invalid item key %q", s)
	}
	return ItemKey{CourseID: s[:i], ItemID: itemID}, nil
}

// String returns the wire form of the key.
func (k ItemKey) String() string {
	return fmt.Sprintf("%s:%d", k.CourseID, k.ItemID)
}

// ClaimResult describes a committed accept decision.
type ClaimResult struct {
	Outcome     string  `json:"outcome"`
	Generation  int64   `json:"generationIndex"`
	NeedsNaming bool    `json:"needsNaming"`
	DisplayName *string `json:"currentDisplayName"`
}

// Claim commits an accept decision for a previously rolled item. Registry
// state is re-read under lock rather than trusted from the roll, because an
// arbitrary amount of time has passed since then. When the caller's inventory
// is at cap, replace names the holding to evict first.
//
// The whole operation is one transaction: either every consequence commits
// (registry, holding, queue, tenure history, equip continuity) or none does.
func Claim(db *gorm.DB, cfg *config.Config, userID, courseID string, itemID int64, name string, replace *ItemKey) (*ClaimResult, error) {
	if itemID <= 0 || itemID > cfg.ItemRange {
		return nil, ErrInvalidItem
	}
	trimmed := strings.TrimSpace(name)
	if utf8.RuneCountInString(trimmed) > cfg.NameMax {
		return nil, ErrInvalidName
	}

	result := &ClaimResult{}

	claimTx := func(tx *gorm.DB) error {
		var profile models.GachaProfile
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// Re-submission / race guard: the same item may have been claimed
		// between roll and claim.
		var existing models.Holding
		err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Where("user_id = ? AND course_id = ? AND item_id = ?", userID, courseID, itemID).
			First(&existing).Error
		if err == nil {
			return ErrAlreadyOwned
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()

		var owned int64
		if err := tx.Model(&models.Holding{}).
			Where("user_id = ?", userID).
			Count(&owned).Error; err != nil {
			return err
		}

		evictedEquipped := false
		if owned >= cfg.InventoryCap {
			if replace == nil {
				return ErrInventoryFull
			}
			evictedEquipped, err = evictHolding(tx, &profile, *replace, now)
			if err != nil {
				return err
			}
		}

		newHolding := models.Holding{
			UserID:     userID,
			CourseID:   courseID,
			ItemID:     itemID,
			AcquiredAt: now,
		}

		var registry models.ItemRegistry
		err = tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("course_id = ? AND item_id = ?", courseID, itemID).
			First(&registry).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// First claim ever: the caller becomes the item's first finder
			// and must name it. Two transactions racing this create resolve
			// through the unique (course_id, item_id) index: the loser
			// aborts with a duplicate key and is retried below, where it
			// finds the winner's registry and takes the secondary branch.
			if trimmed == "" {
				return ErrInvalidName
			}
			displayName := trimmed
			registry = models.ItemRegistry{
				CourseID:        courseID,
				ItemID:          itemID,
				PrimaryHolderID: &userID,
				DisplayName:     &displayName,
				HolderCount:     1,
				NextGeneration:  2,
			}
			if err := tx.Create(&registry).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.TenureEntry{
				RegistryID:  registry.RegistryID,
				UserID:      userID,
				UserName:    profile.UserName,
				DisplayName: &displayName,
				StartedAt:   now,
			}).Error; err != nil {
				return err
			}
			newHolding.Generation = 1
			newHolding.IsPrimary = true
			result.Outcome = OutcomeNewPrimary
			result.Generation = 1
			result.DisplayName = &displayName

		case err != nil:
			return err

		case registry.PrimaryHolderID == nil:
			// Vacant but historied item: the caller takes over as primary.
			// Generation continues from the counter; the name is optional
			// here and can be set later through rename.
			gen := registry.NextGeneration
			var displayName *string
			if trimmed != "" {
				displayName = &trimmed
			}
			if err := tx.Model(&registry).Updates(map[string]interface{}{
				"primary_holder_id": userID,
				"display_name":      displayName,
				"holder_count":      registry.HolderCount + 1,
				"next_generation":   gen + 1,
			}).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.TenureEntry{
				RegistryID:  registry.RegistryID,
				UserID:      userID,
				UserName:    profile.UserName,
				DisplayName: displayName,
				StartedAt:   now,
			}).Error; err != nil {
				return err
			}
			newHolding.Generation = gen
			newHolding.IsPrimary = true
			result.Outcome = OutcomeNewPrimary
			result.Generation = gen
			result.NeedsNaming = displayName == nil
			result.DisplayName = displayName

		default:
			// Secondary claim: join the succession queue behind the current
			// primary holder.
			gen := registry.NextGeneration
			if err := tx.Model(&registry).Updates(map[string]interface{}{
				"holder_count":    registry.HolderCount + 1,
				"next_generation": gen + 1,
			}).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.SuccessionEntry{
				RegistryID: registry.RegistryID,
				UserID:     userID,
				UserName:   profile.UserName,
				Generation: gen,
				AcquiredAt: now,
			}).Error; err != nil {
				return err
			}
			newHolding.Generation = gen
			result.Outcome = OutcomeNewSecondary
			result.Generation = gen
			result.DisplayName = registry.DisplayName
		}

		// Equip continuity: keep a display slot filled when the evicted
		// holding was equipped, and auto-equip a holder's first item.
		var equipped int64
		if err := tx.Model(&models.Holding{}).
			Where("user_id = ? AND equipped = ?", userID, true).
			Count(&equipped).Error; err != nil {
			return err
		}
		newHolding.Equipped = evictedEquipped || equipped == 0

		if err := tx.Create(&newHolding).Error; err != nil {
			return err
		}

		return appendEvent(tx, userID, courseID, itemID, models.EventClaim, result)
	}

	err := db.Transaction(claimTx)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		*result = ClaimResult{}
		err = db.Transaction(claimTx)
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}
