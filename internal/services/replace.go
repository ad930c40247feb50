// replace.go
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
	"time"

	"github.com/quizroom/gachadb/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// evictHolding removes one holding from the caller's inventory to make room
// for a new claim, running the succession protocol when the evicted holding
// was the item's primary. Runs inside the claim transaction. Returns whether
// the evicted holding occupied an equip slot, so the caller can keep the
// display continuous.
func evictHolding(tx *gorm.DB, profile *models.GachaProfile, key ItemKey, now time.Time) (bool, error) {
	var holding models.Holding
	err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
		Where("user_id = ? AND course_id = ? AND item_id = ?", profile.UserID, key.CourseID, key.ItemID).
		First(&holding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, ErrReplaceNotHeld
	}
	if err != nil {
		return false, err
	}

	if err := tx.Delete(&holding).Error; err != nil {
		return false, err
	}

	var registry models.ItemRegistry
	err = tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("course_id = ? AND item_id = ?", key.CourseID, key.ItemID).
		First(&registry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Holding without a registry is a data inconsistency.
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}

	wasPrimary := holding.IsPrimary &&
		registry.PrimaryHolderID != nil && *registry.PrimaryHolderID == profile.UserID

	if !wasPrimary {
		// Secondary departure: leave the queue and decrement the count.
		if err := tx.Where("registry_id = ? AND user_id = ?", registry.RegistryID, profile.UserID).
			Delete(&models.SuccessionEntry{}).Error; err != nil {
			return false, err
		}
		if err := tx.Model(&registry).
			Update("holder_count", registry.HolderCount-1).Error; err != nil {
			return false, err
		}
		return holding.Equipped, appendEvent(tx, profile.UserID, key.CourseID, key.ItemID,
			models.EventReplace, map[string]interface{}{"generation": holding.Generation, "primary": false})
	}

	// Primary departure: close the active tenure, then hand the item to the
	// next holder in line or leave it vacant.
	if err := tx.Model(&models.TenureEntry{}).
		Where("registry_id = ? AND ended_at IS NULL", registry.RegistryID).
		Update("ended_at", now).Error; err != nil {
		return false, err
	}

	// A primary is never queued; scrub any stale entry before picking a
	// successor.
	if err := tx.Where("registry_id = ? AND user_id = ?", registry.RegistryID, profile.UserID).
		Delete(&models.SuccessionEntry{}).Error; err != nil {
		return false, err
	}

	var next models.SuccessionEntry
	err = tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
		Where("registry_id = ?", registry.RegistryID).
		Order("generation ASC").
		First(&next).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Nobody waiting: the item goes vacant but keeps its history and
		// generation counter.
		if err := tx.Model(&registry).Updates(map[string]interface{}{
			"primary_holder_id": nil,
			"display_name":      nil,
			"holder_count":      registry.HolderCount - 1,
		}).Error; err != nil {
			return false, err
		}

	case err != nil:
		return false, err

	default:
		// Promote the front of the queue. The display name resets: names
		// are scoped to a primary holder's tenure.
		if err := tx.Delete(&next).Error; err != nil {
			return false, err
		}
		if err := tx.Model(&models.Holding{}).
			Where("user_id = ? AND course_id = ? AND item_id = ?", next.UserID, key.CourseID, key.ItemID).
			Update("is_primary", true).Error; err != nil {
			return false, err
		}
		if err := tx.Create(&models.TenureEntry{
			RegistryID: registry.RegistryID,
			UserID:     next.UserID,
			UserName:   next.UserName,
			StartedAt:  now,
		}).Error; err != nil {
			return false, err
		}
		if err := tx.Model(&registry).Updates(map[string]interface{}{
			"primary_holder_id": next.UserID,
			"display_name":      nil,
			"holder_count":      registry.HolderCount - 1,
		}).Error; err != nil {
			return false, err
		}
	}

	return holding.Equipped, appendEvent(tx, profile.UserID, key.CourseID, key.ItemID,
		models.EventReplace, map[string]interface{}{"generation": holding.Generation, "primary": true})
}
