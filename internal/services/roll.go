// roll.go
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

	"github.com/quizroom/gachadb/internal/config"
	"github.com/quizroom/gachadb/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Roll classification kinds.
const (
	RollDuplicate    = "duplicate"
	RollUndiscovered = "undiscovered"
	RollDiscovered   = "discovered"
)

// RollResult describes a classified draw. Nothing about the drawn item is
// committed yet; only the milestone cursor has moved.
type RollResult struct {
	Kind               string  `json:"kind"`
	ItemID             int64   `json:"itemId"`
	CurrentDisplayName *string `json:"currentDisplayName"`
	CurrentHolderName  *string `json:"currentHolderName"`
	HolderCount        int64   `json:"holderCount"`
	OwnedCount         int64   `json:"ownedCount"`
	Generation         *int64  `json:"generationIndex"`
	Milestone          int64   `json:"milestone"`
}

// Roll consumes the caller's next experience milestone and draws one random
// item from the course's id range. The milestone cursor advances even when
// the draw turns out to be a duplicate; registry, holding, and queue records
// are never touched here.
func Roll(db *gorm.DB, cfg *config.Config, picker ItemPicker, userID, courseID string) (*RollResult, error) {
	result := &RollResult{}

	err := db.Transaction(func(tx *gorm.DB) error {
		// Lock the profile row so two concurrent rolls cannot both consume
		// the same milestone.
		var profile models.GachaProfile
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// No profile means no accrued experience yet.
				return ErrMilestoneNotReached
			}
			return err
		}

		eligible := profile.TotalExperience / cfg.MilestoneStep * cfg.MilestoneStep
		if profile.TotalExperience < cfg.MilestoneStep || eligible <= profile.LastMilestone {
			return ErrMilestoneNotReached
		}

		itemID := picker.Pick(cfg.ItemRange)
		result.ItemID = itemID
		result.Milestone = eligible

		// Consume the milestone unconditionally, whatever the draw turns out
		// to be. Declining the item later does not refund it.
		if err := tx.Model(&profile).Update("last_milestone", eligible).Error; err != nil {
			return err
		}

		var owned int64
		if err := tx.Model(&models.Holding{}).
			Where("user_id = ?", userID).
			Count(&owned).Error; err != nil {
			return err
		}
		result.OwnedCount = owned

		var holding models.Holding
		err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Where("user_id = ? AND course_id = ? AND item_id = ?", userID, courseID, itemID).
			First(&holding).Error
		if err == nil {
			result.Kind = RollDuplicate
			gen := holding.Generation
			result.Generation = &gen
			return appendEvent(tx, userID, courseID, itemID, models.EventRoll, result)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var registry models.ItemRegistry
		err = tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Where("course_id = ? AND item_id = ?", courseID, itemID).
			First(&registry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result.Kind = RollUndiscovered
			return appendEvent(tx, userID, courseID, itemID, models.EventRoll, result)
		}
		if err != nil {
			return err
		}

		result.Kind = RollDiscovered
		result.CurrentDisplayName = registry.DisplayName
		result.HolderCount = registry.HolderCount
		if registry.PrimaryHolderID != nil {
			name, err := lookupUserName(tx, *registry.PrimaryHolderID)
			if err != nil {
				return err
			}
			result.CurrentHolderName = name
		}

		return appendEvent(tx, userID, courseID, itemID, models.EventRoll, result)
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

// lookupUserName resolves a user id to its profile display name. Missing
// profiles resolve to nil rather than failing the roll.
func lookupUserName(tx *gorm.DB, userID string) (*string, error) {
	var profile models.GachaProfile
	err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
		Where("user_id = ?", userID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile.UserName, nil
}

// appendEvent writes one audit journal row inside the caller's transaction.
func appendEvent(tx *gorm.DB, userID, courseID string, itemID int64, kind string, payload interface{}) error {
	return tx.Create(&models.GachaEvent{
		UserID:   userID,
		CourseID: courseID,
		ItemID:   itemID,
		Kind:     kind,
		Payload:  models.NewJSON(payload),
	}).Error
}
