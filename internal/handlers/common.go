// common.go
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

package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/quizroom/gachadb/internal/services"
	"github.com/quizroom/gachadb/internal/utils"
	"gorm.io/gorm"
)

// getUserID extracts user ID from context (set by auth middleware)
func getUserID(c *fiber.Ctx) (string, error) {
	user := c.Locals("user")
	if user == nil {
		return "", fmt.Errorf("user not found in context")
	}

	// The user object from authorizer should have an ID field
	userMap, ok := user.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid user data format")
	}

	userID, ok := userMap["id"].(string)
	if !ok {
		return "", fmt.Errorf("user ID not found")
	}

	return userID, nil
}

// serviceErrorResponse maps service layer sentinels to HTTP responses.
// Gameplay preconditions are 412, ownership conflicts 409, bad input 400,
// and missing records 404; anything else is an internal error.
func serviceErrorResponse(c *fiber.Ctx, err error, operation string) error {
	switch {
	case errors.Is(err, services.ErrMilestoneNotReached):
		return utils.PreconditionResponse(c, err.Error(), "gacha.milestone")
	case errors.Is(err, services.ErrInventoryFull):
		return utils.PreconditionResponse(c, err.Error(), "gacha.inventory")
	case errors.Is(err, services.ErrNotPrimaryHolder):
		return utils.PreconditionResponse(c, err.Error(), "gacha.holder")
	case errors.Is(err, services.ErrAlreadyOwned):
		return utils.ConflictResponse(c, err.Error(), "gacha.ownership")
	case errors.Is(err, services.ErrReplaceNotHeld):
		return utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, services.ErrInvalidName):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "gacha.validation.name")
	case errors.Is(err, services.ErrInvalidItem):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "gacha.validation.item")
	case errors.Is(err, services.ErrInvalidCredit):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest, "gacha.validation.credit")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		// A concurrent writer got there first. The lost update is safe to
		// resubmit, so this reads as a retryable conflict, not a 500.
		return utils.ConflictResponse(c, "E_CONFLICT - concurrent update, retry the request", "gacha.conflict")
	default:
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, operation)
	}
}
