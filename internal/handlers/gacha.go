package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/quizroom/gachadb/internal/config"
	"github.com/quizroom/gachadb/internal/services"
	"github.com/quizroom/gachadb/internal/types"
	"github.com/quizroom/gachadb/internal/utils"
	"gorm.io/gorm"
)

// GachaHandler handles roll and claim routes
type GachaHandler struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Picker services.ItemPicker
}

// Roll handles POST /api/gacha/:course/roll
// @Summary Roll for a random item
// @Description Consume the caller's next experience milestone and draw one random item from the course
// @Tags Gacha
// @Accept json
// @Produce json
// @Param course path string true "Course ID"
// @Success 200 {object} services.RollResult
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 412 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /gacha/{course}/roll [post]
func (h *GachaHandler) Roll(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "gacha.authorization.user")
	}

	courseID := c.Params("course")
	if courseID == "" {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "gacha.validation.input")
	}

	result, err := services.Roll(h.DB, h.Cfg, h.Picker, userID, courseID)
	if err != nil {
		return serviceErrorResponse(c, err, "roll")
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// claimBody is the request body for Claim.
type claimBody struct {
	ItemID  types.FlexUint64 `json:"itemId"`
	Accept  bool             `json:"accept"`
	Name    string           `json:"name"`
	Replace string           `json:"replace"`
}

// Claim handles POST /api/gacha/:course/claim
// @Summary Claim or decline a rolled item
// @Description Commit a previously rolled item to the caller's inventory, optionally replacing a held item
// @Tags Gacha
// @Accept json
// @Produce json
// @Param course path string true "Course ID"
// @Param body body claimBody true "Claim decision"
// @Success 200 {object} services.ClaimResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 412 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /gacha/{course}/claim [post]
func (h *GachaHandler) Claim(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "gacha.authorization.user")
	}

	courseID := c.Params("course")

	var body claimBody
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "gacha.validation.input")
	}

	if courseID == "" || body.ItemID == 0 {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "gacha.validation.input")
	}

	// Declining never touches storage; the milestone was already spent by
	// the roll.
	if !body.Accept {
		return utils.MutationSuccessResponse(c, fiber.Map{
			"declined": true,
		})
	}

	var replace *services.ItemKey
	if strings.TrimSpace(body.Replace) != "" {
		key, err := services.ParseItemKey(body.Replace)
		if err != nil {
			return utils.ErrorResponse(c, "Invalid replace key", fiber.StatusBadRequest, "gacha.validation.input")
		}
		replace = &key
	}

	result, err := services.Claim(h.DB, h.Cfg, userID, courseID, body.ItemID.Int64(), body.Name, replace)
	if err != nil {
		return serviceErrorResponse(c, err, "claim")
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
