package handlers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/quizroom/gachadb/internal/config"
	"github.com/quizroom/gachadb/internal/services"
	"github.com/quizroom/gachadb/internal/utils"
	"gorm.io/gorm"
)

// CollectionHandler handles inventory and registry read/rename/equip routes
type CollectionHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// parseItemParam extracts the :item path parameter as a positive int64.
func parseItemParam(c *fiber.Ctx) (int64, error) {
	itemID, err := strconv.ParseInt(c.Params("item"), 10, 64)
	if err != nil || itemID <= 0 {
		return 0, fmt.Errorf("invalid item id")
	}
	return itemID, nil
}

// GetInventory handles GET /api/gacha/inventory
// @Summary Get the caller's inventory
// @Description Get the caller's milestone progress and every held item
// @Tags Collection
// @Accept json
// @Produce json
// @Success 200 {object} services.Inventory
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /gacha/inventory [get]
func (h *CollectionHandler) GetInventory(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "gacha.authorization.user")
	}

	inv, err := services.GetInventory(h.DB, h.Cfg, userID)
	if err != nil {
		if err == services.ErrNotFound {
			return utils.NotFoundResponse(c, fmt.Sprintf("No gacha profile for user '%s'", userID))
		}
		return serviceErrorResponse(c, err, "getInventory")
	}

	return c.Status(fiber.StatusOK).JSON(inv)
}

// ListCourseItems handles GET /api/gacha/:course/items
// @Summary List discovered items in a course
// @Description List every item ever claimed in a course with holder names and counts
// @Tags Collection
// @Accept json
// @Produce json
// @Param course path string true "Course ID"
// @Success 200 {array} services.CourseItem
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /gacha/{course}/items [get]
func (h *CollectionHandler) ListCourseItems(c *fiber.Ctx) error {
	courseID := c.Params("course")

	items, err := services.ListCourseItems(h.DB, courseID)
	if err != nil {
		if err == services.ErrNotFound {
			return utils.NotFoundResponse(c, fmt.Sprintf("No items discovered in course '%s'", courseID))
		}
		return serviceErrorResponse(c, err, "listCourseItems")
	}

	return c.Status(fiber.StatusOK).JSON(items)
}

// GetItemDetail handles GET /api/gacha/:course/items/:item
// @Summary Get one item's public state
// @Description Get an item's registry state with tenure history and succession queue
// @Tags Collection
// @Accept json
// @Produce json
// @Param course path string true "Course ID"
// @Param item path int true "Item ID"
// @Success 200 {object} services.ItemDetail
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Router /gacha/{course}/items/{item} [get]
func (h *CollectionHandler) GetItemDetail(c *fiber.Ctx) error {
	courseID := c.Params("course")
	itemID, err := parseItemParam(c)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "gacha.validation.input")
	}

	detail, err := services.GetItemDetail(h.DB, courseID, itemID)
	if err != nil {
		if err == services.ErrNotFound {
			return utils.NotFoundResponse(c, fmt.Sprintf("Item '%s:%d' not found", courseID, itemID))
		}
		return serviceErrorResponse(c, err, "getItemDetail")
	}

	return c.Status(fiber.StatusOK).JSON(detail)
}

// RenameItem handles POST /api/gacha/:course/items/:item/name
// @Summary Rename a held item
// @Description Change an item's display name; only the current primary holder may rename
// @Tags Collection
// @Accept json
// @Produce json
// @Param course path string true "Course ID"
// @Param item path int true "Item ID"
// @Param body body object true "New name"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 412 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /gacha/{course}/items/{item}/name [post]
func (h *CollectionHandler) RenameItem(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "gacha.authorization.user")
	}

	courseID := c.Params("course")
	itemID, err := parseItemParam(c)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "gacha.validation.input")
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "gacha.validation.input")
	}

	name, err := services.RenameItem(h.DB, h.Cfg, userID, courseID, itemID, body.Name)
	if err != nil {
		return serviceErrorResponse(c, err, "renameItem")
	}

	return utils.MutationSuccessResponse(c, fiber.Map{
		"displayName": name,
	})
}

// EquipItem handles POST /api/gacha/:course/items/:item/equip
// @Summary Equip a held item
// @Description Mark a held item as displayed, releasing the oldest equipped item when slots are full
// @Tags Collection
// @Accept json
// @Produce json
// @Param course path string true "Course ID"
// @Param item path int true "Item ID"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /gacha/{course}/items/{item}/equip [post]
func (h *CollectionHandler) EquipItem(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden, "gacha.authorization.user")
	}

	courseID := c.Params("course")
	itemID, err := parseItemParam(c)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "gacha.validation.input")
	}

	if err := services.EquipItem(h.DB, h.Cfg, userID, courseID, itemID); err != nil {
		return serviceErrorResponse(c, err, "equipItem")
	}

	return utils.MutationSuccessResponse(c, fiber.Map{
		"equipped": true,
	})
}
