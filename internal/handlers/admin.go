package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/quizroom/gachadb/internal/config"
	"github.com/quizroom/gachadb/internal/services"
	"github.com/quizroom/gachadb/internal/types"
	"github.com/quizroom/gachadb/internal/utils"
	"gorm.io/gorm"
)

// AdminHandler handles admin-only routes
type AdminHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// CreditExperience handles POST /api/gacha/admin/experience
// @Summary Credit experience to users
// @Description Apply experience accruals from the quiz engine, creating profiles on first credit
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body object true "Credits to apply"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /gacha/admin/experience [post]
func (h *AdminHandler) CreditExperience(c *fiber.Ctx) error {
	var body struct {
		Credits types.FlexList[services.ExperienceCredit] `json:"credits"`
	}

	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "gacha.validation.input")
	}

	credits := body.Credits.Slice()
	if len(credits) == 0 {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "gacha.validation.input")
	}

	applied, err := services.CreditExperience(h.DB, credits)
	if err != nil {
		return serviceErrorResponse(c, err, "creditExperience")
	}

	return utils.MutationSuccessResponse(c, fiber.Map{
		"applied": applied,
	})
}

// GetHealth handles GET /api/health
// @Summary Service health
// @Description Check database and Authorizer connectivity
// @Tags Admin
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *AdminHandler) GetHealth(c *fiber.Ctx) error {
	result := services.HealthCheck(h.Cfg, h.DB)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
