package handlers

import (
	"errors"

	"assotessera/internal/core/services"
	"assotessera/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ProfileHandler handles member profile endpoints
type ProfileHandler struct {
	profileService *services.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Get returns the authenticated member's profile
// @Summary Get own profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /me/profile [get]
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	profile, err := h.profileService.Get(c.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Profile not completed yet")
		}
		return response.InternalServerError(c, "Failed to load profile")
	}

	return response.Success(c, "Profile", profile)
}

// Upsert creates or updates the authenticated member's profile
// @Summary Create or update own profile
// @Description Validates the fiscal code against name, surname, birth data and consents
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ProfileInput true "Profile data"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /me/profile [put]
func (h *ProfileHandler) Upsert(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var input services.ProfileInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	profile, err := h.profileService.Upsert(c.Context(), userID, &input)
	if err != nil {
		var fieldErrs services.FieldErrors
		if errors.As(err, &fieldErrs) {
			return response.UnprocessableEntity(c, "Validation failed", fieldErrs)
		}
		return response.InternalServerError(c, "Failed to save profile")
	}

	return response.Success(c, "Profile saved", profile)
}
