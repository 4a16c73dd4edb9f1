package handlers

import (
	"errors"

	"assotessera/internal/core/domain"
	"assotessera/internal/core/services"
	"assotessera/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// MembershipHandler handles member-facing membership endpoints
type MembershipHandler struct {
	membershipService *services.MembershipService
}

// NewMembershipHandler creates a new membership handler
func NewMembershipHandler(membershipService *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

// Status returns the derived membership state. The frontend polls this while
// a payment is processing.
// @Summary Membership status
// @Tags Membership
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /memberships/status [get]
func (h *MembershipHandler) Status(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	status, err := h.membershipService.GetStatus(c.Context(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load membership status")
	}

	return response.Success(c, "Membership status", status)
}

// Checkout starts a payment for the active year
// @Summary Start checkout
// @Description Creates the pending membership and the payment order, returns the approval link
// @Tags Membership
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /memberships/checkout [post]
func (h *MembershipHandler) Checkout(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	checkout, err := h.membershipService.Checkout(c.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPurchaseNotAllowed):
			return response.Conflict(c, "A membership purchase is not allowed in the current state")
		case errors.Is(err, domain.ErrNoActiveYear):
			return response.Conflict(c, "No membership year is currently open")
		default:
			return response.InternalServerError(c, "Failed to start checkout")
		}
	}

	return response.Created(c, "Checkout started", checkout)
}
