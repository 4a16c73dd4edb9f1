package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"assotessera/internal/adapters/persistence/repositories"
	"assotessera/internal/core/domain"
	"assotessera/internal/core/services"
	"assotessera/internal/pkg/pagination"
	"assotessera/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles the admin surface: ranges, assignment, member listing
// and export.
type AdminHandler struct {
	cardService       *services.CardNumberService
	membershipService *services.MembershipService
	exportService     *services.ExportService
	userRepo          repositories.UserRepository
	yearRepo          repositories.YearRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	cardService *services.CardNumberService,
	membershipService *services.MembershipService,
	exportService *services.ExportService,
	userRepo repositories.UserRepository,
	yearRepo repositories.YearRepository,
) *AdminHandler {
	return &AdminHandler{
		cardService:       cardService,
		membershipService: membershipService,
		exportService:     exportService,
		userRepo:          userRepo,
		yearRepo:          yearRepo,
	}
}

// AddRangeRequest represents the range creation body
type AddRangeRequest struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// AutoAssignRequest selects the users to assign numbers to
type AutoAssignRequest struct {
	UserIDs []uint `json:"user_ids"`
}

// AssignNumberRequest represents a manual assignment body
type AssignNumberRequest struct {
	Number int `json:"number"`
}

// ListMembers lists users with profiles, paginated
// @Summary List members
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /admin/members [get]
func (h *AdminHandler) ListMembers(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	users, total, err := h.userRepo.List(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list members")
	}

	return response.Success(c, "Members", fiber.Map{
		"members": users,
		"meta":    pagination.GetMeta(params, total),
	})
}

// ListYears lists all association years
// @Summary List association years
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/years [get]
func (h *AdminHandler) ListYears(c *fiber.Ctx) error {
	years, err := h.yearRepo.List(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list years")
	}
	return response.Success(c, "Years", years)
}

// ListRanges lists a year's card number ranges with usage
// @Summary List card number ranges
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param yearID path int true "Year ID"
// @Success 200 {object} response.Response
// @Router /admin/years/{yearID}/ranges [get]
func (h *AdminHandler) ListRanges(c *fiber.Ctx) error {
	yearID, err := paramUint(c, "yearID")
	if err != nil {
		return response.BadRequest(c, "Invalid year id")
	}

	ranges, err := h.cardService.ListRanges(c.Context(), yearID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list ranges")
	}
	return response.Success(c, "Ranges", ranges)
}

// AddRange registers a new card number range for a year
// @Summary Add a card number range
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param yearID path int true "Year ID"
// @Param body body AddRangeRequest true "Inclusive bounds"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/years/{yearID}/ranges [post]
func (h *AdminHandler) AddRange(c *fiber.Ctx) error {
	yearID, err := paramUint(c, "yearID")
	if err != nil {
		return response.BadRequest(c, "Invalid year id")
	}

	var req AddRangeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	adminID := c.Locals("userID").(uint)
	created, err := h.cardService.AddRange(c.Context(), adminID, yearID, req.Start, req.End)
	if err != nil {
		var conflict *services.RangeConflictError
		switch {
		case errors.As(err, &conflict):
			return c.Status(fiber.StatusConflict).JSON(response.Response{
				Success: false,
				Error:   "Numbers already covered or assigned",
				Data:    conflict.Numbers,
			})
		case errors.Is(err, domain.ErrInvalidRange):
			return response.BadRequest(c, "Start must be positive and not greater than end")
		case errors.Is(err, domain.ErrNotFound):
			return response.NotFound(c, "Year not found")
		default:
			return response.InternalServerError(c, "Failed to add range")
		}
	}

	return response.Created(c, "Range added", created)
}

// DeleteRange removes a card number range
// @Summary Delete a card number range
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Range ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/ranges/{id} [delete]
func (h *AdminHandler) DeleteRange(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid range id")
	}

	if err := h.cardService.DeleteRange(c.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrRangeNotFound):
			return response.NotFound(c, "Range not found")
		case errors.Is(err, domain.ErrRangeInUse):
			return response.Conflict(c, "Range has assigned numbers and cannot be deleted")
		default:
			return response.InternalServerError(c, "Failed to delete range")
		}
	}

	return response.Success(c, "Range deleted", nil)
}

// AvailableNumbers returns how many numbers are still free for a year
// @Summary Count available card numbers
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param yearID path int true "Year ID"
// @Success 200 {object} response.Response
// @Router /admin/years/{yearID}/ranges/available [get]
func (h *AdminHandler) AvailableNumbers(c *fiber.Ctx) error {
	yearID, err := paramUint(c, "yearID")
	if err != nil {
		return response.BadRequest(c, "Invalid year id")
	}

	count, err := h.cardService.AvailableCount(c.Context(), yearID)
	if err != nil {
		return response.InternalServerError(c, "Failed to count available numbers")
	}
	return response.Success(c, "Available numbers", fiber.Map{"available": count})
}

// AutoAssign hands out free numbers to the selected users
// @Summary Auto-assign card numbers
// @Description Assigns the lowest free numbers to the selected users' paid memberships; reports users left without a number
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param yearID path int true "Year ID"
// @Param body body AutoAssignRequest true "Users to assign"
// @Success 200 {object} response.Response
// @Router /admin/years/{yearID}/assignments [post]
func (h *AdminHandler) AutoAssign(c *fiber.Ctx) error {
	yearID, err := paramUint(c, "yearID")
	if err != nil {
		return response.BadRequest(c, "Invalid year id")
	}

	var req AutoAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.UserIDs) == 0 {
		return response.BadRequest(c, "At least one user is required")
	}

	result, err := h.cardService.AutoAssign(c.Context(), yearID, req.UserIDs)
	if err != nil {
		return response.InternalServerError(c, "Failed to assign numbers")
	}

	return response.Success(c, "Assignment completed", result)
}

// AssignNumber manually assigns a specific number to a membership
// @Summary Assign a specific card number
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Membership ID"
// @Param body body AssignNumberRequest true "Number"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /admin/memberships/{id}/number [post]
func (h *AdminHandler) AssignNumber(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid membership id")
	}

	var req AssignNumberRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	assignment, err := h.cardService.AssignNumber(c.Context(), id, req.Number)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMembershipNotFound):
			return response.NotFound(c, "Membership not found")
		case errors.Is(err, domain.ErrMembershipNotPending):
			return response.Conflict(c, "Membership is not awaiting a number")
		case errors.Is(err, domain.ErrInvalidRange):
			return response.Conflict(c, "Number is outside every range of the year")
		case errors.Is(err, domain.ErrDuplicateEntry):
			return response.Conflict(c, "Number is already assigned")
		default:
			return response.InternalServerError(c, "Failed to assign number")
		}
	}

	return response.Success(c, "Number assigned", assignment)
}

// CancelMembership moves a membership to the canceled state
// @Summary Cancel a membership
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Membership ID"
// @Success 200 {object} response.Response
// @Router /admin/memberships/{id}/cancel [post]
func (h *AdminHandler) CancelMembership(c *fiber.Ctx) error {
	id, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid membership id")
	}

	if err := h.membershipService.Cancel(c.Context(), id); err != nil {
		if errors.Is(err, domain.ErrMembershipNotFound) {
			return response.NotFound(c, "Membership not found")
		}
		return response.InternalServerError(c, "Failed to cancel membership")
	}

	return response.Success(c, "Membership canceled", nil)
}

// RunExpiration triggers the expiration sweep on demand
// @Summary Expire ended memberships
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/memberships/expire [post]
func (h *AdminHandler) RunExpiration(c *fiber.Ctx) error {
	n, err := h.membershipService.RunExpirationSweep(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to run expiration sweep")
	}
	return response.Success(c, "Expiration sweep completed", fiber.Map{"expired": n})
}

// Export streams the member dataset as a downloadable file
// @Summary Export members
// @Description Generates a csv, xlsx or aics file; the aics format carries a second sheet with excluded rows
// @Tags Admin
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string true "csv, xlsx or aics"
// @Param search query string false "Free-text search"
// @Param status query string false "Membership status filter"
// @Param from query string false "Created from (YYYY-MM-DD)"
// @Param to query string false "Created to (YYYY-MM-DD)"
// @Param user_ids query string false "Comma-separated user ids"
// @Success 200 {file} file
// @Router /admin/export [get]
func (h *AdminHandler) Export(c *fiber.Ctx) error {
	format := services.ExportFormat(c.Query("format", string(services.FormatCSV)))

	filter, err := exportFilterFromQuery(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	file, err := h.exportService.Export(c.Context(), format, filter)
	if err != nil {
		if errors.Is(err, services.ErrUnknownFormat) {
			return response.BadRequest(c, "Unknown export format")
		}
		return response.InternalServerError(c, "Failed to generate export")
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+file.Filename+`"`)
	return c.Send(file.Data)
}

func exportFilterFromQuery(c *fiber.Ctx) (*repositories.ExportFilter, error) {
	filter := &repositories.ExportFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Status: strings.TrimSpace(c.Query("status")),
	}

	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, errors.New("invalid 'from' date, expected YYYY-MM-DD")
		}
		filter.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, errors.New("invalid 'to' date, expected YYYY-MM-DD")
		}
		end := t.Add(24*time.Hour - time.Second)
		filter.To = &end
	}
	if raw := c.Query("user_ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
			if err != nil {
				return nil, errors.New("invalid user id list")
			}
			filter.UserIDs = append(filter.UserIDs, uint(id))
		}
	}

	return filter, nil
}

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
