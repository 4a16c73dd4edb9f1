package handlers

import (
	"errors"
	"strings"
	"time"

	"assotessera/internal/config"
	"assotessera/internal/core/services"
	"assotessera/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

// MagicLinkRequest represents the magic link request body
type MagicLinkRequest struct {
	Email      string `json:"email"`
	Newsletter bool   `json:"newsletter"`
}

// AdminLoginRequest represents the admin login body
type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RequestMagicLink handles the passwordless login request
// @Summary Request a magic link
// @Description Sends a single-use login link to the email, creating the account on first request
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body MagicLinkRequest true "Email"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /auth/magic-link [post]
func (h *AuthHandler) RequestMagicLink(c *fiber.Ctx) error {
	var req MagicLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return response.BadRequest(c, "Email is required")
	}

	if err := h.authService.RequestMagicLink(c.Context(), email, req.Newsletter); err != nil {
		if errors.Is(err, services.ErrInvalidEmail) {
			return response.BadRequest(c, "Invalid email address")
		}
		return response.InternalServerError(c, "Failed to send login link")
	}

	// same response whether or not the account existed
	return response.Success(c, "Login link sent", nil)
}

// VerifyMagicLink consumes the emailed token and mints a session
// @Summary Verify a magic link
// @Description Consumes the single-use token and returns a session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param token query string true "Login token"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/verify [get]
func (h *AuthHandler) VerifyMagicLink(c *fiber.Ctx) error {
	token := c.Query("token")

	session, err := h.authService.VerifyMagicLink(c.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTokenExpired):
			return response.Unauthorized(c, "Login link expired, request a new one")
		case errors.Is(err, services.ErrTokenUsed):
			return response.Unauthorized(c, "Login link already used, request a new one")
		case errors.Is(err, services.ErrInvalidToken):
			return response.Unauthorized(c, "Invalid login link")
		default:
			return response.InternalServerError(c, "Failed to verify login link")
		}
	}

	h.setSessionCookie(c, session.AccessToken)

	return response.Success(c, "Logged in", fiber.Map{
		"access_token": session.AccessToken,
		"user":         session.User,
	})
}

// AdminLogin handles the password login for admins
// @Summary Admin login
// @Description Authenticate an admin with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body AdminLoginRequest true "Credentials"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var req AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	token, err := h.authService.AdminLogin(c.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return response.Unauthorized(c, "Invalid email or password")
		}
		return response.InternalServerError(c, "Failed to login")
	}

	h.setSessionCookie(c, token)

	return response.Success(c, "Logged in", fiber.Map{
		"access_token": token,
	})
}

// Logout clears the session cookie
// @Summary Logout
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.cfg.IsProd(),
		SameSite: "Lax",
	})
	return response.Success(c, "Logged out", nil)
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    token,
		Expires:  time.Now().Add(time.Duration(h.cfg.JWT.SessionMinutes) * time.Minute),
		HTTPOnly: true,
		Secure:   h.cfg.IsProd(),
		SameSite: "Lax",
	})
}
