package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/jwt-auth-service/internal/api/dto"
	"github.com/spec-kit/jwt-auth-service/internal/auth"
	"github.com/spec-kit/jwt-auth-service/internal/service"
	apperrors "github.com/spec-kit/jwt-auth-service/pkg/util"
)

// UsersHandler exposes sign-up, sign-in and principal endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// SignUp handles POST /v1/signup.
func (h *UsersHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.auth.SignUp(c.UserContext(), req.Username, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			return apperrors.NewValidationError(err.Error(), nil)
		case errors.Is(err, service.ErrUsernameTaken):
			return apperrors.NewConflict(err.Error(), map[string]any{"username": req.Username})
		default:
			return err
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{"user": dto.NewUserResponse(user)},
	})
}

// SignIn handles POST /v1/signin.
func (h *UsersHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	user, token, exp, err := h.auth.SignIn(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return apperrors.NewUnauthorized(err.Error())
		}
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.NewUserResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Me handles GET /v1/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user":        dto.NewUserResponse(principal.User),
			"authorities": principal.Authorities,
		},
	})
}

// AdminPing handles GET /v1/admin/ping.
func (h *UsersHandler) AdminPing(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "ok"}})
}
