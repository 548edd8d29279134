package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/jwt-auth-service/internal/domain"
	apperrors "github.com/spec-kit/jwt-auth-service/pkg/util"
)

// RequireAuthenticated rejects requests that carry no resolved principal.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireAuthority ensures the principal holds at least one of the allowed authorities.
func RequireAuthority(allowed ...domain.Authority) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		for _, authority := range allowed {
			if principal.HasAuthority(authority) {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient authority")
	}
}
