package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/jwt-auth-service/internal/domain"
	apperrors "github.com/spec-kit/jwt-auth-service/pkg/util"
)

const principalKey = "auth_principal"

// PrincipalResolver maps a token subject to the principal it identifies.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, subject string) (*domain.Principal, error)
}

// AuthMiddleware resolves X-AUTH-TOKEN into a principal. Requests without a
// usable token continue unauthenticated; guards decide whether that is allowed.
type AuthMiddleware struct {
	tokens   *TokenProvider
	resolver PrincipalResolver
	logger   *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenProvider, resolver PrincipalResolver, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, resolver: resolver, logger: logger}
}

// Handle attaches the principal for valid tokens.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := ExtractBearerToken(requestHeaders{c})
	if !ok || !m.tokens.Validate(token) {
		return c.Next()
	}

	subject, err := m.tokens.ExtractSubject(token)
	if err != nil {
		// Expiry can land between Validate and ExtractSubject.
		m.logger.Debug("token subject extraction failed", zap.Error(err))
		return c.Next()
	}

	principal, err := m.resolver.ResolvePrincipal(c.UserContext(), subject)
	if err != nil {
		if errors.Is(err, ErrUnknownSubject) {
			m.logger.Info("token subject not found", zap.String("subject", subject))
			return c.Next()
		}
		return apperrors.NewInternalError(err)
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok
}

// requestHeaders adapts fiber's case-insensitive header lookup.
type requestHeaders struct {
	c *fiber.Ctx
}

func (h requestHeaders) Get(key string) string {
	return h.c.Get(key)
}
