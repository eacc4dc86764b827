package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller of one request.
type Principal struct {
	User    *domain.User
	Session *domain.Session
	Token   string
}

// AuthMiddleware validates bearer tokens against live sessions and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	sessions SessionStore
	users    repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, sessions SessionStore, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, sessions: sessions, users: users}
}

// Handle enforces authentication for protected routes. A request without a
// token is forbidden; a token that does not resolve to a live session is unauthorized.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if authHeader == "" {
		return apperrors.NewForbidden("missing authorization token")
	}

	tokenStr := authHeader
	if parts := strings.SplitN(authHeader, " ", 2); len(parts) == 2 {
		if !strings.EqualFold(parts[0], "Bearer") {
			return apperrors.NewUnauthorized("invalid authorization header")
		}
		tokenStr = strings.TrimSpace(parts[1])
	}
	if tokenStr == "" {
		return apperrors.NewForbidden("missing authorization token")
	}

	claims, err := m.tokens.ParseToken(tokenStr)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	ctx := c.UserContext()
	session, err := m.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return apperrors.NewUnauthorized("session expired or revoked")
		}
		return apperrors.NewInternalError(err)
	}

	user, err := m.users.GetByEmail(ctx, session.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{User: user, Session: session, Token: strings.Clone(tokenStr)})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
