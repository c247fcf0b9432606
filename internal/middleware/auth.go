package middleware

import (
	"context"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/relations"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userKey = "user"

// TokenChecker reports whether an issued token is still valid server-side.
type TokenChecker interface {
	TokenActive(ctx context.Context, jti string) (bool, error)
}

// RequireAuth rejects requests without a valid, unrevoked token.
func RequireAuth(cfg *config.Config, tokens TokenChecker) fiber.Handler {
	return newJWT(cfg, tokens, nil)
}

// OptionalAuth lets requests without an Authorization header through as
// anonymous. A header that is present must still carry a valid token.
func OptionalAuth(cfg *config.Config, tokens TokenChecker) fiber.Handler {
	return newJWT(cfg, tokens, func(c *fiber.Ctx) bool {
		return c.Get(fiber.HeaderAuthorization) == ""
	})
}

func newJWT(cfg *config.Config, tokens TokenChecker, filter func(*fiber.Ctx) bool) fiber.Handler {
	return jwtware.New(jwtware.Config{
		Filter:      filter,
		SigningKey:  jwtware.SigningKey{JWTAlg: jwt.SigningMethodHS256.Alg(), Key: []byte(cfg.JWTSecret)},
		ContextKey:  userKey,
		TokenLookup: "header:" + fiber.HeaderAuthorization,
		AuthScheme:  cfg.AuthScheme,
		SuccessHandler: func(c *fiber.Ctx) error {
			active, err := tokens.TokenActive(c.UserContext(), TokenID(c))
			if err != nil {
				return err
			}
			if !active || GetViewer(c).ID == 0 {
				return unauthorized(c)
			}
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c)
		},
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Message: "authentication credentials were not provided or are invalid",
		Code:    "not_authenticated",
	})
}

func claims(c *fiber.Ctx) jwt.MapClaims {
	token, ok := c.Locals(userKey).(*jwt.Token)
	if !ok || token == nil {
		return nil
	}
	mc, _ := token.Claims.(jwt.MapClaims)
	return mc
}

// GetViewer returns the authenticated user, or an anonymous viewer when the
// request carried no token.
func GetViewer(c *fiber.Ctx) relations.Viewer {
	sub, _ := claims(c)["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return relations.Anonymous()
	}
	return relations.Viewer{ID: uint(id)}
}

// TokenID returns the jti of the request's token.
func TokenID(c *fiber.Ctx) string {
	jti, _ := claims(c)["jti"].(string)
	return jti
}
