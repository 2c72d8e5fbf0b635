package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/illegalcall/quickai/internal/models"
)

const accountKey = "account"

// handleAuthError answers every bearer token failure, missing or invalid,
// with 401.
func (s *Server) handleAuthError(c *fiber.Ctx, err error) error {
	s.logger.Info("Rejected bearer token", "path", c.Path(), "error", err)
	return failure(c, fiber.StatusUnauthorized, "Not authorized")
}

// resolveAccount loads plan and usage for the token subject. Both are read
// fresh on every request.
func (s *Server) resolveAccount(c *fiber.Ctx) error {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Not authorized")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Not authorized")
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return failure(c, fiber.StatusUnauthorized, "Token has no subject")
	}

	acct, err := s.directory.GetUser(c.UserContext(), userID)
	if err != nil {
		s.logger.Error("Account lookup failed", "user_id", userID, "error", err)
		return failure(c, fiber.StatusUnauthorized, "Account could not be resolved")
	}

	c.Locals(accountKey, acct)
	return c.Next()
}

func accountFrom(c *fiber.Ctx) models.Account {
	acct, _ := c.Locals(accountKey).(models.Account)
	return acct
}
