// Package middleware provides HTTP middleware for the operator API built
// on the fiber web framework.
package middleware

import (
	"log"
	"strings"

	"recoup/internal/models"
	"recoup/internal/repositories"
	"recoup/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates operator JWTs. It extracts the token from the
// Authorization header, validates signature and expiry, checks the token
// version against the database, and adds the claims to the request context.
type AuthMiddleware struct {
	operators repositories.OperatorRepository
}

func NewAuthMiddleware(operators repositories.OperatorRepository) *AuthMiddleware {
	return &AuthMiddleware{
		operators: operators,
	}
}

func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	_, claims, err := utils.ParseToken(tokenString)
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}

	operator, err := m.operators.GetByID(claims.OperatorID)
	if err != nil {
		log.Printf("Operator %d from token not found", claims.OperatorID)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}

	// A password change or logout bumps the version and invalidates every
	// token issued before it.
	if operator.TokenVersion != claims.TokenVersion {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "session expired"})
	}

	c.Locals("claims", claims)
	c.Locals("operatorID", claims.OperatorID)
	return c.Next()
}

// AdminOnly requires the admin role on top of a valid token.
func AdminOnly(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.OperatorClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid claims"})
	}
	if claims.Role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "insufficient permissions"})
	}
	return c.Next()
}
