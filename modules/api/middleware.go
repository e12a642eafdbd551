package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/task-tracker/modules/auth"
)

const (
	// SessionCookie is the cookie that carries the session token.
	SessionCookie = "token"
	// UserContextKey is the key used to store user claims in the Fiber context.
	UserContextKey = "user"
)

// RequireSession validates the session cookie and stores the claims in
// the request context. Requests without a valid session get 401.
func RequireSession(authAdapter auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authentication required",
			})
		}

		claims, err := authAdapter.ValidateToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired session",
			})
		}

		c.Locals(UserContextKey, claims)
		return c.Next()
	}
}
