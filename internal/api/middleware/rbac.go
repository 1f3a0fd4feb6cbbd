package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
)

// RBAC allows a request through only when the role set by Auth is in the
// allowlist. Admins pass every check: the admin routes carry their own
// group-level RBAC, and ops tooling hits the operational routes with the
// same token it uses for the admin ones.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if role == domain.RoleAdmin {
				return next(c)
			}
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
