package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
)

// ctxClaims extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any service call:
//   - role must be non-empty (presence proves the middleware ran).
//   - courier role requires a non-empty courier_id; customer role requires a
//     non-empty user_id. Without them the JWT is structurally valid but
//     operationally unusable — reject with 401.
func ctxClaims(c echo.Context) (role, actorID string, err error) {
	role, _ = c.Get("role").(string)
	if role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	switch role {
	case domain.RoleCourier:
		actorID, _ = c.Get("courier_id").(string)
		if actorID == "" {
			return "", "", echo.NewHTTPError(http.StatusUnauthorized, "token missing courier identity")
		}
	case domain.RoleCustomer:
		actorID, _ = c.Get("user_id").(string)
		if actorID == "" {
			return "", "", echo.NewHTTPError(http.StatusUnauthorized, "token missing user identity")
		}
	}

	return role, actorID, nil
}
