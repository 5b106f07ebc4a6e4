package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gestionpro/gestionpro/internal/api/metrics"
	"github.com/gestionpro/gestionpro/internal/core/domain"
)

// Authorize enforces role-based access control. It must always be mounted
// downstream of Protect, which performs the identity check and attaches the
// user to the context.
func Authorize(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "you are not logged in, please log in to get access")
			}
			if _, ok := allowed[user.Role]; !ok {
				metrics.AccessDenialsTotal.WithLabelValues("role").Inc()
				return echo.NewHTTPError(http.StatusForbidden, "you do not have permission to perform this action")
			}
			return next(c)
		}
	}
}
