package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gestionpro/gestionpro/internal/api/metrics"
	"github.com/gestionpro/gestionpro/internal/core/domain"
	"github.com/gestionpro/gestionpro/internal/core/ports"
)

const userContextKey = "auth_user"

// Cookie name used as the secondary token transport.
const TokenCookie = "jwt"

// Protect gates a route behind token authentication. The token is taken from
// the Authorization header, falling back to the jwt cookie. On success the
// resolved user is attached to the request context for handlers and the role
// gate.
func Protect(tokens ports.TokenService, users ports.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				metrics.AccessDenialsTotal.WithLabelValues("no_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "you are not logged in, please log in to get access")
			}

			userID, err := tokens.Verify(token)
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
				metrics.AccessDenialsTotal.WithLabelValues("bad_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token, please log in again")
			}
			metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()

			user, err := users.FindByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					metrics.AccessDenialsTotal.WithLabelValues("unknown_user").Inc()
					return echo.NewHTTPError(http.StatusUnauthorized, "the user belonging to this token no longer exists")
				}
				return err
			}

			if !user.Active {
				metrics.AccessDenialsTotal.WithLabelValues("disabled").Inc()
				return echo.NewHTTPError(http.StatusForbidden, "your account has been disabled")
			}

			SetCurrentUser(c, user)
			return next(c)
		}
	}
}

// SetCurrentUser attaches the resolved user to the request context.
func SetCurrentUser(c echo.Context, user *domain.User) {
	c.Set(userContextKey, user)
}

// CurrentUser returns the user attached by Protect, if any.
func CurrentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(userContextKey).(*domain.User)
	return user, ok
}

func extractToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	// A non-bearer header does not claim the request; the cookie may still
	// carry a session.
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
