package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gestionpro/gestionpro/internal/api/metrics"
	"github.com/gestionpro/gestionpro/internal/api/middleware"
	"github.com/gestionpro/gestionpro/internal/core/domain"
	"github.com/gestionpro/gestionpro/internal/core/ports"
)

// CookieOptions controls the http-only jwt cookie set alongside token
// responses.
type CookieOptions struct {
	Lifetime time.Duration
	// Secure also switches SameSite to Strict; both are required outside
	// development.
	Secure bool
}

type AuthHandler struct {
	authService ports.AuthService
	cookie      CookieOptions
}

func NewAuthHandler(authService ports.AuthService, cookie CookieOptions) *AuthHandler {
	if cookie.Lifetime <= 0 {
		cookie.Lifetime = 24 * time.Hour
	}
	return &AuthHandler{authService: authService, cookie: cookie}
}

type registerRequest struct {
	Name     string `json:"nom" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=seller commercial accountant admin"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// authResponse is the success envelope shared by register, login and me.
type authResponse struct {
	Status string   `json:"status"`
	Token  string   `json:"token,omitempty"`
	Data   userData `json:"data"`
}

type userData struct {
	User *domain.User `json:"user"`
}

// Register creates a new user account and opens a session.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "please provide a name, an email and a password")
	}
	if err := c.Validate(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, user, err := h.authService.Register(c.Request().Context(), req.Name, req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registerResult(err)).Inc()
		return err
	}
	metrics.RegistrationsTotal.WithLabelValues("success").Inc()

	h.setTokenCookie(c, token)
	return c.JSON(http.StatusCreated, authResponse{
		Status: "success",
		Token:  token,
		Data:   userData{User: user},
	})
}

// Login authenticates a user and returns a session token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "please provide your email and your password")
	}
	if err := c.Validate(&req); err != nil {
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "please provide your email and your password")
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	h.setTokenCookie(c, token)
	return c.JSON(http.StatusOK, authResponse{
		Status: "success",
		Token:  token,
		Data:   userData{User: user},
	})
}

// Me echoes the user resolved by the Protect middleware. Useful for the
// client to confirm a stored token is still valid on startup.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  authResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "you are not logged in, please log in to get access")
	}
	return c.JSON(http.StatusOK, authResponse{
		Status: "success",
		Data:   userData{User: user},
	})
}

// ForgotPassword is declared but not implemented.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	return domain.ErrNotImplemented
}

// ResetPassword is declared but not implemented.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	return domain.ErrNotImplemented
}

func (h *AuthHandler) setTokenCookie(c echo.Context, token string) {
	cookie := &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cookie.Lifetime),
		HttpOnly: true,
	}
	if h.cookie.Secure {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}
	c.SetCookie(cookie)
}

func registerResult(err error) string {
	switch err {
	case domain.ErrUserExists:
		return "duplicate"
	case domain.ErrInvalidInput:
		return "invalid"
	}
	return "error"
}

func loginResult(err error) string {
	switch err {
	case domain.ErrInvalidCredentials, domain.ErrInvalidInput:
		return "rejected"
	case domain.ErrTooManyAttempts:
		return "throttled"
	}
	return "error"
}
