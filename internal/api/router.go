package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gestionpro/gestionpro/internal/api/handler"
	"github.com/gestionpro/gestionpro/internal/api/middleware"
	"github.com/gestionpro/gestionpro/internal/core/service"
	"github.com/gestionpro/gestionpro/internal/infrastructure/config"
	mongodb "github.com/gestionpro/gestionpro/internal/infrastructure/db/mongo"
	redisdb "github.com/gestionpro/gestionpro/internal/infrastructure/db/redis"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// tokenLifetime is the already-parsed JWT_EXPIRES_IN value.
func NewRouter(log zerolog.Logger, cfg *config.Config, tokenLifetime time.Duration, db *mongo.Database, rdb *redis.Client) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("gestionpro"))

	// --- Dependencies ---
	users := mongodb.NewUserRepository(db)
	tokens := service.NewTokenService(cfg.JWTSecret, tokenLifetime)
	limiter := redisdb.NewLoginLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginAttemptWindow)
	authService := service.NewAuthService(users, tokens, limiter, cfg.BcryptCost)
	authHandler := handler.NewAuthHandler(authService, handler.CookieOptions{
		Lifetime: tokenLifetime,
		Secure:   cfg.Production(),
	})
	protect := middleware.Protect(tokens, users)

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", authHandler.Me, protect)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.PATCH("/reset-password/:token", authHandler.ResetPassword)

	// --- Status + health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/api/status", healthHandler.Status)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Metrics ---
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
