package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/fieldops/console-api/docs"
	"github.com/fieldops/console-api/internal/api/handler"
	"github.com/fieldops/console-api/internal/api/middleware"
	"github.com/fieldops/console-api/internal/core/domain"
	"github.com/fieldops/console-api/internal/core/ports"
	"github.com/fieldops/console-api/internal/core/service"
	mongodb "github.com/fieldops/console-api/internal/infrastructure/db/mongo"
	redisdb "github.com/fieldops/console-api/internal/infrastructure/db/redis"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(
	db *mongo.Database,
	rdb *redis.Client,
	issuer ports.IdentityIssuer,
	audit ports.AuditSink,
	jwtSecret string,
	log zerolog.Logger,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("console"))

	// --- Dependencies ---
	profileRepo := mongodb.NewProfileRepository(db)
	recordRepo := mongodb.NewRoleRecordRepository(db)
	roleRepo := mongodb.NewRoleRepository(db)
	operatorRepo := mongodb.NewOperatorRepository(db)
	guard := redisdb.NewAttemptGuard(rdb)

	compensator := service.NewCompensator(profileRepo, recordRepo, log)
	provisioningService := service.NewProvisioningService(
		issuer, profileRepo, recordRepo, roleRepo, compensator, guard, audit, log,
	)
	authService := service.NewAuthService(operatorRepo, jwtSecret, 24*time.Hour)

	accountHandler := handler.NewAccountHandler(provisioningService)
	roleHandler := handler.NewRoleHandler(roleRepo)
	authHandler := handler.NewAuthHandler(authService)
	authMiddleware := middleware.Auth(jwtSecret)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login)

	// --- Account provisioning (admin gate = the can-create check) ---
	v1 := e.Group("/v1", authMiddleware)
	v1.POST("/accounts", accountHandler.Create, middleware.RBAC(domain.OperatorRoleAdmin))
	v1.PATCH("/accounts/:id", accountHandler.Update, middleware.RBAC(domain.OperatorRoleAdmin))
	v1.GET("/roles", roleHandler.List)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(db, rdb)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Observability & docs ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
