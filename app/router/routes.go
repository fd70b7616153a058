// Package router provides HTTP routing, middleware configuration, and server setup for the settlement API
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/amirphl/betting-settlement/app/dto"
	"github.com/amirphl/betting-settlement/app/handlers"
	"github.com/amirphl/betting-settlement/app/middleware"
	"github.com/amirphl/betting-settlement/config"
	"github.com/amirphl/betting-settlement/docs"
	"github.com/amirphl/betting-settlement/models"
	"github.com/amirphl/betting-settlement/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const healthPath = "/health"

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// Handlers groups every endpoint handler the router mounts
type Handlers struct {
	Auth        handlers.AuthHandlerInterface
	Account     handlers.AccountHandlerInterface
	Admin       handlers.AdminHandlerInterface
	AutoPayment handlers.AutoPaymentHandlerInterface
	Opay        handlers.OpayHandlerInterface
	Game        handlers.GameHandlerInterface
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app            *fiber.App
	cfg            *config.ProductionConfig
	logger         *zap.Logger
	handlers       Handlers
	authMiddleware *middleware.AuthMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ProductionConfig, logger *zap.Logger, h Handlers, authMiddleware *middleware.AuthMiddleware) *FiberRouter {
	r := &FiberRouter{
		cfg:            cfg,
		logger:         logger,
		handlers:       h,
		authMiddleware: authMiddleware,
	}

	r.app = fiber.New(fiber.Config{
		AppName:      "Betting Settlement API",
		ServerHeader: "betting-settlement",
		ErrorHandler: r.errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return r
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	r.logger.Info("Setting up routes")

	r.setupMiddleware()

	r.app.Get(healthPath, r.healthCheck)
	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}
	if r.cfg.Deployment.IsDevelopment() {
		r.app.Get("/swagger.json", r.serveSwaggerJSON)
		r.logger.Info("API documentation enabled for development")
	}

	r.app.Use(r.rateLimiter(r.cfg.Security.GlobalRateLimit))

	// Machine-to-machine endpoints authenticate with shared keys or signatures inside the flows
	r.app.Post("/auto-payment", r.handlers.AutoPayment.Ingest)
	r.app.Post("/opay/callback", r.handlers.Opay.Callback)
	r.app.Post("/opay/deposit-confirm", r.handlers.Opay.DepositConfirm)
	r.app.Post("/callback", r.handlers.Game.Callback)
	r.app.Post("/refund", r.handlers.Game.Refund)

	accountAuth := r.authMiddleware.Authenticate()
	adminAuth := r.authMiddleware.AdminAuthenticate()

	r.app.Get("/check-auto-payment/:transactionId", accountAuth, r.handlers.AutoPayment.CheckAutoPayment)

	api := r.app.Group("/api")

	auth := api.Group("/auth")
	auth.Use(r.rateLimiter(r.cfg.Security.AuthRateLimit))
	auth.Post("/login", r.handlers.Auth.Login)
	auth.Post("/refresh", r.handlers.Auth.RefreshToken)

	api.Get("/account", accountAuth, r.handlers.Account.GetAccount)
	api.Get("/turnovers", accountAuth, r.handlers.Account.ListTurnovers)
	api.Post("/deposit-transactions", accountAuth, r.handlers.AutoPayment.CreateDeposit)
	api.Post("/balance-transfer/main-balance", accountAuth, r.handlers.Account.TransferToMainBalance)

	// Group middleware would also match /api/admin/auth, so admin auth is attached per route
	admin := api.Group("/admin")
	adminLogin := admin.Group("/auth")
	adminLogin.Use(r.rateLimiter(r.cfg.Security.AuthRateLimit))
	adminLogin.Post("/login", r.handlers.Auth.AdminLogin)

	admin.Post("/accounts", adminAuth, r.handlers.Admin.RegisterAccount)
	admin.Put("/accounts/:id/commission-rates", adminAuth, r.handlers.Admin.UpdateCommissionRates)
	admin.Post("/deposit-bonuses", adminAuth, r.handlers.Admin.CreateDepositBonus)
	admin.Get("/deposit-bonuses", adminAuth, r.handlers.Admin.ListDepositBonuses)
	admin.Get("/balance-transfer/settings", adminAuth, r.handlers.Admin.GetBalanceTransferSettings)
	admin.Put("/balance-transfer/settings", adminAuth, r.handlers.Admin.UpdateBalanceTransferSettings)
	admin.Get("/payment-messages/export", adminAuth, r.handlers.AutoPayment.ExportPaymentMessages)

	for _, role := range []models.AccountRole{models.AccountRoleSuperAffiliate, models.AccountRoleMasterAffiliate} {
		bridge := api.Group("/" + string(role))
		bridge.Post("/bridge/:id", adminAuth, r.handlers.Admin.BridgeAccount(role))
		bridge.Post("/bridge-all", adminAuth, r.handlers.Admin.BridgeAll(role))
	}

	r.app.Use(r.notFoundHandler)

	r.logger.Info("Routes configured")
}

func (r *FiberRouter) rateLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == healthPath || c.Path() == r.cfg.Metrics.Path
		},
	})
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: generateRequestID,
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             r.cfg.Security.XFrameOptions,
		HSTSMaxAge:                r.cfg.Security.HSTSMaxAge,
		ContentSecurityPolicy:     r.cfg.Security.CSPPolicy,
		ReferrerPolicy:            r.cfg.Security.ReferrerPolicy,
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	maxAge := r.cfg.Security.CORSMaxAge
	if maxAge == 0 {
		maxAge = utils.CORSMaxAge
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:     r.cfg.Security.AllowedOrigins,
		AllowMethods:     r.cfg.Security.AllowedMethods,
		AllowHeaders:     r.cfg.Security.AllowedHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           maxAge,
	}))

	if r.cfg.Server.EnableCompression {
		r.app.Use(compress.New(compress.Config{
			Level: compress.LevelBestSpeed,
			Next: func(c fiber.Ctx) bool {
				// xlsx exports are already zip-compressed
				return strings.HasSuffix(c.Path(), "/export")
			},
		}))
	}

	if r.cfg.Logging.EnableAccessLog {
		r.app.Use(logger.New(logger.Config{
			Format:     `{"time":"${time}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Next: func(c fiber.Ctx) bool {
				return c.Path() == healthPath
			},
		}))
	}

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			r.logger.Error("panic recovered",
				zap.Any("error", e),
				zap.Any("request_id", c.Locals("requestid")),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	r.logger.Info("Starting server", zap.String("address", address))
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   r.cfg.Deployment.Version,
			"service":   "betting-settlement-api",
		},
	})
}

func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	c.Set("Content-Type", "application/json")
	return c.SendString(docs.SwaggerInfo.ReadDoc())
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// errorHandler renders errors that escaped the handlers
func (r *FiberRouter) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errCode := "INTERNAL_ERROR"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
			errCode = "REQUEST_ERROR"
		}
	}

	r.logger.Error("unhandled request error",
		zap.Int("status", code),
		zap.Error(err),
		zap.Any("request_id", c.Locals("requestid")),
		zap.String("path", c.Path()),
	)

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": c.Locals("requestid"),
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
