package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handlers "github.com/payflowhq/payflow/internal/adapter/handler/http"
	"github.com/payflowhq/payflow/internal/config"
	"github.com/payflowhq/payflow/internal/infrastructure/database"
	"github.com/payflowhq/payflow/internal/middleware/auth"
	"github.com/payflowhq/payflow/internal/usecase"
	"go.uber.org/zap"
)

// requestValidator wires go-playground/validator into echo's c.Validate.
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

type Server struct {
	config         *config.Config
	logger         *zap.Logger
	echo           *echo.Echo
	repos          *database.Repositories
	paymentService *usecase.PaymentService
}

func NewServer(cfg *config.Config, logger *zap.Logger, repos *database.Repositories, paymentService *usecase.PaymentService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Service.ClientURL},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE},
	}))

	return &Server{
		config:         cfg,
		logger:         logger,
		echo:           e,
		repos:          repos,
		paymentService: paymentService,
	}
}

func (s *Server) Start() error {
	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
		})
	})

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(s.logger, s.paymentService)
	transactionHandler := handlers.NewTransactionHandler(s.logger, s.paymentService)
	accountHandler := handlers.NewAccountHandler(s.logger, s.paymentService)

	// JWT middleware configuration
	jwtConfig := auth.JWTConfig{
		Secret: s.config.Service.JWTSecret,
		Logger: s.logger,
		SkipPaths: []string{
			"/health",
		},
	}

	// API v1 routes (all require authentication)
	v1 := s.echo.Group("/api/v1", auth.JWTMiddleware(jwtConfig))

	v1.POST("/payments", paymentHandler.CreatePayment)
	v1.GET("/payments", paymentHandler.ListPayments)
	v1.GET("/payments/:id", paymentHandler.GetPayment)
	v1.POST("/payments/:id/refund", paymentHandler.RefundPayment)

	v1.GET("/transactions", transactionHandler.ListTransactions)
	v1.GET("/balance", accountHandler.GetBalance)
}
