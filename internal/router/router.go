package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lunarphp/opayo/internal/config"
	"github.com/lunarphp/opayo/internal/handler"
	"github.com/lunarphp/opayo/internal/middleware"
	"github.com/lunarphp/opayo/internal/payment"
	"github.com/lunarphp/opayo/internal/pkg/telegram"
	"github.com/lunarphp/opayo/internal/repository"
)

// Setup configures all routes for the Echo server.
func Setup(
	e *echo.Echo,
	db *gorm.DB,
	gateway payment.Gateway,
	notifier *telegram.Notifier,
	locker middleware.OrderLocker,
	cfg *config.Config,
	logger *zap.Logger,
) {
	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.CORS())

	// Repositories
	repos := &handler.PaymentRepos{
		Order:           repository.NewOrderRepository(db),
		Transaction:     repository.NewTransactionRepository(db),
		ReusablePayment: repository.NewReusablePaymentRepository(db),
	}

	recorder := payment.NewRecorder(repos.Transaction, logger)
	authorizer := payment.NewAuthorizer(gateway, repos.Order, repos.ReusablePayment, recorder, payment.AuthorizerConfig{
		Policy:          cfg.Opayo.Policy,
		Apply3DSecure:   cfg.Opayo.Apply3DSecure,
		NotificationURL: cfg.Opayo.NotificationURL,
	}, logger)

	paymentHandler := handler.NewPaymentHandler(repos, gateway, authorizer, recorder, notifier, logger)
	threeDSHandler := handler.NewThreeDSecureHandler(logger)

	// Checkout-facing payment routes, serialized per order.
	opayoGroup := e.Group("/opayo")
	opayoGroup.GET("/session-key", paymentHandler.SessionKey)
	opayoGroup.POST("/orders/:id/authorize", paymentHandler.Authorize, middleware.LockOrder(locker))
	opayoGroup.POST("/orders/:id/threedsecure", paymentHandler.ThreeDSecure, middleware.LockOrder(locker))

	// Ops routes behind the API key.
	opsGroup := e.Group("/opayo/transactions")
	opsGroup.Use(middleware.APIAuth(cfg.API.Key))
	opsGroup.POST("/:id/capture", paymentHandler.Capture)
	opsGroup.POST("/:id/refund", paymentHandler.Refund)

	// Browser-facing 3DS pages. The response route is the notification
	// URL handed to the gateway; the ACS posts the challenge result here.
	e.GET("/opayo-threedsecure", threeDSHandler.Iframe)
	e.POST("/opayo-threedsecure-response", threeDSHandler.Response)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
}
