package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ridehail/internal/domain"
	"ridehail/internal/handler"
	"ridehail/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	BookingHandler *handler.BookingHandler
	DriverHandler  *handler.DriverHandler
	WalletHandler  *handler.WalletHandler
	PaymentHandler *handler.PaymentHandler
	PricingHandler *handler.PricingHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
	JWTSecret      string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Idempotency keys are scoped per caller, so it runs after Auth.
	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(deps.JWTSecret))
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	{
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", middleware.RequireRole(domain.RoleRider), deps.BookingHandler.Create)
			bookings.GET("", deps.BookingHandler.List)
			bookings.GET("/current", deps.BookingHandler.Current)
			bookings.GET("/:id", deps.BookingHandler.Get)
			bookings.GET("/:id/receipt", deps.BookingHandler.Receipt)
			bookings.POST("/:id/accept", deps.BookingHandler.Accept)
			bookings.POST("/:id/reject", deps.BookingHandler.Reject)
			bookings.POST("/:id/start", deps.BookingHandler.Start)
			bookings.POST("/:id/complete", deps.BookingHandler.Complete)
			bookings.POST("/:id/cancel", deps.BookingHandler.Cancel)
			bookings.POST("/:id/rate", deps.BookingHandler.Rate)
			bookings.PUT("/:id/location", deps.BookingHandler.UpdateLocation)
			bookings.POST("/:id/tip", deps.WalletHandler.Tip)
			bookings.GET("/:id/payment", deps.PaymentHandler.Get)
			bookings.POST("/:id/payment/confirm", deps.PaymentHandler.ConfirmCash)
		}

		driver := v1.Group("/driver", middleware.RequireRole(domain.RoleDriver))
		{
			driver.GET("/bookings", deps.DriverHandler.Bookings)
			driver.PUT("/location", deps.DriverHandler.UpdateLocation)
			driver.POST("/offline", deps.DriverHandler.GoOffline)
			driver.GET("/availability", deps.DriverHandler.Availability)
			driver.GET("/earnings", deps.WalletHandler.Earnings)
		}

		wallet := v1.Group("/wallet")
		{
			wallet.GET("", deps.WalletHandler.Get)
			wallet.POST("/topup", deps.WalletHandler.TopUp)
			wallet.POST("/withdraw", deps.WalletHandler.Withdraw)
			wallet.PUT("/bank-account", deps.WalletHandler.LinkBankAccount)
			wallet.DELETE("/bank-account", deps.WalletHandler.UnlinkBankAccount)
		}

		admin := v1.Group("", middleware.RequireRole(domain.RoleAdmin))
		{
			admin.GET("/wallets/:userId/reconcile", deps.WalletHandler.Reconcile)
			admin.POST("/earnings/:id/bonus", deps.WalletHandler.Bonus)
			admin.PUT("/pricing/schedules", deps.PricingHandler.Set)
		}

		pricing := v1.Group("/pricing")
		{
			pricing.GET("/quote", deps.PricingHandler.Quote)
			pricing.GET("/schedule", deps.PricingHandler.Current)
			pricing.GET("/schedules", deps.PricingHandler.List)
		}
	}

	return router
}
