package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/PremHer/appdelivery-sub000/internal/auth"
	"github.com/PremHer/appdelivery-sub000/internal/lifecycle"
	"github.com/PremHer/appdelivery-sub000/internal/realtime"
	"github.com/PremHer/appdelivery-sub000/models"
)

// NewRouter wires all route groups. jwtSecret guards every /api route; the
// hub feeds the websocket endpoint.
func (h *Handlers) NewRouter(jwtSecret string, hub *realtime.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("/", auth.Middleware(jwtSecret))
	authed.GET("/ws", realtime.WSHandler(hub, h.log))

	api := authed.Group("/api/v1")

	// Public catalog, any authenticated role.
	api.GET("/restaurants", h.listRestaurants)
	api.GET("/restaurants/:id/products", h.listProducts)

	customer := api.Group("/", auth.RequireRole(models.RoleCustomer, models.RoleAdmin))
	{
		customer.POST("/orders", h.checkout)
		customer.GET("/orders", h.listMyOrders)
		customer.POST("/orders/:id/cancel", h.cancelOrder)
		customer.GET("/orders/:id/eta", h.orderETA)
		customer.POST("/orders/:id/rating", h.rateOrder)
		customer.GET("/cart", h.getCart)
		customer.PUT("/cart", h.putCart)
		customer.POST("/session", h.initSession)
		customer.POST("/logout", h.logout)
	}

	// Participants of either role.
	api.GET("/orders/:id", h.getOrder)
	api.GET("/orders/:id/track", h.trackDriver)
	api.GET("/orders/:id/messages", h.listMessages)
	api.POST("/orders/:id/messages", h.postMessage)

	driver := api.Group("/driver", auth.RequireRole(models.RoleDriver))
	{
		driver.GET("/orders/available", h.availableOrders)
		driver.GET("/orders", h.assignedOrders)
		driver.POST("/orders/:id/claim", h.claimOrder)
		driver.POST("/orders/:id/pickup", h.pickUpOrder)
		driver.POST("/orders/:id/deliver", h.deliverOrder)
		driver.GET("/earnings", h.earnings)
		driver.POST("/heartbeat", h.heartbeat)
		driver.POST("/availability", h.setAvailability)
	}

	admin := api.Group("/admin", auth.RequireRole(models.RoleAdmin))
	{
		admin.GET("/orders", h.adminListOrders)
		admin.GET("/orders/export", h.exportOrdersCSV)
		admin.GET("/orders/stats", h.orderStats)
		admin.POST("/orders/:id/confirm", h.transitionHandler(lifecycle.EventConfirm))
		admin.POST("/orders/:id/prepare", h.transitionHandler(lifecycle.EventStartPreparing))
		admin.POST("/orders/:id/ready", h.transitionHandler(lifecycle.EventMarkReady))
		admin.POST("/orders/:id/cancel", h.adminCancelOrder)
		admin.POST("/orders/:id/reassign", h.reassignOrder)
		admin.POST("/restaurants", h.createRestaurant)
		admin.PATCH("/restaurants/:id/open", h.setRestaurantOpen)
		admin.POST("/products", h.createProduct)
		admin.PATCH("/products/:id/availability", h.setProductAvailability)
		admin.POST("/coupons", h.createCoupon)
		admin.DELETE("/coupons/:id", h.deactivateCoupon)
		admin.GET("/users", h.listUsers)
	}

	return r
}

func (h *Handlers) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
