// Package handlers exposes the delivery platform over HTTP. Handlers stay
// thin: they bind and validate the request shape, resolve the acting
// principal, and delegate to the service layer, mapping its typed errors to
// status codes.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PremHer/appdelivery-sub000/internal/auth"
	"github.com/PremHer/appdelivery-sub000/internal/lifecycle"
	"github.com/PremHer/appdelivery-sub000/internal/service"
	"github.com/PremHer/appdelivery-sub000/internal/session"
	"github.com/PremHer/appdelivery-sub000/models"
	"github.com/PremHer/appdelivery-sub000/repository"
)

// Handlers bundles the dependencies shared by all route groups.
type Handlers struct {
	svc         *service.OrderService
	orders      repository.OrderRepositoryI
	drivers     repository.DriverRepositoryI
	users       repository.UserRepositoryI
	restaurants *repository.RestaurantRepository
	products    *repository.ProductRepository
	coupons     *repository.CouponRepository
	sessions    *session.Store
	log         *zap.Logger
}

type HandlerDeps struct {
	Service     *service.OrderService
	Orders      repository.OrderRepositoryI
	Drivers     repository.DriverRepositoryI
	Users       repository.UserRepositoryI
	Restaurants *repository.RestaurantRepository
	Products    *repository.ProductRepository
	Coupons     *repository.CouponRepository
	// Sessions may be nil when Redis is not configured; the cart and
	// heartbeat endpoints then answer 503.
	Sessions *session.Store
	Log      *zap.Logger
}

func New(d HandlerDeps) *Handlers {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Handlers{
		svc:         d.Service,
		orders:      d.Orders,
		drivers:     d.Drivers,
		users:       d.Users,
		restaurants: d.Restaurants,
		products:    d.Products,
		coupons:     d.Coupons,
		sessions:    d.Sessions,
		log:         d.Log,
	}
}

// respondError translates service and lifecycle errors to HTTP statuses.
func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden), errors.Is(err, lifecycle.ErrActorNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOrderTaken),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrNoEstimate),
		errors.Is(err, lifecycle.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// principal returns the authenticated principal or aborts with 401.
func (h *Handlers) principal(c *gin.Context) (*auth.Principal, bool) {
	p, ok := auth.FromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return p, true
}

// driverProfile resolves the acting driver's profile from the principal.
func (h *Handlers) driverProfile(c *gin.Context, p *auth.Principal) (*models.DriverProfile, bool) {
	profile, err := h.drivers.GetByUserID(c.Request.Context(), p.UserID)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	if profile == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no driver profile"})
		return nil, false
	}
	return profile, true
}

// paramInt64 parses a numeric path parameter or answers 400.
func paramInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func orderResponse(o *models.Order, warnings []string) gin.H {
	resp := gin.H{"order": o}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	return resp
}
