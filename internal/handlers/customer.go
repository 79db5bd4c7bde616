package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PremHer/appdelivery-sub000/internal/auth"
	"github.com/PremHer/appdelivery-sub000/internal/lifecycle"
	"github.com/PremHer/appdelivery-sub000/internal/service"
	"github.com/PremHer/appdelivery-sub000/internal/session"
	"github.com/PremHer/appdelivery-sub000/models"
)

func (h *Handlers) checkout(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	order, err := h.svc.Checkout(c.Request.Context(), p.UserID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	// Checkout consumes the cart.
	if h.sessions != nil {
		if err := h.sessions.SetCart(c.Request.Context(), p.UserID, nil); err != nil {
			h.log.Warn("clear cart after checkout", zap.Error(err))
		}
	}
	c.JSON(http.StatusCreated, orderResponse(order, nil))
}

func (h *Handlers) listMyOrders(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	orders, err := h.orders.ListByUserID(c.Request.Context(), p.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handlers) getOrder(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	order, items, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.mayViewOrder(c, p, order) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

// mayViewOrder answers whether the principal is the order's customer, its
// assigned driver, or an admin. Writes the 403 itself when not.
func (h *Handlers) mayViewOrder(c *gin.Context, p *auth.Principal, o *models.Order) bool {
	if p.Role == models.RoleAdmin || o.UserID == p.UserID {
		return true
	}
	if p.Role == models.RoleDriver && o.DriverID != nil {
		profile, err := h.drivers.GetByUserID(c.Request.Context(), p.UserID)
		if err == nil && profile != nil && profile.ID == *o.DriverID {
			return true
		}
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	return false
}

func (h *Handlers) cancelOrder(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	actor := lifecycle.ActorCustomer
	if p.Role == models.RoleAdmin {
		actor = lifecycle.ActorAdmin
	}
	order, warnings, err := h.svc.Transition(c.Request.Context(), c.Param("id"), lifecycle.EventCancel,
		service.TransitionInput{Actor: actor, UserID: p.UserID, Reason: req.Reason})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(order, warnings))
}

func (h *Handlers) orderETA(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	order, _, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.mayViewOrder(c, p, order) {
		return
	}
	eta, err := h.svc.ETA(c.Request.Context(), order.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": order.ID, "eta_minutes": eta})
}

func (h *Handlers) rateOrder(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req struct {
		Stars   int    `json:"stars"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rating, err := h.svc.RateOrder(c.Request.Context(), p.UserID, c.Param("id"), req.Stars, req.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rating": rating})
}

func (h *Handlers) listMessages(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	msgs, err := h.svc.ListMessages(c.Request.Context(), p.UserID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handlers) postMessage(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	msg, err := h.svc.PostMessage(c.Request.Context(), p.UserID, c.Param("id"), req.Body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

func (h *Handlers) getCart(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if h.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sessions unavailable"})
		return
	}
	st, err := h.sessions.Get(c.Request.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"cart": []session.CartItem{}})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": st.Cart})
}

func (h *Handlers) putCart(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if h.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sessions unavailable"})
		return
	}
	var req struct {
		Items []session.CartItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.sessions.SetCart(c.Request.Context(), p.UserID, req.Items); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": req.Items})
}

// initSession creates fresh server-side state after the client has
// authenticated with the identity service.
func (h *Handlers) initSession(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if h.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sessions unavailable"})
		return
	}
	st, err := h.sessions.Init(c.Request.Context(), p.UserID, p.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"state": st})
}

// trackDriver returns the assigned driver's last known position: the
// fast-expiring heartbeat cache when present, the profile row otherwise.
func (h *Handlers) trackDriver(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	order, _, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.mayViewOrder(c, p, order) {
		return
	}
	if order.DriverID == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no driver assigned"})
		return
	}
	profile, err := h.drivers.GetByID(c.Request.Context(), *order.DriverID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "driver not found"})
		return
	}
	lat, lng, at := profile.Lat, profile.Lng, ""
	if h.sessions != nil {
		if pos, err := h.sessions.GetDriverPosition(c.Request.Context(), profile.UserID); err == nil {
			lat, lng, at = pos.Lat, pos.Lng, pos.At
		}
	}
	c.JSON(http.StatusOK, gin.H{"driver_id": profile.ID, "lat": lat, "lng": lng, "reported_at": at})
}

// logout wipes the user's server-side state.
func (h *Handlers) logout(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	if h.sessions != nil {
		if err := h.sessions.Reset(c.Request.Context(), p.UserID); err != nil {
			h.respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handlers) listRestaurants(c *gin.Context) {
	list, err := h.restaurants.List(c.Request.Context(), 50, 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurants": list})
}

func (h *Handlers) listProducts(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	list, err := h.products.ListByRestaurant(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}
