package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PremHer/appdelivery-sub000/internal/lifecycle"
	"github.com/PremHer/appdelivery-sub000/internal/service"
	"github.com/PremHer/appdelivery-sub000/models"
	"github.com/PremHer/appdelivery-sub000/repository"
)

// transitionHandler builds a handler that applies one admin lifecycle event
// to the order in the path.
func (h *Handlers) transitionHandler(event lifecycle.Event) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := h.principal(c)
		if !ok {
			return
		}
		order, warnings, err := h.svc.Transition(c.Request.Context(), c.Param("id"), event,
			service.TransitionInput{Actor: lifecycle.ActorAdmin, UserID: p.UserID})
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orderResponse(order, warnings))
	}
}

func (h *Handlers) adminCancelOrder(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	order, warnings, err := h.svc.Transition(c.Request.Context(), c.Param("id"), lifecycle.EventCancel,
		service.TransitionInput{Actor: lifecycle.ActorAdmin, UserID: p.UserID, Reason: req.Reason})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(order, warnings))
}

func (h *Handlers) reassignOrder(c *gin.Context) {
	var req struct {
		DriverID int64 `json:"driver_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DriverID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "driver_id required"})
		return
	}
	order, err := h.svc.Reassign(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// adminListParams maps the query string to repository filters.
func adminListParams(c *gin.Context) (repository.ListOrdersAdminParams, error) {
	var p repository.ListOrdersAdminParams
	if v := c.Query("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			st := models.OrderStatus(strings.TrimSpace(s))
			if !models.ValidOrderStatus(st) {
				return p, fmt.Errorf("unknown status %q", s)
			}
			p.Statuses = append(p.Statuses, st)
		}
	}
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, fmt.Errorf("invalid user_id")
		}
		p.UserID = &id
	}
	if v := c.Query("driver_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return p, fmt.Errorf("invalid driver_id")
		}
		p.DriverID = &id
	}
	if v := c.Query("from"); v != "" {
		p.CreatedFrom = &v
	}
	if v := c.Query("to"); v != "" {
		p.CreatedTo = &v
	}
	if v := c.Query("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, fmt.Errorf("invalid page_size")
		}
		p.PageSize = n
	}
	p.AfterTime = c.Query("after_time")
	p.AfterID = c.Query("after_id")
	return p, nil
}

func (h *Handlers) adminListOrders(c *gin.Context) {
	params, err := adminListParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	orders, err := h.orders.ListAdmin(c.Request.Context(), params)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// exportOrdersCSV streams the filtered order list as CSV for back-office
// reporting.
func (h *Handlers) exportOrdersCSV(c *gin.Context) {
	params, err := adminListParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if params.PageSize == 0 {
		params.PageSize = 100
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="orders.csv"`)
	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "user_id", "driver_id", "status", "total", "delivery_fee", "created_at", "cancelled_at", "cancellation_reason"})

	for {
		orders, err := h.orders.ListAdmin(c.Request.Context(), params)
		if err != nil {
			h.respondError(c, err)
			return
		}
		for _, o := range orders {
			driverID := ""
			if o.DriverID != nil {
				driverID = strconv.FormatInt(*o.DriverID, 10)
			}
			cancelledAt, reason := "", ""
			if o.CancelledAt != nil {
				cancelledAt = *o.CancelledAt
			}
			if o.CancellationReason != nil {
				reason = *o.CancellationReason
			}
			_ = w.Write([]string{
				o.ID,
				strconv.FormatInt(o.UserID, 10),
				driverID,
				string(o.Status),
				strconv.FormatFloat(o.Total, 'f', 2, 64),
				strconv.FormatFloat(o.DeliveryFee, 'f', 2, 64),
				o.CreatedAt,
				cancelledAt,
				reason,
			})
		}
		if len(orders) < params.PageSize {
			break
		}
		last := orders[len(orders)-1]
		params.AfterTime, params.AfterID = last.CreatedAt, last.ID
	}
	w.Flush()
}

func (h *Handlers) orderStats(c *gin.Context) {
	counts, err := h.orders.CountByStatus(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

func (h *Handlers) createRestaurant(c *gin.Context) {
	var req struct {
		Name    string  `json:"name"`
		Address string  `json:"address"`
		Lat     float64 `json:"lat"`
		Lng     float64 `json:"lng"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}
	r, err := h.restaurants.Create(c.Request.Context(), &models.Restaurant{
		Name: req.Name, Address: req.Address, Lat: req.Lat, Lng: req.Lng, IsOpen: true,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"restaurant": r})
}

func (h *Handlers) setRestaurantOpen(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req struct {
		Open bool `json:"open"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.restaurants.SetOpen(c.Request.Context(), id, req.Open); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"open": req.Open})
}

func (h *Handlers) createProduct(c *gin.Context) {
	var req struct {
		RestaurantID int64   `json:"restaurant_id"`
		Name         string  `json:"name"`
		Description  string  `json:"description"`
		Price        float64 `json:"price"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" || req.RestaurantID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "restaurant_id and name required"})
		return
	}
	if req.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
		return
	}
	p, err := h.products.Create(c.Request.Context(), &models.Product{
		RestaurantID: req.RestaurantID, Name: req.Name, Description: req.Description,
		Price: req.Price, Available: true,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": p})
}

func (h *Handlers) setProductAvailability(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	var req struct {
		Available bool `json:"available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.products.SetAvailable(c.Request.Context(), id, req.Available); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": req.Available})
}

func (h *Handlers) createCoupon(c *gin.Context) {
	var req struct {
		Code      string  `json:"code"`
		Discount  float64 `json:"discount"`
		ExpiresAt string  `json:"expires_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code required"})
		return
	}
	if req.Discount <= 0 || req.Discount > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "discount must be in (0, 1]"})
		return
	}
	coupon, err := h.coupons.Create(c.Request.Context(), &models.Coupon{
		Code: req.Code, Discount: req.Discount, ExpiresAt: req.ExpiresAt, Active: true,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"coupon": coupon})
}

func (h *Handlers) listUsers(c *gin.Context) {
	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	list, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

func (h *Handlers) deactivateCoupon(c *gin.Context) {
	id, ok := paramInt64(c, "id")
	if !ok {
		return
	}
	if err := h.coupons.Deactivate(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
