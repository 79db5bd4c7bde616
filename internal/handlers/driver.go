package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PremHer/appdelivery-sub000/internal/lifecycle"
	"github.com/PremHer/appdelivery-sub000/internal/service"
)

// maxProofPhotoBytes caps the multipart proof photo on deliver.
const maxProofPhotoBytes = 5 << 20

func (h *Handlers) availableOrders(c *gin.Context) {
	orders, err := h.orders.ListAvailable(c.Request.Context(), 50)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handlers) assignedOrders(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	profile, ok := h.driverProfile(c, p)
	if !ok {
		return
	}
	orders, err := h.orders.ListByDriverID(c.Request.Context(), profile.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// driverTransition runs a driver lifecycle event on the order in the path.
func (h *Handlers) driverTransition(c *gin.Context, event lifecycle.Event, photo []byte) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	profile, ok := h.driverProfile(c, p)
	if !ok {
		return
	}
	order, warnings, err := h.svc.Transition(c.Request.Context(), c.Param("id"), event, service.TransitionInput{
		Actor:           lifecycle.ActorDriver,
		UserID:          p.UserID,
		DriverProfileID: profile.ID,
		ProofPhoto:      photo,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(order, warnings))
}

func (h *Handlers) claimOrder(c *gin.Context) {
	h.driverTransition(c, lifecycle.EventClaim, nil)
}

func (h *Handlers) pickUpOrder(c *gin.Context) {
	h.driverTransition(c, lifecycle.EventPickUp, nil)
}

// deliverOrder finishes the order. The proof photo is an optional multipart
// file field named "photo"; a missing or unreadable photo does not block
// the delivery.
func (h *Handlers) deliverOrder(c *gin.Context) {
	var photo []byte
	if file, err := c.FormFile("photo"); err == nil {
		if file.Size <= maxProofPhotoBytes {
			if f, err := file.Open(); err == nil {
				photo, _ = io.ReadAll(io.LimitReader(f, maxProofPhotoBytes))
				f.Close()
			}
		} else {
			h.log.Warn("proof photo too large, ignoring",
				zap.String("order", c.Param("id")), zap.Int64("size", file.Size))
		}
	}
	h.driverTransition(c, lifecycle.EventDeliver, photo)
}

func (h *Handlers) earnings(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	profile, ok := h.driverProfile(c, p)
	if !ok {
		return
	}
	total, err := h.svc.Earnings(c.Request.Context(), profile.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"driver_id": profile.ID, "total": total})
}

// heartbeat records the driver's position in both the profile row and the
// fast-expiring session store.
func (h *Handlers) heartbeat(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	profile, ok := h.driverProfile(c, p)
	if !ok {
		return
	}
	var req struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.drivers.UpdateLocation(c.Request.Context(), profile.ID, req.Lat, req.Lng); err != nil {
		h.respondError(c, err)
		return
	}
	if h.sessions != nil {
		if err := h.sessions.SetDriverPosition(c.Request.Context(), p.UserID, req.Lat, req.Lng); err != nil {
			h.log.Warn("store driver position", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handlers) setAvailability(c *gin.Context) {
	p, ok := h.principal(c)
	if !ok {
		return
	}
	profile, ok := h.driverProfile(c, p)
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
	if err := h.drivers.SetAvailable(c.Request.Context(), profile.ID, req.Available); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": req.Available})
}
