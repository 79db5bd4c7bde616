package service

import (
	"context"
	"fmt"
	"math"

	"github.com/PremHer/appdelivery-sub000/internal/events"
	"github.com/PremHer/appdelivery-sub000/internal/geo"
	"github.com/PremHer/appdelivery-sub000/internal/metrics"
	"github.com/PremHer/appdelivery-sub000/internal/realtime"
	"github.com/PremHer/appdelivery-sub000/models"
	"go.uber.org/zap"
)

// Delivery fee: flat base plus a per-km component on the restaurant to
// destination distance.
const (
	deliveryBaseFee  = 2.0
	deliveryPerKmFee = 0.5
)

// CheckoutItem is one product line of a checkout request.
type CheckoutItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CheckoutRequest creates a pending order.
type CheckoutRequest struct {
	RestaurantID int64          `json:"restaurant_id"`
	Items        []CheckoutItem `json:"items"`
	DestLat      float64        `json:"dest_lat"`
	DestLng      float64        `json:"dest_lng"`
	CouponCode   string         `json:"coupon_code,omitempty"`
}

// Checkout validates the cart against the live catalog, prices it with the
// current product prices, applies an optional coupon and creates the order
// in pending status with no driver.
func (s *OrderService) Checkout(ctx context.Context, userID int64, req CheckoutRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: empty cart", ErrInvalid)
	}
	r, err := s.restaurants.GetByID(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("restaurant %d: %w", req.RestaurantID, ErrNotFound)
	}
	if !r.IsOpen {
		return nil, fmt.Errorf("%w: restaurant is closed", ErrInvalid)
	}

	var subtotal float64
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalid)
		}
		p, err := s.products.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("product %d: %w", it.ProductID, ErrNotFound)
		}
		if p.RestaurantID != req.RestaurantID {
			return nil, fmt.Errorf("%w: product %d is not on this menu", ErrInvalid, it.ProductID)
		}
		if !p.Available {
			return nil, fmt.Errorf("%w: product %d is unavailable", ErrInvalid, it.ProductID)
		}
		subtotal += p.Price * float64(it.Quantity)
		items = append(items, models.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: p.Price})
	}

	if req.CouponCode != "" {
		c, err := s.coupons.GetActiveByCode(ctx, req.CouponCode)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, fmt.Errorf("%w: coupon %q is not valid", ErrInvalid, req.CouponCode)
		}
		subtotal *= 1 - c.Discount
	}

	km := geo.HaversineKm(r.Lat, r.Lng, req.DestLat, req.DestLng)
	fee := round2(deliveryBaseFee + deliveryPerKmFee*km)

	order := &models.Order{
		UserID:       userID,
		RestaurantID: req.RestaurantID,
		Status:       models.OrderStatusPending,
		Total:        round2(subtotal) + fee,
		DeliveryFee:  fee,
		DestLat:      req.DestLat,
		DestLng:      req.DestLng,
	}
	created, err := s.orders.Create(ctx, order, items)
	if err != nil {
		return nil, err
	}
	metrics.OrdersCreatedTotal.Inc()

	s.publishOrderChange(realtime.ChangeInsert, created)
	if payload, err := events.EncodeOrderEvent(created, "checkout", models.OrderStatusPending); err == nil {
		if _, err := s.outbox.Enqueue(ctx, s.eventTopic, payload); err != nil {
			s.log.Warn("enqueue checkout event", zap.String("order", created.ID), zap.Error(err))
		}
	}
	return created, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
