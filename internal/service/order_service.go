// Package service applies order lifecycle decisions against the store.
// Every transition follows the same shape: validate first (bad requests are
// rejected before any write), then one conditional write guarded by a
// status precondition, then side effects. Side effects are best-effort:
// their failure never rolls back the transition, it is reported back to the
// caller as a warning.
package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/PremHer/appdelivery-sub000/internal/events"
	"github.com/PremHer/appdelivery-sub000/internal/geo"
	"github.com/PremHer/appdelivery-sub000/internal/lifecycle"
	"github.com/PremHer/appdelivery-sub000/internal/metrics"
	"github.com/PremHer/appdelivery-sub000/internal/notify"
	"github.com/PremHer/appdelivery-sub000/internal/realtime"
	"github.com/PremHer/appdelivery-sub000/internal/storage"
	"github.com/PremHer/appdelivery-sub000/models"
	"github.com/PremHer/appdelivery-sub000/repository"
)

// OutboxEnqueuer stores an event for later publishing.
type OutboxEnqueuer interface {
	Enqueue(ctx context.Context, topic string, payload []byte) (*repository.OutboxTask, error)
}

// OrderService coordinates the order lifecycle across the store, the push
// gateway, the realtime hub and the event outbox.
type OrderService struct {
	orders      repository.OrderRepositoryI
	drivers     repository.DriverRepositoryI
	restaurants *repository.RestaurantRepository
	products    *repository.ProductRepository
	coupons     *repository.CouponRepository
	ratings     *repository.RatingRepository
	messages    *repository.MessageRepository
	outbox      OutboxEnqueuer
	notifier    notify.Notifier
	hub         *realtime.Hub
	blobs       storage.BlobStore
	eventTopic  string
	log         *zap.Logger
}

type Deps struct {
	Orders      repository.OrderRepositoryI
	Drivers     repository.DriverRepositoryI
	Restaurants *repository.RestaurantRepository
	Products    *repository.ProductRepository
	Coupons     *repository.CouponRepository
	Ratings     *repository.RatingRepository
	Messages    *repository.MessageRepository
	Outbox      OutboxEnqueuer
	Notifier    notify.Notifier
	Hub         *realtime.Hub
	Blobs       storage.BlobStore
	EventTopic  string
	Log         *zap.Logger
}

func NewOrderService(d Deps) *OrderService {
	if d.Notifier == nil {
		d.Notifier = notify.NopNotifier{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.EventTopic == "" {
		d.EventTopic = "order-events"
	}
	return &OrderService{
		orders:      d.Orders,
		drivers:     d.Drivers,
		restaurants: d.Restaurants,
		products:    d.Products,
		coupons:     d.Coupons,
		ratings:     d.Ratings,
		messages:    d.Messages,
		outbox:      d.Outbox,
		notifier:    d.Notifier,
		hub:         d.Hub,
		blobs:       d.Blobs,
		eventTopic:  d.EventTopic,
		log:         d.Log,
	}
}

// TransitionInput identifies the actor and carries event-specific data.
type TransitionInput struct {
	Actor  lifecycle.Actor
	UserID int64
	// DriverProfileID is the acting driver's profile, resolved by the
	// caller from the authenticated user. Required for driver events.
	DriverProfileID int64
	// Reason is stored with the order on cancellation.
	Reason string
	// ProofPhoto, when present on deliver, is uploaded and linked to the
	// order. Upload failure does not block the delivery.
	ProofPhoto []byte
}

// Transition applies event to the order. The returned warnings list the
// side effects that failed after the status change was already committed.
func (s *OrderService) Transition(ctx context.Context, orderID string, event lifecycle.Event, in TransitionInput) (*models.Order, []string, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err := s.checkParticipant(order, event, in); err != nil {
		return nil, nil, err
	}
	if event == lifecycle.EventClaim && order.DriverID != nil {
		return nil, nil, fmt.Errorf("order %s: %w", orderID, ErrOrderTaken)
	}

	decision, err := lifecycle.Decide(order.Status, in.Actor, event)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	prev := order.Status

	switch event {
	case lifecycle.EventClaim:
		affected, err := s.orders.Claim(ctx, orderID, in.DriverProfileID)
		if err != nil {
			return nil, nil, err
		}
		if affected == 0 {
			metrics.ClaimsLostTotal.Inc()
			return nil, nil, fmt.Errorf("order %s: %w", orderID, ErrOrderTaken)
		}
	case lifecycle.EventCancel:
		reason := in.Reason
		if reason == "" {
			reason = "cancelled by " + string(in.Actor)
		}
		affected, err := s.orders.MarkCancelled(ctx, orderID, reason, lifecycle.From(event))
		if err != nil {
			return nil, nil, err
		}
		if affected == 0 {
			return nil, nil, fmt.Errorf("order %s: %w", orderID, ErrConflict)
		}
	case lifecycle.EventDeliver:
		var proofURL *string
		if len(in.ProofPhoto) > 0 {
			url, uerr := s.blobs.Upload(ctx, "proofs", orderID+".jpg", in.ProofPhoto)
			if uerr != nil {
				warnings = append(warnings, "proof photo upload failed: "+uerr.Error())
				s.log.Warn("proof upload failed", zap.String("order", orderID), zap.Error(uerr))
			} else {
				proofURL = &url
			}
		}
		affected, err := s.orders.MarkDelivered(ctx, orderID, proofURL)
		if err != nil {
			return nil, nil, err
		}
		if affected == 0 {
			return nil, nil, fmt.Errorf("order %s: %w", orderID, ErrConflict)
		}
	default:
		affected, err := s.orders.UpdateStatus(ctx, orderID, lifecycle.From(event), decision.Next)
		if err != nil {
			return nil, nil, err
		}
		if affected == 0 {
			return nil, nil, fmt.Errorf("order %s: %w", orderID, ErrConflict)
		}
	}

	metrics.TransitionsTotal.WithLabelValues(string(event)).Inc()

	fresh, err := s.orders.GetByID(ctx, orderID)
	if err != nil || fresh == nil {
		// The write committed; fall back to the stale row patched locally.
		s.log.Warn("reload after transition failed", zap.String("order", orderID), zap.Error(err))
		order.Status = decision.Next
		fresh = order
	}

	warnings = append(warnings, s.applyEffects(ctx, fresh, prev, event, decision.Effects, in)...)
	return fresh, warnings, nil
}

// checkParticipant enforces that the actor acts on their own order. Claim
// is the exception: the order has no driver yet.
func (s *OrderService) checkParticipant(o *models.Order, event lifecycle.Event, in TransitionInput) error {
	switch in.Actor {
	case lifecycle.ActorCustomer:
		if o.UserID != in.UserID {
			return fmt.Errorf("order %s: %w", o.ID, ErrForbidden)
		}
	case lifecycle.ActorDriver:
		if event == lifecycle.EventClaim {
			if in.DriverProfileID == 0 {
				return fmt.Errorf("%w: no driver profile", ErrInvalid)
			}
			return nil
		}
		if o.DriverID == nil || *o.DriverID != in.DriverProfileID {
			return fmt.Errorf("order %s: %w", o.ID, ErrForbidden)
		}
	}
	return nil
}

// applyEffects runs the decision's side effects. Each failure is collected
// as a warning; none aborts the others.
func (s *OrderService) applyEffects(ctx context.Context, o *models.Order, prev models.OrderStatus, event lifecycle.Event, effects []lifecycle.Effect, in TransitionInput) []string {
	var warnings []string
	warn := func(what string, err error) {
		warnings = append(warnings, what+": "+err.Error())
		metrics.OperationErrorsTotal.WithLabelValues(what).Inc()
		s.log.Warn(what, zap.String("order", o.ID), zap.Error(err))
	}

	s.publishOrderChange(realtime.ChangeUpdate, o)

	if payload, err := events.EncodeOrderEvent(o, string(event), prev); err != nil {
		warn("encode event", err)
	} else if _, err := s.outbox.Enqueue(ctx, s.eventTopic, payload); err != nil {
		warn("enqueue event", err)
	}

	title, body := notificationText(event)
	data := map[string]string{"order_id": o.ID, "status": string(o.Status)}

	for _, effect := range effects {
		switch effect {
		case lifecycle.EffectAssignDriver:
			if err := s.drivers.SetAvailable(ctx, in.DriverProfileID, false); err != nil {
				warn("mark driver busy", err)
			}
		case lifecycle.EffectBeginETA:
			if eta, err := s.ETA(ctx, o.ID); err == nil {
				data["eta_minutes"] = strconv.Itoa(eta)
			}
		case lifecycle.EffectNotifyCustomer:
			if err := s.notifier.Send(ctx, o.UserID, title, body, data); err != nil {
				warn("notify customer", err)
			}
		case lifecycle.EffectNotifyParties:
			if err := s.notifier.Send(ctx, o.UserID, title, body, data); err != nil {
				warn("notify customer", err)
			}
			if o.DriverID != nil {
				if p, err := s.drivers.GetByID(ctx, *o.DriverID); err != nil || p == nil {
					warn("resolve driver", fmt.Errorf("driver %d: %v", *o.DriverID, err))
				} else if err := s.notifier.Send(ctx, p.UserID, title, body, data); err != nil {
					warn("notify driver", err)
				}
			}
		case lifecycle.EffectNotifyDrivers:
			profiles, err := s.drivers.ListAvailable(ctx)
			if err != nil {
				warn("list drivers", err)
				break
			}
			for _, p := range profiles {
				if err := s.notifier.Send(ctx, p.UserID, "Order ready for pickup", "An order is ready near you", data); err != nil {
					warn("notify driver", err)
				}
			}
		case lifecycle.EffectPromptRating:
			if err := s.notifier.Send(ctx, o.UserID, "How was your delivery?", "Rate your order", data); err != nil {
				warn("prompt rating", err)
			}
		case lifecycle.EffectRecordCancellation, lifecycle.EffectAttachProof:
			// Persisted together with the status write.
		}
	}

	// A finished or cancelled delivery frees the driver for new claims.
	if lifecycle.IsTerminal(o.Status) && o.DriverID != nil {
		if err := s.drivers.SetAvailable(ctx, *o.DriverID, true); err != nil {
			warn("free driver", err)
		}
	}

	return warnings
}

func notificationText(event lifecycle.Event) (title, body string) {
	switch event {
	case lifecycle.EventConfirm, lifecycle.EventClaim:
		return "Order confirmed", "Your order has been confirmed"
	case lifecycle.EventStartPreparing:
		return "Order in the kitchen", "Your order is being prepared"
	case lifecycle.EventMarkReady:
		return "Order ready", "Your order is ready for pickup"
	case lifecycle.EventPickUp:
		return "Order on its way", "Your driver has picked up the order"
	case lifecycle.EventDeliver:
		return "Order delivered", "Your order has been delivered"
	case lifecycle.EventCancel:
		return "Order cancelled", "The order has been cancelled"
	}
	return "Order update", "Your order status changed"
}

// publishOrderChange fans the row out to realtime subscribers filtered by
// id, user_id, driver_id or status.
func (s *OrderService) publishOrderChange(t realtime.ChangeType, o *models.Order) {
	if s.hub == nil {
		return
	}
	fields := map[string]string{
		"id":      o.ID,
		"user_id": strconv.FormatInt(o.UserID, 10),
		"status":  string(o.Status),
	}
	if o.DriverID != nil {
		fields["driver_id"] = strconv.FormatInt(*o.DriverID, 10)
	}
	s.hub.Publish(realtime.Change{Table: "orders", Type: t, Row: o, Fields: fields})
}

// GetOrder returns an order with its items, enforcing that the requester is
// a participant (admins pass a zero requester).
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderItem, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if o == nil {
		return nil, nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	items, err := s.orders.ListItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

// ETA estimates the minutes until delivery for an active order.
func (s *OrderService) ETA(ctx context.Context, orderID string) (int, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if o == nil {
		return 0, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if lifecycle.IsTerminal(o.Status) {
		return 0, fmt.Errorf("order %s is %s: %w", orderID, o.Status, ErrNoEstimate)
	}
	r, err := s.restaurants.GetByID(ctx, o.RestaurantID)
	if err != nil {
		return 0, err
	}
	if r == nil {
		return 0, fmt.Errorf("restaurant %d: %w", o.RestaurantID, ErrNotFound)
	}
	return geo.EstimateMinutes(o.Status, r.Lat, r.Lng, o.DestLat, o.DestLng), nil
}

// Earnings sums the delivery fees of the driver's delivered orders. The
// per-order delivery_fee recorded at checkout is authoritative.
func (s *OrderService) Earnings(ctx context.Context, driverProfileID int64) (float64, error) {
	return s.orders.EarningsForDriver(ctx, driverProfileID)
}

// Reassign overrides the assigned driver on a non-terminal order.
func (s *OrderService) Reassign(ctx context.Context, orderID string, driverProfileID int64) (*models.Order, error) {
	p, err := s.drivers.GetByID(ctx, driverProfileID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("driver %d: %w", driverProfileID, ErrNotFound)
	}
	affected, err := s.orders.ReassignDriver(ctx, orderID, driverProfileID)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrConflict)
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	s.publishOrderChange(realtime.ChangeUpdate, o)
	return o, nil
}
