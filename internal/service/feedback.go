package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/PremHer/appdelivery-sub000/internal/realtime"
	"github.com/PremHer/appdelivery-sub000/models"
)

// RateOrder records the customer's rating for a delivered order. One rating
// per order.
func (s *OrderService) RateOrder(ctx context.Context, userID int64, orderID string, stars int, comment string) (*models.Rating, error) {
	if stars < 1 || stars > 5 {
		return nil, fmt.Errorf("%w: stars must be 1 to 5", ErrInvalid)
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if o.UserID != userID {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrForbidden)
	}
	if o.Status != models.OrderStatusDelivered {
		return nil, fmt.Errorf("%w: order is not delivered", ErrInvalid)
	}
	if existing, err := s.ratings.GetByOrder(ctx, orderID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, fmt.Errorf("%w: order already rated", ErrInvalid)
	}
	return s.ratings.Create(ctx, &models.Rating{OrderID: orderID, UserID: userID, Stars: stars, Comment: comment})
}

// PostMessage appends a chat message to an order's thread. Only the
// customer and the assigned driver may write.
func (s *OrderService) PostMessage(ctx context.Context, senderUserID int64, orderID, body string) (*models.Message, error) {
	if body == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalid)
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err := s.checkMessageParticipant(ctx, o, senderUserID); err != nil {
		return nil, err
	}
	m, err := s.messages.Create(ctx, &models.Message{OrderID: orderID, SenderID: senderUserID, Body: body})
	if err != nil {
		return nil, err
	}
	if s.hub != nil {
		s.hub.Publish(realtime.Change{
			Table: "messages",
			Type:  realtime.ChangeInsert,
			Row:   m,
			Fields: map[string]string{
				"order_id":  m.OrderID,
				"sender_id": strconv.FormatInt(m.SenderID, 10),
			},
		})
	}
	return m, nil
}

// ListMessages returns the order's chat thread to a participant.
func (s *OrderService) ListMessages(ctx context.Context, requesterUserID int64, orderID string) ([]models.Message, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err := s.checkMessageParticipant(ctx, o, requesterUserID); err != nil {
		return nil, err
	}
	return s.messages.ListByOrder(ctx, orderID)
}

func (s *OrderService) checkMessageParticipant(ctx context.Context, o *models.Order, userID int64) error {
	if o.UserID == userID {
		return nil
	}
	if o.DriverID != nil {
		p, err := s.drivers.GetByID(ctx, *o.DriverID)
		if err != nil {
			return err
		}
		if p != nil && p.UserID == userID {
			return nil
		}
	}
	return fmt.Errorf("order %s: %w", o.ID, ErrForbidden)
}
