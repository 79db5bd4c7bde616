// Package lifecycle decides order status transitions. It is a pure function
// of (current status, actor role, event): no I/O happens here, so every
// surface (admin, driver, customer) shares one interpretation of the
// status machine.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/PremHer/appdelivery-sub000/models"
)

// Actor is the role attempting an event.
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorDriver   Actor = "driver"
	ActorAdmin    Actor = "admin"
)

// Event is an action attempted against an order.
type Event string

const (
	EventConfirm        Event = "confirm"
	EventClaim          Event = "claim"
	EventCancel         Event = "cancel"
	EventStartPreparing Event = "start_preparing"
	EventMarkReady      Event = "mark_ready"
	EventPickUp         Event = "pick_up"
	EventDeliver        Event = "deliver"
)

// Effect is a side effect the caller must attempt after a successful
// transition. Effects are best-effort: their failure never rolls back the
// status change.
type Effect string

const (
	EffectAssignDriver       Effect = "assign_driver"
	EffectNotifyCustomer     Effect = "notify_customer"
	EffectNotifyParties      Effect = "notify_parties"
	EffectNotifyDrivers      Effect = "notify_drivers"
	EffectRecordCancellation Effect = "record_cancellation"
	EffectBeginETA           Effect = "begin_eta"
	EffectAttachProof        Effect = "attach_proof"
	EffectPromptRating       Effect = "prompt_rating"
)

var (
	// ErrInvalidTransition is returned when the event is not legal from the
	// order's current status, including any event from a terminal status.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrActorNotAllowed is returned when the transition exists but the
	// acting role may not trigger it.
	ErrActorNotAllowed = errors.New("actor not allowed")
)

// Decision is the outcome of a legal transition.
type Decision struct {
	Next    models.OrderStatus
	Effects []Effect
}

type rule struct {
	from    []models.OrderStatus
	actors  []Actor
	next    models.OrderStatus
	effects []Effect
}

var rules = map[Event]rule{
	EventConfirm: {
		from:    []models.OrderStatus{models.OrderStatusPending},
		actors:  []Actor{ActorAdmin},
		next:    models.OrderStatusConfirmed,
		effects: []Effect{EffectNotifyCustomer},
	},
	EventClaim: {
		from:    []models.OrderStatus{models.OrderStatusPending},
		actors:  []Actor{ActorDriver},
		next:    models.OrderStatusConfirmed,
		effects: []Effect{EffectAssignDriver, EffectNotifyCustomer},
	},
	EventCancel: {
		from:    []models.OrderStatus{models.OrderStatusPending, models.OrderStatusConfirmed},
		actors:  []Actor{ActorCustomer, ActorAdmin},
		next:    models.OrderStatusCancelled,
		effects: []Effect{EffectRecordCancellation, EffectNotifyParties},
	},
	EventStartPreparing: {
		from:    []models.OrderStatus{models.OrderStatusConfirmed},
		actors:  []Actor{ActorAdmin},
		next:    models.OrderStatusPreparing,
		effects: []Effect{EffectNotifyCustomer},
	},
	EventMarkReady: {
		from:    []models.OrderStatus{models.OrderStatusPreparing},
		actors:  []Actor{ActorAdmin},
		next:    models.OrderStatusReady,
		effects: []Effect{EffectNotifyCustomer, EffectNotifyDrivers},
	},
	EventPickUp: {
		from:    []models.OrderStatus{models.OrderStatusConfirmed, models.OrderStatusPreparing, models.OrderStatusReady},
		actors:  []Actor{ActorDriver},
		next:    models.OrderStatusPickedUp,
		effects: []Effect{EffectNotifyCustomer, EffectBeginETA},
	},
	EventDeliver: {
		from:    []models.OrderStatus{models.OrderStatusPickedUp},
		actors:  []Actor{ActorDriver},
		next:    models.OrderStatusDelivered,
		effects: []Effect{EffectAttachProof, EffectNotifyCustomer, EffectPromptRating},
	},
}

// IsTerminal reports whether s accepts no further events.
func IsTerminal(s models.OrderStatus) bool {
	return s == models.OrderStatusDelivered || s == models.OrderStatusCancelled
}

// Decide checks whether actor may apply event to an order in status current
// and returns the resulting status and required side effects. The decision
// is made before any remote call; callers must still guard the write with a
// status precondition because the row may have moved since it was read.
func Decide(current models.OrderStatus, actor Actor, event Event) (Decision, error) {
	if !models.ValidOrderStatus(current) {
		return Decision{}, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, current)
	}
	r, ok := rules[event]
	if !ok {
		return Decision{}, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, event)
	}
	if IsTerminal(current) {
		return Decision{}, fmt.Errorf("%w: order is %s", ErrInvalidTransition, current)
	}
	legalFrom := false
	for _, s := range r.from {
		if s == current {
			legalFrom = true
			break
		}
	}
	if !legalFrom {
		return Decision{}, fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, event, current)
	}
	for _, a := range r.actors {
		if a == actor {
			return Decision{Next: r.next, Effects: append([]Effect(nil), r.effects...)}, nil
		}
	}
	return Decision{}, fmt.Errorf("%w: %s cannot %s", ErrActorNotAllowed, actor, event)
}

// From returns the set of statuses event may legally start from. Used to
// build the status precondition of the conditional update.
func From(event Event) []models.OrderStatus {
	r, ok := rules[event]
	if !ok {
		return nil
	}
	return append([]models.OrderStatus(nil), r.from...)
}
