package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PremHer/appdelivery-sub000/internal/lifecycle"
	"github.com/PremHer/appdelivery-sub000/internal/realtime"
	"github.com/PremHer/appdelivery-sub000/internal/storage"
	"github.com/PremHer/appdelivery-sub000/internal/testutil"
	"github.com/PremHer/appdelivery-sub000/models"
	"github.com/PremHer/appdelivery-sub000/repository"
)

type stubNotifier struct {
	mu   sync.Mutex
	fail bool
	sent []string // titles, in order
}

func (n *stubNotifier) Send(ctx context.Context, userID int64, title, body string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("push gateway unreachable")
	}
	n.sent = append(n.sent, title)
	return nil
}

type svcFixtures struct {
	svc        *OrderService
	notifier   *stubNotifier
	orders     *repository.OrderRepository
	drivers    *repository.DriverRepository
	customer   *models.User
	other      *models.User
	restaurant *models.Restaurant
	product    *models.Product
	driverA    *models.DriverProfile
	driverB    *models.DriverProfile
}

func setup(t *testing.T, name string) (context.Context, *svcFixtures) {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	f := &svcFixtures{
		notifier: &stubNotifier{},
		orders:   repository.NewOrderRepository(d),
		drivers:  repository.NewDriverRepository(d),
	}
	users := repository.NewUserRepository(d)
	restaurants := repository.NewRestaurantRepository(d)
	products := repository.NewProductRepository(d)

	blobs, err := storage.NewFileStore(t.TempDir(), "http://files.local")
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	f.svc = NewOrderService(Deps{
		Orders:      f.orders,
		Drivers:     f.drivers,
		Restaurants: restaurants,
		Products:    products,
		Coupons:     repository.NewCouponRepository(d),
		Ratings:     repository.NewRatingRepository(d),
		Messages:    repository.NewMessageRepository(d),
		Outbox:      repository.NewOutboxRepository(d),
		Notifier:    f.notifier,
		Hub:         realtime.NewHub(),
		Blobs:       blobs,
	})

	if f.customer, err = users.Create(ctx, &models.User{Username: "alice"}); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if f.other, err = users.Create(ctx, &models.User{Username: "mallory"}); err != nil {
		t.Fatalf("create other customer: %v", err)
	}
	if f.restaurant, err = restaurants.Create(ctx, &models.Restaurant{Name: "Pollo Real", Lat: -12.05, Lng: -77.04, IsOpen: true}); err != nil {
		t.Fatalf("create restaurant: %v", err)
	}
	if f.product, err = products.Create(ctx, &models.Product{RestaurantID: f.restaurant.ID, Name: "Menu del dia", Price: 10, Available: true}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	for i, p := range []**models.DriverProfile{&f.driverA, &f.driverB} {
		u, err := users.Create(ctx, &models.User{Username: "driver" + string(rune('A'+i)), Role: models.RoleDriver})
		if err != nil {
			t.Fatalf("create driver user: %v", err)
		}
		if *p, err = f.drivers.Create(ctx, &models.DriverProfile{UserID: u.ID, Available: true}); err != nil {
			t.Fatalf("create driver profile: %v", err)
		}
	}
	return ctx, f
}

// checkout creates a pending order at the restaurant's own coordinates so
// the delivery fee is exactly the base fee.
func (f *svcFixtures) checkout(ctx context.Context, t *testing.T) *models.Order {
	t.Helper()
	o, err := f.svc.Checkout(ctx, f.customer.ID, CheckoutRequest{
		RestaurantID: f.restaurant.ID,
		Items:        []CheckoutItem{{ProductID: f.product.ID, Quantity: 2}},
		DestLat:      f.restaurant.Lat,
		DestLng:      f.restaurant.Lng,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return o
}

func (f *svcFixtures) claimInput(d *models.DriverProfile) TransitionInput {
	return TransitionInput{Actor: lifecycle.ActorDriver, UserID: d.UserID, DriverProfileID: d.ID}
}

func TestCheckoutPricing(t *testing.T) {
	ctx, f := setup(t, "svc_checkout")
	o := f.checkout(ctx, t)

	if o.Status != models.OrderStatusPending {
		t.Fatalf("status = %s, want pending", o.Status)
	}
	if o.DriverID != nil {
		t.Fatalf("driver assigned at checkout")
	}
	if o.DeliveryFee != deliveryBaseFee {
		t.Fatalf("fee = %v, want %v", o.DeliveryFee, deliveryBaseFee)
	}
	// 2 x 10.00 plus the base fee.
	if o.Total != 20+deliveryBaseFee {
		t.Fatalf("total = %v, want %v", o.Total, 20+deliveryBaseFee)
	}
}

func TestCheckoutAppliesCoupon(t *testing.T) {
	ctx, f := setup(t, "svc_coupon")
	coupons := f.svc.coupons
	if _, err := coupons.Create(ctx, &models.Coupon{Code: "QUARTER", Discount: 0.25, ExpiresAt: "2099-01-01 00:00:00", Active: true}); err != nil {
		t.Fatalf("create coupon: %v", err)
	}

	o, err := f.svc.Checkout(ctx, f.customer.ID, CheckoutRequest{
		RestaurantID: f.restaurant.ID,
		Items:        []CheckoutItem{{ProductID: f.product.ID, Quantity: 2}},
		DestLat:      f.restaurant.Lat,
		DestLng:      f.restaurant.Lng,
		CouponCode:   "QUARTER",
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if o.Total != 15+deliveryBaseFee {
		t.Fatalf("total = %v, want %v", o.Total, 15+deliveryBaseFee)
	}

	_, err = f.svc.Checkout(ctx, f.customer.ID, CheckoutRequest{
		RestaurantID: f.restaurant.ID,
		Items:        []CheckoutItem{{ProductID: f.product.ID, Quantity: 1}},
		CouponCode:   "NOSUCH",
	})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("unknown coupon: err = %v, want ErrInvalid", err)
	}
}

func TestCheckoutValidatesBeforeWriting(t *testing.T) {
	ctx, f := setup(t, "svc_validate")

	_, err := f.svc.Checkout(ctx, f.customer.ID, CheckoutRequest{RestaurantID: f.restaurant.ID})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("empty cart: err = %v, want ErrInvalid", err)
	}

	_, err = f.svc.Checkout(ctx, f.customer.ID, CheckoutRequest{
		RestaurantID: f.restaurant.ID,
		Items:        []CheckoutItem{{ProductID: 9999, Quantity: 1}},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown product: err = %v, want ErrNotFound", err)
	}

	if err := f.svc.restaurants.SetOpen(ctx, f.restaurant.ID, false); err != nil {
		t.Fatalf("close restaurant: %v", err)
	}
	_, err = f.svc.Checkout(ctx, f.customer.ID, CheckoutRequest{
		RestaurantID: f.restaurant.ID,
		Items:        []CheckoutItem{{ProductID: f.product.ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("closed restaurant: err = %v, want ErrInvalid", err)
	}
}

func TestClaimLosesToEarlierDriver(t *testing.T) {
	ctx, f := setup(t, "svc_claim")
	o := f.checkout(ctx, t)

	won, warnings, err := f.svc.Transition(ctx, o.ID, lifecycle.EventClaim, f.claimInput(f.driverA))
	if err != nil {
		t.Fatalf("first claim: %v (warnings %v)", err, warnings)
	}
	if won.Status != models.OrderStatusConfirmed || won.DriverID == nil || *won.DriverID != f.driverA.ID {
		t.Fatalf("after claim: status=%s driver=%v", won.Status, won.DriverID)
	}

	_, _, err = f.svc.Transition(ctx, o.ID, lifecycle.EventClaim, f.claimInput(f.driverB))
	if !errors.Is(err, ErrOrderTaken) {
		t.Fatalf("second claim: err = %v, want ErrOrderTaken", err)
	}

	// The winning driver is off the available list while delivering.
	avail, err := f.drivers.ListAvailable(ctx)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	for _, p := range avail {
		if p.ID == f.driverA.ID {
			t.Fatalf("claiming driver still listed as available")
		}
	}
}

func TestTerminalOrdersRejectEvents(t *testing.T) {
	ctx, f := setup(t, "svc_terminal")
	o := f.checkout(ctx, t)

	in := TransitionInput{Actor: lifecycle.ActorCustomer, UserID: f.customer.ID, Reason: "changed my mind"}
	cancelled, _, err := f.svc.Transition(ctx, o.ID, lifecycle.EventCancel, in)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.OrderStatusCancelled || cancelled.CancellationReason == nil {
		t.Fatalf("after cancel: %+v", cancelled)
	}

	_, _, err = f.svc.Transition(ctx, o.ID, lifecycle.EventConfirm, TransitionInput{Actor: lifecycle.ActorAdmin})
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("confirm after cancel: err = %v, want ErrInvalidTransition", err)
	}
	got, err := f.orders.GetByID(ctx, o.ID)
	if err != nil || got == nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != models.OrderStatusCancelled {
		t.Fatalf("status moved to %s after rejected event", got.Status)
	}
}

func TestCustomerCannotCancelSomeoneElsesOrder(t *testing.T) {
	ctx, f := setup(t, "svc_owner")
	o := f.checkout(ctx, t)

	_, _, err := f.svc.Transition(ctx, o.ID, lifecycle.EventCancel,
		TransitionInput{Actor: lifecycle.ActorCustomer, UserID: f.other.ID})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}

func TestDeliverWithoutPhoto(t *testing.T) {
	ctx, f := setup(t, "svc_deliver")
	o := f.checkout(ctx, t)
	in := f.claimInput(f.driverA)

	for _, ev := range []lifecycle.Event{lifecycle.EventClaim, lifecycle.EventPickUp, lifecycle.EventDeliver} {
		if _, _, err := f.svc.Transition(ctx, o.ID, ev, in); err != nil {
			t.Fatalf("%s: %v", ev, err)
		}
	}

	got, err := f.orders.GetByID(ctx, o.ID)
	if err != nil || got == nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != models.OrderStatusDelivered {
		t.Fatalf("status = %s, want delivered", got.Status)
	}
	if got.ProofOfDelivery != nil {
		t.Fatalf("proof = %v, want nil", *got.ProofOfDelivery)
	}

	// The driver is free again after finishing.
	p, err := f.drivers.GetByID(ctx, f.driverA.ID)
	if err != nil || p == nil {
		t.Fatalf("reload driver: %v", err)
	}
	if !p.Available {
		t.Fatalf("driver still busy after delivery")
	}
}

func TestDeliverAttachesProofPhoto(t *testing.T) {
	ctx, f := setup(t, "svc_proof")
	o := f.checkout(ctx, t)
	in := f.claimInput(f.driverA)

	for _, ev := range []lifecycle.Event{lifecycle.EventClaim, lifecycle.EventPickUp} {
		if _, _, err := f.svc.Transition(ctx, o.ID, ev, in); err != nil {
			t.Fatalf("%s: %v", ev, err)
		}
	}
	in.ProofPhoto = []byte("jpeg bytes")
	got, warnings, err := f.svc.Transition(ctx, o.ID, lifecycle.EventDeliver, in)
	if err != nil {
		t.Fatalf("deliver: %v (warnings %v)", err, warnings)
	}
	if got.ProofOfDelivery == nil {
		t.Fatalf("proof missing")
	}
	want := "http://files.local/proofs/" + o.ID + ".jpg"
	if *got.ProofOfDelivery != want {
		t.Fatalf("proof = %q, want %q", *got.ProofOfDelivery, want)
	}
}

func TestFailingNotifierDoesNotBlockTransition(t *testing.T) {
	ctx, f := setup(t, "svc_warn")
	o := f.checkout(ctx, t)
	f.notifier.fail = true

	got, warnings, err := f.svc.Transition(ctx, o.ID, lifecycle.EventConfirm, TransitionInput{Actor: lifecycle.ActorAdmin})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got.Status != models.OrderStatusConfirmed {
		t.Fatalf("status = %s, want confirmed", got.Status)
	}
	if len(warnings) == 0 {
		t.Fatalf("expected a warning for the failed notification")
	}
}

func TestETA(t *testing.T) {
	ctx, f := setup(t, "svc_eta")
	o, err := f.svc.Checkout(ctx, f.customer.ID, CheckoutRequest{
		RestaurantID: f.restaurant.ID,
		Items:        []CheckoutItem{{ProductID: f.product.ID, Quantity: 1}},
		DestLat:      -12.10,
		DestLng:      -77.04,
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, _, err := f.svc.Transition(ctx, o.ID, lifecycle.EventConfirm, TransitionInput{Actor: lifecycle.ActorAdmin}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	eta, err := f.svc.ETA(ctx, o.ID)
	if err != nil {
		t.Fatalf("eta: %v", err)
	}
	// 15 prep + ceil(5.56 km x 4) + 5 buffer.
	if eta != 43 {
		t.Fatalf("eta = %d, want 43", eta)
	}

	if _, _, err := f.svc.Transition(ctx, o.ID, lifecycle.EventCancel, TransitionInput{Actor: lifecycle.ActorAdmin}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.ETA(ctx, o.ID); !errors.Is(err, ErrNoEstimate) {
		t.Fatalf("eta on cancelled: err = %v, want ErrNoEstimate", err)
	}
}

func TestRatingOnlyAfterDelivery(t *testing.T) {
	ctx, f := setup(t, "svc_rating")
	o := f.checkout(ctx, t)

	if _, err := f.svc.RateOrder(ctx, f.customer.ID, o.ID, 5, "great"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("rate pending: err = %v, want ErrInvalid", err)
	}

	in := f.claimInput(f.driverA)
	for _, ev := range []lifecycle.Event{lifecycle.EventClaim, lifecycle.EventPickUp, lifecycle.EventDeliver} {
		if _, _, err := f.svc.Transition(ctx, o.ID, ev, in); err != nil {
			t.Fatalf("%s: %v", ev, err)
		}
	}
	if _, err := f.svc.RateOrder(ctx, f.customer.ID, o.ID, 5, "great"); err != nil {
		t.Fatalf("rate delivered: %v", err)
	}
	if _, err := f.svc.RateOrder(ctx, f.customer.ID, o.ID, 4, "again"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("second rating: err = %v, want ErrInvalid", err)
	}
}

func TestMessagesRestrictedToParticipants(t *testing.T) {
	ctx, f := setup(t, "svc_messages")
	o := f.checkout(ctx, t)
	if _, _, err := f.svc.Transition(ctx, o.ID, lifecycle.EventClaim, f.claimInput(f.driverA)); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if _, err := f.svc.PostMessage(ctx, f.customer.ID, o.ID, "where are you?"); err != nil {
		t.Fatalf("customer message: %v", err)
	}
	if _, err := f.svc.PostMessage(ctx, f.driverA.UserID, o.ID, "two blocks away"); err != nil {
		t.Fatalf("driver message: %v", err)
	}
	if _, err := f.svc.PostMessage(ctx, f.other.ID, o.ID, "hi"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("outsider message: err = %v, want ErrForbidden", err)
	}

	msgs, err := f.svc.ListMessages(ctx, f.customer.ID, o.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
}
