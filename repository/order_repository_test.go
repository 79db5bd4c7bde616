package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/PremHer/appdelivery-sub000/internal/testutil"
	"github.com/PremHer/appdelivery-sub000/models"
)

type fixtures struct {
	db          *sql.DB
	orders      *OrderRepository
	users       *UserRepository
	drivers     *DriverRepository
	restaurants *RestaurantRepository
	customer    *models.User
	restaurant  *models.Restaurant
	driverA     *models.DriverProfile
	driverB     *models.DriverProfile
}

func setup(t *testing.T, name string) (context.Context, *fixtures) {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	f := &fixtures{
		db:          d,
		orders:      NewOrderRepository(d),
		users:       NewUserRepository(d),
		drivers:     NewDriverRepository(d),
		restaurants: NewRestaurantRepository(d),
	}

	var err error
	f.customer, err = f.users.Create(ctx, &models.User{Username: "alice"})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	f.restaurant, err = f.restaurants.Create(ctx, &models.Restaurant{Name: "Pollo Real", Lat: -12.05, Lng: -77.04, IsOpen: true})
	if err != nil {
		t.Fatalf("create restaurant: %v", err)
	}
	for i, p := range []**models.DriverProfile{&f.driverA, &f.driverB} {
		u, err := f.users.Create(ctx, &models.User{Username: "driver" + string(rune('A'+i)), Role: models.RoleDriver})
		if err != nil {
			t.Fatalf("create driver user: %v", err)
		}
		*p, err = f.drivers.Create(ctx, &models.DriverProfile{UserID: u.ID, Available: true})
		if err != nil {
			t.Fatalf("create driver profile: %v", err)
		}
	}
	return ctx, f
}

func newOrder(t *testing.T, ctx context.Context, f *fixtures) *models.Order {
	t.Helper()
	o, err := f.orders.Create(ctx, &models.Order{
		UserID:       f.customer.ID,
		RestaurantID: f.restaurant.ID,
		Total:        42.5,
		DeliveryFee:  4,
		DestLat:      -12.10,
		DestLng:      -77.04,
	}, nil)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestCreateAndReadBack(t *testing.T) {
	ctx, f := setup(t, "orders_roundtrip")
	o := newOrder(t, ctx, f)

	if o.Status != models.OrderStatusPending {
		t.Fatalf("new order status = %s, want pending", o.Status)
	}
	if o.DriverID != nil {
		t.Fatalf("new order driver_id = %v, want nil", *o.DriverID)
	}
	if o.ID == "" {
		t.Fatalf("order id not assigned")
	}

	// Writing a status and re-reading yields the same status.
	if n, err := f.orders.UpdateStatus(ctx, o.ID, []models.OrderStatus{models.OrderStatusPending}, models.OrderStatusConfirmed); err != nil || n != 1 {
		t.Fatalf("confirm: n=%d err=%v", n, err)
	}
	got, err := f.orders.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.OrderStatusConfirmed {
		t.Fatalf("re-read status = %s, want confirmed", got.Status)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	ctx, f := setup(t, "orders_notfound")
	got, err := f.orders.GetByID(ctx, "no-such-order")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing order, got %+v", got)
	}
}

func TestClaimRace(t *testing.T) {
	ctx, f := setup(t, "orders_claim_race")
	o := newOrder(t, ctx, f)

	// Driver A's conditional update executes first and wins.
	n, err := f.orders.Claim(ctx, o.ID, f.driverA.ID)
	if err != nil {
		t.Fatalf("claim A: %v", err)
	}
	if n != 1 {
		t.Fatalf("claim A affected %d rows, want 1", n)
	}

	// Driver B loses: zero rows affected, not an error.
	n, err = f.orders.Claim(ctx, o.ID, f.driverB.ID)
	if err != nil {
		t.Fatalf("claim B: %v", err)
	}
	if n != 0 {
		t.Fatalf("claim B affected %d rows, want 0", n)
	}

	got, err := f.orders.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DriverID == nil || *got.DriverID != f.driverA.ID {
		t.Fatalf("driver_id = %v, want %d", got.DriverID, f.driverA.ID)
	}
	if got.Status != models.OrderStatusConfirmed {
		t.Fatalf("status after claim = %s, want confirmed", got.Status)
	}

	// Losing the race removes the order from the available view.
	avail, err := f.orders.ListAvailable(ctx, 10)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	for _, a := range avail {
		if a.ID == o.ID {
			t.Fatalf("claimed order still listed as available")
		}
	}
}

func TestTerminalStatesRejectWrites(t *testing.T) {
	ctx, f := setup(t, "orders_terminal")
	o := newOrder(t, ctx, f)

	if n, err := f.orders.MarkCancelled(ctx, o.ID, "changed my mind", []models.OrderStatus{models.OrderStatusPending, models.OrderStatusConfirmed}); err != nil || n != 1 {
		t.Fatalf("cancel: n=%d err=%v", n, err)
	}

	// Any further status write is guarded out by the precondition.
	n, err := f.orders.UpdateStatus(ctx, o.ID, []models.OrderStatus{models.OrderStatusPending}, models.OrderStatusConfirmed)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if n != 0 {
		t.Fatalf("stale precondition affected %d rows, want 0", n)
	}

	got, _ := f.orders.GetByID(ctx, o.ID)
	if got.CancellationReason == nil || *got.CancellationReason != "changed my mind" {
		t.Fatalf("cancellation_reason = %v", got.CancellationReason)
	}
	if got.CancelledAt == nil {
		t.Fatalf("cancelled_at not set")
	}
}

func TestMarkDeliveredWithoutPhoto(t *testing.T) {
	ctx, f := setup(t, "orders_deliver_nophoto")
	o := newOrder(t, ctx, f)

	if n, _ := f.orders.Claim(ctx, o.ID, f.driverA.ID); n != 1 {
		t.Fatalf("claim failed")
	}
	if n, err := f.orders.UpdateStatus(ctx, o.ID, []models.OrderStatus{models.OrderStatusConfirmed}, models.OrderStatusPickedUp); err != nil || n != 1 {
		t.Fatalf("pick up: n=%d err=%v", n, err)
	}

	// Proof photo is best-effort: delivery succeeds with a nil URL.
	n, err := f.orders.MarkDelivered(ctx, o.ID, nil)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if n != 1 {
		t.Fatalf("deliver affected %d rows, want 1", n)
	}
	got, _ := f.orders.GetByID(ctx, o.ID)
	if got.Status != models.OrderStatusDelivered {
		t.Fatalf("status = %s, want delivered", got.Status)
	}
	if got.ProofOfDelivery != nil {
		t.Fatalf("proof_of_delivery = %v, want nil", *got.ProofOfDelivery)
	}

	// Delivering twice is guarded by the picked_up precondition.
	if n, _ := f.orders.MarkDelivered(ctx, o.ID, nil); n != 0 {
		t.Fatalf("second deliver affected %d rows, want 0", n)
	}
}

func TestEarningsUseDeliveryFee(t *testing.T) {
	ctx, f := setup(t, "orders_earnings")
	for i := 0; i < 3; i++ {
		o := newOrder(t, ctx, f)
		if n, _ := f.orders.Claim(ctx, o.ID, f.driverA.ID); n != 1 {
			t.Fatalf("claim failed")
		}
		if _, err := f.orders.UpdateStatus(ctx, o.ID, []models.OrderStatus{models.OrderStatusConfirmed}, models.OrderStatusPickedUp); err != nil {
			t.Fatalf("pick up: %v", err)
		}
		if i < 2 { // leave the last one undelivered
			if _, err := f.orders.MarkDelivered(ctx, o.ID, nil); err != nil {
				t.Fatalf("deliver: %v", err)
			}
		}
	}
	got, err := f.orders.EarningsForDriver(ctx, f.driverA.ID)
	if err != nil {
		t.Fatalf("earnings: %v", err)
	}
	if got != 8 { // two delivered orders at 4 each
		t.Fatalf("earnings = %v, want 8", got)
	}
}

func TestListItems(t *testing.T) {
	ctx, f := setup(t, "orders_items")
	products := NewProductRepository(f.db)
	p, err := products.Create(ctx, &models.Product{RestaurantID: f.restaurant.ID, Name: "Ceviche", Price: 18, Available: true})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	o, err := f.orders.Create(ctx, &models.Order{
		UserID: f.customer.ID, RestaurantID: f.restaurant.ID, Total: 36, DeliveryFee: 4,
		DestLat: -12.1, DestLng: -77.04,
	}, []models.OrderItem{{ProductID: p.ID, Quantity: 2, UnitPrice: 18}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	items, err := f.orders.ListItems(ctx, o.ID)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 2 || items[0].UnitPrice != 18 {
		t.Fatalf("items = %+v", items)
	}
}
