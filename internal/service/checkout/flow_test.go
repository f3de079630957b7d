package checkout

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/kv"
	"storefront-cart/internal/pricing"
	cartrepo "storefront-cart/internal/repository/cart"
	orderrepo "storefront-cart/internal/repository/order"
	"storefront-cart/internal/service/cart"
)

type stubVerifier struct {
	coupons map[string]domain.Coupon
	err     error
	calls   int
}

func (s *stubVerifier) VerifyCoupon(_ context.Context, code string) (domain.Coupon, error) {
	s.calls++
	if s.err != nil {
		return domain.Coupon{}, s.err
	}
	c, ok := s.coupons[code]
	if !ok {
		return domain.Coupon{}, errors.New("Cupón no válido")
	}
	return c, nil
}

// gatedVerifier blocks each call until the test releases it.
type gatedVerifier struct {
	started chan string
	release map[string]chan struct{}
	coupons map[string]domain.Coupon
}

func (g *gatedVerifier) VerifyCoupon(_ context.Context, code string) (domain.Coupon, error) {
	g.started <- code
	<-g.release[code]
	return g.coupons[code], nil
}

type stubOrders struct {
	appended  []domain.Order
	appendErr error
}

func (s *stubOrders) Append(_ context.Context, o domain.Order) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, o)
	return nil
}

func (s *stubOrders) List(_ context.Context) ([]domain.Order, error) {
	return s.appended, nil
}

type stubSyncer struct {
	merged []domain.LineItem
	err    error
	hook   func()
}

func (s *stubSyncer) SyncCart(_ context.Context, _ string, _ []domain.LineItem) ([]domain.LineItem, error) {
	if s.hook != nil {
		s.hook()
	}
	return s.merged, s.err
}

var (
	promo10     = domain.Coupon{Code: "PROMO10", Kind: domain.CouponPercentage, Value: 10}
	envioGratis = domain.Coupon{Code: "ENVIOGRATIS", Kind: domain.CouponFreeShipping}
)

func validAddress() domain.Address {
	return domain.Address{
		RecipientFirstName: "Juan",
		RecipientLastName:  "Rodríguez",
		Line1:              "Independencia 317",
		City:               "Cocula",
		State:              "Jalisco",
		PostalCode:         "48500",
		Country:            "México",
		Phone:              "3312345678",
	}
}

func newTestFlow(t *testing.T, verifier CouponVerifier, orders orderrepo.Repository) *Flow {
	t.Helper()
	store := cart.New(cartrepo.NewKV(kv.NewMemory()), pricing.Policy{}, nil)
	if verifier == nil {
		verifier = &stubVerifier{coupons: map[string]domain.Coupon{"PROMO10": promo10, "ENVIOGRATIS": envioGratis}}
	}
	if orders == nil {
		orders = &stubOrders{}
	}
	return New(Deps{
		Store:    store,
		Verifier: verifier,
		Orders:   orders,
		Now:      func() time.Time { return time.UnixMilli(1700000000000) },
	})
}

func TestStageTransitions(t *testing.T) {
	if !StageIdle.CanTransitionTo(StageAddressEntry) {
		t.Fatalf("idle -> address_entry should be allowed")
	}
	if StageIdle.CanTransitionTo(StageConfirmed) {
		t.Fatalf("idle -> confirmed should be rejected")
	}
	if StageAddressEntry.CanTransitionTo(StageConfirmed) {
		t.Fatalf("address_entry -> confirmed should be rejected")
	}
	if !StageShippingSelection.CanTransitionTo(StageConfirmed) {
		t.Fatalf("shipping_selection -> confirmed should be allowed")
	}
}

func TestStartWithEmptyCart(t *testing.T) {
	flow := newTestFlow(t, nil, nil)
	snap, err := flow.Start(context.Background())
	if !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}
	if snap.Stage != StageIdle {
		t.Fatalf("expected idle, got %s", snap.Stage)
	}
}

func TestSubmitAddressValidation(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, nil, nil)
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 100})
	if _, err := flow.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	addr := validAddress()
	addr.City = "   "
	addr.Phone = ""
	snap, err := flow.SubmitAddress(ctx, addr)
	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected FieldError, got %v", err)
	}
	if len(fieldErr.Violations) != 2 || fieldErr.Violations[0].Field != "ciudad" || fieldErr.Violations[1].Field != "telefono" {
		t.Fatalf("unexpected violations %+v", fieldErr.Violations)
	}
	if snap.Stage != StageAddressEntry || snap.Cart.ShippingAddress != nil {
		t.Fatalf("flow should stay in address entry, got %+v", snap)
	}

	addr = validAddress()
	addr.Line1 = "  Independencia 317  "
	snap, err = flow.SubmitAddress(ctx, addr)
	if err != nil {
		t.Fatalf("SubmitAddress: %v", err)
	}
	if snap.Stage != StageShippingSelection {
		t.Fatalf("expected shipping selection, got %s", snap.Stage)
	}
	if snap.Cart.ShippingAddress == nil || snap.Cart.ShippingAddress.Line1 != "Independencia 317" {
		t.Fatalf("address not attached/trimmed: %+v", snap.Cart.ShippingAddress)
	}
}

func TestLine2IsOptional(t *testing.T) {
	if _, err := ValidateAddress(validAddress()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmitAddressOutOfOrder(t *testing.T) {
	flow := newTestFlow(t, nil, nil)
	_, err := flow.SubmitAddress(context.Background(), validAddress())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestSelectShippingRecomputes(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, nil, nil)
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 750, Quantity: 1})
	if _, err := flow.SelectShipping(ctx, domain.ShippingExpress); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition before address, got %v", err)
	}
	mustStart(t, flow)
	mustAddress(t, flow)

	snap, err := flow.SelectShipping(ctx, domain.ShippingExpress)
	if err != nil {
		t.Fatalf("SelectShipping: %v", err)
	}
	if snap.Cart.ShippingCost != 180 {
		t.Fatalf("expected express 180, got %v", snap.Cart.ShippingCost)
	}
	if math.Abs(snap.Cart.Total-(750+120+180)) > 1e-9 {
		t.Fatalf("unexpected total %v", snap.Cart.Total)
	}
}

func TestConfirmCreatesOrderAndClearsCart(t *testing.T) {
	ctx := context.Background()
	orders := orderrepo.NewKV(kv.NewMemory(), nil)
	flow := newTestFlow(t, nil, orders)
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", Name: "Montura", UnitPrice: 300, Quantity: 1})
	mustStart(t, flow)
	mustAddress(t, flow)
	if _, err := flow.SelectShipping(ctx, domain.ShippingExpress); err != nil {
		t.Fatalf("SelectShipping: %v", err)
	}
	if _, err := flow.ApplyCoupon(ctx, "ENVIOGRATIS"); err != nil {
		t.Fatalf("ApplyCoupon: %v", err)
	}
	expectedTotal := flow.Snapshot().Cart.Total

	order, snap, err := flow.Confirm(ctx)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if order.ID != "PED1700000000000" || order.Status != domain.OrderPending {
		t.Fatalf("unexpected order %+v", order)
	}
	if order.Total != expectedTotal || order.ShippingCost != 0 || order.ShippingMethod != domain.ShippingExpress {
		t.Fatalf("order totals mismatch %+v", order)
	}
	if len(snap.Cart.Items) != 0 || snap.Stage != StageIdle || snap.Cart.Coupon != nil || snap.Cart.ShippingAddress != nil {
		t.Fatalf("expected fresh idle cart, got %+v", snap)
	}
	if snap.Cart.ShippingMethod != domain.ShippingStandard {
		t.Fatalf("expected shipping method reset, got %s", snap.Cart.ShippingMethod)
	}

	persisted, err := flow.Orders(ctx)
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Total != expectedTotal || len(persisted[0].Items) != 1 {
		t.Fatalf("unexpected persisted orders %+v", persisted)
	}
}

func TestConfirmOrderIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	stub := &stubOrders{}
	flow := newTestFlow(t, nil, stub)
	for i := 0; i < 2; i++ {
		flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 10})
		mustStart(t, flow)
		mustAddress(t, flow)
		if _, _, err := flow.Confirm(ctx); err != nil {
			t.Fatalf("Confirm: %v", err)
		}
	}
	if stub.appended[0].ID == stub.appended[1].ID {
		t.Fatalf("duplicate order ids %s", stub.appended[0].ID)
	}
}

func TestConfirmSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	stub := &stubOrders{}
	flow := newTestFlow(t, nil, stub)
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 10, Quantity: 2})
	mustStart(t, flow)
	mustAddress(t, flow)
	if _, _, err := flow.Confirm(ctx); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 10, Quantity: 5})
	if stub.appended[0].Items[0].Quantity != 2 {
		t.Fatalf("order items alias cart items")
	}
}

func TestConfirmAppendFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, nil, &stubOrders{appendErr: errors.New("redis down")})
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 10})
	mustStart(t, flow)
	mustAddress(t, flow)

	_, snap, err := flow.Confirm(ctx)
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(snap.Cart.Items) != 1 || snap.Stage != StageShippingSelection {
		t.Fatalf("cart should be untouched, got %+v", snap)
	}
}

type failingSaveRepo struct {
	cartrepo.Repository
	failSaves bool
}

func (r *failingSaveRepo) Save(ctx context.Context, items []domain.LineItem) error {
	if r.failSaves {
		return errors.New("redis set: connection refused")
	}
	return r.Repository.Save(ctx, items)
}

func TestConfirmReportsUnclearedCart(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	repo := &failingSaveRepo{Repository: cartrepo.NewKV(mem)}
	orders := &stubOrders{}
	flow := New(Deps{
		Store:    cart.New(repo, pricing.Policy{}, nil),
		Verifier: &stubVerifier{},
		Orders:   orders,
		Now:      func() time.Time { return time.UnixMilli(1700000000000) },
	})
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 10})
	mustStart(t, flow)
	mustAddress(t, flow)

	repo.failSaves = true
	order, snap, err := flow.Confirm(ctx)
	if !errors.Is(err, ErrCartNotCleared) {
		t.Fatalf("expected ErrCartNotCleared, got %v", err)
	}
	if order.ID == "" || len(orders.appended) != 1 {
		t.Fatalf("order should still be recorded, got %+v", order)
	}
	if len(snap.Cart.Items) != 0 || snap.Stage != StageIdle {
		t.Fatalf("expected cleared idle snapshot, got %+v", snap)
	}
	if _, _, err := flow.Confirm(ctx); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("second confirm should see an empty cart, got %v", err)
	}
}

func TestLoadSurfacesRepositoryError(t *testing.T) {
	ctx := context.Background()
	mem := &flakyKV{Store: kv.NewMemory(), failGets: 1}
	flow := New(Deps{
		Store:    cart.New(cartrepo.NewKV(mem), pricing.Policy{}, nil),
		Verifier: &stubVerifier{},
		Orders:   &stubOrders{},
	})
	if _, err := flow.Load(ctx); err == nil {
		t.Fatalf("expected load error")
	}
	if _, err := flow.Load(ctx); err != nil {
		t.Fatalf("Load retry: %v", err)
	}
}

type flakyKV struct {
	kv.Store
	failGets int
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.failGets > 0 {
		f.failGets--
		return nil, errors.New("redis get: i/o timeout")
	}
	return f.Store.Get(ctx, key)
}

func TestConfirmRequiresShippingSelection(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, nil, nil)
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 10})
	mustStart(t, flow)
	if _, _, err := flow.Confirm(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestEmptyingCartReturnsToIdle(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, nil, nil)
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 10})
	mustStart(t, flow)
	snap := flow.RemoveItem(ctx, "1")
	if snap.Stage != StageIdle {
		t.Fatalf("expected idle after emptying cart, got %s", snap.Stage)
	}
}

func TestApplyCouponSuccessAndFailure(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, nil, nil)
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 200})

	snap, err := flow.ApplyCoupon(ctx, " PROMO10 ")
	if err != nil {
		t.Fatalf("ApplyCoupon: %v", err)
	}
	if snap.Cart.Coupon == nil || snap.Cart.Coupon.Code != "PROMO10" || snap.Cart.Discount != 20 {
		t.Fatalf("unexpected coupon state %+v", snap.Cart)
	}

	snap, err = flow.ApplyCoupon(ctx, "BOGUS")
	if !errors.Is(err, ErrCouponRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if snap.Cart.Coupon != nil {
		t.Fatalf("coupon should be cleared after rejection")
	}
	if len(snap.Cart.Items) != 1 {
		t.Fatalf("cart items should be unaffected")
	}
}

func TestApplyCouponNetworkFailureClearsCoupon(t *testing.T) {
	ctx := context.Background()
	verifier := &stubVerifier{coupons: map[string]domain.Coupon{"ENVIOGRATIS": envioGratis}}
	flow := newTestFlow(t, verifier, nil)
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 200})
	if _, err := flow.ApplyCoupon(ctx, "ENVIOGRATIS"); err != nil {
		t.Fatalf("ApplyCoupon: %v", err)
	}

	netErr := errors.New("connection refused")
	verifier.err = netErr
	snap, err := flow.ApplyCoupon(ctx, "ENVIOGRATIS")
	if !errors.Is(err, ErrCouponRejected) || !errors.Is(err, netErr) {
		t.Fatalf("expected wrapped network error, got %v", err)
	}
	if snap.Cart.Coupon != nil || snap.Cart.ShippingCost != 80 {
		t.Fatalf("expected coupon cleared and shipping restored, got %+v", snap.Cart)
	}
}

func TestApplyCouponEmptyCode(t *testing.T) {
	verifier := &stubVerifier{}
	flow := newTestFlow(t, verifier, nil)
	if _, err := flow.ApplyCoupon(context.Background(), "  "); !errors.Is(err, ErrCouponCodeRequired) {
		t.Fatalf("expected code required, got %v", err)
	}
	if verifier.calls != 0 {
		t.Fatalf("verifier should not be called")
	}
}

func TestApplyCouponLatestRequestWins(t *testing.T) {
	ctx := context.Background()
	gate := &gatedVerifier{
		started: make(chan string),
		release: map[string]chan struct{}{"PROMO10": make(chan struct{}), "ENVIOGRATIS": make(chan struct{})},
		coupons: map[string]domain.Coupon{"PROMO10": promo10, "ENVIOGRATIS": envioGratis},
	}
	flow := newTestFlow(t, gate, nil)
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 200})

	type result struct {
		snap Snapshot
		err  error
	}
	first := make(chan result, 1)
	go func() {
		s, err := flow.ApplyCoupon(ctx, "PROMO10")
		first <- result{s, err}
	}()
	<-gate.started

	second := make(chan result, 1)
	go func() {
		s, err := flow.ApplyCoupon(ctx, "ENVIOGRATIS")
		second <- result{s, err}
	}()
	<-gate.started

	close(gate.release["ENVIOGRATIS"])
	r2 := <-second
	if r2.err != nil {
		t.Fatalf("second ApplyCoupon: %v", r2.err)
	}

	close(gate.release["PROMO10"])
	r1 := <-first
	if !errors.Is(r1.err, ErrCouponSuperseded) {
		t.Fatalf("expected superseded, got %v", r1.err)
	}

	c := flow.Snapshot().Cart.Coupon
	if c == nil || c.Code != "ENVIOGRATIS" {
		t.Fatalf("expected latest coupon to win, got %+v", c)
	}
}

func TestSyncAdoptsServerCart(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, nil, nil)
	flow.syncer = &stubSyncer{merged: []domain.LineItem{
		{ID: "1", Name: "Montura", UnitPrice: 90, Quantity: 3},
		{ID: "9", Name: "Cinto", UnitPrice: 40, Quantity: 1},
	}}
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 100})

	snap, err := flow.Sync(ctx, "cust-1")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(snap.Cart.Items) != 2 || snap.Cart.Items[0].Quantity != 3 || snap.Cart.Subtotal != 310 {
		t.Fatalf("unexpected cart after sync %+v", snap.Cart)
	}
}

func TestSyncDropsAnswerAfterLocalMutation(t *testing.T) {
	ctx := context.Background()
	flow := newTestFlow(t, nil, nil)
	syncer := &stubSyncer{merged: []domain.LineItem{{ID: "1", UnitPrice: 1, Quantity: 1}}}
	syncer.hook = func() {
		flow.AddItem(ctx, domain.LineItemInput{ID: "2", UnitPrice: 5})
	}
	flow.syncer = syncer
	flow.AddItem(ctx, domain.LineItemInput{ID: "1", UnitPrice: 1})

	snap, err := flow.Sync(ctx, "cust-1")
	if !errors.Is(err, ErrSyncStale) {
		t.Fatalf("expected stale sync, got %v", err)
	}
	if len(snap.Cart.Items) != 2 {
		t.Fatalf("local mutation lost: %+v", snap.Cart.Items)
	}
}

func TestSyncWithoutSyncer(t *testing.T) {
	flow := newTestFlow(t, nil, nil)
	_, err := flow.Sync(context.Background(), "cust")
	if !errors.Is(err, ErrSyncUnavailable) {
		t.Fatalf("expected sync unavailable, got %v", err)
	}
	if errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("missing syncer reported as unauthenticated")
	}
}

func mustStart(t *testing.T, flow *Flow) {
	t.Helper()
	if _, err := flow.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func mustAddress(t *testing.T, flow *Flow) {
	t.Helper()
	if _, err := flow.SubmitAddress(context.Background(), validAddress()); err != nil {
		t.Fatalf("SubmitAddress: %v", err)
	}
}
