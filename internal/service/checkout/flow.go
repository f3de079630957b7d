package checkout

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront-cart/internal/domain"
	orderrepo "storefront-cart/internal/repository/order"
	"storefront-cart/internal/service/cart"
)

// CouponVerifier checks a coupon code with the remote storefront.
type CouponVerifier interface {
	VerifyCoupon(ctx context.Context, code string) (domain.Coupon, error)
}

// CartSyncer merges local items into a customer's server-side cart.
type CartSyncer interface {
	SyncCart(ctx context.Context, customerID string, items []domain.LineItem) ([]domain.LineItem, error)
}

// Snapshot is what the rendering side needs after any operation.
type Snapshot struct {
	Stage Stage            `json:"etapa"`
	Cart  domain.CartState `json:"carrito"`
}

// Flow drives one session through checkout. Its mutex stands in for the
// single thread of control the cart expects, so every exported method is
// safe to call from concurrent requests. Remote calls run without the lock.
type Flow struct {
	mu       sync.Mutex
	store    *cart.Store
	verifier CouponVerifier
	syncer   CartSyncer
	orders   orderrepo.Repository
	logger   *log.Logger
	now      func() time.Time

	stage     Stage
	couponSeq uint64
	mutations uint64
	lastOrder int64
}

type Deps struct {
	Store    *cart.Store
	Verifier CouponVerifier
	Syncer   CartSyncer
	Orders   orderrepo.Repository
	Logger   *log.Logger
	Now      func() time.Time
}

func New(deps Deps) *Flow {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Flow{
		store:    deps.Store,
		verifier: deps.Verifier,
		syncer:   deps.Syncer,
		orders:   deps.Orders,
		logger:   logger,
		now:      now,
		stage:    StageIdle,
	}
}

// Load hydrates the cart from storage. On error the flow must not be used.
func (f *Flow) Load(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.store.Load(ctx); err != nil {
		return f.snapshotLocked(), err
	}
	return f.snapshotLocked(), nil
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) AddItem(ctx context.Context, in domain.LineItemInput) Snapshot {
	return f.mutate(func() { f.store.AddItem(ctx, in) })
}

func (f *Flow) UpdateQuantity(ctx context.Context, id string, quantity int) Snapshot {
	return f.mutate(func() { f.store.UpdateQuantity(ctx, id, quantity) })
}

func (f *Flow) RemoveItem(ctx context.Context, id string) Snapshot {
	return f.mutate(func() { f.store.RemoveItem(ctx, id) })
}

// ClearCart empties the cart and abandons any checkout in progress.
func (f *Flow) ClearCart(ctx context.Context) Snapshot {
	return f.mutate(func() {
		f.store.Clear(ctx)
		f.couponSeq++
	})
}

func (f *Flow) mutate(fn func()) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
	f.mutations++
	if f.store.Len() == 0 && f.stage != StageIdle {
		f.stage = StageIdle
	}
	return f.snapshotLocked()
}

// Start moves to address entry. An empty cart keeps the flow idle.
func (f *Flow) Start(_ context.Context) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.store.Len() == 0 {
		f.stage = StageIdle
		return f.snapshotLocked(), ErrCartEmpty
	}
	if err := f.transitionLocked(StageAddressEntry); err != nil {
		return f.snapshotLocked(), err
	}
	return f.snapshotLocked(), nil
}

// Cancel abandons checkout and returns to idle, keeping the cart.
func (f *Flow) Cancel(_ context.Context) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stage.CanTransitionTo(StageIdle) {
		f.stage = StageIdle
	}
	return f.snapshotLocked()
}

// SubmitAddress validates addr and, when every mandatory field is filled,
// attaches it and moves on to shipping selection. A *FieldError leaves the
// flow in address entry.
func (f *Flow) SubmitAddress(_ context.Context, addr domain.Address) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stage != StageAddressEntry {
		return f.snapshotLocked(), fmt.Errorf("%w: submit address in %s", ErrInvalidTransition, f.stage)
	}
	valid, err := ValidateAddress(addr)
	if err != nil {
		return f.snapshotLocked(), err
	}
	f.store.SetAddress(&valid)
	f.stage = StageShippingSelection
	return f.snapshotLocked(), nil
}

// SelectShipping sets the shipping method; totals follow immediately.
func (f *Flow) SelectShipping(_ context.Context, method domain.ShippingMethod) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stage != StageShippingSelection {
		return f.snapshotLocked(), fmt.Errorf("%w: select shipping in %s", ErrInvalidTransition, f.stage)
	}
	f.store.SetShippingMethod(method)
	return f.snapshotLocked(), nil
}

// Confirm materialises an order from the current cart, appends it to the
// order list and clears the cart. A failed append leaves everything as is.
// When the order is stored but the emptied cart cannot be saved, the order
// is returned together with ErrCartNotCleared.
func (f *Flow) Confirm(ctx context.Context) (domain.Order, Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.store.Len() == 0 {
		f.stage = StageIdle
		return domain.Order{}, f.snapshotLocked(), ErrCartEmpty
	}
	if !f.stage.CanTransitionTo(StageConfirmed) {
		return domain.Order{}, f.snapshotLocked(), fmt.Errorf("%w: confirm in %s", ErrInvalidTransition, f.stage)
	}
	addr := f.store.Address()
	if addr == nil {
		return domain.Order{}, f.snapshotLocked(), fmt.Errorf("%w: no shipping address", ErrInvalidTransition)
	}

	state := f.store.State()
	now := f.now().UTC()
	order := domain.Order{
		ID:             f.nextOrderIDLocked(now),
		CreatedAt:      now,
		Items:          state.Items,
		Address:        *addr,
		ShippingMethod: state.ShippingMethod,
		ShippingCost:   state.ShippingCost,
		Total:          state.Total,
		Status:         domain.OrderPending,
	}
	if err := f.orders.Append(ctx, order); err != nil {
		return domain.Order{}, f.snapshotLocked(), fmt.Errorf("append order: %w", err)
	}

	f.stage = StageConfirmed
	clearErr := f.store.Clear(ctx)
	f.store.SetShippingMethod(domain.ShippingStandard)
	f.couponSeq++
	f.mutations++
	f.stage = StageIdle
	f.logger.Printf("checkout: confirmed order_id=%s items=%d total=%.2f", order.ID, len(order.Items), order.Total)
	if clearErr != nil {
		f.logger.Printf("checkout: order_id=%s stored cart not cleared: %v", order.ID, clearErr)
		return order, f.snapshotLocked(), fmt.Errorf("%w: %w", ErrCartNotCleared, clearErr)
	}
	return order, f.snapshotLocked(), nil
}

// Orders lists the orders confirmed so far.
func (f *Flow) Orders(ctx context.Context) ([]domain.Order, error) {
	return f.orders.List(ctx)
}

// ApplyCoupon verifies code remotely and, on success, makes it the active
// coupon. Any failure clears the active coupon. When a newer ApplyCoupon
// (or anything else that resets the coupon) starts before this one's answer
// arrives, the answer is dropped and ErrCouponSuperseded returned.
func (f *Flow) ApplyCoupon(ctx context.Context, code string) (Snapshot, error) {
	code = strings.TrimSpace(code)
	f.mu.Lock()
	if code == "" {
		defer f.mu.Unlock()
		return f.snapshotLocked(), ErrCouponCodeRequired
	}
	f.couponSeq++
	seq := f.couponSeq
	f.mu.Unlock()

	coupon, verr := f.verifier.VerifyCoupon(ctx, code)

	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.couponSeq {
		f.logger.Printf("checkout: dropping stale coupon answer code=%s seq=%d latest=%d", code, seq, f.couponSeq)
		return f.snapshotLocked(), ErrCouponSuperseded
	}
	if verr != nil {
		f.store.SetCoupon(nil)
		return f.snapshotLocked(), fmt.Errorf("%w: %w", ErrCouponRejected, verr)
	}
	f.store.SetCoupon(&coupon)
	return f.snapshotLocked(), nil
}

// RemoveCoupon drops the active coupon and any verification in flight.
func (f *Flow) RemoveCoupon(_ context.Context) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.couponSeq++
	f.store.SetCoupon(nil)
	return f.snapshotLocked()
}

// Sync merges the cart into customerID's server-side cart and adopts the
// server's answer, unless the cart was mutated while the call was out.
func (f *Flow) Sync(ctx context.Context, customerID string) (Snapshot, error) {
	f.mu.Lock()
	if f.syncer == nil {
		defer f.mu.Unlock()
		return f.snapshotLocked(), ErrSyncUnavailable
	}
	items := f.store.Items()
	version := f.mutations
	f.mu.Unlock()

	merged, err := f.syncer.SyncCart(ctx, customerID, items)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		return f.snapshotLocked(), err
	}
	if version != f.mutations {
		return f.snapshotLocked(), ErrSyncStale
	}
	f.store.ReplaceItems(ctx, merged)
	f.mutations++
	if f.store.Len() == 0 {
		f.stage = StageIdle
	}
	return f.snapshotLocked(), nil
}

func (f *Flow) transitionLocked(next Stage) error {
	if !f.stage.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.stage, next)
	}
	f.stage = next
	return nil
}

// nextOrderIDLocked derives a PED-prefixed id from the clock, bumping the
// millisecond when two orders land in the same one.
func (f *Flow) nextOrderIDLocked(now time.Time) string {
	ms := now.UnixMilli()
	if ms <= f.lastOrder {
		ms = f.lastOrder + 1
	}
	f.lastOrder = ms
	return "PED" + strconv.FormatInt(ms, 10)
}

func (f *Flow) snapshotLocked() Snapshot {
	return Snapshot{Stage: f.stage, Cart: f.store.State()}
}
