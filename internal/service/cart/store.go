package cart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/pricing"
	cartrepo "storefront-cart/internal/repository/cart"
)

// Store owns the line items of one shopping session together with the
// coupon, shipping method and address that feed pricing. Every mutation is
// written through to the repository before it returns.
//
// A Store is not safe for concurrent use; callers serialise access.
type Store struct {
	repo   cartrepo.Repository
	policy pricing.Policy
	logger *log.Logger

	items   []domain.LineItem
	coupon  *domain.Coupon
	method  domain.ShippingMethod
	address *domain.Address
}

func New(repo cartrepo.Repository, policy pricing.Policy, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{
		repo:   repo,
		policy: policy,
		logger: logger,
		method: domain.ShippingStandard,
	}
}

// Load hydrates the store from the repository. Corrupt data leaves an empty
// cart behind. Any other repository error is returned and the in-memory items
// stay untouched, so the caller must not write the store back.
func (s *Store) Load(ctx context.Context) (domain.CartState, error) {
	items, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrCorruptState):
		s.logger.Printf("cart store: discarding stored cart: %v", err)
		items = nil
	case err != nil:
		s.logger.Printf("cart store: load failed: %v", err)
		return s.State(), fmt.Errorf("load cart: %w", err)
	}
	s.items = normalize(items)
	return s.State(), nil
}

// Save writes the current items to the repository.
func (s *Store) Save(ctx context.Context) error {
	return s.repo.Save(ctx, s.Items())
}

// AddItem merges in into the cart. An existing line with the same id has
// its quantity increased; otherwise a new line is appended.
func (s *Store) AddItem(ctx context.Context, in domain.LineItemInput) {
	item := withDefaults(in)
	if idx := s.indexOf(item.ID); idx >= 0 {
		s.items[idx].Quantity = domain.ClampQuantity(s.items[idx].Quantity + item.Quantity)
	} else {
		s.items = append(s.items, item)
	}
	s.persist(ctx, "add")
}

// UpdateQuantity sets the quantity of line id. Unknown ids are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) {
	idx := s.indexOf(id)
	if idx < 0 {
		return
	}
	s.items[idx].Quantity = domain.ClampQuantity(quantity)
	s.persist(ctx, "update")
}

// RemoveItem drops line id. Removing an absent id is a no-op.
func (s *Store) RemoveItem(ctx context.Context, id string) {
	idx := s.indexOf(id)
	if idx < 0 {
		return
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	s.persist(ctx, "remove")
}

// Clear empties the items and forgets the coupon and address. The in-memory
// cart is cleared even when the write fails; the save error is returned.
func (s *Store) Clear(ctx context.Context) error {
	s.items = nil
	s.coupon = nil
	s.address = nil
	return s.persist(ctx, "clear")
}

// ReplaceItems swaps the whole item list, as after a server-side merge.
func (s *Store) ReplaceItems(ctx context.Context, items []domain.LineItem) {
	s.items = normalize(items)
	s.persist(ctx, "replace")
}

// SetCoupon replaces the active coupon; nil removes it.
func (s *Store) SetCoupon(c *domain.Coupon) {
	if c == nil {
		s.coupon = nil
		return
	}
	cp := *c
	s.coupon = &cp
}

func (s *Store) Coupon() *domain.Coupon {
	if s.coupon == nil {
		return nil
	}
	cp := *s.coupon
	return &cp
}

func (s *Store) SetShippingMethod(m domain.ShippingMethod) {
	s.method = m
}

func (s *Store) ShippingMethod() domain.ShippingMethod {
	return s.method
}

// SetAddress attaches a shipping address; nil detaches it.
func (s *Store) SetAddress(a *domain.Address) {
	if a == nil {
		s.address = nil
		return
	}
	cp := *a
	s.address = &cp
}

func (s *Store) Address() *domain.Address {
	if s.address == nil {
		return nil
	}
	cp := *s.address
	return &cp
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.LineItem {
	out := make([]domain.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	return len(s.items)
}

// State prices the cart from scratch and returns a detached snapshot.
func (s *Store) State() domain.CartState {
	q := s.policy.Quote(s.items, s.method, s.coupon)
	return domain.CartState{
		Items:           s.Items(),
		Subtotal:        q.Subtotal,
		Tax:             q.Tax,
		ShippingCost:    q.ShippingCost,
		Discount:        q.Discount,
		Total:           q.Total,
		Coupon:          s.Coupon(),
		ShippingMethod:  s.method,
		ShippingAddress: s.Address(),
	}
}

func (s *Store) persist(ctx context.Context, op string) error {
	if err := s.Save(ctx); err != nil {
		s.logger.Printf("cart store: save after %s failed: %v", op, err)
		return err
	}
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func withDefaults(in domain.LineItemInput) domain.LineItem {
	item := domain.LineItem{
		ID:        strings.TrimSpace(in.ID),
		Name:      strings.TrimSpace(in.Name),
		Category:  strings.TrimSpace(in.Category),
		UnitPrice: in.UnitPrice,
		ImageURL:  strings.TrimSpace(in.ImageURL),
		Quantity:  in.Quantity,
	}
	if item.Name == "" {
		item.Name = "Producto " + item.ID
	}
	if item.Category == "" {
		item.Category = domain.DefaultCategory
	}
	if item.ImageURL == "" {
		item.ImageURL = domain.DefaultImageURL
	}
	if item.UnitPrice < 0 {
		item.UnitPrice = 0
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	item.Quantity = domain.ClampQuantity(item.Quantity)
	return item
}

// normalize folds duplicate ids together and clamps quantities so data
// written by older clients still satisfies the cart invariants.
func normalize(items []domain.LineItem) []domain.LineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.LineItem, 0, len(items))
	pos := make(map[string]int, len(items))
	for _, it := range items {
		if i, ok := pos[it.ID]; ok {
			out[i].Quantity = domain.ClampQuantity(out[i].Quantity + it.Quantity)
			continue
		}
		it.Quantity = domain.ClampQuantity(it.Quantity)
		pos[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}
