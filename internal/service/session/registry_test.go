package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-cart/internal/domain"
	"storefront-cart/internal/kv"
	"storefront-cart/internal/pricing"
	cartrepo "storefront-cart/internal/repository/cart"
	"storefront-cart/internal/service/checkout"
)

func mustGet(t *testing.T, ctx context.Context, reg *Registry, id string) *checkout.Flow {
	t.Helper()
	flow, err := reg.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get %s: %v", id, err)
	}
	return flow
}

// timeoutOnceKV fails the next fail Gets with a timeout and honours ctx.
type timeoutOnceKV struct {
	kv.Store
	mu   sync.Mutex
	fail int
}

func (s *timeoutOnceKV) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	if s.fail > 0 {
		s.fail--
		s.mu.Unlock()
		return nil, errors.New("redis get: i/o timeout")
	}
	s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.Get(ctx, key)
}

func TestRegistryHydratesFromStorage(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	scoped := kv.Namespaced(store, kv.SessionPrefix("abc"))
	if err := cartrepo.NewKV(scoped).Save(ctx, []domain.LineItem{{ID: "1", UnitPrice: 50, Quantity: 2}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	reg := NewRegistry(Config{Store: store, Policy: pricing.Policy{}})
	snap := mustGet(t, ctx, reg, "abc").Snapshot()
	if len(snap.Cart.Items) != 1 || snap.Cart.Subtotal != 100 {
		t.Fatalf("expected hydrated cart, got %+v", snap.Cart)
	}

	other := mustGet(t, ctx, reg, "xyz").Snapshot()
	if len(other.Cart.Items) != 0 {
		t.Fatalf("sessions should be isolated, got %+v", other.Cart)
	}
}

func TestRegistryReturnsSameFlow(t *testing.T) {
	reg := NewRegistry(Config{Store: kv.NewMemory()})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan interface{}, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			flow, err := reg.Get(ctx, "same")
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			results <- flow
		}()
	}
	wg.Wait()
	close(results)

	first := <-results
	for r := range results {
		if r != first {
			t.Fatalf("expected one flow per session")
		}
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", reg.Len())
	}
}

func TestRegistryMutationsPersistAcrossSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	reg := NewRegistry(Config{Store: kv.NewMemory(), Now: func() time.Time { return now }})

	mustGet(t, ctx, reg, "s1").AddItem(ctx, domain.LineItemInput{ID: "7", UnitPrice: 10, Quantity: 3})

	now = now.Add(2 * time.Hour)
	if n := reg.Sweep(time.Hour); n != 1 {
		t.Fatalf("expected 1 swept session, got %d", n)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry")
	}

	snap := mustGet(t, ctx, reg, "s1").Snapshot()
	if len(snap.Cart.Items) != 1 || snap.Cart.Items[0].Quantity != 3 {
		t.Fatalf("expected cart reloaded from storage, got %+v", snap.Cart)
	}
}

func TestRegistryTransientLoadErrorKeepsStoredCart(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	scoped := kv.Namespaced(mem, kv.SessionPrefix("s1"))
	if err := cartrepo.NewKV(scoped).Save(ctx, []domain.LineItem{{ID: "A", UnitPrice: 20, Quantity: 2}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := &timeoutOnceKV{Store: mem, fail: 1}
	reg := NewRegistry(Config{Store: store})

	if _, err := reg.Get(ctx, "s1"); err == nil {
		t.Fatalf("expected hydrate error")
	}
	if reg.Len() != 0 {
		t.Fatalf("failed hydrate must not be cached, got %d sessions", reg.Len())
	}

	mustGet(t, ctx, reg, "s1").AddItem(ctx, domain.LineItemInput{ID: "B", UnitPrice: 5})

	stored, err := cartrepo.NewKV(scoped).Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(stored) != 2 || stored[0].ID != "A" || stored[0].Quantity != 2 || stored[1].ID != "B" {
		t.Fatalf("expected A and B stored, got %+v", stored)
	}
}

func TestRegistryHydrateIgnoresCallerCancellation(t *testing.T) {
	mem := kv.NewMemory()
	scoped := kv.Namespaced(mem, kv.SessionPrefix("s1"))
	if err := cartrepo.NewKV(scoped).Save(context.Background(), []domain.LineItem{{ID: "A", UnitPrice: 20, Quantity: 2}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	reg := NewRegistry(Config{Store: &timeoutOnceKV{Store: mem}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := mustGet(t, ctx, reg, "s1").Snapshot()
	if len(snap.Cart.Items) != 1 || snap.Cart.Items[0].Quantity != 2 {
		t.Fatalf("expected stored cart despite cancelled caller, got %+v", snap.Cart)
	}
}
