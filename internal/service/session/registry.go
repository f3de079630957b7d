// Package session keeps one checkout flow per shopping session, hydrated
// from storage the first time the session is seen.
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"storefront-cart/internal/kv"
	"storefront-cart/internal/pricing"
	cartrepo "storefront-cart/internal/repository/cart"
	orderrepo "storefront-cart/internal/repository/order"
	"storefront-cart/internal/service/cart"
	"storefront-cart/internal/service/checkout"

	"golang.org/x/sync/singleflight"
)

type Config struct {
	Store    kv.Store
	Policy   pricing.Policy
	Verifier checkout.CouponVerifier
	Syncer   checkout.CartSyncer
	Logger   *log.Logger
	Now      func() time.Time
}

type entry struct {
	flow     *checkout.Flow
	lastSeen time.Time
}

type Registry struct {
	cfg    Config
	logger *log.Logger
	now    func() time.Time

	mu    sync.Mutex
	flows map[string]*entry
	group singleflight.Group
}

func NewRegistry(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		cfg:    cfg,
		logger: logger,
		now:    now,
		flows:  make(map[string]*entry),
	}
}

// Get returns the flow for sessionID, loading it from storage on first use.
// Concurrent first requests for the same session share a single load, which
// is not cancelled with any one caller's context. A failed load is not
// cached; the next request tries again.
func (r *Registry) Get(ctx context.Context, sessionID string) (*checkout.Flow, error) {
	sessionID = strings.TrimSpace(sessionID)
	if flow := r.lookup(sessionID); flow != nil {
		return flow, nil
	}
	hydrateCtx := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(sessionID, func() (interface{}, error) {
		if flow := r.lookup(sessionID); flow != nil {
			return flow, nil
		}
		flow := r.build(sessionID)
		if _, err := flow.Load(hydrateCtx); err != nil {
			r.logger.Printf("session: hydrate session_id=%s error=%v", sessionID, err)
			return nil, err
		}
		r.mu.Lock()
		r.flows[sessionID] = &entry{flow: flow, lastSeen: r.now()}
		r.mu.Unlock()
		r.logger.Printf("session: hydrated session_id=%s", sessionID)
		return flow, nil
	})
	if err != nil {
		return nil, fmt.Errorf("hydrate session %s: %w", sessionID, err)
	}
	return v.(*checkout.Flow), nil
}

// Sweep forgets sessions not used for longer than idle. Their data stays in
// storage and is reloaded on the next request.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.flows {
		if e.lastSeen.Before(cutoff) {
			delete(r.flows, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

func (r *Registry) lookup(sessionID string) *checkout.Flow {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.flows[sessionID]
	if !ok {
		return nil
	}
	e.lastSeen = r.now()
	return e.flow
}

func (r *Registry) build(sessionID string) *checkout.Flow {
	scoped := kv.Namespaced(r.cfg.Store, kv.SessionPrefix(sessionID))
	store := cart.New(cartrepo.NewKV(scoped), r.cfg.Policy, r.logger)
	return checkout.New(checkout.Deps{
		Store:    store,
		Verifier: r.cfg.Verifier,
		Syncer:   r.cfg.Syncer,
		Orders:   orderrepo.NewKV(scoped, r.logger),
		Logger:   r.logger,
		Now:      r.cfg.Now,
	})
}
