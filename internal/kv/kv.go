// Package kv provides the key-value storage the cart and order
// repositories persist into. It stands in for the browser's local storage.
package kv

import "context"

// Store is a string-keyed blob store. Get returns domain.ErrNotFound for
// keys that were never written.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Namespaced prefixes every key with prefix before delegating to s.
func Namespaced(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &namespaced{inner: s, prefix: prefix}
}

type namespaced struct {
	inner  Store
	prefix string
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

// SessionPrefix is the namespace used for a shopping session's keys.
func SessionPrefix(sessionID string) string {
	return "session:" + sessionID + ":"
}
