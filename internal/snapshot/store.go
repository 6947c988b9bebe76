// Package snapshot persists best-effort local copies of server-confirmed
// state. Snapshots are advisory: they are overwritten wholesale after every
// successful sync and only ever read to bootstrap a session while the
// upstream API is unreachable.
package snapshot

import (
	"context"

	"github.com/posdesk/posd/internal/upstream"
)

// Keys under which the two snapshots are stored.
const (
	KeyProducts = "cached_products"
	KeyCart     = "cart"
)

// Store is the swappable persistence port for the client data layer.
type Store interface {
	SaveProducts(ctx context.Context, products []upstream.Product) error
	LoadProducts(ctx context.Context) ([]upstream.Product, bool, error)
	SaveCart(ctx context.Context, items []upstream.CartItem) error
	LoadCart(ctx context.Context) ([]upstream.CartItem, bool, error)
}

// Noop disables persistence entirely for environments without local storage.
type Noop struct{}

var _ Store = Noop{}

func (Noop) SaveProducts(context.Context, []upstream.Product) error { return nil }

func (Noop) LoadProducts(context.Context) ([]upstream.Product, bool, error) {
	return nil, false, nil
}

func (Noop) SaveCart(context.Context, []upstream.CartItem) error { return nil }

func (Noop) LoadCart(context.Context) ([]upstream.CartItem, bool, error) {
	return nil, false, nil
}
