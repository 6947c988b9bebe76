// Package cart keeps a local mirror of the server-confirmed cart. The
// server state is authoritative: every mutation either adopts the cart the
// server returned or re-fetches it, and the local snapshot is only a
// read-side fallback for when the network is gone.
package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/posdesk/posd/internal/snapshot"
	"github.com/posdesk/posd/internal/upstream"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
	"github.com/posdesk/posd/pkg/logger"
)

// MaxItemQuantity caps a single cart line. Mirrors the server-side limit so
// obviously bad input never leaves the till.
const MaxItemQuantity = 100

// Client is the slice of the upstream API the cart needs.
type Client interface {
	GetCart(ctx context.Context) ([]upstream.CartItem, error)
	AddToCart(ctx context.Context, productID string, quantity int) (*upstream.CartResponse, error)
	UpdateCart(ctx context.Context, productID string, quantity int) (*upstream.CartResponse, error)
	RemoveFromCart(ctx context.Context, productID string) (*upstream.CartResponse, error)
	ClearCart(ctx context.Context) (*upstream.CartResponse, error)
}

// Snapshot is the observable cart state pushed to listeners.
type Snapshot struct {
	Items    []upstream.CartItem `json:"items"`
	Count    int                 `json:"count"`
	Subtotal decimal.Decimal     `json:"subtotal"`
	// Offline marks a cart served from the local snapshot rather than
	// confirmed by the server.
	Offline bool `json:"offline"`
}

// Listener is notified after every observable cart change.
type Listener interface {
	CartChanged(Snapshot)
}

// Service reconciles the in-memory cart with the server after every
// mutation and mirrors the result into the local snapshot.
type Service struct {
	mu      sync.Mutex
	items   []upstream.CartItem
	offline bool

	client    Client
	snaps     snapshot.Store
	logg      *logger.Logger
	listeners []Listener

	// schedule defers best-effort snapshot mirroring off the request path.
	schedule func(func())
}

func NewService(client Client, snaps snapshot.Store, logg *logger.Logger) *Service {
	if snaps == nil {
		snaps = snapshot.Noop{}
	}
	return &Service{
		client:   client,
		snaps:    snaps,
		logg:     logg,
		schedule: func(fn func()) { go fn() },
	}
}

// AddListener registers an observer for cart changes.
func (s *Service) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Items returns a copy of the current cart lines.
func (s *Service) Items() []upstream.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]upstream.CartItem(nil), s.items...)
}

// Count is the badge number: the summed quantity across all lines.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countLocked(s.items)
}

// Subtotal sums the line totals of the current cart.
func (s *Service) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return subtotalLocked(s.items)
}

// Offline reports whether the current cart came from the local snapshot
// instead of the server.
func (s *Service) Offline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}

// Load fetches the authoritative cart. On network failure it falls back
// once to the local snapshot; the fallback is never written back, so a
// stale mirror cannot launder itself into looking fresh.
func (s *Service) Load(ctx context.Context) ([]upstream.CartItem, error) {
	items, err := s.client.GetCart(ctx)
	if err != nil {
		if !pkgerrors.IsOffline(err) {
			return nil, err
		}
		stored, found, snapErr := s.snaps.LoadCart(ctx)
		if snapErr != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", snapErr.Error()), "cart.snapshot_read_failed")
		}
		if !found {
			return nil, err
		}
		s.mu.Lock()
		s.items = stored
		s.offline = true
		s.notifyLocked()
		s.mu.Unlock()
		return append([]upstream.CartItem(nil), stored...), nil
	}

	s.adopt(items)
	return append([]upstream.CartItem(nil), items...), nil
}

// Add puts a quantity of a product in the cart.
func (s *Service) Add(ctx context.Context, productID string, quantity int) ([]upstream.CartItem, error) {
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if quantity < 1 || quantity > MaxItemQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be between 1 and 100")
	}
	return s.mutate(ctx, func() (*upstream.CartResponse, error) {
		return s.client.AddToCart(ctx, productID, quantity)
	})
}

// Update sets a line's quantity; zero removes the line server-side.
func (s *Service) Update(ctx context.Context, productID string, quantity int) ([]upstream.CartItem, error) {
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if quantity < 0 || quantity > MaxItemQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be between 0 and 100")
	}
	return s.mutate(ctx, func() (*upstream.CartResponse, error) {
		return s.client.UpdateCart(ctx, productID, quantity)
	})
}

// Remove drops a line entirely.
func (s *Service) Remove(ctx context.Context, productID string) ([]upstream.CartItem, error) {
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	return s.mutate(ctx, func() (*upstream.CartResponse, error) {
		return s.client.RemoveFromCart(ctx, productID)
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context) ([]upstream.CartItem, error) {
	return s.mutate(ctx, func() (*upstream.CartResponse, error) {
		return s.client.ClearCart(ctx)
	})
}

// mutate runs one cart mutation and reconciles: adopt the cart the server
// echoed back, or re-fetch when the response omitted it.
func (s *Service) mutate(ctx context.Context, call func() (*upstream.CartResponse, error)) ([]upstream.CartItem, error) {
	resp, err := call()
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		message := resp.Message
		if message == "" {
			message = "cart update rejected"
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict, message)
	}

	items := resp.Cart
	if !resp.HasCart {
		items, err = s.client.GetCart(ctx)
		if err != nil {
			return nil, err
		}
	}

	s.adopt(items)
	return append([]upstream.CartItem(nil), items...), nil
}

// adopt replaces the in-memory cart with server-confirmed state and mirrors
// it into the snapshot. The mirror is advisory: failures are logged, never
// surfaced.
func (s *Service) adopt(items []upstream.CartItem) {
	s.mu.Lock()
	s.items = append([]upstream.CartItem(nil), items...)
	s.offline = false
	s.notifyLocked()
	s.mu.Unlock()

	mirror := append([]upstream.CartItem(nil), items...)
	logg := s.logg
	snaps := s.snaps
	s.schedule(func() {
		if err := snaps.SaveCart(context.Background(), mirror); err != nil && logg != nil {
			logg.Warn(logg.WithField(context.Background(), "error", err.Error()), "cart.snapshot_write_failed")
		}
	})
}

func (s *Service) notifyLocked() {
	snap := Snapshot{
		Items:    append([]upstream.CartItem(nil), s.items...),
		Count:    countLocked(s.items),
		Subtotal: subtotalLocked(s.items),
		Offline:  s.offline,
	}
	for _, l := range s.listeners {
		l.CartChanged(snap)
	}
}

func countLocked(items []upstream.CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

func subtotalLocked(items []upstream.CartItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(decimal.NewFromFloat(item.TotalPrice))
	}
	return subtotal.Round(2)
}
