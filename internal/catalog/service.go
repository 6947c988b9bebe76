// Package catalog is the client data layer for the product grid: it owns
// the pagination cursor, the active filter, and the in-memory product list,
// and it reconciles network failures against the best-effort local snapshot.
package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/posdesk/posd/internal/snapshot"
	"github.com/posdesk/posd/internal/upstream"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
	"github.com/posdesk/posd/pkg/logger"
)

// CategoryAll disables category narrowing.
const CategoryAll = "all"

// Cursor is the offset/limit bookkeeping driving incremental loads.
type Cursor struct {
	NextOffset int  `json:"next_offset"`
	PageSize   int  `json:"page_size"`
	HasMore    bool `json:"has_more"`
	Total      int  `json:"total"`
}

// Filter is the two axes of catalog narrowing.
type Filter struct {
	Query    string `json:"query"`
	Category string `json:"category"`
}

// LoadOptions modify one Load call.
type LoadOptions struct {
	// Reset starts over from offset zero, replacing the loaded list.
	Reset bool
	// Silent suppresses the loading notification, for sentinel-triggered
	// incremental fetches.
	Silent bool
}

// Snapshot is the observable state pushed to listeners.
type Snapshot struct {
	Products []upstream.Product `json:"products"`
	Cursor   Cursor             `json:"cursor"`
	Filter   Filter             `json:"filter"`
	// Offline marks state rehydrated from the local snapshot rather than
	// confirmed by the server.
	Offline bool `json:"offline"`
	Loading bool `json:"loading"`
}

// Listener is notified after every observable state change.
type Listener interface {
	CatalogChanged(Snapshot)
}

// ProductLister is the slice of the upstream client this service needs.
type ProductLister interface {
	ListProducts(ctx context.Context, params upstream.ListParams) (*upstream.ProductPage, error)
}

// Service serializes catalog loads with a single in-flight guard:
// overlapping calls are dropped, not queued.
type Service struct {
	mu       sync.Mutex
	fetching bool
	products []upstream.Product
	cursor   Cursor
	filter   Filter
	offline  bool

	pageSize  int
	client    ProductLister
	snaps     snapshot.Store
	logg      *logger.Logger
	listeners []Listener

	// schedule defers best-effort snapshot writes off the load path.
	schedule func(func())
}

func NewService(client ProductLister, snaps snapshot.Store, pageSize int, logg *logger.Logger) *Service {
	if snaps == nil {
		snaps = snapshot.Noop{}
	}
	if pageSize <= 0 {
		pageSize = 8
	}
	return &Service{
		cursor:   Cursor{PageSize: pageSize, HasMore: true},
		filter:   Filter{Category: CategoryAll},
		pageSize: pageSize,
		client:   client,
		snaps:    snaps,
		logg:     logg,
		schedule: func(fn func()) { go fn() },
	}
}

// AddListener registers an observer for state changes.
func (s *Service) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// State returns a copy of the current observable state.
func (s *Service) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SetFilter updates the active query/category. Any change resets the cursor
// so the next load starts over; the caller follows up with Load(reset).
// It reports whether anything changed.
func (s *Service) SetFilter(query, category string) bool {
	query = strings.TrimSpace(query)
	if category == "" {
		category = CategoryAll
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := Filter{Query: query, Category: category}
	if next == s.filter {
		return false
	}
	s.filter = next
	s.resetCursorLocked()
	return true
}

// SetPageSize records a new page size derived from the viewport. An
// in-progress cursor keeps its size; the new value applies from the next
// reset.
func (s *Service) SetPageSize(size int) {
	if size <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = size
}

// PageSizeForWidth derives the catalog page size from the viewport width.
func PageSizeForWidth(width, max int) int {
	var size int
	switch {
	case width <= 0:
		size = 8
	case width < 600:
		size = 6
	case width < 960:
		size = 8
	case width < 1280:
		size = 12
	default:
		size = 16
	}
	if max > 0 && size > max {
		size = max
	}
	return size
}

// Load fetches the next catalog window. Overlapping calls are dropped while
// a fetch is outstanding; exhausted pagination short-circuits.
func (s *Service) Load(ctx context.Context, opts LoadOptions) error {
	s.mu.Lock()
	if s.fetching {
		s.mu.Unlock()
		return nil
	}
	if !opts.Reset && !s.cursor.HasMore {
		s.mu.Unlock()
		return nil
	}

	if opts.Reset {
		s.resetCursorLocked()
		s.products = nil
		s.offline = false
	}
	s.fetching = true
	params := upstream.ListParams{
		Offset:   s.cursor.NextOffset,
		Limit:    s.cursor.PageSize,
		Query:    s.filter.Query,
		Category: s.filter.Category,
	}
	notifyLoading := !opts.Silent
	if notifyLoading {
		s.notifyLocked()
	}
	s.mu.Unlock()

	page, err := s.client.ListProducts(ctx, params)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetching = false

	if err != nil {
		if opts.Reset {
			return s.rehydrateLocked(ctx, err)
		}
		// The loaded prefix stays; stop probing until the caller retries
		// explicitly (e.g. the next scroll re-arms the sentinel).
		s.cursor.HasMore = false
		s.notifyLocked()
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "incremental catalog load failed")
	}

	if opts.Reset {
		s.products = append([]upstream.Product(nil), page.Items...)
	} else {
		s.products = append(s.products, page.Items...)
	}
	// Advance by what actually arrived, not by the requested page size, so
	// a short final page keeps the offset honest.
	s.cursor.NextOffset += len(page.Items)
	s.cursor.HasMore = page.HasMore
	s.cursor.Total = page.Total
	s.offline = false

	s.persistProductsLocked()
	s.notifyLocked()
	return nil
}

// rehydrateLocked rebuilds state from the local snapshot after a failed
// reset load. The rehydrated catalog is unpaginated and marked exhausted.
func (s *Service) rehydrateLocked(ctx context.Context, cause error) error {
	products, found, snapErr := s.snaps.LoadProducts(ctx)
	if snapErr != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", snapErr.Error()), "catalog.snapshot_read_failed")
	}
	if !found {
		s.notifyLocked()
		return pkgerrors.Wrap(pkgerrors.CodeOffline, cause, "catalog unavailable and no local snapshot")
	}

	s.products = products
	s.cursor = Cursor{
		NextOffset: len(products),
		PageSize:   s.cursor.PageSize,
		HasMore:    false,
		Total:      len(products),
	}
	s.offline = true
	s.notifyLocked()
	return nil
}

// persistProductsLocked mirrors the full in-memory list off the load path.
// Failure is logged and swallowed: the snapshot is advisory.
func (s *Service) persistProductsLocked() {
	products := append([]upstream.Product(nil), s.products...)
	logg := s.logg
	snaps := s.snaps
	s.schedule(func() {
		if err := snaps.SaveProducts(context.Background(), products); err != nil && logg != nil {
			logg.Warn(logg.WithField(context.Background(), "error", err.Error()), "catalog.snapshot_write_failed")
		}
	})
}

func (s *Service) resetCursorLocked() {
	s.cursor = Cursor{PageSize: s.pageSize, HasMore: true}
}

func (s *Service) snapshotLocked() Snapshot {
	return Snapshot{
		Products: append([]upstream.Product(nil), s.products...),
		Cursor:   s.cursor,
		Filter:   s.filter,
		Offline:  s.offline,
		Loading:  s.fetching,
	}
}

func (s *Service) notifyLocked() {
	snap := s.snapshotLocked()
	for _, l := range s.listeners {
		l.CatalogChanged(snap)
	}
}
