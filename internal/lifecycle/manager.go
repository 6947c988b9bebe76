// Package lifecycle owns cache versioning: installing the precache manifest
// into a fresh static partition, evicting partitions from older versions on
// activation, and signalling connected clients to reload when a new version
// takes control.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/posdesk/posd/internal/cachestore"
	pkgerrors "github.com/posdesk/posd/pkg/errors"
	"github.com/posdesk/posd/pkg/logger"
	"go.uber.org/multierr"
)

type State int

const (
	StateNew State = iota
	StateInstalled
	StateActive
)

func (s State) String() string {
	switch s {
	case StateInstalled:
		return "installed"
	case StateActive:
		return "active"
	default:
		return "new"
	}
}

// FetchFunc retrieves one asset from the upstream origin.
type FetchFunc func(ctx context.Context, path string) (*cachestore.Entry, error)

// Manager drives the install/activate cycle for one cache version.
type Manager struct {
	mu          sync.Mutex
	state       State
	names       cachestore.Names
	store       cachestore.Store
	fetch       FetchFunc
	precache    []string
	logg        *logger.Logger
	subscribers []*subscriber
}

type subscriber struct {
	ch   chan struct{}
	once sync.Once
}

func NewManager(store cachestore.Store, fetch FetchFunc, version string, precache []string, logg *logger.Logger) *Manager {
	return &Manager{
		state:    StateNew,
		names:    cachestore.NamesFor(version),
		store:    store,
		fetch:    fetch,
		precache: append([]string(nil), precache...),
		logg:     logg,
	}
}

// Names exposes the partition names for the managed version.
func (m *Manager) Names() cachestore.Names {
	return m.names
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Install seeds the static partition with every manifest asset. The whole
// batch is staged before anything is written: a partially seeded static
// partition must never exist.
func (m *Manager) Install(ctx context.Context) error {
	staged := make(map[string]*cachestore.Entry, len(m.precache))
	for _, path := range m.precache {
		entry, err := m.fetch(ctx, path)
		if err != nil {
			return fmt.Errorf("precaching %s: %w", path, err)
		}
		if !cachestore.Cacheable(entry.Status) {
			return fmt.Errorf("precaching %s: unexpected status %d", path, entry.Status)
		}
		staged[path] = entry
	}

	for path, entry := range staged {
		key := cachestore.Key("GET", path)
		if err := m.store.Put(ctx, m.names.Static, key, entry); err != nil {
			return fmt.Errorf("storing %s: %w", path, err)
		}
	}

	m.mu.Lock()
	m.state = StateInstalled
	m.mu.Unlock()

	if m.logg != nil {
		ctx = m.logg.WithPartition(ctx, m.names.Static)
		m.logg.Info(ctx, "lifecycle.installed")
	}
	return nil
}

// Activate deletes every partition that does not belong to the managed
// version, then takes control. Deletion failures are aggregated but do not
// stop the sweep or the takeover.
func (m *Manager) Activate(ctx context.Context) error {
	partitions, err := m.store.Partitions(ctx)
	if err != nil {
		return fmt.Errorf("enumerating partitions: %w", err)
	}

	var errs error
	for _, partition := range partitions {
		if m.names.Current(partition) {
			continue
		}
		if err := m.store.DeletePartition(ctx, partition); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("deleting partition %s: %w", partition, err))
			continue
		}
		if m.logg != nil {
			m.logg.Info(m.logg.WithPartition(ctx, partition), "lifecycle.partition_evicted")
		}
	}

	m.takeControl(ctx)
	return errs
}

// SkipWaiting makes an installed manager take control immediately instead
// of waiting for the previous version's clients to go away. A manager that
// never installed has nothing to hand over to: activating it would evict
// the older generations while its own static partition is empty.
func (m *Manager) SkipWaiting(ctx context.Context) error {
	switch m.State() {
	case StateActive:
		return nil
	case StateNew:
		return pkgerrors.New(pkgerrors.CodeConflict, "Update is not installed yet.")
	}
	return m.Activate(ctx)
}

// Subscribe returns a channel that receives exactly one signal when this
// version takes control. Clients use it to trigger their one-time reload.
func (m *Manager) Subscribe() <-chan struct{} {
	sub := &subscriber{ch: make(chan struct{}, 1)}

	m.mu.Lock()
	active := m.state == StateActive
	m.subscribers = append(m.subscribers, sub)
	m.mu.Unlock()

	// Late subscribers to an already-active version still get their signal.
	if active {
		sub.notify()
	}
	return sub.ch
}

func (m *Manager) takeControl(ctx context.Context) {
	m.mu.Lock()
	already := m.state == StateActive
	m.state = StateActive
	subs := append([]*subscriber(nil), m.subscribers...)
	m.mu.Unlock()

	if already {
		return
	}
	for _, sub := range subs {
		sub.notify()
	}
	if m.logg != nil {
		m.logg.Info(m.logg.WithField(ctx, "version", m.names.Static), "lifecycle.activated")
	}
}

func (s *subscriber) notify() {
	s.once.Do(func() {
		s.ch <- struct{}{}
	})
}
